package embedding

import (
	"context"
	"sort"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIModel = string(openai.AdaEmbeddingV2)

	// batchSize is the number of texts sent per embeddings request
	batchSize = 100
)

// OpenAI embeds texts through an OpenAI compatible embeddings endpoint
type OpenAI struct {
	client *openai.Client
	model  string
}

type OpenAIOption func(*openAIOptions)

type openAIOptions struct {
	model   string
	baseURL string
}

// WithOpenAIModel overrides the embedding model
func WithOpenAIModel(model string) OpenAIOption {
	return func(o *openAIOptions) {
		o.model = model
	}
}

// WithOpenAIBaseURL points the client at another OpenAI compatible server
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(o *openAIOptions) {
		o.baseURL = url
	}
}

// NewOpenAI creates an embedder. apiKey is required.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, goerr.New("OpenAI API key is required for embeddings")
	}

	o := &openAIOptions{model: DefaultOpenAIModel}
	for _, opt := range opts {
		opt(o)
	}

	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  o.model,
	}, nil
}

// Embed returns one vector per text, in input order
func (x *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	logger := ctxlog.From(ctx)
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		resp, err := x.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(x.model),
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create embeddings",
				goerr.V("model", x.model),
				goerr.V("batch_start", start),
				goerr.V("batch_size", end-start),
			)
		}
		if len(resp.Data) != end-start {
			return nil, goerr.New("embedding count mismatch",
				goerr.V("expected", end-start),
				goerr.V("actual", len(resp.Data)),
			)
		}

		data := resp.Data
		sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
		for _, d := range data {
			vectors = append(vectors, d.Embedding)
		}
		logger.Debug("Embedded batch", "model", x.model, "start", start, "size", end-start)
	}

	return vectors, nil
}

var _ interfaces.Embedder = &OpenAI{}
