package embedding

import (
	"context"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// DefaultDimension is used when the gollem embedder is created with dimension 0
const DefaultDimension = 768

// Gollem embeds texts with the embedding endpoint of a gollem LLM client (e.g. Gemini)
type Gollem struct {
	client    gollem.LLMClient
	dimension int
}

// NewGollem wraps a gollem client as an embedder
func NewGollem(client gollem.LLMClient, dimension int) *Gollem {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Gollem{client: client, dimension: dimension}
}

func (x *Gollem) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		resp, err := x.client.GenerateEmbedding(ctx, x.dimension, texts[start:end])
		if err != nil {
			return nil, goerr.Wrap(err, "failed to generate embeddings",
				goerr.V("dimension", x.dimension),
				goerr.V("batch_start", start),
			)
		}
		if len(resp) != end-start {
			return nil, goerr.New("embedding count mismatch",
				goerr.V("expected", end-start),
				goerr.V("actual", len(resp)),
			)
		}

		for _, v := range resp {
			vectors = append(vectors, toFloat32(v))
		}
	}

	return vectors, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

var _ interfaces.Embedder = &Gollem{}
