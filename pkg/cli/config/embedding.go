package config

import (
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/infra/embedding"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/urfave/cli/v3"
)

// Embedding selects the embedder used for both indexing and retrieval.
// "openai" calls an OpenAI compatible embeddings endpoint. "llm" reuses the chat client.
type Embedding struct {
	Provider  string
	Model     string
	APIKey    string `masq:"secret"`
	BaseURL   string
	Dimension int
}

// Flags returns CLI flags for embedding configuration
func (c *Embedding) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "embedding-provider",
			Usage:       "Embedding provider (openai, llm)",
			Value:       "openai",
			Destination: &c.Provider,
			Sources:     cli.EnvVars("BUMPRISK_EMBEDDING_PROVIDER"),
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model for the openai provider",
			Value:       embedding.DefaultOpenAIModel,
			Destination: &c.Model,
			Sources:     cli.EnvVars("BUMPRISK_EMBEDDING_MODEL"),
		},
		&cli.StringFlag{
			Name:        "embedding-api-key",
			Usage:       "API key for the openai provider",
			Destination: &c.APIKey,
			Sources:     cli.EnvVars("BUMPRISK_EMBEDDING_API_KEY", "OPENAI_API_KEY"),
		},
		&cli.StringFlag{
			Name:        "embedding-base-url",
			Usage:       "Base URL of an OpenAI compatible embeddings endpoint",
			Destination: &c.BaseURL,
			Sources:     cli.EnvVars("BUMPRISK_EMBEDDING_BASE_URL"),
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Vector dimension for the llm provider",
			Value:       embedding.DefaultDimension,
			Destination: &c.Dimension,
			Sources:     cli.EnvVars("BUMPRISK_EMBEDDING_DIMENSION"),
		},
	}
}

// NewEmbedder creates the configured embedder. llm is used by the "llm" provider only.
func (c *Embedding) NewEmbedder(llm gollem.LLMClient) (interfaces.Embedder, error) {
	switch c.Provider {
	case "openai":
		var opts []embedding.OpenAIOption
		if c.Model != "" {
			opts = append(opts, embedding.WithOpenAIModel(c.Model))
		}
		if c.BaseURL != "" {
			opts = append(opts, embedding.WithOpenAIBaseURL(c.BaseURL))
		}
		embedder, err := embedding.NewOpenAI(c.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return embedder, nil

	case "llm":
		if llm == nil {
			return nil, goerr.New("llm embedding provider requires a chat client")
		}
		return embedding.NewGollem(llm, c.Dimension), nil

	default:
		return nil, goerr.New("unsupported embedding provider", goerr.V("provider", c.Provider))
	}
}
