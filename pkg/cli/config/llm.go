package config

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/claude"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/urfave/cli/v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

var defaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o",
	ProviderGemini: "gemini-2.5-flash",
	ProviderClaude: "claude-sonnet-4-20250514",
}

// LLM holds chat model configuration. Completions are requested at temperature 0.
type LLM struct {
	Provider string
	Model    string
	APIKey   string `masq:"secret"`
	BaseURL  string
	Gemini   Gemini
}

// Flags returns CLI flags for LLM configuration
func (c *LLM) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "Chat model provider (openai, gemini, claude)",
			Value:       ProviderOpenAI,
			Destination: &c.Provider,
			Sources:     cli.EnvVars("BUMPRISK_LLM_PROVIDER"),
		},
		&cli.StringFlag{
			Name:        "llm-model",
			Usage:       "Chat model name. Defaults to gpt-4o for openai",
			Destination: &c.Model,
			Sources:     cli.EnvVars("BUMPRISK_LLM_MODEL"),
		},
		&cli.StringFlag{
			Name:        "llm-api-key",
			Usage:       "API key of the chat model provider",
			Destination: &c.APIKey,
			Sources:     cli.EnvVars("BUMPRISK_LLM_API_KEY", "OPENAI_API_KEY"),
		},
		&cli.StringFlag{
			Name:        "llm-base-url",
			Usage:       "Base URL of an OpenAI compatible endpoint",
			Destination: &c.BaseURL,
			Sources:     cli.EnvVars("BUMPRISK_LLM_BASE_URL"),
		},
	}
	return append(flags, c.Gemini.Flags()...)
}

// ModelName returns the configured model or the provider default
func (c *LLM) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModels[c.Provider]
}

// NewClient creates the chat client of the configured provider
func (c *LLM) NewClient(ctx context.Context) (gollem.LLMClient, error) {
	model := c.ModelName()
	ctxlog.From(ctx).Debug("Creating LLM client", "provider", c.Provider, "model", model, "base_url", c.BaseURL)

	switch c.Provider {
	case ProviderOpenAI:
		if c.APIKey == "" {
			return nil, goerr.New("llm-api-key is required for openai")
		}
		opts := []openai.Option{
			openai.WithModel(model),
			openai.WithTemperature(0),
		}
		if c.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.BaseURL))
		}
		client, err := openai.New(ctx, c.APIKey, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create openai client")
		}
		return client, nil

	case ProviderGemini:
		return c.Gemini.newClient(ctx, model)

	case ProviderClaude:
		if c.APIKey == "" {
			return nil, goerr.New("llm-api-key is required for claude")
		}
		client, err := claude.New(ctx, c.APIKey,
			claude.WithModel(model),
			claude.WithTemperature(0),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create claude client")
		}
		return client, nil

	default:
		return nil, goerr.New("unsupported llm provider", goerr.V("provider", c.Provider))
	}
}
