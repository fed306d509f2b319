package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/urfave/cli/v3"
)

// Gemini holds Vertex AI settings of the gemini provider. Credentials come from ADC.
type Gemini struct {
	ProjectID string
	Location  string
}

// Flags returns CLI flags for Gemini configuration
func (c *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project-id",
			Usage:       "Google Cloud Project ID for Gemini (llm-provider=gemini)",
			Destination: &c.ProjectID,
			Sources:     cli.EnvVars("BUMPRISK_GEMINI_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Vertex AI location/region",
			Value:       "us-central1",
			Destination: &c.Location,
			Sources:     cli.EnvVars("BUMPRISK_GEMINI_LOCATION"),
		},
	}
}

func (c *Gemini) newClient(ctx context.Context, model string) (gollem.LLMClient, error) {
	if c.ProjectID == "" {
		return nil, goerr.New("gemini-project-id is required for gemini")
	}

	client, err := gemini.New(ctx, c.ProjectID, c.Location,
		gemini.WithModel(model),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client",
			goerr.V("project_id", c.ProjectID),
			goerr.V("location", c.Location),
		)
	}
	return client, nil
}
