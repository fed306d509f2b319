package usecase

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/m-mizutani/bumprisk/pkg/agent"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompts/risk_system.md
var riskSystemPrompt string

//go:embed prompts/risk_user.md
var riskUserPrompt string

//go:embed prompts/enrich_system.md
var enrichSystemPrompt string

//go:embed prompts/enrich_user.md
var enrichUserPrompt string

type systemPromptInput struct {
	Tools     string
	ToolNames string
}

type riskUserInput struct {
	Diff         string
	ChangedFiles []string
}

type enrichUserInput struct {
	Verdict string
}

func renderSystemPrompt(name, text string, tools []interfaces.Tool) (string, error) {
	return render(name, text, systemPromptInput{
		Tools:     agent.DescribeTools(tools),
		ToolNames: agent.ToolNames(tools),
	})
}

func render(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse prompt template", goerr.V("template", name))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render prompt template", goerr.V("template", name))
	}
	return buf.String(), nil
}
