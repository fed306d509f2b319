package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/m-mizutani/bumprisk/pkg/agent"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/sourcegraph/go-diff/diff"
)

// AgentLimits caps one agent loop. Zero values fall back to the agent defaults.
type AgentLimits struct {
	MaxTurns       int
	MaxParseErrors int
}

// RiskEvaluator runs the risk evaluation agent over a `git show` diff
type RiskEvaluator struct {
	executor *agent.Executor
}

// NewRiskEvaluator builds the agent with the given retrieval tools
func NewRiskEvaluator(llm gollem.LLMClient, tools []interfaces.Tool, limits AgentLimits) (*RiskEvaluator, error) {
	systemPrompt, err := renderSystemPrompt("risk_system", riskSystemPrompt, tools)
	if err != nil {
		return nil, err
	}

	executor, err := agent.New(llm, agent.Config{
		Name:           "risk_evaluation",
		SystemPrompt:   systemPrompt,
		Tools:          tools,
		MaxTurns:       limits.MaxTurns,
		MaxParseErrors: limits.MaxParseErrors,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create risk evaluation agent")
	}

	return &RiskEvaluator{executor: executor}, nil
}

// Evaluate returns the verdict and the agent transcript
func (x *RiskEvaluator) Evaluate(ctx context.Context, gitDiff string) (*model.RiskVerdict, []model.Step, error) {
	logger := ctxlog.From(ctx)

	if strings.TrimSpace(gitDiff) == "" {
		return nil, nil, goerr.New("diff is empty")
	}

	files := ChangedFiles(ctx, gitDiff)
	logger.Info("Evaluating dependency change risk", "changed_files", len(files))

	input, err := render("risk_user", riskUserPrompt, riskUserInput{Diff: gitDiff, ChangedFiles: files})
	if err != nil {
		return nil, nil, err
	}

	result, err := x.executor.Run(ctx, input)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "risk evaluation failed")
	}

	verdict, err := model.DecodeVerdict([]byte(result.Output))
	if err != nil {
		return nil, result.Steps, goerr.Wrap(err, "risk evaluation answer is not a valid verdict",
			goerr.V("output", result.Output))
	}

	logger.Info("Risk evaluated", "risk_level", verdict.RiskLevel, "usage", len(verdict.Usage), "turns", result.Turns)
	return verdict, result.Steps, nil
}

// ChangedFiles lists the paths touched by a unified diff. A diff that cannot be parsed yields nil.
func ChangedFiles(ctx context.Context, gitDiff string) []string {
	// drop a `git show` commit header in front of the first file diff
	if idx := strings.Index(gitDiff, "diff --git "); idx > 0 {
		gitDiff = gitDiff[idx:]
	}

	fileDiffs, err := diff.ParseMultiFileDiff([]byte(gitDiff))
	if err != nil {
		ctxlog.From(ctx).Debug("Diff is not parsable, changed files are omitted", "error", err)
		return nil
	}

	seen := make(map[string]bool)
	var files []string
	for _, fd := range fileDiffs {
		name := fd.NewName
		if name == "" || name == "/dev/null" {
			name = fd.OrigName
		}
		name = strings.TrimPrefix(strings.TrimPrefix(name, "b/"), "a/")
		if name == "" || name == "/dev/null" || seen[name] {
			continue
		}
		seen[name] = true
		files = append(files, name)
	}
	sort.Strings(files)
	return files
}
