package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/m-mizutani/bumprisk/pkg/agent"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
	"github.com/m-mizutani/bumprisk/pkg/infra/git"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// Enricher adds lastCommitInfo to every usage record of a verdict
type Enricher struct {
	mode     types.EnrichMode
	executor *agent.Executor
	history  interfaces.History
	tickets  *model.TicketMatcher
}

type EnricherOption func(*Enricher)

// WithEnrichAgent enables the agent mode
func WithEnrichAgent(executor *agent.Executor) EnricherOption {
	return func(x *Enricher) {
		x.executor = executor
	}
}

// WithHistory enables the direct mode
func WithHistory(history interfaces.History) EnricherOption {
	return func(x *Enricher) {
		x.history = history
	}
}

// NewEnrichAgent builds the commit enrichment agent
func NewEnrichAgent(llm gollem.LLMClient, tools []interfaces.Tool, limits AgentLimits) (*agent.Executor, error) {
	systemPrompt, err := renderSystemPrompt("enrich_system", enrichSystemPrompt, tools)
	if err != nil {
		return nil, err
	}

	executor, err := agent.New(llm, agent.Config{
		Name:           "commit_enrichment",
		SystemPrompt:   systemPrompt,
		Tools:          tools,
		MaxTurns:       limits.MaxTurns,
		MaxParseErrors: limits.MaxParseErrors,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create commit enrichment agent")
	}
	return executor, nil
}

func NewEnricher(mode types.EnrichMode, tickets *model.TicketMatcher, opts ...EnricherOption) (*Enricher, error) {
	if !mode.Validate() {
		return nil, goerr.New("invalid enrich mode", goerr.V("mode", mode))
	}
	if tickets == nil {
		m, err := model.NewTicketMatcher()
		if err != nil {
			return nil, err
		}
		tickets = m
	}

	x := &Enricher{mode: mode, tickets: tickets}
	for _, opt := range opts {
		opt(x)
	}

	switch {
	case mode == types.EnrichModeAgent && x.executor == nil:
		return nil, goerr.New("agent enrich mode requires an agent")
	case mode == types.EnrichModeDirect && x.history == nil:
		return nil, goerr.New("direct enrich mode requires repository history")
	}
	return x, nil
}

func (x *Enricher) Mode() types.EnrichMode {
	return x.mode
}

// Enrich returns an enriched copy of verdict and the agent transcript, if any.
// A verdict without usage is returned unchanged.
func (x *Enricher) Enrich(ctx context.Context, verdict *model.RiskVerdict) (*model.RiskVerdict, []model.Step, error) {
	logger := ctxlog.From(ctx)

	if x.mode == types.EnrichModeNone || len(verdict.Usage) == 0 {
		logger.Info("Commit enrichment skipped", "mode", x.mode, "usage", len(verdict.Usage))
		return verdict.Clone(), nil, nil
	}

	switch x.mode {
	case types.EnrichModeDirect:
		enriched, err := x.enrichDirect(ctx, verdict)
		return enriched, nil, err
	default:
		return x.enrichWithAgent(ctx, verdict)
	}
}

func (x *Enricher) enrichWithAgent(ctx context.Context, verdict *model.RiskVerdict) (*model.RiskVerdict, []model.Step, error) {
	raw, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal verdict")
	}

	input, err := render("enrich_user", enrichUserPrompt, enrichUserInput{Verdict: string(raw)})
	if err != nil {
		return nil, nil, err
	}

	result, err := x.executor.Run(ctx, input)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "commit enrichment failed")
	}

	enriched, err := model.DecodeVerdict([]byte(result.Output))
	if err != nil {
		return nil, result.Steps, goerr.Wrap(err, "commit enrichment answer is not a valid verdict",
			goerr.V("output", result.Output))
	}
	if err := x.validateEnriched(ctx, verdict, enriched); err != nil {
		return nil, result.Steps, err
	}

	return enriched, result.Steps, nil
}

// validateEnriched checks the echoed fields and sanitizes ticket ids in place
func (x *Enricher) validateEnriched(ctx context.Context, input, enriched *model.RiskVerdict) error {
	if !input.SameAssessment(enriched) {
		return goerr.Wrap(model.ErrSchemaViolation, "enriched verdict does not echo the input assessment")
	}

	for i := range enriched.Usage {
		info := enriched.Usage[i].LastCommitInfo
		if info == nil {
			return goerr.Wrap(model.ErrSchemaViolation, "usage entry has no lastCommitInfo",
				goerr.V("index", i),
				goerr.V("path", enriched.Usage[i].Path),
			)
		}
		if info.JiraID != "" && !x.tickets.Match(info.JiraID) {
			ctxlog.From(ctx).Warn("Dropping ticket id that does not match ticket patterns",
				"path", enriched.Usage[i].Path,
				"jira_id", info.JiraID,
			)
			info.JiraID = ""
		}
	}
	return nil
}

func (x *Enricher) enrichDirect(ctx context.Context, verdict *model.RiskVerdict) (*model.RiskVerdict, error) {
	logger := ctxlog.From(ctx)
	enriched := verdict.Clone()

	for i := range enriched.Usage {
		usage := &enriched.Usage[i]

		commit, err := x.history.LastCommit(ctx, usage.Path)
		if errors.Is(err, git.ErrNoCommit) {
			logger.Warn("No commit found for usage path", "path", usage.Path)
			usage.LastCommitInfo = &model.CommitInfo{}
			continue
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve last commit", goerr.V("path", usage.Path))
		}

		usage.LastCommitInfo = &model.CommitInfo{
			CommitID: commit.Hash,
			JiraID:   x.tickets.Extract(commit.Message),
			Author:   commit.Author,
		}
	}

	return enriched, nil
}
