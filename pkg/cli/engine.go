package cli

import (
	"context"

	"github.com/m-mizutani/bumprisk/pkg/cli/config"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
	"github.com/m-mizutani/bumprisk/pkg/infra/git"
	"github.com/m-mizutani/bumprisk/pkg/usecase"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/urfave/cli/v3"
)

// engineConfig gathers the settings every pipeline-running command shares
type engineConfig struct {
	llm       config.LLM
	embedding config.Embedding
	store     config.VectorStore
	profile   config.Profile
	repo      config.Repository
	report    config.Report
}

func (c *engineConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, c.llm.Flags()...)
	flags = append(flags, c.embedding.Flags()...)
	flags = append(flags, c.store.Flags()...)
	flags = append(flags, c.profile.Flags()...)
	flags = append(flags, c.repo.Flags()...)
	flags = append(flags, c.report.Flags()...)
	return flags
}

// engine holds the constructed components of one run
type engine struct {
	llm      gollem.LLMClient
	embedder interfaces.Embedder
	store    interfaces.VectorStore
	indexer  *usecase.Indexer
	pipeline *usecase.Pipeline
	closers  []func()
}

func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// indexComponents builds only the parts needed to populate the vector store
func (c *engineConfig) indexComponents(ctx context.Context, e *engine) error {
	if c.embedding.Provider == "llm" && e.llm == nil {
		llm, err := c.llm.NewClient(ctx)
		if err != nil {
			return err
		}
		e.llm = llm
	}

	embedder, err := c.embedding.NewEmbedder(e.llm)
	if err != nil {
		return err
	}
	e.embedder = embedder

	store, closeStore, err := c.store.New(ctx)
	if err != nil {
		return err
	}
	e.store = store
	e.closers = append(e.closers, closeStore)

	e.indexer = usecase.NewIndexer(embedder, store)
	return nil
}

func (c *engineConfig) newIndexEngine(ctx context.Context) (*engine, error) {
	e := &engine{}
	if err := c.indexComponents(ctx, e); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// newEngine builds the full assessment pipeline
func (c *engineConfig) newEngine(ctx context.Context) (*engine, error) {
	e := &engine{}
	if err := c.buildPipeline(ctx, e); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (c *engineConfig) buildPipeline(ctx context.Context, e *engine) error {
	logger := ctxlog.From(ctx)

	profile, err := c.profile.Load()
	if err != nil {
		return err
	}
	mode, err := c.repo.Mode()
	if err != nil {
		return err
	}
	tickets, err := profile.TicketMatcher()
	if err != nil {
		return err
	}

	llm, err := c.llm.NewClient(ctx)
	if err != nil {
		return err
	}
	e.llm = llm

	if err := c.indexComponents(ctx, e); err != nil {
		return err
	}

	k := profile.SearchK()
	risk, err := usecase.NewRiskEvaluator(llm, []interfaces.Tool{
		usecase.NewSearchDependencyTreeTool(e.embedder, e.store, k),
		usecase.NewSearchClassLevelDependencyTool(e.embedder, e.store, k),
	}, profile.Limits())
	if err != nil {
		return err
	}

	var enrichOpts []usecase.EnricherOption
	switch mode {
	case types.EnrichModeAgent:
		executor, err := usecase.NewEnrichAgent(llm, []interfaces.Tool{
			usecase.NewReadFileTool(c.repo.Dir),
			usecase.NewGitCommandTool(git.NewShell(c.repo.Dir)),
		}, profile.Limits())
		if err != nil {
			return err
		}
		enrichOpts = append(enrichOpts, usecase.WithEnrichAgent(executor))

	case types.EnrichModeDirect:
		repo, err := git.OpenRepository(c.repo.Dir)
		if err != nil {
			return err
		}
		enrichOpts = append(enrichOpts, usecase.WithHistory(repo))
	}

	enricher, err := usecase.NewEnricher(mode, tickets, enrichOpts...)
	if err != nil {
		return err
	}

	sinks, closeSinks, err := c.report.NewSinks(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to configure report sinks")
	}
	e.closers = append(e.closers, closeSinks)

	e.pipeline = usecase.NewPipeline(risk, enricher, usecase.WithReportSinks(sinks...))

	logger.Debug("Pipeline ready",
		"llm", c.llm.Provider,
		"model", c.llm.ModelName(),
		"vector_store", c.store.Backend,
		"enrich", mode,
		"k", k,
		"sinks", len(sinks),
	)
	return nil
}
