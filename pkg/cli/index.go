package cli

import (
	"context"

	"github.com/m-mizutani/bumprisk/pkg/cli/config"
	"github.com/m-mizutani/bumprisk/pkg/usecase"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdIndex() *cli.Command {
	var (
		engineCfg engineConfig
		inputs    config.Inputs
	)

	return &cli.Command{
		Name:    "index",
		Aliases: []string{"i"},
		Usage:   "Index dependency logs into a persistent vector store",
		Flags:   append(engineCfg.Flags(), inputs.Flags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			if !engineCfg.store.Persistent() {
				return goerr.New("index requires a persistent vector store (pgvector or weaviate)")
			}

			e, err := engineCfg.newIndexEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.indexer.Index(ctx, usecase.DefaultSources(inputs.DependencyTree, inputs.Jdeps)); err != nil {
				return err
			}

			ctxlog.From(ctx).Info("Index completed", "vector_store", engineCfg.store.Backend)
			return nil
		},
	}
}
