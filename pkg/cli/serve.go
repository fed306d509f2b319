package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/bumprisk/pkg/cli/config"
	controller "github.com/m-mizutani/bumprisk/pkg/controller/http"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/usecase"
	"github.com/m-mizutani/bumprisk/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		githubCfg config.GitHub
		engineCfg engineConfig
		inputs    config.Inputs
		indexLogs bool
	)

	flags := append(serverCfg.Flags(), githubCfg.Flags()...)
	flags = append(flags, engineCfg.Flags()...)
	flags = append(flags, inputs.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "index-on-start",
		Usage:       "Index --dependency-tree and --jdeps before accepting requests",
		Destination: &indexLogs,
		Sources:     cli.EnvVars("BUMPRISK_INDEX_ON_START"),
	})

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting bumprisk server",
				slog.String("addr", serverCfg.Addr),
			)

			e, err := engineCfg.newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if indexLogs {
				if err := e.indexer.Index(ctx, usecase.DefaultSources(inputs.DependencyTree, inputs.Jdeps)); err != nil {
					return err
				}
			} else if !engineCfg.store.Persistent() {
				logger.Warn("In-memory vector store is empty; enable --index-on-start or use a persistent store")
			}

			dispatcher := async.NewDispatcher(
				async.WithMaxConcurrency(serverCfg.MaxConcurrent),
				async.WithErrorHook(func(ctx context.Context, err error) {
					sentry.CaptureException(err)
				}),
			)

			var webhookUC interfaces.WebhookUseCase
			if githubCfg.Enabled() {
				repository, err := githubCfg.RepositoryName()
				if err != nil {
					return err
				}
				githubClient, err := githubCfg.NewClient()
				if err != nil {
					return err
				}
				webhookUC = usecase.NewWebhook(repository, e.pipeline, githubClient, dispatcher)
				logger.Info("Webhook enabled", "repository", repository)
			} else {
				logger.Info("GitHub App is not configured, webhook endpoint disabled")
			}

			server, err := controller.NewServer(
				ctx,
				webhookUC,
				e.pipeline,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(githubCfg.WebhookSecret),
				controller.WithVectorStoreName(engineCfg.store.Backend),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			if err := dispatcher.Wait(shutdownCtx); err != nil {
				logger.Warn("Pending assessments were abandoned", "error", err)
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
