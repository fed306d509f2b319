package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/m-mizutani/bumprisk/pkg/cli/config"
	"github.com/m-mizutani/bumprisk/pkg/infra/git"
	"github.com/m-mizutani/bumprisk/pkg/usecase"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdAssess() *cli.Command {
	var (
		engineCfg engineConfig
		inputs    config.Inputs
		diffPath  string
		rev       string
		skipIndex bool
		summary   bool
		output    string
	)

	flags := append(engineCfg.Flags(), inputs.Flags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "diff",
			Usage:       "Output of `git show` for the dependency upgrade commit. `-` reads standard input",
			Value:       "git-change.log",
			Destination: &diffPath,
			Sources:     cli.EnvVars("BUMPRISK_DIFF"),
		},
		&cli.StringFlag{
			Name:        "rev",
			Usage:       "Read the diff of this revision from the repository instead of --diff",
			Destination: &rev,
			Sources:     cli.EnvVars("BUMPRISK_REV"),
		},
		&cli.BoolFlag{
			Name:        "skip-index",
			Usage:       "Reuse an already populated persistent vector store",
			Destination: &skipIndex,
			Sources:     cli.EnvVars("BUMPRISK_SKIP_INDEX"),
		},
		&cli.BoolFlag{
			Name:        "summary",
			Usage:       "Print a human readable summary to standard error",
			Destination: &summary,
			Sources:     cli.EnvVars("BUMPRISK_SUMMARY"),
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Write the verdict JSON to this file instead of standard output",
			Value:       "-",
			Destination: &output,
			Sources:     cli.EnvVars("BUMPRISK_OUTPUT"),
		},
	)

	return &cli.Command{
		Name:    "assess",
		Aliases: []string{"a"},
		Usage:   "Assess the risk of a dependency upgrade and print the verdict as JSON",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if skipIndex && !engineCfg.store.Persistent() {
				return goerr.New("--skip-index requires a persistent vector store", goerr.V("backend", engineCfg.store.Backend))
			}

			gitDiff, source, err := readDiff(ctx, diffPath, rev, engineCfg.repo.Dir)
			if err != nil {
				return err
			}

			e, err := engineCfg.newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if !skipIndex {
				if err := e.indexer.Index(ctx, usecase.DefaultSources(inputs.DependencyTree, inputs.Jdeps)); err != nil {
					return err
				}
			}

			assessment, err := e.pipeline.Assess(ctx, source, gitDiff)
			if err != nil {
				return err
			}

			if summary {
				printSummary(os.Stderr, assessment)
			}

			if err := writeVerdict(output, assessment.Verdict); err != nil {
				return err
			}

			logger.Info("Assessment completed", "id", assessment.ID, "risk_level", assessment.Verdict.RiskLevel)
			return nil
		},
	}
}

// readDiff returns the diff text and a source label for the assessment
func readDiff(ctx context.Context, diffPath, rev, repoDir string) (string, string, error) {
	if rev != "" {
		repo, err := git.OpenRepository(repoDir)
		if err != nil {
			return "", "", err
		}
		text, err := repo.Show(ctx, rev)
		if err != nil {
			return "", "", err
		}
		return text, "rev:" + rev, nil
	}

	if diffPath == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", goerr.Wrap(err, "failed to read diff from standard input")
		}
		return string(raw), "stdin", nil
	}

	raw, err := os.ReadFile(diffPath)
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to read diff", goerr.V("path", diffPath))
	}
	return string(raw), diffPath, nil
}

func writeVerdict(output string, verdict any) error {
	raw, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal verdict")
	}
	raw = append(raw, '\n')

	if output == "" || output == "-" {
		if _, err := os.Stdout.Write(raw); err != nil {
			return goerr.Wrap(err, "failed to write verdict")
		}
		return nil
	}

	if err := os.WriteFile(output, raw, 0644); err != nil {
		return goerr.Wrap(err, "failed to write verdict", goerr.V("path", output))
	}
	return nil
}
