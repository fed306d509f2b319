package config

import (
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Repository points at the working copy used for commit enrichment and `--rev` diffs
type Repository struct {
	Dir        string
	EnrichMode string
}

// Flags returns CLI flags for repository configuration
func (c *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repo",
			Usage:       "Path to the git working copy of the assessed project",
			Value:       ".",
			Destination: &c.Dir,
			Sources:     cli.EnvVars("BUMPRISK_REPO"),
		},
		&cli.StringFlag{
			Name:        "enrich",
			Usage:       "Commit enrichment mode (agent, direct, none)",
			Value:       string(types.EnrichModeAgent),
			Destination: &c.EnrichMode,
			Sources:     cli.EnvVars("BUMPRISK_ENRICH"),
		},
	}
}

// Mode returns the validated enrichment mode
func (c *Repository) Mode() (types.EnrichMode, error) {
	mode := types.EnrichMode(c.EnrichMode)
	if !mode.Validate() {
		return "", goerr.New("invalid enrich mode", goerr.V("mode", c.EnrichMode))
	}
	return mode, nil
}

// Inputs are the log files produced by the build tooling
type Inputs struct {
	DependencyTree string
	Jdeps          string
}

// Flags returns CLI flags for the indexed log files
func (c *Inputs) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "dependency-tree",
			Usage:       "Output of `gradle dependencies` or `mvn dependency:tree`",
			Value:       "dependency-tree.log",
			Destination: &c.DependencyTree,
			Sources:     cli.EnvVars("BUMPRISK_DEPENDENCY_TREE"),
		},
		&cli.StringFlag{
			Name:        "jdeps",
			Usage:       "Output of `jdeps -v`",
			Value:       "jdeps-output.log",
			Destination: &c.Jdeps,
			Sources:     cli.EnvVars("BUMPRISK_JDEPS"),
		},
	}
}
