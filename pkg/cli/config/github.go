package config

import (
	"os"
	"strings"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/infra/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub App configuration. The webhook route is enabled only when all of
// the app settings and the repository are given.
type GitHub struct {
	Repository     string
	WebhookSecret  string `masq:"secret"`
	AppID          int64
	InstallationID int64
	PrivateKey     string `masq:"secret"`
	PrivateKeyFile string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-repository",
			Usage:       "owner/repo of the checkout given by --repo; pull requests of other repositories are ignored",
			Destination: &c.Repository,
			Sources:     cli.EnvVars("BUMPRISK_GITHUB_REPOSITORY"),
		},
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret",
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("BUMPRISK_GITHUB_WEBHOOK_SECRET"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("BUMPRISK_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("BUMPRISK_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "GitHub App private key in PEM",
			Destination: &c.PrivateKey,
			Sources:     cli.EnvVars("BUMPRISK_GITHUB_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-private-key-file",
			Usage:       "Path to the GitHub App private key",
			Destination: &c.PrivateKeyFile,
			Sources:     cli.EnvVars("BUMPRISK_GITHUB_PRIVATE_KEY_FILE"),
		},
	}
}

// Enabled reports whether the GitHub App integration is configured
func (c *GitHub) Enabled() bool {
	return c.Repository != "" && c.WebhookSecret != "" && c.AppID != 0 && c.InstallationID != 0 &&
		(c.PrivateKey != "" || c.PrivateKeyFile != "")
}

// RepositoryName validates Repository as owner/repo
func (c *GitHub) RepositoryName() (string, error) {
	owner, repo, ok := strings.Cut(c.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", goerr.New("github repository must be owner/repo", goerr.V("repository", c.Repository))
	}
	return c.Repository, nil
}

// NewClient creates an installation-authenticated GitHub client
func (c *GitHub) NewClient() (interfaces.GitHubClient, error) {
	if !c.Enabled() {
		return nil, goerr.New("GitHub App is not configured")
	}

	key := []byte(c.PrivateKey)
	if len(key) == 0 {
		raw, err := os.ReadFile(c.PrivateKeyFile)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read GitHub App private key", goerr.V("path", c.PrivateKeyFile))
		}
		key = raw
	}

	return github.NewClient(c.AppID, c.InstallationID, key)
}
