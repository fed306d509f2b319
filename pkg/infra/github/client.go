package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

type client struct {
	githubClient *github.Client
}

// NewClient creates a new GitHub client with App authentication
func NewClient(appID, installationID int64, privateKey []byte) (interfaces.GitHubClient, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport",
			goerr.V("app_id", appID),
			goerr.V("installation_id", installationID),
		)
	}

	return &client{
		githubClient: github.NewClient(&http.Client{Transport: itr}),
	}, nil
}

// NewClientWithHTTP creates a client on top of an arbitrary HTTP client and API base URL,
// e.g. a GitHub Enterprise server or a test server. Empty baseURL keeps api.github.com.
func NewClientWithHTTP(httpClient *http.Client, baseURL string) (interfaces.GitHubClient, error) {
	ghClient := github.NewClient(httpClient)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid GitHub API base URL", goerr.V("base_url", baseURL))
		}
		ghClient.BaseURL = u
	}
	return &client{githubClient: ghClient}, nil
}

// GetPullRequestDiff fetches the unified diff of a pull request
func (c *client) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	diff, _, err := c.githubClient.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", goerr.Wrap(err, "failed to get pull request diff",
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("number", number),
		)
	}
	return diff, nil
}

// CreateComment posts a comment on a pull request
func (c *client) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	_, _, err := c.githubClient.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to create comment",
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("number", number),
		)
	}
	return nil
}
