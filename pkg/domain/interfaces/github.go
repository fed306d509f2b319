package interfaces

import (
	"context"
)

// GitHubClient defines operations for interacting with GitHub API
type GitHubClient interface {
	// GetPullRequestDiff returns the unified diff of a pull request
	GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error)

	// CreateComment creates a comment on a pull request or issue
	CreateComment(ctx context.Context, owner, repo string, number int, body string) error
}
