package interfaces

import "context"

// GitRunner executes git commands inside a repository working tree
type GitRunner interface {
	// Run executes git with args and returns stdout. A non-zero exit is returned as an error carrying stderr.
	Run(ctx context.Context, args ...string) (string, error)
}

// Commit is a single commit in repository history
type Commit struct {
	Hash    string
	Author  string
	Message string
}

// History resolves repository history without a model in the loop
type History interface {
	// LastCommit returns the most recent commit that touched path
	LastCommit(ctx context.Context, path string) (*Commit, error)
	// Show returns `git show` style text for a revision
	Show(ctx context.Context, rev string) (string, error)
}
