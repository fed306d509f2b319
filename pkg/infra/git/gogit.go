package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

const shortHashLen = 7

var ErrNoCommit = goerr.New("no commit touches the path")

// Repository reads history of a local repository with go-git
type Repository struct {
	repo *gogit.Repository
}

// OpenRepository opens the repository containing dir
func OpenRepository(dir string) (*Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open git repository", goerr.V("dir", dir))
	}
	return &Repository{repo: repo}, nil
}

func (x *Repository) LastCommit(ctx context.Context, path string) (*interfaces.Commit, error) {
	path = strings.TrimPrefix(path, "./")

	iter, err := x.repo.Log(&gogit.LogOptions{FileName: &path})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read git log", goerr.V("path", path))
	}
	defer iter.Close()

	commit, err := iter.Next()
	if errors.Is(err, io.EOF) {
		return nil, goerr.Wrap(ErrNoCommit, "no history for path", goerr.V("path", path))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to iterate git log", goerr.V("path", path))
	}

	return &interfaces.Commit{
		Hash:    commit.Hash.String()[:shortHashLen],
		Author:  commit.Author.Name,
		Message: strings.TrimSpace(commit.Message),
	}, nil
}

// Show renders a revision like `git show`: header, message and the patch against its first parent
func (x *Repository) Show(ctx context.Context, rev string) (string, error) {
	hash, err := x.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve revision", goerr.V("rev", rev))
	}
	commit, err := x.repo.CommitObject(*hash)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read commit", goerr.V("rev", rev))
	}

	patch, err := firstParentPatch(ctx, commit)
	if err != nil {
		return "", goerr.Wrap(err, "failed to compute patch", goerr.V("rev", rev))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "commit %s\n", commit.Hash)
	fmt.Fprintf(&b, "Author: %s <%s>\n", commit.Author.Name, commit.Author.Email)
	fmt.Fprintf(&b, "Date:   %s\n\n", commit.Author.When.Format("Mon Jan 2 15:04:05 2006 -0700"))
	for _, line := range strings.Split(strings.TrimRight(commit.Message, "\n"), "\n") {
		b.WriteString("    " + line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(patch.String())

	return b.String(), nil
}

func firstParentPatch(ctx context.Context, commit *object.Commit) (*object.Patch, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, err
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, err
	}
	return changes.PatchContext(ctx)
}

var _ interfaces.History = &Repository{}
