package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/bumprisk/pkg/agent"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
	"github.com/m-mizutani/bumprisk/pkg/infra/git"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultSearchK = 5

	// MaxReadFileSize is the largest file content handed to a model in one observation
	MaxReadFileSize = 256 * 1024

	ToolSearchDependencyTree       = "search_dependency_tree"
	ToolSearchClassLevelDependency = "search_class_level_dependency"
	ToolReadFile                   = "read_file"
	ToolRunGitCommand              = "run_git_command"
)

var ErrPathOutsideRepository = goerr.New("path is outside of the repository")

type searchTool struct {
	name        string
	description string
	collection  types.CollectionName
	embedder    interfaces.Embedder
	store       interfaces.VectorStore
	k           int
}

// NewSearchDependencyTreeTool searches indexed `gradle dependencies` / `mvn dependency:tree` output
func NewSearchDependencyTreeTool(embedder interfaces.Embedder, store interfaces.VectorStore, k int) interfaces.Tool {
	return newSearchTool(ToolSearchDependencyTree,
		"Search the output from the `gradle dependencyTree` or `mvn dependency:tree` command, which outlines the hierarchical structure of all dependencies in the project.",
		types.CollectionDependencyTree, embedder, store, k)
}

// NewSearchClassLevelDependencyTool searches indexed `jdeps -v` output
func NewSearchClassLevelDependencyTool(embedder interfaces.Embedder, store interfaces.VectorStore, k int) interfaces.Tool {
	return newSearchTool(ToolSearchClassLevelDependency,
		"Search output from `jdeps -v example.jar`, which provides detailed information about the dependencies used by the project.",
		types.CollectionClassDependency, embedder, store, k)
}

func newSearchTool(name, description string, collection types.CollectionName, embedder interfaces.Embedder, store interfaces.VectorStore, k int) *searchTool {
	if k <= 0 {
		k = DefaultSearchK
	}
	return &searchTool{
		name:        name,
		description: description,
		collection:  collection,
		embedder:    embedder,
		store:       store,
		k:           k,
	}
}

func (x *searchTool) Name() string        { return x.name }
func (x *searchTool) Description() string { return x.description }

// Run returns the contents of the k nearest chunks joined by a blank line
func (x *searchTool) Run(ctx context.Context, input json.RawMessage) (string, error) {
	query := agent.InputString(input, "query", "text", "input")
	if strings.TrimSpace(query) == "" {
		return "", goerr.New("search query is empty")
	}

	vectors, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", goerr.Wrap(err, "failed to embed query", goerr.V("tool", x.name))
	}
	if len(vectors) != 1 {
		return "", goerr.New("unexpected embedding count", goerr.V("count", len(vectors)))
	}

	results, err := x.store.Search(ctx, x.collection, vectors[0], x.k)
	if err != nil {
		return "", goerr.Wrap(err, "failed to search index", goerr.V("tool", x.name))
	}

	contents := make([]string, len(results))
	for i, r := range results {
		contents[i] = r.Content
	}

	ctxlog.From(ctx).Debug("Search finished", "tool", x.name, "query", query, "hits", len(results))
	return strings.Join(contents, "\n\n"), nil
}

type readFileTool struct {
	root string
}

// NewReadFileTool reads files below root
func NewReadFileTool(root string) interfaces.Tool {
	return &readFileTool{root: root}
}

func (x *readFileTool) Name() string { return ToolReadFile }
func (x *readFileTool) Description() string {
	return "Read a file of the repository. Input is the repository-relative path, e.g. src/main/java/com/example/App.java."
}

func (x *readFileTool) Run(ctx context.Context, input json.RawMessage) (string, error) {
	rel := agent.InputString(input, "path", "file", "file_path")
	full, err := resolveInRoot(x.root, rel)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read file", goerr.V("path", rel))
	}

	if len(data) > MaxReadFileSize {
		cut := MaxReadFileSize
		for cut > 0 && !utf8.RuneStart(data[cut]) {
			cut--
		}
		return string(data[:cut]) +
			fmt.Sprintf("\n... [truncated %d bytes]", len(data)-cut), nil
	}
	return string(data), nil
}

// resolveInRoot joins rel to root and rejects paths that leave root, including through
// symlinks committed in the repository
func resolveInRoot(root, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", goerr.New("file path is empty")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve repository root", goerr.V("root", root))
	}
	if absRoot, err = filepath.EvalSymlinks(absRoot); err != nil {
		return "", goerr.Wrap(err, "failed to resolve repository root", goerr.V("root", root))
	}

	var full string
	if filepath.IsAbs(rel) {
		full = filepath.Clean(rel)
	} else {
		full = filepath.Join(absRoot, rel)
	}
	if !isWithin(absRoot, full) {
		return "", goerr.Wrap(ErrPathOutsideRepository, "refused to read file", goerr.V("path", rel))
	}

	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read file", goerr.V("path", rel))
	}
	if !isWithin(absRoot, resolved) {
		return "", goerr.Wrap(ErrPathOutsideRepository, "refused to follow symlink", goerr.V("path", rel))
	}
	return resolved, nil
}

func isWithin(root, path string) bool {
	within, err := filepath.Rel(root, path)
	return err == nil && within != ".." && !strings.HasPrefix(within, ".."+string(filepath.Separator))
}

type gitCommandTool struct {
	runner interfaces.GitRunner
}

// NewGitCommandTool runs git commands through runner
func NewGitCommandTool(runner interfaces.GitRunner) interfaces.Tool {
	return &gitCommandTool{runner: runner}
}

func (x *gitCommandTool) Name() string { return ToolRunGitCommand }
func (x *gitCommandTool) Description() string {
	return "Run a git command inside the repository and return its output. Input is the command line, the leading `git` is optional, e.g. `log -n 1 --format=%h -- src/main/java/App.java`."
}

func (x *gitCommandTool) Run(ctx context.Context, input json.RawMessage) (string, error) {
	args, err := git.ParseCommand(agent.InputString(input, "command", "cmd", "args"))
	if err != nil {
		return "", err
	}
	return x.runner.Run(ctx, args...)
}
