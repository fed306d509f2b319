package usecase

import (
	"context"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tmc/langchaingo/textsplitter"
)

// SplitSpec configures how one log file is chunked
type SplitSpec struct {
	Separator    string
	ChunkSize    int
	ChunkOverlap int
}

var (
	// DependencyTreeSplit keeps each dependency configuration block of the tree output together
	DependencyTreeSplit = SplitSpec{Separator: "\n\n", ChunkSize: 20000, ChunkOverlap: 50}
	// ClassDependencySplit chunks jdeps output by lines into small pieces
	ClassDependencySplit = SplitSpec{Separator: "\n", ChunkSize: 400, ChunkOverlap: 50}
)

// IndexSource is one log file and the collection it is indexed into
type IndexSource struct {
	Collection types.CollectionName
	Path       string
	Split      SplitSpec
}

// DefaultSources returns the dependency tree and jdeps sources with their split settings
func DefaultSources(dependencyTreePath, jdepsPath string) []IndexSource {
	return []IndexSource{
		{Collection: types.CollectionDependencyTree, Path: dependencyTreePath, Split: DependencyTreeSplit},
		{Collection: types.CollectionClassDependency, Path: jdepsPath, Split: ClassDependencySplit},
	}
}

// Split chunks text deterministically
func Split(text string, split SplitSpec) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators([]string{split.Separator}),
		textsplitter.WithChunkSize(split.ChunkSize),
		textsplitter.WithChunkOverlap(split.ChunkOverlap),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)

	chunks, err := splitter.SplitText(text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to split text", goerr.V("chunk_size", split.ChunkSize))
	}

	result := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			result = append(result, c)
		}
	}
	return result, nil
}

// Indexer chunks log files, embeds the chunks and stores them
type Indexer struct {
	embedder interfaces.Embedder
	store    interfaces.VectorStore
}

func NewIndexer(embedder interfaces.Embedder, store interfaces.VectorStore) *Indexer {
	return &Indexer{embedder: embedder, store: store}
}

// Index loads every source. A missing file is an error.
func (x *Indexer) Index(ctx context.Context, sources []IndexSource) error {
	for _, src := range sources {
		if _, err := x.IndexFile(ctx, src); err != nil {
			return err
		}
	}
	return nil
}

// IndexFile indexes one file and returns the number of stored chunks
func (x *Indexer) IndexFile(ctx context.Context, src IndexSource) (int, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to read log file",
			goerr.V("path", src.Path),
			goerr.V("collection", src.Collection),
		)
	}

	n, err := x.IndexText(ctx, src.Collection, string(data), src.Split)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to index log file", goerr.V("path", src.Path))
	}
	return n, nil
}

// IndexText chunks, embeds and stores text into collection
func (x *Indexer) IndexText(ctx context.Context, collection types.CollectionName, text string, split SplitSpec) (int, error) {
	logger := ctxlog.From(ctx)

	texts, err := Split(text, split)
	if err != nil {
		return 0, err
	}
	if len(texts) == 0 {
		logger.Warn("Nothing to index", "collection", collection)
		return 0, nil
	}

	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to embed chunks", goerr.V("collection", collection))
	}
	if len(vectors) != len(texts) {
		return 0, goerr.New("embedding count mismatch",
			goerr.V("collection", collection),
			goerr.V("chunks", len(texts)),
			goerr.V("vectors", len(vectors)),
		)
	}

	chunks := make([]*model.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = &model.Chunk{Content: t, Collection: collection, Embedding: vectors[i]}
	}

	if err := x.store.Insert(ctx, collection, chunks); err != nil {
		return 0, goerr.Wrap(err, "failed to store chunks", goerr.V("collection", collection))
	}

	logger.Info("Indexed chunks", "collection", collection, "chunks", len(chunks))
	return len(chunks), nil
}
