package interfaces

import (
	"context"

	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
)

// Embedder turns texts into embedding vectors. The i-th vector belongs to the i-th text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is a similarity-searchable chunk index with one namespace per collection.
// Inserting is additive: there is no update or delete path.
type VectorStore interface {
	Insert(ctx context.Context, collection types.CollectionName, chunks []*model.Chunk) error
	Search(ctx context.Context, collection types.CollectionName, embedding []float32, k int) ([]*model.ScoredChunk, error)
}
