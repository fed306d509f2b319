package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Memory is a process-lifetime vector store using brute force cosine similarity
type Memory struct {
	mu     sync.RWMutex
	chunks map[types.CollectionName][]model.Chunk
}

func NewMemory() *Memory {
	return &Memory{chunks: make(map[types.CollectionName][]model.Chunk)}
}

func (x *Memory) Insert(ctx context.Context, collection types.CollectionName, chunks []*model.Chunk) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return goerr.New("chunk has no embedding", goerr.V("collection", collection), goerr.V("index", i))
		}
		x.chunks[collection] = append(x.chunks[collection], model.Chunk{
			Content:    c.Content,
			Collection: collection,
			Embedding:  append([]float32(nil), c.Embedding...),
		})
	}
	return nil
}

// Search returns at most k chunks ordered by descending similarity; ties keep insertion order
func (x *Memory) Search(ctx context.Context, collection types.CollectionName, embedding []float32, k int) ([]*model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	stored := x.chunks[collection]
	scored := make([]*model.ScoredChunk, 0, len(stored))
	for _, c := range stored {
		if len(c.Embedding) != len(embedding) {
			return nil, goerr.New("embedding dimension mismatch",
				goerr.V("collection", collection),
				goerr.V("stored", len(c.Embedding)),
				goerr.V("query", len(embedding)),
			)
		}
		scored = append(scored, &model.ScoredChunk{Chunk: c, Score: cosine(c.Embedding, embedding)})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ interfaces.VectorStore = &Memory{}
