package vectorstore_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
	"github.com/m-mizutani/bumprisk/pkg/infra/vectorstore"
	"github.com/m-mizutani/gt"
)

func TestMemory_Search(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemory()

	gt.NoError(t, store.Insert(ctx, types.CollectionDependencyTree, []*model.Chunk{
		{Content: "x-axis", Embedding: []float32{1, 0}},
		{Content: "y-axis", Embedding: []float32{0, 1}},
		{Content: "diagonal", Embedding: []float32{1, 1}},
	}))

	results, err := store.Search(ctx, types.CollectionDependencyTree, []float32{1, 0.1}, 2)
	gt.NoError(t, err)
	gt.Equal(t, len(results), 2)
	gt.Equal(t, results[0].Content, "x-axis")
	gt.Equal(t, results[1].Content, "diagonal")
	gt.Equal(t, results[0].Collection, types.CollectionDependencyTree)
}

func TestMemory_CollectionsAreSeparate(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemory()

	gt.NoError(t, store.Insert(ctx, types.CollectionDependencyTree, []*model.Chunk{
		{Content: "tree", Embedding: []float32{1, 0}},
	}))

	results, err := store.Search(ctx, types.CollectionClassDependency, []float32{1, 0}, 5)
	gt.NoError(t, err)
	gt.Equal(t, len(results), 0)
}

func TestMemory_InsertIsAdditive(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemory()

	for range 2 {
		gt.NoError(t, store.Insert(ctx, types.CollectionDependencyTree, []*model.Chunk{
			{Content: "same", Embedding: []float32{1, 0}},
		}))
	}

	results, err := store.Search(ctx, types.CollectionDependencyTree, []float32{1, 0}, 5)
	gt.NoError(t, err)
	gt.Equal(t, len(results), 2)
}

func TestMemory_InsertCopiesEmbedding(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemory()

	vec := []float32{1, 0}
	gt.NoError(t, store.Insert(ctx, types.CollectionDependencyTree, []*model.Chunk{{Content: "a", Embedding: vec}}))
	vec[0], vec[1] = 0, 1

	results, err := store.Search(ctx, types.CollectionDependencyTree, []float32{1, 0}, 1)
	gt.NoError(t, err)
	gt.Equal(t, results[0].Embedding, []float32{1, 0})
}

func TestMemory_Errors(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemory()

	gt.Error(t, store.Insert(ctx, types.CollectionDependencyTree, []*model.Chunk{{Content: "no vector"}}))

	gt.NoError(t, store.Insert(ctx, types.CollectionDependencyTree, []*model.Chunk{
		{Content: "a", Embedding: []float32{1, 0, 0}},
	}))
	_, err := store.Search(ctx, types.CollectionDependencyTree, []float32{1, 0}, 5)
	gt.Error(t, err)
}
