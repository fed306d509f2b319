package vectorstore

import (
	"context"
	"strings"
	"unicode"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const batchSize = 100

// chunkNamespace seeds deterministic object ids, so re-indexing the same chunk does not duplicate it
var chunkNamespace = uuid.MustParse("5b0f6a3e-2d1c-4f0e-9a57-6c1f3e2b8d41")

// Weaviate stores each collection as a Weaviate class with externally supplied vectors
type Weaviate struct {
	client *weaviate.Client
}

// NewWeaviate connects to a Weaviate server, e.g. scheme "http" and host "localhost:8080"
func NewWeaviate(scheme, host string) (*Weaviate, error) {
	client, err := weaviate.NewClient(weaviate.Config{Scheme: scheme, Host: host})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create weaviate client", goerr.V("host", host))
	}
	return &Weaviate{client: client}, nil
}

// ClassName maps a collection name to a valid Weaviate class name,
// e.g. "risk-evaluation-dependency-tree" -> "RiskEvaluationDependencyTree"
func ClassName(collection types.CollectionName) string {
	var b strings.Builder
	upper := true
	for _, r := range collection.String() {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (x *Weaviate) ensureClass(ctx context.Context, className string) error {
	if _, err := x.client.Schema().ClassGetter().WithClassName(className).Do(ctx); err == nil {
		return nil
	}

	class := &models.Class{
		Class:       className,
		Description: "Indexed chunks of build tool output",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "Chunk text",
				Tokenization: "word",
			},
		},
	}
	if err := x.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return goerr.Wrap(err, "failed to create weaviate class", goerr.V("class", className))
	}

	ctxlog.From(ctx).Info("Created weaviate class", "class", className)
	return nil
}

func (x *Weaviate) Insert(ctx context.Context, collection types.CollectionName, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	className := ClassName(collection)
	if err := x.ensureClass(ctx, className); err != nil {
		return err
	}

	objects := make([]*models.Object, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return goerr.New("chunk has no embedding", goerr.V("collection", collection), goerr.V("index", i))
		}
		id := uuid.NewSHA1(chunkNamespace, []byte(collection.String()+"\x00"+c.Content))
		objects[i] = &models.Object{
			Class:      className,
			ID:         strfmt.UUID(id.String()),
			Properties: map[string]interface{}{"content": c.Content},
			Vector:     models.C11yVector(c.Embedding),
		}
	}

	for start := 0; start < len(objects); start += batchSize {
		end := min(start+batchSize, len(objects))

		result, err := x.client.Batch().ObjectsBatcher().WithObjects(objects[start:end]...).Do(ctx)
		if err != nil {
			return goerr.Wrap(err, "failed to insert weaviate objects", goerr.V("class", className))
		}
		for _, obj := range result {
			if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
				return goerr.New("weaviate rejected object",
					goerr.V("class", className),
					goerr.V("error", obj.Result.Errors.Error[0].Message),
				)
			}
		}
	}

	return nil
}

func (x *Weaviate) Search(ctx context.Context, collection types.CollectionName, embedding []float32, k int) ([]*model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	className := ClassName(collection)
	nearVector := x.client.GraphQL().NearVectorArgBuilder().WithVector(embedding)

	result, err := x.client.GraphQL().Get().
		WithClassName(className).
		WithFields(
			graphql.Field{Name: "content"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
		).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search weaviate", goerr.V("class", className))
	}
	if len(result.Errors) > 0 {
		// a class that was never created has no chunks
		if strings.Contains(result.Errors[0].Message, "Cannot query field") {
			return nil, nil
		}
		return nil, goerr.New("weaviate search returned errors",
			goerr.V("class", className),
			goerr.V("error", result.Errors[0].Message),
		)
	}

	return parseSearchResult(result.Data, collection)
}

func parseSearchResult(data map[string]models.JSONObject, collection types.CollectionName) ([]*model.ScoredChunk, error) {
	className := ClassName(collection)

	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, goerr.New("unexpected weaviate response: no Get field")
	}
	items, ok := get[className].([]interface{})
	if !ok {
		return nil, nil
	}

	results := make([]*model.ScoredChunk, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		content, _ := obj["content"].(string)

		var score float32
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				score = float32(certainty)
			}
		}

		results = append(results, &model.ScoredChunk{
			Chunk: model.Chunk{Content: content, Collection: collection},
			Score: score,
		})
	}
	return results, nil
}

var _ interfaces.VectorStore = &Weaviate{}
