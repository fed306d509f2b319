package vectorstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pgvector/pgvector-go"
)

const DefaultPGTable = "bumprisk_chunks"

// PGVector stores chunks in PostgreSQL with the pgvector extension
type PGVector struct {
	db    *sql.DB
	table string
}

// NewPGVector connects to dsn and prepares the chunk table
func NewPGVector(ctx context.Context, dsn, table string) (*PGVector, error) {
	if table == "" {
		table = DefaultPGTable
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres connection")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to connect to postgres")
	}

	store := &PGVector{db: db, table: pq.QuoteIdentifier(table)}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	ctxlog.From(ctx).Info("Connected to pgvector store", "table", table)
	return store, nil
}

func (x *PGVector) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			collection TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, x.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (collection)`,
			pq.QuoteIdentifier(unquote(x.table)+"_collection_idx"), x.table),
	}

	for _, stmt := range statements {
		if _, err := x.db.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to migrate pgvector schema", goerr.V("statement", stmt))
		}
	}
	return nil
}

func (x *PGVector) Insert(ctx context.Context, collection types.CollectionName, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (collection, content, embedding) VALUES ($1, $2, $3)`, x.table))
	if err != nil {
		return goerr.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return goerr.New("chunk has no embedding", goerr.V("collection", collection), goerr.V("index", i))
		}
		if _, err := stmt.ExecContext(ctx, collection.String(), c.Content, pgvector.NewVector(c.Embedding)); err != nil {
			return goerr.Wrap(err, "failed to insert chunk", goerr.V("collection", collection), goerr.V("index", i))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit chunks", goerr.V("collection", collection))
	}
	return nil
}

// Search orders by cosine distance; Score is the cosine similarity
func (x *PGVector) Search(ctx context.Context, collection types.CollectionName, embedding []float32, k int) ([]*model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT content, embedding, 1 - (embedding <=> $1) AS score
		FROM %s WHERE collection = $2 ORDER BY embedding <=> $1, id LIMIT $3`, x.table)

	rows, err := x.db.QueryContext(ctx, query, pgvector.NewVector(embedding), collection.String(), k)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search chunks", goerr.V("collection", collection))
	}
	defer rows.Close()

	var results []*model.ScoredChunk
	for rows.Next() {
		var (
			content string
			vec     pgvector.Vector
			score   float64
		)
		if err := rows.Scan(&content, &vec, &score); err != nil {
			return nil, goerr.Wrap(err, "failed to scan chunk")
		}
		results = append(results, &model.ScoredChunk{
			Chunk: model.Chunk{
				Content:    content,
				Collection: collection,
				Embedding:  vec.Slice(),
			},
			Score: float32(score),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate chunks")
	}

	return results, nil
}

func (x *PGVector) Close() error {
	return x.db.Close()
}

func unquote(ident string) string {
	if len(ident) >= 2 && ident[0] == '"' && ident[len(ident)-1] == '"' {
		return ident[1 : len(ident)-1]
	}
	return ident
}

var _ interfaces.VectorStore = &PGVector{}
