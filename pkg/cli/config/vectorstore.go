package config

import (
	"context"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/infra/vectorstore"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	BackendMemory   = "memory"
	BackendPGVector = "pgvector"
	BackendWeaviate = "weaviate"
)

// VectorStore selects the chunk index. memory lives only as long as the process.
type VectorStore struct {
	Backend        string
	PostgresDSN    string `masq:"secret"`
	PostgresTable  string
	WeaviateScheme string
	WeaviateHost   string
}

// Flags returns CLI flags for vector store configuration
func (c *VectorStore) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vector-store",
			Usage:       "Vector store backend (memory, pgvector, weaviate)",
			Value:       BackendMemory,
			Destination: &c.Backend,
			Sources:     cli.EnvVars("BUMPRISK_VECTOR_STORE"),
		},
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "PostgreSQL DSN for the pgvector backend",
			Destination: &c.PostgresDSN,
			Sources:     cli.EnvVars("BUMPRISK_POSTGRES_DSN"),
		},
		&cli.StringFlag{
			Name:        "postgres-table",
			Usage:       "Chunk table for the pgvector backend",
			Value:       vectorstore.DefaultPGTable,
			Destination: &c.PostgresTable,
			Sources:     cli.EnvVars("BUMPRISK_POSTGRES_TABLE"),
		},
		&cli.StringFlag{
			Name:        "weaviate-scheme",
			Usage:       "Scheme of the Weaviate server",
			Value:       "http",
			Destination: &c.WeaviateScheme,
			Sources:     cli.EnvVars("BUMPRISK_WEAVIATE_SCHEME"),
		},
		&cli.StringFlag{
			Name:        "weaviate-host",
			Usage:       "Host (and port) of the Weaviate server",
			Destination: &c.WeaviateHost,
			Sources:     cli.EnvVars("BUMPRISK_WEAVIATE_HOST"),
		},
	}
}

// Persistent reports whether the backend outlives the process
func (c *VectorStore) Persistent() bool {
	return c.Backend != BackendMemory
}

// New opens the configured store. The returned close function is never nil.
func (c *VectorStore) New(ctx context.Context) (interfaces.VectorStore, func(), error) {
	switch c.Backend {
	case BackendMemory:
		return vectorstore.NewMemory(), func() {}, nil

	case BackendPGVector:
		if c.PostgresDSN == "" {
			return nil, nil, goerr.New("postgres-dsn is required for pgvector")
		}
		store, err := vectorstore.NewPGVector(ctx, c.PostgresDSN, c.PostgresTable)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				ctxlog.From(ctx).Warn("Failed to close pgvector store", "error", err)
			}
		}, nil

	case BackendWeaviate:
		if c.WeaviateHost == "" {
			return nil, nil, goerr.New("weaviate-host is required for weaviate")
		}
		store, err := vectorstore.NewWeaviate(c.WeaviateScheme, c.WeaviateHost)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	default:
		return nil, nil, goerr.New("unsupported vector store", goerr.V("backend", c.Backend))
	}
}
