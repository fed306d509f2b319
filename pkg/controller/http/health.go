package http

import (
	"net/http"

	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
)

// healthHandler reports liveness together with the configured vector store backend
func healthHandler(vectorStore string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, &model.HealthStatus{
			Status:      "healthy",
			Service:     "bumprisk",
			Version:     types.Version,
			VectorStore: vectorStore,
		})
	}
}
