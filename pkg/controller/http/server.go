package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
)

// config holds internal HTTP server configuration
type config struct {
	addr          string
	webhookSecret string
	vectorStore   string
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithWebhookSecret sets the webhook secret
func WithWebhookSecret(secret string) Option {
	return func(c *config) {
		c.webhookSecret = secret
	}
}

// WithVectorStoreName sets the backend name reported by /health
func WithVectorStoreName(name string) Option {
	return func(c *config) {
		c.vectorStore = name
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server. The GitHub webhook route is mounted only when webhookUC
// is not nil.
func NewServer(
	ctx context.Context,
	webhookUC interfaces.WebhookUseCase,
	assessUC interfaces.AssessmentUseCase,
	opts ...Option,
) (*Server, error) {
	cfg := &config{
		addr: "localhost:8080",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(RecoverMiddleware)

	router.Get("/health", healthHandler(cfg.vectorStore))

	router.Post("/api/assessments", NewAssessHandler(assessUC).Handle)

	if webhookUC != nil {
		webhookHandler := NewWebhookHandler(cfg.webhookSecret, webhookUC)
		router.Post("/hooks/github/app", webhookHandler.Handle)
	}

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
