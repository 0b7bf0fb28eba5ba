package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
)

// WebhookPath is where GitHub delivers issue_comment webhooks
const WebhookPath = "/hooks/github"

type config struct {
	addr          string
	webhookSecret string
	queue         QueueMonitor
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithWebhookSecret sets the secret webhook signatures are verified with
func WithWebhookSecret(secret string) Option {
	return func(c *config) {
		c.webhookSecret = secret
	}
}

// WithQueue makes /health report the state of the release run queue
func WithQueue(q QueueMonitor) Option {
	return func(c *config) {
		c.queue = q
	}
}

// Server receives release webhooks
type Server struct {
	*http.Server
}

// NewServer creates the HTTP server. Webhooks are only accepted, never run,
// on the request goroutine; webhookUC decides whether a run is queued.
func NewServer(
	ctx context.Context,
	webhookUC interfaces.WebhookUseCase,
	opts ...Option,
) (*Server, error) {
	cfg := &config{
		addr: "localhost:8080",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(DeliveryID)
	router.Use(RequestLogger(ctx))
	router.Use(middleware.Recoverer)

	router.Method(http.MethodGet, "/health", &healthHandler{queue: cfg.queue})

	webhookHandler := NewWebhookHandler(cfg.webhookSecret, webhookUC)
	router.Post(WebhookPath, webhookHandler.Handle)

	return &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}, nil
}
