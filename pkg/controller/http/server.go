package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/reelpull/pkg/domain/interfaces"
	"github.com/m-mizutani/reelpull/pkg/utils/async"
)

// config holds internal HTTP server configuration
type config struct {
	addr     string
	reporter interfaces.ErrorReporter
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithErrorReporter receives errors of background batches
func WithErrorReporter(r interfaces.ErrorReporter) Option {
	return func(c *config) {
		c.reporter = r
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
	api *SessionHandler
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	sessionUC interfaces.SessionUseCase,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr: "localhost:8080",
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	var onError func(ctx context.Context, err error)
	if cfg.reporter != nil {
		onError = cfg.reporter.Report
	}
	api := NewSessionHandler(sessionUC, async.NewGroup(onError))

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth(sessionUC))

	router.Route("/api", func(r chi.Router) {
		r.Get("/session", api.GetSession)
		r.Post("/fetch", api.Fetch)
		r.Post("/download-all", api.DownloadAll)
		r.Post("/download/{id}", api.DownloadOne)
		r.Post("/download-single", api.DownloadSingle)
		r.Post("/cancel", api.Cancel)
	})

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		api: api,
	}

	return server, nil
}

// Wait blocks until batches started through the API have finished
func (s *Server) Wait() {
	s.api.Wait()
}
