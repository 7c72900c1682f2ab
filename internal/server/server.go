package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/pipeline-library/internal/core/ports"
)

// Options configures the HTTP server.
type Options struct {
	Port           int
	RequestTimeout time.Duration
	// Auth is applied to every route mounted through Protected. Nil
	// disables authentication.
	Auth ports.AuthProvider
}

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
	auth   ports.AuthProvider
	http   *http.Server
}

// New builds the router with the shared middleware chain.
func New(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(opts.RequestTimeout))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "pipeline-library")
	})

	return &Server{
		Router: r,
		Port:   opts.Port,
		logger: logger,
		auth:   opts.Auth,
	}
}

// Protected mounts h under pattern behind the auth middleware.
func (s *Server) Protected(pattern string, h http.Handler) {
	if s.auth != nil {
		h = AuthMiddleware(s.auth)(h)
	}
	s.Router.Mount(pattern, h)
}

// Start listens in the background. Listen errors other than a clean
// shutdown are logged.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP server listening", slog.Int("port", s.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
