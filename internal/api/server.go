// Package api exposes the conversion pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/har2csv/internal/pipeline"
)

// DefaultPreviewLimit is the number of rows returned by the preview endpoint
// when no limit is given.
const DefaultPreviewLimit = 1000

// Options configures a Server.
type Options struct {
	Port           int
	Marker         string
	MaxUploadBytes int64
	Gatherer       prometheus.Gatherer // nil uses the default registry
}

type Server struct {
	router *chi.Mux
	http   *http.Server
	opts   Options
	runner *pipeline.Runner
	logger *slog.Logger
	now    func() time.Time
}

func NewServer(opts Options, runner *pipeline.Runner, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		opts:   opts,
		runner: runner,
		logger: logger,
		now:    time.Now,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsHandler := promhttp.Handler()
	if opts.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/har2csv/status", s.status)
	router.Post("/api/v1/convert", s.convert)
	router.Post("/api/v1/preview", s.preview)
	router.Method(http.MethodGet, "/metrics", metricsHandler)

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "har2csv",
		"status":  "ok",
		"marker":  s.opts.Marker,
	})
}
