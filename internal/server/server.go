// Package server provides the HTTP API for essay scoring.
package server

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/hyperjump/essayscore/internal/config"
	"github.com/hyperjump/essayscore/internal/metrics"
	"github.com/hyperjump/essayscore/internal/models"
	"github.com/hyperjump/essayscore/internal/modelres"
	"go.uber.org/zap"
)

// Scorer scores answers. It is implemented by scoring.Coordinator.
type Scorer interface {
	ScoreOne(ctx context.Context, req models.ScoringRequest) (models.ScoringResult, error)
	ScoreBatch(ctx context.Context, reqs []models.ScoringRequest) (*models.BatchResult, error)
}

// ModelStatus reports the state of the shared model. It is implemented by
// modelres.Manager.
type ModelStatus interface {
	State() modelres.State
	Source() modelres.Source
	ModelID() string
}

// Server is the HTTP server for the scoring API.
type Server struct {
	scorer   Scorer
	models   ModelStatus
	config   *config.ServerConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
	debug    bool
	dirs     map[modelres.Source]string
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithDebug includes internal error text in 500 responses.
func WithDebug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// WithModelDirs lets /health report the disk usage of the loaded model.
func WithModelDirs(primary, fallback string) Option {
	return func(s *Server) {
		s.dirs[modelres.SourcePrimary] = primary
		s.dirs[modelres.SourceFallback] = fallback
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(scorer Scorer, models ModelStatus, cfg *config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		scorer:   scorer,
		models:   models,
		config:   cfg,
		logger:   zap.NewNop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		dirs:     make(map[modelres.Source]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		// Every method is listed so that 405 responses still carry CORS
		// headers and browsers can read the error body.
		AllowedMethods: []string{
			http.MethodPost, http.MethodOptions, http.MethodGet, http.MethodHead,
			http.MethodPut, http.MethodPatch, http.MethodDelete,
		},
		AllowedHeaders:     []string{"Content-Type"},
		ExposedHeaders:     []string{requestIDHeader},
		OptionsPassthrough: true,
		MaxAge:             3600,
	}))
	if slices.Contains(s.config.AllowedOrigins, "*") {
		r.Use(anyOrigin)
	}
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	for _, p := range []string{"/score_essay", "/api/v1/score"} {
		r.Post(p, s.handleScoreEssay)
		r.Options(p, s.handlePreflight)
	}
	for _, p := range []string{"/score_exam", "/api/v1/score/batch"} {
		r.Post(p, s.handleScoreExam)
		r.Options(p, s.handlePreflight)
	}
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
