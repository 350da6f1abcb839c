// Package api serves the local market-data proxy.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apihandler "github.com/newthinker/cryptostream/internal/api/handler/api"
	"github.com/newthinker/cryptostream/internal/api/middleware"
	"github.com/newthinker/cryptostream/internal/core"
	"github.com/newthinker/cryptostream/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for CryptoStream
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
}

// Config holds server configuration
type Config struct {
	Host       string
	Port       int
	APIKey     string
	CORSOrigin string
	// MetricsPath is where Prometheus metrics are served. Empty disables.
	MetricsPath     string
	DefaultInterval core.Interval
	// Symbols is the default watch set of the market and export routes.
	Symbols []string
}

// Dependencies are the collaborators behind the routes.
type Dependencies struct {
	Service  apihandler.MarketService
	History  apihandler.RangeFetcher
	Exporter apihandler.DatasetExporter
	// Archive is optional; the /api/exports routes exist only with it.
	Archive apihandler.ExportArchive
	// Metrics is optional.
	Metrics   *metrics.Registry
	Version   string
	StartedAt time.Time
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Service == nil || deps.History == nil || deps.Exporter == nil {
		return nil, fmt.Errorf("service, history and exporter are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now()
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	// Outermost first: metrics, logging, CORS, then the mux.
	var h http.Handler = mux
	h = middleware.CORS(cfg.CORSOrigin)(h)
	h = metrics.LoggingMiddleware(logger)(h)
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	s.handler = h

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Range requests may wait on several upstream retries.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	cryptoHandler := apihandler.NewCryptoHandler(deps.Service, deps.History, deps.Exporter, apihandler.CryptoConfig{
		DefaultInterval: cfg.DefaultInterval,
		Symbols:         cfg.Symbols,
	}, s.logger)
	health := apihandler.NewHealthHandler(deps.Version, deps.StartedAt)

	auth := middleware.APIKeyAuth(cfg.APIKey)
	s.mux.Handle("GET /api/crypto/market", auth(http.HandlerFunc(cryptoHandler.Market)))
	s.mux.Handle("GET /api/crypto/historical", auth(http.HandlerFunc(cryptoHandler.Historical)))
	s.mux.Handle("GET /api/crypto/export", auth(http.HandlerFunc(cryptoHandler.Export)))

	if deps.Archive != nil {
		exports := apihandler.NewExportsHandler(deps.Archive, s.logger)
		s.mux.Handle("GET /api/exports", auth(http.HandlerFunc(exports.List)))
		s.mux.Handle("GET /api/exports/{path...}", auth(http.HandlerFunc(exports.Get)))
		s.mux.Handle("DELETE /api/exports/{path...}", auth(http.HandlerFunc(exports.Delete)))
	}

	s.mux.HandleFunc("GET /api/health", health.Health)

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
