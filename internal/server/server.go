// Package server implements the HTTP API around the report pipeline:
// on-demand report generation, full pipeline runs, run history, delivery
// settings, and read-only access to the generated artifacts.
// The server is started by the `briefly serve` CLI command.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brieflyhq/briefly/internal/logging"
	"github.com/brieflyhq/briefly/internal/report"
	"github.com/brieflyhq/briefly/internal/settings"
)

// Deps bundles the stores and pipeline the server exposes.
type Deps struct {
	// Pipeline runs and generates reports.
	Pipeline runner
	// Reports reads persisted report artifacts.
	Reports *report.Store
	// Settings reads and writes delivery preferences.
	Settings *settings.Store
	// History records and lists pipeline runs.
	History runLister
	// Registry receives the server's Prometheus metrics. Defaults to a fresh
	// registry when nil so tests never pollute the global one.
	Registry *prometheus.Registry
}

// New constructs a Server from the provided dependencies and config.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("server: pipeline must not be nil")
	}
	if deps.Reports == nil {
		return nil, fmt.Errorf("server: report store must not be nil")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("server: settings store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full synchronous pipeline run.
		cfg.WriteTimeout = 10 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}

	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		pipeline: deps.Pipeline,
		reports:  deps.Reports,
		settings: deps.Settings,
		history:  deps.History,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(registry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stopRL

	if cfg.APIKey == "" {
		log.Warn("server: API key not set, authentication disabled")
	}
	// Protected routes get auth and per-IP rate limiting; probes and metrics
	// stay open so orchestrators can scrape them.
	protected := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, authMiddleware(cfg.APIKey, rl.middleware(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/reports/generate", protected("reports_generate", s.handleGenerate))
	mux.Handle("GET /api/reports/latest", protected("reports_latest", s.handleLatest))
	mux.Handle("POST /api/pipeline/run", protected("pipeline_run", s.handlePipelineRun))
	mux.Handle("GET /api/runs", protected("runs", s.handleRuns))
	mux.Handle("GET /api/settings/email", protected("settings_email", s.handleGetEmailSettings))
	mux.Handle("PUT /api/settings/email", protected("settings_email", s.handlePutEmailSettings))
	mux.Handle("GET /api/settings/telegram", protected("settings_telegram", s.handleGetTelegramSettings))
	mux.Handle("PUT /api/settings/telegram", protected("settings_telegram", s.handlePutTelegramSettings))

	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if cfg.ReportsDir != "" {
		mux.Handle("GET /reports/", http.StripPrefix("/reports/", http.FileServer(http.Dir(cfg.ReportsDir))))
	}
	if cfg.ChartsDir != "" {
		mux.Handle("GET /charts/", http.StripPrefix("/charts/", http.FileServer(http.Dir(cfg.ChartsDir))))
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler exposes the fully wired handler for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}
