package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/brieflyhq/briefly/internal/history"
	"github.com/brieflyhq/briefly/internal/pipeline"
	"github.com/brieflyhq/briefly/internal/report"
	"github.com/brieflyhq/briefly/internal/settings"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. Pipeline
	// runs are synchronous, so this must cover a full run.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// ReportsDir is served read-only under /reports/ when non-empty.
	ReportsDir string
	// ChartsDir is served read-only under /charts/ when non-empty.
	ChartsDir string
}

// runner is the slice of the pipeline the handlers call.
// *pipeline.Pipeline satisfies it; tests inject a fake.
type runner interface {
	// Run executes the full daily pipeline and returns its manifest.
	Run(ctx context.Context) *pipeline.Manifest
	// GenerateOne produces and persists a single report.
	GenerateOne(ctx context.Context, kind report.Kind, query, category string, limit int) (string, error)
}

// runLister is the slice of the history store the handlers call.
type runLister interface {
	Record(ctx context.Context, m *pipeline.Manifest) error
	Recent(ctx context.Context, n int) ([]history.Run, error)
}

// Server is the HTTP server that exposes the report pipeline.
type Server struct {
	// pipeline runs and generates reports.
	pipeline runner
	// reports reads persisted report artifacts.
	reports *report.Store
	// settings reads and writes delivery preferences.
	settings *settings.Store
	// history records and lists pipeline runs.
	history runLister
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// generateRequest is the JSON body for POST /api/reports/generate.
type generateRequest struct {
	// Kind selects the report kind; defaults to "custom".
	Kind string `json:"kind,omitempty"`
	// Query is the analytical question the report answers.
	Query string `json:"query"`
	// Category narrows retrieval to one document category ("" = all).
	Category string `json:"category,omitempty"`
	// Limit caps how many documents retrieval returns (0 = default).
	Limit int `json:"limit,omitempty"`
}

// generateResponse is the JSON response for POST /api/reports/generate.
type generateResponse struct {
	// Kind is the generated report kind.
	Kind string `json:"kind"`
	// Path is where the report was persisted.
	Path string `json:"path"`
	// Content is the generated report text.
	Content string `json:"content"`
}

// latestResponse is the JSON response for GET /api/reports/latest.
type latestResponse struct {
	// Kind is the requested report kind.
	Kind string `json:"kind"`
	// Path is the newest matching report file.
	Path string `json:"path"`
	// Content is the report text.
	Content string `json:"content"`
}

// runsResponse is the JSON response for GET /api/runs.
type runsResponse struct {
	// Runs are the recorded pipeline runs, newest first.
	Runs []history.Run `json:"runs"`
}
