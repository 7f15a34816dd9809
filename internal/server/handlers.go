package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/brieflyhq/briefly/internal/errdefs"
	"github.com/brieflyhq/briefly/internal/logging"
	"github.com/brieflyhq/briefly/internal/report"
	"github.com/brieflyhq/briefly/internal/settings"
)

// defaultRunsLimit bounds GET /api/runs when no limit is given.
const defaultRunsLimit = 20

// handleGenerate handles POST /api/reports/generate: it runs the two-stage
// agent for a single query and persists the result.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.reportRequestsTotal.WithLabelValues("invalid").Inc()
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		s.metrics.reportRequestsTotal.WithLabelValues("invalid").Inc()
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	kind := report.Kind(req.Kind)
	if req.Kind == "" {
		kind = report.KindCustom
	}
	if !kind.Valid() {
		s.metrics.reportRequestsTotal.WithLabelValues("invalid").Inc()
		http.Error(w, "unknown report kind", http.StatusBadRequest)
		return
	}

	path, err := s.pipeline.GenerateOne(r.Context(), kind, req.Query, req.Category, req.Limit)
	if err != nil {
		status := http.StatusBadGateway
		outcome := "error"
		if errors.Is(err, errdefs.ErrInvalidArgument) {
			status = http.StatusBadRequest
			outcome = "invalid"
		}
		s.metrics.reportRequestsTotal.WithLabelValues(outcome).Inc()
		log.Error("generate failed", slog.Any("error", err))
		http.Error(w, err.Error(), status)
		return
	}

	s.metrics.reportRequestsTotal.WithLabelValues("ok").Inc()
	content, err := s.reports.Read(path)
	if err != nil {
		log.Warn("generated report not readable", slog.String("path", path), slog.Any("error", err))
	}
	writeJSON(w, http.StatusOK, generateResponse{Kind: string(kind), Path: path, Content: content})
}

// handlePipelineRun handles POST /api/pipeline/run: a full synchronous
// generate-render-deliver run. The manifest is always returned and recorded,
// even for a failed run.
func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	start := time.Now()
	m := s.pipeline.Run(r.Context())
	s.metrics.pipelineRunsTotal.WithLabelValues(string(m.Status)).Inc()
	s.metrics.pipelineDurationSeconds.Observe(time.Since(start).Seconds())
	for _, d := range m.Delivery {
		outcome := "delivered"
		switch {
		case d.Skipped:
			outcome = "skipped"
		case d.Error != "":
			outcome = "failed"
		}
		s.metrics.deliveryAttemptsTotal.WithLabelValues(d.Channel, outcome).Inc()
	}

	if s.history != nil {
		if err := s.history.Record(r.Context(), m); err != nil {
			log.Error("run not recorded", slog.Any("error", err))
		}
	}

	writeJSON(w, http.StatusOK, m)
}

// handleLatest handles GET /api/reports/latest?kind=<kind>.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	kind := report.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = report.KindSales
	}
	if !kind.Valid() {
		http.Error(w, "unknown report kind", http.StatusBadRequest)
		return
	}

	path, err := s.reports.LatestForKind(kind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if path == "" {
		http.Error(w, "no report found", http.StatusNotFound)
		return
	}

	content, err := s.reports.Read(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, latestResponse{Kind: string(kind), Path: path, Content: content})
}

// handleRuns handles GET /api/runs?limit=<n>.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	if s.history == nil {
		writeJSON(w, http.StatusOK, runsResponse{})
		return
	}
	runs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runsResponse{Runs: runs})
}

// handleGetEmailSettings handles GET /api/settings/email.
func (s *Server) handleGetEmailSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Email())
}

// handlePutEmailSettings handles PUT /api/settings/email.
func (s *Server) handlePutEmailSettings(w http.ResponseWriter, r *http.Request) {
	var req settings.EmailSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.settings.SaveEmail(req); err != nil {
		writeSettingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleGetTelegramSettings handles GET /api/settings/telegram.
func (s *Server) handleGetTelegramSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Telegram())
}

// handlePutTelegramSettings handles PUT /api/settings/telegram.
func (s *Server) handlePutTelegramSettings(w http.ResponseWriter, r *http.Request) {
	var req settings.TelegramSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.settings.SaveTelegram(req); err != nil {
		writeSettingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// writeSettingsError maps a settings save failure to an HTTP status.
func writeSettingsError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, errdefs.ErrInvalidArgument) {
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

// writeJSON encodes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
