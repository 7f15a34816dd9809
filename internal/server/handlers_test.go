package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brieflyhq/briefly/internal/errdefs"
	"github.com/brieflyhq/briefly/internal/history"
	"github.com/brieflyhq/briefly/internal/pipeline"
	"github.com/brieflyhq/briefly/internal/report"
	"github.com/brieflyhq/briefly/internal/settings"
)

// fakeRunner is a test double for the pipeline.
type fakeRunner struct {
	// manifest is returned by Run.
	manifest *pipeline.Manifest
	// genPath and genErr script GenerateOne.
	genPath string
	genErr  error
	// lastKind records the kind passed to GenerateOne.
	lastKind report.Kind
}

func (f *fakeRunner) Run(context.Context) *pipeline.Manifest {
	if f.manifest != nil {
		return f.manifest
	}
	return &pipeline.Manifest{Status: pipeline.StatusDelivered}
}

func (f *fakeRunner) GenerateOne(_ context.Context, kind report.Kind, _, _ string, _ int) (string, error) {
	f.lastKind = kind
	return f.genPath, f.genErr
}

// fakeHistory records manifests and replays runs.
type fakeHistory struct {
	recorded []*pipeline.Manifest
	runs     []history.Run
	err      error
}

func (f *fakeHistory) Record(_ context.Context, m *pipeline.Manifest) error {
	f.recorded = append(f.recorded, m)
	return f.err
}

func (f *fakeHistory) Recent(context.Context, int) ([]history.Run, error) {
	return f.runs, f.err
}

// newTestServer builds a Server over temp stores with the given fakes.
func newTestServer(t *testing.T, run *fakeRunner, hist *fakeHistory) *Server {
	t.Helper()
	dir := t.TempDir()

	reports, err := report.NewStore(filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatal(err)
	}
	prefs, err := settings.NewStore(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatal(err)
	}
	if run == nil {
		run = &fakeRunner{}
	}

	deps := Deps{Pipeline: run, Reports: reports, Settings: prefs}
	if hist != nil {
		deps.History = hist
	}
	s, err := New(deps, &Config{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.stopRL)
	return s
}

// do runs a request through the fully wired handler.
func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleGenerate_OK(t *testing.T) {
	t.Parallel()

	run := &fakeRunner{}
	s := newTestServer(t, run, nil)
	path, err := s.reports.Save("q2 looked strong", report.KindCustom, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	run.genPath = path

	w := do(s, http.MethodPost, "/api/reports/generate", `{"query":"How did Q2 go?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp generateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != "custom" {
		t.Errorf("kind = %q, want default custom", resp.Kind)
	}
	if resp.Path != path {
		t.Errorf("path = %q", resp.Path)
	}
	if resp.Content != "q2 looked strong" {
		t.Errorf("content = %q", resp.Content)
	}
	if run.lastKind != report.KindCustom {
		t.Errorf("runner saw kind %q", run.lastKind)
	}
}

func TestHandleGenerate_EmptyQuery(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	w := do(s, http.MethodPost, "/api/reports/generate", `{"query":""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleGenerate_UnknownKind(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	w := do(s, http.MethodPost, "/api/reports/generate", `{"kind":"weekly","query":"q"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleGenerate_UpstreamFailure(t *testing.T) {
	t.Parallel()

	run := &fakeRunner{genErr: errdefs.Upstreamf("model offline")}
	s := newTestServer(t, run, nil)

	w := do(s, http.MethodPost, "/api/reports/generate", `{"query":"q"}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestHandlePipelineRun_ReturnsAndRecordsManifest(t *testing.T) {
	t.Parallel()

	run := &fakeRunner{manifest: &pipeline.Manifest{
		Status:  pipeline.StatusPartiallyDelivered,
		Reports: []pipeline.ReportOutcome{{Kind: "sales", Path: "/reports/x.txt"}},
	}}
	hist := &fakeHistory{}
	s := newTestServer(t, run, hist)

	w := do(s, http.MethodPost, "/api/pipeline/run", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var m pipeline.Manifest
	if err := json.NewDecoder(w.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Status != pipeline.StatusPartiallyDelivered {
		t.Errorf("status = %s", m.Status)
	}
	if len(hist.recorded) != 1 {
		t.Errorf("recorded %d manifests, want 1", len(hist.recorded))
	}
}

func TestHandlePipelineRun_HistoryFailureStillReturnsManifest(t *testing.T) {
	t.Parallel()

	hist := &fakeHistory{err: errors.New("db locked")}
	s := newTestServer(t, nil, hist)

	w := do(s, http.MethodPost, "/api/pipeline/run", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 despite history failure, got %d", w.Code)
	}
}

func TestHandleLatest_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	if _, err := s.reports.Save("sales analysis", report.KindSales, time.Now()); err != nil {
		t.Fatal(err)
	}

	w := do(s, http.MethodGet, "/api/reports/latest?kind=sales", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp latestResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Content != "sales analysis" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestHandleLatest_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	w := do(s, http.MethodGet, "/api/reports/latest?kind=summary", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleLatest_UnknownKind(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	w := do(s, http.MethodGet, "/api/reports/latest?kind=weekly", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleRuns_ListsHistory(t *testing.T) {
	t.Parallel()

	hist := &fakeHistory{runs: []history.Run{
		{ID: 2, Status: pipeline.StatusDelivered},
		{ID: 1, Status: pipeline.StatusFailed},
	}}
	s := newTestServer(t, nil, hist)

	w := do(s, http.MethodGet, "/api/runs", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp runsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Runs) != 2 || resp.Runs[0].ID != 2 {
		t.Errorf("runs = %+v", resp.Runs)
	}
}

func TestHandleRuns_InvalidLimit(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, &fakeHistory{})
	w := do(s, http.MethodGet, "/api/runs?limit=-3", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleRuns_NoHistoryConfigured(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	w := do(s, http.MethodGet, "/api/runs", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestSettingsEndpoints_EmailRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)

	put := do(s, http.MethodPut, "/api/settings/email",
		`{"recipient_email":"ops@example.com","user_name":"Ops","notifications_enabled":true}`)
	if put.Code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d: %s", put.Code, put.Body.String())
	}

	get := do(s, http.MethodGet, "/api/settings/email", "")
	var e settings.EmailSettings
	if err := json.NewDecoder(get.Body).Decode(&e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.RecipientEmail != "ops@example.com" || !e.NotificationsEnabled {
		t.Errorf("settings = %+v", e)
	}
}

func TestSettingsEndpoints_EmailValidation(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	w := do(s, http.MethodPut, "/api/settings/email", `{"user_name":"NoRecipient"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSettingsEndpoints_TelegramValidation(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	w := do(s, http.MethodPut, "/api/settings/telegram", `{"notifications_enabled":true}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without chat_id, got %d", w.Code)
	}
}

func TestSettingsEndpoints_TelegramDefaultsDisabled(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	w := do(s, http.MethodGet, "/api/settings/telegram", "")
	var tg settings.TelegramSettings
	if err := json.NewDecoder(w.Body).Decode(&tg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tg.NotificationsEnabled {
		t.Error("telegram must default to disabled")
	}
}

func TestProtectedRoutes_RequireAuthWhenKeySet(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	s.cfg.APIKey = "secret"
	// Rebuild to pick up the key.
	s2, err := New(Deps{Pipeline: &fakeRunner{}, Reports: s.reports, Settings: s.settings}, s.cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s2.stopRL)

	w := do(s2, http.MethodGet, "/api/runs", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s2.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health must stay open, got %d", rec.Code)
	}
}
