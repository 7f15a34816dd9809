// Package pipeline runs the end-to-end daily report flow: generate one
// report per kind, render the chart catalog, and fan the bundle out to the
// delivery channels. Every stage is isolated so one failed report or chart
// never blocks the rest, and the whole run is summarised in a Manifest.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/brieflyhq/briefly/internal/agent"
	"github.com/brieflyhq/briefly/internal/dataset"
	"github.com/brieflyhq/briefly/internal/delivery"
	"github.com/brieflyhq/briefly/internal/errdefs"
	"github.com/brieflyhq/briefly/internal/logging"
	"github.com/brieflyhq/briefly/internal/report"
	"github.com/brieflyhq/briefly/internal/viz"
)

// Status summarises a whole pipeline run.
type Status string

const (
	// StatusDelivered means every attempted channel delivered.
	StatusDelivered Status = "delivered"
	// StatusPartiallyDelivered means some channels delivered and some failed.
	StatusPartiallyDelivered Status = "partially-delivered"
	// StatusGenerated means artifacts exist but nothing was delivered,
	// either because every channel is disabled or every attempt failed.
	StatusGenerated Status = "generated"
	// StatusFailed means no report could be generated at all.
	StatusFailed Status = "failed"
)

// kindSpec binds a report kind to the analytical question it answers and the
// retrieval category that scopes it.
type kindSpec struct {
	kind     report.Kind
	query    string
	category string
}

// dailyKinds is the fixed set of reports a scheduled run produces.
var dailyKinds = []kindSpec{
	{
		kind:     report.KindSales,
		query:    "Analyze our sales performance. What are the key revenue trends, top performing products, and regional results?",
		category: "sales",
	},
	{
		kind:     report.KindMarketing,
		query:    "Analyze our marketing campaigns. How do budget, conversions, and ROI compare across campaigns and channels?",
		category: "marketing",
	},
	{
		kind:     report.KindSummary,
		query:    "Provide an executive summary of overall business performance, combining sales results with marketing campaign effectiveness.",
		category: "",
	},
}

// ReportOutcome records one kind's generation result.
type ReportOutcome struct {
	// Kind is the report kind.
	Kind string `json:"kind"`
	// Path is where the report was persisted, empty on failure.
	Path string `json:"path,omitempty"`
	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`
}

// ChartOutcome records the chart rendering stage.
type ChartOutcome struct {
	// Paths are the rendered chart files.
	Paths []string `json:"paths,omitempty"`
	// Error collects render failures, empty when the full catalog rendered.
	Error string `json:"error,omitempty"`
}

// ChannelOutcome records one delivery channel's attempt.
type ChannelOutcome struct {
	// Channel is the channel name.
	Channel string `json:"channel"`
	// Skipped is true when the channel was disabled.
	Skipped bool `json:"skipped,omitempty"`
	// Error is the failure message, empty on success or skip.
	Error string `json:"error,omitempty"`
	// DurationMS is the attempt duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}

// Manifest is the durable record of one pipeline run.
type Manifest struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`
	// Status summarises the run.
	Status Status `json:"status"`
	// Reports holds one outcome per kind, in generation order.
	Reports []ReportOutcome `json:"reports"`
	// Charts holds the chart stage outcome.
	Charts ChartOutcome `json:"charts"`
	// Delivery holds one outcome per channel, in fan-out order.
	Delivery []ChannelOutcome `json:"delivery,omitempty"`
}

// generator is the slice of the report agent the pipeline needs.
type generator interface {
	GenerateReport(ctx context.Context, query, category string, limit int) (*agent.Result, error)
}

// Config wires a Pipeline.
type Config struct {
	// Agent produces the report text.
	Agent generator
	// Reports persists generated reports.
	Reports *report.Store
	// Charts renders the chart catalog.
	Charts *viz.Generator
	// SalesPath is the sales dataset file backing the charts.
	SalesPath string
	// MarketingPath is the marketing dataset file backing the charts.
	MarketingPath string
	// Channels are the delivery destinations, run in order.
	Channels []delivery.Channel
	// Now supplies the clock, defaulting to time.Now. Test hook.
	Now func() time.Time
}

// Pipeline orchestrates one full generate-render-deliver run.
type Pipeline struct {
	cfg Config
	now func() time.Time
}

// New constructs a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Agent == nil {
		return nil, errdefs.InvalidArgumentf("pipeline: agent must not be nil")
	}
	if cfg.Reports == nil {
		return nil, errdefs.InvalidArgumentf("pipeline: report store must not be nil")
	}
	if cfg.Charts == nil {
		return nil, errdefs.InvalidArgumentf("pipeline: chart generator must not be nil")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{cfg: cfg, now: now}, nil
}

// GenerateOne produces and persists a single report kind outside the daily
// flow, for the on-demand API. A zero limit uses the retriever's default.
func (p *Pipeline) GenerateOne(ctx context.Context, kind report.Kind, query, category string, limit int) (string, error) {
	res, err := p.cfg.Agent.GenerateReport(ctx, query, category, limit)
	if err != nil {
		return "", err
	}
	return p.cfg.Reports.Save(res.Report, kind, p.now())
}

// Run executes the full daily pipeline and returns its manifest. The manifest
// is always returned, even for a fully failed run.
func (p *Pipeline) Run(ctx context.Context) *Manifest {
	log := logging.FromContext(ctx)
	m := &Manifest{StartedAt: p.now()}

	// Stage one: one report per kind, failures isolated per kind.
	for _, spec := range dailyKinds {
		outcome := ReportOutcome{Kind: string(spec.kind)}
		res, err := p.cfg.Agent.GenerateReport(ctx, spec.query, spec.category, 0)
		if err != nil {
			outcome.Error = err.Error()
			log.Error("pipeline: report generation failed",
				slog.String("kind", string(spec.kind)),
				slog.Any("error", err),
			)
			m.Reports = append(m.Reports, outcome)
			continue
		}

		path, err := p.cfg.Reports.Save(res.Report, spec.kind, p.now())
		if err != nil {
			outcome.Error = err.Error()
			log.Error("pipeline: report persistence failed",
				slog.String("kind", string(spec.kind)),
				slog.Any("error", err),
			)
		} else {
			outcome.Path = path
			log.Info("pipeline: report generated",
				slog.String("kind", string(spec.kind)),
				slog.String("path", path),
			)
		}
		m.Reports = append(m.Reports, outcome)
	}

	// Stage two: charts from the raw datasets. A dataset that fails to load
	// costs its charts, not the run.
	m.Charts = p.renderCharts(ctx)

	reportPaths := make([]string, 0, len(m.Reports))
	for _, r := range m.Reports {
		if r.Path != "" {
			reportPaths = append(reportPaths, r.Path)
		}
	}

	if len(reportPaths) == 0 && len(m.Charts.Paths) == 0 {
		m.Status = StatusFailed
		m.FinishedAt = p.now()
		log.Error("pipeline: run produced no artifacts")
		return m
	}

	// Stage three: fan out to every channel.
	bundle := delivery.Bundle{
		Reports:     reportPaths,
		Charts:      m.Charts.Paths,
		GeneratedAt: p.now(),
	}
	attempts := delivery.Fanout(ctx, bundle, p.cfg.Channels)
	for _, a := range attempts {
		out := ChannelOutcome{
			Channel:    a.Channel,
			Skipped:    a.Skipped,
			DurationMS: a.Duration.Milliseconds(),
		}
		if a.Err != nil {
			out.Error = a.Err.Error()
		}
		m.Delivery = append(m.Delivery, out)
	}

	m.Status = deliveryStatus(attempts)
	m.FinishedAt = p.now()
	log.Info("pipeline: run finished",
		slog.String("status", string(m.Status)),
		slog.Int("reports", len(reportPaths)),
		slog.Int("charts", len(m.Charts.Paths)),
	)
	return m
}

// renderCharts loads both datasets and renders the catalog.
func (p *Pipeline) renderCharts(ctx context.Context) ChartOutcome {
	log := logging.FromContext(ctx)

	sales, salesErr := dataset.LoadSales(p.cfg.SalesPath)
	if salesErr != nil {
		log.Warn("pipeline: sales dataset unavailable", slog.Any("error", salesErr))
	}
	marketing, mktErr := dataset.LoadMarketing(p.cfg.MarketingPath)
	if mktErr != nil {
		log.Warn("pipeline: marketing dataset unavailable", slog.Any("error", mktErr))
	}

	paths, err := p.cfg.Charts.GenerateAll(sales, marketing)
	out := ChartOutcome{Paths: paths}
	if err != nil {
		out.Error = err.Error()
		log.Warn("pipeline: some charts failed to render", slog.Any("error", err))
	}
	return out
}

// deliveryStatus folds the fan-out attempts into a run status. Skipped
// channels never count against delivery.
func deliveryStatus(attempts []delivery.Attempt) Status {
	var delivered, failed int
	for _, a := range attempts {
		switch {
		case a.Skipped:
		case a.Err != nil:
			failed++
		default:
			delivered++
		}
	}
	switch {
	case delivered > 0 && failed == 0:
		return StatusDelivered
	case delivered > 0:
		return StatusPartiallyDelivered
	default:
		return StatusGenerated
	}
}
