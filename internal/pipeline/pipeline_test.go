package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brieflyhq/briefly/internal/agent"
	"github.com/brieflyhq/briefly/internal/delivery"
	"github.com/brieflyhq/briefly/internal/report"
	"github.com/brieflyhq/briefly/internal/viz"
)

// fakeAgent scripts GenerateReport per category and records the queries seen.
type fakeAgent struct {
	failCategories map[string]error
	queries        []string
}

func (a *fakeAgent) GenerateReport(_ context.Context, query, category string, _ int) (*agent.Result, error) {
	a.queries = append(a.queries, query)
	if err, ok := a.failCategories[category]; ok {
		return nil, err
	}
	return &agent.Result{Query: query, Category: category, Report: "report for " + category}, nil
}

// fakeChannel is a scriptable delivery channel.
type fakeChannel struct {
	name     string
	precheck error
	send     error
	bundles  []delivery.Bundle
}

func (c *fakeChannel) Name() string                   { return c.name }
func (c *fakeChannel) Precheck(context.Context) error { return c.precheck }
func (c *fakeChannel) Send(_ context.Context, b delivery.Bundle) error {
	c.bundles = append(c.bundles, b)
	return c.send
}

const salesFixture = `[
	{"id": 1, "product": "CRM Suite", "category": "Software", "revenue": 125000, "units_sold": 50,
	 "region": "North America", "quarter": "Q1 2024", "customer_segment": "Enterprise",
	 "sales_rep": "A. Rivera", "description": "Enterprise CRM deal"},
	{"id": 2, "product": "Analytics Platform", "category": "Software", "revenue": 85000, "units_sold": 34,
	 "region": "Europe", "quarter": "Q2 2024", "customer_segment": "Mid-Market",
	 "sales_rep": "B. Chen", "description": "Analytics rollout"}
]`

const marketingFixture = `[
	{"id": 1, "campaign_name": "Spring Launch", "channel": "Email", "budget": 20000,
	 "impressions": 500000, "clicks": 12000, "conversions": 800, "quarter": "Q1 2024",
	 "target_segment": "SMB", "description": "Spring product launch"},
	{"id": 2, "campaign_name": "Summer Social Push", "channel": "Social Media", "budget": 35000,
	 "impressions": 900000, "clicks": 30000, "conversions": 1400, "quarter": "Q2 2024",
	 "target_segment": "Enterprise", "description": "Summer awareness push"}
]`

// fixture builds a Pipeline over temp dirs with both datasets present.
func fixture(t *testing.T, ag *fakeAgent, channels ...delivery.Channel) *Pipeline {
	t.Helper()
	dir := t.TempDir()

	reports, err := report.NewStore(filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatal(err)
	}
	charts, err := viz.NewGenerator(filepath.Join(dir, "charts"))
	if err != nil {
		t.Fatal(err)
	}

	salesPath := filepath.Join(dir, "sales.json")
	marketingPath := filepath.Join(dir, "marketing.json")
	if err := os.WriteFile(salesPath, []byte(salesFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(marketingPath, []byte(marketingFixture), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := New(Config{
		Agent:         ag,
		Reports:       reports,
		Charts:        charts,
		SalesPath:     salesPath,
		MarketingPath: marketingPath,
		Channels:      channels,
		Now:           func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func Test_Run_AllStagesSucceed(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{name: "email"}
	ag := &fakeAgent{}
	p := fixture(t, ag, ch)

	m := p.Run(context.Background())

	if m.Status != StatusDelivered {
		t.Fatalf("status = %s, want %s", m.Status, StatusDelivered)
	}
	if len(m.Reports) != 3 {
		t.Fatalf("reports = %d, want 3", len(m.Reports))
	}
	kinds := []string{"sales", "marketing", "summary"}
	for i, r := range m.Reports {
		if r.Kind != kinds[i] {
			t.Errorf("report %d kind = %s, want %s", i, r.Kind, kinds[i])
		}
		if r.Error != "" || r.Path == "" {
			t.Errorf("report %s: path=%q err=%q", r.Kind, r.Path, r.Error)
		}
	}
	if len(m.Charts.Paths) != len(viz.Catalog) {
		t.Errorf("charts = %d, want %d", len(m.Charts.Paths), len(viz.Catalog))
	}
	if len(ch.bundles) != 1 {
		t.Fatalf("channel received %d bundles, want 1", len(ch.bundles))
	}
	if got := len(ch.bundles[0].Reports); got != 3 {
		t.Errorf("bundle reports = %d, want 3", got)
	}
}

func Test_Run_OneKindFailureDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	ag := &fakeAgent{failCategories: map[string]error{"sales": errors.New("model down")}}
	ch := &fakeChannel{name: "email"}
	p := fixture(t, ag, ch)

	m := p.Run(context.Background())

	if m.Reports[0].Error == "" {
		t.Error("sales report must record its failure")
	}
	if m.Reports[1].Path == "" || m.Reports[2].Path == "" {
		t.Error("marketing and summary reports must still be generated")
	}
	if got := len(ch.bundles[0].Reports); got != 2 {
		t.Errorf("bundle reports = %d, want 2 surviving", got)
	}
	if m.Status != StatusDelivered {
		t.Errorf("status = %s, want %s", m.Status, StatusDelivered)
	}
}

func Test_Run_MixedDeliveryIsPartial(t *testing.T) {
	t.Parallel()

	good := &fakeChannel{name: "email"}
	bad := &fakeChannel{name: "telegram", send: errors.New("403")}
	p := fixture(t, &fakeAgent{}, good, bad)

	m := p.Run(context.Background())

	if m.Status != StatusPartiallyDelivered {
		t.Fatalf("status = %s, want %s", m.Status, StatusPartiallyDelivered)
	}
	if len(m.Delivery) != 2 {
		t.Fatalf("delivery outcomes = %d, want 2", len(m.Delivery))
	}
	if m.Delivery[0].Error != "" {
		t.Errorf("email outcome: %+v", m.Delivery[0])
	}
	if m.Delivery[1].Error == "" {
		t.Errorf("telegram outcome must record the failure: %+v", m.Delivery[1])
	}
}

func Test_Run_AllChannelsDisabledIsGenerated(t *testing.T) {
	t.Parallel()

	off := &fakeChannel{name: "email", precheck: delivery.ErrDisabled}
	p := fixture(t, &fakeAgent{}, off)

	m := p.Run(context.Background())

	if m.Status != StatusGenerated {
		t.Fatalf("status = %s, want %s", m.Status, StatusGenerated)
	}
	if !m.Delivery[0].Skipped {
		t.Error("disabled channel must be recorded as skipped")
	}
	if len(off.bundles) != 0 {
		t.Error("disabled channel must not receive the bundle")
	}
}

func Test_Run_NoArtifactsIsFailed(t *testing.T) {
	t.Parallel()

	ag := &fakeAgent{failCategories: map[string]error{
		"sales":     errors.New("down"),
		"marketing": errors.New("down"),
		"":          errors.New("down"),
	}}
	ch := &fakeChannel{name: "email"}
	p := fixture(t, ag, ch)

	// Remove the datasets so charts fail too.
	if err := os.Remove(p.cfg.SalesPath); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(p.cfg.MarketingPath); err != nil {
		t.Fatal(err)
	}

	m := p.Run(context.Background())

	if m.Status != StatusFailed {
		t.Fatalf("status = %s, want %s", m.Status, StatusFailed)
	}
	if len(ch.bundles) != 0 {
		t.Error("failed run must not deliver")
	}
}

func Test_Run_MissingMarketingDatasetKeepsSalesCharts(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{name: "email"}
	p := fixture(t, &fakeAgent{}, ch)
	if err := os.Remove(p.cfg.MarketingPath); err != nil {
		t.Fatal(err)
	}

	m := p.Run(context.Background())

	if len(m.Charts.Paths) != 3 {
		t.Errorf("surviving charts = %d, want 3 sales charts", len(m.Charts.Paths))
	}
	if m.Charts.Error == "" {
		t.Error("chart outcome must record the marketing failures")
	}
}

func Test_GenerateOne_PersistsReport(t *testing.T) {
	t.Parallel()

	p := fixture(t, &fakeAgent{})

	path, err := p.GenerateOne(context.Background(), report.KindCustom, "How did Q2 go?", "", 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "report for " {
		t.Errorf("unexpected content %q", data)
	}
	if filepath.Base(path) != "custom_report_20260314.txt" {
		t.Errorf("unexpected filename %s", filepath.Base(path))
	}
}

func Test_GenerateOne_AgentFailurePropagates(t *testing.T) {
	t.Parallel()

	ag := &fakeAgent{failCategories: map[string]error{"sales": errors.New("model down")}}
	p := fixture(t, ag)

	if _, err := p.GenerateOne(context.Background(), report.KindSales, "q", "sales", 0); err == nil {
		t.Fatal("want error")
	}
}
