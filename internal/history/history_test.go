package history

import (
	"context"
	"testing"
	"time"

	"github.com/brieflyhq/briefly/internal/pipeline"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func manifestAt(start time.Time, status pipeline.Status) *pipeline.Manifest {
	return &pipeline.Manifest{
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Status:     status,
		Reports: []pipeline.ReportOutcome{
			{Kind: "sales", Path: "/reports/sales_report_20260314.txt"},
		},
		Delivery: []pipeline.ChannelOutcome{
			{Channel: "email", DurationMS: 1200},
		},
	}
}

func Test_History_RecordAndRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	if err := s.Record(ctx, manifestAt(start, pipeline.StatusDelivered)); err != nil {
		t.Fatalf("record: %v", err)
	}

	runs, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("want 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.Status != pipeline.StatusDelivered {
		t.Errorf("status = %s", r.Status)
	}
	if !r.StartedAt.Equal(start) {
		t.Errorf("started_at = %v, want %v", r.StartedAt, start)
	}
	if len(r.Manifest.Reports) != 1 || r.Manifest.Reports[0].Kind != "sales" {
		t.Errorf("manifest not round-tripped: %+v", r.Manifest)
	}
	if len(r.Manifest.Delivery) != 1 || r.Manifest.Delivery[0].Channel != "email" {
		t.Errorf("delivery outcomes lost: %+v", r.Manifest)
	}
}

func Test_History_RecentNewestFirst(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	statuses := []pipeline.Status{
		pipeline.StatusFailed,
		pipeline.StatusGenerated,
		pipeline.StatusDelivered,
	}
	for i, st := range statuses {
		if err := s.Record(ctx, manifestAt(base.AddDate(0, 0, i), st)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	runs, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("want 3 runs, got %d", len(runs))
	}
	if runs[0].Status != pipeline.StatusDelivered || runs[2].Status != pipeline.StatusFailed {
		t.Errorf("runs not newest-first: %v, %v, %v", runs[0].Status, runs[1].Status, runs[2].Status)
	}
}

func Test_History_RecentLimitRespected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := range 6 {
		if err := s.Record(ctx, manifestAt(base.AddDate(0, 0, i), pipeline.StatusDelivered)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	runs, err := s.Recent(ctx, 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 4 {
		t.Errorf("want 4 runs, got %d", len(runs))
	}
}

func Test_History_EmptyStoreReturnsNil(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	runs, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("want 0 runs, got %d", len(runs))
	}
}

func Test_Noop_RecordsNothing(t *testing.T) {
	t.Parallel()

	var s Noop
	if err := s.Record(context.Background(), manifestAt(time.Now(), pipeline.StatusDelivered)); err != nil {
		t.Fatal(err)
	}
	runs, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if runs != nil {
		t.Errorf("noop must return nil, got %v", runs)
	}
}
