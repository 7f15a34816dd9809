// Package scheduler triggers the daily pipeline run at a configured local
// wall-clock time. The schedule is a plain HH:MM plus an IANA timezone so DST
// transitions keep the run anchored to local time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/brieflyhq/briefly/internal/errdefs"
	"github.com/brieflyhq/briefly/internal/logging"
)

const (
	// DefaultTime is the default daily run time.
	DefaultTime = "09:00"
	// DefaultTimezone is the default schedule timezone.
	DefaultTimezone = "Asia/Kolkata"
)

// Job is the work a schedule triggers.
type Job func(ctx context.Context)

// Scheduler wraps a cron runner with a single daily job slot.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	entryID cron.EntryID
	spec    string
	job     Job
}

// New constructs a Scheduler for the given HH:MM time in the given IANA
// timezone. Empty values fall back to the defaults. The context is passed to
// every triggered job so logging and cancellation flow through.
func New(ctx context.Context, at, timezone string) (*Scheduler, error) {
	if at == "" {
		at = DefaultTime
	}
	if timezone == "" {
		timezone = DefaultTimezone
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errdefs.InvalidArgumentf("scheduler: unknown timezone %q: %v", timezone, err)
	}

	spec, err := cronSpec(at)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		ctx:  ctx,
		spec: spec,
	}, nil
}

// Spec returns the cron expression the scheduler runs on.
func (s *Scheduler) Spec() string { return s.spec }

// Register installs the daily job, replacing any previously registered one.
func (s *Scheduler) Register(job Job) error {
	if job == nil {
		return errdefs.InvalidArgumentf("scheduler: job must not be nil")
	}
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}

	id, err := s.cron.AddFunc(s.spec, func() {
		log := logging.FromContext(s.ctx)
		log.Info("scheduler: triggering daily run", slog.String("spec", s.spec))
		job(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduler: register job: %w", err)
	}
	s.entryID = id
	s.job = job
	return nil
}

// RunNow invokes the registered job synchronously, outside the schedule.
func (s *Scheduler) RunNow() error {
	if s.job == nil {
		return errdefs.InvalidArgumentf("scheduler: no job registered")
	}
	logging.FromContext(s.ctx).Info("scheduler: running job on demand")
	s.job(s.ctx)
	return nil
}

// Start begins firing the schedule in a background goroutine.
func (s *Scheduler) Start() {
	log := logging.FromContext(s.ctx)
	log.Info("scheduler: started", slog.String("spec", s.spec))
	s.cron.Start()
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logging.FromContext(s.ctx).Info("scheduler: stopped")
}

// Next returns the next scheduled fire time, zero when nothing is registered
// or the scheduler is stopped.
func (s *Scheduler) Next() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// cronSpec converts an HH:MM wall-clock time into a daily cron expression.
func cronSpec(at string) (string, error) {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return "", errdefs.InvalidArgumentf("scheduler: schedule time must be HH:MM, got %q", at)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", errdefs.InvalidArgumentf("scheduler: invalid hour in %q", at)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", errdefs.InvalidArgumentf("scheduler: invalid minute in %q", at)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
