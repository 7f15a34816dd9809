// Package delivery fans a generated report bundle out to independent
// channels. Channels never see each other: one channel's failure is recorded
// and the remaining channels still run, so a broken SMTP relay cannot block
// a Telegram delivery or vice versa.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brieflyhq/briefly/internal/logging"
)

// ErrDisabled is returned by Precheck when a channel is turned off in user
// settings. The fan-out records it as a skip, not a failure.
var ErrDisabled = errors.New("delivery: channel disabled")

// Bundle is the set of artifacts one pipeline run delivers.
type Bundle struct {
	// Reports are the report text file paths, in delivery order.
	Reports []string

	// Charts are the chart PNG paths, in delivery order.
	Charts []string

	// GeneratedAt is when the bundle was produced.
	GeneratedAt time.Time
}

// Empty reports whether the bundle carries nothing deliverable.
func (b Bundle) Empty() bool {
	return len(b.Reports) == 0 && len(b.Charts) == 0
}

// Channel is one delivery destination.
type Channel interface {
	// Name identifies the channel in logs and run manifests.
	Name() string

	// Precheck validates configuration and user settings before any send.
	// ErrDisabled means the user turned the channel off.
	Precheck(ctx context.Context) error

	// Send delivers the bundle. Partial sends surface as errors.
	Send(ctx context.Context, bundle Bundle) error
}

// Attempt records the outcome of one channel in a fan-out.
type Attempt struct {
	// Channel is the channel name.
	Channel string

	// Skipped is true when the channel was disabled and never attempted.
	Skipped bool

	// Err is the failure, nil on success or skip.
	Err error

	// Duration is how long the attempt took.
	Duration time.Duration
}

// Succeeded reports whether the attempt delivered.
func (a Attempt) Succeeded() bool { return !a.Skipped && a.Err == nil }

// defaultSendTimeout bounds one channel's Send call. A stalled transport
// becomes a normal failed attempt instead of hanging the run.
const defaultSendTimeout = 60 * time.Second

// Fanout delivers the bundle to every channel in order. Each channel is
// isolated: prechecks and sends that fail are recorded on the attempt and the
// next channel still runs. Each Send is bounded by the default per-channel
// timeout. The returned slice has one entry per channel in input order.
func Fanout(ctx context.Context, bundle Bundle, channels []Channel) []Attempt {
	return FanoutWithTimeout(ctx, bundle, channels, defaultSendTimeout)
}

// FanoutWithTimeout is Fanout with an explicit per-channel send timeout.
func FanoutWithTimeout(ctx context.Context, bundle Bundle, channels []Channel, timeout time.Duration) []Attempt {
	log := logging.FromContext(ctx)
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	attempts := make([]Attempt, 0, len(channels))
	for _, ch := range channels {
		start := time.Now()
		attempt := Attempt{Channel: ch.Name()}

		if err := ch.Precheck(ctx); err != nil {
			if errors.Is(err, ErrDisabled) {
				attempt.Skipped = true
				log.Info("delivery: channel disabled, skipping", slog.String("channel", ch.Name()))
			} else {
				attempt.Err = fmt.Errorf("delivery: %s precheck: %w", ch.Name(), err)
				log.Error("delivery: precheck failed",
					slog.String("channel", ch.Name()),
					slog.Any("error", err),
				)
			}
			attempt.Duration = time.Since(start)
			attempts = append(attempts, attempt)
			continue
		}

		if err := boundedSend(ctx, ch, bundle, timeout); err != nil {
			attempt.Err = fmt.Errorf("delivery: %s send: %w", ch.Name(), err)
			log.Error("delivery: send failed",
				slog.String("channel", ch.Name()),
				slog.Any("error", err),
			)
		} else {
			log.Info("delivery: sent",
				slog.String("channel", ch.Name()),
				slog.Int("reports", len(bundle.Reports)),
				slog.Int("charts", len(bundle.Charts)),
			)
		}
		attempt.Duration = time.Since(start)
		attempts = append(attempts, attempt)
	}

	return attempts
}

// boundedSend runs one channel's Send under a deadline. The fan-out does not
// wait past the deadline even for a transport that ignores its context; the
// orphaned send is abandoned and its error discarded.
func boundedSend(ctx context.Context, ch Channel, bundle Bundle, timeout time.Duration) error {
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ch.Send(sendCtx, bundle) }()

	select {
	case err := <-done:
		return err
	case <-sendCtx.Done():
		return fmt.Errorf("timed out after %s: %w", timeout, sendCtx.Err())
	}
}

// displayName turns an artifact path into a human caption:
// "sales_by_region.png" becomes "Sales By Region".
func displayName(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	words := strings.Split(stem, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// existingFiles filters paths down to those present on disk. Missing
// artifacts are skipped rather than failing the whole send.
func existingFiles(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}
