package delivery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/brieflyhq/briefly/internal/errdefs"
	"github.com/brieflyhq/briefly/internal/settings"
)

func newEmailFixture(t *testing.T, prefs settings.EmailSettings) (*EmailChannel, *settings.Store) {
	t.Helper()
	store, err := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	if prefs.RecipientEmail != "" {
		require.NoError(t, store.SaveEmail(prefs))
	}
	cfg := SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "reports@example.com", Password: "secret"}
	return NewEmailChannel(cfg, store), store
}

func writeArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
	return path
}

func Test_EmailPrecheck_DisabledSettings(t *testing.T) {
	t.Parallel()

	ch, _ := newEmailFixture(t, settings.EmailSettings{
		RecipientEmail: "ops@example.com", NotificationsEnabled: false,
	})
	assert.ErrorIs(t, ch.Precheck(context.Background()), ErrDisabled)
}

func Test_EmailPrecheck_MissingSettingsFileIsDisabled(t *testing.T) {
	t.Parallel()

	// No settings saved: the store falls back to disabled defaults.
	ch, _ := newEmailFixture(t, settings.EmailSettings{})
	assert.ErrorIs(t, ch.Precheck(context.Background()), ErrDisabled)
}

func Test_EmailPrecheck_PlaceholderRecipientRefused(t *testing.T) {
	t.Parallel()

	// A settings file that enables email but still carries the shipped
	// placeholder recipient is unconfigured, not deliverable.
	ch, _ := newEmailFixture(t, settings.EmailSettings{
		RecipientEmail: settings.PlaceholderRecipient, NotificationsEnabled: true,
	})
	err := ch.Precheck(context.Background())
	require.ErrorIs(t, err, errdefs.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "recipient")
}

func Test_EmailPrecheck_MissingCredentials(t *testing.T) {
	t.Parallel()

	store, err := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	require.NoError(t, store.SaveEmail(settings.EmailSettings{
		RecipientEmail: "ops@example.com", NotificationsEnabled: true,
	}))

	ch := NewEmailChannel(SMTPConfig{Host: "smtp.example.com"}, store)
	err = ch.Precheck(context.Background())
	require.ErrorIs(t, err, errdefs.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "SMTP")
}

func Test_EmailSend_BuildsMessageWithChartsAndReports(t *testing.T) {
	t.Parallel()

	ch, _ := newEmailFixture(t, settings.EmailSettings{
		RecipientEmail: "ops@example.com", UserName: "Ops", NotificationsEnabled: true,
	})

	var captured *mail.Msg
	ch.send = func(_ context.Context, _ SMTPConfig, msg *mail.Msg) error {
		captured = msg
		return nil
	}

	dir := t.TempDir()
	bundle := Bundle{
		Reports:     []string{writeArtifact(t, dir, "sales_report_20260314.txt")},
		Charts:      []string{writeArtifact(t, dir, "sales_by_region.png")},
		GeneratedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, ch.Send(context.Background(), bundle))
	require.NotNil(t, captured)

	subjects := captured.GetGenHeader(mail.HeaderSubject)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Sales & Marketing Report - March 14, 2026", subjects[0])

	// One embed per chart, one attachment per report.
	assert.Len(t, captured.GetEmbeds(), 1)
	assert.Len(t, captured.GetAttachments(), 1)
}

func Test_EmailSend_SkipsMissingArtifacts(t *testing.T) {
	t.Parallel()

	ch, _ := newEmailFixture(t, settings.EmailSettings{
		RecipientEmail: "ops@example.com", NotificationsEnabled: true,
	})

	var captured *mail.Msg
	ch.send = func(_ context.Context, _ SMTPConfig, msg *mail.Msg) error {
		captured = msg
		return nil
	}

	dir := t.TempDir()
	bundle := Bundle{
		Reports:     []string{writeArtifact(t, dir, "sales_report_20260314.txt"), filepath.Join(dir, "gone.txt")},
		GeneratedAt: time.Now(),
	}
	require.NoError(t, ch.Send(context.Background(), bundle))
	assert.Len(t, captured.GetAttachments(), 1)
}

func Test_EmailSend_NothingDeliverable(t *testing.T) {
	t.Parallel()

	ch, _ := newEmailFixture(t, settings.EmailSettings{
		RecipientEmail: "ops@example.com", NotificationsEnabled: true,
	})
	ch.send = func(context.Context, SMTPConfig, *mail.Msg) error {
		t.Fatal("send must not be called")
		return nil
	}

	err := ch.Send(context.Background(), Bundle{
		Reports:     []string{filepath.Join(t.TempDir(), "gone.txt")},
		GeneratedAt: time.Now(),
	})
	assert.ErrorIs(t, err, errdefs.ErrDelivery)
}

func Test_EmailSend_RelayFailureWrapped(t *testing.T) {
	t.Parallel()

	ch, _ := newEmailFixture(t, settings.EmailSettings{
		RecipientEmail: "ops@example.com", NotificationsEnabled: true,
	})
	ch.send = func(context.Context, SMTPConfig, *mail.Msg) error {
		return errors.New("554 rejected")
	}

	dir := t.TempDir()
	err := ch.Send(context.Background(), Bundle{
		Reports:     []string{writeArtifact(t, dir, "sales_report_20260314.txt")},
		GeneratedAt: time.Now(),
	})
	require.ErrorIs(t, err, errdefs.ErrDelivery)
	assert.Contains(t, err.Error(), "554 rejected")
}

func Test_HTMLBody_ReferencesChartsByCID(t *testing.T) {
	t.Parallel()

	body := htmlBody("March 14, 2026", "Ops", []string{"/tmp/charts/sales_by_region.png"})
	assert.Contains(t, body, `cid:sales_by_region.png`)
	assert.Contains(t, body, "Hello Ops!")
	assert.Contains(t, body, "March 14, 2026")
}

func Test_HTMLBody_FallbackGreeting(t *testing.T) {
	t.Parallel()

	body := htmlBody("March 14, 2026", "", nil)
	assert.Contains(t, body, "Hello there!")
}
