package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/brieflyhq/briefly/internal/errdefs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func Test_Email_MissingFileYieldsDisabledDefaults(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	e := s.Email()
	if e.NotificationsEnabled {
		t.Error("defaults must be disabled")
	}
	if e.RecipientEmail != "default@example.com" || e.UserName != "User" {
		t.Errorf("unexpected defaults: %+v", e)
	}
}

func Test_Email_CorruptFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := s.Email()
	if e.NotificationsEnabled {
		t.Error("corrupt file must fall back to disabled defaults")
	}
}

func Test_SaveEmail_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	in := EmailSettings{
		RecipientEmail:       "ops@example.com",
		UserName:             "Ops Team",
		NotificationsEnabled: true,
	}
	if err := s.SaveEmail(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := s.Email()
	if got != in {
		t.Errorf("got %+v, want %+v", got, in)
	}
}

func Test_SaveEmail_RequiresRecipient(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	err := s.SaveEmail(EmailSettings{UserName: "x"})
	if !errors.Is(err, errdefs.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func Test_SaveTelegram_PreservesEmailSection(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	email := EmailSettings{RecipientEmail: "ops@example.com", UserName: "Ops", NotificationsEnabled: true}
	if err := s.SaveEmail(email); err != nil {
		t.Fatalf("save email: %v", err)
	}

	tg := TelegramSettings{PhoneNumber: "+911234567890", ChatID: "42", NotificationsEnabled: true}
	if err := s.SaveTelegram(tg); err != nil {
		t.Fatalf("save telegram: %v", err)
	}

	if got := s.Email(); got != email {
		t.Errorf("email section lost: %+v", got)
	}
	if got := s.Telegram(); got != tg {
		t.Errorf("telegram section: %+v", got)
	}
}

func Test_SaveTelegram_EnabledRequiresChatID(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	err := s.SaveTelegram(TelegramSettings{NotificationsEnabled: true})
	if !errors.Is(err, errdefs.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}

	// Disabled settings may omit the chat id.
	if err := s.SaveTelegram(TelegramSettings{}); err != nil {
		t.Fatalf("disabled save: %v", err)
	}
}

func Test_Settings_ReadFreshAfterExternalEdit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.SaveEmail(EmailSettings{RecipientEmail: "a@example.com", NotificationsEnabled: true}); err != nil {
		t.Fatal(err)
	}

	// Simulate an external writer (the API) replacing the file.
	doc := `{"email":{"recipient_email":"b@example.com","user_name":"B","notifications_enabled":false},"telegram":{}}`
	if err := os.WriteFile(s.Path(), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	got := s.Email()
	if got.RecipientEmail != "b@example.com" || got.NotificationsEnabled {
		t.Errorf("stale settings returned: %+v", got)
	}
}
