// Package settings stores user-mutable delivery preferences in a JSON file.
// Settings are read fresh on every access so a change made through the API
// takes effect at the next delivery without a restart.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/brieflyhq/briefly/internal/errdefs"
)

// EmailSettings holds the email delivery preferences.
type EmailSettings struct {
	// RecipientEmail is the address reports are sent to.
	RecipientEmail string `json:"recipient_email"`
	// UserName is the greeting name used in the email body.
	UserName string `json:"user_name"`
	// NotificationsEnabled gates email delivery.
	NotificationsEnabled bool `json:"notifications_enabled"`
}

// TelegramSettings holds the Telegram delivery preferences.
type TelegramSettings struct {
	// PhoneNumber is the user's phone number, kept for display only.
	PhoneNumber string `json:"phone_number"`
	// ChatID is the Telegram chat the bot sends to.
	ChatID string `json:"chat_id"`
	// NotificationsEnabled gates Telegram delivery.
	NotificationsEnabled bool `json:"notifications_enabled"`
}

// fileSchema is the on-disk JSON document holding both channels.
type fileSchema struct {
	Email    EmailSettings    `json:"email"`
	Telegram TelegramSettings `json:"telegram"`
}

// PlaceholderRecipient is the recipient shipped in the unconfigured defaults.
// Delivery prechecks treat it the same as no recipient at all.
const PlaceholderRecipient = "default@example.com"

// defaultEmail is returned when no settings file exists or it is unreadable.
// Delivery stays disabled until the user configures a real recipient.
func defaultEmail() EmailSettings {
	return EmailSettings{
		RecipientEmail:       PlaceholderRecipient,
		UserName:             "User",
		NotificationsEnabled: false,
	}
}

// defaultTelegram mirrors defaultEmail for the Telegram channel.
func defaultTelegram() TelegramSettings {
	return TelegramSettings{NotificationsEnabled: false}
}

// Store reads and writes the settings file. Safe for concurrent use.
type Store struct {
	// path is the settings JSON file location.
	path string

	// mu serialises writers.
	mu sync.Mutex
}

// NewStore constructs a Store for the given settings file path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errdefs.InvalidArgumentf("settings: path must not be empty")
	}
	return &Store{path: path}, nil
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Email returns the current email settings, reading the file fresh.
// A missing or corrupt file yields the disabled defaults, never an error:
// delivery preconditions handle the disabled state downstream.
func (s *Store) Email() EmailSettings {
	doc, err := s.read()
	if err != nil || doc.Email.RecipientEmail == "" {
		return defaultEmail()
	}
	return doc.Email
}

// Telegram returns the current Telegram settings, reading the file fresh.
func (s *Store) Telegram() TelegramSettings {
	doc, err := s.read()
	if err != nil {
		return defaultTelegram()
	}
	return doc.Telegram
}

// SaveEmail persists new email settings, preserving the Telegram section.
func (s *Store) SaveEmail(e EmailSettings) error {
	if e.RecipientEmail == "" {
		return errdefs.InvalidArgumentf("settings: recipient email must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _ := s.read()
	doc.Email = e
	return s.write(doc)
}

// SaveTelegram persists new Telegram settings, preserving the email section.
func (s *Store) SaveTelegram(t TelegramSettings) error {
	if t.NotificationsEnabled && t.ChatID == "" {
		return errdefs.InvalidArgumentf("settings: chat_id is required when telegram notifications are enabled")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _ := s.read()
	doc.Telegram = t
	return s.write(doc)
}

// read loads the on-disk document.
func (s *Store) read() (fileSchema, error) {
	var doc fileSchema
	data, err := os.ReadFile(s.path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fileSchema{}, err
	}
	return doc, nil
}

// write persists the document atomically via a temp file rename.
func (s *Store) write(doc fileSchema) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errdefs.Persistencef("settings: create dir: %v", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errdefs.Persistencef("settings: marshal: %v", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdefs.Persistencef("settings: write %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errdefs.Persistencef("settings: rename %s: %v", s.path, err)
	}
	return nil
}
