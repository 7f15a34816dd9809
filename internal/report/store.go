// Package report persists generated report text files and resolves the most
// recent artifact for delivery. Reports are plain text named by kind and
// calendar day; the daily cadence means at most one authoritative report per
// kind per day, so same-day saves overwrite deterministically.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brieflyhq/briefly/internal/errdefs"
)

// Kind identifies the report family an artifact belongs to.
type Kind string

const (
	// KindSales is the sales performance report.
	KindSales Kind = "sales"
	// KindMarketing is the marketing performance report.
	KindMarketing Kind = "marketing"
	// KindSummary is the combined executive summary report.
	KindSummary Kind = "summary"
	// KindCustom is an ad-hoc report from a caller-supplied query.
	KindCustom Kind = "custom"
)

// Valid reports whether k is a known report kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSales, KindMarketing, KindSummary, KindCustom:
		return true
	}
	return false
}

// Store writes and resolves report artifacts under a reports directory.
type Store struct {
	// dir is the primary reports directory.
	dir string

	// fallbackDir is an optional secondary directory scanned by FindLatest.
	fallbackDir string

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithFallbackDir adds a secondary directory that FindLatest also scans.
// Used when older artifacts live in a legacy location.
func WithFallbackDir(dir string) Option {
	return func(s *Store) { s.fallbackDir = dir }
}

// WithClock replaces the store's clock. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore constructs a Store rooted at dir, creating it if necessary.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errdefs.InvalidArgumentf("report: reports dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errdefs.Persistencef("report: create reports dir %s: %v", dir, err)
	}

	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the primary reports directory.
func (s *Store) Dir() string { return s.dir }

// Filename returns the canonical artifact filename for a kind and day:
// <kind>_report_<YYYYMMDD>.txt.
func Filename(kind Kind, asOf time.Time) string {
	return fmt.Sprintf("%s_report_%s.txt", kind, asOf.Format("20060102"))
}

// Save writes content as the report of the given kind for the asOf day and
// returns the absolute artifact path. A same-day save for the same kind
// overwrites the previous artifact; MoveTo is the escape hatch for keeping
// multiple versions.
func (s *Store) Save(content string, kind Kind, asOf time.Time) (string, error) {
	if !kind.Valid() {
		return "", errdefs.InvalidArgumentf("report: unknown kind %q", kind)
	}
	if content == "" {
		return "", errdefs.InvalidArgumentf("report: content must not be empty")
	}
	if asOf.IsZero() {
		asOf = s.now()
	}

	path := filepath.Join(s.dir, Filename(kind, asOf))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errdefs.Persistencef("report: write %s: %v", path, err)
	}
	return path, nil
}

// MoveTo relocates an artifact into dir, creating dir if necessary.
// Moving a file that is already inside dir is a no-op. A name collision at
// the destination appends a _YYYYMMDDHHMMSS suffix rather than silently
// overwriting. Returns the final path.
func (s *Store) MoveTo(artifact, dir string) (string, error) {
	if artifact == "" || dir == "" {
		return "", errdefs.InvalidArgumentf("report: artifact and dir must not be empty")
	}
	if _, err := os.Stat(artifact); err != nil {
		return "", errdefs.Persistencef("report: stat %s: %v", artifact, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errdefs.Persistencef("report: create dir %s: %v", dir, err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", errdefs.Persistencef("report: resolve %s: %v", dir, err)
	}
	absArtifact, err := filepath.Abs(artifact)
	if err != nil {
		return "", errdefs.Persistencef("report: resolve %s: %v", artifact, err)
	}
	if filepath.Dir(absArtifact) == absDir {
		return absArtifact, nil
	}

	dest := filepath.Join(absDir, filepath.Base(absArtifact))
	if _, err := os.Stat(dest); err == nil {
		base := filepath.Base(absArtifact)
		ext := filepath.Ext(base)
		stem := base[:len(base)-len(ext)]
		stamp := s.now().Format("20060102150405")
		// The suffixed name can collide too when two moves land within the
		// same second; count up until a free name is found.
		dest = filepath.Join(absDir, fmt.Sprintf("%s_%s%s", stem, stamp, ext))
		for n := 1; ; n++ {
			if _, err := os.Stat(dest); err != nil {
				break
			}
			dest = filepath.Join(absDir, fmt.Sprintf("%s_%s_%d%s", stem, stamp, n, ext))
		}
	}

	if err := os.Rename(absArtifact, dest); err != nil {
		return "", errdefs.Persistencef("report: move %s to %s: %v", absArtifact, dest, err)
	}
	return dest, nil
}

// FindLatest returns the most recently modified file matching the glob
// pattern in the reports dir, consulting the fallback dir as well when
// configured. Returns "" with no error when nothing matches.
func (s *Store) FindLatest(pattern string) (string, error) {
	if pattern == "" {
		pattern = "*_report_*.txt"
	}

	dirs := []string{s.dir}
	if s.fallbackDir != "" {
		dirs = append(dirs, s.fallbackDir)
	}

	var latest string
	var latestMod time.Time
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", errdefs.InvalidArgumentf("report: bad pattern %q: %v", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if info.ModTime().After(latestMod) {
				latest = m
				latestMod = info.ModTime()
			}
		}
	}

	return latest, nil
}

// LatestForKind returns the newest artifact of the given kind, or "" when the
// kind has never been generated.
func (s *Store) LatestForKind(kind Kind) (string, error) {
	if !kind.Valid() {
		return "", errdefs.InvalidArgumentf("report: unknown kind %q", kind)
	}
	return s.FindLatest(fmt.Sprintf("%s_report_*.txt", kind))
}

// Read returns the contents of an artifact.
func (s *Store) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errdefs.Persistencef("report: read %s: %v", path, err)
	}
	return string(data), nil
}
