// Package docstore persists named JSON documents in a data directory.
//
// It backs the knowledge base and the error log. The contract is
// deliberately forgiving: a load never fails (corrupt or unreadable
// documents fall back to a caller-supplied default), and a save either
// fully replaces the previous document or leaves it untouched.
package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Store reads and writes named JSON documents under a single directory.
type Store struct {
	dir   string
	clock Clock
}

// Open creates (if needed) the data directory and returns a Store rooted there.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{dir: dir, clock: realClock{}}, nil
}

// OpenWithClock is like Open but with a custom clock (for testing
// quarantine file naming).
func OpenWithClock(dir string, clock Clock) (*Store, error) {
	s, err := Open(dir)
	if err != nil {
		return nil, err
	}
	s.clock = clock
	return s, nil
}

// Dir returns the data directory the store is rooted at.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Load reads the document under name into a value of type T.
//
// Load never fails from the caller's perspective:
//   - If no document exists, def is persisted as the initial document and
//     returned.
//   - If the document exists but does not parse, or holds a bare null, it
//     is quarantined (renamed with a .bad_<timestamp> suffix, never
//     deleted) and def is returned.
//   - Any other read failure is logged and def is returned.
func Load[T any](s *Store, name string, def T) T {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			if saveErr := s.Save(name, def); saveErr != nil {
				slog.Warn("could not persist initial document", "name", name, "error", saveErr)
			}
			return def
		}
		slog.Warn("could not read document, using default", "name", name, "error", err)
		return def
	}

	// A bare null parses cleanly but leaves a nil map or slice, which is no
	// more usable than a syntax error.
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		slog.Warn("document is null, quarantining", "name", name)
		s.quarantine(name)
		return def
	}

	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("could not parse document, quarantining", "name", name, "error", err)
		s.quarantine(name)
		return def
	}
	return doc
}

// Save writes the document under name atomically: the content is written to
// a temporary file in the same directory and renamed over the previous
// version, so readers never observe a partial write. On failure the previous
// on-disk content is left intact and the error is returned (and logged);
// callers treat save failures as reported, not fatal.
func (s *Store) Save(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		slog.Error("could not marshal document", "name", name, "error", err)
		return fmt.Errorf("marshalling %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		slog.Error("could not create temp file", "name", name, "error", err)
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		slog.Error("could not write document", "name", name, "error", err)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		slog.Error("could not close temp file", "name", name, "error", err)
		return fmt.Errorf("closing temp file for %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, s.path(name)); err != nil {
		os.Remove(tmpPath)
		slog.Error("could not replace document", "name", name, "error", err)
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

// quarantine renames an unreadable document so the raw bytes stay on disk
// for inspection. The suffix carries a timestamp; a counter is appended on
// collision.
func (s *Store) quarantine(name string) {
	src := s.path(name)
	base := fmt.Sprintf("%s.bad_%s", src, s.clock.Now().Format("20060102150405"))

	dst := base
	for i := 1; ; i++ {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			break
		}
		dst = fmt.Sprintf("%s_%d", base, i)
	}

	if err := os.Rename(src, dst); err != nil {
		slog.Error("could not quarantine corrupt document", "name", name, "error", err)
		return
	}
	slog.Info("quarantined corrupt document", "name", name, "backup", filepath.Base(dst))
}
