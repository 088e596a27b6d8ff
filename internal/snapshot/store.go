// Package snapshot stores immutable, timestamped captures of listing
// payloads on the filesystem and diffs new payloads against them.
package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dealwatch/internal/domain"
)

// timeLayout is fixed-width and zero-padded so lexicographic filename
// order coincides with chronological order.
const timeLayout = "2006-01-02_150405"

// Envelope wraps one captured listing payload.
type Envelope struct {
	CapturedAt time.Time      `json:"captured_at"`
	Source     string         `json:"source"`
	Category   string         `json:"category"`
	ID         string         `json:"id"`
	Data       domain.Listing `json:"data"`
}

// Store is an append-only snapshot store partitioned by
// (source, category, external id). Snapshots are never rewritten or
// deleted.
type Store struct {
	dir    string
	logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir, logger: logger.With("component", "snapshot")}, nil
}

func (s *Store) listingDir(source, category, id string) string {
	return filepath.Join(s.dir, source, category, id)
}

// Save appends one snapshot and returns its path.
func (s *Store) Save(source, category, id string, listing domain.Listing, capturedAt time.Time) (string, error) {
	dir := s.listingDir(source, category, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create listing dir: %w", err)
	}

	env := Envelope{
		CapturedAt: capturedAt.UTC(),
		Source:     source,
		Category:   category,
		ID:         id,
		Data:       listing,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	path := filepath.Join(dir, capturedAt.UTC().Format(timeLayout)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// Latest returns the most recent snapshot, or nil when none exists.
// Corrupt entries are skipped with a warning.
func (s *Store) Latest(source, category, id string) (*Envelope, error) {
	files, err := s.snapshotFiles(source, category, id)
	if err != nil {
		return nil, err
	}
	for i := len(files) - 1; i >= 0; i-- {
		env, err := s.read(files[i])
		if err != nil {
			s.logger.Warn("skipping corrupt snapshot", "path", files[i], "error", err)
			continue
		}
		return env, nil
	}
	return nil, nil
}

// History returns all readable snapshots, newest first.
func (s *Store) History(source, category, id string) ([]Envelope, error) {
	files, err := s.snapshotFiles(source, category, id)
	if err != nil {
		return nil, err
	}
	history := make([]Envelope, 0, len(files))
	for i := len(files) - 1; i >= 0; i-- {
		env, err := s.read(files[i])
		if err != nil {
			s.logger.Warn("skipping corrupt snapshot", "path", files[i], "error", err)
			continue
		}
		history = append(history, *env)
	}
	return history, nil
}

// Has reports whether any snapshot exists for the listing.
func (s *Store) Has(source, category, id string) bool {
	files, err := s.snapshotFiles(source, category, id)
	return err == nil && len(files) > 0
}

// snapshotFiles returns snapshot paths in ascending timestamp order.
func (s *Store) snapshotFiles(source, category, id string) ([]string, error) {
	entries, err := os.ReadDir(s.listingDir(source, category, id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read listing dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(s.listingDir(source, category, id), e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (s *Store) read(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
