package study

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const snapshotFile = "snapshot.msgpack"

// SnapshotStore persists study results as msgpack files, one directory per
// study ID, alongside any rendered charts.
type SnapshotStore struct {
	baseDir string
	log     zerolog.Logger
}

// NewSnapshotStore creates a snapshot store rooted at baseDir
func NewSnapshotStore(baseDir string, log zerolog.Logger) (*SnapshotStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &SnapshotStore{
		baseDir: baseDir,
		log:     log.With().Str("component", "snapshots").Logger(),
	}, nil
}

// Dir returns the directory that holds one study's artifacts
func (s *SnapshotStore) Dir(id string) string {
	return filepath.Join(s.baseDir, id)
}

// Save writes the study result as msgpack
func (s *SnapshotStore) Save(result *Result) error {
	dir := s.Dir(result.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create study directory: %w", err)
	}

	data, err := msgpack.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := filepath.Join(dir, snapshotFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	s.log.Debug().Str("id", result.ID).Str("path", path).Msg("Snapshot saved")
	return nil
}

// Load reads one study result back
func (s *SnapshotStore) Load(id string) (*Result, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(id), snapshotFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", id, err)
	}

	var result Result
	if err := msgpack.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", id, err)
	}
	return &result, nil
}

// Summary is one row of the study listing
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Assets    int       `json:"assets"`
}

// List returns all stored studies, newest first. Unreadable entries are
// skipped with a warning.
func (s *SnapshotStore) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var summaries []Summary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		result, err := s.Load(e.Name())
		if err != nil {
			s.log.Warn().Err(err).Str("id", e.Name()).Msg("Skipping unreadable snapshot")
			continue
		}
		summaries = append(summaries, Summary{
			ID:        result.ID,
			Name:      result.Name,
			CreatedAt: result.CreatedAt,
			Assets:    len(result.Assets),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}
