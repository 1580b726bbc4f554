// Package snapshot persists the last-synced view of the source corpus and
// classifies pages against it so the indexer only reprocesses what changed.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kart-io/abhyasam/pkg/utils/json"
)

// Record is one page as it looked at the end of the previous sync.
type Record struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	LastEditedTime string `json:"last_edited_time"`
}

// Change classifies a source page relative to the snapshot.
type Change int

const (
	// Unchanged means the stored last_edited_time matches exactly.
	Unchanged Change = iota
	// New means the page is absent from the snapshot.
	New
	// Updated means the page exists but its last_edited_time differs.
	Updated
)

func (c Change) String() string {
	switch c {
	case New:
		return "new"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Store reads and writes the snapshot file.
type Store struct {
	path string
}

// NewStore creates a snapshot store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads all records. A missing file is an empty corpus, not an error.
func (s *Store) Load() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Record{}, nil
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", s.path, err)
	}

	byID := make(map[string]Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	return byID, nil
}

// Save writes all records, replacing the file atomically so a crashed sync
// never leaves a half-written snapshot behind.
func (s *Store) Save(records []Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Classify determines how a page changed relative to the snapshot.
// With force set, every page is treated as Updated for a full refresh.
func Classify(prev map[string]Record, pageID, lastEditedTime string, force bool) Change {
	if force {
		return Updated
	}
	old, ok := prev[pageID]
	if !ok {
		return New
	}
	if old.LastEditedTime == lastEditedTime {
		return Unchanged
	}
	return Updated
}
