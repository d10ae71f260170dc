package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mediagrab/media-downloader/internal/model"
)

// MaxRecords caps how many history entries are kept on disk.
const MaxRecords = 200

// Store persists download history as a JSON array, newest first.
type Store struct {
	path string

	mu      sync.Mutex
	records []model.HistoryRecord
}

// NewStore loads the history file at path, tolerating a missing file.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		// A damaged history file should not block downloads; start fresh.
		s.records = nil
	}
	return s, nil
}

// Append adds a record at the front, prunes to MaxRecords, and saves.
func (s *Store) Append(rec model.HistoryRecord) error {
	s.mu.Lock()
	s.records = append([]model.HistoryRecord{rec}, s.records...)
	if len(s.records) > MaxRecords {
		s.records = s.records[:MaxRecords]
	}
	s.mu.Unlock()
	return s.save()
}

// All returns a copy of the stored records, newest first.
func (s *Store) All() []model.HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.HistoryRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Clear removes every record and saves.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
	return s.save()
}

func (s *Store) save() error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.records, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create history dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return os.Rename(tmp, s.path)
}
