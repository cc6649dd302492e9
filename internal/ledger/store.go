package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store persists a Ledger as a single JSON document.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store backed by the given file path
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted ledger. A missing file yields an empty ledger.
// A malformed file also yields an empty ledger, but is logged loudly since
// recovery discards all recorded history and forces a full reprocess.
func (s *Store) Load() (Ledger, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read ledger file %s: %w", s.path, err)
	}

	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		s.logger.Warn("ledger file is malformed, discarding recorded history (all assets will be reprocessed)",
			"path", s.path,
			"error", err)
		return New(), nil
	}
	if l == nil {
		l = New()
	}

	return l, nil
}

// Save writes the complete ledger, replacing any prior content. The
// document is written to a temp file in the same directory and renamed
// into place so a failed write never corrupts previously-good data.
func (s *Store) Save(l Ledger) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(s.path), ".iconsyncd-ledger-*")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp ledger file: %w", err)
	}
	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	return nil
}
