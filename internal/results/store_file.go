package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore keeps one JSON file per correlation id under a results directory.
// Writes go through a temp file + rename so a concurrent reader never sees a
// torn record. Each id is written at most once by exactly one inbound
// callback, so no locking beyond the atomic replace is needed.
type FileStore struct {
	dir string

	// Now is injectable for tests.
	Now func() time.Time
}

func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("results: dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("results: create dir: %w", err)
	}
	return &FileStore{dir: dir, Now: time.Now}, nil
}

func (s *FileStore) path(correlationID string) (string, error) {
	if correlationID == "" || strings.ContainsAny(correlationID, `/\`) || correlationID != filepath.Base(correlationID) {
		return "", ErrInvalidCorrelationID
	}
	return filepath.Join(s.dir, correlationID+".json"), nil
}

func (s *FileStore) Save(_ context.Context, correlationID, digit string) error {
	p, err := s.path(correlationID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(newCallResult(correlationID, digit, s.Now()))
	if err != nil {
		return fmt.Errorf("results: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+correlationID+".tmp-")
	if err != nil {
		return fmt.Errorf("results: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("results: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("results: close: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("results: rename: %w", err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, correlationID string) (string, bool, error) {
	p, err := s.path(correlationID)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("results: read: %w", err)
	}
	var rec CallResult
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", false, fmt.Errorf("results: decode %s: %w", filepath.Base(p), err)
	}
	return rec.Digit, true, nil
}

func (s *FileStore) Delete(_ context.Context, correlationID string) error {
	p, err := s.path(correlationID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("results: delete: %w", err)
	}
	return nil
}

// PruneOlderThan removes result files older than age. Best-effort: unread
// records for abandoned sessions would otherwise accumulate forever.
func (s *FileStore) PruneOlderThan(age time.Duration) (removed int, err error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("results: read dir: %w", err)
	}
	cutoff := s.Now().Add(-age)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(filepath.Join(s.dir, e.Name())) == nil {
				removed++
			}
		}
	}
	return removed, nil
}
