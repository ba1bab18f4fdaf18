package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Store persists a finished (or aborted) run as one timestamp-named JSON
// array under dir.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger, now: time.Now}
}

// Persist writes records as a pretty-printed JSON array named after the
// current minute (YYYYMMDD_HHMM.json). Nothing is written for an empty run;
// a rerun within the same minute overwrites. Non-ASCII keys and values are
// written as-is.
func (s *Store) Persist(records []Record) (string, error) {
	if len(records) == 0 {
		s.logger.Info("store.persist.skipped", "reason", "no records")
		return "", nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("encode records: %w", err)
	}

	path := filepath.Join(s.dir, s.now().Format("20060102_1504")+".json")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}

	s.logger.Info("store.persist.ok", "path", path, "records", len(records))
	return path, nil
}
