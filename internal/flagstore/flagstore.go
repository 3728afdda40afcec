// Package flagstore persists flagged catalog items to an append-only,
// line-delimited JSON log. The log is the sole durable state the scanner
// produces; a failed append is fatal to the run that caused it.
package flagstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/ugcscan/ugcscan-go/internal/logging"
)

var (
	serviceLogger *slog.Logger
	loggerOnce    sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logging.ForService("flagstore")
	})
	return serviceLogger
}

// FlaggedItem is one record of the flag log. The field set and names are the
// log's wire contract; price is null for items not for sale.
type FlaggedItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       *int64 `json:"price"`
	CreatorName string `json:"creatorName"`
	Thumbnail   string `json:"thumbnail"`
}

// Store appends flagged items to the log file. Appends are serialized with a
// file lock so a concurrent writer (a second process, against the design's
// single-writer assumption) cannot interleave partial lines.
type Store struct {
	path     string
	dedupe   bool
	fileLock *flock.Flock

	mu   sync.Mutex
	seen map[int64]struct{} // nil unless dedupe is enabled
}

// Open prepares a store writing to path, creating parent directories as
// needed. With dedupe enabled the ids already present in the log are indexed
// and re-appends of the same id become no-ops.
func Open(path string, dedupe bool) (*Store, error) {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	s := &Store{
		path:     path,
		dedupe:   dedupe,
		fileLock: flock.New(path + ".lock"),
	}

	if dedupe {
		s.seen = make(map[int64]struct{})
		items, err := ReadAll(path)
		if err != nil {
			return nil, fmt.Errorf("indexing existing flag log: %w", err)
		}
		for i := range items {
			s.seen[items[i].ID] = struct{}{}
		}
		getLogger().Debug("indexed existing flag log",
			"path", path,
			"known_ids", len(s.seen))
	}

	return s, nil
}

// Append serializes the item to one JSON line and appends it to the log,
// creating the file if absent.
func (s *Store) Append(item FlaggedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dedupe {
		if _, ok := s.seen[item.ID]; ok {
			getLogger().Debug("skipping already flagged item", "id", item.ID)
			return nil
		}
	}

	line, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("serializing flagged item %d: %w", item.ID, err)
	}

	if err := s.fileLock.Lock(); err != nil {
		return fmt.Errorf("locking flag log: %w", err)
	}
	defer func() {
		if err := s.fileLock.Unlock(); err != nil {
			getLogger().Warn("failed to unlock flag log", "error", err)
		}
	}()

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening flag log: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			getLogger().Warn("failed to close flag log", "error", err)
		}
	}()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending to flag log: %w", err)
	}

	if s.dedupe {
		s.seen[item.ID] = struct{}{}
	}
	return nil
}

// ReadAll loads every record in the log. A missing file is an empty log.
// Blank lines are skipped; a malformed line is an error, the log is written
// only by Append and corruption should not pass silently.
func ReadAll(path string) ([]FlaggedItem, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening flag log: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			getLogger().Warn("failed to close flag log", "error", err)
		}
	}()

	var items []FlaggedItem
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item FlaggedItem
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("malformed flag log line: %w", err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading flag log: %w", err)
	}
	return items, nil
}
