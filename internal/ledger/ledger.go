package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"motionmux/internal/logging"
)

// ErrCorrupt is returned when the ledger file exists but cannot be decoded.
var ErrCorrupt = errors.New("ledger file is corrupt")

// Entry is the persisted value for one processed image.
type Entry struct {
	Video     *string `json:"video"`
	Timestamp float64 `json:"timestamp"`
}

// VideoPath returns the paired video path, or "" for image-only entries.
func (e Entry) VideoPath() string {
	if e.Video == nil {
		return ""
	}
	return *e.Video
}

// Time converts the epoch-seconds timestamp to a time.Time.
func (e Entry) Time() time.Time {
	sec, frac := math.Modf(e.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Record pairs an image path with its entry for listings.
type Record struct {
	Image string
	Entry Entry
}

// Ledger provides mutex-guarded access to the processed-image file.
type Ledger struct {
	path    string
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]Entry
}

// Open loads the ledger at path. A missing file yields an empty ledger; a file
// that cannot be parsed yields an error wrapping ErrCorrupt.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ledger path is required")
	}
	l := &Ledger{
		path:    path,
		logger:  logging.NewComponentLogger(logger, "ledger"),
		now:     time.Now,
		entries: make(map[string]Entry),
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// SetClock replaces the time source used by Record.
func (l *Ledger) SetClock(now func() time.Time) {
	if l == nil || now == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Path returns the backing file location.
func (l *Ledger) Path() string {
	return l.path
}

// Lookup returns the entry for an image path if it has been recorded.
func (l *Ledger) Lookup(imagePath string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[imagePath]
	return entry, ok
}

// Contains reports whether an image path has been recorded.
func (l *Ledger) Contains(imagePath string) bool {
	_, ok := l.Lookup(imagePath)
	return ok
}

// Snapshot returns a copy of the full mapping.
func (l *Ledger) Snapshot() map[string]Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Entry, len(l.entries))
	for image, entry := range l.entries {
		out[image] = entry
	}
	return out
}

// Record marks imagePath as processed, paired with videoPath ("" for none),
// and rewrites the ledger file. An existing entry is overwritten.
func (l *Ledger) Record(imagePath, videoPath string) (Entry, error) {
	if strings.TrimSpace(imagePath) == "" {
		return Entry{}, errors.New("image path cannot be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{Timestamp: epochSeconds(l.now())}
	if videoPath != "" {
		video := videoPath
		entry.Video = &video
	}

	previous, existed := l.entries[imagePath]
	l.entries[imagePath] = entry
	if err := l.save(); err != nil {
		if existed {
			l.entries[imagePath] = previous
		} else {
			delete(l.entries, imagePath)
		}
		return Entry{}, fmt.Errorf("persist ledger: %w", err)
	}

	l.logger.Debug("recorded processed image",
		logging.String("image", imagePath),
		logging.String("video", videoPath))
	return entry, nil
}

// Remove forgets an image so it becomes eligible for processing again.
func (l *Ledger) Remove(imagePath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	previous, exists := l.entries[imagePath]
	if !exists {
		return fmt.Errorf("image %q not found in ledger", imagePath)
	}
	delete(l.entries, imagePath)
	if err := l.save(); err != nil {
		l.entries[imagePath] = previous
		return fmt.Errorf("persist ledger: %w", err)
	}
	l.logger.Debug("removed image from ledger", logging.String("image", imagePath))
	return nil
}

// Clear removes all entries and persists the empty ledger.
func (l *Ledger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	previous := l.entries
	l.entries = make(map[string]Entry)
	if err := l.save(); err != nil {
		l.entries = previous
		return fmt.Errorf("persist ledger: %w", err)
	}
	l.logger.Debug("cleared ledger")
	return nil
}

// List returns all records sorted by timestamp, newest first.
func (l *Ledger) List() []Record {
	l.mu.Lock()
	records := make([]Record, 0, len(l.entries))
	for image, entry := range l.entries {
		records = append(records, Record{Image: image, Entry: entry})
	}
	l.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].Entry.Timestamp != records[j].Entry.Timestamp {
			return records[i].Entry.Timestamp > records[j].Entry.Timestamp
		}
		return records[i].Image < records[j].Image
	})
	return records
}

// Count returns the number of recorded images.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger) load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read ledger file: %w", err)
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorrupt, l.path, err)
	}
	if entries == nil {
		return fmt.Errorf("%w: %s: expected a JSON object", ErrCorrupt, l.path)
	}
	l.entries = entries

	l.logger.Debug("loaded ledger",
		logging.Int("entry_count", len(l.entries)),
		logging.String("path", l.path))
	return nil
}

// save rewrites the file in place. Callers hold l.mu.
func (l *Ledger) save() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}
	return nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
