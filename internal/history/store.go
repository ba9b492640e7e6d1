package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Status is the outcome of one attempt.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Attempt is one journal row.
type Attempt struct {
	ID         int64
	RunID      string
	Trigger    string
	Directory  string
	Image      string
	Video      string
	Output     string
	Status     Status
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the attempt took.
func (a Attempt) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}

// Summary counts attempts per status for one run.
type Summary struct {
	RunID     string
	Succeeded int
	Failed    int
	Skipped   int
}

// Total returns the number of attempts in the run.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// Store manages the attempt journal backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the journal at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection; one connection keeps them applied and
	// serializes writes from concurrent directory passes.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Record appends an attempt and returns its row id.
func (s *Store) Record(ctx context.Context, a Attempt) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("history store not open")
	}
	if strings.TrimSpace(a.RunID) == "" || strings.TrimSpace(a.Image) == "" {
		return 0, errors.New("attempt requires run id and image")
	}
	finished := a.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	started := a.StartedAt
	if started.IsZero() {
		started = finished
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO attempts (
            run_id, trigger_kind, directory, image, video, output,
            status, error_message, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID,
		nullableString(a.Trigger),
		a.Directory,
		a.Image,
		nullableString(a.Video),
		nullableString(a.Output),
		string(a.Status),
		nullableString(a.Error),
		started.UTC().Format(timeLayout),
		finished.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("insert attempt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

// ForImage returns every attempt recorded for an image, oldest first.
func (s *Store) ForImage(ctx context.Context, image string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE image = ? ORDER BY id`, image)
	if err != nil {
		return nil, fmt.Errorf("query attempts for image: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

// Summary counts the attempts of one run by status.
func (s *Store) Summary(ctx context.Context, runID string) (Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM attempts WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize run: %w", err)
	}
	defer rows.Close()

	summary := Summary{RunID: runID}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan summary: %w", err)
		}
		switch Status(status) {
		case StatusSucceeded:
			summary.Succeeded = count
		case StatusFailed:
			summary.Failed = count
		case StatusSkipped:
			summary.Skipped = count
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate summary: %w", err)
	}
	return summary, nil
}

// Prune deletes attempts that finished before cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM attempts WHERE finished_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
