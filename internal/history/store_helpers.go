package history

import (
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const attemptColumns = "id, run_id, trigger_kind, directory, image, video, output, status, error_message, started_at, finished_at"

func scanAttempt(scanner interface{ Scan(dest ...any) error }) (Attempt, error) {
	var (
		attempt     Attempt
		trigger     sql.NullString
		video       sql.NullString
		output      sql.NullString
		status      string
		errMessage  sql.NullString
		startedRaw  string
		finishedRaw string
	)
	if err := scanner.Scan(
		&attempt.ID,
		&attempt.RunID,
		&trigger,
		&attempt.Directory,
		&attempt.Image,
		&video,
		&output,
		&status,
		&errMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	attempt.Trigger = trigger.String
	attempt.Video = video.String
	attempt.Output = output.String
	attempt.Status = Status(status)
	attempt.Error = errMessage.String
	attempt.StartedAt = parseTime(startedRaw)
	attempt.FinishedAt = parseTime(finishedRaw)
	return attempt, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
