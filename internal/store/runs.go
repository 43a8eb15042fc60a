package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/regconv/internal/core"
)

// Run statuses stored in conversion_runs.status.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// ErrRunNotFound is returned by GetRun for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// Run is a stored conversion summary.
type Run struct {
	ID             string        `json:"id"`
	FileName       string        `json:"fileName"`
	InputEncoding  string        `json:"inputEncoding"`
	OutputEncoding string        `json:"outputEncoding"`
	Status         string        `json:"status"`
	TotalRows      int           `json:"totalRows"`
	Converted      int           `json:"converted"`
	Skipped        int           `json:"skipped"`
	Truncated      int           `json:"truncated"`
	BytesRead      int64         `json:"bytesRead"`
	BytesWritten   int64         `json:"bytesWritten"`
	Error          string        `json:"error,omitempty"`
	StartedAt      time.Time     `json:"startedAt"`
	Duration       time.Duration `json:"duration"`
}

const upsertRunSQL = `INSERT INTO conversion_runs (
	id, file_name, input_encoding, output_encoding, status,
	total_rows, converted, skipped, truncated,
	bytes_read, bytes_written, error, started_at, duration_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	total_rows = EXCLUDED.total_rows,
	converted = EXCLUDED.converted,
	skipped = EXCLUDED.skipped,
	truncated = EXCLUDED.truncated,
	bytes_read = EXCLUDED.bytes_read,
	bytes_written = EXCLUDED.bytes_written,
	error = EXCLUDED.error,
	duration_ms = EXCLUDED.duration_ms`

const getRunSQL = `SELECT
	id, file_name, input_encoding, output_encoding, status,
	total_rows, converted, skipped, truncated,
	bytes_read, bytes_written, error, started_at, duration_ms
FROM conversion_runs WHERE id = $1`

// SaveRun inserts or updates the summary of a conversion run.
func (s *Store) SaveRun(ctx context.Context, result *core.ConversionResult) error {
	return saveRun(ctx, s.db, result, runStatus(result))
}

func saveRun(ctx context.Context, db execer, result *core.ConversionResult, status string) error {
	id, err := toPgUUID(result.RunID)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, upsertRunSQL,
		id,
		result.FileName,
		result.InputEncoding,
		result.OutputEncoding,
		status,
		result.TotalRows,
		result.Converted,
		result.Skipped,
		result.Truncated,
		result.BytesRead,
		result.BytesWritten,
		toPgText(result.Error),
		result.StartedAt,
		result.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}
	return nil
}

// GetRun loads a stored run summary.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	id, err := toPgUUID(runID)
	if err != nil {
		return nil, err
	}

	var (
		run        Run
		pgID       pgtype.UUID
		errText    pgtype.Text
		durationMs int64
	)
	err = s.db.QueryRow(ctx, getRunSQL, id).Scan(
		&pgID,
		&run.FileName,
		&run.InputEncoding,
		&run.OutputEncoding,
		&run.Status,
		&run.TotalRows,
		&run.Converted,
		&run.Skipped,
		&run.Truncated,
		&run.BytesRead,
		&run.BytesWritten,
		&errText,
		&run.StartedAt,
		&durationMs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	run.ID = uuidToString(pgID)
	run.Error = errText.String
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}

func runStatus(result *core.ConversionResult) string {
	if result.Error != "" {
		return StatusFailed
	}
	return StatusComplete
}

func toPgUUID(s string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid run id %q: %w", s, err)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}
