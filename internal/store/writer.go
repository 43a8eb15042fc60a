package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/regconv/internal/core"
	"github.com/JonMunkholm/regconv/internal/logging"
	"github.com/JonMunkholm/regconv/internal/registry"
)

// RecordWriter stores one conversion run. It implements core.Sink.
//
// Begin opens a transaction and records the run as running. Records are
// buffered and copied in batches. Finish copies the rest, stores the final
// totals and commits. A failed conversion is rolled back and only its
// summary is kept.
type RecordWriter struct {
	store *Store
	tx    pgx.Tx
	runID pgtype.UUID
	rows  [][]any
	saved int64
}

var _ core.Sink = (*RecordWriter)(nil)

// NewRecordWriter returns a sink that stores a run in s.
// Use one RecordWriter per conversion.
func (s *Store) NewRecordWriter() *RecordWriter {
	return &RecordWriter{store: s}
}

// Saved returns the number of records copied so far.
func (w *RecordWriter) Saved() int64 {
	return w.saved
}

// Begin implements core.Sink.
func (w *RecordWriter) Begin(ctx context.Context, result *core.ConversionResult) error {
	if w.tx != nil {
		return errors.New("record writer already in use")
	}

	id, err := toPgUUID(result.RunID)
	if err != nil {
		return err
	}

	tx, err := w.store.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := saveRun(ctx, tx, result, StatusRunning); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	w.tx = tx
	w.runID = id
	w.rows = make([][]any, 0, w.store.batchSize)
	return nil
}

// Add implements core.Sink.
func (w *RecordWriter) Add(ctx context.Context, lineNumber int, rec *registry.Record) error {
	if w.tx == nil {
		return errors.New("record writer not started")
	}

	row := make([]any, 0, len(entryColumns))
	row = append(row, w.runID, int32(lineNumber))
	for _, v := range rec.Values() {
		row = append(row, v)
	}
	w.rows = append(w.rows, row)

	if len(w.rows) >= w.store.batchSize {
		return w.flush(ctx)
	}
	return nil
}

func (w *RecordWriter) flush(ctx context.Context) error {
	if len(w.rows) == 0 {
		return nil
	}

	n, err := w.tx.CopyFrom(ctx, pgx.Identifier{entriesTable}, entryColumns, pgx.CopyFromRows(w.rows))
	if err != nil {
		return fmt.Errorf("copy %d records: %w", len(w.rows), err)
	}
	w.saved += n
	w.rows = w.rows[:0]
	return nil
}

// Finish implements core.Sink.
func (w *RecordWriter) Finish(ctx context.Context, result *core.ConversionResult) error {
	if w.tx == nil {
		return errors.New("record writer not started")
	}
	tx := w.tx
	w.tx = nil

	logger := logging.WithFields(ctx, "run_id", result.RunID)

	if result.Error != "" {
		if err := tx.Rollback(ctx); err != nil {
			logger.Warn("rollback failed", "error", err)
		}
		return w.store.SaveRun(ctx, result)
	}

	if err := w.flush(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := saveRun(ctx, tx, result, StatusComplete); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}

	logger.Debug("run stored", "records", w.saved)
	return nil
}
