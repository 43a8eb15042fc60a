package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/regconv/internal/registry"
)

const entriesTable = "registry_entries"

const createRunsSQL = `CREATE TABLE IF NOT EXISTS conversion_runs (
	id              UUID PRIMARY KEY,
	file_name       TEXT NOT NULL,
	input_encoding  TEXT NOT NULL,
	output_encoding TEXT NOT NULL,
	status          TEXT NOT NULL,
	total_rows      INTEGER NOT NULL DEFAULT 0,
	converted       INTEGER NOT NULL DEFAULT 0,
	skipped         INTEGER NOT NULL DEFAULT 0,
	truncated       INTEGER NOT NULL DEFAULT 0,
	bytes_read      BIGINT NOT NULL DEFAULT 0,
	bytes_written   BIGINT NOT NULL DEFAULT 0,
	error           TEXT,
	started_at      TIMESTAMPTZ NOT NULL,
	duration_ms     BIGINT NOT NULL DEFAULT 0
)`

// entryColumns lists the registry_entries columns in COPY order: the run,
// the source line, then every registry field in canonical order.
var entryColumns = func() []string {
	cols := []string{"run_id", "line_number"}
	for _, f := range registry.Fields() {
		cols = append(cols, f.String())
	}
	return cols
}()

func createEntriesSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS registry_entries (\n")
	b.WriteString("\trun_id      UUID NOT NULL REFERENCES conversion_runs(id) ON DELETE CASCADE,\n")
	b.WriteString("\tline_number INTEGER NOT NULL")
	for _, f := range registry.Fields() {
		fmt.Fprintf(&b, ",\n\t%s TEXT NOT NULL", f.String())
	}
	b.WriteString(",\n\tPRIMARY KEY (run_id, line_number)\n)")
	return b.String()
}

const createEntriesIndexSQL = `CREATE INDEX IF NOT EXISTS registry_entries_identity_number_idx
	ON registry_entries (identity_number)`

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createRunsSQL, createEntriesSQL(), createEntriesIndexSQL} {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
