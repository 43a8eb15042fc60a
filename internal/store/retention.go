package store

// retention.go deletes old conversion runs in the background.
//
// The job runs once on start and then every interval until its context is
// cancelled. Entries go with their run through ON DELETE CASCADE. Failures
// are logged and retried on the next tick; they never stop the server.

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const pruneRunsSQL = `DELETE FROM conversion_runs WHERE started_at < $1`

// PruneRuns deletes runs started before cutoff and returns how many went.
func (s *Store) PruneRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, pruneRunsSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// StartRetention prunes runs older than days, now and then every interval.
// It blocks until ctx is cancelled. days <= 0 returns immediately.
func (s *Store) StartRetention(ctx context.Context, days int, interval time.Duration) {
	if days <= 0 || interval <= 0 {
		return
	}
	slog.Info("retention job started", "retention_days", days, "interval", interval)

	s.runRetention(ctx, days)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention job stopped")
			return
		case <-ticker.C:
			s.runRetention(ctx, days)
		}
	}
}

func (s *Store) runRetention(ctx context.Context, days int) {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -days)

	pruned, err := s.PruneRuns(ctx, cutoff)
	if err != nil {
		slog.Error("retention failed", "error", err)
		return
	}
	slog.Info("pruned conversion runs",
		"runs_pruned", pruned,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
