package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// IsRowFresh reports whether syncedAt is within budget of now, per spec.md
// §4.3's freshness predicate (now - synced_at <= freshness_budget).
func IsRowFresh(syncedAt, now time.Time, budget time.Duration) bool {
	return now.Sub(syncedAt) <= budget
}

// LastSuccessfulSyncWindow returns the [start, end] date window of the
// most recently completed successful sync run, and false if none has ever
// completed. Used to resolve OQ-1: when no sync has ever completed, the
// persistent tier is treated as empty regardless of row timestamps
// (spec.md §4.3).
func (s *Store) LastSuccessfulSyncWindow(ctx context.Context) (start, end time.Time, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT window_start, window_end
		FROM sync_history
		WHERE status = 'completed'
		ORDER BY finished_at DESC
		LIMIT 1`)
	var ws, we sql.NullTime
	if scanErr := row.Scan(&ws, &we); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return time.Time{}, time.Time{}, false, nil
		}
		return time.Time{}, time.Time{}, false, fmt.Errorf("failed to query last successful sync: %w", scanErr)
	}
	if !ws.Valid || !we.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	return ws.Time, we.Time, true, nil
}

// WindowCovers reports whether date falls within [start, end] inclusive.
func WindowCovers(start, end, date time.Time) bool {
	if date.Before(start) || date.After(end) {
		return false
	}
	return true
}
