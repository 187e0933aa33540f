package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ashgrove-systems/mto-gateway/internal/gwerrors"
)

// HistoryEntry is one terminal sync run, append-only (spec.md §3/§4.12).
type HistoryEntry struct {
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        SyncStatus
	DaysBack      int
	RecordsSynced int
	ErrorMessage  string
	WindowStart   time.Time
	WindowEnd     time.Time
}

// AppendHistory appends a terminal run record.
func (s *Store) AppendHistory(ctx context.Context, e HistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_history (
			started_at, finished_at, status, days_back, records_synced, error_message, window_start, window_end
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.StartedAt, e.FinishedAt, string(e.Status), e.DaysBack, e.RecordsSynced,
		nullableString(e.ErrorMessage), e.WindowStart, e.WindowEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to append sync history: %w", err)
	}
	return nil
}

// RecentHistory returns the last limit entries, most recent first
// (spec.md §6 GetSyncHistory(limit)).
func (s *Store) RecentHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		return nil, gwerrors.Newf(gwerrors.KindValidationError, "limit must be > 0, got %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT started_at, finished_at, status, days_back, records_synced, error_message, window_start, window_end
		FROM sync_history ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var status string
		var errMsg sql.NullString
		var ws, we sql.NullTime
		if err := rows.Scan(&e.StartedAt, &e.FinishedAt, &status, &e.DaysBack, &e.RecordsSynced, &errMsg, &ws, &we); err != nil {
			return nil, fmt.Errorf("failed to scan sync history entry: %w", err)
		}
		e.Status = SyncStatus(status)
		e.ErrorMessage = errMsg.String
		if ws.Valid {
			e.WindowStart = ws.Time
		}
		if we.Valid {
			e.WindowEnd = we.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
