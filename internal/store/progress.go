package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SyncStatus enumerates the orchestrator's state machine (spec.md §4.6).
type SyncStatus string

const (
	SyncStatusIdle      SyncStatus = "idle"
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// ReaderPhase is one reader's entry in Progress.Phases (SPEC_FULL.md §5
// item 1). The orchestrator seeds one entry per reader with status
// "pending" and zero records when a run starts and does not update the
// entries afterwards; per-reader status and counts are not tracked, only
// the aggregate RecordsTotal advances.
type ReaderPhase struct {
	Reader        string `json:"reader"`
	Status        string `json:"status"`
	RecordsSynced int    `json:"records_synced"`
}

// Progress is the single live sync progress record (C12). It is mutated
// only by the orchestrator; readers may observe a stale value.
type Progress struct {
	Status       SyncStatus    `json:"status"`
	Phase        string        `json:"phase"`
	Message      string        `json:"message"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	DaysBack     int           `json:"days_back"`
	Phases       []ReaderPhase `json:"phases"`
	RecordsTotal int           `json:"records_total"`
	Error        string        `json:"error,omitempty"`
}

// GetProgress returns the current sync progress record.
func (s *Store) GetProgress(ctx context.Context) (*Progress, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT status, phase, message, started_at, finished_at, days_back, counters_json, error_message
		FROM sync_progress WHERE id = 1`)

	var status, phase, message, countersJSON string
	var startedAt, finishedAt sql.NullTime
	var daysBack int
	var errMsg sql.NullString
	if err := row.Scan(&status, &phase, &message, &startedAt, &finishedAt, &daysBack, &countersJSON, &errMsg); err != nil {
		return nil, fmt.Errorf("failed to read sync progress: %w", err)
	}

	p := &Progress{
		Status:   SyncStatus(status),
		Phase:    phase,
		Message:  message,
		DaysBack: daysBack,
		Error:    errMsg.String,
	}
	if startedAt.Valid {
		p.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		p.FinishedAt = &finishedAt.Time
	}
	var counters struct {
		Phases       []ReaderPhase `json:"phases"`
		RecordsTotal int           `json:"records_total"`
	}
	if countersJSON != "" {
		if err := json.Unmarshal([]byte(countersJSON), &counters); err != nil {
			return nil, fmt.Errorf("failed to decode sync progress counters: %w", err)
		}
	}
	p.Phases = counters.Phases
	p.RecordsTotal = counters.RecordsTotal
	return p, nil
}

// SetProgress overwrites the single progress record. Called by the
// orchestrator on every phase change so a restart reveals the last known
// state (spec.md §4.6); the run itself never resumes from this record.
func (s *Store) SetProgress(ctx context.Context, p *Progress) error {
	counters, err := json.Marshal(struct {
		Phases       []ReaderPhase `json:"phases"`
		RecordsTotal int           `json:"records_total"`
	}{Phases: p.Phases, RecordsTotal: p.RecordsTotal})
	if err != nil {
		return fmt.Errorf("failed to encode sync progress counters: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE sync_progress SET
			status = ?, phase = ?, message = ?, started_at = ?, finished_at = ?,
			days_back = ?, counters_json = ?, error_message = ?
		WHERE id = 1`,
		string(p.Status), p.Phase, p.Message, p.StartedAt, p.FinishedAt,
		p.DaysBack, string(counters), nullableString(p.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to write sync progress: %w", err)
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
