package config

import (
	"sync"

	"github.com/ashgrove-systems/mto-gateway/internal/gwerrors"
)

// SyncPatch is a partial update to the mutable sync tunables (spec.md §6
// UpdateSyncConfig). A nil field is left unchanged; AutoSyncSchedule is only
// replaced when non-nil, since an empty schedule is a legitimate "fire
// never" value distinct from "don't touch this".
type SyncPatch struct {
	AutoSyncEnabled   *bool    `json:"auto_sync_enabled,omitempty"`
	AutoSyncSchedule  []string `json:"auto_sync_schedule,omitempty"`
	AutoSyncDaysBack  *int     `json:"auto_sync_days_back,omitempty"`
	ManualSyncDefault *int     `json:"manual_sync_default_days,omitempty"`
	ManualSyncMinDays *int     `json:"manual_sync_min_days,omitempty"`
	ManualSyncMaxDays *int     `json:"manual_sync_max_days,omitempty"`
	ChunkDays         *int     `json:"chunk_days,omitempty"`
	BatchSize         *int     `json:"batch_size,omitempty"`
	ParallelChunks    *int     `json:"parallel_chunks,omitempty"`
	RetryCount        *int     `json:"retry_count,omitempty"`
}

// SyncSnapshot is the current value of every field LiveSyncConfig tracks,
// returned to the caller of UpdateSyncConfig as NewConfig (spec.md §6).
type SyncSnapshot struct {
	AutoSyncEnabled   bool
	AutoSyncSchedule  []string
	AutoSyncDaysBack  int
	ManualSyncDefault int
	ManualSyncMinDays int
	ManualSyncMaxDays int
	ChunkDays         int
	BatchSize         int
	ParallelChunks    int
	RetryCount        int
}

// LiveSyncConfig holds the subset of Config that UpdateSyncConfig can patch
// after process startup, guarded by a mutex since the scheduler's tick
// goroutine and the admin API handler read and write it concurrently.
// Implements syncjob.ScheduleSource.
type LiveSyncConfig struct {
	mu   sync.RWMutex
	snap SyncSnapshot
}

// NewLiveSyncConfig seeds a LiveSyncConfig from a loaded Config.
func NewLiveSyncConfig(c *Config) *LiveSyncConfig {
	return &LiveSyncConfig{snap: SyncSnapshot{
		AutoSyncEnabled:   c.AutoSyncEnabled,
		AutoSyncSchedule:  append([]string(nil), c.AutoSyncSchedule...),
		AutoSyncDaysBack:  c.AutoSyncDaysBack,
		ManualSyncDefault: c.ManualSyncDefault,
		ManualSyncMinDays: c.ManualSyncMinDays,
		ManualSyncMaxDays: c.ManualSyncMaxDays,
		ChunkDays:         c.ChunkDays,
		BatchSize:         c.BatchSize,
		ParallelChunks:    c.ParallelChunks,
		RetryCount:        c.RetryCount,
	}}
}

func (l *LiveSyncConfig) AutoSyncEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap.AutoSyncEnabled
}

func (l *LiveSyncConfig) AutoSyncSchedule() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.snap.AutoSyncSchedule...)
}

func (l *LiveSyncConfig) AutoSyncDaysBack() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap.AutoSyncDaysBack
}

// Snapshot returns every tracked tunable at once.
func (l *LiveSyncConfig) Snapshot() SyncSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := l.snap
	s.AutoSyncSchedule = append([]string(nil), l.snap.AutoSyncSchedule...)
	return s
}

// Apply merges patch into the live config and returns the resulting
// snapshot, re-validating the bounds Config.Validate enforces at load time
// plus retry_count >= 0 and batch_size >= 1. On a validation failure the
// live config is left untouched.
func (l *LiveSyncConfig) Apply(patch SyncPatch) (SyncSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.snap
	if patch.AutoSyncEnabled != nil {
		next.AutoSyncEnabled = *patch.AutoSyncEnabled
	}
	if patch.AutoSyncSchedule != nil {
		next.AutoSyncSchedule = append([]string(nil), patch.AutoSyncSchedule...)
	}
	if patch.AutoSyncDaysBack != nil {
		next.AutoSyncDaysBack = *patch.AutoSyncDaysBack
	}
	if patch.ManualSyncDefault != nil {
		next.ManualSyncDefault = *patch.ManualSyncDefault
	}
	if patch.ManualSyncMinDays != nil {
		next.ManualSyncMinDays = *patch.ManualSyncMinDays
	}
	if patch.ManualSyncMaxDays != nil {
		next.ManualSyncMaxDays = *patch.ManualSyncMaxDays
	}
	if patch.ChunkDays != nil {
		next.ChunkDays = *patch.ChunkDays
	}
	if patch.BatchSize != nil {
		next.BatchSize = *patch.BatchSize
	}
	if patch.ParallelChunks != nil {
		next.ParallelChunks = *patch.ParallelChunks
	}
	if patch.RetryCount != nil {
		next.RetryCount = *patch.RetryCount
	}

	if next.ManualSyncMinDays < 1 || next.ManualSyncMaxDays > 365 || next.ManualSyncMinDays > next.ManualSyncMaxDays {
		return SyncSnapshot{}, gwerrors.Newf(gwerrors.KindValidationError,
			"sync.manual_sync.{min_days,max_days} must satisfy 1 <= min <= max <= 365")
	}
	if next.ChunkDays < 1 || next.ChunkDays > 30 {
		return SyncSnapshot{}, gwerrors.Newf(gwerrors.KindValidationError, "sync.performance.chunk_days must be in [1, 30]")
	}
	if next.ParallelChunks < 1 {
		return SyncSnapshot{}, gwerrors.Newf(gwerrors.KindValidationError, "sync.performance.parallel_chunks must be >= 1")
	}
	if next.RetryCount < 0 {
		return SyncSnapshot{}, gwerrors.Newf(gwerrors.KindValidationError, "sync.performance.retry_count must be >= 0")
	}
	if next.BatchSize < 1 {
		return SyncSnapshot{}, gwerrors.Newf(gwerrors.KindValidationError, "sync.performance.batch_size must be >= 1")
	}

	l.snap = next
	return next, nil
}
