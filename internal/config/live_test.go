package config

import (
	"testing"
)

func testLiveConfig() *LiveSyncConfig {
	return NewLiveSyncConfig(&Config{
		AutoSyncEnabled:   true,
		AutoSyncSchedule:  []string{"07:00", "12:00"},
		AutoSyncDaysBack:  90,
		ManualSyncDefault: 90,
		ManualSyncMinDays: 1,
		ManualSyncMaxDays: 365,
		ChunkDays:         7,
		BatchSize:         500,
		ParallelChunks:    2,
		RetryCount:        3,
	})
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestLiveSyncConfigApplyMergesOnlySetFields(t *testing.T) {
	l := testLiveConfig()

	next, err := l.Apply(SyncPatch{AutoSyncDaysBack: intPtr(30)})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next.AutoSyncDaysBack != 30 {
		t.Errorf("AutoSyncDaysBack = %d, want 30", next.AutoSyncDaysBack)
	}
	if !next.AutoSyncEnabled || next.ChunkDays != 7 {
		t.Errorf("untouched fields changed: %+v", next)
	}
}

func TestLiveSyncConfigApplyRejectsInvalidBounds(t *testing.T) {
	l := testLiveConfig()

	before := l.Snapshot()
	_, err := l.Apply(SyncPatch{ManualSyncMinDays: intPtr(400)})
	if err == nil {
		t.Fatal("expected a validation error for min_days > 365")
	}

	after := l.Snapshot()
	if after.ManualSyncMinDays != before.ManualSyncMinDays {
		t.Errorf("ManualSyncMinDays changed after a rejected patch: %d -> %d", before.ManualSyncMinDays, after.ManualSyncMinDays)
	}
}

func TestLiveSyncConfigApplyReplacesSchedule(t *testing.T) {
	l := testLiveConfig()

	next, err := l.Apply(SyncPatch{AutoSyncSchedule: []string{"18:00"}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(next.AutoSyncSchedule) != 1 || next.AutoSyncSchedule[0] != "18:00" {
		t.Errorf("AutoSyncSchedule = %v, want [18:00]", next.AutoSyncSchedule)
	}
}

func TestLiveSyncConfigScheduleSourceReflectsApply(t *testing.T) {
	l := testLiveConfig()

	if _, err := l.Apply(SyncPatch{AutoSyncEnabled: boolPtr(false)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if l.AutoSyncEnabled() {
		t.Error("AutoSyncEnabled() = true, want false after disabling patch")
	}
}
