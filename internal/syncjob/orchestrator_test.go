package syncjob

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSplitWindowsExactMultiple(t *testing.T) {
	start := day("2026-01-01")
	end := day("2026-01-14") // 14 days, chunk_days=7 -> exactly 2 windows
	windows := splitWindows(start, end, 7)

	if len(windows) != 2 {
		t.Fatalf("splitWindows() returned %d windows, want 2", len(windows))
	}
	if !windows[0].start.Equal(start) {
		t.Errorf("window[0].start = %v, want %v", windows[0].start, start)
	}
	if !windows[0].end.Equal(day("2026-01-07")) {
		t.Errorf("window[0].end = %v, want 2026-01-07", windows[0].end)
	}
	if !windows[1].start.Equal(day("2026-01-08")) {
		t.Errorf("window[1].start = %v, want 2026-01-08", windows[1].start)
	}
	if !windows[1].end.Equal(end) {
		t.Errorf("window[1].end = %v, want %v", windows[1].end, end)
	}
}

func TestSplitWindowsPartialFinalChunk(t *testing.T) {
	start := day("2026-01-01")
	end := day("2026-01-10") // 10 days, chunk_days=7 -> 7-day chunk then 3-day remainder
	windows := splitWindows(start, end, 7)

	if len(windows) != 2 {
		t.Fatalf("splitWindows() returned %d windows, want 2", len(windows))
	}
	if !windows[1].end.Equal(end) {
		t.Errorf("final window.end = %v, want it clamped to %v", windows[1].end, end)
	}
	if windows[1].end.Before(windows[1].start) {
		t.Errorf("final window has end before start: %+v", windows[1])
	}
}

func TestSplitWindowsSingleDay(t *testing.T) {
	start := day("2026-01-01")
	windows := splitWindows(start, start, 7)
	if len(windows) != 1 {
		t.Fatalf("splitWindows() returned %d windows, want 1", len(windows))
	}
	if !windows[0].start.Equal(start) || !windows[0].end.Equal(start) {
		t.Errorf("windows[0] = %+v, want a single-day window", windows[0])
	}
}
