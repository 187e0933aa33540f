package store

import (
	"testing"
	"time"
)

func TestIsRowFresh(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	budget := time.Hour

	cases := []struct {
		name     string
		syncedAt time.Time
		want     bool
	}{
		{"exactly at budget", now.Add(-time.Hour), true},
		{"well within budget", now.Add(-time.Minute), true},
		{"just past budget", now.Add(-time.Hour - time.Second), false},
		{"synced in the future", now.Add(time.Minute), true},
	}

	for _, tc := range cases {
		if got := IsRowFresh(tc.syncedAt, now, budget); got != tc.want {
			t.Errorf("%s: IsRowFresh() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestWindowCovers(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		date time.Time
		want bool
	}{
		{"start boundary", start, true},
		{"end boundary", end, true},
		{"inside window", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"before window", start.Add(-time.Second), false},
		{"after window", end.Add(time.Second), false},
	}

	for _, tc := range cases {
		if got := WindowCovers(start, end, tc.date); got != tc.want {
			t.Errorf("%s: WindowCovers() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
