package syncjob

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeTriggerer struct {
	calls []int // daysBack per call
}

func (f *fakeTriggerer) TriggerSync(ctx context.Context, daysBack, chunkDays int, force bool) (*TriggerResult, error) {
	f.calls = append(f.calls, daysBack)
	return &TriggerResult{RunID: "fake", StartedAt: time.Now(), DaysBack: daysBack, ChunkDays: chunkDays}, nil
}

type fakeSchedule struct {
	enabled  bool
	schedule []string
	daysBack int
}

func (f fakeSchedule) AutoSyncEnabled() bool      { return f.enabled }
func (f fakeSchedule) AutoSyncSchedule() []string { return f.schedule }
func (f fakeSchedule) AutoSyncDaysBack() int      { return f.daysBack }

func newTestScheduler(trig *fakeTriggerer, src fakeSchedule) *Scheduler {
	return &Scheduler{
		orchestrator: trig,
		source:       src,
		log:          zap.NewNop(),
		tickInterval: time.Minute,
		stop:         make(chan struct{}),
		lastFire:     make(map[string]string),
	}
}

func TestTickFiresOnMatchingTime(t *testing.T) {
	trig := &fakeTriggerer{}
	s := newTestScheduler(trig, fakeSchedule{enabled: true, schedule: []string{"07:00"}, daysBack: 90})

	now := time.Date(2026, 7, 29, 7, 0, 0, 0, time.Local)
	s.tick(now)

	if len(trig.calls) != 1 || trig.calls[0] != 90 {
		t.Fatalf("calls = %v, want exactly one call with daysBack=90", trig.calls)
	}
}

func TestTickDoesNotFireOnNonMatchingTime(t *testing.T) {
	trig := &fakeTriggerer{}
	s := newTestScheduler(trig, fakeSchedule{enabled: true, schedule: []string{"07:00"}, daysBack: 90})

	now := time.Date(2026, 7, 29, 7, 1, 0, 0, time.Local)
	s.tick(now)

	if len(trig.calls) != 0 {
		t.Fatalf("calls = %v, want no calls at a non-matching minute", trig.calls)
	}
}

func TestTickIdleWhenAutoSyncDisabled(t *testing.T) {
	trig := &fakeTriggerer{}
	s := newTestScheduler(trig, fakeSchedule{enabled: false, schedule: []string{"07:00"}, daysBack: 90})

	now := time.Date(2026, 7, 29, 7, 0, 0, 0, time.Local)
	s.tick(now)

	if len(trig.calls) != 0 {
		t.Fatalf("calls = %v, want no calls when auto sync is disabled", trig.calls)
	}
}

func TestTickDoesNotDoubleFireWithinSameMinute(t *testing.T) {
	trig := &fakeTriggerer{}
	s := newTestScheduler(trig, fakeSchedule{enabled: true, schedule: []string{"07:00"}, daysBack: 90})

	now := time.Date(2026, 7, 29, 7, 0, 0, 0, time.Local)
	s.tick(now)
	s.tick(now.Add(10 * time.Second)) // still within the 07:00 minute

	if len(trig.calls) != 1 {
		t.Fatalf("calls = %v, want exactly one call despite two ticks in the same minute", trig.calls)
	}
}

func TestTickFiresAgainOnNextDay(t *testing.T) {
	trig := &fakeTriggerer{}
	s := newTestScheduler(trig, fakeSchedule{enabled: true, schedule: []string{"07:00"}, daysBack: 90})

	day1 := time.Date(2026, 7, 29, 7, 0, 0, 0, time.Local)
	day2 := time.Date(2026, 7, 30, 7, 0, 0, 0, time.Local)
	s.tick(day1)
	s.tick(day2)

	if len(trig.calls) != 2 {
		t.Fatalf("calls = %v, want two calls across two distinct days", trig.calls)
	}
}
