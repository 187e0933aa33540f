package syncjob

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ScheduleSource supplies the scheduler with the live, hot-reloadable
// schedule configuration on every tick, so a config change takes effect on
// the next minute boundary without a process restart (spec.md §4.7).
type ScheduleSource interface {
	AutoSyncEnabled() bool
	AutoSyncSchedule() []string
	AutoSyncDaysBack() int
}

// triggerer is the subset of *Orchestrator the scheduler depends on,
// narrowed so tests can supply a fake without constructing a real store and
// reader registry.
type triggerer interface {
	TriggerSync(ctx context.Context, daysBack, chunkDays int, force bool) (*TriggerResult, error)
}

// Scheduler is C7: a wall-clock cron that fires the orchestrator at
// configured HH:MM times. Grounded on the teacher's
// internal/services/context_cache_worker.go ticker/WaitGroup/stop-channel
// idiom, generalized from a fixed interval to a configured set of
// times-of-day.
type Scheduler struct {
	orchestrator triggerer
	source       ScheduleSource
	log          *zap.Logger
	tickInterval time.Duration

	stop     chan struct{}
	wg       sync.WaitGroup
	lastFire map[string]string // HH:MM -> date string last fired, avoids double-firing within a minute
}

// NewScheduler builds a Scheduler. tickInterval defaults to one minute.
func NewScheduler(o *Orchestrator, source ScheduleSource, log *zap.Logger, tickInterval time.Duration) *Scheduler {
	if tickInterval <= 0 {
		tickInterval = time.Minute
	}
	return &Scheduler{
		orchestrator: o,
		source:       source,
		log:          log,
		tickInterval: tickInterval,
		stop:         make(chan struct{}),
		lastFire:     make(map[string]string),
	}
}

// Start runs the scheduler loop in a background goroutine until Stop is
// called.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop signals the loop to exit and waits for it to return.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

// tick fires a sync for every configured HH:MM entry that matches now's
// local time and has not already fired today. Missed ticks (process down
// across a scheduled time) are never backfilled — spec.md §4.7 only
// requires firing at the moments the process observes.
func (s *Scheduler) tick(now time.Time) {
	if !s.source.AutoSyncEnabled() {
		return
	}

	today := now.Format("2006-01-02")
	nowHHMM := now.Format("15:04")

	for _, hhmm := range s.source.AutoSyncSchedule() {
		if hhmm != nowHHMM {
			continue
		}
		if s.lastFire[hhmm] == today {
			continue
		}
		s.lastFire[hhmm] = today

		daysBack := s.source.AutoSyncDaysBack()
		s.log.Info("auto sync firing", zap.String("scheduled_time", hhmm), zap.Int("days_back", daysBack))

		if _, err := s.orchestrator.TriggerSync(context.Background(), daysBack, 0, false); err != nil {
			s.log.Warn("auto sync trigger skipped", zap.String("scheduled_time", hhmm), zap.Error(err))
		}
	}
}
