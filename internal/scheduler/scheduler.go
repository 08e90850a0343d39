// Package scheduler drives the once-per-day snapshot run.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// RunFunc executes one snapshot run for the given day.
type RunFunc func(ctx context.Context) error

// Scheduler wakes up on a fixed interval and triggers the run function once
// per calendar day, after the configured local time of day. Runs never
// overlap: the next wake-up is not evaluated until the current run returns.
type Scheduler struct {
	checkInterval time.Duration
	runAfter      string // "HH:MM"
	run           RunFunc
	log           *slog.Logger

	lastRunDay string
	now        func() time.Time
}

// New creates a Scheduler.
func New(checkInterval time.Duration, runAfter string, run RunFunc, log *slog.Logger) *Scheduler {
	return &Scheduler{
		checkInterval: checkInterval,
		runAfter:      runAfter,
		run:           run,
		log:           log,
		now:           time.Now,
	}
}

// Start blocks until the context is cancelled. The first due run fires on the
// first wake-up, not at startup.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.log.Info("scheduler started", "checkInterval", s.checkInterval, "runAfter", s.runAfter)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	today := now.Format("2006-01-02")
	if s.lastRunDay == today {
		return
	}

	due, err := time.ParseInLocation("15:04", s.runAfter, now.Location())
	if err != nil {
		s.log.Error("invalid run_after time", "runAfter", s.runAfter, "err", err)
		return
	}
	threshold := time.Date(now.Year(), now.Month(), now.Day(), due.Hour(), due.Minute(), 0, 0, now.Location())
	if now.Before(threshold) {
		return
	}

	// Mark the day before running so a failed run is not retried in a tight
	// loop; the next attempt is tomorrow.
	s.lastRunDay = today

	s.log.Info("starting scheduled run", "day", today)
	if err := s.run(ctx); err != nil {
		s.log.Error("scheduled run failed", "day", today, "err", err)
		return
	}
	s.log.Info("scheduled run completed", "day", today)
}
