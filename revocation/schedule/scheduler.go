// Package schedule runs a revocation refresh on a cron schedule, for
// deployments that prefer a pull on a fixed cadence over a file watch or
// a tight polling loop.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher is whatever knows how to pull a fresh revocation list; both
// gitsync.Syncer and a hand-rolled HTTP puller satisfy it via SyncOnce.
type Refresher interface {
	SyncOnce(ctx context.Context) error
}

// Scheduler runs a Refresher on a cron schedule.
type Scheduler struct {
	refresher Refresher
	schedule  string
	cron      *cron.Cron
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
}

// New creates a Scheduler that calls refresher.SyncOnce according to
// schedule, a standard five-field cron expression (e.g. "0 */6 * * *" for
// every six hours). A nil logger defaults to slog.Default().
func New(refresher Refresher, schedule string, logger *slog.Logger) (*Scheduler, error) {
	if schedule == "" {
		return nil, fmt.Errorf("schedule: cron expression cannot be empty")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("schedule: invalid cron expression %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		refresher: refresher,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logger.With("component", "revocation.schedule"),
	}, nil
}

// Start schedules the refresh job and begins running it in the
// background. Start returns once the job is registered; it does not
// block. The scheduler stops automatically when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("schedule: scheduler already running")
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runRefresh(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule: register job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("revocation refresh scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) runRefresh(ctx context.Context) {
	start := time.Now()
	if err := s.refresher.SyncOnce(ctx); err != nil {
		s.logger.Error("scheduled revocation refresh failed", "error", err)
		return
	}
	s.logger.Debug("scheduled revocation refresh completed", "duration", time.Since(start))
}

// Stop stops the scheduler, waiting for any in-flight refresh to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		s.running = false
		s.logger.Info("revocation refresh scheduler stopped")
	}
}

// NextRun reports when the next scheduled refresh will run, or nil if the
// scheduler has not been started.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
