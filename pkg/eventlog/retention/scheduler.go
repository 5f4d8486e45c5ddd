package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Pruner on the cron expression from its config.
// An empty expression disables scheduling entirely.
type Scheduler struct {
	pruner *Pruner
	logger *slog.Logger

	mu      sync.Mutex
	runner  *cron.Cron
	running bool
}

func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		runner: cron.New(),
		logger: slog.Default().With("component", "eventlog.scheduler"),
	}
}

// Start validates the schedule and begins periodic pruning. It returns
// immediately; pruning runs on the cron goroutine until the context is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := s.pruner.config.PruneSchedule
	if schedule == "" {
		s.logger.Info("no prune schedule configured, scheduler disabled")
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}

	_, err := s.runner.AddFunc(schedule, func() { s.prune(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}
	s.runner.Start()
	s.running = true

	s.logger.Info("event retention scheduled",
		"schedule", schedule,
		"retention_days", s.pruner.config.RetentionDays,
		"max_events", s.pruner.config.MaxEvents,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) prune(ctx context.Context) {
	deleted, err := s.pruner.Prune(ctx)
	switch {
	case err != nil:
		s.logger.Error("scheduled prune failed", "error", err)
	case deleted > 0:
		s.logger.Info("scheduled prune deleted events", "deleted", deleted)
	default:
		s.logger.Debug("scheduled prune found nothing to delete")
	}
}

// Stop halts scheduling and blocks until an in-flight prune finishes.
// Safe to call repeatedly and safe to call on a scheduler that never
// started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.runner.Stop().Done()
	s.running = false
	s.logger.Info("event retention scheduler stopped")
}

// IsRunning reports whether the cron runner is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the time of the next scheduled prune, or the zero
// time when nothing is scheduled.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.runner.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
