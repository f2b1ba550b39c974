package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/leadradar/internal/model"
)

// Cycle is one full pass over every configured role.
type Cycle interface {
	RunOnce(ctx context.Context) ([]model.Lead, error)
}

// Scheduler owns the main loop: ticks on an interval and runs the cycle.
type Scheduler struct {
	cycle    Cycle
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that runs cycle at the given interval.
func NewScheduler(cycle Cycle, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cycle:    cycle,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the loop. It runs one immediate cycle, then waits interval
// between cycles. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval.String())

	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()
	leads, err := s.cycle.RunOnce(ctx)
	if err != nil && ctx.Err() == nil {
		s.logger.Error("cycle failed", "error", err)
		return
	}
	s.logger.Info("cycle complete", "saved", len(leads), "took", time.Since(start).Round(time.Millisecond).String())
}
