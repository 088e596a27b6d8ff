package scheduler

import (
	"context"
	"log/slog"
	"time"

	"dealwatch/internal/domain"
)

// Watcher defines the interface for one scraping pass.
type Watcher interface {
	Run(ctx context.Context) (*domain.RunStats, error)
}

type Scheduler struct {
	watchers []Watcher
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(watchers []Watcher, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		watchers: watchers,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "watchers", len(s.watchers))

	s.runAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Scheduler) runAll(ctx context.Context) {
	for _, w := range s.watchers {
		if ctx.Err() != nil {
			return
		}
		runCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		if _, err := w.Run(runCtx); err != nil {
			s.logger.Error("watch run failed", "error", err)
		}
		cancel()
	}
}
