// Package scheduler drives the pipelines on a fixed tick: every interval it
// selects due targets and jobs and runs them, one item's failure never
// blocking the rest.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Past-Tang/x/internal/models"
	"github.com/Past-Tang/x/internal/pipeline"
)

// MonitorScheduler periodically checks due monitor targets.
type MonitorScheduler struct {
	targets       models.TargetRepository
	monitor       *pipeline.Monitor
	logger        *slog.Logger
	stopChan      chan struct{}
	checkInterval time.Duration
}

func NewMonitorScheduler(
	targets models.TargetRepository,
	monitor *pipeline.Monitor,
	checkInterval time.Duration,
	logger *slog.Logger,
) *MonitorScheduler {
	return &MonitorScheduler{
		targets:       targets,
		monitor:       monitor,
		logger:        logger,
		stopChan:      make(chan struct{}),
		checkInterval: checkInterval,
	}
}

// Start begins the scheduler loop.
func (s *MonitorScheduler) Start(ctx context.Context) {
	s.logger.Info("starting monitor scheduler", "check_interval", s.checkInterval)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Run once immediately on start
	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopChan:
			s.logger.Info("monitor scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("monitor scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler.
func (s *MonitorScheduler) Stop() {
	close(s.stopChan)
}

func (s *MonitorScheduler) tick(ctx context.Context) {
	targets, err := s.targets.ListDue(ctx, time.Now())
	if err != nil {
		s.logger.Error("failed to list due targets", "error", err)
		return
	}

	if len(targets) == 0 {
		s.logger.Debug("no targets due for checking")
		return
	}

	s.logger.Info("checking due targets", "count", len(targets))

	for _, target := range targets {
		outcome := s.monitor.CheckTarget(ctx, target)
		if outcome.Result != models.RunResultSuccess {
			s.logger.Warn("target check failed",
				"target_id", target.ID,
				"user_id", target.UserID,
				"error", outcome.Error)
			continue
		}

		s.logger.Debug("target check completed",
			"target_id", target.ID,
			"new_posts", outcome.NewPosts,
			"replies", outcome.RepliesSent)
	}
}
