package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Past-Tang/x/internal/models"
	"github.com/Past-Tang/x/internal/pipeline"
)

// PostScheduler periodically runs due post jobs.
type PostScheduler struct {
	jobs          models.JobRepository
	post          *pipeline.Post
	logger        *slog.Logger
	stopChan      chan struct{}
	checkInterval time.Duration
}

func NewPostScheduler(
	jobs models.JobRepository,
	post *pipeline.Post,
	checkInterval time.Duration,
	logger *slog.Logger,
) *PostScheduler {
	return &PostScheduler{
		jobs:          jobs,
		post:          post,
		logger:        logger,
		stopChan:      make(chan struct{}),
		checkInterval: checkInterval,
	}
}

// Start begins the scheduler loop.
func (s *PostScheduler) Start(ctx context.Context) {
	s.logger.Info("starting post scheduler", "check_interval", s.checkInterval)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Run once immediately on start
	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopChan:
			s.logger.Info("post scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("post scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler.
func (s *PostScheduler) Stop() {
	close(s.stopChan)
}

func (s *PostScheduler) tick(ctx context.Context) {
	jobs, err := s.jobs.ListDue(ctx, time.Now())
	if err != nil {
		s.logger.Error("failed to list due jobs", "error", err)
		return
	}

	if len(jobs) == 0 {
		s.logger.Debug("no post jobs due to run")
		return
	}

	s.logger.Info("running due post jobs", "count", len(jobs))

	for _, job := range jobs {
		outcome := s.post.RunJob(ctx, job)
		if outcome.Result != models.RunResultSuccess {
			s.logger.Warn("post job failed",
				"job_id", job.ID,
				"name", job.Name,
				"error", outcome.Error)
			continue
		}

		s.logger.Debug("post job completed",
			"job_id", job.ID,
			"post_id", outcome.PostID)
	}
}
