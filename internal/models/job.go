package models

import (
	"context"
	"fmt"
	"time"
)

// Strategy names an account selection algorithm.
type Strategy string

const (
	StrategyRoundRobin Strategy = "round_robin"
	StrategyRandom     Strategy = "random"
	StrategyWeighted   Strategy = "weighted"
)

// ParseStrategy validates a raw strategy name.
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(raw) {
	case StrategyRoundRobin, StrategyRandom, StrategyWeighted:
		return Strategy(raw), nil
	default:
		return "", fmt.Errorf("invalid strategy: %q", raw)
	}
}

// PostJob is a posting schedule. ContentIndex is the rotation pointer into
// the active content list; it advances only after a successful post.
type PostJob struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Status          EntityStatus `json:"status"`
	IntervalMinutes int          `json:"interval_minutes"`
	ContentIndex    int          `json:"content_index"`
	AccountStrategy Strategy     `json:"account_strategy"`
	LastRunAt       *time.Time   `json:"last_run_at,omitempty"`
	NextRunAt       *time.Time   `json:"next_run_at,omitempty"`
	LastRunResult   RunResult    `json:"last_run_result,omitempty"`
	LastRunError    string       `json:"last_run_error,omitempty"`
	LastPostID      string       `json:"last_post_id,omitempty"`
	TotalPosts      int          `json:"total_posts"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// JobRepository defines persistence operations for post jobs.
type JobRepository interface {
	Create(ctx context.Context, job *PostJob) error

	// GetByID retrieves a job by ID. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id string) (*PostJob, error)

	ListAll(ctx context.Context) ([]*PostJob, error)

	// ListDue returns active jobs whose next run time is unset or has
	// passed, in creation order.
	ListDue(ctx context.Context, now time.Time) ([]*PostJob, error)

	Update(ctx context.Context, job *PostJob) error

	Delete(ctx context.Context, id string) error

	SetStatus(ctx context.Context, id string, status EntityStatus) error

	// UpdateAfterRun records a run outcome. next_run_at always advances one
	// interval. On success the rotation pointer is set to contentIndex (the
	// selected index plus one, wrapped by the caller) and the post counters
	// advance; on failure both are left untouched.
	UpdateAfterRun(ctx context.Context, id string, result RunResult, runErr string, postID string, contentIndex int) error
}
