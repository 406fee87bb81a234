package models

import (
	"context"
	"time"
)

// EntityStatus is the on/off switch shared by targets, templates, contents
// and jobs.
type EntityStatus string

const (
	EntityStatusActive   EntityStatus = "active"
	EntityStatusDisabled EntityStatus = "disabled"
)

// RunResult is the outcome of a check, reply or post attempt.
type RunResult string

const (
	RunResultSuccess RunResult = "success"
	RunResultFailed  RunResult = "failed"
)

// MonitorTarget is a watched remote account. LastSeenPostID is the watermark:
// the highest post id observed in a successful fetch.
type MonitorTarget struct {
	ID                   string       `json:"id"`
	UserID               string       `json:"user_id"`
	Username             string       `json:"username,omitempty"`
	Name                 string       `json:"name,omitempty"`
	Status               EntityStatus `json:"status"`
	CheckIntervalMinutes int          `json:"check_interval_minutes"`
	FetchCount           int          `json:"fetch_count"`
	MaxNewPerCheck       int          `json:"max_new_per_check"`
	LastSeenPostID       string       `json:"last_seen_post_id,omitempty"`
	LastCheckAt          *time.Time   `json:"last_check_at,omitempty"`
	NextCheckAt          *time.Time   `json:"next_check_at,omitempty"`
	LastCheckResult      RunResult    `json:"last_check_result,omitempty"`
	LastCheckError       string       `json:"last_check_error,omitempty"`
	TotalPostsFound      int          `json:"total_posts_found"`
	TotalRepliesSent     int          `json:"total_replies_sent"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// TargetRepository defines persistence operations for monitor targets.
type TargetRepository interface {
	Create(ctx context.Context, target *MonitorTarget) error

	// GetByID retrieves a target by ID. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id string) (*MonitorTarget, error)

	ListAll(ctx context.Context) ([]*MonitorTarget, error)

	// ListDue returns active targets whose next check time is unset or has
	// passed, in creation order.
	ListDue(ctx context.Context, now time.Time) ([]*MonitorTarget, error)

	Update(ctx context.Context, target *MonitorTarget) error

	Delete(ctx context.Context, id string) error

	SetStatus(ctx context.Context, id string, status EntityStatus) error

	// UpdateAfterCheck records the outcome of a check attempt and always
	// reschedules next_check_at one interval out, success or failure.
	UpdateAfterCheck(ctx context.Context, id string, result RunResult, checkErr string, postsFound int) error

	// AdvanceWatermark sets last_seen_post_id. Called only after a
	// successful fetch, independent of reply outcomes.
	AdvanceWatermark(ctx context.Context, id string, postID string) error

	// IncrementReplies adds to the cumulative reply counter.
	IncrementReplies(ctx context.Context, id string, n int) error
}
