package models

import (
	"context"
	"time"
)

// LogType classifies an execution log entry.
type LogType string

const (
	LogTypeMonitor LogType = "monitor"
	LogTypeReply   LogType = "reply"
	LogTypePost    LogType = "post"
)

// ExecutionLog is an append-only audit record of one attempted action.
type ExecutionLog struct {
	ID           string    `json:"id"`
	Type         LogType   `json:"type"`
	AccountID    string    `json:"account_id,omitempty"`
	TargetID     string    `json:"target_id,omitempty"`
	JobID        string    `json:"job_id,omitempty"`
	PostID       string    `json:"post_id,omitempty"`
	PostAuthorID string    `json:"post_author_id,omitempty"`
	ContentID    string    `json:"content_id,omitempty"`
	ContentText  string    `json:"content_text,omitempty"`
	Result       RunResult `json:"result"`
	ErrorMessage string    `json:"error_message,omitempty"`
	APIResponse  string    `json:"api_response,omitempty"`
	ElapsedMS    int       `json:"elapsed_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// LogFilter narrows an execution log listing.
type LogFilter struct {
	Type      LogType
	AccountID string
	TargetID  string
	JobID     string
	PostID    string
	Result    RunResult
	Since     *time.Time
	Until     *time.Time
	Page      int
	PerPage   int
}

// ExecutionLogRepository defines the append-only execution log store.
type ExecutionLogRepository interface {
	// Log appends one entry. Entries are never mutated afterwards.
	Log(ctx context.Context, entry *ExecutionLog) error

	// List returns matching entries newest-first plus the total match count
	// for pagination.
	List(ctx context.Context, filter LogFilter) ([]*ExecutionLog, int, error)
}
