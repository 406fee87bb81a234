package models

import (
	"context"
	"time"
)

// TemplateScope controls which targets a reply template applies to.
type TemplateScope string

const (
	ScopeGlobal TemplateScope = "global"
	ScopeTarget TemplateScope = "target"
)

// ReplyTemplate is a reply text source. Target-scoped templates extend the
// global pool for their target.
type ReplyTemplate struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	Status     EntityStatus  `json:"status"`
	Scope      TemplateScope `json:"scope"`
	TargetID   string        `json:"target_id,omitempty"`
	SortOrder  int           `json:"sort_order"`
	UsageCount int           `json:"usage_count"`
	LastUsedAt *time.Time    `json:"last_used_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// TemplateRepository defines persistence operations for reply templates.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *ReplyTemplate) error

	// GetByID retrieves a template by ID. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id string) (*ReplyTemplate, error)

	ListAll(ctx context.Context) ([]*ReplyTemplate, error)

	// ListForTarget returns the active selection pool for a target: global
	// templates plus templates scoped to it, ordered by sort order then
	// creation time so round-robin cursors see a stable sequence.
	ListForTarget(ctx context.Context, targetID string) ([]*ReplyTemplate, error)

	Update(ctx context.Context, tpl *ReplyTemplate) error

	Delete(ctx context.Context, id string) error

	SetStatus(ctx context.Context, id string, status EntityStatus) error

	// RecordUsage bumps the usage counter and last-used timestamp.
	RecordUsage(ctx context.Context, id string) error
}
