package models

import (
	"context"
	"time"
)

// PostContent is an outbound content item for the post pipeline.
type PostContent struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Link       string       `json:"link,omitempty"`
	Status     EntityStatus `json:"status"`
	SortOrder  int          `json:"sort_order"`
	UsageCount int          `json:"usage_count"`
	LastUsedAt *time.Time   `json:"last_used_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// FullText returns the publishable text with the optional link appended on
// its own line.
func (c *PostContent) FullText() string {
	if c.Link == "" {
		return c.Text
	}
	return c.Text + "\n" + c.Link
}

// ContentRepository defines persistence operations for post contents.
type ContentRepository interface {
	Create(ctx context.Context, content *PostContent) error

	// GetByID retrieves a content item by ID. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id string) (*PostContent, error)

	ListAll(ctx context.Context) ([]*PostContent, error)

	// ListActive returns active contents ordered by sort order then creation
	// time; rotation pointers index into this sequence.
	ListActive(ctx context.Context) ([]*PostContent, error)

	Update(ctx context.Context, content *PostContent) error

	Delete(ctx context.Context, id string) error

	SetStatus(ctx context.Context, id string, status EntityStatus) error

	// RecordUsage bumps the usage counter and last-used timestamp.
	RecordUsage(ctx context.Context, id string) error
}
