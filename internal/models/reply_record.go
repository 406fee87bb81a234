package models

import (
	"context"
	"time"
)

// ReplyRecord marks a completed reply by one account to one post of one
// target. The (target_user_id, post_id, account_id) triple is unique;
// existence of a record is a hard block on re-sending.
type ReplyRecord struct {
	ID           string    `json:"id"`
	TargetUserID string    `json:"target_user_id"`
	PostID       string    `json:"post_id"`
	AccountID    string    `json:"account_id"`
	ReplyPostID  string    `json:"reply_post_id,omitempty"`
	RepliedAt    time.Time `json:"replied_at"`
}

// ReplyLedger records completed replies and answers whether an account has
// already acted on a post.
type ReplyLedger interface {
	// HasReplied checks the unique triple.
	HasReplied(ctx context.Context, targetUserID, postID, accountID string) (bool, error)

	// Record inserts the triple. A duplicate insert is a no-op, never an
	// error, so a retried pipeline run cannot double-reply.
	Record(ctx context.Context, rec *ReplyRecord) error

	// ListByTarget returns the most recent records for a target.
	ListByTarget(ctx context.Context, targetUserID string, limit int) ([]*ReplyRecord, error)
}
