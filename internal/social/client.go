// Package social talks to the platform gateway: timeline fetches, replies
// and standalone posts on behalf of pool accounts.
package social

import "context"

// Post is one timeline entry returned by a fetch.
type Post struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Result is the outcome of one gateway call. Transport errors and timeouts
// surface as a failed Result, not a Go error, so the pipelines treat every
// failure mode uniformly.
type Result struct {
	Success     bool
	StatusCode  int
	PostID      string
	Posts       []Post
	ErrorText   string
	APIResponse string
	ElapsedMS   int
}

// Client is the outbound surface the pipelines depend on.
type Client interface {
	// FetchUserPosts retrieves the most recent posts of a user.
	FetchUserPosts(ctx context.Context, userID string, count int) Result

	// Reply posts a reply to an existing post using the account's auth token.
	Reply(ctx context.Context, authToken, postID, text string) Result

	// Publish creates a standalone post using the account's auth token.
	Publish(ctx context.Context, authToken, text string) Result
}
