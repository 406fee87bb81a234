package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const requestTimeout = 30 * time.Second

// GatewayClient implements Client against the HTTP gateway. Every call
// sleeps a random pacing delay first so account activity does not arrive in
// bursts; a zero delay range disables pacing.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	minDelay   time.Duration
	maxDelay   time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

func NewGatewayClient(baseURL, apiKey string, minDelaySeconds, maxDelaySeconds int, logger *slog.Logger) *GatewayClient {
	return &GatewayClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		minDelay: time.Duration(minDelaySeconds) * time.Second,
		maxDelay: time.Duration(maxDelaySeconds) * time.Second,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
	}
}

type fetchResponse struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
	Tweets []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		CreatedAt string `json:"createdAt,omitempty"`
		Author    struct {
			ID string `json:"id"`
		} `json:"author"`
	} `json:"tweets"`
}

type actionResponse struct {
	Status  string `json:"status"`
	Msg     string `json:"msg,omitempty"`
	TweetID string `json:"tweet_id,omitempty"`
}

// FetchUserPosts retrieves the most recent posts of a user.
func (c *GatewayClient) FetchUserPosts(ctx context.Context, userID string, count int) Result {
	if err := c.pace(ctx); err != nil {
		return failedResult(time.Now(), 0, "", err.Error())
	}

	// Timing starts after pacing so logs reflect gateway latency only
	start := time.Now()

	endpoint := fmt.Sprintf("%s/twitter/user/last_tweets?userId=%s&limit=%d",
		c.baseURL, url.QueryEscape(userID), count)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return failedResult(start, 0, "", err.Error())
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("timeline fetch failed", "user_id", userID, "error", err)
		return failedResult(start, 0, "", err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failedResult(start, resp.StatusCode, "", err.Error())
	}

	var parsed fetchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return failedResult(start, resp.StatusCode, string(body), "unparseable gateway response: "+err.Error())
	}

	if resp.StatusCode != http.StatusOK || parsed.Status == "error" {
		msg := parsed.Msg
		if msg == "" {
			msg = "gateway returned status " + strconv.Itoa(resp.StatusCode)
		}
		return failedResult(start, resp.StatusCode, string(body), msg)
	}

	posts := make([]Post, 0, len(parsed.Tweets))
	for _, t := range parsed.Tweets {
		posts = append(posts, Post{
			ID:        t.ID,
			AuthorID:  t.Author.ID,
			Text:      t.Text,
			CreatedAt: t.CreatedAt,
		})
	}

	return Result{
		Success:     true,
		StatusCode:  resp.StatusCode,
		Posts:       posts,
		APIResponse: string(body),
		ElapsedMS:   elapsedMS(start),
	}
}

// Reply posts a reply to an existing post using the account's auth token.
func (c *GatewayClient) Reply(ctx context.Context, authToken, postID, text string) Result {
	return c.action(ctx, authToken, "/twitter/tweet/reply", map[string]string{
		"tweet_id":   postID,
		"reply_text": text,
	})
}

// Publish creates a standalone post using the account's auth token.
func (c *GatewayClient) Publish(ctx context.Context, authToken, text string) Result {
	return c.action(ctx, authToken, "/twitter/tweet", map[string]string{
		"tweet_text": text,
	})
}

func (c *GatewayClient) action(ctx context.Context, authToken, path string, payload map[string]string) Result {
	if err := c.pace(ctx); err != nil {
		return failedResult(time.Now(), 0, "", err.Error())
	}

	// Timing starts after pacing so logs reflect gateway latency only
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return failedResult(start, 0, "", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return failedResult(start, 0, "", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("AuthToken", authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("gateway action failed", "path", path, "error", err)
		return failedResult(start, 0, "", err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return failedResult(start, resp.StatusCode, "", err.Error())
	}

	var parsed actionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return failedResult(start, resp.StatusCode, string(respBody), "unparseable gateway response: "+err.Error())
	}

	if resp.StatusCode != http.StatusOK || parsed.Status == "error" {
		msg := parsed.Msg
		if msg == "" {
			msg = "gateway returned status " + strconv.Itoa(resp.StatusCode)
		}
		return failedResult(start, resp.StatusCode, string(respBody), msg)
	}

	return Result{
		Success:     true,
		StatusCode:  resp.StatusCode,
		PostID:      parsed.TweetID,
		APIResponse: string(respBody),
		ElapsedMS:   elapsedMS(start),
	}
}

// pace sleeps a uniform random duration in [minDelay, maxDelay], honoring
// context cancellation.
func (c *GatewayClient) pace(ctx context.Context) error {
	if c.maxDelay <= 0 {
		return nil
	}

	delay := c.minDelay
	if span := c.maxDelay - c.minDelay; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span) + 1))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func failedResult(start time.Time, statusCode int, apiResponse, errText string) Result {
	return Result{
		StatusCode:  statusCode,
		APIResponse: apiResponse,
		ErrorText:   errText,
		ElapsedMS:   elapsedMS(start),
	}
}

func elapsedMS(start time.Time) int {
	return int(time.Since(start).Milliseconds())
}
