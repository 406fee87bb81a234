package social

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient disables pacing so tests run instantly.
func newTestClient(baseURL string) *GatewayClient {
	return NewGatewayClient(baseURL, "test-key", 0, 0, discardLogger())
}

func TestFetchUserPosts(t *testing.T) {
	var gotPath, gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "success",
			"tweets": [
				{"id": "105", "text": "newer", "author": {"id": "u1"}},
				{"id": "95", "text": "older", "author": {"id": "u1"}}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.FetchUserPosts(context.Background(), "u1", 20)

	if !result.Success {
		t.Fatalf("fetch failed: %s", result.ErrorText)
	}
	if gotPath != "/twitter/user/last_tweets" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAPIKey != "test-key" {
		t.Fatalf("X-API-Key = %q", gotAPIKey)
	}
	if len(result.Posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(result.Posts))
	}
	if result.Posts[0].ID != "105" || result.Posts[0].AuthorID != "u1" {
		t.Fatalf("first post = %+v", result.Posts[0])
	}
}

func TestFetchUserPostsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status": "error", "msg": "rate limited"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.FetchUserPosts(context.Background(), "u1", 20)

	if result.Success {
		t.Fatal("fetch should fail on gateway error")
	}
	if result.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d", result.StatusCode)
	}
	if result.ErrorText != "rate limited" {
		t.Fatalf("error = %q", result.ErrorText)
	}
}

func TestFetchUserPostsUnreachableGateway(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")
	result := client.FetchUserPosts(context.Background(), "u1", 20)

	if result.Success {
		t.Fatal("fetch against unreachable gateway should fail")
	}
	if result.ErrorText == "" {
		t.Fatal("failed result should carry an error text")
	}
}

func TestReply(t *testing.T) {
	var gotAuthToken string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/twitter/tweet/reply" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuthToken = r.Header.Get("AuthToken")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"status": "success", "tweet_id": "777"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.Reply(context.Background(), "secret-token", "105", "nice post")

	if !result.Success {
		t.Fatalf("reply failed: %s", result.ErrorText)
	}
	if result.PostID != "777" {
		t.Fatalf("PostID = %q, want 777", result.PostID)
	}
	if gotAuthToken != "secret-token" {
		t.Fatalf("AuthToken header = %q", gotAuthToken)
	}
	if gotBody["tweet_id"] != "105" || gotBody["reply_text"] != "nice post" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestPublish(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/twitter/tweet" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"status": "success", "tweet_id": "888"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.Publish(context.Background(), "secret-token", "hello world\nhttps://example.com")

	if !result.Success {
		t.Fatalf("publish failed: %s", result.ErrorText)
	}
	if result.PostID != "888" {
		t.Fatalf("PostID = %q, want 888", result.PostID)
	}
	if gotBody["tweet_text"] != "hello world\nhttps://example.com" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestPublishErrorStatusInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200 but an application-level error.
		w.Write([]byte(`{"status": "error", "msg": "auth token expired"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.Publish(context.Background(), "stale-token", "hello")

	if result.Success {
		t.Fatal("publish should fail on application error")
	}
	if result.ErrorText != "auth token expired" {
		t.Fatalf("error = %q", result.ErrorText)
	}
}

func TestElapsedExcludesPacingDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "success", "tweet_id": "900"}`))
	}))
	defer server.Close()

	// One-second fixed pacing against an instant server: elapsed must cover
	// only the gateway round trip, not the sleep.
	client := NewGatewayClient(server.URL, "test-key", 1, 1, discardLogger())
	result := client.Publish(context.Background(), "tok", "hello")

	if !result.Success {
		t.Fatalf("publish failed: %s", result.ErrorText)
	}
	if result.ElapsedMS >= 1000 {
		t.Fatalf("ElapsedMS = %d, includes pacing delay", result.ElapsedMS)
	}
}

func TestPaceHonorsCancelledContext(t *testing.T) {
	client := NewGatewayClient("http://unused", "k", 5, 10, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := client.FetchUserPosts(ctx, "u1", 20)
	if result.Success {
		t.Fatal("cancelled context should fail the call")
	}
}
