package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Past-Tang/x/internal/database"
	"github.com/Past-Tang/x/internal/metrics"
	"github.com/Past-Tang/x/internal/models"
	"github.com/Past-Tang/x/internal/pipeline"
	"github.com/Past-Tang/x/internal/pool"
	"github.com/Past-Tang/x/internal/selection"
	"github.com/Past-Tang/x/internal/settings"
	"github.com/Past-Tang/x/internal/social"
	"github.com/Past-Tang/x/internal/vault"
)

type staticClient struct {
	fetch social.Result
}

func (c *staticClient) FetchUserPosts(ctx context.Context, userID string, count int) social.Result {
	return c.fetch
}

func (c *staticClient) Reply(ctx context.Context, authToken, postID, text string) social.Result {
	return social.Result{Success: true, StatusCode: 200, PostID: "r1"}
}

func (c *staticClient) Publish(ctx context.Context, authToken, text string) social.Result {
	return social.Result{Success: true, StatusCode: 200, PostID: "p1"}
}

func TestMonitorSchedulerRunsDueTargetOnStart(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	httpCollector, err := metrics.NewHTTPCollector()
	if err != nil {
		t.Fatalf("NewHTTPCollector: %v", err)
	}
	collector, err := metrics.NewPipelineCollector(httpCollector)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}

	key, _ := vault.GenerateKey()
	tokens, err := vault.New(key)
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}

	accounts := database.NewMemoryAccountRepository()
	targets := database.NewMemoryTargetRepository()
	templates := database.NewMemoryTemplateRepository()
	ledger := database.NewMemoryReplyLedger()
	logs := database.NewMemoryExecutionLogRepository()

	accountPool := pool.New(accounts, 10, 3, collector, logger)
	engine := selection.NewEngine(selection.NewCursorStore())
	runtime := settings.Runtime{
		AccountStrategy:  models.StrategyRoundRobin,
		TemplateStrategy: models.StrategyRoundRobin,
	}

	target := &models.MonitorTarget{
		UserID:               "u1",
		Status:               models.EntityStatusActive,
		CheckIntervalMinutes: 30,
		FetchCount:           20,
		MaxNewPerCheck:       5,
	}
	if err := targets.Create(ctx, target); err != nil {
		t.Fatalf("Create: %v", err)
	}

	client := &staticClient{fetch: social.Result{Success: true, StatusCode: 200}}
	monitor := pipeline.NewMonitor(targets, templates, ledger, logs, accountPool, engine, client, tokens, runtime, collector, logger)

	s := NewMonitorScheduler(targets, monitor, time.Hour, logger)

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	// The scheduler runs once immediately; poll until the target has been
	// checked and rescheduled.
	deadline := time.After(2 * time.Second)
	for {
		got, err := targets.GetByID(ctx, target.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.NextCheckAt != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("target was not checked on scheduler start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestPostSchedulerStopsOnContextCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobs := database.NewMemoryJobRepository()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewPostScheduler(jobs, nil, time.Hour, logger)

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}
