// Package pipeline implements the two dispatch pipelines: monitor targets
// and reply to their new posts, and publish scheduled standalone posts.
package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"github.com/Past-Tang/x/internal/metrics"
	"github.com/Past-Tang/x/internal/models"
	"github.com/Past-Tang/x/internal/pool"
	"github.com/Past-Tang/x/internal/selection"
	"github.com/Past-Tang/x/internal/settings"
	"github.com/Past-Tang/x/internal/social"
	"github.com/Past-Tang/x/internal/vault"
)

// Monitor runs one check cycle per due target: fetch the timeline, detect
// posts above the watermark, fan replies out over every usable account, then
// advance the watermark and reschedule.
type Monitor struct {
	targets   models.TargetRepository
	templates models.TemplateRepository
	ledger    models.ReplyLedger
	logs      models.ExecutionLogRepository
	accounts  *pool.Pool
	engine    *selection.Engine
	client    social.Client
	tokens    *vault.Vault
	runtime   settings.Runtime
	collector *metrics.PipelineCollector
	logger    *slog.Logger
}

func NewMonitor(
	targets models.TargetRepository,
	templates models.TemplateRepository,
	ledger models.ReplyLedger,
	logs models.ExecutionLogRepository,
	accounts *pool.Pool,
	engine *selection.Engine,
	client social.Client,
	tokens *vault.Vault,
	runtime settings.Runtime,
	collector *metrics.PipelineCollector,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		targets:   targets,
		templates: templates,
		ledger:    ledger,
		logs:      logs,
		accounts:  accounts,
		engine:    engine,
		client:    client,
		tokens:    tokens,
		runtime:   runtime,
		collector: collector,
		logger:    logger,
	}
}

// CheckResult summarizes one target check for the caller.
type CheckResult struct {
	Result       models.RunResult
	Error        string
	PostsFetched int
	NewPosts     int
	RepliesSent  int
}

// CheckTarget runs the full cycle for one target. The next check time always
// advances, success or failure.
func (m *Monitor) CheckTarget(ctx context.Context, target *models.MonitorTarget) CheckResult {
	outcome := m.check(ctx, target)

	if err := m.targets.UpdateAfterCheck(ctx, target.ID, outcome.Result, outcome.Error, outcome.NewPosts); err != nil {
		m.logger.Error("failed to record check outcome", "target_id", target.ID, "error", err)
	}

	m.collector.FetchesTotal.WithLabelValues(string(outcome.Result)).Inc()
	return outcome
}

func (m *Monitor) check(ctx context.Context, target *models.MonitorTarget) CheckResult {
	fetch := m.client.FetchUserPosts(ctx, target.UserID, target.FetchCount)

	m.logExecution(ctx, &models.ExecutionLog{
		Type:         models.LogTypeMonitor,
		TargetID:     target.ID,
		Result:       runResult(fetch.Success),
		ErrorMessage: fetch.ErrorText,
		APIResponse:  fetch.APIResponse,
		ElapsedMS:    fetch.ElapsedMS,
	})

	if !fetch.Success {
		m.logger.Warn("target fetch failed",
			"target_id", target.ID,
			"user_id", target.UserID,
			"error", fetch.ErrorText)
		return CheckResult{Result: models.RunResultFailed, Error: fetch.ErrorText}
	}

	newPosts, watermark := detectNew(fetch.Posts, target.LastSeenPostID)
	if len(newPosts) > target.MaxNewPerCheck && target.MaxNewPerCheck > 0 {
		newPosts = newPosts[:target.MaxNewPerCheck]
	}

	replies := 0
	for _, post := range newPosts {
		replies += m.fanOut(ctx, target, post)
	}

	if replies > 0 {
		if err := m.targets.IncrementReplies(ctx, target.ID, replies); err != nil {
			m.logger.Error("failed to increment reply counter", "target_id", target.ID, "error", err)
		}
	}

	// The watermark tracks what was seen, not what was replied to. It
	// advances after any successful fetch that returned posts.
	if watermark != "" && watermark != target.LastSeenPostID {
		if err := m.targets.AdvanceWatermark(ctx, target.ID, watermark); err != nil {
			m.logger.Error("failed to advance watermark", "target_id", target.ID, "error", err)
		}
	}

	m.logger.Info("target checked",
		"target_id", target.ID,
		"user_id", target.UserID,
		"fetched", len(fetch.Posts),
		"new", len(newPosts),
		"replies", replies,
		"watermark", watermark)

	return CheckResult{
		Result:       models.RunResultSuccess,
		PostsFetched: len(fetch.Posts),
		NewPosts:     len(newPosts),
		RepliesSent:  replies,
	}
}

// fanOut replies to one post from every usable account. Returns the number
// of replies sent.
func (m *Monitor) fanOut(ctx context.Context, target *models.MonitorTarget, post social.Post) int {
	usable, err := m.accounts.ListUsable(ctx)
	if err != nil {
		m.logger.Error("failed to list usable accounts", "error", err)
		return 0
	}
	if len(usable) == 0 {
		m.logger.Info("no usable accounts for reply fan-out", "target_id", target.ID, "post_id", post.ID)
		return 0
	}

	sent := 0
	for _, account := range usable {
		if m.replyOnce(ctx, target, post, account) {
			sent++
		}
	}
	return sent
}

// replyOnce sends one reply from one account, guarded by the dedup ledger
// and the atomic slot acquisition. The slot is released on every exit path.
func (m *Monitor) replyOnce(ctx context.Context, target *models.MonitorTarget, post social.Post, account *models.Account) bool {
	replied, err := m.ledger.HasReplied(ctx, target.UserID, post.ID, account.ID)
	if err != nil {
		m.logger.Error("ledger check failed", "account_id", account.ID, "post_id", post.ID, "error", err)
		return false
	}
	if replied {
		return false
	}

	acquired, err := m.accounts.Acquire(ctx, account.ID)
	if err != nil {
		m.logger.Error("slot acquisition errored", "account_id", account.ID, "error", err)
		return false
	}
	if !acquired {
		return false
	}
	defer m.accounts.Release(ctx, account.ID)

	templates, err := m.templates.ListForTarget(ctx, target.ID)
	if err != nil {
		m.logger.Error("template listing failed", "target_id", target.ID, "error", err)
		return false
	}

	tpl, ok := m.engine.PickTemplate(m.runtime.TemplateStrategy, "templates:"+target.ID, templates)
	if !ok {
		m.logger.Warn("no active reply template", "target_id", target.ID)
		return false
	}

	token, err := m.tokens.Open(account.SealedToken)
	if err != nil {
		m.logger.Error("cannot open account token", "account_id", account.ID, "error", err)
		return false
	}

	result := m.client.Reply(ctx, token, post.ID, tpl.Content)

	m.logExecution(ctx, &models.ExecutionLog{
		Type:         models.LogTypeReply,
		AccountID:    account.ID,
		TargetID:     target.ID,
		PostID:       post.ID,
		PostAuthorID: post.AuthorID,
		ContentID:    tpl.ID,
		ContentText:  tpl.Content,
		Result:       runResult(result.Success),
		ErrorMessage: result.ErrorText,
		APIResponse:  result.APIResponse,
		ElapsedMS:    result.ElapsedMS,
	})
	m.collector.RepliesTotal.WithLabelValues(string(runResult(result.Success))).Inc()

	if !result.Success {
		if err := m.accounts.RecordFailure(ctx, account.ID, result.ErrorText); err != nil {
			m.logger.Error("failed to record account failure", "account_id", account.ID, "error", err)
		}
		return false
	}

	if err := m.accounts.RecordSuccess(ctx, account.ID); err != nil {
		m.logger.Error("failed to record account success", "account_id", account.ID, "error", err)
	}
	if err := m.templates.RecordUsage(ctx, tpl.ID); err != nil {
		m.logger.Error("failed to record template usage", "template_id", tpl.ID, "error", err)
	}
	if err := m.ledger.Record(ctx, &models.ReplyRecord{
		TargetUserID: target.UserID,
		PostID:       post.ID,
		AccountID:    account.ID,
		ReplyPostID:  result.PostID,
	}); err != nil {
		m.logger.Error("failed to record reply in ledger", "account_id", account.ID, "post_id", post.ID, "error", err)
	}
	return true
}

func (m *Monitor) logExecution(ctx context.Context, entry *models.ExecutionLog) {
	if err := m.logs.Log(ctx, entry); err != nil {
		m.logger.Error("failed to write execution log", "type", entry.Type, "error", err)
	}
}

// detectNew returns the posts strictly above the watermark, oldest first,
// plus the highest id seen. Post ids are compared as unsigned integers; a
// post with an unparseable id is skipped.
func detectNew(posts []social.Post, lastSeen string) ([]social.Post, string) {
	var lastSeenN uint64
	if lastSeen != "" {
		lastSeenN, _ = strconv.ParseUint(lastSeen, 10, 64)
	}

	maxSeen := lastSeenN
	sawAny := false
	var fresh []social.Post
	for _, p := range posts {
		id, err := strconv.ParseUint(p.ID, 10, 64)
		if err != nil {
			continue
		}
		sawAny = true
		if id > maxSeen {
			maxSeen = id
		}
		if lastSeen == "" || id > lastSeenN {
			fresh = append(fresh, p)
		}
	}

	// Oldest first so the fan-out cap keeps the earliest posts.
	sortPostsByID(fresh)

	if !sawAny {
		return fresh, ""
	}
	return fresh, strconv.FormatUint(maxSeen, 10)
}

func sortPostsByID(posts []social.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, _ := strconv.ParseUint(posts[i].ID, 10, 64)
		b, _ := strconv.ParseUint(posts[j].ID, 10, 64)
		return a < b
	})
}

func runResult(success bool) models.RunResult {
	if success {
		return models.RunResultSuccess
	}
	return models.RunResultFailed
}
