package pipeline

import (
	"context"
	"log/slog"

	"github.com/Past-Tang/x/internal/metrics"
	"github.com/Past-Tang/x/internal/models"
	"github.com/Past-Tang/x/internal/pool"
	"github.com/Past-Tang/x/internal/selection"
	"github.com/Past-Tang/x/internal/settings"
	"github.com/Past-Tang/x/internal/social"
	"github.com/Past-Tang/x/internal/vault"
)

// Post publishes scheduled standalone posts: content rotation, strategy
// account selection, slot acquisition, publish, and run bookkeeping.
type Post struct {
	jobs      models.JobRepository
	contents  models.ContentRepository
	logs      models.ExecutionLogRepository
	accounts  *pool.Pool
	engine    *selection.Engine
	client    social.Client
	tokens    *vault.Vault
	runtime   settings.Runtime
	collector *metrics.PipelineCollector
	logger    *slog.Logger
}

func NewPost(
	jobs models.JobRepository,
	contents models.ContentRepository,
	logs models.ExecutionLogRepository,
	accounts *pool.Pool,
	engine *selection.Engine,
	client social.Client,
	tokens *vault.Vault,
	runtime settings.Runtime,
	collector *metrics.PipelineCollector,
	logger *slog.Logger,
) *Post {
	return &Post{
		jobs:      jobs,
		contents:  contents,
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

// RunResult summarizes one job run for the caller.
type RunResult struct {
	Result    models.RunResult
	Error     string
	PostID    string
	ContentID string
	AccountID string
}

// RunJob executes one post job. The next run time always advances; the
// rotation pointer advances only on a successful publish, so a failed
// content is retried next cycle.
func (p *Post) RunJob(ctx context.Context, job *models.PostJob) RunResult {
	outcome, contentIndex := p.run(ctx, job)

	if err := p.jobs.UpdateAfterRun(ctx, job.ID, outcome.Result, outcome.Error, outcome.PostID, contentIndex); err != nil {
		p.logger.Error("failed to record job run", "job_id", job.ID, "error", err)
	}

	p.collector.PostsTotal.WithLabelValues(string(outcome.Result)).Inc()
	return outcome
}

// run returns the outcome plus the pointer value to persist on success: the
// selected index plus one, so pointer state stays within [1, activeCount].
func (p *Post) run(ctx context.Context, job *models.PostJob) (RunResult, int) {
	contents, err := p.contents.ListActive(ctx)
	if err != nil {
		return failedRun("list contents: " + err.Error()), 0
	}
	if len(contents) == 0 {
		p.logger.Warn("no active post contents", "job_id", job.ID)
		return failedRun("no active post contents"), 0
	}

	index := job.ContentIndex % len(contents)
	content := contents[index]
	nextPointer := index + 1

	usable, err := p.accounts.ListUsable(ctx)
	if err != nil {
		return failedRun("list accounts: " + err.Error()), 0
	}

	strategy := job.AccountStrategy
	if strategy == "" {
		strategy = p.runtime.AccountStrategy
	}
	account, ok := p.engine.PickAccount(strategy, "post_job:"+job.ID, usable)
	if !ok {
		p.logger.Warn("no usable account for post job", "job_id", job.ID)
		return failedRun("no usable accounts"), 0
	}

	acquired, err := p.accounts.Acquire(ctx, account.ID)
	if err != nil {
		return failedRun("acquire: " + err.Error()), 0
	}
	if !acquired {
		return failedRun("account busy or rate limited"), 0
	}
	defer p.accounts.Release(ctx, account.ID)

	token, err := p.tokens.Open(account.SealedToken)
	if err != nil {
		p.logger.Error("cannot open account token", "account_id", account.ID, "error", err)
		return failedRun("credential vault error"), 0
	}

	text := content.FullText()
	result := p.client.Publish(ctx, token, text)

	p.logExecution(ctx, &models.ExecutionLog{
		Type:         models.LogTypePost,
		AccountID:    account.ID,
		JobID:        job.ID,
		PostID:       result.PostID,
		ContentID:    content.ID,
		ContentText:  text,
		Result:       runResult(result.Success),
		ErrorMessage: result.ErrorText,
		APIResponse:  result.APIResponse,
		ElapsedMS:    result.ElapsedMS,
	})

	if !result.Success {
		if err := p.accounts.RecordFailure(ctx, account.ID, result.ErrorText); err != nil {
			p.logger.Error("failed to record account failure", "account_id", account.ID, "error", err)
		}
		return RunResult{
			Result:    models.RunResultFailed,
			Error:     result.ErrorText,
			ContentID: content.ID,
			AccountID: account.ID,
		}, 0
	}

	if err := p.accounts.RecordSuccess(ctx, account.ID); err != nil {
		p.logger.Error("failed to record account success", "account_id", account.ID, "error", err)
	}
	if err := p.contents.RecordUsage(ctx, content.ID); err != nil {
		p.logger.Error("failed to record content usage", "content_id", content.ID, "error", err)
	}

	p.logger.Info("post published",
		"job_id", job.ID,
		"account_id", account.ID,
		"content_id", content.ID,
		"post_id", result.PostID)

	return RunResult{
		Result:    models.RunResultSuccess,
		PostID:    result.PostID,
		ContentID: content.ID,
		AccountID: account.ID,
	}, nextPointer
}

func (p *Post) logExecution(ctx context.Context, entry *models.ExecutionLog) {
	if err := p.logs.Log(ctx, entry); err != nil {
		p.logger.Error("failed to write execution log", "type", entry.Type, "error", err)
	}
}

func failedRun(reason string) RunResult {
	return RunResult{Result: models.RunResultFailed, Error: reason}
}
