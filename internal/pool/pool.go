// Package pool manages the credentialed account pool: usability policy,
// concurrency slot acquisition and success/failure accounting.
package pool

import (
	"context"
	"log/slog"
	"time"

	"github.com/Past-Tang/x/internal/metrics"
	"github.com/Past-Tang/x/internal/models"
)

// Pool wraps the account repository with the usability policy. Acquire is
// backed by the repository's atomic slot acquisition, so two concurrent
// callers can never over-commit one account.
type Pool struct {
	repo             models.AccountRepository
	hourlyLimit      int
	failureThreshold int
	collector        *metrics.PipelineCollector
	logger           *slog.Logger
}

func New(repo models.AccountRepository, hourlyLimit, failureThreshold int, collector *metrics.PipelineCollector, logger *slog.Logger) *Pool {
	return &Pool{
		repo:             repo,
		hourlyLimit:      hourlyLimit,
		failureThreshold: failureThreshold,
		collector:        collector,
		logger:           logger,
	}
}

// HourlyLimit returns the per-account hourly action limit in force.
func (p *Pool) HourlyLimit() int {
	return p.hourlyLimit
}

// ListUsable returns the accounts that currently pass the status, hourly
// window and slot checks. The snapshot is advisory; Acquire re-checks
// atomically.
func (p *Pool) ListUsable(ctx context.Context) ([]*models.Account, error) {
	active, err := p.repo.ListByStatus(ctx, models.AccountStatusActive)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	usable := make([]*models.Account, 0, len(active))
	for _, a := range active {
		if a.Usable(now, p.hourlyLimit) {
			usable = append(usable, a)
		}
	}
	return usable, nil
}

// Acquire takes one concurrency slot on the account. Returns false when the
// account no longer passes the usability check.
func (p *Pool) Acquire(ctx context.Context, accountID string) (bool, error) {
	ok, err := p.repo.AcquireSlot(ctx, accountID, p.hourlyLimit)
	if err != nil {
		return false, err
	}
	if !ok {
		p.collector.SlotRejections.Inc()
		p.logger.Debug("slot acquisition refused", "account_id", accountID)
	}
	return ok, nil
}

// Release returns a concurrency slot. Safe to call on every exit path; the
// counter never goes below zero.
func (p *Pool) Release(ctx context.Context, accountID string) {
	if err := p.repo.ReleaseSlot(ctx, accountID); err != nil {
		p.logger.Error("failed to release account slot", "account_id", accountID, "error", err)
	}
}

// RecordSuccess marks a successful action on the account.
func (p *Pool) RecordSuccess(ctx context.Context, accountID string) error {
	return p.repo.RecordSuccess(ctx, accountID)
}

// RecordFailure marks a failed action. When the failure streak reaches the
// threshold the account flips to suspect and drops out of rotation.
func (p *Pool) RecordFailure(ctx context.Context, accountID string, reason string) error {
	status, err := p.repo.RecordFailure(ctx, accountID, reason, p.failureThreshold)
	if err != nil {
		return err
	}
	if status == models.AccountStatusSuspect {
		p.collector.AccountSuspensions.Inc()
		p.logger.Warn("account suspended after repeated failures",
			"account_id", accountID,
			"reason", reason,
			"threshold", p.failureThreshold)
	}
	return nil
}
