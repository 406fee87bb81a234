package models

import (
	"context"
	"fmt"
	"time"
)

// AccountStatus is the lifecycle state of a pool account.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusSuspect  AccountStatus = "suspect"
	AccountStatusDisabled AccountStatus = "disabled"
)

// ParseAccountStatus validates a raw status string.
func ParseAccountStatus(raw string) (AccountStatus, error) {
	switch AccountStatus(raw) {
	case AccountStatusActive, AccountStatusSuspect, AccountStatusDisabled:
		return AccountStatus(raw), nil
	default:
		return "", fmt.Errorf("invalid account status: %q", raw)
	}
}

// HourlyWindow is the length of the per-account rate-limit window.
const HourlyWindow = time.Hour

// Account is a credentialed actor in the pool. The auth token is stored
// sealed; only the vault can open it.
type Account struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	UserID              string        `json:"user_id,omitempty"`
	Handle              string        `json:"handle,omitempty"`
	SealedToken         string        `json:"-"`
	Status              AccountStatus `json:"status"`
	LastUsedAt          *time.Time    `json:"last_used_at,omitempty"`
	LastSuccessAt       *time.Time    `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time    `json:"last_failure_at,omitempty"`
	LastFailureReason   string        `json:"last_failure_reason,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	HourlyActionCount   int           `json:"hourly_action_count"`
	HourlyWindowStart   *time.Time    `json:"hourly_window_start,omitempty"`
	SlotsInUse          int           `json:"slots_in_use"`
	MaxSlots            int           `json:"max_slots"`
	Weight              int           `json:"weight"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// Usable reports whether the account passes the status, hourly-limit and
// concurrency-slot checks at the given instant. It is a read-only snapshot
// check; the atomic check-then-increment lives in AccountRepository.AcquireSlot.
func (a *Account) Usable(now time.Time, hourlyLimit int) bool {
	if a.Status != AccountStatusActive {
		return false
	}
	if a.HourlyWindowStart != nil && now.Sub(*a.HourlyWindowStart) <= HourlyWindow {
		if a.HourlyActionCount >= hourlyLimit {
			return false
		}
	}
	return a.SlotsInUse < a.MaxSlots
}

// AccountRepository defines persistence operations for pool accounts.
type AccountRepository interface {
	// Create stores a new account.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id string) (*Account, error)

	// ListAll returns all accounts in creation order.
	ListAll(ctx context.Context) ([]*Account, error)

	// ListByStatus returns accounts with the given status in creation order.
	ListByStatus(ctx context.Context, status AccountStatus) ([]*Account, error)

	// Update persists administrative field changes.
	Update(ctx context.Context, account *Account) error

	// Delete removes an account.
	Delete(ctx context.Context, id string) error

	// SetStatus changes the account status. Reactivating a suspect or
	// disabled account clears its consecutive failure count.
	SetStatus(ctx context.Context, id string, status AccountStatus) error

	// AcquireSlot atomically re-validates usability and increments the
	// concurrency slot counter. Returns false without mutation if the
	// account is no longer usable.
	AcquireSlot(ctx context.Context, id string, hourlyLimit int) (bool, error)

	// ReleaseSlot decrements the slot counter, floored at zero.
	ReleaseSlot(ctx context.Context, id string) error

	// RecordSuccess marks a successful action: success timestamp, failure
	// streak reset, hourly counter advance.
	RecordSuccess(ctx context.Context, id string) error

	// RecordFailure marks a failed action and flips the account to suspect
	// once the consecutive-failure threshold is reached. Returns the status
	// after the update.
	RecordFailure(ctx context.Context, id string, reason string, threshold int) (AccountStatus, error)
}
