package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Past-Tang/x/internal/models"
)

const accountColumns = `id, name, user_id, handle, sealed_token, status,
	last_used_at, last_success_at, last_failure_at, last_failure_reason,
	consecutive_failures, hourly_action_count, hourly_window_start,
	slots_in_use, max_slots, weight, created_at, updated_at`

// PostgresAccountRepository persists pool accounts in PostgreSQL.
type PostgresAccountRepository struct {
	db *sql.DB
}

func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (name, user_id, handle, sealed_token, status, max_slots, weight)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRowContext(ctx, query,
		account.Name,
		nullString(account.UserID),
		nullString(account.Handle),
		account.SealedToken,
		account.Status,
		account.MaxSlots,
		account.Weight,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *PostgresAccountRepository) ListAll(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAccounts(rows)
}

func (r *PostgresAccountRepository) ListByStatus(ctx context.Context, status models.AccountStatus) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE status = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAccounts(rows)
}

func (r *PostgresAccountRepository) Update(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts SET
			name = $2,
			user_id = $3,
			handle = $4,
			sealed_token = $5,
			status = $6,
			max_slots = $7,
			weight = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		account.ID,
		account.Name,
		nullString(account.UserID),
		nullString(account.Handle),
		account.SealedToken,
		account.Status,
		account.MaxSlots,
		account.Weight,
	).Scan(&account.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("account %s not found", account.ID)
	}
	return err
}

func (r *PostgresAccountRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}

// SetStatus changes the account status. Moving back to active clears the
// failure streak so a reactivated account starts clean.
func (r *PostgresAccountRepository) SetStatus(ctx context.Context, id string, status models.AccountStatus) error {
	query := `
		UPDATE accounts SET
			status = $2,
			consecutive_failures = CASE WHEN $2 = 'active' THEN 0 ELSE consecutive_failures END,
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status)
	return err
}

// AcquireSlot is the single synchronization point of the pool: one
// conditional UPDATE re-validates status, hourly window and slot headroom
// and increments the slot counter. Concurrent callers cannot double-book
// because the row is locked for the duration of the statement.
func (r *PostgresAccountRepository) AcquireSlot(ctx context.Context, id string, hourlyLimit int) (bool, error) {
	query := `
		UPDATE accounts SET
			slots_in_use = slots_in_use + 1,
			last_used_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		  AND slots_in_use < max_slots
		  AND (hourly_window_start IS NULL
		       OR hourly_window_start <= NOW() - INTERVAL '1 hour'
		       OR hourly_action_count < $2)
	`

	res, err := r.db.ExecContext(ctx, query, id, hourlyLimit)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresAccountRepository) ReleaseSlot(ctx context.Context, id string) error {
	query := `
		UPDATE accounts SET
			slots_in_use = GREATEST(slots_in_use - 1, 0),
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresAccountRepository) RecordSuccess(ctx context.Context, id string) error {
	query := `
		UPDATE accounts SET
			last_used_at = NOW(),
			last_success_at = NOW(),
			consecutive_failures = 0,
			hourly_action_count = CASE
				WHEN hourly_window_start IS NULL OR hourly_window_start <= NOW() - INTERVAL '1 hour'
				THEN 1 ELSE hourly_action_count + 1 END,
			hourly_window_start = CASE
				WHEN hourly_window_start IS NULL OR hourly_window_start <= NOW() - INTERVAL '1 hour'
				THEN NOW() ELSE hourly_window_start END,
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresAccountRepository) RecordFailure(ctx context.Context, id string, reason string, threshold int) (models.AccountStatus, error) {
	query := `
		UPDATE accounts SET
			last_used_at = NOW(),
			last_failure_at = NOW(),
			last_failure_reason = $2,
			consecutive_failures = consecutive_failures + 1,
			status = CASE
				WHEN status = 'active' AND consecutive_failures + 1 >= $3
				THEN 'suspect' ELSE status END,
			hourly_action_count = CASE
				WHEN hourly_window_start IS NULL OR hourly_window_start <= NOW() - INTERVAL '1 hour'
				THEN 1 ELSE hourly_action_count + 1 END,
			hourly_window_start = CASE
				WHEN hourly_window_start IS NULL OR hourly_window_start <= NOW() - INTERVAL '1 hour'
				THEN NOW() ELSE hourly_window_start END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING status
	`

	var status models.AccountStatus
	err := r.db.QueryRowContext(ctx, query, id, reason, threshold).Scan(&status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("account %s not found", id)
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var userID, handle, failureReason sql.NullString

	err := row.Scan(
		&account.ID,
		&account.Name,
		&userID,
		&handle,
		&account.SealedToken,
		&account.Status,
		&account.LastUsedAt,
		&account.LastSuccessAt,
		&account.LastFailureAt,
		&failureReason,
		&account.ConsecutiveFailures,
		&account.HourlyActionCount,
		&account.HourlyWindowStart,
		&account.SlotsInUse,
		&account.MaxSlots,
		&account.Weight,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.UserID = userID.String
	account.Handle = handle.String
	account.LastFailureReason = failureReason.String

	return &account, nil
}

func scanAccounts(rows *sql.Rows) ([]*models.Account, error) {
	var accounts []*models.Account

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
