package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Past-Tang/x/internal/models"
)

const targetColumns = `id, user_id, username, name, status,
	check_interval_minutes, fetch_count, max_new_per_check, last_seen_post_id,
	last_check_at, next_check_at, last_check_result, last_check_error,
	total_posts_found, total_replies_sent, created_at, updated_at`

// PostgresTargetRepository persists monitor targets in PostgreSQL.
type PostgresTargetRepository struct {
	db *sql.DB
}

func NewPostgresTargetRepository(db *sql.DB) *PostgresTargetRepository {
	return &PostgresTargetRepository{db: db}
}

func (r *PostgresTargetRepository) Create(ctx context.Context, target *models.MonitorTarget) error {
	query := `
		INSERT INTO monitor_targets
		(user_id, username, name, status, check_interval_minutes, fetch_count, max_new_per_check)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRowContext(ctx, query,
		target.UserID,
		nullString(target.Username),
		nullString(target.Name),
		target.Status,
		target.CheckIntervalMinutes,
		target.FetchCount,
		target.MaxNewPerCheck,
	).Scan(&target.ID, &target.CreatedAt, &target.UpdatedAt)
}

func (r *PostgresTargetRepository) GetByID(ctx context.Context, id string) (*models.MonitorTarget, error) {
	query := `SELECT ` + targetColumns + ` FROM monitor_targets WHERE id = $1`

	target, err := scanTarget(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return target, nil
}

func (r *PostgresTargetRepository) ListAll(ctx context.Context) ([]*models.MonitorTarget, error) {
	query := `SELECT ` + targetColumns + ` FROM monitor_targets ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTargets(rows)
}

func (r *PostgresTargetRepository) ListDue(ctx context.Context, now time.Time) ([]*models.MonitorTarget, error) {
	query := `
		SELECT ` + targetColumns + `
		FROM monitor_targets
		WHERE status = 'active' AND (next_check_at IS NULL OR next_check_at <= $1)
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTargets(rows)
}

func (r *PostgresTargetRepository) Update(ctx context.Context, target *models.MonitorTarget) error {
	query := `
		UPDATE monitor_targets SET
			user_id = $2,
			username = $3,
			name = $4,
			status = $5,
			check_interval_minutes = $6,
			fetch_count = $7,
			max_new_per_check = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		target.ID,
		target.UserID,
		nullString(target.Username),
		nullString(target.Name),
		target.Status,
		target.CheckIntervalMinutes,
		target.FetchCount,
		target.MaxNewPerCheck,
	).Scan(&target.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("target %s not found", target.ID)
	}
	return err
}

func (r *PostgresTargetRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM monitor_targets WHERE id = $1`, id)
	return err
}

func (r *PostgresTargetRepository) SetStatus(ctx context.Context, id string, status models.EntityStatus) error {
	query := `UPDATE monitor_targets SET status = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, status)
	return err
}

// UpdateAfterCheck always pushes next_check_at one interval out so a failed
// check never retries sooner than its normal cadence.
func (r *PostgresTargetRepository) UpdateAfterCheck(ctx context.Context, id string, result models.RunResult, checkErr string, postsFound int) error {
	query := `
		UPDATE monitor_targets SET
			last_check_at = NOW(),
			next_check_at = NOW() + make_interval(mins => check_interval_minutes),
			last_check_result = $2,
			last_check_error = $3,
			total_posts_found = total_posts_found + $4,
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, result, nullString(checkErr), postsFound)
	return err
}

func (r *PostgresTargetRepository) AdvanceWatermark(ctx context.Context, id string, postID string) error {
	query := `UPDATE monitor_targets SET last_seen_post_id = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, postID)
	return err
}

func (r *PostgresTargetRepository) IncrementReplies(ctx context.Context, id string, n int) error {
	query := `UPDATE monitor_targets SET total_replies_sent = total_replies_sent + $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, n)
	return err
}

func scanTarget(row rowScanner) (*models.MonitorTarget, error) {
	var target models.MonitorTarget
	var username, name, lastSeen, result, checkErr sql.NullString

	err := row.Scan(
		&target.ID,
		&target.UserID,
		&username,
		&name,
		&target.Status,
		&target.CheckIntervalMinutes,
		&target.FetchCount,
		&target.MaxNewPerCheck,
		&lastSeen,
		&target.LastCheckAt,
		&target.NextCheckAt,
		&result,
		&checkErr,
		&target.TotalPostsFound,
		&target.TotalRepliesSent,
		&target.CreatedAt,
		&target.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	target.Username = username.String
	target.Name = name.String
	target.LastSeenPostID = lastSeen.String
	target.LastCheckResult = models.RunResult(result.String)
	target.LastCheckError = checkErr.String

	return &target, nil
}

func scanTargets(rows *sql.Rows) ([]*models.MonitorTarget, error) {
	var targets []*models.MonitorTarget

	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}

	return targets, rows.Err()
}
