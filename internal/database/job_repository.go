package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Past-Tang/x/internal/models"
)

const jobColumns = `id, name, status, interval_minutes, content_index,
	account_strategy, last_run_at, next_run_at, last_run_result, last_run_error,
	last_post_id, total_posts, created_at, updated_at`

// PostgresJobRepository persists post jobs in PostgreSQL.
type PostgresJobRepository struct {
	db *sql.DB
}

func NewPostgresJobRepository(db *sql.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) Create(ctx context.Context, job *models.PostJob) error {
	query := `
		INSERT INTO post_jobs (name, status, interval_minutes, account_strategy)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRowContext(ctx, query,
		job.Name,
		job.Status,
		job.IntervalMinutes,
		job.AccountStrategy,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
}

func (r *PostgresJobRepository) GetByID(ctx context.Context, id string) (*models.PostJob, error) {
	query := `SELECT ` + jobColumns + ` FROM post_jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *PostgresJobRepository) ListAll(ctx context.Context) ([]*models.PostJob, error) {
	query := `SELECT ` + jobColumns + ` FROM post_jobs ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func (r *PostgresJobRepository) ListDue(ctx context.Context, now time.Time) ([]*models.PostJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM post_jobs
		WHERE status = 'active' AND (next_run_at IS NULL OR next_run_at <= $1)
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func (r *PostgresJobRepository) Update(ctx context.Context, job *models.PostJob) error {
	query := `
		UPDATE post_jobs SET
			name = $2,
			status = $3,
			interval_minutes = $4,
			content_index = $5,
			account_strategy = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		job.ID,
		job.Name,
		job.Status,
		job.IntervalMinutes,
		job.ContentIndex,
		job.AccountStrategy,
	).Scan(&job.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("job %s not found", job.ID)
	}
	return err
}

func (r *PostgresJobRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM post_jobs WHERE id = $1`, id)
	return err
}

func (r *PostgresJobRepository) SetStatus(ctx context.Context, id string, status models.EntityStatus) error {
	query := `UPDATE post_jobs SET status = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, status)
	return err
}

// UpdateAfterRun reschedules the job one interval out and, on success,
// stores the caller-computed rotation pointer and advances the post
// counters.
func (r *PostgresJobRepository) UpdateAfterRun(ctx context.Context, id string, result models.RunResult, runErr string, postID string, contentIndex int) error {
	query := `
		UPDATE post_jobs SET
			last_run_at = NOW(),
			next_run_at = NOW() + make_interval(mins => interval_minutes),
			last_run_result = $2,
			last_run_error = $3,
			content_index = CASE WHEN $2 = 'success' THEN $5 ELSE content_index END,
			total_posts = CASE WHEN $2 = 'success' THEN total_posts + 1 ELSE total_posts END,
			last_post_id = CASE WHEN $2 = 'success' THEN $4 ELSE last_post_id END,
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, result, runErr, postID, contentIndex)
	return err
}

func scanJob(row rowScanner) (*models.PostJob, error) {
	var job models.PostJob
	var lastResult, lastError, lastPostID sql.NullString

	err := row.Scan(
		&job.ID,
		&job.Name,
		&job.Status,
		&job.IntervalMinutes,
		&job.ContentIndex,
		&job.AccountStrategy,
		&job.LastRunAt,
		&job.NextRunAt,
		&lastResult,
		&lastError,
		&lastPostID,
		&job.TotalPosts,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.LastRunResult = models.RunResult(lastResult.String)
	job.LastRunError = lastError.String
	job.LastPostID = lastPostID.String

	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]*models.PostJob, error) {
	var jobs []*models.PostJob

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}
