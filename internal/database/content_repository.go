package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Past-Tang/x/internal/models"
)

const contentColumns = `id, text, link, status, sort_order, usage_count,
	last_used_at, created_at, updated_at`

// PostgresContentRepository persists post contents in PostgreSQL.
type PostgresContentRepository struct {
	db *sql.DB
}

func NewPostgresContentRepository(db *sql.DB) *PostgresContentRepository {
	return &PostgresContentRepository{db: db}
}

func (r *PostgresContentRepository) Create(ctx context.Context, content *models.PostContent) error {
	query := `
		INSERT INTO post_contents (text, link, status, sort_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRowContext(ctx, query,
		content.Text,
		nullString(content.Link),
		content.Status,
		content.SortOrder,
	).Scan(&content.ID, &content.CreatedAt, &content.UpdatedAt)
}

func (r *PostgresContentRepository) GetByID(ctx context.Context, id string) (*models.PostContent, error) {
	query := `SELECT ` + contentColumns + ` FROM post_contents WHERE id = $1`

	content, err := scanContent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (r *PostgresContentRepository) ListAll(ctx context.Context) ([]*models.PostContent, error) {
	query := `SELECT ` + contentColumns + ` FROM post_contents ORDER BY sort_order, created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanContents(rows)
}

// ListActive returns active contents in the stable order the rotation
// pointer indexes into.
func (r *PostgresContentRepository) ListActive(ctx context.Context) ([]*models.PostContent, error) {
	query := `
		SELECT ` + contentColumns + `
		FROM post_contents
		WHERE status = 'active'
		ORDER BY sort_order, created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanContents(rows)
}

func (r *PostgresContentRepository) Update(ctx context.Context, content *models.PostContent) error {
	query := `
		UPDATE post_contents SET
			text = $2,
			link = $3,
			status = $4,
			sort_order = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		content.ID,
		content.Text,
		nullString(content.Link),
		content.Status,
		content.SortOrder,
	).Scan(&content.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("content %s not found", content.ID)
	}
	return err
}

func (r *PostgresContentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM post_contents WHERE id = $1`, id)
	return err
}

func (r *PostgresContentRepository) SetStatus(ctx context.Context, id string, status models.EntityStatus) error {
	query := `UPDATE post_contents SET status = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, status)
	return err
}

func (r *PostgresContentRepository) RecordUsage(ctx context.Context, id string) error {
	query := `
		UPDATE post_contents SET
			usage_count = usage_count + 1,
			last_used_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func scanContent(row rowScanner) (*models.PostContent, error) {
	var content models.PostContent
	var link sql.NullString

	err := row.Scan(
		&content.ID,
		&content.Text,
		&link,
		&content.Status,
		&content.SortOrder,
		&content.UsageCount,
		&content.LastUsedAt,
		&content.CreatedAt,
		&content.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	content.Link = link.String

	return &content, nil
}

func scanContents(rows *sql.Rows) ([]*models.PostContent, error) {
	var contents []*models.PostContent

	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}

	return contents, rows.Err()
}
