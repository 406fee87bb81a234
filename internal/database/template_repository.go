package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Past-Tang/x/internal/models"
)

const templateColumns = `id, content, status, scope, target_id, sort_order,
	usage_count, last_used_at, created_at, updated_at`

// PostgresTemplateRepository persists reply templates in PostgreSQL.
type PostgresTemplateRepository struct {
	db *sql.DB
}

func NewPostgresTemplateRepository(db *sql.DB) *PostgresTemplateRepository {
	return &PostgresTemplateRepository{db: db}
}

func (r *PostgresTemplateRepository) Create(ctx context.Context, tpl *models.ReplyTemplate) error {
	query := `
		INSERT INTO reply_templates (content, status, scope, target_id, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRowContext(ctx, query,
		tpl.Content,
		tpl.Status,
		tpl.Scope,
		nullString(tpl.TargetID),
		tpl.SortOrder,
	).Scan(&tpl.ID, &tpl.CreatedAt, &tpl.UpdatedAt)
}

func (r *PostgresTemplateRepository) GetByID(ctx context.Context, id string) (*models.ReplyTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM reply_templates WHERE id = $1`

	tpl, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

func (r *PostgresTemplateRepository) ListAll(ctx context.Context) ([]*models.ReplyTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM reply_templates ORDER BY sort_order, created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTemplates(rows)
}

// ListForTarget returns the selection pool for a target: active global
// templates plus active templates scoped to it, in a stable order so
// round-robin cursors index a deterministic sequence.
func (r *PostgresTemplateRepository) ListForTarget(ctx context.Context, targetID string) ([]*models.ReplyTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM reply_templates
		WHERE status = 'active' AND (scope = 'global' OR target_id = $1)
		ORDER BY sort_order, created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTemplates(rows)
}

func (r *PostgresTemplateRepository) Update(ctx context.Context, tpl *models.ReplyTemplate) error {
	query := `
		UPDATE reply_templates SET
			content = $2,
			status = $3,
			scope = $4,
			target_id = $5,
			sort_order = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		tpl.ID,
		tpl.Content,
		tpl.Status,
		tpl.Scope,
		nullString(tpl.TargetID),
		tpl.SortOrder,
	).Scan(&tpl.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("template %s not found", tpl.ID)
	}
	return err
}

func (r *PostgresTemplateRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reply_templates WHERE id = $1`, id)
	return err
}

func (r *PostgresTemplateRepository) SetStatus(ctx context.Context, id string, status models.EntityStatus) error {
	query := `UPDATE reply_templates SET status = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, status)
	return err
}

func (r *PostgresTemplateRepository) RecordUsage(ctx context.Context, id string) error {
	query := `
		UPDATE reply_templates SET
			usage_count = usage_count + 1,
			last_used_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func scanTemplate(row rowScanner) (*models.ReplyTemplate, error) {
	var tpl models.ReplyTemplate
	var targetID sql.NullString

	err := row.Scan(
		&tpl.ID,
		&tpl.Content,
		&tpl.Status,
		&tpl.Scope,
		&targetID,
		&tpl.SortOrder,
		&tpl.UsageCount,
		&tpl.LastUsedAt,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tpl.TargetID = targetID.String

	return &tpl, nil
}

func scanTemplates(rows *sql.Rows) ([]*models.ReplyTemplate, error) {
	var templates []*models.ReplyTemplate

	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}

	return templates, rows.Err()
}
