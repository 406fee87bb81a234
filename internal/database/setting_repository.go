package database

import (
	"context"
	"database/sql"

	"github.com/Past-Tang/x/internal/models"
)

// PostgresSettingRepository persists typed settings in PostgreSQL.
type PostgresSettingRepository struct {
	db *sql.DB
}

func NewPostgresSettingRepository(db *sql.DB) *PostgresSettingRepository {
	return &PostgresSettingRepository{db: db}
}

func (r *PostgresSettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	query := `
		SELECT key, value, value_type, description, created_at, updated_at
		FROM settings
		WHERE key = $1
	`

	var s models.Setting
	var description sql.NullString

	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&s.Key,
		&s.Value,
		&s.ValueType,
		&description,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.Description = description.String
	return &s, nil
}

func (r *PostgresSettingRepository) ListAll(ctx context.Context) ([]*models.Setting, error) {
	query := `
		SELECT key, value, value_type, description, created_at, updated_at
		FROM settings
		ORDER BY key
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []*models.Setting
	for rows.Next() {
		var s models.Setting
		var description sql.NullString

		err := rows.Scan(
			&s.Key,
			&s.Value,
			&s.ValueType,
			&description,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		s.Description = description.String
		settings = append(settings, &s)
	}

	return settings, rows.Err()
}

func (r *PostgresSettingRepository) Upsert(ctx context.Context, setting *models.Setting) error {
	query := `
		INSERT INTO settings (key, value, value_type, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			value_type = EXCLUDED.value_type,
			description = EXCLUDED.description,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	return r.db.QueryRowContext(ctx, query,
		setting.Key,
		setting.Value,
		setting.ValueType,
		nullString(setting.Description),
	).Scan(&setting.CreatedAt, &setting.UpdatedAt)
}
