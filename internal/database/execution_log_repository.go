package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Past-Tang/x/internal/models"
)

// PostgresExecutionLogRepository persists the append-only execution log.
type PostgresExecutionLogRepository struct {
	db *sql.DB
}

func NewPostgresExecutionLogRepository(db *sql.DB) *PostgresExecutionLogRepository {
	return &PostgresExecutionLogRepository{db: db}
}

func (r *PostgresExecutionLogRepository) Log(ctx context.Context, entry *models.ExecutionLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO execution_logs (
			id, type, account_id, target_id, job_id, post_id, post_author_id,
			content_id, content_text, result, error_message, api_response, elapsed_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`

	return r.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.Type,
		nullString(entry.AccountID),
		nullString(entry.TargetID),
		nullString(entry.JobID),
		nullString(entry.PostID),
		nullString(entry.PostAuthorID),
		nullString(entry.ContentID),
		nullString(entry.ContentText),
		entry.Result,
		nullString(entry.ErrorMessage),
		nullString(entry.APIResponse),
		entry.ElapsedMS,
	).Scan(&entry.CreatedAt)
}

func (r *PostgresExecutionLogRepository) List(ctx context.Context, filter models.LogFilter) ([]*models.ExecutionLog, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	addCond := func(cond string, value interface{}) {
		where += fmt.Sprintf(" AND "+cond, argPos)
		args = append(args, value)
		argPos++
	}

	if filter.Type != "" {
		addCond("type = $%d", filter.Type)
	}
	if filter.AccountID != "" {
		addCond("account_id = $%d", filter.AccountID)
	}
	if filter.TargetID != "" {
		addCond("target_id = $%d", filter.TargetID)
	}
	if filter.JobID != "" {
		addCond("job_id = $%d", filter.JobID)
	}
	if filter.PostID != "" {
		addCond("post_id = $%d", filter.PostID)
	}
	if filter.Result != "" {
		addCond("result = $%d", filter.Result)
	}
	if filter.Since != nil {
		addCond("created_at >= $%d", *filter.Since)
	}
	if filter.Until != nil {
		addCond("created_at <= $%d", *filter.Until)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM execution_logs" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}

	query := `
		SELECT id, type, account_id, target_id, job_id, post_id, post_author_id,
			content_id, content_text, result, error_message, api_response,
			elapsed_ms, created_at
		FROM execution_logs` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*models.ExecutionLog
	for rows.Next() {
		var e models.ExecutionLog
		var accountID, targetID, jobID, postID, authorID sql.NullString
		var contentID, contentText, errorMsg, apiResponse sql.NullString

		err := rows.Scan(
			&e.ID,
			&e.Type,
			&accountID,
			&targetID,
			&jobID,
			&postID,
			&authorID,
			&contentID,
			&contentText,
			&e.Result,
			&errorMsg,
			&apiResponse,
			&e.ElapsedMS,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}

		e.AccountID = accountID.String
		e.TargetID = targetID.String
		e.JobID = jobID.String
		e.PostID = postID.String
		e.PostAuthorID = authorID.String
		e.ContentID = contentID.String
		e.ContentText = contentText.String
		e.ErrorMessage = errorMsg.String
		e.APIResponse = apiResponse.String
		entries = append(entries, &e)
	}

	return entries, total, rows.Err()
}
