package database

import (
	"context"
	"database/sql"

	"github.com/Past-Tang/x/internal/models"
)

// PostgresReplyLedger backs the reply dedup ledger with a unique index on
// the (target_user_id, post_id, account_id) triple.
type PostgresReplyLedger struct {
	db *sql.DB
}

func NewPostgresReplyLedger(db *sql.DB) *PostgresReplyLedger {
	return &PostgresReplyLedger{db: db}
}

func (r *PostgresReplyLedger) HasReplied(ctx context.Context, targetUserID, postID, accountID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reply_records
			WHERE target_user_id = $1 AND post_id = $2 AND account_id = $3
		)
	`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, targetUserID, postID, accountID).Scan(&exists)
	return exists, err
}

// Record inserts the triple. The unique constraint absorbs duplicates, so a
// replay of the same pipeline run is harmless.
func (r *PostgresReplyLedger) Record(ctx context.Context, rec *models.ReplyRecord) error {
	query := `
		INSERT INTO reply_records (target_user_id, post_id, account_id, reply_post_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT uq_reply_once DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.TargetUserID,
		rec.PostID,
		rec.AccountID,
		nullString(rec.ReplyPostID),
	)
	return err
}

func (r *PostgresReplyLedger) ListByTarget(ctx context.Context, targetUserID string, limit int) ([]*models.ReplyRecord, error) {
	query := `
		SELECT id, target_user_id, post_id, account_id, reply_post_id, replied_at
		FROM reply_records
		WHERE target_user_id = $1
		ORDER BY replied_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, targetUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ReplyRecord
	for rows.Next() {
		var rec models.ReplyRecord
		var replyPostID sql.NullString

		err := rows.Scan(
			&rec.ID,
			&rec.TargetUserID,
			&rec.PostID,
			&rec.AccountID,
			&replyPostID,
			&rec.RepliedAt,
		)
		if err != nil {
			return nil, err
		}
		rec.ReplyPostID = replyPostID.String
		records = append(records, &rec)
	}

	return records, rows.Err()
}
