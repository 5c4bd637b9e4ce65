package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

func insertAbsenceComment(ctx context.Context, tx *sql.Tx, c *domain.AbsenceComment) error {
	query := `
		INSERT INTO absence_comments (id, absence_id, comment, status, commented_by_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	c.ID = uuid.New()
	return tx.QueryRowContext(ctx, query, c.ID, c.AbsenceID, c.Comment, c.Status, c.CommentedByID).Scan(&c.CreatedAt)
}
