package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

const generalAbsenceSelect = `
	SELECT
		g.id, g.company_id, g.subject, g.body, g.status, g.submitted_by_id,
		g.start_at, g.end_at, g.deleted_at, g.created_at, g.version,
		COALESCE(array_agg(gad.department_id::text) FILTER (WHERE gad.department_id IS NOT NULL), '{}')
	FROM general_absences g
	LEFT JOIN general_absence_departments gad ON gad.general_absence_id = g.id
`

func scanGeneralAbsence(row rowScanner) (*domain.GeneralAbsence, error) {
	g := &domain.GeneralAbsence{}
	var departmentIDs []string

	dst := []any{
		&g.ID, &g.CompanyID, &g.Subject, &g.Body, &g.Status, &g.SubmittedByID,
		&g.Start, &g.End, &g.DeletedAt, &g.CreatedAt, &g.Version,
		textArray(&departmentIDs),
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	ids, err := parseUUIDs(departmentIDs)
	if err != nil {
		return nil, err
	}
	g.DepartmentIDs = ids

	return g, nil
}

// GetGeneralAbsences 返回公司的全部公告，可见性由调用方按角色过滤
func (r *Repository) GetGeneralAbsences(companyID uuid.UUID, archived bool) ([]*domain.GeneralAbsence, error) {
	query := generalAbsenceSelect + `
		WHERE g.company_id = $1 AND (g.deleted_at IS NOT NULL) = $2
		GROUP BY g.id
		ORDER BY g.start_at DESC
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, companyID, archived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	generalAbsences := make([]*domain.GeneralAbsence, 0)
	for rows.Next() {
		g, err := scanGeneralAbsence(rows)
		if err != nil {
			return nil, err
		}
		generalAbsences = append(generalAbsences, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return generalAbsences, nil
}

func (r *Repository) GetGeneralAbsenceByID(id uuid.UUID) (*domain.GeneralAbsence, error) {
	query := generalAbsenceSelect + ` WHERE g.id = $1 GROUP BY g.id`

	ctx, cancel := r.queryContext()
	defer cancel()

	return scanGeneralAbsence(r.dbpool.QueryRowContext(ctx, query, id))
}

func replaceGeneralAbsenceDepartments(ctx context.Context, tx *sql.Tx, g *domain.GeneralAbsence) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM general_absence_departments WHERE general_absence_id = $1`, g.ID); err != nil {
		return err
	}

	for _, departmentID := range g.DepartmentIDs {
		query := `INSERT INTO general_absence_departments (general_absence_id, department_id) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, query, g.ID, departmentID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) CreateGeneralAbsence(g *domain.GeneralAbsence) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO general_absences (id, company_id, subject, body, status, submitted_by_id, start_at, end_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, version
	`

	g.ID = uuid.New()
	args := []any{g.ID, g.CompanyID, g.Subject, g.Body, g.Status, g.SubmittedByID, g.Start, g.End}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&g.CreatedAt, &g.Version); err != nil {
		return err
	}

	if err := replaceGeneralAbsenceDepartments(ctx, tx, g); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateGeneralAbsence 同时用于修改、归档和恢复
func (r *Repository) UpdateGeneralAbsence(g *domain.GeneralAbsence) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE general_absences
		SET
			subject = $1,
			body = $2,
			status = $3,
			start_at = $4,
			end_at = $5,
			deleted_at = $6,
			version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING version
	`

	args := []any{g.Subject, g.Body, g.Status, g.Start, g.End, g.DeletedAt, g.ID, g.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&g.Version); err != nil {
		return err
	}

	if err := replaceGeneralAbsenceDepartments(ctx, tx, g); err != nil {
		return err
	}

	return tx.Commit()
}
