package repository

import (
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/leave"
)

const absenceTypeColumns = `
	id, company_id, name, description, entitlement, period, submit_before_days,
	paid, duration, deleted_at, created_at, version
`

func scanAbsenceType(row rowScanner) (*domain.AbsenceType, error) {
	t := &domain.AbsenceType{}
	dst := []any{
		&t.ID, &t.CompanyID, &t.Name, &t.Description, &t.Entitlement, &t.Period, &t.SubmitBeforeDays,
		&t.Paid, &t.Duration, &t.DeletedAt, &t.CreatedAt, &t.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return t, nil
}

// GetAbsenceTypes archived 为 true 时返回已归档的类型。未归档列表不包含按班次请假的类型
func (r *Repository) GetAbsenceTypes(companyID uuid.UUID, archived bool) ([]*domain.AbsenceType, error) {
	query := `
		SELECT ` + absenceTypeColumns + ` FROM absence_types
		WHERE company_id = $1 AND deleted_at IS NOT NULL
		ORDER BY name
	`
	if !archived {
		query = `
			SELECT ` + absenceTypeColumns + ` FROM absence_types
			WHERE company_id = $1 AND deleted_at IS NULL AND duration <> 'SHIFT'
			ORDER BY name
		`
	}

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]*domain.AbsenceType, 0)
	for rows.Next() {
		t, err := scanAbsenceType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return types, nil
}

func (r *Repository) GetAbsenceTypeByID(id uuid.UUID) (*domain.AbsenceType, error) {
	query := `SELECT ` + absenceTypeColumns + ` FROM absence_types WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	return scanAbsenceType(r.dbpool.QueryRowContext(ctx, query, id))
}

// FindAbsenceTypeByName 不区分大小写地查找同名类型（包括已归档的），excludeID 用于更新时排除自身
func (r *Repository) FindAbsenceTypeByName(companyID uuid.UUID, name string, excludeID uuid.UUID) (*domain.AbsenceType, error) {
	query := `
		SELECT ` + absenceTypeColumns + ` FROM absence_types
		WHERE company_id = $1 AND lower(name) = lower($2) AND id <> $3
		ORDER BY deleted_at NULLS FIRST
		LIMIT 1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	return scanAbsenceType(r.dbpool.QueryRowContext(ctx, query, companyID, name, excludeID))
}

func (r *Repository) CreateAbsenceType(t *domain.AbsenceType) error {
	query := `
		INSERT INTO absence_types (id, company_id, name, description, entitlement, period, submit_before_days, paid, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	t.ID = uuid.New()
	args := []any{t.ID, t.CompanyID, t.Name, t.Description, t.Entitlement, t.Period, t.SubmitBeforeDays, t.Paid, t.Duration}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&t.CreatedAt, &t.Version)
}

func (r *Repository) UpdateAbsenceType(t *domain.AbsenceType) error {
	query := `
		UPDATE absence_types
		SET
			name = $1,
			description = $2,
			entitlement = $3,
			period = $4,
			submit_before_days = $5,
			paid = $6,
			duration = $7,
			deleted_at = $8,
			version = version + 1
		WHERE id = $9 AND version = $10
		RETURNING version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{t.Name, t.Description, t.Entitlement, t.Period, t.SubmitBeforeDays, t.Paid, t.Duration, t.DeletedAt, t.ID, t.Version}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&t.Version)
}

// CreateDefaultAbsenceTypes 为公司创建默认的请假类型，已存在的同名类型会被跳过
func (r *Repository) CreateDefaultAbsenceTypes(companyID uuid.UUID) error {
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
		INSERT INTO absence_types (id, company_id, name, description, entitlement, period, submit_before_days, paid, duration)
		SELECT $1, $2, $3::text, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (SELECT 1 FROM absence_types WHERE company_id = $2 AND lower(name) = lower($3::text))
	`

	for _, t := range leave.DefaultTypes(companyID) {
		args := []any{uuid.New(), t.CompanyID, t.Name, t.Description, t.Entitlement, t.Period, t.SubmitBeforeDays, t.Paid, t.Duration}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}
