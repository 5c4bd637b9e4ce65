package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

const shiftTypeSelect = `
	SELECT
		st.id, st.company_id, st.department_id, st.parent_shift_type_id, st.schedule_id, st.name,
		to_char(st.start_time, 'HH24:MI:SS'), to_char(st.end_time, 'HH24:MI:SS'), st.required_employees,
		COALESCE(array_agg(ste.employee_id::text) FILTER (WHERE ste.employee_id IS NOT NULL), '{}')
	FROM shift_types st
	LEFT JOIN shift_type_trained_employees ste ON ste.shift_type_id = st.id
`

func (r *Repository) queryShiftTypes(query string, args ...any) ([]*domain.ShiftType, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shiftTypes := make([]*domain.ShiftType, 0)
	for rows.Next() {
		st := &domain.ShiftType{}
		var trained []string
		dst := []any{
			&st.ID, &st.CompanyID, &st.DepartmentID, &st.ParentShiftTypeID, &st.ScheduleID, &st.Name,
			&st.StartTime, &st.EndTime, &st.RequiredEmployees,
			textArray(&trained),
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if st.TrainedEmployeeIDs, err = parseUUIDs(trained); err != nil {
			return nil, err
		}
		shiftTypes = append(shiftTypes, st)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shiftTypes, nil
}

// GetShiftTypesByIDs 只返回公司中不属于任何排班的原始班次类型
func (r *Repository) GetShiftTypesByIDs(companyID uuid.UUID, ids []uuid.UUID) ([]*domain.ShiftType, error) {
	query := shiftTypeSelect + `
		WHERE st.company_id = $1 AND st.schedule_id IS NULL AND st.id = ANY($2::uuid[])
		GROUP BY st.id
		ORDER BY st.name
	`
	return r.queryShiftTypes(query, companyID, uuidStrings(ids))
}

func (r *Repository) GetShiftTypesByCompany(companyID uuid.UUID) ([]*domain.ShiftType, error) {
	query := shiftTypeSelect + `
		WHERE st.company_id = $1
		GROUP BY st.id
		ORDER BY st.name
	`
	return r.queryShiftTypes(query, companyID)
}

func (r *Repository) GetShiftTypesBySchedule(scheduleID uuid.UUID) ([]*domain.ShiftType, error) {
	query := shiftTypeSelect + `
		WHERE st.schedule_id = $1
		GROUP BY st.id
		ORDER BY st.name
	`
	return r.queryShiftTypes(query, scheduleID)
}

func insertShiftType(ctx context.Context, tx *sql.Tx, st *domain.ShiftType) error {
	query := `
		INSERT INTO shift_types (id, company_id, department_id, parent_shift_type_id, schedule_id, name, start_time, end_time, required_employees)
		VALUES ($1, $2, $3, $4, $5, $6, $7::time, $8::time, $9)
	`

	st.ID = uuid.New()
	args := []any{st.ID, st.CompanyID, st.DepartmentID, st.ParentShiftTypeID, st.ScheduleID, st.Name, st.StartTime, st.EndTime, st.RequiredEmployees}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	for _, employeeID := range st.TrainedEmployeeIDs {
		query := `INSERT INTO shift_type_trained_employees (shift_type_id, employee_id) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, query, st.ID, employeeID); err != nil {
			return err
		}
	}
	return nil
}

// snapshotShiftType 为排班复制一份班次类型，只保留未离职的受训员工
func snapshotShiftType(ctx context.Context, tx *sql.Tx, original *domain.ShiftType, scheduleID uuid.UUID) (*domain.ShiftType, error) {
	parentID := original.ID
	snapshot := &domain.ShiftType{
		CompanyID:         original.CompanyID,
		DepartmentID:      original.DepartmentID,
		ParentShiftTypeID: &parentID,
		ScheduleID:        &scheduleID,
		Name:              original.Name,
		StartTime:         original.StartTime,
		EndTime:           original.EndTime,
		RequiredEmployees: original.RequiredEmployees,
	}

	if err := insertShiftType(ctx, tx, snapshot); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO shift_type_trained_employees (shift_type_id, employee_id)
		SELECT $1, ste.employee_id FROM shift_type_trained_employees ste
		JOIN employees e ON e.id = ste.employee_id
		WHERE ste.shift_type_id = $2 AND NOT e.resigned
	`
	if _, err := tx.ExecContext(ctx, query, snapshot.ID, original.ID); err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (r *Repository) CreateShiftType(st *domain.ShiftType) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertShiftType(ctx, tx, st); err != nil {
		return err
	}

	return tx.Commit()
}
