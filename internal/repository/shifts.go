package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

// GetShifts 返回排班中的班次及其分配的员工，start 和 end 不为 nil 时只返回该时间段内的班次
func (r *Repository) GetShifts(scheduleID uuid.UUID, start, end *time.Time) ([]*domain.Shift, error) {
	query := `
		SELECT
			sh.id, sh.schedule_id, sh.shift_type_id, sh.start_at, sh.end_at, sh.required_employees,
			COALESCE(array_agg(se.employee_id::text) FILTER (WHERE se.employee_id IS NOT NULL), '{}')
		FROM shifts sh
		LEFT JOIN shift_employees se ON se.shift_id = sh.id
		WHERE sh.schedule_id = $1
			AND ($2::timestamptz IS NULL OR sh.end_at >= $2)
			AND ($3::timestamptz IS NULL OR sh.start_at <= $3)
		GROUP BY sh.id
		ORDER BY sh.start_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := make([]*domain.Shift, 0)
	for rows.Next() {
		shift := &domain.Shift{}
		var employeeIDs []string
		dst := []any{
			&shift.ID, &shift.ScheduleID, &shift.ShiftTypeID, &shift.Start, &shift.End, &shift.RequiredEmployees,
			textArray(&employeeIDs),
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if shift.EmployeeIDs, err = parseUUIDs(employeeIDs); err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

// CreateShifts 替换排班中的所有班次
func (r *Repository) CreateShifts(scheduleID uuid.UUID, shifts []*domain.Shift) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shifts WHERE schedule_id = $1`, scheduleID); err != nil {
		return err
	}

	for _, shift := range shifts {
		query := `
			INSERT INTO shifts (id, schedule_id, shift_type_id, start_at, end_at, required_employees)
			VALUES ($1, $2, $3, $4, $5, $6)
		`

		shift.ID = uuid.New()
		shift.ScheduleID = scheduleID
		args := []any{shift.ID, shift.ScheduleID, shift.ShiftTypeID, shift.Start, shift.End, shift.RequiredEmployees}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// EmployeeHasShiftBetween 检查员工在 [start, end) 内是否有已分配的班次
func (r *Repository) EmployeeHasShiftBetween(employeeID uuid.UUID, start, end time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM shift_employees se
			JOIN shifts sh ON sh.id = se.shift_id
			WHERE se.employee_id = $1 AND sh.start_at < $3 AND sh.end_at > $2
		)
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	hasShift := false
	if err := r.dbpool.QueryRowContext(ctx, query, employeeID, start, end).Scan(&hasShift); err != nil {
		return false, err
	}
	return hasShift, nil
}
