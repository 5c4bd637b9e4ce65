package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

const scheduleSelect = `
	SELECT
		s.id, s.company_id, s.department_id, d.name, s.start_at, s.end_at, s.preferences_deadline,
		s.status, s.manual_input, s.collect_preferences, s.comment, s.generic_data, s.created_at, s.version,
		COALESCE((SELECT array_agg(st.id::text ORDER BY st.name) FROM shift_types st WHERE st.schedule_id = s.id), '{}')
`

const scheduleFrom = `
	FROM schedules s
	JOIN departments d ON d.id = s.department_id
`

func scanSchedule(row rowScanner, extra ...any) (*domain.Schedule, error) {
	s := &domain.Schedule{}
	var shiftTypeIDs []string
	var genericData []byte

	dst := []any{
		&s.ID, &s.CompanyID, &s.DepartmentID, &s.DepartmentName, &s.Start, &s.End, &s.PreferencesDeadline,
		&s.Status, &s.ManualInput, &s.CollectPreferences, &s.Comment, &genericData, &s.CreatedAt, &s.Version,
		textArray(&shiftTypeIDs),
	}
	if err := row.Scan(append(dst, extra...)...); err != nil {
		return nil, err
	}

	ids, err := parseUUIDs(shiftTypeIDs)
	if err != nil {
		return nil, err
	}
	s.ShiftTypeIDs = ids
	if len(genericData) > 0 {
		s.GenericData = genericData
	}

	return s, nil
}

// ListSchedules 返回公司的所有排班，以及 employeeID 是否在其中被分配了班次
func (r *Repository) ListSchedules(companyID uuid.UUID, employeeID uuid.UUID) ([]*domain.Schedule, map[uuid.UUID]bool, error) {
	query := scheduleSelect + `,
		EXISTS (
			SELECT 1 FROM shifts sh
			JOIN shift_employees se ON se.shift_id = sh.id
			WHERE sh.schedule_id = s.id AND se.employee_id = $2
		)
	` + scheduleFrom + `
		WHERE s.company_id = $1
		ORDER BY s.start_at DESC, d.name
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, companyID, employeeID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	schedules := make([]*domain.Schedule, 0)
	allocated := make(map[uuid.UUID]bool)
	for rows.Next() {
		var isAllocated bool
		s, err := scanSchedule(rows, &isAllocated)
		if err != nil {
			return nil, nil, err
		}
		schedules = append(schedules, s)
		allocated[s.ID] = isAllocated
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return schedules, allocated, nil
}

func (r *Repository) GetScheduleByID(id uuid.UUID) (*domain.Schedule, error) {
	query := scheduleSelect + scheduleFrom + ` WHERE s.id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	return scanSchedule(r.dbpool.QueryRowContext(ctx, query, id))
}

func (r *Repository) IsAllocated(scheduleID, employeeID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM shifts sh
			JOIN shift_employees se ON se.shift_id = sh.id
			WHERE sh.schedule_id = $1 AND se.employee_id = $2
		)
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	isAllocated := false
	if err := r.dbpool.QueryRowContext(ctx, query, scheduleID, employeeID).Scan(&isAllocated); err != nil {
		return false, err
	}
	return isAllocated, nil
}

// HasOverlappingSchedule 检查同一部门是否已有时间重叠的排班
func (r *Repository) HasOverlappingSchedule(departmentID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM schedules
			WHERE department_id = $1 AND start_at <= $3 AND end_at >= $2 AND id <> $4
		)
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	exists := false
	if err := r.dbpool.QueryRowContext(ctx, query, departmentID, start, end, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func insertScheduleTimestamp(ctx context.Context, tx *sql.Tx, ts *domain.ScheduleTimestamp) error {
	query := `
		INSERT INTO schedule_timestamps (id, schedule_id, status, timestamp)
		VALUES ($1, $2, $3, $4)
	`

	ts.ID = uuid.New()
	_, err := tx.ExecContext(ctx, query, ts.ID, ts.ScheduleID, ts.Status, ts.Timestamp)
	return err
}

func genericDataArg(s *domain.Schedule) any {
	if len(s.GenericData) == 0 {
		return nil
	}
	return string(s.GenericData)
}

// CreateSchedule 写入排班、复制所选的班次类型作为快照，并记录初始状态
func (r *Repository) CreateSchedule(s *domain.Schedule, shiftTypes []*domain.ShiftType, now time.Time) error {
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
		INSERT INTO schedules (id, company_id, department_id, start_at, end_at, preferences_deadline, status, manual_input, collect_preferences, comment, generic_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb)
		RETURNING created_at, version
	`

	s.ID = uuid.New()
	args := []any{
		s.ID, s.CompanyID, s.DepartmentID, s.Start, s.End, s.PreferencesDeadline, s.Status,
		s.ManualInput, s.CollectPreferences, s.Comment, genericDataArg(s),
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&s.CreatedAt, &s.Version); err != nil {
		return err
	}

	s.ShiftTypeIDs = make([]uuid.UUID, 0, len(shiftTypes))
	for _, original := range shiftTypes {
		snapshot, err := snapshotShiftType(ctx, tx, original, s.ID)
		if err != nil {
			return err
		}
		s.ShiftTypeIDs = append(s.ShiftTypeIDs, snapshot.ID)
	}

	if err := insertScheduleTimestamp(ctx, tx, &domain.ScheduleTimestamp{
		ScheduleID: s.ID,
		Status:     s.Status,
		Timestamp:  now,
	}); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) UpdateSchedule(s *domain.Schedule) error {
	query := `
		UPDATE schedules
		SET
			preferences_deadline = $1,
			comment = $2,
			generic_data = $3::jsonb,
			version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{s.PreferencesDeadline, s.Comment, genericDataArg(s), s.ID, s.Version}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&s.Version)
}

func updateScheduleStatus(ctx context.Context, tx *sql.Tx, s *domain.Schedule, ts *domain.ScheduleTimestamp) error {
	query := `
		UPDATE schedules
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version
	`
	if err := tx.QueryRowContext(ctx, query, s.Status, s.ID, s.Version).Scan(&s.Version); err != nil {
		return err
	}

	return insertScheduleTimestamp(ctx, tx, ts)
}

// TransitionSchedule 在同一个事务中修改状态并追加时间戳
func (r *Repository) TransitionSchedule(s *domain.Schedule, ts *domain.ScheduleTimestamp) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := updateScheduleStatus(ctx, tx, s, ts); err != nil {
		return err
	}

	return tx.Commit()
}

// RevertTransition 撤销 TransitionSchedule 写入的状态和时间戳
func (r *Repository) RevertTransition(s *domain.Schedule, previous domain.ScheduleStatus, ts *domain.ScheduleTimestamp) error {
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
		UPDATE schedules
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version
	`
	if err := tx.QueryRowContext(ctx, query, previous, s.ID, s.Version).Scan(&s.Version); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_timestamps WHERE id = $1`, ts.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.Status = previous
	return nil
}

// SaveAllocations 替换排班中所有班次的分配结果，ts 不为 nil 时同时流转状态
func (r *Repository) SaveAllocations(s *domain.Schedule, allocations map[uuid.UUID][]uuid.UUID, ts *domain.ScheduleTimestamp) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `DELETE FROM shift_employees WHERE shift_id IN (SELECT id FROM shifts WHERE schedule_id = $1)`
	if _, err := tx.ExecContext(ctx, query, s.ID); err != nil {
		return err
	}

	for shiftID, employeeIDs := range allocations {
		for _, employeeID := range employeeIDs {
			query := `INSERT INTO shift_employees (shift_id, employee_id) VALUES ($1, $2)`
			if _, err := tx.ExecContext(ctx, query, shiftID, employeeID); err != nil {
				return err
			}
		}
	}

	if ts != nil {
		if err := updateScheduleStatus(ctx, tx, s, ts); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteSchedule 班次、快照和时间戳由外键级联删除
func (r *Repository) DeleteSchedule(id uuid.UUID) error {
	query := `DELETE FROM schedules WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	return err
}

func (r *Repository) GetScheduleTimestamps(scheduleID uuid.UUID) ([]*domain.ScheduleTimestamp, error) {
	query := `
		SELECT id, schedule_id, status, timestamp
		FROM schedule_timestamps WHERE schedule_id = $1
		ORDER BY timestamp, status
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	timestamps := make([]*domain.ScheduleTimestamp, 0)
	for rows.Next() {
		ts := &domain.ScheduleTimestamp{}
		if err := rows.Scan(&ts.ID, &ts.ScheduleID, &ts.Status, &ts.Timestamp); err != nil {
			return nil, err
		}
		timestamps = append(timestamps, ts)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return timestamps, nil
}

// GetScheduleTrainedEmployees 返回受过该排班班次类型培训的员工，active 用于筛选是否已激活账号
func (r *Repository) GetScheduleTrainedEmployees(scheduleID uuid.UUID, active bool) ([]*domain.Employee, error) {
	query := `
		SELECT ` + employeeColumns + ` FROM employees
		WHERE is_active = $2 AND id IN (
			SELECT ste.employee_id FROM shift_type_trained_employees ste
			JOIN shift_types st ON st.id = ste.shift_type_id
			WHERE st.schedule_id = $1
		)
	`
	return r.queryEmployees(query, scheduleID, active)
}

func (r *Repository) GetAllocatedEmployees(scheduleID uuid.UUID) ([]*domain.Employee, error) {
	query := `
		SELECT ` + employeeColumns + ` FROM employees
		WHERE id IN (
			SELECT se.employee_id FROM shift_employees se
			JOIN shifts sh ON sh.id = se.shift_id
			WHERE sh.schedule_id = $1
		)
	`
	return r.queryEmployees(query, scheduleID)
}
