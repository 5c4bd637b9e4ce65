package repository

import (
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

func (r *Repository) CreateScheduleFeedback(f *domain.ScheduleFeedback) error {
	query := `
		INSERT INTO schedule_feedbacks (id, employee_id, schedule_id, comment, rating, share_with_manager)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	f.ID = uuid.New()
	args := []any{f.ID, f.EmployeeID, f.ScheduleID, f.Comment, f.Rating, f.ShareWithManager}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&f.CreatedAt)
}

// GetScheduleFeedbacks sharedOnly 为 true 时只返回愿意分享给管理者的反馈
func (r *Repository) GetScheduleFeedbacks(scheduleID uuid.UUID, sharedOnly bool) ([]*domain.ScheduleFeedback, error) {
	query := `
		SELECT id, employee_id, schedule_id, comment, rating, share_with_manager, created_at
		FROM schedule_feedbacks
		WHERE schedule_id = $1 AND (NOT $2 OR share_with_manager)
		ORDER BY created_at DESC
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleID, sharedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	feedbacks := make([]*domain.ScheduleFeedback, 0)
	for rows.Next() {
		f := &domain.ScheduleFeedback{}
		dst := []any{&f.ID, &f.EmployeeID, &f.ScheduleID, &f.Comment, &f.Rating, &f.ShareWithManager, &f.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		feedbacks = append(feedbacks, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return feedbacks, nil
}

func (r *Repository) ScheduleFeedbackExists(scheduleID, employeeID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM schedule_feedbacks WHERE schedule_id = $1 AND employee_id = $2)`

	ctx, cancel := r.queryContext()
	defer cancel()

	exists := false
	if err := r.dbpool.QueryRowContext(ctx, query, scheduleID, employeeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
