package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/leave"
)

const absenceColumns = `
	a.id, a.company_id, a.absence_type_id, a.subject, a.submitted_for_id, a.submitted_by_id,
	a.submitted_to_id, a.status, a.start_at, a.end_at, a.created_at, a.version,
	t.id, t.company_id, t.name, t.description, t.entitlement, t.period, t.submit_before_days,
	t.paid, t.duration, t.deleted_at, t.created_at, t.version
`

const absenceFrom = `
	FROM absences a
	JOIN absence_types t ON t.id = a.absence_type_id
	JOIN employees ef ON ef.id = a.submitted_for_id
	JOIN employees eb ON eb.id = a.submitted_by_id
	LEFT JOIN employees et ON et.id = a.submitted_to_id
`

func scanAbsence(row rowScanner) (*domain.Absence, error) {
	a := &domain.Absence{AbsenceType: &domain.AbsenceType{}}
	t := a.AbsenceType
	dst := []any{
		&a.ID, &a.CompanyID, &a.AbsenceTypeID, &a.Subject, &a.SubmittedForID, &a.SubmittedByID,
		&a.SubmittedToID, &a.Status, &a.Start, &a.End, &a.CreatedAt, &a.Version,
		&t.ID, &t.CompanyID, &t.Name, &t.Description, &t.Entitlement, &t.Period, &t.SubmitBeforeDays,
		&t.Paid, &t.Duration, &t.DeletedAt, &t.CreatedAt, &t.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return a, nil
}

// AbsenceFilter 中为 nil 或零值的条件不参与过滤
type AbsenceFilter struct {
	CompanyID      uuid.UUID
	SubmittedForID *uuid.UUID
	SubmittedByID  *uuid.UUID
	SubmittedToID  *uuid.UUID
	// VisibleToID 限制为提交给该员工或为该员工提交的请假
	VisibleToID *uuid.UUID
	Statuses    []domain.AbsenceStatus
	Duration    *domain.AbsenceDuration
	Search      string
	SortBy      string
	SortDesc    bool
}

var absenceSortColumns = map[string][]string{
	"submitted_by":  {"eb.first_name", "eb.last_name"},
	"submitted_for": {"ef.first_name", "ef.last_name"},
	"submitted_to":  {"et.first_name", "et.last_name"},
	"title":         {"a.subject"},
	"start":         {"a.start_at"},
	"end":           {"a.end_at"},
}

func (f *AbsenceFilter) orderBy() string {
	columns, ok := absenceSortColumns[f.SortBy]
	if !ok {
		return "a.start_at DESC"
	}

	direction := "ASC"
	if f.SortDesc {
		direction = "DESC"
	}

	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		parts = append(parts, c+" "+direction)
	}
	return strings.Join(parts, ", ")
}

func (f *AbsenceFilter) where() (string, []any) {
	conditions := []string{"a.company_id = $1"}
	args := []any{f.CompanyID}

	add := func(format string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}

	if f.SubmittedForID != nil {
		add("a.submitted_for_id = $%d", *f.SubmittedForID)
	}
	if f.SubmittedByID != nil {
		add("a.submitted_by_id = $%d", *f.SubmittedByID)
	}
	if f.SubmittedToID != nil {
		add("a.submitted_to_id = $%d", *f.SubmittedToID)
	}
	if f.VisibleToID != nil {
		args = append(args, *f.VisibleToID)
		conditions = append(conditions, fmt.Sprintf("(a.submitted_to_id = $%d OR a.submitted_for_id = $%d)", len(args), len(args)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		add("a.status = ANY($%d::text[])", statuses)
	}
	if f.Duration != nil {
		add("t.duration = $%d", string(*f.Duration))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(a.subject ILIKE $%d OR ef.first_name ILIKE $%d OR ef.last_name ILIKE $%d OR t.name ILIKE $%d)", n, n, n, n,
		))
	}

	return strings.Join(conditions, " AND "), args
}

func (r *Repository) queryAbsences(query string, args ...any) ([]*domain.Absence, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	absences := make([]*domain.Absence, 0)
	for rows.Next() {
		a, err := scanAbsence(rows)
		if err != nil {
			return nil, err
		}
		absences = append(absences, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return absences, nil
}

func (r *Repository) ListAbsences(filter *AbsenceFilter) ([]*domain.Absence, error) {
	where, args := filter.where()
	query := `SELECT ` + absenceColumns + absenceFrom + ` WHERE ` + where + ` ORDER BY ` + filter.orderBy()
	return r.queryAbsences(query, args...)
}

func (r *Repository) GetAbsenceByID(id uuid.UUID) (*domain.Absence, error) {
	query := `SELECT ` + absenceColumns + absenceFrom + ` WHERE a.id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	absence, err := scanAbsence(r.dbpool.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	comments, err := r.GetAbsenceComments(id)
	if err != nil {
		return nil, err
	}
	absence.Comments = comments

	return absence, nil
}

func (r *Repository) GetAbsenceComments(absenceID uuid.UUID) ([]*domain.AbsenceComment, error) {
	query := `
		SELECT id, absence_id, comment, status, commented_by_id, created_at
		FROM absence_comments WHERE absence_id = $1
		ORDER BY created_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, absenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*domain.AbsenceComment, 0)
	for rows.Next() {
		c := &domain.AbsenceComment{}
		if err := rows.Scan(&c.ID, &c.AbsenceID, &c.Comment, &c.Status, &c.CommentedByID, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return comments, nil
}

// CreateAbsence 在同一个事务中写入请假和记录初始状态的评论
func (r *Repository) CreateAbsence(a *domain.Absence, comment *domain.AbsenceComment) error {
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
		INSERT INTO absences (id, company_id, absence_type_id, subject, submitted_for_id, submitted_by_id, submitted_to_id, status, start_at, end_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, version
	`

	a.ID = uuid.New()
	args := []any{a.ID, a.CompanyID, a.AbsenceTypeID, a.Subject, a.SubmittedForID, a.SubmittedByID, a.SubmittedToID, a.Status, a.Start, a.End}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&a.CreatedAt, &a.Version); err != nil {
		return err
	}

	comment.AbsenceID = a.ID
	if err := insertAbsenceComment(ctx, tx, comment); err != nil {
		return err
	}
	a.Comments = []*domain.AbsenceComment{comment}

	return tx.Commit()
}

// UpdateAbsenceStatus 更新状态并追加一条评论
func (r *Repository) UpdateAbsenceStatus(a *domain.Absence, comment *domain.AbsenceComment) error {
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
		UPDATE absences
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version
	`
	if err := tx.QueryRowContext(ctx, query, a.Status, a.ID, a.Version).Scan(&a.Version); err != nil {
		return err
	}

	comment.AbsenceID = a.ID
	if err := insertAbsenceComment(ctx, tx, comment); err != nil {
		return err
	}
	a.Comments = append(a.Comments, comment)

	return tx.Commit()
}

func (r *Repository) DeleteAbsence(id uuid.UUID) error {
	query := `DELETE FROM absences WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	return err
}

// 与 leave.Overlaps 相同的三个条件
const overlapCondition = `
	((a.end_at BETWEEN $3 AND $4) OR (a.start_at BETWEEN $3 AND $4) OR (a.start_at <= $3 AND a.end_at >= $4))
`

func (r *Repository) FindOverlapping(companyID, employeeID uuid.UUID, start, end time.Time) ([]*domain.Absence, error) {
	s, e := leave.Shrink(start, end)
	query := `
		SELECT ` + absenceColumns + absenceFrom + `
		WHERE a.company_id = $1 AND a.submitted_for_id = $2 AND ` + overlapCondition + `
		ORDER BY a.start_at
	`
	return r.queryAbsences(query, companyID, employeeID, s, e)
}

func (r *Repository) FindApprovedOverlapping(absence *domain.Absence, start, end time.Time) ([]*domain.Absence, error) {
	s, e := leave.Shrink(start, end)
	query := `
		SELECT ` + absenceColumns + absenceFrom + `
		WHERE a.company_id = $1 AND a.submitted_for_id = $2 AND ` + overlapCondition + `
			AND a.status = 'APPROVED' AND a.id <> $5
		ORDER BY a.start_at
	`
	return r.queryAbsences(query, absence.CompanyID, absence.SubmittedForID, s, e, absence.ID)
}

// GetApprovedAbsences 返回员工在 [start, end] 内已批准的请假，absenceTypeID 为 nil 时不限类型
func (r *Repository) GetApprovedAbsences(companyID, employeeID uuid.UUID, absenceTypeID *uuid.UUID, start, end time.Time) ([]*domain.Absence, error) {
	s, e := leave.Shrink(start, end)
	query := `
		SELECT ` + absenceColumns + absenceFrom + `
		WHERE a.company_id = $1 AND a.submitted_for_id = $2 AND ` + overlapCondition + `
			AND a.status = 'APPROVED' AND ($5::uuid IS NULL OR a.absence_type_id = $5)
		ORDER BY a.start_at
	`
	return r.queryAbsences(query, companyID, employeeID, s, e, absenceTypeID)
}

// GetApprovedAbsencesForEmployees 供排班时排除请假中的员工
func (r *Repository) GetApprovedAbsencesForEmployees(employeeIDs []uuid.UUID, start, end time.Time) ([]*domain.Absence, error) {
	query := `
		SELECT ` + absenceColumns + absenceFrom + `
		WHERE a.submitted_for_id = ANY($1::uuid[]) AND a.status = 'APPROVED'
			AND a.start_at < $3 AND a.end_at > $2
	`
	return r.queryAbsences(query, uuidStrings(employeeIDs), start, end)
}
