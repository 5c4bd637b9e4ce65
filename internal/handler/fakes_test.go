package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/config"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

// fakeRepository 只实现测试用到的方法，其余方法调用时会因为内嵌的 nil 接口而 panic
type fakeRepository struct {
	Repository

	employees    map[uuid.UUID]*domain.Employee
	absenceTypes map[uuid.UUID]*domain.AbsenceType

	created        []*domain.Absence
	comments       []*domain.AbsenceComment
	updateErr      error
	transitions    []*domain.ScheduleTimestamp
	transitionErr  error
	reverted       []domain.ScheduleStatus
	revertedStamps []uuid.UUID
}

func newFakeRepository(employees ...*domain.Employee) *fakeRepository {
	r := &fakeRepository{
		employees:    make(map[uuid.UUID]*domain.Employee),
		absenceTypes: make(map[uuid.UUID]*domain.AbsenceType),
	}
	for _, e := range employees {
		r.employees[e.ID] = e
	}
	return r
}

func (r *fakeRepository) GetEmployeeByID(id uuid.UUID) (*domain.Employee, error) {
	e, ok := r.employees[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return e, nil
}

func (r *fakeRepository) GetEmployeesByIDs(ids []uuid.UUID) ([]*domain.Employee, error) {
	res := make([]*domain.Employee, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.employees[id]; ok {
			res = append(res, e)
		}
	}
	return res, nil
}

func (r *fakeRepository) GetAbsenceTypeByID(id uuid.UUID) (*domain.AbsenceType, error) {
	t, ok := r.absenceTypes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (r *fakeRepository) FindOverlapping(companyID, employeeID uuid.UUID, start, end time.Time) ([]*domain.Absence, error) {
	return nil, nil
}

func (r *fakeRepository) FindApprovedOverlapping(absence *domain.Absence, start, end time.Time) ([]*domain.Absence, error) {
	return nil, nil
}

func (r *fakeRepository) EmployeeHasShiftBetween(employeeID uuid.UUID, start, end time.Time) (bool, error) {
	return false, nil
}

func (r *fakeRepository) CreateAbsence(a *domain.Absence, comment *domain.AbsenceComment) error {
	a.ID = uuid.New()
	comment.AbsenceID = a.ID
	r.created = append(r.created, a)
	r.comments = append(r.comments, comment)
	return nil
}

func (r *fakeRepository) UpdateAbsenceStatus(a *domain.Absence, comment *domain.AbsenceComment) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	comment.AbsenceID = a.ID
	r.comments = append(r.comments, comment)
	a.Version++
	return nil
}

func (r *fakeRepository) TransitionSchedule(s *domain.Schedule, ts *domain.ScheduleTimestamp) error {
	if r.transitionErr != nil {
		return r.transitionErr
	}
	ts.ID = uuid.New()
	r.transitions = append(r.transitions, ts)
	s.Version++
	return nil
}

func (r *fakeRepository) RevertTransition(s *domain.Schedule, previous domain.ScheduleStatus, ts *domain.ScheduleTimestamp) error {
	r.reverted = append(r.reverted, previous)
	r.revertedStamps = append(r.revertedStamps, ts.ID)
	s.Status = previous
	s.Version++
	return nil
}

type fakePublisher struct {
	notifications []*domain.Notification
	mails         []*domain.MailMessage
	optimizations []*domain.OptimizationRequest
}

func (p *fakePublisher) PublishMail(msg *domain.MailMessage) error {
	p.mails = append(p.mails, msg)
	return nil
}

func (p *fakePublisher) PublishNotification(n *domain.Notification) error {
	p.notifications = append(p.notifications, n)
	return nil
}

func (p *fakePublisher) PublishOptimization(req *domain.OptimizationRequest) error {
	p.optimizations = append(p.optimizations, req)
	return nil
}

type fakeDispatcher struct {
	err     error
	delayed []string
}

func (d *fakeDispatcher) Delay(name string, payload any) (uuid.UUID, error) {
	if d.err != nil {
		return uuid.Nil, d.err
	}
	d.delayed = append(d.delayed, name)
	return uuid.New(), nil
}

func (d *fakeDispatcher) Get(id uuid.UUID) (*domain.TaskState, error) {
	return nil, sql.ErrNoRows
}

func newFakeHandler(t *testing.T, repo *fakeRepository, publisher *fakePublisher, dispatcher *fakeDispatcher) *Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.CookieName = "__hr_office_token"
	cfg.Frontend.BaseURL = "https://hr.example.com"

	h, err := NewHandler(cfg, repo, publisher, dispatcher)
	require.NoError(t, err)
	return h
}

// newRequest 构造带 JSON 请求体的请求，并写入中间件通常会注入的上下文值
func newRequest(t *testing.T, method string, body any, values map[ContextKey]any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, "/", &buf)
	ctx := req.Context()
	for k, v := range values {
		ctx = context.WithValue(ctx, k, v)
	}
	return req.WithContext(ctx)
}

func newEmployee(companyID uuid.UUID, role domain.Role, department *uuid.UUID) *domain.Employee {
	id := uuid.New()
	return &domain.Employee{
		ID:           id,
		CompanyID:    companyID,
		DepartmentID: department,
		Username:     id.String()[:8],
		FirstName:    "芳",
		LastName:     "王",
		Email:        id.String()[:8] + "@example.com",
		Role:         role,
		IsActive:     true,
	}
}
