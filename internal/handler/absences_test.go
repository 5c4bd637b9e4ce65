package handler

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/leave"
)

type absenceFixture struct {
	companyID   uuid.UUID
	manager     *domain.Employee
	employee    *domain.Employee
	absenceType *domain.AbsenceType
	start       time.Time
}

func newAbsenceFixture() *absenceFixture {
	companyID := uuid.New()
	return &absenceFixture{
		companyID: companyID,
		manager:   newEmployee(companyID, domain.RoleManager, nil),
		employee:  newEmployee(companyID, domain.RoleEmployee, nil),
		absenceType: &domain.AbsenceType{
			ID:        uuid.New(),
			CompanyID: companyID,
			Name:      "年假",
			Period:    domain.AbsencePeriodYear,
			Duration:  domain.AbsenceDurationFullDay,
		},
		start: leave.Midnight(time.Now().UTC().AddDate(0, 0, 10)),
	}
}

func (f *absenceFixture) repository() *fakeRepository {
	repo := newFakeRepository(f.manager, f.employee)
	repo.absenceTypes[f.absenceType.ID] = f.absenceType
	return repo
}

func (f *absenceFixture) pending() *domain.Absence {
	return &domain.Absence{
		ID:             uuid.New(),
		CompanyID:      f.companyID,
		AbsenceTypeID:  f.absenceType.ID,
		Subject:        "年假",
		SubmittedForID: f.employee.ID,
		SubmittedByID:  f.employee.ID,
		SubmittedToID:  &f.manager.ID,
		Status:         domain.AbsenceStatusPending,
		Start:          f.start,
		End:            f.start.AddDate(0, 0, 2),
		AbsenceType:    f.absenceType,
	}
}

func TestCreateAbsence(t *testing.T) {
	f := newAbsenceFixture()

	body := func(extra map[string]any) map[string]any {
		b := map[string]any{
			"absenceTypeID": f.absenceType.ID,
			"start":         f.start,
			"end":           f.start.AddDate(0, 0, 1),
			"comment":       "家里有事",
		}
		for k, v := range extra {
			b[k] = v
		}
		return b
	}

	t.Run("own absence notifies the approver", func(t *testing.T) {
		repo, pub := f.repository(), &fakePublisher{}
		h := newFakeHandler(t, repo, pub, &fakeDispatcher{})

		req := newRequest(t, http.MethodPost, body(map[string]any{"submittedToID": f.manager.ID}), map[ContextKey]any{MyInfoCtx: f.employee})
		rec := httptest.NewRecorder()
		h.CreateAbsence(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, repo.created, 1)
		a := repo.created[0]
		assert.Equal(t, domain.AbsenceStatusPending, a.Status)
		assert.Equal(t, f.employee.ID, a.SubmittedForID)
		assert.Equal(t, "年假", a.Subject)
		assert.True(t, f.start.AddDate(0, 0, 2).Equal(a.End), "全天请假的结束时间应为最后一天的次日零点")

		require.Len(t, repo.comments, 1)
		assert.Equal(t, "家里有事", repo.comments[0].Comment)
		assert.Equal(t, domain.AbsenceStatusPending, repo.comments[0].Status)

		require.Len(t, pub.notifications, 1)
		assert.Equal(t, domain.VerbAbsenceSubmitted, pub.notifications[0].Verb)
		assert.Equal(t, []uuid.UUID{f.manager.ID}, pub.notifications[0].Recipients)
		require.Len(t, pub.mails, 1)
		assert.Equal(t, domain.MailAbsenceSubmittedManager, pub.mails[0].Type)
		assert.Equal(t, f.manager.Email, pub.mails[0].To)
	})

	t.Run("manager submitting for an employee notifies the employee", func(t *testing.T) {
		repo, pub := f.repository(), &fakePublisher{}
		h := newFakeHandler(t, repo, pub, &fakeDispatcher{})

		req := newRequest(t, http.MethodPost, body(map[string]any{"submittedForID": f.employee.ID}), map[ContextKey]any{MyInfoCtx: f.manager})
		rec := httptest.NewRecorder()
		h.CreateAbsence(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, repo.created, 1)
		assert.Equal(t, domain.AbsenceStatusApproved, repo.created[0].Status)
		assert.True(t, repo.created[0].SubmittedTo(f.manager.ID))
		assert.Equal(t, domain.AbsenceStatusApproved, repo.comments[0].Status)

		require.Len(t, pub.notifications, 1)
		assert.Equal(t, domain.VerbAbsenceSubmittedForYou, pub.notifications[0].Verb)
		assert.Equal(t, []uuid.UUID{f.employee.ID}, pub.notifications[0].Recipients)
		require.Len(t, pub.mails, 1)
		assert.Equal(t, domain.MailAbsenceSubmittedForUser, pub.mails[0].Type)
		assert.Equal(t, f.employee.Email, pub.mails[0].To)
	})

	t.Run("no approver sends nothing", func(t *testing.T) {
		repo, pub := f.repository(), &fakePublisher{}
		h := newFakeHandler(t, repo, pub, &fakeDispatcher{})

		req := newRequest(t, http.MethodPost, body(nil), map[ContextKey]any{MyInfoCtx: f.employee})
		rec := httptest.NewRecorder()
		h.CreateAbsence(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Len(t, repo.created, 1)
		assert.Empty(t, pub.notifications)
		assert.Empty(t, pub.mails)
	})

	t.Run("resigned target is rejected", func(t *testing.T) {
		resigned := newEmployee(f.companyID, domain.RoleEmployee, nil)
		resigned.Resigned = true
		repo, pub := f.repository(), &fakePublisher{}
		repo.employees[resigned.ID] = resigned
		h := newFakeHandler(t, repo, pub, &fakeDispatcher{})

		req := newRequest(t, http.MethodPost, body(map[string]any{"submittedForID": resigned.ID}), map[ContextKey]any{MyInfoCtx: f.manager})
		rec := httptest.NewRecorder()
		h.CreateAbsence(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "EMPLOYEE_NOT_FOUND", decodeResponse(t, rec).Message)
		assert.Empty(t, repo.created)
		assert.Empty(t, pub.notifications)
	})

	t.Run("absence type of another company", func(t *testing.T) {
		repo := f.repository()
		other := &domain.AbsenceType{ID: uuid.New(), CompanyID: uuid.New(), Name: "病假"}
		repo.absenceTypes[other.ID] = other
		h := newFakeHandler(t, repo, &fakePublisher{}, &fakeDispatcher{})

		req := newRequest(t, http.MethodPost, body(map[string]any{"absenceTypeID": other.ID}), map[ContextKey]any{MyInfoCtx: f.employee})
		rec := httptest.NewRecorder()
		h.CreateAbsence(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "ABSENCE_TYPE_NOT_FOUND", decodeResponse(t, rec).Message)
		assert.Empty(t, repo.created)
	})
}

func TestUpdateAbsenceStatus(t *testing.T) {
	f := newAbsenceFixture()

	serve := func(h *Handler, a *domain.Absence, body map[string]any) *httptest.ResponseRecorder {
		req := newRequest(t, http.MethodPatch, body, map[ContextKey]any{MyInfoCtx: f.manager, AbsenceCtx: a})
		rec := httptest.NewRecorder()
		h.UpdateAbsenceStatus(rec, req)
		return rec
	}

	t.Run("status change notifies everyone but the actor", func(t *testing.T) {
		repo, pub := f.repository(), &fakePublisher{}
		h := newFakeHandler(t, repo, pub, &fakeDispatcher{})
		a := f.pending()

		rec := serve(h, a, map[string]any{"status": "APPROVED", "comment": "好的"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.AbsenceStatusApproved, a.Status)

		require.Len(t, repo.comments, 1)
		assert.Equal(t, a.ID, repo.comments[0].AbsenceID)
		assert.Equal(t, "好的", repo.comments[0].Comment)
		assert.Equal(t, domain.AbsenceStatusApproved, repo.comments[0].Status)
		assert.Equal(t, f.manager.ID, repo.comments[0].CommentedByID)

		require.Len(t, pub.notifications, 1)
		assert.Equal(t, domain.VerbAbsenceUpdated, pub.notifications[0].Verb)
		assert.Equal(t, []uuid.UUID{f.employee.ID}, pub.notifications[0].Recipients)
		require.Len(t, pub.mails, 1)
		assert.Equal(t, domain.MailAbsenceUpdated, pub.mails[0].Type)
		assert.Equal(t, f.employee.Email, pub.mails[0].To)
	})

	t.Run("same status only appends the comment", func(t *testing.T) {
		repo, pub := f.repository(), &fakePublisher{}
		h := newFakeHandler(t, repo, pub, &fakeDispatcher{})
		a := f.pending()

		rec := serve(h, a, map[string]any{"status": "PENDING", "comment": "请补充证明"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.AbsenceStatusPending, a.Status)
		require.Len(t, repo.comments, 1)
		assert.Equal(t, "请补充证明", repo.comments[0].Comment)
		assert.Equal(t, domain.AbsenceStatusPending, repo.comments[0].Status)
		assert.Empty(t, pub.notifications)
		assert.Empty(t, pub.mails)
	})

	t.Run("entitlement exceeded", func(t *testing.T) {
		repo, pub := f.repository(), &fakePublisher{}
		h := newFakeHandler(t, repo, pub, &fakeDispatcher{})
		a := f.pending()
		limited := *f.absenceType
		limited.Entitlement = 1
		a.AbsenceType = &limited
		// 三天的请假无论如何跨年，总有一个周期超过一天
		a.End = f.start.AddDate(0, 0, 3)

		rec := serve(h, a, map[string]any{"status": "APPROVED"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "ENTITLEMENT_EXCEEDED", decodeResponse(t, rec).Message)
		assert.Equal(t, domain.AbsenceStatusPending, a.Status)
		assert.Empty(t, repo.comments)
		assert.Empty(t, pub.notifications)
	})

	t.Run("version conflict", func(t *testing.T) {
		repo, pub := f.repository(), &fakePublisher{}
		repo.updateErr = sql.ErrNoRows
		h := newFakeHandler(t, repo, pub, &fakeDispatcher{})

		rec := serve(h, f.pending(), map[string]any{"status": "REJECTED"})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "EDIT_CONFLICT", decodeResponse(t, rec).Message)
		assert.Empty(t, pub.notifications)
	})

	t.Run("employee cannot change status", func(t *testing.T) {
		repo := f.repository()
		h := newFakeHandler(t, repo, &fakePublisher{}, &fakeDispatcher{})

		req := newRequest(t, http.MethodPatch, map[string]any{"status": "APPROVED"}, map[ContextKey]any{MyInfoCtx: f.employee, AbsenceCtx: f.pending()})
		rec := httptest.NewRecorder()
		h.UpdateAbsenceStatus(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, repo.comments)
	})
}
