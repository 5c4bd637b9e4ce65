package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

func newActionSchedule(manager *domain.Employee) *domain.Schedule {
	start := time.Date(2030, 6, 3, 0, 0, 0, 0, time.UTC)
	return &domain.Schedule{
		ID:                 uuid.New(),
		CompanyID:          manager.CompanyID,
		DepartmentID:       uuid.New(),
		DepartmentName:     "客服部",
		Start:              start,
		End:                start.AddDate(0, 0, 7),
		Status:             domain.ScheduleStatusEnteringDetails,
		CollectPreferences: true,
		Version:            3,
	}
}

func TestScheduleActions(t *testing.T) {
	manager := newEmployee(uuid.New(), domain.RoleManager, nil)

	serve := func(h *Handler, action http.HandlerFunc, s *domain.Schedule) *httptest.ResponseRecorder {
		req := newRequest(t, http.MethodPost, nil, map[ContextKey]any{MyInfoCtx: manager, ScheduleCtx: s})
		rec := httptest.NewRecorder()
		action(rec, req)
		return rec
	}

	t.Run("collect preferences dispatches a task", func(t *testing.T) {
		repo, dispatcher := newFakeRepository(manager), &fakeDispatcher{}
		h := newFakeHandler(t, repo, &fakePublisher{}, dispatcher)
		s := newActionSchedule(manager)

		rec := serve(h, h.CollectPreferences, s)

		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, domain.ScheduleStatusCollectingPreference, s.Status)
		require.Len(t, repo.transitions, 1)
		assert.Equal(t, domain.ScheduleStatusCollectingPreference, repo.transitions[0].Status)
		assert.Equal(t, []string{domain.TaskCollectPreferences}, dispatcher.delayed)
		assert.Empty(t, repo.reverted)

		data := decodeResponse(t, rec).Data.(map[string]any)
		assert.NotEmpty(t, data["taskID"])
	})

	t.Run("stop collecting in another state is a no-op", func(t *testing.T) {
		repo, dispatcher := newFakeRepository(manager), &fakeDispatcher{}
		h := newFakeHandler(t, repo, &fakePublisher{}, dispatcher)
		s := newActionSchedule(manager)

		rec := serve(h, h.StopCollectingPreferences, s)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.ScheduleStatusEnteringDetails, s.Status)
		assert.Empty(t, repo.transitions)
		assert.Empty(t, dispatcher.delayed)
		_, hasTask := decodeResponse(t, rec).Data.(map[string]any)["taskID"]
		assert.False(t, hasTask)
	})

	t.Run("failed dispatch reverts the transition", func(t *testing.T) {
		repo, dispatcher := newFakeRepository(manager), &fakeDispatcher{err: errors.New("broker unavailable")}
		h := newFakeHandler(t, repo, &fakePublisher{}, dispatcher)
		s := newActionSchedule(manager)

		rec := serve(h, h.CollectPreferences, s)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, domain.ScheduleStatusEnteringDetails, s.Status)
		require.Len(t, repo.transitions, 1)
		assert.Equal(t, []domain.ScheduleStatus{domain.ScheduleStatusEnteringDetails}, repo.reverted)
		assert.Equal(t, []uuid.UUID{repo.transitions[0].ID}, repo.revertedStamps)

		// 撤销后同一个操作可以重试
		dispatcher.err = nil
		rec = serve(h, h.CollectPreferences, s)

		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, domain.ScheduleStatusCollectingPreference, s.Status)
		assert.Len(t, repo.transitions, 2)
		assert.Equal(t, []string{domain.TaskCollectPreferences}, dispatcher.delayed)
	})

	t.Run("version conflict keeps the old status", func(t *testing.T) {
		repo, dispatcher := newFakeRepository(manager), &fakeDispatcher{}
		repo.transitionErr = sql.ErrNoRows
		h := newFakeHandler(t, repo, &fakePublisher{}, dispatcher)
		s := newActionSchedule(manager)
		s.CollectPreferences = false

		rec := serve(h, h.RequestSchedule, s)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, domain.ScheduleStatusEnteringDetails, s.Status)
		assert.Empty(t, dispatcher.delayed)
		assert.Empty(t, repo.reverted)
	})

	t.Run("transition not allowed", func(t *testing.T) {
		repo, dispatcher := newFakeRepository(manager), &fakeDispatcher{}
		h := newFakeHandler(t, repo, &fakePublisher{}, dispatcher)
		s := newActionSchedule(manager)

		rec := serve(h, h.PublishSchedule, s)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "SCHEDULE_STATUS_TRANSITION_NOT_ALLOWED", decodeResponse(t, rec).Message)
		assert.Empty(t, repo.transitions)
		assert.Empty(t, dispatcher.delayed)
	})
}
