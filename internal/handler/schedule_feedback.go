package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/permission"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/utils"
)

// feedbackSchedule 读取 ?schedule= 指定的排班，返回当前用户是否被分配到该排班
func (h *Handler) feedbackSchedule(r *http.Request, myInfo *domain.Employee) (*domain.Schedule, bool, error) {
	id, err := queryUUID(r, "schedule")
	if err != nil {
		return nil, false, err
	}
	if id == nil {
		return nil, false, domain.NewValidationError("schedule", "THIS_FIELD_IS_REQUIRED")
	}

	return h.loadSchedule(*id, myInfo)
}

// loadSchedule 找不到或不可见时都返回 sql.ErrNoRows
func (h *Handler) loadSchedule(id uuid.UUID, myInfo *domain.Employee) (*domain.Schedule, bool, error) {
	s, err := h.repository.GetScheduleByID(id)
	if err != nil {
		return nil, false, err
	}

	allocated, err := h.repository.IsAllocated(s.ID, myInfo.ID)
	if err != nil {
		return nil, false, err
	}

	if !permission.CanRetrieveSchedule(myInfo, s, allocated) {
		return nil, false, sql.ErrNoRows
	}
	return s, allocated, nil
}

func (h *Handler) GetScheduleFeedbacks(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	s, _, err := h.feedbackSchedule(r, myInfo)
	if err != nil {
		h.handleError(w, r, err, "SCHEDULE_NOT_FOUND")
		return
	}
	if s.Status != domain.ScheduleStatusPublished {
		h.badRequest(w, r, domain.NewValidationError("schedule", "SCHEDULE_NOT_PUBLISHED"))
		return
	}

	if myInfo.IsEmployee() {
		h.successResponse(w, r, "获取排班反馈成功", []*domain.ScheduleFeedback{})
		return
	}
	if !permission.CanUpdateSchedule(myInfo, s) {
		h.forbidden(w, r)
		return
	}

	feedbacks, err := h.repository.GetScheduleFeedbacks(s.ID, true)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班反馈成功", feedbacks)
}

func (h *Handler) CreateScheduleFeedback(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	var req struct {
		ScheduleID       uuid.UUID `json:"scheduleID" validate:"required"`
		Comment          string    `json:"comment" validate:"max=5000"`
		Rating           int16     `json:"rating" validate:"required,min=1,max=5"`
		ShareWithManager *bool     `json:"shareWithManager"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	s, allocated, err := h.loadSchedule(req.ScheduleID, myInfo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.badRequest(w, r, domain.NewValidationError("scheduleID", "SCHEDULE_NOT_FOUND"))
			return
		}
		h.internalServerError(w, r, err)
		return
	}
	if !permission.CanGiveScheduleFeedback(myInfo, s, allocated) {
		h.badRequest(w, r, domain.NewValidationError("scheduleID", "SCHEDULE_NOT_PUBLISHED"))
		return
	}

	exists, err := h.repository.ScheduleFeedbackExists(s.ID, myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if exists {
		h.badRequest(w, r, domain.NewValidationError("scheduleID", "SCHEDULE_FEEDBACK_ALREADY_GIVEN"))
		return
	}

	f := &domain.ScheduleFeedback{
		EmployeeID:       myInfo.ID,
		ScheduleID:       s.ID,
		Comment:          req.Comment,
		Rating:           req.Rating,
		ShareWithManager: true,
	}
	if req.ShareWithManager != nil {
		f.ShareWithManager = *req.ShareWithManager
	}

	if err := h.repository.CreateScheduleFeedback(f); err != nil {
		h.handleError(w, r, err, "SCHEDULE_NOT_FOUND")
		return
	}

	h.createdResponse(w, r, "提交排班反馈成功", f)
}

func (h *Handler) GetScheduleFeedbackStats(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	s, _, err := h.feedbackSchedule(r, myInfo)
	if err != nil {
		h.handleError(w, r, err, "SCHEDULE_NOT_FOUND")
		return
	}
	if !permission.CanUpdateSchedule(myInfo, s) {
		h.forbidden(w, r)
		return
	}

	feedbacks, err := h.repository.GetScheduleFeedbacks(s.ID, false)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取反馈统计成功", utils.FeedbackStats(feedbacks))
}

func (h *Handler) GetScheduleFeedbackGiven(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	s, _, err := h.feedbackSchedule(r, myInfo)
	if err != nil {
		h.handleError(w, r, err, "SCHEDULE_NOT_FOUND")
		return
	}

	given, err := h.repository.ScheduleFeedbackExists(s.ID, myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取反馈状态成功", map[string]bool{"feedbackGiven": given})
}
