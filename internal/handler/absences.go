package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/export"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/leave"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/permission"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/repository"
)

const absenceEventColor = "#E57373"

// absenceFilter 根据角色限制可见范围，再叠加查询参数中的过滤条件
func (h *Handler) absenceFilter(r *http.Request, myInfo *domain.Employee) (*repository.AbsenceFilter, error) {
	filter := &repository.AbsenceFilter{
		CompanyID: myInfo.CompanyID,
		Search:    r.URL.Query().Get("search"),
		SortBy:    r.URL.Query().Get("sortBy"),
		SortDesc:  queryBool(r, "sortDesc"),
	}

	switch {
	case myInfo.IsEmployee():
		filter.SubmittedForID = &myInfo.ID
	case myInfo.IsStaff():
		filter.VisibleToID = &myInfo.ID
	}

	submittedFor, err := queryUUID(r, "submitted_for")
	if err != nil {
		return nil, err
	}
	if submittedFor != nil && filter.SubmittedForID == nil {
		filter.SubmittedForID = submittedFor
	}

	for _, s := range queryList(r, "status") {
		status := domain.AbsenceStatus(s)
		if !status.Valid() {
			return nil, domain.NewValidationError("status", "INVALID_STATUS")
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	if d := r.URL.Query().Get("absence_duration"); d != "" {
		duration := domain.AbsenceDuration(d)
		filter.Duration = &duration
	}

	return filter, nil
}

func (h *Handler) listAbsences(w http.ResponseWriter, r *http.Request, msg string, filter *repository.AbsenceFilter) {
	absences, err := h.repository.ListAbsences(filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, msg, absences)
}

func (h *Handler) GetAbsences(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	filter, err := h.absenceFilter(r, myInfo)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.listAbsences(w, r, "获取请假列表成功", filter)
}

// GetAbsenceRequests 返回由当前用户提交的请假
func (h *Handler) GetAbsenceRequests(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	h.listAbsences(w, r, "获取我提交的请假成功", &repository.AbsenceFilter{
		CompanyID:     myInfo.CompanyID,
		SubmittedByID: &myInfo.ID,
	})
}

// GetAbsenceApprovals 返回提交给当前用户且尚未处理完的请假
func (h *Handler) GetAbsenceApprovals(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	h.listAbsences(w, r, "获取待审批的请假成功", &repository.AbsenceFilter{
		CompanyID:     myInfo.CompanyID,
		SubmittedToID: &myInfo.ID,
		Statuses:      []domain.AbsenceStatus{domain.AbsenceStatusPending, domain.AbsenceStatusInReview},
	})
}

// targetEmployee 读取 employee_id 参数对应的员工，未提供时返回当前用户
func (h *Handler) targetEmployee(r *http.Request, myInfo *domain.Employee, required bool) (*domain.Employee, error) {
	id, err := queryUUID(r, "employee_id")
	if err != nil {
		return nil, err
	}
	if id == nil {
		if required {
			return nil, domain.NewValidationError("employee_id", "THIS_FIELD_IS_REQUIRED")
		}
		return myInfo, nil
	}
	if *id == myInfo.ID {
		return myInfo, nil
	}
	return h.repository.GetEmployeeByID(*id)
}

func (h *Handler) GetUserAbsences(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	target, err := h.targetEmployee(r, myInfo, true)
	if err != nil {
		h.handleError(w, r, err, "EMPLOYEE_NOT_FOUND")
		return
	}

	if !permission.CanListAbsenceHistory(myInfo, target) {
		h.forbidden(w, r)
		return
	}

	h.listAbsences(w, r, "获取员工请假记录成功", &repository.AbsenceFilter{
		CompanyID:      target.CompanyID,
		SubmittedForID: &target.ID,
	})
}

func (h *Handler) GetAbsenceDetailHistory(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	target, err := h.targetEmployee(r, myInfo, false)
	if err != nil {
		h.handleError(w, r, err, "EMPLOYEE_NOT_FOUND")
		return
	}
	if !permission.CanListAbsenceHistory(myInfo, target) {
		h.forbidden(w, r)
		return
	}

	typeID, err := queryUUID(r, "absence_type")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if typeID == nil {
		h.badRequest(w, r, domain.NewValidationError("absence_type", "THIS_FIELD_IS_REQUIRED"))
		return
	}

	t, err := h.repository.GetAbsenceTypeByID(*typeID)
	if err != nil {
		h.handleError(w, r, err, "ABSENCE_TYPE_NOT_FOUND")
		return
	}
	if !permission.CanViewAbsenceType(myInfo, t) {
		h.notFound(w, r, "ABSENCE_TYPE_NOT_FOUND")
		return
	}

	now := h.now()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	absences, err := h.repository.GetApprovedAbsences(target.CompanyID, target.ID, &t.ID, yearStart, yearStart.AddDate(1, 0, 0))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	alreadyTaken := leave.AlreadyTaken(absences, now)
	h.successResponse(w, r, "获取请假额度成功", map[string]any{
		"absenceType":      t,
		"alreadyTaken":     alreadyTaken,
		"currentAllowance": float64(t.Entitlement) - alreadyTaken,
	})
}

func (h *Handler) GetAbsenceEvents(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	start, err := queryTime(r, "start")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	end, err := queryTime(r, "end")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	target, err := h.targetEmployee(r, myInfo, false)
	if err != nil {
		h.handleError(w, r, err, "EMPLOYEE_NOT_FOUND")
		return
	}
	if !permission.CanListAbsenceHistory(myInfo, target) {
		h.forbidden(w, r)
		return
	}

	absences, err := h.repository.GetApprovedAbsences(target.CompanyID, target.ID, nil, start, end)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	events := make([]*domain.Event, 0, len(absences))
	for _, a := range absences {
		allDay := a.AbsenceType == nil || !a.AbsenceType.Hourly()
		events = append(events, &domain.Event{
			ID:     a.ID,
			Title:  "ABSENT",
			Color:  absenceEventColor,
			Type:   domain.EventTypeAbsence,
			Start:  a.Start,
			End:    a.End,
			AllDay: allDay,
		})
	}

	generalAbsences, err := h.repository.GetGeneralAbsences(myInfo.CompanyID, false)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	for _, g := range visibleGeneralAbsences(myInfo, generalAbsences) {
		if !leave.Overlaps(g.Start, g.End, start, end) {
			continue
		}
		events = append(events, &domain.Event{
			ID:     g.ID,
			Title:  g.Subject,
			Type:   domain.EventTypeGeneralAbsence,
			Start:  g.Start,
			End:    g.DisplayEnd(),
			AllDay: true,
		})
	}

	h.successResponse(w, r, "获取日历事件成功", events)
}

func (h *Handler) ExportAbsences(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	filter, err := h.absenceFilter(r, myInfo)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	absences, err := h.repository.ListAbsences(filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	dir, err := h.directory(myInfo.CompanyID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeExport(w, r, "absences", export.Absences(absences, dir))
}

// companyEmployee 查找同一公司中的员工，id 为 nil 时返回 nil
func (h *Handler) companyEmployee(companyID uuid.UUID, id *uuid.UUID, field string) (*domain.Employee, error) {
	if id == nil {
		return nil, nil
	}

	e, err := h.repository.GetEmployeeByID(*id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewValidationError(field, "EMPLOYEE_NOT_FOUND")
		}
		return nil, err
	}
	if e.CompanyID != companyID || e.Resigned {
		return nil, domain.NewValidationError(field, "EMPLOYEE_NOT_FOUND")
	}
	return e, nil
}

func (h *Handler) CreateAbsence(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	var req struct {
		AbsenceTypeID      uuid.UUID  `json:"absenceTypeID" validate:"required"`
		Subject            string     `json:"subject" validate:"max=255"`
		Start              time.Time  `json:"start" validate:"required"`
		End                time.Time  `json:"end" validate:"required"`
		SubmittedForID     *uuid.UUID `json:"submittedForID"`
		SubmittedToID      *uuid.UUID `json:"submittedToID"`
		Comment            string     `json:"comment" validate:"max=5000"`
		IgnoreShiftOverlap bool       `json:"ignoreShiftOverlap"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	t, err := h.repository.GetAbsenceTypeByID(req.AbsenceTypeID)
	if err != nil {
		h.handleError(w, r, err, "ABSENCE_TYPE_NOT_FOUND")
		return
	}
	if !permission.CanViewAbsenceType(myInfo, t) || t.Archived() {
		h.badRequest(w, r, domain.NewValidationError("absenceTypeID", "ABSENCE_TYPE_NOT_FOUND"))
		return
	}

	submittedFor, err := h.companyEmployee(myInfo.CompanyID, req.SubmittedForID, "submittedForID")
	if err != nil {
		h.handleError(w, r, err, "EMPLOYEE_NOT_FOUND")
		return
	}
	submittedTo, err := h.companyEmployee(myInfo.CompanyID, req.SubmittedToID, "submittedToID")
	if err != nil {
		h.handleError(w, r, err, "EMPLOYEE_NOT_FOUND")
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = t.Name
	}

	absence, err := h.checker.Prepare(&leave.Submission{
		Type:               t,
		Subject:            subject,
		Start:              req.Start,
		End:                req.End,
		User:               myInfo,
		SubmittedFor:       submittedFor,
		SubmittedTo:        submittedTo,
		IgnoreShiftOverlap: req.IgnoreShiftOverlap,
	})
	if err != nil {
		h.handleError(w, r, err, "ABSENCE_NOT_FOUND")
		return
	}

	comment := &domain.AbsenceComment{
		Comment:       req.Comment,
		Status:        absence.Status,
		CommentedByID: myInfo.ID,
	}
	if err := h.repository.CreateAbsence(absence, comment); err != nil {
		h.handleError(w, r, err, "ABSENCE_NOT_FOUND")
		return
	}

	// 关系校验之后 submittedFor 和 submittedTo 可能由当前用户补全
	if submittedFor == nil {
		submittedFor = myInfo
	}
	if submittedTo == nil && absence.SubmittedTo(myInfo.ID) {
		submittedTo = myInfo
	}
	if err := h.notifier.AbsenceSubmitted(absence, myInfo, submittedFor, submittedTo); err != nil {
		slog.Error("发送请假通知失败", "absence", absence.ID, "error", err)
	}

	h.createdResponse(w, r, "提交请假成功", absence)
}

func (h *Handler) GetAbsence(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	a := r.Context().Value(AbsenceCtx).(*domain.Absence)

	target, err := h.repository.GetEmployeeByID(a.SubmittedForID)
	if err != nil {
		h.handleError(w, r, err, "EMPLOYEE_NOT_FOUND")
		return
	}

	if !permission.CanRetrieveAbsence(myInfo, a, target) {
		h.notFound(w, r, "ABSENCE_NOT_FOUND")
		return
	}

	h.successResponse(w, r, "获取请假详情成功", map[string]any{
		"absence":         a,
		"canUpdateStatus": permission.CanUpdateAbsenceStatus(myInfo, a),
		"canDelete":       permission.CanDeleteAbsence(myInfo, a),
		"createdForPast":  a.CreatedForPast(),
		"duration":        leave.DurationString(a.End.Sub(a.Start)),
	})
}

func (h *Handler) DeleteAbsence(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	a := r.Context().Value(AbsenceCtx).(*domain.Absence)

	if !permission.CanDeleteAbsence(myInfo, a) {
		h.forbidden(w, r)
		return
	}

	if err := h.repository.DeleteAbsence(a.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除请假成功", nil)
}

func (h *Handler) UpdateAbsenceStatus(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	a := r.Context().Value(AbsenceCtx).(*domain.Absence)

	if !permission.CanUpdateAbsenceStatus(myInfo, a) {
		h.forbidden(w, r)
		return
	}

	var req struct {
		Status             domain.AbsenceStatus `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED IN_REVIEW"`
		Comment            string               `json:"comment" validate:"max=5000"`
		IgnoreShiftOverlap bool                 `json:"ignoreShiftOverlap"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.checker.CheckStatusChange(a, a.AbsenceType, req.Status, req.IgnoreShiftOverlap); err != nil {
		h.handleError(w, r, err, "ABSENCE_NOT_FOUND")
		return
	}

	previous := a.Status
	a.Status = req.Status
	comment := &domain.AbsenceComment{
		Comment:       req.Comment,
		Status:        req.Status,
		CommentedByID: myInfo.ID,
	}
	if err := h.repository.UpdateAbsenceStatus(a, comment); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.editConflict(w, r)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if previous != a.Status {
		h.notifyAbsenceUpdated(a, myInfo, req.Comment)
	}

	h.successResponse(w, r, "更新请假状态成功", a)
}

func (h *Handler) notifyAbsenceUpdated(a *domain.Absence, actor *domain.Employee, comment string) {
	ids := []uuid.UUID{a.SubmittedForID}
	if a.SubmittedToID != nil {
		ids = append(ids, *a.SubmittedToID)
	}

	employees, err := h.repository.GetEmployeesByIDs(ids)
	if err != nil {
		slog.Error("获取通知对象失败", "absence", a.ID, "error", err)
		return
	}

	var target, approver *domain.Employee
	for _, e := range employees {
		if e.ID == a.SubmittedForID {
			target = e
		}
		if a.SubmittedTo(e.ID) {
			approver = e
		}
	}
	if target == nil {
		return
	}

	if err := h.notifier.AbsenceUpdated(a, actor, target, approver, comment); err != nil {
		slog.Error("发送请假通知失败", "absence", a.ID, "error", err)
	}
}
