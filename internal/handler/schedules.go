package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/export"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/lifecycle"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/permission"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/utils"
)

type scheduleView struct {
	*domain.Schedule
	StatusName string             `json:"statusName"`
	CanUpdate  bool               `json:"canUpdate"`
	Actions    []lifecycle.Action `json:"actions"`
}

var scheduleActions = []lifecycle.Action{
	lifecycle.ActionCollectPreferences,
	lifecycle.ActionRequestSchedule,
	lifecycle.ActionStopCollecting,
	lifecycle.ActionPublish,
	lifecycle.ActionDelete,
}

func newScheduleView(user *domain.Employee, s *domain.Schedule) *scheduleView {
	view := &scheduleView{
		Schedule:   s,
		StatusName: s.Status.String(),
		CanUpdate:  permission.CanUpdateSchedule(user, s),
		Actions:    make([]lifecycle.Action, 0),
	}
	if view.CanUpdate {
		for _, action := range scheduleActions {
			if lifecycle.Can(action, s) {
				view.Actions = append(view.Actions, action)
			}
		}
	}
	return view
}

// visibleSchedules 按角色过滤排班，管理者设置了当前部门时只看该部门
func visibleSchedules(user *domain.Employee, schedules []*domain.Schedule, allocated map[uuid.UUID]bool) []*domain.Schedule {
	visible := make([]*domain.Schedule, 0, len(schedules))
	for _, s := range schedules {
		var ok bool
		switch {
		case user.IsManagerAdminOrManager():
			ok = permission.ScheduleForManager(user, s) &&
				(user.ActiveDepartmentID == nil || *user.ActiveDepartmentID == s.DepartmentID)
		case user.IsStaff():
			ok = permission.ScheduleForStaffOrAllocated(user, s, allocated[s.ID])
		default:
			ok = permission.ScheduleForEmployee(user, s, allocated[s.ID])
		}
		if ok {
			visible = append(visible, s)
		}
	}
	return visible
}

var scheduleLess = map[string]func(a, b *domain.Schedule) bool{
	"status": func(a, b *domain.Schedule) bool {
		return lifecycle.SortOrder(a.Status) < lifecycle.SortOrder(b.Status)
	},
	"start":      func(a, b *domain.Schedule) bool { return a.Start.Before(b.Start) },
	"end":        func(a, b *domain.Schedule) bool { return a.End.Before(b.End) },
	"department": func(a, b *domain.Schedule) bool { return a.DepartmentName < b.DepartmentName },
}

func sortSchedules(schedules []*domain.Schedule, sortBy string, desc bool) {
	less, ok := scheduleLess[sortBy]
	if !ok {
		// 保持仓储层的默认顺序
		return
	}
	sort.SliceStable(schedules, func(i, j int) bool {
		if desc {
			return less(schedules[j], schedules[i])
		}
		return less(schedules[i], schedules[j])
	})
}

// filterSchedules 处理列表和导出共用的查询参数
func filterSchedules(r *http.Request, schedules []*domain.Schedule) ([]*domain.Schedule, error) {
	var statuses []domain.ScheduleStatus
	for _, v := range queryList(r, "status") {
		n, err := strconv.Atoi(v)
		if err != nil || !domain.ScheduleStatus(n).Valid() {
			return nil, domain.NewValidationError("status", "INVALID_STATUS")
		}
		statuses = append(statuses, domain.ScheduleStatus(n))
	}

	department, err := queryUUID(r, "department")
	if err != nil {
		return nil, err
	}

	filtered := make([]*domain.Schedule, 0, len(schedules))
	for _, s := range schedules {
		if len(statuses) > 0 && !slices.Contains(statuses, s.Status) {
			continue
		}
		if department != nil && s.DepartmentID != *department {
			continue
		}
		filtered = append(filtered, s)
	}

	sortSchedules(filtered, r.URL.Query().Get("sortBy"), queryBool(r, "sortDesc"))
	return filtered, nil
}

func (h *Handler) listVisibleSchedules(r *http.Request, myInfo *domain.Employee) ([]*domain.Schedule, error) {
	schedules, allocated, err := h.repository.ListSchedules(myInfo.CompanyID, myInfo.ID)
	if err != nil {
		return nil, err
	}
	return filterSchedules(r, visibleSchedules(myInfo, schedules, allocated))
}

func (h *Handler) GetSchedules(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	schedules, err := h.listVisibleSchedules(r, myInfo)
	if err != nil {
		h.handleError(w, r, err, "SCHEDULE_NOT_FOUND")
		return
	}

	views := make([]*scheduleView, 0, len(schedules))
	for _, s := range schedules {
		views = append(views, newScheduleView(myInfo, s))
	}

	h.successResponse(w, r, "获取排班列表成功", views)
}

func (h *Handler) ExportSchedules(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	schedules, err := h.listVisibleSchedules(r, myInfo)
	if err != nil {
		h.handleError(w, r, err, "SCHEDULE_NOT_FOUND")
		return
	}

	dir, err := h.directory(myInfo.CompanyID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeExport(w, r, "schedules", export.Schedules(schedules, dir))
}

// checkDepartment 部门必须属于当前公司，部门主管只能操作自己的部门
func (h *Handler) checkDepartment(myInfo *domain.Employee, departmentID uuid.UUID) (*domain.Department, error) {
	department, err := h.repository.GetDepartmentByID(departmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewValidationError("departmentID", "DEPARTMENT_NOT_FOUND")
		}
		return nil, err
	}
	if department.CompanyID != myInfo.CompanyID {
		return nil, domain.NewValidationError("departmentID", "DEPARTMENT_NOT_FOUND")
	}
	if !myInfo.IsManagerAdminOrManager() && !myInfo.InDepartment(&department.ID) {
		return nil, domain.NewValidationError("departmentID", "PERMISSION_DENIED")
	}
	return department, nil
}

func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	var req struct {
		DepartmentID        uuid.UUID             `json:"departmentID" validate:"required"`
		Start               time.Time             `json:"start" validate:"required"`
		End                 time.Time             `json:"end" validate:"required"`
		ShiftTypeIDs        []uuid.UUID           `json:"shiftTypeIDs" validate:"required,min=1"`
		PreferencesDeadline *time.Time            `json:"preferencesDeadline"`
		ManualInput         bool                  `json:"manualInput"`
		CollectPreferences  *bool                 `json:"collectPreferences"`
		Comment             string                `json:"comment" validate:"max=500"`
		GenericData         json.RawMessage       `json:"genericData"`
		Shifts              []domain.ShiftRequest `json:"shifts" validate:"dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	department, err := h.checkDepartment(myInfo, req.DepartmentID)
	if err != nil {
		h.handleError(w, r, err, "DEPARTMENT_NOT_FOUND")
		return
	}

	s := &domain.Schedule{
		CompanyID:           myInfo.CompanyID,
		DepartmentID:        department.ID,
		DepartmentName:      department.Name,
		Start:               req.Start,
		End:                 req.End,
		PreferencesDeadline: req.PreferencesDeadline,
		ManualInput:         req.ManualInput,
		CollectPreferences:  true,
		Comment:             req.Comment,
		GenericData:         req.GenericData,
	}
	if req.CollectPreferences != nil {
		s.CollectPreferences = *req.CollectPreferences
	}

	now := h.now()
	if err := utils.ValidateSchedule(s, now); err != nil {
		h.badRequest(w, r, err)
		return
	}

	overlapping, err := h.repository.HasOverlappingSchedule(s.DepartmentID, s.Start, s.End, uuid.Nil)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if overlapping {
		h.badRequest(w, r, domain.NewValidationError("start", "AN_OVERLAPPING_SCHEDULE_ALREADY_EXIST_FOR_THIS_DEPARTMENT"))
		return
	}

	shiftTypes, err := h.repository.GetShiftTypesByIDs(myInfo.CompanyID, req.ShiftTypeIDs)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(shiftTypes) != len(req.ShiftTypeIDs) {
		h.badRequest(w, r, domain.NewValidationError("shiftTypeIDs", "SHIFT_TYPE_NOT_FOUND"))
		return
	}

	for _, shift := range req.Shifts {
		if !slices.ContainsFunc(shiftTypes, func(st *domain.ShiftType) bool { return st.ID == shift.ShiftTypeID }) {
			h.badRequest(w, r, domain.NewValidationError("shifts", "SHIFT_TYPE_NOT_FOUND"))
			return
		}
		if shift.Start.Before(s.Start) || shift.End.After(s.End.AddDate(0, 0, 1)) {
			h.badRequest(w, r, domain.NewValidationError("shifts", "SHIFT_OUTSIDE_SCHEDULE"))
			return
		}
	}

	s.Status = lifecycle.InitialStatus(s)
	if err := h.repository.CreateSchedule(s, shiftTypes, now); err != nil {
		h.handleError(w, r, err, "SCHEDULE_NOT_FOUND")
		return
	}

	// 班次引用排班中的快照而不是原始班次类型
	snapshots := make(map[uuid.UUID]uuid.UUID, len(shiftTypes))
	for i, st := range shiftTypes {
		snapshots[st.ID] = s.ShiftTypeIDs[i]
	}
	shifts := make([]domain.ShiftRequest, 0, len(req.Shifts))
	for _, shift := range req.Shifts {
		shift.ShiftTypeID = snapshots[shift.ShiftTypeID]
		shifts = append(shifts, shift)
	}

	taskID, err := h.dispatcher.Delay(domain.TaskCreateShifts, &domain.CreateShiftsPayload{
		ScheduleID: s.ID,
		Shifts:     shifts,
	})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.acceptedResponse(w, r, "创建排班成功", map[string]any{
		"schedule": newScheduleView(myInfo, s),
		"taskID":   taskID,
	})
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	s := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	h.successResponse(w, r, "获取排班成功", newScheduleView(myInfo, s))
}

func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	s := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	if !permission.CanUpdateSchedule(myInfo, s) {
		h.forbidden(w, r)
		return
	}

	var req struct {
		PreferencesDeadline *time.Time      `json:"preferencesDeadline"`
		Comment             *string         `json:"comment" validate:"omitempty,max=500"`
		GenericData         json.RawMessage `json:"genericData"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.PreferencesDeadline != nil {
		s.PreferencesDeadline = req.PreferencesDeadline
	}
	if req.Comment != nil {
		s.Comment = *req.Comment
	}
	if req.GenericData != nil {
		s.GenericData = req.GenericData
	}

	if err := h.repository.UpdateSchedule(s); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.editConflict(w, r)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新排班成功", newScheduleView(myInfo, s))
}

func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	s := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	if !permission.CanUpdateSchedule(myInfo, s) {
		h.forbidden(w, r)
		return
	}
	if !lifecycle.Can(lifecycle.ActionDelete, s) {
		h.handleError(w, r, lifecycle.ErrTransitionNotAllowed, "SCHEDULE_NOT_FOUND")
		return
	}

	// 通知外部优化服务丢弃该排班的数据
	if err := h.publisher.PublishOptimization(&domain.OptimizationRequest{
		Action:     "optimization.delete",
		ScheduleID: s.ID,
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.repository.DeleteSchedule(s.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除排班成功", nil)
}

// transition 执行状态流转，changed 为 false 表示空操作
// transition 返回的 ts 为 nil 表示空操作，数据库没有被修改
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action lifecycle.Action) (s *domain.Schedule, previous domain.ScheduleStatus, ts *domain.ScheduleTimestamp, ok bool) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	s = r.Context().Value(ScheduleCtx).(*domain.Schedule)

	if !permission.CanUpdateSchedule(myInfo, s) {
		h.forbidden(w, r)
		return nil, 0, nil, false
	}

	previous = s.Status
	ts, err := lifecycle.Apply(action, s, h.now())
	if err != nil {
		h.handleError(w, r, err, "SCHEDULE_NOT_FOUND")
		return nil, 0, nil, false
	}
	if ts == nil {
		return s, previous, nil, true
	}

	if err := h.repository.TransitionSchedule(s, ts); err != nil {
		s.Status = previous
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.editConflict(w, r)
		default:
			h.internalServerError(w, r, err)
		}
		return nil, 0, nil, false
	}
	return s, previous, ts, true
}

// transitionAndDelay 任务投递失败时撤销状态流转，客户端可以直接重试
func (h *Handler) transitionAndDelay(w http.ResponseWriter, r *http.Request, action lifecycle.Action, taskName, msg string) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	s, previous, ts, ok := h.transition(w, r, action)
	if !ok {
		return
	}
	if ts == nil {
		h.successResponse(w, r, msg, map[string]any{"schedule": newScheduleView(myInfo, s)})
		return
	}

	taskID, err := h.dispatcher.Delay(taskName, &domain.ScheduleTaskPayload{ScheduleID: s.ID})
	if err != nil {
		if rerr := h.repository.RevertTransition(s, previous, ts); rerr != nil {
			slog.Error("无法撤销排班状态", "schedule", s.ID, "status", previous, "error", rerr)
		}
		h.internalServerError(w, r, err)
		return
	}

	h.acceptedResponse(w, r, msg, map[string]any{
		"schedule": newScheduleView(myInfo, s),
		"taskID":   taskID,
	})
}

func (h *Handler) CollectPreferences(w http.ResponseWriter, r *http.Request) {
	h.transitionAndDelay(w, r, lifecycle.ActionCollectPreferences, domain.TaskCollectPreferences, "开始收集偏好")
}

func (h *Handler) RequestSchedule(w http.ResponseWriter, r *http.Request) {
	h.transitionAndDelay(w, r, lifecycle.ActionRequestSchedule, domain.TaskOptimizeSchedule, "已请求生成排班")
}

func (h *Handler) StopCollectingPreferences(w http.ResponseWriter, r *http.Request) {
	h.transitionAndDelay(w, r, lifecycle.ActionStopCollecting, domain.TaskOptimizeSchedule, "已停止收集偏好")
}

func (h *Handler) PublishSchedule(w http.ResponseWriter, r *http.Request) {
	h.transitionAndDelay(w, r, lifecycle.ActionPublish, domain.TaskPublishSchedule, "发布排班成功")
}

func (h *Handler) GetScheduleEvents(w http.ResponseWriter, r *http.Request) {
	s := r.Context().Value(ScheduleCtx).(*domain.Schedule)

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

	// 前后各多取一天，跨天的班次也能显示
	from, to := start.AddDate(0, 0, -1), end.AddDate(0, 0, 1)
	shifts, err := h.repository.GetShifts(s.ID, &from, &to)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	shiftTypes, err := h.repository.GetShiftTypesBySchedule(s.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	names := make(map[uuid.UUID]string, len(shiftTypes))
	for _, st := range shiftTypes {
		names[st.ID] = st.Name
	}

	events := make([]map[string]any, 0, len(shifts))
	for _, shift := range shifts {
		events = append(events, map[string]any{
			"id":                shift.ID,
			"title":             names[shift.ShiftTypeID],
			"type":              domain.EventTypeShift,
			"start":             shift.Start,
			"end":               shift.End,
			"allDay":            false,
			"requiredEmployees": shift.RequiredEmployees,
			"employeeIDs":       shift.EmployeeIDs,
		})
	}

	h.successResponse(w, r, "获取班次成功", events)
}

func (h *Handler) GetScheduleHistory(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	s := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	if !permission.CanUpdateSchedule(myInfo, s) {
		h.forbidden(w, r)
		return
	}

	timestamps, err := h.repository.GetScheduleTimestamps(s.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班历史成功", timestamps)
}
