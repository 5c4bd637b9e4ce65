package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/lifecycle"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/tasks"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/utils"
)

// ReceiveOptimization 接收外部优化服务的分配结果
func (h *Handler) ReceiveOptimization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScheduleID  uuid.UUID                 `json:"scheduleId" validate:"required"`
		Allocations map[uuid.UUID][]uuid.UUID `json:"allocations"`
	}

	if err := h.readJSON(r, &req); err != nil {
		slog.Error("解析优化结果失败", "error", err)
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		slog.Error("优化结果校验失败", "error", err)
		h.badRequest(w, r, err)
		return
	}

	if err := h.saveOptimization(req.ScheduleID, req.Allocations); err != nil {
		slog.Error("保存优化结果失败", "schedule", req.ScheduleID, "error", err)
		h.errorResponse(w, r, http.StatusBadRequest, "OPTIMIZATION_FAILED", err.Error())
		return
	}

	h.successResponse(w, r, "保存优化结果成功", nil)
}

func (h *Handler) saveOptimization(scheduleID uuid.UUID, allocations map[uuid.UUID][]uuid.UUID) error {
	s, err := h.repository.GetScheduleByID(scheduleID)
	if err != nil {
		return err
	}

	shifts, err := h.repository.GetShifts(s.ID, nil, nil)
	if err != nil {
		return err
	}
	if err := utils.ValidateAllocations(shifts, allocations); err != nil {
		return err
	}

	ts, err := lifecycle.Apply(lifecycle.ActionOptimizationCompleted, s, h.now())
	if err != nil {
		return err
	}

	return h.repository.SaveAllocations(s, allocations, ts)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "TASK_NOT_FOUND")
	if !ok {
		return
	}

	state, err := h.dispatcher.Get(id)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			h.notFound(w, r, "TASK_NOT_FOUND")
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取任务状态成功", state)
}
