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
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/utils"
)

type generalAbsenceView struct {
	*domain.GeneralAbsence
	CanUpdate  bool   `json:"canUpdate"`
	CanDelete  bool   `json:"canDelete"`
	CanRestore bool   `json:"canRestore"`
	Duration   string `json:"duration"`
}

func newGeneralAbsenceView(user *domain.Employee, g *domain.GeneralAbsence) *generalAbsenceView {
	canUpdate := permission.CanUpdateGeneralAbsence(user, g)
	archived := g.DeletedAt != nil
	return &generalAbsenceView{
		GeneralAbsence: g,
		CanUpdate:      canUpdate,
		CanDelete:      canUpdate && !archived,
		CanRestore:     canUpdate && archived,
		Duration:       leave.DurationString(g.End.Sub(g.Start)),
	}
}

// visibleGeneralAbsences 管理者设置了当前部门时只看该部门和全公司的公告
func visibleGeneralAbsences(user *domain.Employee, list []*domain.GeneralAbsence) []*domain.GeneralAbsence {
	visible := make([]*domain.GeneralAbsence, 0, len(list))
	for _, g := range list {
		if !permission.CanRetrieveGeneralAbsence(user, g) {
			continue
		}
		if user.IsManagerAdminOrManager() && user.ActiveDepartmentID != nil &&
			!g.Untargeted() && !g.Targets(user.ActiveDepartmentID) {
			continue
		}
		visible = append(visible, g)
	}
	return visible
}

type generalAbsenceRequest struct {
	Subject       string               `json:"subject" validate:"required,max=255"`
	Body          string               `json:"body" validate:"max=5000"`
	Status        domain.AbsenceStatus `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED IN_REVIEW"`
	Start         time.Time            `json:"start" validate:"required"`
	End           time.Time            `json:"end" validate:"required"`
	DepartmentIDs []uuid.UUID          `json:"departmentIDs"`
}

// applyGeneralAbsenceRequest 写入请求内容，结束日期存为次日零点
func (h *Handler) applyGeneralAbsenceRequest(myInfo *domain.Employee, req *generalAbsenceRequest, g *domain.GeneralAbsence) error {
	g.Subject = req.Subject
	g.Body = req.Body
	g.Status = req.Status
	g.Start = req.Start
	g.End = req.End

	if err := utils.ValidateGeneralAbsence(g); err != nil {
		return err
	}
	g.Start = leave.Midnight(g.Start)
	g.End = leave.Midnight(g.End).AddDate(0, 0, 1)

	// 部门主管只能给自己的部门发公告
	if !myInfo.IsManagerAdminOrManager() {
		if myInfo.DepartmentID == nil {
			return domain.NewValidationError("departmentIDs", "DEPARTMENT_NOT_FOUND")
		}
		g.DepartmentIDs = []uuid.UUID{*myInfo.DepartmentID}
		return nil
	}

	for _, id := range req.DepartmentIDs {
		department, err := h.repository.GetDepartmentByID(id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NewValidationError("departmentIDs", "DEPARTMENT_NOT_FOUND")
			}
			return err
		}
		if department.CompanyID != myInfo.CompanyID {
			return domain.NewValidationError("departmentIDs", "DEPARTMENT_NOT_FOUND")
		}
	}
	g.DepartmentIDs = req.DepartmentIDs
	return nil
}

func (h *Handler) notifyGeneralAbsence(g *domain.GeneralAbsence, actor *domain.Employee) {
	audience, err := h.repository.GetAudience(g.CompanyID, g.DepartmentIDs)
	if err != nil {
		slog.Error("获取公告通知对象失败", "generalAbsence", g.ID, "error", err)
		return
	}

	if err := h.notifier.GeneralAbsencePublished(g, actor, audience); err != nil {
		slog.Error("发送公告通知失败", "generalAbsence", g.ID, "error", err)
	}
}

func (h *Handler) listGeneralAbsences(w http.ResponseWriter, r *http.Request, archived bool) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	list, err := h.repository.GetGeneralAbsences(myInfo.CompanyID, archived)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	views := make([]*generalAbsenceView, 0, len(list))
	for _, g := range visibleGeneralAbsences(myInfo, list) {
		view := newGeneralAbsenceView(myInfo, g)
		if archived && !view.CanRestore {
			continue
		}
		views = append(views, view)
	}

	h.successResponse(w, r, "获取公告列表成功", views)
}

func (h *Handler) GetGeneralAbsences(w http.ResponseWriter, r *http.Request) {
	h.listGeneralAbsences(w, r, false)
}

func (h *Handler) GetArchivedGeneralAbsences(w http.ResponseWriter, r *http.Request) {
	h.listGeneralAbsences(w, r, true)
}

func (h *Handler) CreateGeneralAbsence(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	var req generalAbsenceRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	g := &domain.GeneralAbsence{
		CompanyID:     myInfo.CompanyID,
		SubmittedByID: myInfo.ID,
	}
	if err := h.applyGeneralAbsenceRequest(myInfo, &req, g); err != nil {
		h.handleError(w, r, err, "DEPARTMENT_NOT_FOUND")
		return
	}

	if err := h.repository.CreateGeneralAbsence(g); err != nil {
		h.handleError(w, r, err, "GENERAL_ABSENCE_NOT_FOUND")
		return
	}

	if g.Status == domain.AbsenceStatusApproved {
		h.notifyGeneralAbsence(g, myInfo)
	}

	h.createdResponse(w, r, "创建公告成功", newGeneralAbsenceView(myInfo, g))
}

func (h *Handler) GetGeneralAbsence(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	g := r.Context().Value(GeneralAbsenceCtx).(*domain.GeneralAbsence)

	h.successResponse(w, r, "获取公告成功", newGeneralAbsenceView(myInfo, g))
}

func (h *Handler) UpdateGeneralAbsence(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	g := r.Context().Value(GeneralAbsenceCtx).(*domain.GeneralAbsence)

	if !permission.CanUpdateGeneralAbsence(myInfo, g) {
		h.forbidden(w, r)
		return
	}

	var req generalAbsenceRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	previous := g.Status
	if err := h.applyGeneralAbsenceRequest(myInfo, &req, g); err != nil {
		h.handleError(w, r, err, "DEPARTMENT_NOT_FOUND")
		return
	}

	if err := h.repository.UpdateGeneralAbsence(g); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.editConflict(w, r)
		default:
			h.handleError(w, r, err, "GENERAL_ABSENCE_NOT_FOUND")
		}
		return
	}

	if previous != domain.AbsenceStatusApproved && g.Status == domain.AbsenceStatusApproved {
		h.notifyGeneralAbsence(g, myInfo)
	}

	h.successResponse(w, r, "更新公告成功", newGeneralAbsenceView(myInfo, g))
}

func (h *Handler) setGeneralAbsenceArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	g := r.Context().Value(GeneralAbsenceCtx).(*domain.GeneralAbsence)

	if !permission.CanUpdateGeneralAbsence(myInfo, g) {
		h.forbidden(w, r)
		return
	}

	if archived {
		now := h.now()
		g.DeletedAt = &now
	} else {
		g.DeletedAt = nil
	}

	if err := h.repository.UpdateGeneralAbsence(g); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.editConflict(w, r)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if archived {
		h.successResponse(w, r, "归档公告成功", newGeneralAbsenceView(myInfo, g))
	} else {
		h.successResponse(w, r, "恢复公告成功", newGeneralAbsenceView(myInfo, g))
	}
}

func (h *Handler) ArchiveGeneralAbsence(w http.ResponseWriter, r *http.Request) {
	h.setGeneralAbsenceArchived(w, r, true)
}

func (h *Handler) RestoreGeneralAbsence(w http.ResponseWriter, r *http.Request) {
	h.setGeneralAbsenceArchived(w, r, false)
}

func (h *Handler) exportGeneralAbsences(w http.ResponseWriter, r *http.Request, archived bool) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	list, err := h.repository.GetGeneralAbsences(myInfo.CompanyID, archived)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	dir, err := h.directory(myInfo.CompanyID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	name := "general_absences"
	if archived {
		name = "archived_general_absences"
	}
	h.writeExport(w, r, name, export.GeneralAbsences(visibleGeneralAbsences(myInfo, list), dir))
}

func (h *Handler) ExportGeneralAbsences(w http.ResponseWriter, r *http.Request) {
	h.exportGeneralAbsences(w, r, false)
}

func (h *Handler) ExportArchivedGeneralAbsences(w http.ResponseWriter, r *http.Request) {
	h.exportGeneralAbsences(w, r, true)
}
