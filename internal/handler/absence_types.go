package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/export"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/permission"
)

type absenceTypeRequest struct {
	Name             string                 `json:"name" validate:"required,max=50"`
	Description      string                 `json:"description" validate:"max=500"`
	Entitlement      uint16                 `json:"entitlement"`
	Period           domain.AbsencePeriod   `json:"period" validate:"omitempty,oneof=week month year"`
	SubmitBeforeDays int32                  `json:"submitBeforeDays" validate:"gte=0"`
	Paid             bool                   `json:"paid"`
	Duration         domain.AbsenceDuration `json:"duration" validate:"omitempty,oneof=FULL_DAY HOURLY QUITTING SHIFT"`
}

func (req *absenceTypeRequest) apply(t *domain.AbsenceType) {
	t.Name = req.Name
	t.Description = req.Description
	t.Entitlement = req.Entitlement
	t.Period = req.Period
	t.SubmitBeforeDays = req.SubmitBeforeDays
	t.Paid = req.Paid
	t.Duration = req.Duration

	if t.Period == "" {
		t.Period = domain.AbsencePeriodYear
	}
	if t.Duration == "" {
		t.Duration = domain.AbsenceDurationFullDay
	}
}

// checkAbsenceTypeName 名称在公司内不区分大小写唯一，已归档的类型同样占用名称
func (h *Handler) checkAbsenceTypeName(companyID uuid.UUID, name string, excludeID uuid.UUID) error {
	existing, err := h.repository.FindAbsenceTypeByName(companyID, name, excludeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	if existing.Archived() {
		return domain.NewValidationError("name", "ABSENCE_TYPE_WITH_THE_GIVEN_NAME_HAS_BEEN_ARCHIVED_RESTORE_IT_OR_TRY_WITH_ANOTHER_NAME")
	}
	return domain.NewValidationError("name", "ABSENCE_TYPE_ALREADY_EXISTS")
}

func (h *Handler) GetAbsenceTypes(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	types, err := h.repository.GetAbsenceTypes(myInfo.CompanyID, false)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取请假类型成功", types)
}

func (h *Handler) GetArchivedAbsenceTypes(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	types, err := h.repository.GetAbsenceTypes(myInfo.CompanyID, true)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取已归档的请假类型成功", types)
}

func (h *Handler) CreateAbsenceType(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	var req absenceTypeRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	t := &domain.AbsenceType{CompanyID: myInfo.CompanyID}
	req.apply(t)

	if err := h.checkAbsenceTypeName(t.CompanyID, t.Name, uuid.Nil); err != nil {
		h.handleError(w, r, err, "ABSENCE_TYPE_NOT_FOUND")
		return
	}

	if err := h.repository.CreateAbsenceType(t); err != nil {
		h.handleError(w, r, err, "ABSENCE_TYPE_NOT_FOUND")
		return
	}

	h.createdResponse(w, r, "创建请假类型成功", t)
}

func (h *Handler) GetAbsenceType(w http.ResponseWriter, r *http.Request) {
	t := r.Context().Value(AbsenceTypeCtx).(*domain.AbsenceType)
	h.successResponse(w, r, "获取请假类型成功", t)
}

func (h *Handler) UpdateAbsenceType(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	t := r.Context().Value(AbsenceTypeCtx).(*domain.AbsenceType)

	if !permission.CanManageAbsenceType(myInfo, t) {
		h.forbidden(w, r)
		return
	}

	var req absenceTypeRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.checkAbsenceTypeName(t.CompanyID, req.Name, t.ID); err != nil {
		h.handleError(w, r, err, "ABSENCE_TYPE_NOT_FOUND")
		return
	}

	req.apply(t)
	if err := h.repository.UpdateAbsenceType(t); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.editConflict(w, r)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新请假类型成功", t)
}

func (h *Handler) setAbsenceTypeArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	t := r.Context().Value(AbsenceTypeCtx).(*domain.AbsenceType)

	if !permission.CanManageAbsenceType(myInfo, t) {
		h.forbidden(w, r)
		return
	}

	if archived {
		now := h.now()
		t.DeletedAt = &now
	} else {
		// 恢复时同名的类型可能已经被重新创建
		if err := h.checkAbsenceTypeName(t.CompanyID, t.Name, t.ID); err != nil {
			h.handleError(w, r, err, "ABSENCE_TYPE_NOT_FOUND")
			return
		}
		t.DeletedAt = nil
	}

	if err := h.repository.UpdateAbsenceType(t); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.editConflict(w, r)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if archived {
		h.successResponse(w, r, "归档请假类型成功", t)
	} else {
		h.successResponse(w, r, "恢复请假类型成功", t)
	}
}

func (h *Handler) ArchiveAbsenceType(w http.ResponseWriter, r *http.Request) {
	h.setAbsenceTypeArchived(w, r, true)
}

func (h *Handler) RestoreAbsenceType(w http.ResponseWriter, r *http.Request) {
	h.setAbsenceTypeArchived(w, r, false)
}

func (h *Handler) exportAbsenceTypes(w http.ResponseWriter, r *http.Request, archived bool) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	types, err := h.repository.GetAbsenceTypes(myInfo.CompanyID, archived)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	name := "absence_types"
	if archived {
		name = "archived_absence_types"
	}
	h.writeExport(w, r, name, export.AbsenceTypes(types))
}

func (h *Handler) ExportAbsenceTypes(w http.ResponseWriter, r *http.Request) {
	h.exportAbsenceTypes(w, r, false)
}

func (h *Handler) ExportArchivedAbsenceTypes(w http.ResponseWriter, r *http.Request) {
	h.exportAbsenceTypes(w, r, true)
}
