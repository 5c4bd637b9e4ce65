package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
	h.successResponse(w, r, "获取个人信息成功", myInfo)
}

// UpdateMyActiveDepartment 管理者切换当前查看的部门，传空值表示查看整个公司
func (h *Handler) UpdateMyActiveDepartment(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	if !myInfo.IsManagerAdminOrManager() {
		h.forbidden(w, r)
		return
	}

	var req struct {
		DepartmentID *uuid.UUID `json:"departmentID"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.DepartmentID != nil {
		department, err := h.repository.GetDepartmentByID(*req.DepartmentID)
		if err != nil {
			h.handleError(w, r, err, "DEPARTMENT_NOT_FOUND")
			return
		}
		if department.CompanyID != myInfo.CompanyID {
			h.notFound(w, r, "DEPARTMENT_NOT_FOUND")
			return
		}
	}

	myInfo.ActiveDepartmentID = req.DepartmentID
	if err := h.repository.UpdateActiveDepartment(myInfo); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.editConflict(w, r)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "切换部门成功", myInfo)
}
