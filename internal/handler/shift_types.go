package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

// GetShiftTypes 只返回可供新排班选择的原始班次类型
func (h *Handler) GetShiftTypes(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	all, err := h.repository.GetShiftTypesByCompany(myInfo.CompanyID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	department, err := queryUUID(r, "department")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	shiftTypes := make([]*domain.ShiftType, 0, len(all))
	for _, st := range all {
		if st.ScheduleID != nil {
			continue
		}
		if department != nil && st.DepartmentID != *department {
			continue
		}
		shiftTypes = append(shiftTypes, st)
	}

	h.successResponse(w, r, "获取班次类型成功", shiftTypes)
}

func (h *Handler) CreateShiftType(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	var req struct {
		DepartmentID       uuid.UUID   `json:"departmentID" validate:"required"`
		Name               string      `json:"name" validate:"required,max=50"`
		StartTime          string      `json:"startTime" validate:"required"`
		EndTime            string      `json:"endTime" validate:"required"`
		RequiredEmployees  int32       `json:"requiredEmployees" validate:"min=1"`
		TrainedEmployeeIDs []uuid.UUID `json:"trainedEmployeeIDs"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	for field, value := range map[string]string{"startTime": req.StartTime, "endTime": req.EndTime} {
		if _, err := time.Parse(time.TimeOnly, value); err != nil {
			h.badRequest(w, r, domain.NewValidationError(field, "INVALID_TIME"))
			return
		}
	}

	if _, err := h.checkDepartment(myInfo, req.DepartmentID); err != nil {
		h.handleError(w, r, err, "DEPARTMENT_NOT_FOUND")
		return
	}

	for _, id := range req.TrainedEmployeeIDs {
		if _, err := h.companyEmployee(myInfo.CompanyID, &id, "trainedEmployeeIDs"); err != nil {
			h.handleError(w, r, err, "EMPLOYEE_NOT_FOUND")
			return
		}
	}

	st := &domain.ShiftType{
		CompanyID:          myInfo.CompanyID,
		DepartmentID:       req.DepartmentID,
		Name:               req.Name,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		RequiredEmployees:  req.RequiredEmployees,
		TrainedEmployeeIDs: req.TrainedEmployeeIDs,
	}
	if err := h.repository.CreateShiftType(st); err != nil {
		h.handleError(w, r, err, "SHIFT_TYPE_NOT_FOUND")
		return
	}

	h.createdResponse(w, r, "创建班次类型成功", st)
}
