package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// GetEmployees 返回公司中在职的员工，提交请假时用来选择审批人
func (h *Handler) GetEmployees(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	department, err := queryUUID(r, "department")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	all, err := h.repository.GetEmployeesByCompany(myInfo.CompanyID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	employees := make([]*domain.Employee, 0, len(all))
	for _, e := range all {
		if e.Resigned {
			continue
		}
		if department != nil && !e.InDepartment(department) {
			continue
		}
		employees = append(employees, e)
	}

	h.successResponse(w, r, "获取员工列表成功", employees)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)

	var req struct {
		Username     string      `json:"username" validate:"required,max=150"`
		FirstName    string      `json:"firstName" validate:"required,max=150"`
		LastName     string      `json:"lastName" validate:"max=150"`
		Email        string      `json:"email" validate:"required,email"`
		Role         domain.Role `json:"role" validate:"required,oneof=manager_admin manager staff employee"`
		DepartmentID *uuid.UUID  `json:"departmentID"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 只有管理员可以创建管理员
	if req.Role == domain.RoleManagerAdmin && !myInfo.IsManagerAdmin() {
		h.forbidden(w, r)
		return
	}

	if req.DepartmentID != nil {
		if _, err := h.checkDepartment(myInfo, *req.DepartmentID); err != nil {
			h.handleError(w, r, err, "DEPARTMENT_NOT_FOUND")
			return
		}
	}

	password := utils.GenerateRandomPassword(h.config.NewEmployee.PasswordLength)
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	e := &domain.Employee{
		CompanyID:    myInfo.CompanyID,
		DepartmentID: req.DepartmentID,
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Role:         req.Role,
	}
	if err := h.repository.CreateEmployee(e); err != nil {
		h.handleError(w, r, err, "EMPLOYEE_NOT_FOUND")
		return
	}

	if err := h.notifier.EmployeeCreated(e, password); err != nil {
		slog.Error("发送账户邮件失败", "employee", e.ID, "error", err)
	}

	h.createdResponse(w, r, "创建员工成功", e)
}
