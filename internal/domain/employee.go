package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleManagerAdmin Role = "manager_admin"
	RoleManager      Role = "manager"
	RoleStaff        Role = "staff"
	RoleEmployee     Role = "employee"
)

func (r Role) Valid() bool {
	switch r {
	case RoleManagerAdmin, RoleManager, RoleStaff, RoleEmployee:
		return true
	}
	return false
}

type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Department struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"companyID"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Employee struct {
	ID                 uuid.UUID  `json:"id"`
	CompanyID          uuid.UUID  `json:"companyID"`
	DepartmentID       *uuid.UUID `json:"departmentID"`
	ActiveDepartmentID *uuid.UUID `json:"activeDepartmentID"` // 管理者当前切换到的部门
	Username           string     `json:"username"`
	PasswordHash       string     `json:"-"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Email              string     `json:"email"`
	Role               Role       `json:"role"`
	IsActive           bool       `json:"isActive"`
	Resigned           bool       `json:"resigned"`
	CreatedAt          time.Time  `json:"createdAt"`
	Version            int32      `json:"-"`
}

func (e *Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

func (e *Employee) IsEmployee() bool {
	return e.Role == RoleEmployee
}

func (e *Employee) IsStaff() bool {
	return e.Role == RoleStaff
}

func (e *Employee) IsManagerAdmin() bool {
	return e.Role == RoleManagerAdmin
}

func (e *Employee) IsManagerAdminOrManager() bool {
	return e.Role == RoleManagerAdmin || e.Role == RoleManager
}

func (e *Employee) InDepartment(id *uuid.UUID) bool {
	return e.DepartmentID != nil && id != nil && *e.DepartmentID == *id
}
