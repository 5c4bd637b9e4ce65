package permission

import (
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

func sameCompany(user *domain.Employee, companyID uuid.UUID) bool {
	return user.CompanyID == companyID
}

// CanRetrieveAbsence target 为 submitted_for 对应的员工
func CanRetrieveAbsence(user *domain.Employee, a *domain.Absence, target *domain.Employee) bool {
	if user.ID == a.SubmittedForID {
		return true
	}
	if !sameCompany(user, a.CompanyID) {
		return false
	}
	if user.IsManagerAdminOrManager() {
		return true
	}
	if user.IsStaff() {
		return a.SubmittedTo(user.ID) || (target != nil && user.InDepartment(target.DepartmentID))
	}
	return false
}

func CanUpdateAbsenceStatus(user *domain.Employee, a *domain.Absence) bool {
	if !sameCompany(user, a.CompanyID) {
		return false
	}
	if user.IsManagerAdminOrManager() {
		return true
	}
	if !user.IsStaff() {
		return false
	}

	submittedBy := a.SubmittedByID == user.ID
	submittedFor := a.SubmittedForID == user.ID
	return (submittedBy && !submittedFor) || a.SubmittedTo(user.ID) || (submittedFor && !submittedBy)
}

func CanDeleteAbsence(user *domain.Employee, a *domain.Absence) bool {
	return user.IsManagerAdmin() && sameCompany(user, a.CompanyID)
}

// CanListAbsenceHistory 判断 user 能否查看 target 的请假记录
func CanListAbsenceHistory(user *domain.Employee, target *domain.Employee) bool {
	switch {
	case user.IsManagerAdminOrManager():
		return user.CompanyID == target.CompanyID
	case user.IsStaff():
		return user.CompanyID == target.CompanyID && user.InDepartment(target.DepartmentID)
	default:
		return user.ID == target.ID
	}
}

func CanViewAbsenceType(user *domain.Employee, t *domain.AbsenceType) bool {
	return sameCompany(user, t.CompanyID)
}

func CanManageAbsenceType(user *domain.Employee, t *domain.AbsenceType) bool {
	return sameCompany(user, t.CompanyID) && user.IsManagerAdminOrManager()
}
