package permission

import "github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"

func generalAbsenceCompanyCheck(user *domain.Employee, g *domain.GeneralAbsence) bool {
	return sameCompany(user, g.CompanyID)
}

// 未指定部门的公告对整个公司可见
func generalAbsenceDepartmentCheck(user *domain.Employee, g *domain.GeneralAbsence) bool {
	return g.Untargeted() || g.Targets(user.DepartmentID)
}

func onlyForUserDepartment(user *domain.Employee, g *domain.GeneralAbsence) bool {
	return len(g.DepartmentIDs) == 1 && g.Targets(user.DepartmentID)
}

func GeneralAbsenceForManager(user *domain.Employee, g *domain.GeneralAbsence) bool {
	return user.IsManagerAdminOrManager() && generalAbsenceCompanyCheck(user, g)
}

func GeneralAbsenceForStaff(user *domain.Employee, g *domain.GeneralAbsence) bool {
	return user.IsStaff() && generalAbsenceCompanyCheck(user, g) && generalAbsenceDepartmentCheck(user, g)
}

func GeneralAbsenceForEmployee(user *domain.Employee, g *domain.GeneralAbsence) bool {
	return user.IsEmployee() &&
		generalAbsenceCompanyCheck(user, g) &&
		generalAbsenceDepartmentCheck(user, g) &&
		g.Status == domain.AbsenceStatusApproved
}

func CanRetrieveGeneralAbsence(user *domain.Employee, g *domain.GeneralAbsence) bool {
	return GeneralAbsenceForManager(user, g) ||
		GeneralAbsenceForStaff(user, g) ||
		GeneralAbsenceForEmployee(user, g)
}

// CanUpdateGeneralAbsence 同样适用于删除和恢复
func CanUpdateGeneralAbsence(user *domain.Employee, g *domain.GeneralAbsence) bool {
	if GeneralAbsenceForManager(user, g) {
		return true
	}
	return user.IsStaff() && generalAbsenceCompanyCheck(user, g) && onlyForUserDepartment(user, g)
}
