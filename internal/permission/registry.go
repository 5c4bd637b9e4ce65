package permission

import (
	"slices"

	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

type Permission string

const (
	PermAbsenceRead           Permission = "absence.read"
	PermAbsenceWrite          Permission = "absence.write"
	PermAbsenceApprove        Permission = "absence.approve"
	PermAbsenceDelete         Permission = "absence.delete"
	PermAbsenceExport         Permission = "absence.export"
	PermAbsenceTypeRead       Permission = "absence_type.read"
	PermAbsenceTypeWrite      Permission = "absence_type.write"
	PermGeneralAbsenceRead    Permission = "general_absence.read"
	PermGeneralAbsenceWrite   Permission = "general_absence.write"
	PermScheduleRead          Permission = "schedule.read"
	PermScheduleWrite         Permission = "schedule.write"
	PermScheduleFeedbackRead  Permission = "schedule_feedback.read"
	PermScheduleFeedbackWrite Permission = "schedule_feedback.write"
	PermEmployeeWrite         Permission = "employee.write"
)

var employeePermissions = []Permission{
	PermAbsenceRead,
	PermAbsenceWrite,
	PermAbsenceTypeRead,
	PermGeneralAbsenceRead,
	PermScheduleRead,
	PermScheduleFeedbackWrite,
}

var staffPermissions = append(slices.Clone(employeePermissions),
	PermAbsenceApprove,
	PermAbsenceExport,
	PermGeneralAbsenceWrite,
	PermScheduleWrite,
	PermScheduleFeedbackRead,
)

var managerPermissions = append(slices.Clone(staffPermissions),
	PermAbsenceTypeWrite,
	PermEmployeeWrite,
)

var RolePermissions = map[domain.Role][]Permission{
	domain.RoleEmployee:     employeePermissions,
	domain.RoleStaff:        staffPermissions,
	domain.RoleManager:      managerPermissions,
	domain.RoleManagerAdmin: append(slices.Clone(managerPermissions), PermAbsenceDelete),
}

func Has(role domain.Role, perm Permission) bool {
	return slices.Contains(RolePermissions[role], perm)
}
