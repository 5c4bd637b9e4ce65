package permission

import "github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"

func ScheduleForManager(user *domain.Employee, s *domain.Schedule) bool {
	return user.IsManagerAdminOrManager() && sameCompany(user, s.CompanyID)
}

func ScheduleForStaff(user *domain.Employee, s *domain.Schedule) bool {
	return user.IsStaff() && sameCompany(user, s.CompanyID) && user.InDepartment(&s.DepartmentID)
}

// allocated 表示 user 在该排班中被分配了班次
func ScheduleForStaffOrAllocated(user *domain.Employee, s *domain.Schedule, allocated bool) bool {
	if !user.IsStaff() || !sameCompany(user, s.CompanyID) {
		return false
	}
	return user.InDepartment(&s.DepartmentID) || (allocated && s.Status == domain.ScheduleStatusPublished)
}

func ScheduleForEmployee(user *domain.Employee, s *domain.Schedule, allocated bool) bool {
	return user.IsEmployee() &&
		sameCompany(user, s.CompanyID) &&
		(user.InDepartment(&s.DepartmentID) || allocated) &&
		s.Status == domain.ScheduleStatusPublished &&
		!s.End.Before(user.CreatedAt)
}

func CanRetrieveSchedule(user *domain.Employee, s *domain.Schedule, allocated bool) bool {
	return ScheduleForEmployee(user, s, allocated) ||
		ScheduleForStaffOrAllocated(user, s, allocated) ||
		ScheduleForManager(user, s)
}

// CanUpdateSchedule 同时控制状态流转、删除、查看反馈和历史
func CanUpdateSchedule(user *domain.Employee, s *domain.Schedule) bool {
	return ScheduleForStaff(user, s) || ScheduleForManager(user, s)
}

func CanGiveScheduleFeedback(user *domain.Employee, s *domain.Schedule, allocated bool) bool {
	return s.Status == domain.ScheduleStatusPublished && CanRetrieveSchedule(user, s, allocated)
}
