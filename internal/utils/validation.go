package utils

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

const MaxScheduleDays = 370

func ValidateSchedule(s *domain.Schedule, now time.Time) error {
	if s.CollectPreferences && s.Start.Before(now) {
		return domain.NewValidationError("start", "START_DATE_MUST_BE_FUTURE_DATE")
	}

	if s.End.Before(s.Start) {
		return domain.NewValidationError("end", "END_DATE_MUST_BE_AFTER_START_DATE")
	}

	if int(s.End.Sub(s.Start).Hours()/24) > MaxScheduleDays {
		return domain.NewValidationError("end", "ONLY_370_DAYS_SCHEDULE_IS_ALLOWED")
	}

	if s.CollectPreferences && s.PreferencesDeadline == nil {
		return domain.NewValidationError("preferencesDeadline", "PREFERENCES_DEADLINE_REQUIRED")
	}

	return nil
}

func ValidateGeneralAbsence(g *domain.GeneralAbsence) error {
	if g.Start.After(g.End) {
		return domain.NewValidationError("end", "END_DATE_CAN_NOT_BE_A_DATE_BEFORE_START_DATE")
	}
	if !g.Status.Valid() {
		return domain.NewValidationError("status", "INVALID_STATUS")
	}
	return nil
}

// ValidateAllocations 检查分配结果中的班次都属于该排班，且同一班次没有重复的员工
func ValidateAllocations(shifts []*domain.Shift, allocations map[uuid.UUID][]uuid.UUID) error {
	for shiftID, employeeIDs := range allocations {
		idx := slices.IndexFunc(shifts, func(s *domain.Shift) bool { return s.ID == shiftID })
		if idx < 0 {
			return fmt.Errorf("班次 %s 不属于该排班", shiftID)
		}

		seen := make(map[uuid.UUID]struct{}, len(employeeIDs))
		for _, id := range employeeIDs {
			if _, exists := seen[id]; exists {
				return fmt.Errorf("员工 %s 在班次 %s 中重复出现", id, shiftID)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}
