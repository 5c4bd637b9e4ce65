package scheduler

import (
	"slices"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/leave"
)

// BuildCandidates 计算每个班次可以值班的员工：受过该班次类型培训，且该时段没有已批准的请假
func BuildCandidates(shifts []*domain.Shift, shiftTypes []*domain.ShiftType, approved []*domain.Absence) map[uuid.UUID][]uuid.UUID {
	trained := make(map[uuid.UUID][]uuid.UUID, len(shiftTypes))
	for _, st := range shiftTypes {
		trained[st.ID] = st.TrainedEmployeeIDs
	}

	candidates := make(map[uuid.UUID][]uuid.UUID, len(shifts))
	for _, shift := range shifts {
		ids := make([]uuid.UUID, 0, len(trained[shift.ShiftTypeID]))
		for _, employeeID := range trained[shift.ShiftTypeID] {
			absent := slices.ContainsFunc(approved, func(a *domain.Absence) bool {
				return a.SubmittedForID == employeeID && leave.Overlaps(a.Start, a.End, shift.Start, shift.End)
			})
			if !absent {
				ids = append(ids, employeeID)
			}
		}
		candidates[shift.ID] = ids
	}
	return candidates
}

func overlapping(a, b *Gene, shifts map[uuid.UUID]*domain.Shift) bool {
	sa, sb := shifts[a.shiftID], shifts[b.shiftID]
	return sa.Start.Before(sb.End) && sb.Start.Before(sa.End)
}
