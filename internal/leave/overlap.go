package leave

import (
	"time"

	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

// Shrink 将区间两端各向内收缩一秒，使首尾相接的区间不算重叠
func Shrink(start, end time.Time) (time.Time, time.Time) {
	return start.Add(time.Second), end.Add(-time.Second)
}

func between(t, lo, hi time.Time) bool {
	return !t.Before(lo) && !t.After(hi)
}

// Overlaps 判断已有区间是否与新区间 [start, end] 冲突，SQL 中使用相同的三个条件
func Overlaps(existingStart, existingEnd, start, end time.Time) bool {
	s, e := Shrink(start, end)
	return between(existingEnd, s, e) ||
		between(existingStart, s, e) ||
		(!existingStart.After(s) && !existingEnd.Before(e))
}

// ConflictError 汇总所有冲突的请假，报告最早开始和最晚结束时间
func ConflictError(t *domain.AbsenceType, conflicts []*domain.Absence) error {
	if len(conflicts) == 0 {
		return nil
	}

	minStart, maxEnd := conflicts[0].Start, conflicts[0].End
	for _, c := range conflicts[1:] {
		if c.Start.Before(minStart) {
			minStart = c.Start
		}
		if c.End.After(maxEnd) {
			maxEnd = c.End
		}
	}

	var start, end string
	if t.Hourly() {
		start = minStart.Format(DateTimeLayout)
		end = maxEnd.Format(DateTimeLayout)
	} else {
		start = minStart.Format(DateLayout)
		end = maxEnd.Add(-time.Second).Format(DateLayout)
	}

	return domain.NewValidationError("start", "ABSENCE_HAS_ALREADY_BEEN_APPLIED_IN_GIVEN_DATES").
		With("start", start).
		With("end", end)
}
