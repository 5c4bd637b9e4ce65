package lifecycle

import (
	"errors"
	"slices"
	"time"

	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

type Action string

const (
	ActionCollectPreferences    Action = "collect_preferences"
	ActionRequestSchedule       Action = "request_schedule"
	ActionStopCollecting        Action = "stop_collecting_preferences"
	ActionOptimizationCompleted Action = "optimization_completed"
	ActionPublish               Action = "publish"
	ActionDelete                Action = "delete"
)

var ErrTransitionNotAllowed = errors.New("SCHEDULE_STATUS_TRANSITION_NOT_ALLOWED")

type transition struct {
	from  []domain.ScheduleStatus
	to    domain.ScheduleStatus
	guard func(*domain.Schedule) bool
	// 不满足条件时静默忽略而不是报错
	noop bool
}

var transitions = map[Action]transition{
	ActionCollectPreferences: {
		from:  []domain.ScheduleStatus{domain.ScheduleStatusEnteringDetails},
		to:    domain.ScheduleStatusCollectingPreference,
		guard: func(s *domain.Schedule) bool { return s.CollectPreferences },
	},
	ActionRequestSchedule: {
		from:  []domain.ScheduleStatus{domain.ScheduleStatusEnteringDetails},
		to:    domain.ScheduleStatusProducingSchedule,
		guard: func(s *domain.Schedule) bool { return !s.CollectPreferences },
	},
	ActionStopCollecting: {
		from: []domain.ScheduleStatus{domain.ScheduleStatusCollectingPreference},
		to:   domain.ScheduleStatusProducingSchedule,
		noop: true,
	},
	ActionOptimizationCompleted: {
		from: []domain.ScheduleStatus{domain.ScheduleStatusCollectingPreference, domain.ScheduleStatusProducingSchedule},
		to:   domain.ScheduleStatusReviewingSchedule,
	},
	ActionPublish: {
		from: []domain.ScheduleStatus{domain.ScheduleStatusReviewingSchedule},
		to:   domain.ScheduleStatusPublished,
	},
}

var deletable = []domain.ScheduleStatus{
	domain.ScheduleStatusEnteringDetails,
	domain.ScheduleStatusCollectingPreference,
	domain.ScheduleStatusProducingSchedule,
	domain.ScheduleStatusReviewingSchedule,
}

// Can 报告 action 在当前状态下是否会真正改变状态
func Can(action Action, s *domain.Schedule) bool {
	if action == ActionDelete {
		return slices.Contains(deletable, s.Status)
	}
	t, ok := transitions[action]
	if !ok {
		return false
	}
	if !slices.Contains(t.from, s.Status) {
		return false
	}
	return t.guard == nil || t.guard(s)
}

// Next 返回执行 action 后的状态。changed 为 false 表示这是一个空操作，调用方不应写入时间戳
func Next(action Action, s *domain.Schedule) (next domain.ScheduleStatus, changed bool, err error) {
	if action == ActionDelete {
		return s.Status, false, ErrTransitionNotAllowed
	}
	t, ok := transitions[action]
	if !ok {
		return s.Status, false, ErrTransitionNotAllowed
	}
	if !Can(action, s) {
		if t.noop {
			return s.Status, false, nil
		}
		return s.Status, false, ErrTransitionNotAllowed
	}
	return t.to, true, nil
}

// Apply 修改 s 的状态并返回需要追加的时间戳，空操作时返回 nil
func Apply(action Action, s *domain.Schedule, now time.Time) (*domain.ScheduleTimestamp, error) {
	next, changed, err := Next(action, s)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}

	s.Status = next
	return &domain.ScheduleTimestamp{
		ScheduleID: s.ID,
		Status:     next,
		Timestamp:  now,
	}, nil
}

// InitialStatus 手动录入的排班直接进入审核阶段
func InitialStatus(s *domain.Schedule) domain.ScheduleStatus {
	if s.ManualInput {
		return domain.ScheduleStatusReviewingSchedule
	}
	return domain.ScheduleStatusEnteringDetails
}

// SortOrder 列表按状态排序时使用的权重
func SortOrder(status domain.ScheduleStatus) int {
	switch status {
	case domain.ScheduleStatusEnteringDetails:
		return 2
	case domain.ScheduleStatusCollectingPreference:
		return 1
	case domain.ScheduleStatusProducingSchedule:
		return 3
	case domain.ScheduleStatusReviewingSchedule:
		return 5
	case domain.ScheduleStatusPublished:
		return 4
	}
	return 0
}
