package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TaskCreateShifts       = "schedule.create_shifts"
	TaskCollectPreferences = "schedule.collect_preferences"
	TaskOptimizeSchedule   = "schedule.optimize"
	TaskPublishSchedule    = "schedule.publish"
)

type TaskStatus string

const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusStarted TaskStatus = "STARTED"
	TaskStatusSuccess TaskStatus = "SUCCESS"
	TaskStatusFailure TaskStatus = "FAILURE"
)

type Task struct {
	ID      uuid.UUID       `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

type TaskState struct {
	ID     uuid.UUID  `json:"id"`
	Name   string     `json:"name"`
	Status TaskStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

type ScheduleTaskPayload struct {
	ScheduleID uuid.UUID `json:"scheduleID"`
}

type ShiftRequest struct {
	ShiftTypeID       uuid.UUID `json:"shiftTypeID" validate:"required"`
	Start             time.Time `json:"start" validate:"required"`
	End               time.Time `json:"end" validate:"required,gtfield=Start"`
	RequiredEmployees int32     `json:"requiredEmployees" validate:"min=1"`
}

type CreateShiftsPayload struct {
	ScheduleID uuid.UUID      `json:"scheduleID"`
	Shifts     []ShiftRequest `json:"shifts"`
}

// OptimizationRequest 发送给外部优化服务
type OptimizationRequest struct {
	Action     string    `json:"action"`
	ScheduleID uuid.UUID `json:"scheduleID"`
}
