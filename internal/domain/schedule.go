package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ScheduleStatus int16

const (
	ScheduleStatusEnteringDetails      ScheduleStatus = 1
	ScheduleStatusCollectingPreference ScheduleStatus = 2
	ScheduleStatusProducingSchedule    ScheduleStatus = 3
	ScheduleStatusReviewingSchedule    ScheduleStatus = 4
	ScheduleStatusPublished            ScheduleStatus = 5
)

var scheduleStatusNames = map[ScheduleStatus]string{
	ScheduleStatusEnteringDetails:      "ENTERING_DETAILS",
	ScheduleStatusCollectingPreference: "COLLECTING_PREFERENCE",
	ScheduleStatusProducingSchedule:    "PRODUCING_SCHEDULE",
	ScheduleStatusReviewingSchedule:    "REVIEWING_SCHEDULE",
	ScheduleStatusPublished:            "PUBLISHED",
}

func (s ScheduleStatus) String() string {
	if name, ok := scheduleStatusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

func (s ScheduleStatus) Valid() bool {
	_, ok := scheduleStatusNames[s]
	return ok
}

type Schedule struct {
	ID                  uuid.UUID       `json:"id"`
	CompanyID           uuid.UUID       `json:"companyID"`
	DepartmentID        uuid.UUID       `json:"departmentID"`
	DepartmentName      string          `json:"departmentName"`
	Start               time.Time       `json:"start"`
	End                 time.Time       `json:"end"`
	ShiftTypeIDs        []uuid.UUID     `json:"shiftTypeIDs"`
	PreferencesDeadline *time.Time      `json:"preferencesDeadline"`
	Status              ScheduleStatus  `json:"status"`
	ManualInput         bool            `json:"manualInput"`
	CollectPreferences  bool            `json:"collectPreferences"`
	Comment             string          `json:"comment"`
	GenericData         json.RawMessage `json:"genericData"`
	CreatedAt           time.Time       `json:"createdAt"`
	Version             int32           `json:"-"`
}

type ScheduleTimestamp struct {
	ID         uuid.UUID      `json:"id"`
	ScheduleID uuid.UUID      `json:"scheduleID"`
	Status     ScheduleStatus `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
}

type ShiftType struct {
	ID                 uuid.UUID   `json:"id"`
	CompanyID          uuid.UUID   `json:"companyID"`
	DepartmentID       uuid.UUID   `json:"departmentID"`
	ParentShiftTypeID  *uuid.UUID  `json:"parentShiftTypeID"` // 排班快照指向原始班次类型
	ScheduleID         *uuid.UUID  `json:"scheduleID"`
	Name               string      `json:"name"`
	StartTime          string      `json:"startTime"` // 15:04:05
	EndTime            string      `json:"endTime"`
	RequiredEmployees  int32       `json:"requiredEmployees"`
	TrainedEmployeeIDs []uuid.UUID `json:"trainedEmployeeIDs"`
}

type Shift struct {
	ID                uuid.UUID   `json:"id"`
	ScheduleID        uuid.UUID   `json:"scheduleID"`
	ShiftTypeID       uuid.UUID   `json:"shiftTypeID"`
	Start             time.Time   `json:"start"`
	End               time.Time   `json:"end"`
	RequiredEmployees int32       `json:"requiredEmployees"`
	EmployeeIDs       []uuid.UUID `json:"employeeIDs"`
}

func (s *Shift) Hours() float64 {
	return s.End.Sub(s.Start).Hours()
}
