package domain

import "github.com/google/uuid"

const (
	VerbAbsenceSubmitted       = "ABSENCE_SUBMITTED"
	VerbAbsenceSubmittedForYou = "ABSENCE_SUBMITTED_FOR_YOU"
	VerbAbsenceUpdated         = "ABSENCE_UPDATED"
	VerbGeneralAbsenceCreated  = "GENERAL_ABSENCE_CREATED"
	VerbScheduleCollecting     = "SCHEDULE_COLLECTING_PREFERENCES"
	VerbSchedulePublished      = "SCHEDULE_PUBLISHED"
)

// Notification 由外部的推送服务消费
type Notification struct {
	Verb       string      `json:"verb"`
	ActorID    uuid.UUID   `json:"actorID"`
	Recipients []uuid.UUID `json:"recipients"`
	ObjectType string      `json:"objectType"`
	ObjectID   uuid.UUID   `json:"objectID"`
	Data       any         `json:"data,omitempty"`
}
