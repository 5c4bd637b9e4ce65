package domain

import (
	"time"

	"github.com/google/uuid"
)

type AbsenceStatus string

const (
	AbsenceStatusPending  AbsenceStatus = "PENDING"
	AbsenceStatusApproved AbsenceStatus = "APPROVED"
	AbsenceStatusRejected AbsenceStatus = "REJECTED"
	AbsenceStatusInReview AbsenceStatus = "IN_REVIEW"
)

func (s AbsenceStatus) Valid() bool {
	switch s {
	case AbsenceStatusPending, AbsenceStatusApproved, AbsenceStatusRejected, AbsenceStatusInReview:
		return true
	}
	return false
}

type Absence struct {
	ID             uuid.UUID     `json:"id"`
	CompanyID      uuid.UUID     `json:"companyID"`
	AbsenceTypeID  uuid.UUID     `json:"absenceTypeID"`
	Subject        string        `json:"subject"`
	SubmittedForID uuid.UUID     `json:"submittedForID"`
	SubmittedByID  uuid.UUID     `json:"submittedByID"`
	SubmittedToID  *uuid.UUID    `json:"submittedToID"`
	Status         AbsenceStatus `json:"status"`
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	CreatedAt      time.Time     `json:"createdAt"`
	Version        int32         `json:"-"`

	// 以下字段只在查询时联表填充
	AbsenceType *AbsenceType      `json:"absenceType,omitempty"`
	Comments    []*AbsenceComment `json:"comments,omitempty"`
}

// CreatedForPast 表示申请提交时假期已经开始
func (a *Absence) CreatedForPast() bool {
	return a.CreatedAt.After(a.Start)
}

func (a *Absence) SubmittedTo(id uuid.UUID) bool {
	return a.SubmittedToID != nil && *a.SubmittedToID == id
}

// CanBeNotified 审批人与申请对象相同时不需要通知
func (a *Absence) CanBeNotified() bool {
	return a.SubmittedToID != nil && *a.SubmittedToID != a.SubmittedForID
}

type AbsenceComment struct {
	ID            uuid.UUID     `json:"id"`
	AbsenceID     uuid.UUID     `json:"absenceID"`
	Comment       string        `json:"comment"`
	Status        AbsenceStatus `json:"status"`
	CommentedByID uuid.UUID     `json:"commentedByID"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type EventType string

const (
	EventTypeAbsence        EventType = "ABSENCE"
	EventTypeGeneralAbsence EventType = "GENERAL_ABSENCE"
	EventTypeShift          EventType = "SHIFT"
)

// Event 是日历视图中的一项
type Event struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Color  string    `json:"backgroundColor,omitempty"`
	Type   EventType `json:"type"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"allDay"`
}
