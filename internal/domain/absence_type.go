package domain

import (
	"time"

	"github.com/google/uuid"
)

type AbsencePeriod string

const (
	AbsencePeriodWeek  AbsencePeriod = "week"
	AbsencePeriodMonth AbsencePeriod = "month"
	AbsencePeriodYear  AbsencePeriod = "year"
)

type AbsenceDuration string

const (
	AbsenceDurationFullDay  AbsenceDuration = "FULL_DAY"
	AbsenceDurationHourly   AbsenceDuration = "HOURLY"
	AbsenceDurationQuitting AbsenceDuration = "QUITTING"
	AbsenceDurationShift    AbsenceDuration = "SHIFT"
)

type AbsenceType struct {
	ID               uuid.UUID       `json:"id"`
	CompanyID        uuid.UUID       `json:"companyID"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Entitlement      uint16          `json:"entitlement"`
	Period           AbsencePeriod   `json:"period"`
	SubmitBeforeDays int32           `json:"submitBeforeDays"`
	Paid             bool            `json:"paid"`
	Duration         AbsenceDuration `json:"duration"`
	DeletedAt        *time.Time      `json:"deletedAt"`
	CreatedAt        time.Time       `json:"createdAt"`
	Version          int32           `json:"-"`
}

func (t *AbsenceType) Hourly() bool {
	return t.Duration == AbsenceDurationHourly
}

func (t *AbsenceType) Archived() bool {
	return t.DeletedAt != nil
}
