package domain

import (
	"time"

	"github.com/google/uuid"
)

type ScheduleFeedback struct {
	ID               uuid.UUID `json:"id"`
	EmployeeID       uuid.UUID `json:"employeeID"`
	ScheduleID       uuid.UUID `json:"scheduleID"`
	Comment          string    `json:"comment"`
	Rating           int16     `json:"rating"`
	ShareWithManager bool      `json:"shareWithManager"`
	CreatedAt        time.Time `json:"createdAt"`
}

type FeedbackStats struct {
	Percentages map[int16]int `json:"percentages"` // 评分 -> 百分比（向下取整）
	Average     float64       `json:"average"`
	Total       int           `json:"total"`
}
