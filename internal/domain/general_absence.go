package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type GeneralAbsence struct {
	ID            uuid.UUID     `json:"id"`
	CompanyID     uuid.UUID     `json:"companyID"`
	Subject       string        `json:"subject"`
	Body          string        `json:"body"`
	Status        AbsenceStatus `json:"status"`
	SubmittedByID uuid.UUID     `json:"submittedByID"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	DepartmentIDs []uuid.UUID   `json:"departmentIDs"`
	DeletedAt     *time.Time    `json:"deletedAt"`
	CreatedAt     time.Time     `json:"createdAt"`
	Version       int32         `json:"-"`
}

// DisplayEnd 存储的结束时间是次日零点，展示时需要往前推一天
func (g *GeneralAbsence) DisplayEnd() time.Time {
	return g.End.AddDate(0, 0, -1)
}

func (g *GeneralAbsence) Targets(departmentID *uuid.UUID) bool {
	return departmentID != nil && slices.Contains(g.DepartmentIDs, *departmentID)
}

func (g *GeneralAbsence) Untargeted() bool {
	return len(g.DepartmentIDs) == 0
}
