package leave

import (
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

// AbsenceFinder 由仓储层实现
type AbsenceFinder interface {
	ApprovedFinder
	// FindOverlapping 查询 employeeID 在公司内与 [start, end] 冲突的所有请假
	FindOverlapping(companyID, employeeID uuid.UUID, start, end time.Time) ([]*domain.Absence, error)
}

// ShiftChecker 检查员工在给定时间段内是否已被分配班次
type ShiftChecker interface {
	EmployeeHasShiftBetween(employeeID uuid.UUID, start, end time.Time) (bool, error)
}

type Submission struct {
	Type               *domain.AbsenceType
	Subject            string
	Start              time.Time
	End                time.Time
	User               *domain.Employee // 发起请求的用户
	SubmittedFor       *domain.Employee
	SubmittedTo        *domain.Employee
	IgnoreShiftOverlap bool
}

type Checker struct {
	Absences AbsenceFinder
	Shifts   ShiftChecker
	Now      func() time.Time
}

func NewChecker(absences AbsenceFinder, shifts ShiftChecker) *Checker {
	return &Checker{Absences: absences, Shifts: shifts, Now: time.Now}
}

func (c *Checker) checkShifts(employeeID uuid.UUID, start, end time.Time) error {
	hasShift, err := c.Shifts.EmployeeHasShiftBetween(employeeID, start, end)
	if err != nil {
		return err
	}
	if hasShift {
		return domain.NewValidationError("start", "EMPLOYEE_HAS_SHIFT_IN_GIVEN_DATES")
	}
	return nil
}

// Prepare 依次执行创建请假前的所有校验，返回待保存的请假
func (c *Checker) Prepare(sub *Submission) (*domain.Absence, error) {
	if err := ValidateDates(sub.Start, sub.End); err != nil {
		return nil, err
	}
	start, end := NormalizeRange(sub.Type, sub.Start, sub.End)

	submittedFor, submittedTo := sub.SubmittedFor, sub.SubmittedTo
	if submittedFor == nil {
		submittedFor = sub.User
	}
	if submittedTo == nil && sub.SubmittedFor != nil {
		submittedTo = sub.User
	}
	if sub.User.ID != submittedFor.ID && (submittedTo == nil || sub.User.ID != submittedTo.ID) {
		return nil, domain.NewValidationError("submittedFor", "ABSENCE_RELATIONS_ARE_INCONSISTENT")
	}

	if submittedTo != nil && sub.User.IsEmployee() && submittedTo.IsEmployee() && submittedTo.ID != sub.User.ID {
		return nil, domain.NewValidationError("submittedTo", "EMPLOYEE_TO_SUBMIT_ABSENCE_NOT_FOUND")
	}

	if err := ValidateSubmitBefore(sub.Type, c.Now(), start); err != nil {
		return nil, err
	}

	conflicts, err := c.Absences.FindOverlapping(submittedFor.CompanyID, submittedFor.ID, start, end)
	if err != nil {
		return nil, err
	}
	if err := ConflictError(sub.Type, conflicts); err != nil {
		return nil, err
	}

	if !sub.IgnoreShiftOverlap {
		if err := c.checkShifts(submittedFor.ID, start, end); err != nil {
			return nil, err
		}
	}

	absence := &domain.Absence{
		CompanyID:      submittedFor.CompanyID,
		AbsenceTypeID:  sub.Type.ID,
		Subject:        sub.Subject,
		SubmittedForID: submittedFor.ID,
		SubmittedByID:  sub.User.ID,
		Status:         domain.AbsenceStatusPending,
		Start:          start,
		End:            end,
		AbsenceType:    sub.Type,
	}
	if submittedTo != nil {
		absence.SubmittedToID = &submittedTo.ID
		// 非普通员工给自己审批时直接通过
		if !sub.User.IsEmployee() && submittedTo.ID == sub.User.ID {
			absence.Status = domain.AbsenceStatusApproved
		}
	}

	return absence, nil
}

// CheckStatusChange 在把请假改为 status 之前执行班次冲突和额度检查
func (c *Checker) CheckStatusChange(absence *domain.Absence, t *domain.AbsenceType, status domain.AbsenceStatus, ignoreShiftOverlap bool) error {
	if status != domain.AbsenceStatusApproved {
		return nil
	}

	if !ignoreShiftOverlap {
		if err := c.checkShifts(absence.SubmittedForID, absence.Start, absence.End); err != nil {
			return err
		}
	}

	overflow, err := CheckOverflow(c.Absences, absence, t)
	if err != nil {
		return err
	}
	if overflow != nil {
		return overflow.ValidationError()
	}
	return nil
}
