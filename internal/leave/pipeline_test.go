package leave

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

type memoryStore struct {
	memoryFinder
	shifts map[uuid.UUID][][2]time.Time
}

func (s *memoryStore) FindOverlapping(companyID, employeeID uuid.UUID, start, end time.Time) ([]*domain.Absence, error) {
	res := []*domain.Absence{}
	for _, a := range s.absences {
		if a.SubmittedForID == employeeID && Overlaps(a.Start, a.End, start, end) {
			res = append(res, a)
		}
	}
	return res, nil
}

func (s *memoryStore) EmployeeHasShiftBetween(employeeID uuid.UUID, start, end time.Time) (bool, error) {
	for _, r := range s.shifts[employeeID] {
		if r[0].Before(end) && start.Before(r[1]) {
			return true, nil
		}
	}
	return false, nil
}

func newChecker(store *memoryStore) *Checker {
	c := NewChecker(store, store)
	c.Now = func() time.Time { return day(2024, 5, 1) }
	return c
}

func person(role domain.Role, company uuid.UUID) *domain.Employee {
	return &domain.Employee{ID: uuid.New(), CompanyID: company, Role: role}
}

func errKey(t *testing.T, err error) string {
	t.Helper()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Key
}

func TestPrepare(t *testing.T) {
	company := uuid.New()
	fullDay := &domain.AbsenceType{ID: uuid.New(), Duration: domain.AbsenceDurationFullDay, Period: domain.AbsencePeriodYear}
	employee := person(domain.RoleEmployee, company)
	colleague := person(domain.RoleEmployee, company)
	staff := person(domain.RoleStaff, company)
	manager := person(domain.RoleManager, company)

	t.Run("self submission to staff is pending and normalized", func(t *testing.T) {
		c := newChecker(&memoryStore{})
		a, err := c.Prepare(&Submission{
			Type: fullDay, User: employee, SubmittedTo: staff,
			Start: day(2024, 5, 10).Add(9 * time.Hour), End: day(2024, 5, 11).Add(15 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, employee.ID, a.SubmittedForID)
		assert.Equal(t, employee.ID, a.SubmittedByID)
		assert.True(t, a.SubmittedTo(staff.ID))
		assert.Equal(t, domain.AbsenceStatusPending, a.Status)
		assert.Equal(t, day(2024, 5, 10), a.Start)
		assert.Equal(t, day(2024, 5, 12), a.End)
		assert.Equal(t, company, a.CompanyID)
	})

	t.Run("manager submitting for someone else is approved", func(t *testing.T) {
		c := newChecker(&memoryStore{})
		a, err := c.Prepare(&Submission{
			Type: fullDay, User: manager, SubmittedFor: employee,
			Start: day(2024, 5, 10), End: day(2024, 5, 10),
		})
		require.NoError(t, err)
		assert.True(t, a.SubmittedTo(manager.ID))
		assert.Equal(t, domain.AbsenceStatusApproved, a.Status)
	})

	t.Run("inconsistent relations", func(t *testing.T) {
		c := newChecker(&memoryStore{})
		_, err := c.Prepare(&Submission{
			Type: fullDay, User: manager, SubmittedFor: employee, SubmittedTo: staff,
			Start: day(2024, 5, 10), End: day(2024, 5, 10),
		})
		assert.Equal(t, "ABSENCE_RELATIONS_ARE_INCONSISTENT", errKey(t, err))
	})

	t.Run("employee cannot submit to employee", func(t *testing.T) {
		c := newChecker(&memoryStore{})
		_, err := c.Prepare(&Submission{
			Type: fullDay, User: employee, SubmittedTo: colleague,
			Start: day(2024, 5, 10), End: day(2024, 5, 10),
		})
		assert.Equal(t, "EMPLOYEE_TO_SUBMIT_ABSENCE_NOT_FOUND", errKey(t, err))
	})

	t.Run("end before start", func(t *testing.T) {
		c := newChecker(&memoryStore{})
		_, err := c.Prepare(&Submission{
			Type: fullDay, User: employee, Start: day(2024, 5, 10), End: day(2024, 5, 9),
		})
		assert.Equal(t, "END_DATE_CAN_NOT_BE_A_DATE_BEFORE_START_DATE", errKey(t, err))
	})

	t.Run("submit before days", func(t *testing.T) {
		c := newChecker(&memoryStore{})
		quitting := &domain.AbsenceType{Duration: domain.AbsenceDurationQuitting, SubmitBeforeDays: 7}
		_, err := c.Prepare(&Submission{
			Type: quitting, User: employee, Start: day(2024, 5, 3), End: day(2024, 5, 3),
		})
		assert.Equal(t, "ABSENCE_SHOULD_SUBMITTED_BEFORE_DAYS", errKey(t, err))
	})

	t.Run("overlapping absence", func(t *testing.T) {
		store := &memoryStore{}
		store.add(employee.ID, day(2024, 5, 10), day(2024, 5, 12))
		_, err := newChecker(store).Prepare(&Submission{
			Type: fullDay, User: employee, Start: day(2024, 5, 11), End: day(2024, 5, 11),
		})
		assert.Equal(t, "ABSENCE_HAS_ALREADY_BEEN_APPLIED_IN_GIVEN_DATES", errKey(t, err))
	})

	t.Run("shift conflict can be ignored", func(t *testing.T) {
		store := &memoryStore{shifts: map[uuid.UUID][][2]time.Time{
			employee.ID: {{day(2024, 5, 10).Add(8 * time.Hour), day(2024, 5, 10).Add(16 * time.Hour)}},
		}}
		sub := &Submission{Type: fullDay, User: employee, Start: day(2024, 5, 10), End: day(2024, 5, 10)}

		_, err := newChecker(store).Prepare(sub)
		assert.Equal(t, "EMPLOYEE_HAS_SHIFT_IN_GIVEN_DATES", errKey(t, err))

		sub.IgnoreShiftOverlap = true
		_, err = newChecker(store).Prepare(sub)
		assert.NoError(t, err)
	})
}

func TestCheckStatusChange(t *testing.T) {
	store := &memoryStore{}
	employeeID := uuid.New()
	limited := &domain.AbsenceType{Entitlement: 2, Period: domain.AbsencePeriodWeek}

	store.add(employeeID, day(2020, 5, 18), day(2020, 5, 20))
	pending := &domain.Absence{
		ID:             uuid.New(),
		SubmittedForID: employeeID,
		Status:         domain.AbsenceStatusPending,
		Start:          day(2020, 5, 21),
		End:            day(2020, 5, 22),
	}

	c := newChecker(store)
	assert.NoError(t, c.CheckStatusChange(pending, limited, domain.AbsenceStatusRejected, false))

	err := c.CheckStatusChange(pending, limited, domain.AbsenceStatusApproved, false)
	assert.Equal(t, "ENTITLEMENT_EXCEEDED", errKey(t, err))

	unlimited := &domain.AbsenceType{Period: domain.AbsencePeriodWeek}
	assert.NoError(t, c.CheckStatusChange(pending, unlimited, domain.AbsenceStatusApproved, false))
}
