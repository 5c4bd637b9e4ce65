package leave

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

// memoryFinder 模拟仓储层的查询
type memoryFinder struct {
	absences []*domain.Absence
}

func (f *memoryFinder) FindApprovedOverlapping(absence *domain.Absence, start, end time.Time) ([]*domain.Absence, error) {
	res := []*domain.Absence{}
	for _, a := range f.absences {
		if a.ID == absence.ID || a.Status != domain.AbsenceStatusApproved {
			continue
		}
		if a.SubmittedForID != absence.SubmittedForID {
			continue
		}
		if Overlaps(a.Start, a.End, start, end) {
			res = append(res, a)
		}
	}
	return res, nil
}

func (f *memoryFinder) add(employeeID uuid.UUID, start, end time.Time) *domain.Absence {
	a := &domain.Absence{
		ID:             uuid.New(),
		SubmittedForID: employeeID,
		Status:         domain.AbsenceStatusApproved,
		Start:          start,
		End:            end,
	}
	f.absences = append(f.absences, a)
	return a
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type overflowStep struct {
	start, end time.Time
	want       *Overflow
}

func runOverflowSteps(t *testing.T, absenceType *domain.AbsenceType, steps []overflowStep) {
	finder := &memoryFinder{}
	employeeID := uuid.New()

	for _, step := range steps {
		absence := finder.add(employeeID, step.start, step.end)

		got, err := CheckOverflow(finder, absence, absenceType)
		require.NoError(t, err)

		if step.want == nil {
			assert.Nil(t, got, "absence %s - %s", step.start.Format(DateLayout), step.end.Format(DateLayout))
			continue
		}
		require.NotNil(t, got, "absence %s - %s", step.start.Format(DateLayout), step.end.Format(DateLayout))
		assert.Equal(t, step.want.Start, got.Start)
		assert.Equal(t, step.want.End, got.End)
		assert.Equal(t, step.want.Consumed, got.Consumed)
	}
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func TestCheckOverflowWeek(t *testing.T) {
	absenceType := &domain.AbsenceType{Entitlement: 2, Period: domain.AbsencePeriodWeek}

	runOverflowSteps(t, absenceType, []overflowStep{
		{day(2020, 5, 12), day(2020, 5, 15), &Overflow{Start: day(2020, 5, 11), End: day(2020, 5, 17), Consumed: 0}},
		{day(2020, 5, 19), day(2020, 5, 21), nil},
		{day(2020, 5, 21), day(2020, 5, 22), &Overflow{Start: day(2020, 5, 18), End: day(2020, 5, 24), Consumed: days(2)}},
		{day(2020, 5, 30), day(2020, 6, 3), nil},
	})
}

func TestCheckOverflowMonth(t *testing.T) {
	absenceType := &domain.AbsenceType{Entitlement: 5, Period: domain.AbsencePeriodMonth}

	runOverflowSteps(t, absenceType, []overflowStep{
		{day(2020, 5, 12), day(2020, 5, 15), nil},
		{day(2020, 5, 15), day(2020, 5, 17), nil},
		{day(2020, 5, 18), day(2020, 5, 20), &Overflow{Start: day(2020, 5, 1), End: day(2020, 5, 31), Consumed: days(5)}},
		{day(2020, 5, 30), day(2020, 6, 20), &Overflow{Start: day(2020, 5, 1), End: day(2020, 5, 31), Consumed: days(7)}},
	})
}

func TestCheckOverflowYear(t *testing.T) {
	absenceType := &domain.AbsenceType{Entitlement: 18, Period: domain.AbsencePeriodYear}

	runOverflowSteps(t, absenceType, []overflowStep{
		{day(2020, 5, 10), day(2020, 5, 25), nil},
		{day(2021, 5, 10), day(2021, 5, 25), nil},
		{day(2020, 5, 25), day(2020, 5, 31), &Overflow{Start: day(2020, 1, 1), End: day(2020, 12, 31), Consumed: days(15)}},
	})
}

func TestCheckOverflowSpanningMonths(t *testing.T) {
	absenceType := &domain.AbsenceType{Entitlement: 6, Period: domain.AbsencePeriodMonth}
	finder := &memoryFinder{}
	employeeID := uuid.New()

	// 已批准的请假横跨五月和六月，整段 14 天都计入五月
	finder.add(employeeID, day(2020, 5, 27), day(2020, 6, 10))
	absence := finder.add(employeeID, day(2020, 5, 20), day(2020, 5, 21))

	got, err := CheckOverflow(finder, absence, absenceType)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, day(2020, 5, 1), got.Start)
	assert.Equal(t, day(2020, 5, 31), got.End)
	assert.Equal(t, days(14), got.Consumed)
	assert.Equal(t, "ENTITLEMENT_EXCEEDED", got.ValidationError().Key)
	assert.Equal(t, "14", got.ValidationError().Params["consumed"])
}

func TestCheckOverflowClipsOnlyCurrentAbsence(t *testing.T) {
	absenceType := &domain.AbsenceType{Entitlement: 3, Period: domain.AbsencePeriodMonth}
	finder := &memoryFinder{}
	employeeID := uuid.New()

	// 当前请假在五月只占 2 天，六月占 4 天
	absence := finder.add(employeeID, day(2020, 5, 30), day(2020, 6, 5))

	got, err := CheckOverflow(finder, absence, absenceType)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, day(2020, 6, 1), got.Start)
	assert.Equal(t, time.Duration(0), got.Consumed)
}

func TestCheckOverflowHourlyPrecision(t *testing.T) {
	absenceType := &domain.AbsenceType{Entitlement: 1, Period: domain.AbsencePeriodWeek, Duration: domain.AbsenceDurationHourly}
	finder := &memoryFinder{}
	employeeID := uuid.New()

	finder.add(employeeID, day(2020, 5, 18).Add(9*time.Hour), day(2020, 5, 18).Add(21*time.Hour))
	absence := finder.add(employeeID, day(2020, 5, 19).Add(9*time.Hour), day(2020, 5, 19).Add(19*time.Hour))

	got, err := CheckOverflow(finder, absence, absenceType)
	require.NoError(t, err)
	assert.Nil(t, got, "12h + 10h fits in a one day entitlement")

	absence = finder.add(employeeID, day(2020, 5, 20).Add(9*time.Hour), day(2020, 5, 20).Add(12*time.Hour))
	got, err = CheckOverflow(finder, absence, absenceType)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 22*time.Hour, got.Consumed)
}

func TestCheckOverflowUnlimited(t *testing.T) {
	absenceType := &domain.AbsenceType{Entitlement: 0, Period: domain.AbsencePeriodWeek}
	finder := &memoryFinder{}
	absence := finder.add(uuid.New(), day(2020, 5, 1), day(2020, 6, 1))

	got, err := CheckOverflow(finder, absence, absenceType)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWindows(t *testing.T) {
	tests := []struct {
		name   string
		period domain.AbsencePeriod
		start  time.Time
		end    time.Time
		want   []Window
	}{
		{
			name:   "week inside one week",
			period: domain.AbsencePeriodWeek,
			start:  day(2020, 5, 12),
			end:    day(2020, 5, 15),
			want:   []Window{{day(2020, 5, 11), day(2020, 5, 18)}},
		},
		{
			name:   "week starting on monday has no empty window",
			period: domain.AbsencePeriodWeek,
			start:  day(2020, 5, 18),
			end:    day(2020, 5, 26),
			want:   []Window{{day(2020, 5, 18), day(2020, 5, 25)}, {day(2020, 5, 25), day(2020, 6, 1)}},
		},
		{
			name:   "month across boundary",
			period: domain.AbsencePeriodMonth,
			start:  day(2020, 5, 30),
			end:    day(2020, 6, 20),
			want:   []Window{{day(2020, 5, 1), day(2020, 6, 1)}, {day(2020, 6, 1), day(2020, 7, 1)}},
		},
		{
			name:   "year across new year",
			period: domain.AbsencePeriodYear,
			start:  day(2020, 12, 28),
			end:    day(2021, 1, 4),
			want:   []Window{{day(2020, 1, 1), day(2021, 1, 1)}, {day(2021, 1, 1), day(2022, 1, 1)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Windows(tt.period, tt.start, tt.end))
		})
	}
}

func TestAlreadyTaken(t *testing.T) {
	absences := []*domain.Absence{
		{Start: day(2020, 5, 10), End: day(2020, 5, 12)},
		{Start: day(2019, 12, 30), End: day(2020, 1, 2)},
		{Start: day(2019, 5, 1), End: day(2019, 5, 5)},
	}

	assert.Equal(t, 3.0, AlreadyTaken(absences, day(2020, 7, 1)))
}
