package scheduler

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

var testParameters = &Parameters{
	PopulationSize: 20,
	MaxGenerations: 30,
	CrossoverRate:  0.8,
	MutationRate:   0.1,
	EliteCount:     2,
	FairnessWeight: 0.5,
}

func newShift(shiftTypeID uuid.UUID, start time.Time, hours int, required int32) *domain.Shift {
	return &domain.Shift{
		ID:                uuid.New(),
		ShiftTypeID:       shiftTypeID,
		Start:             start,
		End:               start.Add(time.Duration(hours) * time.Hour),
		RequiredEmployees: required,
	}
}

func TestBuildCandidates(t *testing.T) {
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	morning := &domain.ShiftType{ID: uuid.New(), TrainedEmployeeIDs: []uuid.UUID{alice, bob}}

	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	shift1 := newShift(morning.ID, day.Add(8*time.Hour), 4, 1)
	shift2 := newShift(morning.ID, day.AddDate(0, 0, 1).Add(8*time.Hour), 4, 1)

	approved := []*domain.Absence{
		{SubmittedForID: bob, Start: day, End: day.AddDate(0, 0, 1)},
		{SubmittedForID: carol, Start: day, End: day.AddDate(0, 0, 2)},
	}

	candidates := BuildCandidates([]*domain.Shift{shift1, shift2}, []*domain.ShiftType{morning}, approved)
	assert.ElementsMatch(t, []uuid.UUID{alice}, candidates[shift1.ID])
	assert.ElementsMatch(t, []uuid.UUID{alice, bob}, candidates[shift2.ID])
}

func TestSchedule(t *testing.T) {
	employees := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	shiftTypeID := uuid.New()
	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

	shifts := make([]*domain.Shift, 0)
	for i := 0; i < 5; i++ {
		shifts = append(shifts, newShift(shiftTypeID, day.AddDate(0, 0, i).Add(8*time.Hour), 8, 2))
	}

	candidates := make(map[uuid.UUID][]uuid.UUID)
	for _, shift := range shifts {
		candidates[shift.ID] = employees
	}

	s, err := New(testParameters, shifts, candidates)
	require.NoError(t, err)

	result, err := s.Schedule()
	require.NoError(t, err)
	require.Len(t, result, len(shifts))

	for _, shift := range shifts {
		assigned := result[shift.ID]
		assert.LessOrEqual(t, len(assigned), int(shift.RequiredEmployees))
		for _, id := range assigned {
			assert.Contains(t, employees, id)
		}
	}
}

func TestScheduleWithoutCandidates(t *testing.T) {
	shift := newShift(uuid.New(), time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC), 8, 3)

	s, err := New(testParameters, []*domain.Shift{shift}, map[uuid.UUID][]uuid.UUID{shift.ID: {}})
	require.NoError(t, err)

	result, err := s.Schedule()
	require.NoError(t, err)
	assert.Empty(t, result[shift.ID])
}

func TestNewRejectsUnknownShift(t *testing.T) {
	_, err := New(testParameters, nil, map[uuid.UUID][]uuid.UUID{uuid.New(): {uuid.New()}})
	assert.Error(t, err)

	_, err = New(&Parameters{PopulationSize: 1, EliteCount: 2}, nil, nil)
	assert.Error(t, err)
}

func TestCalcFitness(t *testing.T) {
	employee := uuid.New()
	start := time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)
	a := newShift(uuid.New(), start, 8, 1)
	b := newShift(uuid.New(), start.Add(4*time.Hour), 8, 1)

	s, err := New(testParameters, []*domain.Shift{a, b}, map[uuid.UUID][]uuid.UUID{
		a.ID: {employee},
		b.ID: {employee},
	})
	require.NoError(t, err)

	conflicting := &Chromosome{genes: []*Gene{
		{shiftID: a.ID, employeeIDs: []uuid.UUID{employee}, requiredNum: 1, hours: 8},
		{shiftID: b.ID, employeeIDs: []uuid.UUID{employee}, requiredNum: 1, hours: 8},
	}}
	single := &Chromosome{genes: []*Gene{
		{shiftID: a.ID, employeeIDs: []uuid.UUID{employee}, requiredNum: 1, hours: 8},
		{shiftID: b.ID, employeeIDs: []uuid.UUID{}, requiredNum: 1, hours: 8},
	}}
	s.calcFitness(conflicting)
	s.calcFitness(single)

	assert.Equal(t, -1.0, conflicting.fitness)
	assert.Equal(t, -1.0, single.fitness)
}
