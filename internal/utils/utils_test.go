package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

func validationKey(t *testing.T, err error) string {
	t.Helper()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Key
}

func TestValidateSchedule(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	deadline := now.AddDate(0, 0, 5)

	base := func() *domain.Schedule {
		return &domain.Schedule{
			Start:               now.AddDate(0, 0, 10),
			End:                 now.AddDate(0, 1, 10),
			CollectPreferences:  true,
			PreferencesDeadline: &deadline,
		}
	}

	assert.NoError(t, ValidateSchedule(base(), now))

	s := base()
	s.Start = now.AddDate(0, 0, -1)
	assert.Equal(t, "START_DATE_MUST_BE_FUTURE_DATE", validationKey(t, ValidateSchedule(s, now)))

	s.CollectPreferences = false
	assert.NoError(t, ValidateSchedule(s, now), "past start is fine without preference collection")

	s = base()
	s.End = s.Start.AddDate(0, 0, -1)
	assert.Equal(t, "END_DATE_MUST_BE_AFTER_START_DATE", validationKey(t, ValidateSchedule(s, now)))

	s = base()
	s.End = s.Start.AddDate(0, 0, 371)
	assert.Equal(t, "ONLY_370_DAYS_SCHEDULE_IS_ALLOWED", validationKey(t, ValidateSchedule(s, now)))

	s = base()
	s.PreferencesDeadline = nil
	assert.Equal(t, "PREFERENCES_DEADLINE_REQUIRED", validationKey(t, ValidateSchedule(s, now)))
}

func TestValidateAllocations(t *testing.T) {
	shift := &domain.Shift{ID: uuid.New()}
	employee := uuid.New()

	assert.NoError(t, ValidateAllocations([]*domain.Shift{shift}, map[uuid.UUID][]uuid.UUID{shift.ID: {employee}}))
	assert.Error(t, ValidateAllocations([]*domain.Shift{shift}, map[uuid.UUID][]uuid.UUID{uuid.New(): {employee}}))
	assert.Error(t, ValidateAllocations([]*domain.Shift{shift}, map[uuid.UUID][]uuid.UUID{shift.ID: {employee, employee}}))
}

func TestFeedbackStats(t *testing.T) {
	ratings := []int16{5, 5, 4, 3, 1, 5}
	feedbacks := make([]*domain.ScheduleFeedback, 0, len(ratings))
	for _, r := range ratings {
		feedbacks = append(feedbacks, &domain.ScheduleFeedback{Rating: r})
	}

	stats := FeedbackStats(feedbacks)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 50, stats.Percentages[5])
	assert.Equal(t, 16, stats.Percentages[4])
	assert.Equal(t, 0, stats.Percentages[2])
	assert.InDelta(t, 23.0/6.0, stats.Average, 1e-9)

	empty := FeedbackStats(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Zero(t, empty.Average)
	assert.Len(t, empty.Percentages, 5)
}

func TestGenerateUsernameFromChineseName(t *testing.T) {
	username := GenerateUsernameFromChineseName("王伟")
	assert.NotEmpty(t, username)
	assert.Regexp(t, `^[a-z]+[0-9]{1,3}$`, username)
}

func TestGenerateRandomSubset(t *testing.T) {
	arr := []int{1, 2, 3, 4}
	subset := GenerateRandomSubset(arr)
	assert.NotEmpty(t, subset)
	assert.Subset(t, arr, subset)
	assert.Equal(t, []int{1, 2, 3, 4}, arr)
	assert.Empty(t, GenerateRandomSubset([]int{}))
}
