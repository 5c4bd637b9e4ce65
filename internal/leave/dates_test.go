package leave

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

func TestValidateDates(t *testing.T) {
	assert.NoError(t, ValidateDates(day(2020, 5, 1), day(2020, 5, 1)))

	err := ValidateDates(day(2020, 5, 2), day(2020, 5, 1))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "END_DATE_CAN_NOT_BE_A_DATE_BEFORE_START_DATE", verr.Key)
}

func TestNormalizeRange(t *testing.T) {
	start := day(2020, 5, 1).Add(10 * time.Hour)
	end := day(2020, 5, 3).Add(15 * time.Hour)

	s, e := NormalizeRange(&domain.AbsenceType{Duration: domain.AbsenceDurationFullDay}, start, end)
	assert.Equal(t, day(2020, 5, 1), s)
	assert.Equal(t, day(2020, 5, 4), e)
	assert.Equal(t, day(2020, 5, 3), DisplayEnd(&domain.AbsenceType{}, e))

	s, e = NormalizeRange(&domain.AbsenceType{Duration: domain.AbsenceDurationHourly}, start, end)
	assert.Equal(t, start, s)
	assert.Equal(t, end, e)
}

func TestValidateSubmitBefore(t *testing.T) {
	now := day(2020, 5, 1).Add(12 * time.Hour)
	absenceType := &domain.AbsenceType{SubmitBeforeDays: 7}

	assert.NoError(t, ValidateSubmitBefore(absenceType, now, day(2020, 5, 9)))
	assert.NoError(t, ValidateSubmitBefore(&domain.AbsenceType{}, now, day(2020, 4, 1)))

	err := ValidateSubmitBefore(absenceType, now, day(2020, 5, 8))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ABSENCE_SHOULD_SUBMITTED_BEFORE_DAYS", verr.Key)
	assert.Equal(t, int32(7), verr.Params["days"])
}

func TestDurationString(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{24*time.Hour + time.Hour + time.Minute, "1 DAY 1 HOUR 1 MINUTE"},
		{5*24*time.Hour + 4*time.Hour + 20*time.Minute, "5 DAYS 4 HOURS 20 MINUTES"},
		{2 * 24 * time.Hour, "2 DAYS"},
		{0, "0 MINUTES"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, DurationString(tt.d))
		})
	}
}

func TestDefaultTypes(t *testing.T) {
	companyID := uuid.New()
	types := DefaultTypes(companyID)

	require.Len(t, types, 6)
	names := []string{}
	for _, at := range types {
		assert.Equal(t, companyID, at.CompanyID)
		names = append(names, at.Name)
	}
	assert.Equal(t, []string{"DAY_OFF", "ABSENCE", "QUITTING", "SICK_ABSENCE", "ANNUAL_ABSENCE", "ABSENT_FROM_SHIFT"}, names)
	assert.Equal(t, domain.AbsenceDurationShift, types[5].Duration)
	assert.Equal(t, uint16(10), types[0].Entitlement)
}
