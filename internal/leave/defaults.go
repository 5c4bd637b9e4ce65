package leave

import (
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

// DefaultTypes 是新公司创建时自带的请假类型
func DefaultTypes(companyID uuid.UUID) []*domain.AbsenceType {
	return []*domain.AbsenceType{
		{CompanyID: companyID, Name: "DAY_OFF", Entitlement: 10, Period: domain.AbsencePeriodYear, Duration: domain.AbsenceDurationFullDay},
		{CompanyID: companyID, Name: "ABSENCE", Entitlement: 10, Period: domain.AbsencePeriodYear, Duration: domain.AbsenceDurationFullDay},
		{CompanyID: companyID, Name: "QUITTING", Period: domain.AbsencePeriodYear, Duration: domain.AbsenceDurationQuitting, SubmitBeforeDays: 7},
		{CompanyID: companyID, Name: "SICK_ABSENCE", Period: domain.AbsencePeriodYear, Duration: domain.AbsenceDurationFullDay},
		{CompanyID: companyID, Name: "ANNUAL_ABSENCE", Period: domain.AbsencePeriodYear, Duration: domain.AbsenceDurationFullDay, SubmitBeforeDays: 7},
		{CompanyID: companyID, Name: "ABSENT_FROM_SHIFT", Period: domain.AbsencePeriodYear, Duration: domain.AbsenceDurationShift},
	}
}
