package leave

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NormalizeRange 非按小时计算的假期以整天为单位，结束时间存为结束日期次日零点
func NormalizeRange(t *domain.AbsenceType, start, end time.Time) (time.Time, time.Time) {
	if t.Hourly() {
		return start, end
	}
	return Midnight(start), Midnight(end).AddDate(0, 0, 1)
}

// DisplayEnd 与 NormalizeRange 相反，用于展示和导出
func DisplayEnd(t *domain.AbsenceType, end time.Time) time.Time {
	if t.Hourly() {
		return end
	}
	return end.AddDate(0, 0, -1)
}

func ValidateDates(start, end time.Time) error {
	if start.After(end) {
		return domain.NewValidationError("end", "END_DATE_CAN_NOT_BE_A_DATE_BEFORE_START_DATE")
	}
	return nil
}

// DaysUntil 返回 now 到 t 的整天数，向下取整
func DaysUntil(now, t time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}

func ValidateSubmitBefore(t *domain.AbsenceType, now, start time.Time) error {
	if t.SubmitBeforeDays == 0 {
		return nil
	}
	if DaysUntil(now, start) < int(t.SubmitBeforeDays) {
		return domain.NewValidationError("start", "ABSENCE_SHOULD_SUBMITTED_BEFORE_DAYS").With("days", t.SubmitBeforeDays)
	}
	return nil
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %sS", n, unit)
}

// DurationString 格式为 "2 DAYS 3 HOURS 1 MINUTE"，值为 0 的部分省略
func DurationString(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "DAY"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "HOUR"))
	}
	if minutes > 0 || len(parts) == 0 {
		parts = append(parts, plural(minutes, "MINUTE"))
	}
	return strings.Join(parts, " ")
}

func Days(d time.Duration) float64 {
	return d.Hours() / 24
}
