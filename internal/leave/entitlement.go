package leave

import (
	"slices"
	"strconv"
	"time"

	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

// ApprovedFinder 查询同一员工在 [start, end] 内与之重叠的其他已批准请假（不包含 absence 自身）
type ApprovedFinder interface {
	FindApprovedOverlapping(absence *domain.Absence, start, end time.Time) ([]*domain.Absence, error)
}

type Window struct {
	Start time.Time
	End   time.Time
}

// Overflow 描述第一个超出额度的周期
type Overflow struct {
	Period      domain.AbsencePeriod
	Start       time.Time
	End         time.Time
	Consumed    time.Duration
	Entitlement uint16
}

func (o *Overflow) ConsumedDays() float64 {
	return Days(o.Consumed)
}

func (o *Overflow) Error() string {
	return o.ValidationError().Error()
}

func (o *Overflow) ValidationError() *domain.ValidationError {
	return domain.NewValidationError("status", "ENTITLEMENT_EXCEEDED").
		With("period", string(o.Period)).
		With("consumed", strconv.FormatFloat(o.ConsumedDays(), 'f', -1, 64)).
		With("start", o.Start.Format(DateLayout)).
		With("end", o.End.Format(DateLayout)).
		With("entitlement", o.Entitlement)
}

func weekStart(t time.Time) time.Time {
	d := Midnight(t)
	offset := (int(d.Weekday()) + 6) % 7 // 周一为一周的第一天
	return d.AddDate(0, 0, -offset)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func yearStart(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

func floorAndStep(period domain.AbsencePeriod) (func(time.Time) time.Time, func(time.Time) time.Time) {
	switch period {
	case domain.AbsencePeriodWeek:
		return weekStart, func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case domain.AbsencePeriodMonth:
		return monthStart, func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	default:
		return yearStart, func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }
	}
}

// Windows 把 [start, end] 切分成互不重叠的周期子区间：
// 起点所在周期的开始、区间内的每个周期边界、终点所在周期的下一个周期开始
func Windows(period domain.AbsencePeriod, start, end time.Time) []Window {
	floor, step := floorAndStep(period)

	boundaries := []time.Time{floor(start)}
	for b := step(floor(start)); !b.After(end); b = step(b) {
		boundaries = append(boundaries, b)
	}
	boundaries = append(boundaries, step(floor(end)))
	boundaries = slices.CompactFunc(boundaries, func(a, b time.Time) bool { return a.Equal(b) })

	windows := make([]Window, 0, len(boundaries)-1)
	for i := 0; i+1 < len(boundaries); i++ {
		if !boundaries[i].Before(boundaries[i+1]) {
			continue
		}
		windows = append(windows, Window{Start: boundaries[i], End: boundaries[i+1]})
	}
	return windows
}

// Clip 返回 [start, end) 落在窗口内的时长
func (w Window) Clip(start, end time.Time) time.Duration {
	if start.Before(w.Start) {
		start = w.Start
	}
	if end.After(w.End) {
		end = w.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// CheckOverflow 按周期逐个检查批准该请假后是否会超出额度，返回第一个超额的周期
func CheckOverflow(finder ApprovedFinder, absence *domain.Absence, t *domain.AbsenceType) (*Overflow, error) {
	if t.Entitlement == 0 {
		return nil, nil
	}
	limit := time.Duration(t.Entitlement) * 24 * time.Hour

	for _, w := range Windows(t.Period, absence.Start, absence.End) {
		duration := w.Clip(absence.Start, absence.End)
		if duration == 0 {
			// 当前请假对这个周期没有贡献
			continue
		}

		others, err := finder.FindApprovedOverlapping(absence, w.Start, w.End)
		if err != nil {
			return nil, err
		}

		var consumed time.Duration
		for _, other := range others {
			if other.ID == absence.ID {
				continue
			}
			// 已批准的请假按整段计入，即使它跨越了周期边界
			consumed += other.End.Sub(other.Start)
		}

		if consumed+duration > limit {
			return &Overflow{
				Period:      t.Period,
				Start:       w.Start,
				End:         w.End.AddDate(0, 0, -1),
				Consumed:    consumed,
				Entitlement: t.Entitlement,
			}, nil
		}
	}

	return nil, nil
}

// AlreadyTaken 统计当年已经使用的天数
func AlreadyTaken(absences []*domain.Absence, now time.Time) float64 {
	w := Window{Start: yearStart(now), End: yearStart(now).AddDate(1, 0, 0)}
	var total time.Duration
	for _, a := range absences {
		total += w.Clip(a.Start, a.End)
	}
	return Days(total)
}
