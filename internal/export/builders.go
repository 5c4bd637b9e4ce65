package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/leave"
)

// Directory 提供导出时需要的名称
type Directory struct {
	Employees    map[uuid.UUID]*domain.Employee
	Departments  map[uuid.UUID]string
	ShiftTypes   map[uuid.UUID]string
	AbsenceTypes map[uuid.UUID]*domain.AbsenceType
}

func (d *Directory) employeeName(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	if e, ok := d.Employees[*id]; ok {
		return e.FullName()
	}
	return ""
}

func (d *Directory) departmentOf(id uuid.UUID) string {
	e, ok := d.Employees[id]
	if !ok || e.DepartmentID == nil {
		return ""
	}
	return d.Departments[*e.DepartmentID]
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func AbsenceTypes(types []*domain.AbsenceType) *Table {
	t := &Table{Headers: []string{"NAME", "DESCRIPTION", "ENTITLEMENT", "ABSENCE_PERIOD", "SUBMIT_BEFORE_DAYS", "PAID", "ABSENCE_DURATION"}}
	for _, at := range types {
		t.Rows = append(t.Rows, []string{
			at.Name,
			at.Description,
			strconv.Itoa(int(at.Entitlement)),
			strings.ToUpper(string(at.Period)),
			strconv.Itoa(int(at.SubmitBeforeDays)),
			yesNo(at.Paid),
			string(at.Duration),
		})
	}
	return t
}

func formatAbsenceTime(at *domain.AbsenceType, t time.Time) string {
	if at != nil && at.Hourly() {
		return t.Format(leave.DateTimeLayout)
	}
	return t.Format(leave.DateLayout)
}

func Absences(absences []*domain.Absence, dir *Directory) *Table {
	t := &Table{Headers: []string{
		"SUBMITTED_BY", "SUBMITTED_FOR", "SUBMITTED_TO", "TITLE", "START", "END",
		"DURATION", "STATUS", "DEPARTMENT", "SUBMITTED_ON", "ABSENCE_TYPE",
	}}

	for _, a := range absences {
		at := a.AbsenceType
		if at == nil {
			at = dir.AbsenceTypes[a.AbsenceTypeID]
		}

		end := a.End
		typeName := ""
		if at != nil {
			end = leave.DisplayEnd(at, a.End)
			typeName = at.Name
		}

		t.Rows = append(t.Rows, []string{
			dir.employeeName(&a.SubmittedByID),
			dir.employeeName(&a.SubmittedForID),
			dir.employeeName(a.SubmittedToID),
			a.Subject,
			formatAbsenceTime(at, a.Start),
			formatAbsenceTime(at, end),
			leave.DurationString(a.End.Sub(a.Start)),
			string(a.Status),
			dir.departmentOf(a.SubmittedForID),
			a.CreatedAt.Format(leave.DateLayout),
			typeName,
		})
	}
	return t
}

func GeneralAbsences(generalAbsences []*domain.GeneralAbsence, dir *Directory) *Table {
	t := &Table{Headers: []string{"TITLE", "BODY", "STATUS", "SUBMITTED_BY", "START", "END", "DEPARTMENT"}}
	for _, g := range generalAbsences {
		departments := make([]string, 0, len(g.DepartmentIDs))
		for _, id := range g.DepartmentIDs {
			departments = append(departments, dir.Departments[id])
		}

		t.Rows = append(t.Rows, []string{
			g.Subject,
			g.Body,
			string(g.Status),
			dir.employeeName(&g.SubmittedByID),
			g.Start.Format(leave.DateLayout),
			g.DisplayEnd().Format(leave.DateLayout),
			strings.Join(departments, ", "),
		})
	}
	return t
}

func Schedules(schedules []*domain.Schedule, dir *Directory) *Table {
	t := &Table{Headers: []string{
		"STATUS", "START_DATE", "END_DATE", "DEPARTMENT", "SHIFT_TYPES",
		"PREFERENCE_DEADLINE", "MANUAL_INPUT", "COLLECT_PREFERENCE",
	}}
	for _, s := range schedules {
		shiftTypes := make([]string, 0, len(s.ShiftTypeIDs))
		for _, id := range s.ShiftTypeIDs {
			shiftTypes = append(shiftTypes, dir.ShiftTypes[id])
		}

		deadline := ""
		if s.PreferencesDeadline != nil {
			deadline = s.PreferencesDeadline.Format(leave.DateLayout)
		}

		department := s.DepartmentName
		if department == "" {
			department = dir.Departments[s.DepartmentID]
		}

		t.Rows = append(t.Rows, []string{
			s.Status.String(),
			s.Start.Format(leave.DateLayout),
			s.End.Format(leave.DateLayout),
			department,
			strings.Join(shiftTypes, ", "),
			deadline,
			yesNo(s.ManualInput),
			yesNo(s.CollectPreferences),
		})
	}
	return t
}
