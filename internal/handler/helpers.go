package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/export"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/leave"
)

// queryUUID 参数不存在时返回 nil
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return nil, domain.NewValidationError(name, "INVALID_ID")
	}
	return &id, nil
}

// queryTime 同时接受 RFC3339 和 2006-01-02 两种格式，参数必填
func queryTime(r *http.Request, name string) (time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return time.Time{}, domain.NewValidationError(name, "THIS_FIELD_IS_REQUIRED")
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(leave.DateLayout, value)
	if err != nil {
		return time.Time{}, domain.NewValidationError(name, "INVALID_DATE")
	}
	return t, nil
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// queryList 支持 ?status=A&status=B 和 ?status=A,B 两种写法
func queryList(r *http.Request, name string) []string {
	var values []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}

// directory 收集导出时需要的员工、部门和班次类型名称
func (h *Handler) directory(companyID uuid.UUID) (*export.Directory, error) {
	dir := &export.Directory{
		Employees:    make(map[uuid.UUID]*domain.Employee),
		Departments:  make(map[uuid.UUID]string),
		ShiftTypes:   make(map[uuid.UUID]string),
		AbsenceTypes: make(map[uuid.UUID]*domain.AbsenceType),
	}

	employees, err := h.repository.GetEmployeesByCompany(companyID)
	if err != nil {
		return nil, err
	}
	for _, e := range employees {
		dir.Employees[e.ID] = e
	}

	departments, err := h.repository.GetDepartmentsByCompany(companyID)
	if err != nil {
		return nil, err
	}
	for _, d := range departments {
		dir.Departments[d.ID] = d.Name
	}

	shiftTypes, err := h.repository.GetShiftTypesByCompany(companyID)
	if err != nil {
		return nil, err
	}
	for _, st := range shiftTypes {
		dir.ShiftTypes[st.ID] = st.Name
	}

	return dir, nil
}

func (h *Handler) writeExport(w http.ResponseWriter, r *http.Request, name string, table *export.Table) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(name)))
	w.WriteHeader(http.StatusOK)

	if err := table.Write(w, format); err != nil {
		// 响应头已经发出，只能记录错误
		h.logInternalServerError(r, err)
	}
}
