package seed

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// 每个部门默认创建的班次类型
var DefaultShiftTypes = []domain.ShiftType{
	{Name: "早班", StartTime: "08:00:00", EndTime: "12:00:00", RequiredEmployees: 2},
	{Name: "午班", StartTime: "13:00:00", EndTime: "17:00:00", RequiredEmployees: 2},
	{Name: "晚班", StartTime: "18:00:00", EndTime: "22:00:00", RequiredEmployees: 1},
}

var requiredHeaders = []string{"用户名", "姓", "名", "邮箱", "角色", "部门"}

// Setup 创建公司、部门以及默认的请假类型
func Setup(r *repository.Repository, companyName string, departmentNames []string) (*domain.Company, []*domain.Department, error) {
	company := &domain.Company{Name: companyName}
	if err := r.CreateCompany(company); err != nil {
		return nil, nil, err
	}

	departments := make([]*domain.Department, 0, len(departmentNames))
	for _, name := range departmentNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		d := &domain.Department{CompanyID: company.ID, Name: name}
		if err := r.CreateDepartment(d); err != nil {
			return nil, nil, err
		}
		departments = append(departments, d)
	}

	if err := r.CreateDefaultAbsenceTypes(company.ID); err != nil {
		return nil, nil, err
	}

	return company, departments, nil
}

// CreateShiftTypes 为部门创建默认班次类型，部门内的员工都视为受训
func CreateShiftTypes(r *repository.Repository, department *domain.Department, trained []uuid.UUID) (int, error) {
	cnt := 0
	for _, tmpl := range DefaultShiftTypes {
		st := tmpl
		st.CompanyID = department.CompanyID
		st.DepartmentID = department.ID
		st.TrainedEmployeeIDs = trained

		if err := r.CreateShiftType(&st); err != nil {
			return cnt, err
		}
		cnt++
	}
	return cnt, nil
}

// ImportEmployees 从 csv 文件导入员工，已存在的用户名会被跳过
func ImportEmployees(r *repository.Repository, companyID uuid.UUID, path, password string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return 0, err
	}
	for _, h := range requiredHeaders {
		if !slices.Contains(headers, h) {
			return 0, errors.New("缺少列: " + h)
		}
	}

	departments, err := r.GetDepartmentsByCompany(companyID)
	if err != nil {
		return 0, err
	}
	departmentByName := make(map[string]uuid.UUID, len(departments))
	for _, d := range departments {
		departmentByName[d.Name] = d.ID
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	cnt := 0
	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return cnt, err
		}

		record := make(map[string]string)
		for i, value := range row {
			record[headers[i]] = strings.TrimSpace(value)
		}

		username := record["用户名"]
		if username == "" {
			slog.Error("没有找到用户名", "record", record)
			continue
		}

		if _, err := r.GetEmployeeByUsername(username); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("获取员工失败", "error", err)
			continue
		}

		role := domain.Role(record["角色"])
		if !role.Valid() {
			slog.Error("角色非法", "username", username, "role", record["角色"])
			continue
		}

		// 部门不存在时自动创建
		departmentID, ok := departmentByName[record["部门"]]
		if !ok {
			d := &domain.Department{CompanyID: companyID, Name: record["部门"]}
			if err := r.CreateDepartment(d); err != nil {
				slog.Error("插入部门失败", "error", err)
				continue
			}
			departmentID = d.ID
			departmentByName[d.Name] = d.ID
		}

		e := &domain.Employee{
			CompanyID:    companyID,
			DepartmentID: &departmentID,
			Username:     username,
			PasswordHash: string(passwordHash),
			FirstName:    record["名"],
			LastName:     record["姓"],
			Email:        record["邮箱"],
			Role:         role,
		}
		if err := r.CreateEmployee(e); err != nil {
			slog.Error("插入员工失败", "error", err)
			continue
		}

		cnt++
	}

	return cnt, nil
}
