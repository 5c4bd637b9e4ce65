package repository

import (
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

const employeeColumns = `
	id, company_id, department_id, active_department_id, username, password_hash,
	first_name, last_name, email, role, is_active, resigned, created_at, version
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*domain.Employee, error) {
	e := &domain.Employee{}
	dst := []any{
		&e.ID, &e.CompanyID, &e.DepartmentID, &e.ActiveDepartmentID, &e.Username, &e.PasswordHash,
		&e.FirstName, &e.LastName, &e.Email, &e.Role, &e.IsActive, &e.Resigned, &e.CreatedAt, &e.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *Repository) GetEmployeeByID(id uuid.UUID) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	return scanEmployee(r.dbpool.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetEmployeeByUsername(username string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE username = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	return scanEmployee(r.dbpool.QueryRowContext(ctx, query, username))
}

func (r *Repository) queryEmployees(query string, args ...any) ([]*domain.Employee, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]*domain.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return employees, nil
}

func (r *Repository) GetEmployeesByCompany(companyID uuid.UUID) ([]*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE company_id = $1 ORDER BY last_name, first_name`
	return r.queryEmployees(query, companyID)
}

func (r *Repository) GetEmployeesByIDs(ids []uuid.UUID) ([]*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = ANY($1::uuid[])`
	return r.queryEmployees(query, uuidStrings(ids))
}

// GetAudience 返回公司中仍在职的员工，departmentIDs 不为空时只返回这些部门的员工
func (r *Repository) GetAudience(companyID uuid.UUID, departmentIDs []uuid.UUID) ([]*domain.Employee, error) {
	if len(departmentIDs) == 0 {
		query := `SELECT ` + employeeColumns + ` FROM employees WHERE company_id = $1 AND NOT resigned`
		return r.queryEmployees(query, companyID)
	}

	query := `
		SELECT ` + employeeColumns + ` FROM employees
		WHERE company_id = $1 AND NOT resigned AND department_id = ANY($2::uuid[])
	`
	return r.queryEmployees(query, companyID, uuidStrings(departmentIDs))
}

func (r *Repository) CreateEmployee(e *domain.Employee) error {
	query := `
		INSERT INTO employees (id, company_id, department_id, username, password_hash, first_name, last_name, email, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING resigned, created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	args := []any{e.ID, e.CompanyID, e.DepartmentID, e.Username, e.PasswordHash, e.FirstName, e.LastName, e.Email, e.Role, e.IsActive}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&e.Resigned, &e.CreatedAt, &e.Version)
}

func (r *Repository) ActivateEmployee(id uuid.UUID) error {
	query := `UPDATE employees SET is_active = TRUE, version = version + 1 WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	return err
}

func (r *Repository) UpdateActiveDepartment(e *domain.Employee) error {
	query := `
		UPDATE employees
		SET active_department_id = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	return r.dbpool.QueryRowContext(ctx, query, e.ActiveDepartmentID, e.ID, e.Version).Scan(&e.Version)
}

func (r *Repository) CreateCompany(c *domain.Company) error {
	query := `INSERT INTO companies (id, name) VALUES ($1, $2) RETURNING created_at`

	ctx, cancel := r.queryContext()
	defer cancel()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.dbpool.QueryRowContext(ctx, query, c.ID, c.Name).Scan(&c.CreatedAt)
}

func (r *Repository) CreateDepartment(d *domain.Department) error {
	query := `INSERT INTO departments (id, company_id, name) VALUES ($1, $2, $3) RETURNING created_at`

	ctx, cancel := r.queryContext()
	defer cancel()

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return r.dbpool.QueryRowContext(ctx, query, d.ID, d.CompanyID, d.Name).Scan(&d.CreatedAt)
}

func (r *Repository) GetDepartmentByID(id uuid.UUID) (*domain.Department, error) {
	query := `SELECT company_id, name, created_at FROM departments WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	d := &domain.Department{ID: id}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&d.CompanyID, &d.Name, &d.CreatedAt); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *Repository) GetDepartmentsByCompany(companyID uuid.UUID) ([]*domain.Department, error) {
	query := `SELECT id, company_id, name, created_at FROM departments WHERE company_id = $1 ORDER BY name`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	departments := make([]*domain.Department, 0)
	for rows.Next() {
		d := &domain.Department{}
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return departments, nil
}
