package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/pkg/database"
	"github.com/peoplehub/peoplehub-backend/pkg/errors"
)

const employeeColumns = `
	e.id, e.document, e.first_name, e.last_name, e.email, e.phone, e.address,
	e.salary, e.position, e.hire_date, e.birth_date, e.status,
	e.professional_profile, e.department_id, e.created_at, e.updated_at`

// employeeRow carries the joined department name
type employeeRow struct {
	domain.Employee
	DepartmentName sql.NullString `db:"department_name"`
}

func (row *employeeRow) toDomain() *domain.Employee {
	emp := row.Employee
	if row.DepartmentID != nil && row.DepartmentName.Valid {
		emp.Department = &domain.Department{ID: *row.DepartmentID, Name: row.DepartmentName.String}
	}
	return &emp
}

const selectEmployeeWithDepartment = `
	SELECT ` + employeeColumns + `, d.name AS department_name
	FROM employees e
	LEFT JOIN departments d ON d.id = e.department_id`

// EmployeeRepository handles employee persistence
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create creates a new employee
func (r *EmployeeRepository) Create(ctx context.Context, emp *domain.Employee) error {
	return createEmployee(ctx, r.db, emp)
}

// GetByID gets an employee with department and education
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	return r.getOne(ctx, selectEmployeeWithDepartment+` WHERE e.id = $1`, id)
}

// GetByEmail gets the oldest employee whose email matches, ignoring case
func (r *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	return r.getOne(ctx, selectEmployeeWithDepartment+` WHERE lower(e.email) = lower($1) ORDER BY e.created_at LIMIT 1`, email)
}

func (r *EmployeeRepository) getOne(ctx context.Context, query string, arg any) (*domain.Employee, error) {
	var row employeeRow
	err := r.db.GetContext(ctx, &row, query, arg)
	if isNoRows(err) {
		return nil, errors.NotFound("employee")
	}
	if err != nil {
		return nil, err
	}

	emp := row.toDomain()
	education, err := educationByEmployees(ctx, r.db, []string{emp.ID})
	if err != nil {
		return nil, err
	}
	emp.Education = education[emp.ID]
	return emp, nil
}

// List lists employees with pagination, ordered by name
func (r *EmployeeRepository) List(ctx context.Context, page, perPage int) ([]*domain.Employee, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM employees`); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	query := selectEmployeeWithDepartment + `
		ORDER BY e.last_name, e.first_name, e.document
		LIMIT $1 OFFSET $2`

	var rows []employeeRow
	if err := r.db.SelectContext(ctx, &rows, query, perPage, offset); err != nil {
		return nil, 0, err
	}

	employees := make([]*domain.Employee, 0, len(rows))
	for i := range rows {
		employees = append(employees, rows[i].toDomain())
	}
	return employees, total, nil
}

// Update updates an employee
func (r *EmployeeRepository) Update(ctx context.Context, emp *domain.Employee) error {
	return updateEmployee(ctx, r.db, emp)
}

// Delete removes an employee; education rows cascade
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return mapWriteError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("employee")
	}
	return nil
}

// ByDocuments returns employees whose document is in documents, with education
func (r *EmployeeRepository) ByDocuments(ctx context.Context, documents []string) ([]*domain.Employee, error) {
	return employeesByDocuments(ctx, r.db, documents)
}

func createEmployee(ctx context.Context, q sqlx.ExtContext, emp *domain.Employee) error {
	if emp.ID == "" {
		emp.ID = uuid.New().String()
	}
	if emp.Status == "" {
		emp.Status = domain.StatusActive
	}

	query := `
		INSERT INTO employees (
			id, document, first_name, last_name, email, phone, address,
			salary, position, hire_date, birth_date, status,
			professional_profile, department_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		) RETURNING created_at, updated_at
	`

	err := q.QueryRowxContext(ctx, query,
		emp.ID, emp.Document, emp.FirstName, emp.LastName, emp.Email, emp.Phone, emp.Address,
		emp.Salary, emp.Position, emp.HireDate, emp.BirthDate, emp.Status,
		emp.ProfessionalProfile, emp.DepartmentID,
	).Scan(&emp.CreatedAt, &emp.UpdatedAt)
	return mapWriteError(err)
}

func updateEmployee(ctx context.Context, q sqlx.ExtContext, emp *domain.Employee) error {
	query := `
		UPDATE employees SET
			document = $2, first_name = $3, last_name = $4, email = $5, phone = $6, address = $7,
			salary = $8, position = $9, hire_date = $10, birth_date = $11, status = $12,
			professional_profile = $13, department_id = $14, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := q.QueryRowxContext(ctx, query,
		emp.ID, emp.Document, emp.FirstName, emp.LastName, emp.Email, emp.Phone, emp.Address,
		emp.Salary, emp.Position, emp.HireDate, emp.BirthDate, emp.Status,
		emp.ProfessionalProfile, emp.DepartmentID,
	).Scan(&emp.UpdatedAt)
	if isNoRows(err) {
		return errors.NotFound("employee")
	}
	return mapWriteError(err)
}

func employeesByDocuments(ctx context.Context, q sqlx.ExtContext, documents []string) ([]*domain.Employee, error) {
	employees := []*domain.Employee{}
	if len(documents) == 0 {
		return employees, nil
	}

	query := `SELECT ` + employeeColumns + ` FROM employees e WHERE e.document = ANY($1)`
	if err := sqlx.SelectContext(ctx, q, &employees, query, pq.Array(documents)); err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return employees, nil
	}

	ids := make([]string, 0, len(employees))
	for _, emp := range employees {
		ids = append(ids, emp.ID)
	}
	education, err := educationByEmployees(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for _, emp := range employees {
		emp.Education = education[emp.ID]
	}
	return employees, nil
}
