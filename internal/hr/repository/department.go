package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/pkg/database"
	"github.com/peoplehub/peoplehub-backend/pkg/errors"
)

const departmentColumns = `id, name, created_at, updated_at`

// DepartmentRepository handles department persistence
type DepartmentRepository struct {
	db *database.DB
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *database.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns every department ordered by name
func (r *DepartmentRepository) List(ctx context.Context) ([]*domain.Department, error) {
	departments := []*domain.Department{}
	query := `SELECT ` + departmentColumns + ` FROM departments ORDER BY name`
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, err
	}
	return departments, nil
}

// GetByID gets a department by ID
func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	var dept domain.Department
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = $1`
	err := r.db.GetContext(ctx, &dept, query, id)
	if isNoRows(err) {
		return nil, errors.NotFound("department")
	}
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

// Create inserts a department
func (r *DepartmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	return createDepartment(ctx, r.db, dept)
}

// ByNames returns departments whose name matches any of names, ignoring case
func (r *DepartmentRepository) ByNames(ctx context.Context, names []string) ([]*domain.Department, error) {
	return departmentsByNames(ctx, r.db, names)
}

func createDepartment(ctx context.Context, q sqlx.ExtContext, dept *domain.Department) error {
	if dept.ID == "" {
		dept.ID = uuid.New().String()
	}
	dept.Name = strings.TrimSpace(dept.Name)

	query := `
		INSERT INTO departments (id, name)
		VALUES ($1, $2)
		RETURNING created_at, updated_at
	`
	err := q.QueryRowxContext(ctx, query, dept.ID, dept.Name).Scan(&dept.CreatedAt, &dept.UpdatedAt)
	return mapWriteError(err)
}

func departmentsByNames(ctx context.Context, q sqlx.ExtContext, names []string) ([]*domain.Department, error) {
	departments := []*domain.Department{}
	if len(names) == 0 {
		return departments, nil
	}

	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, domain.NameKey(n))
	}

	query := `SELECT ` + departmentColumns + ` FROM departments WHERE lower(name) = ANY($1)`
	if err := sqlx.SelectContext(ctx, q, &departments, query, pq.Array(keys)); err != nil {
		return nil, err
	}
	return departments, nil
}
