package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/pkg/database"
)

// ImportTx is the set of operations the spreadsheet importer performs inside
// its unit of work. Bulk lookups take the whole key set of a batch.
type ImportTx interface {
	// DepartmentsByNames matches names case-insensitively
	DepartmentsByNames(ctx context.Context, names []string) ([]*domain.Department, error)
	CreateDepartment(ctx context.Context, dept *domain.Department) error
	// EmployeesByDocuments loads matching employees with their education
	EmployeesByDocuments(ctx context.Context, documents []string) ([]*domain.Employee, error)
	CreateEmployee(ctx context.Context, emp *domain.Employee) error
	UpdateEmployee(ctx context.Context, emp *domain.Employee) error
	CreateEducation(ctx context.Context, ed *domain.EmployeeEducation) error
	UpdateEducation(ctx context.Context, ed *domain.EmployeeEducation) error
}

// ImportStore runs import batches in a single PostgreSQL transaction
type ImportStore struct {
	db *database.DB
}

// NewImportStore creates a new import store
func NewImportStore(db *database.DB) *ImportStore {
	return &ImportStore{db: db}
}

// WithinTx runs fn in one transaction. Any error from fn, or a cancelled
// ctx, rolls back everything fn wrote.
func (s *ImportStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ImportTx) error) error {
	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(ctx, &importTx{tx: tx})
	})
}

type importTx struct {
	tx *sqlx.Tx
}

func (t *importTx) DepartmentsByNames(ctx context.Context, names []string) ([]*domain.Department, error) {
	return departmentsByNames(ctx, t.tx, names)
}

func (t *importTx) CreateDepartment(ctx context.Context, dept *domain.Department) error {
	return createDepartment(ctx, t.tx, dept)
}

func (t *importTx) EmployeesByDocuments(ctx context.Context, documents []string) ([]*domain.Employee, error) {
	return employeesByDocuments(ctx, t.tx, documents)
}

func (t *importTx) CreateEmployee(ctx context.Context, emp *domain.Employee) error {
	return createEmployee(ctx, t.tx, emp)
}

func (t *importTx) UpdateEmployee(ctx context.Context, emp *domain.Employee) error {
	return updateEmployee(ctx, t.tx, emp)
}

func (t *importTx) CreateEducation(ctx context.Context, ed *domain.EmployeeEducation) error {
	return createEducation(ctx, t.tx, ed)
}

func (t *importTx) UpdateEducation(ctx context.Context, ed *domain.EmployeeEducation) error {
	return updateEducation(ctx, t.tx, ed)
}
