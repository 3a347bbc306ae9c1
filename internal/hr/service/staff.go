// Package service holds the HR business logic: employee CRUD, the
// spreadsheet importer and resume rendering.
package service

import (
	"context"
	"time"

	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/internal/hr/events"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
)

// Paging defaults
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// EmployeeStore is the persistence the CRUD service needs
type EmployeeStore interface {
	Create(ctx context.Context, emp *domain.Employee) error
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	GetByEmail(ctx context.Context, email string) (*domain.Employee, error)
	List(ctx context.Context, page, perPage int) ([]*domain.Employee, int64, error)
	Update(ctx context.Context, emp *domain.Employee) error
	Delete(ctx context.Context, id string) error
}

// EmployeePage is one page of employees
type EmployeePage struct {
	Items    []*domain.Employee
	Page     int
	PageSize int
	Total    int64
}

// StaffService handles employee business logic
type StaffService struct {
	employees EmployeeStore
	publisher *events.HREventPublisher
	now       func() time.Time
	logger    *logger.Logger
}

// NewStaffService creates a new staff service
func NewStaffService(
	employees EmployeeStore,
	publisher *events.HREventPublisher,
	log *logger.Logger,
) *StaffService {
	return &StaffService{
		employees: employees,
		publisher: publisher,
		now:       time.Now,
		logger:    log,
	}
}

// Create creates a new employee. Blank status defaults to Active and a
// missing hire date to today.
func (s *StaffService) Create(ctx context.Context, emp *domain.Employee) error {
	if emp.Status == "" {
		emp.Status = domain.StatusActive
	}
	if emp.HireDate.IsZero() {
		emp.HireDate = dateOnly(s.now())
	}

	if err := s.employees.Create(ctx, emp); err != nil {
		return err
	}

	s.publisher.PublishEmployeeCreated(ctx, emp)

	s.logger.Info().
		Str("employee_id", emp.ID).
		Str("document", emp.Document).
		Msg("employee created")

	return nil
}

// GetByID gets an employee by ID
func (s *StaffService) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	return s.employees.GetByID(ctx, id)
}

// GetByEmail gets the employee linked to a login email
func (s *StaffService) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	return s.employees.GetByEmail(ctx, email)
}

// List lists employees. Non-positive page or size fall back to the defaults.
func (s *StaffService) List(ctx context.Context, page, pageSize int) (*EmployeePage, error) {
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	items, total, err := s.employees.List(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	return &EmployeePage{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

// Update overwrites an employee's editable fields
func (s *StaffService) Update(ctx context.Context, emp *domain.Employee) error {
	current, err := s.employees.GetByID(ctx, emp.ID)
	if err != nil {
		return err
	}

	if emp.Status == "" {
		emp.Status = current.Status
	}
	if emp.HireDate.IsZero() {
		emp.HireDate = current.HireDate
	}
	emp.CreatedAt = current.CreatedAt

	if err := s.employees.Update(ctx, emp); err != nil {
		return err
	}

	s.publisher.PublishEmployeeUpdated(ctx, emp)
	return nil
}

// Delete removes an employee and its education records
func (s *StaffService) Delete(ctx context.Context, id string) error {
	if err := s.employees.Delete(ctx, id); err != nil {
		return err
	}

	s.publisher.PublishEmployeeDeleted(ctx, id)

	s.logger.Info().Str("employee_id", id).Msg("employee deleted")
	return nil
}
