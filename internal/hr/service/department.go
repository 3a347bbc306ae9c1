package service

import (
	"context"

	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
)

// DepartmentLister lists departments
type DepartmentLister interface {
	List(ctx context.Context) ([]*domain.Department, error)
}

// DepartmentService exposes departments read-only; the importer creates them
type DepartmentService struct {
	departments DepartmentLister
}

// NewDepartmentService creates a new department service
func NewDepartmentService(departments DepartmentLister) *DepartmentService {
	return &DepartmentService{departments: departments}
}

// List returns all departments ordered by name
func (s *DepartmentService) List(ctx context.Context) ([]*domain.Department, error) {
	return s.departments.List(ctx)
}
