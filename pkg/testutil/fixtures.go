package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/shopspring/decimal"
)

// FixedNow is the clock used by fixtures and importer tests
var FixedNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

// Department returns a persisted-looking department
func Department(name string) *domain.Department {
	return &domain.Department{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: FixedNow,
		UpdatedAt: FixedNow,
	}
}

// Employee returns a persisted-looking employee with the given document
func Employee(document, first, last string) *domain.Employee {
	return &domain.Employee{
		ID:        uuid.New().String(),
		Document:  document,
		FirstName: first,
		LastName:  last,
		Salary:    decimal.Zero,
		HireDate:  time.Date(2020, time.January, 6, 0, 0, 0, 0, time.UTC),
		Status:    domain.StatusActive,
		CreatedAt: FixedNow,
		UpdatedAt: FixedNow,
	}
}
