// Package domain holds the HR entities shared by the repository, service and
// handler layers. Entities are flat records; the department relation is an
// optional foreign key.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Defaults applied when a value is missing
const (
	StatusActive        = "Active"
	ProfileNotSpecified = "Not Specified"
	NameUnknown         = "Unknown"
)

// Department groups employees. Name is unique case-insensitively.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NameKey is the case-insensitive lookup key for a department name
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Employee is keyed by Document, the national identification number
type Employee struct {
	ID                  string          `db:"id" json:"id"`
	Document            string          `db:"document" json:"document" validate:"required,max=50"`
	FirstName           string          `db:"first_name" json:"first_name" validate:"required,max=150"`
	LastName            string          `db:"last_name" json:"last_name" validate:"required,max=150"`
	Email               *string         `db:"email" json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone               *string         `db:"phone" json:"phone,omitempty" validate:"omitempty,max=50"`
	Address             *string         `db:"address" json:"address,omitempty" validate:"omitempty,max=255"`
	Salary              decimal.Decimal `db:"salary" json:"salary"`
	Position            *string         `db:"position" json:"position,omitempty" validate:"omitempty,max=150"`
	HireDate            time.Time       `db:"hire_date" json:"hire_date"`
	BirthDate           *time.Time      `db:"birth_date" json:"birth_date,omitempty"`
	Status              string          `db:"status" json:"status" validate:"omitempty,max=50"`
	ProfessionalProfile *string         `db:"professional_profile" json:"professional_profile,omitempty"`
	DepartmentID        *string         `db:"department_id" json:"department_id,omitempty" validate:"omitempty,uuid"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`

	// Populated by joins, never written
	Department *Department          `db:"-" json:"department,omitempty"`
	Education  []*EmployeeEducation `db:"-" json:"education,omitempty"`
}

// FullName joins first and last name
func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// EducationByLevel returns the education record whose level matches exactly
// (case-sensitive), or nil.
func (e *Employee) EducationByLevel(level string) *EmployeeEducation {
	for _, ed := range e.Education {
		if ed.EducationLevel == level {
			return ed
		}
	}
	return nil
}

// EmployeeEducation is unique per (employee, education level)
type EmployeeEducation struct {
	ID                  string    `db:"id" json:"id"`
	EmployeeID          string    `db:"employee_id" json:"employee_id"`
	EducationLevel      string    `db:"education_level" json:"education_level"`
	ProfessionalProfile string    `db:"professional_profile" json:"professional_profile"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// StringPtr returns nil for blank strings
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or ""
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
