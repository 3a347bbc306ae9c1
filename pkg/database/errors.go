package database

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/peoplehub/peoplehub-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return mapUniqueConstraint(pqErr)

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist").WithKey("errors.foreign_key")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "document_not_blank"):
		return errors.Validation(map[string]string{
			"document": "must not be empty",
		})

	case strings.Contains(constraint, "education_level_not_blank"):
		return errors.Validation(map[string]string{
			"education_level": "must not be empty",
		})

	case strings.Contains(constraint, "role_valid"):
		return errors.Validation(map[string]string{
			"role": "must be one of: admin, employee",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func mapUniqueConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "employees_document"):
		return errors.Conflict("an employee with this document already exists").WithKey("errors.duplicate_document")
	case strings.Contains(constraint, "departments_name"):
		return errors.Conflict("a department with this name already exists").WithKey("errors.duplicate_department")
	case strings.Contains(constraint, "email"):
		return errors.Conflict("this email is already registered").WithKey("errors.duplicate_email")
	default:
		return errors.Conflict("a record with these values already exists")
	}
}
