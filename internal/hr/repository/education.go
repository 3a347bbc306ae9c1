package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/pkg/database"
	"github.com/peoplehub/peoplehub-backend/pkg/errors"
)

const educationColumns = `id, employee_id, education_level, professional_profile, created_at, updated_at`

// EducationRepository handles employee education records
type EducationRepository struct {
	db *database.DB
}

// NewEducationRepository creates a new education repository
func NewEducationRepository(db *database.DB) *EducationRepository {
	return &EducationRepository{db: db}
}

// ListByEmployee returns an employee's education records, oldest first
func (r *EducationRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*domain.EmployeeEducation, error) {
	byEmployee, err := educationByEmployees(ctx, r.db, []string{employeeID})
	if err != nil {
		return nil, err
	}
	if records := byEmployee[employeeID]; records != nil {
		return records, nil
	}
	return []*domain.EmployeeEducation{}, nil
}

// Create inserts an education record
func (r *EducationRepository) Create(ctx context.Context, ed *domain.EmployeeEducation) error {
	return createEducation(ctx, r.db, ed)
}

// Update overwrites an education record's professional profile
func (r *EducationRepository) Update(ctx context.Context, ed *domain.EmployeeEducation) error {
	return updateEducation(ctx, r.db, ed)
}

func educationByEmployees(ctx context.Context, q sqlx.ExtContext, employeeIDs []string) (map[string][]*domain.EmployeeEducation, error) {
	out := make(map[string][]*domain.EmployeeEducation)
	if len(employeeIDs) == 0 {
		return out, nil
	}

	var records []*domain.EmployeeEducation
	query := `SELECT ` + educationColumns + ` FROM employee_education WHERE employee_id = ANY($1) ORDER BY created_at, education_level`
	if err := sqlx.SelectContext(ctx, q, &records, query, pq.Array(employeeIDs)); err != nil {
		return nil, err
	}

	for _, rec := range records {
		out[rec.EmployeeID] = append(out[rec.EmployeeID], rec)
	}
	return out, nil
}

func createEducation(ctx context.Context, q sqlx.ExtContext, ed *domain.EmployeeEducation) error {
	if ed.ID == "" {
		ed.ID = uuid.New().String()
	}

	query := `
		INSERT INTO employee_education (id, employee_id, education_level, professional_profile)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := q.QueryRowxContext(ctx, query, ed.ID, ed.EmployeeID, ed.EducationLevel, ed.ProfessionalProfile).
		Scan(&ed.CreatedAt, &ed.UpdatedAt)
	return mapWriteError(err)
}

func updateEducation(ctx context.Context, q sqlx.ExtContext, ed *domain.EmployeeEducation) error {
	query := `
		UPDATE employee_education SET professional_profile = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := q.QueryRowxContext(ctx, query, ed.ID, ed.ProfessionalProfile).Scan(&ed.UpdatedAt)
	if isNoRows(err) {
		return errors.NotFound("education")
	}
	return mapWriteError(err)
}
