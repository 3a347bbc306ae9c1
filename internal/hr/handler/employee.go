package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/internal/hr/service"
	"github.com/peoplehub/peoplehub-backend/pkg/errors"
	"github.com/peoplehub/peoplehub-backend/pkg/httputil"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// EmployeeService is implemented by *service.StaffService
type EmployeeService interface {
	Create(ctx context.Context, emp *domain.Employee) error
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	GetByEmail(ctx context.Context, email string) (*domain.Employee, error)
	List(ctx context.Context, page, pageSize int) (*service.EmployeePage, error)
	Update(ctx context.Context, emp *domain.Employee) error
	Delete(ctx context.Context, id string) error
}

// ResumeRenderer is implemented by *service.ResumeService
type ResumeRenderer interface {
	Generate(emp *domain.Employee) ([]byte, error)
}

// EmployeeHandler handles employee endpoints
type EmployeeHandler struct {
	service EmployeeService
	resumes ResumeRenderer
	logger  *logger.Logger
}

// NewEmployeeHandler creates a new employee handler
func NewEmployeeHandler(svc EmployeeService, resumes ResumeRenderer, log *logger.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		service: svc,
		resumes: resumes,
		logger:  log,
	}
}

// EmployeeRequest is the body of create and update calls. Dates use
// YYYY-MM-DD.
type EmployeeRequest struct {
	Document            string          `json:"document" validate:"required,max=50"`
	FirstName           string          `json:"first_name" validate:"required,max=150"`
	LastName            string          `json:"last_name" validate:"required,max=150"`
	Email               *string         `json:"email" validate:"omitempty,email,max=255"`
	Phone               *string         `json:"phone" validate:"omitempty,max=50"`
	Address             *string         `json:"address" validate:"omitempty,max=255"`
	Salary              decimal.Decimal `json:"salary"`
	Position            *string         `json:"position" validate:"omitempty,max=150"`
	HireDate            string          `json:"hire_date" validate:"omitempty,datetime=2006-01-02"`
	BirthDate           string          `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Status              string          `json:"status" validate:"omitempty,max=50"`
	ProfessionalProfile *string         `json:"professional_profile"`
	DepartmentID        *string         `json:"department_id" validate:"omitempty,uuid"`
}

func (req *EmployeeRequest) toDomain(id string) (*domain.Employee, error) {
	if req.Salary.IsNegative() {
		return nil, errors.Validation(map[string]string{"salary": "must be greater than or equal to 0"})
	}

	emp := &domain.Employee{
		ID:                  id,
		Document:            strings.TrimSpace(req.Document),
		FirstName:           strings.TrimSpace(req.FirstName),
		LastName:            strings.TrimSpace(req.LastName),
		Email:               blankToNil(req.Email),
		Phone:               blankToNil(req.Phone),
		Address:             blankToNil(req.Address),
		Salary:              req.Salary,
		Position:            blankToNil(req.Position),
		Status:              strings.TrimSpace(req.Status),
		ProfessionalProfile: blankToNil(req.ProfessionalProfile),
		DepartmentID:        blankToNil(req.DepartmentID),
	}
	// Layout already checked by the validator.
	if req.HireDate != "" {
		emp.HireDate, _ = time.Parse(dateLayout, req.HireDate)
	}
	if req.BirthDate != "" {
		birth, _ := time.Parse(dateLayout, req.BirthDate)
		emp.BirthDate = &birth
	}
	return emp, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	return domain.StringPtr(strings.TrimSpace(*s))
}

// List lists employees, ?page=&page_size=
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	page := httputil.QueryInt(r, "page", service.DefaultPage)
	pageSize := httputil.QueryInt(r, "page_size", service.DefaultPageSize)

	result, err := h.service.List(r.Context(), page, pageSize)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, result.Items, httputil.NewMeta(result.Page, result.PageSize, result.Total))
}

// Get gets an employee by ID
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	employee, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, employee)
}

// Create creates a new employee
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.decode(w, r, "")
	if !ok {
		return
	}

	if err := h.service.Create(r.Context(), emp); err != nil {
		h.logger.Error().Err(err).Str("document", emp.Document).Msg("failed to create employee")
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.Created(w, emp)
}

// Update replaces an employee's editable fields
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.decode(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Update(r.Context(), emp); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, emp)
}

// Delete deletes an employee
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.NoContent(w)
}

// Profile returns the employee record of the signed-in user
func (h *EmployeeHandler) Profile(w http.ResponseWriter, r *http.Request) {
	emp, err := h.profile(r)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, emp)
}

// Resume downloads the signed-in user's resume as a PDF
func (h *EmployeeHandler) Resume(w http.ResponseWriter, r *http.Request) {
	emp, err := h.profile(r)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	pdf, err := h.resumes.Generate(emp)
	if err != nil {
		h.logger.Error().Err(err).Str("employee_id", emp.ID).Msg("failed to render resume")
		httputil.ErrorLocalized(w, r, errors.Internal("failed to render resume"))
		return
	}

	httputil.Attachment(w, "application/pdf", service.ResumeFileName(emp), pdf)
}

func (h *EmployeeHandler) profile(r *http.Request) (*domain.Employee, error) {
	email := httputil.GetUserEmail(r.Context())
	if email == "" {
		return nil, errors.Unauthorized("not authenticated")
	}
	return h.service.GetByEmail(r.Context(), email)
}

func (h *EmployeeHandler) decode(w http.ResponseWriter, r *http.Request, id string) (*domain.Employee, bool) {
	var req EmployeeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return nil, false
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return nil, false
	}
	emp, err := req.toDomain(id)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return nil, false
	}
	return emp, true
}
