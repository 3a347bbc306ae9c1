package handler_test

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/internal/hr/handler"
	"github.com/peoplehub/peoplehub-backend/internal/hr/service"
	"github.com/peoplehub/peoplehub-backend/pkg/httputil"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/stretchr/testify/mock"
)

type mockEmployees struct{ mock.Mock }

func (m *mockEmployees) Create(ctx context.Context, emp *domain.Employee) error {
	return m.Called(ctx, emp).Error(0)
}

func (m *mockEmployees) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	args := m.Called(ctx, id)
	emp, _ := args.Get(0).(*domain.Employee)
	return emp, args.Error(1)
}

func (m *mockEmployees) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	args := m.Called(ctx, email)
	emp, _ := args.Get(0).(*domain.Employee)
	return emp, args.Error(1)
}

func (m *mockEmployees) List(ctx context.Context, page, pageSize int) (*service.EmployeePage, error) {
	args := m.Called(ctx, page, pageSize)
	result, _ := args.Get(0).(*service.EmployeePage)
	return result, args.Error(1)
}

func (m *mockEmployees) Update(ctx context.Context, emp *domain.Employee) error {
	return m.Called(ctx, emp).Error(0)
}

func (m *mockEmployees) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type departmentsFunc func(ctx context.Context) ([]*domain.Department, error)

func (f departmentsFunc) List(ctx context.Context) ([]*domain.Department, error) { return f(ctx) }

// asUser simulates Authenticate for routes under test
func asUser(email, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := httputil.WithUserContext(r.Context(), "u1", email, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func employeeRouter(svc handler.EmployeeService, email string) http.Handler {
	h := handler.NewEmployeeHandler(svc, service.NewResumeService(), logger.Nop())

	r := chi.NewRouter()
	r.Use(asUser(email, "admin"))
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/profile", h.Profile)
		r.Get("/profile/resume", h.Resume)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r
}
