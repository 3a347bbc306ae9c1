package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/internal/hr/handler"
	"github.com/peoplehub/peoplehub-backend/internal/hr/service"
	"github.com/peoplehub/peoplehub-backend/pkg/errors"
	"github.com/peoplehub/peoplehub-backend/pkg/httputil"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/peoplehub/peoplehub-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDepartmentHandler_List(t *testing.T) {
	h := handler.NewDepartmentHandler(departmentsFunc(func(ctx context.Context) ([]*domain.Department, error) {
		return []*domain.Department{testutil.Department("Finance"), testutil.Department("Sales")}, nil
	}), logger.Nop())

	rr := testutil.ExecuteRequest(http.HandlerFunc(h.List), testutil.NewHTTPRequest(http.MethodGet, "/departments", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	var departments []domain.Department
	testutil.ParseEnvelope(t, rr, &departments)
	require.Len(t, departments, 2)
	assert.Equal(t, "Finance", departments[0].Name)
}

func TestEmployeeHandler_List(t *testing.T) {
	svc := &mockEmployees{}
	svc.On("List", mock.Anything, 2, 5).Return(&service.EmployeePage{
		Items:    []*domain.Employee{testutil.Employee("1", "Ana", "Lopez")},
		Page:     2,
		PageSize: 5,
		Total:    11,
	}, nil)

	rr := testutil.ExecuteRequest(employeeRouter(svc, "admin@example.com"),
		testutil.NewHTTPRequest(http.MethodGet, "/employees?page=2&page_size=5", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, `"total_pages":3`)
	testutil.AssertBodyContains(t, rr, `"total":11`)
	svc.AssertExpectations(t)
}

func TestEmployeeHandler_ListDefaults(t *testing.T) {
	svc := &mockEmployees{}
	svc.On("List", mock.Anything, service.DefaultPage, service.DefaultPageSize).
		Return(&service.EmployeePage{Items: []*domain.Employee{}, Page: 1, PageSize: 10}, nil)

	rr := testutil.ExecuteRequest(employeeRouter(svc, "admin@example.com"),
		testutil.NewHTTPRequest(http.MethodGet, "/employees?page=abc", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	svc.AssertExpectations(t)
}

func TestEmployeeHandler_Create(t *testing.T) {
	svc := &mockEmployees{}
	svc.On("Create", mock.Anything, mock.MatchedBy(func(emp *domain.Employee) bool {
		return emp.Document == "123" &&
			emp.Salary.Equal(decimal.RequireFromString("2500.50")) &&
			emp.HireDate.Equal(time.Date(2023, time.May, 2, 0, 0, 0, 0, time.UTC)) &&
			emp.BirthDate != nil && emp.BirthDate.Year() == 1990 &&
			emp.Email == nil && emp.Phone == nil &&
			domain.Deref(emp.Position) == "Analyst"
	})).Return(nil)

	body := map[string]any{
		"document":   " 123 ",
		"first_name": "Ana",
		"last_name":  "Lopez",
		"phone":      "  ",
		"salary":     "2500.50",
		"position":   "Analyst",
		"hire_date":  "2023-05-02",
		"birth_date": "1990-07-14",
	}
	rr := testutil.ExecuteRequest(employeeRouter(svc, "admin@example.com"),
		testutil.NewHTTPRequest(http.MethodPost, "/employees", body))

	testutil.AssertStatus(t, rr, http.StatusCreated)
	svc.AssertExpectations(t)
}

func TestEmployeeHandler_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing document", map[string]any{"first_name": "Ana", "last_name": "Lopez"}, "document"},
		{"bad date", map[string]any{"document": "1", "first_name": "Ana", "last_name": "Lopez", "hire_date": "02/05/2023"}, "hire_date"},
		{"bad email", map[string]any{"document": "1", "first_name": "Ana", "last_name": "Lopez", "email": "nope"}, "email"},
		{"negative salary", map[string]any{"document": "1", "first_name": "Ana", "last_name": "Lopez", "salary": -1}, "salary"},
		{"bad department", map[string]any{"document": "1", "first_name": "Ana", "last_name": "Lopez", "department_id": "sales"}, "department_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockEmployees{}
			rr := testutil.ExecuteRequest(employeeRouter(svc, "admin@example.com"),
				testutil.NewHTTPRequest(http.MethodPost, "/employees", tt.body))

			testutil.AssertStatus(t, rr, http.StatusBadRequest)
			env := testutil.ParseEnvelope(t, rr, nil)
			require.NotNil(t, env.Error)
			assert.Contains(t, env.Error.Details, tt.field)
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestEmployeeHandler_GetNotFound(t *testing.T) {
	svc := &mockEmployees{}
	svc.On("GetByID", mock.Anything, "missing").Return(nil, errors.NotFound("employee"))

	rr := testutil.ExecuteRequest(employeeRouter(svc, "admin@example.com"),
		testutil.NewHTTPRequest(http.MethodGet, "/employees/missing", nil))

	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestEmployeeHandler_UpdateAndDelete(t *testing.T) {
	svc := &mockEmployees{}
	svc.On("Update", mock.Anything, mock.MatchedBy(func(emp *domain.Employee) bool {
		return emp.ID == "e1" && emp.FirstName == "Ana"
	})).Return(nil)
	svc.On("Delete", mock.Anything, "e1").Return(nil)
	router := employeeRouter(svc, "admin@example.com")

	body := map[string]any{"document": "1", "first_name": "Ana", "last_name": "Lopez"}
	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPut, "/employees/e1", body))
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodDelete, "/employees/e1", nil))
	testutil.AssertStatus(t, rr, http.StatusNoContent)
	svc.AssertExpectations(t)
}

func TestEmployeeHandler_UpdateDuplicateDocument(t *testing.T) {
	svc := &mockEmployees{}
	svc.On("Update", mock.Anything, mock.Anything).
		Return(errors.Conflict("duplicate").WithKey("errors.duplicate_document"))

	body := map[string]any{"document": "1", "first_name": "Ana", "last_name": "Lopez"}
	req := testutil.NewHTTPRequest(http.MethodPut, "/employees/e1", body)
	req.Header.Set("Accept-Language", "es")
	rr := testutil.ExecuteRequest(employeeRouter(svc, "admin@example.com"), req)

	testutil.AssertStatus(t, rr, http.StatusConflict)
	testutil.AssertBodyContains(t, rr, "CONFLICT")
}

func TestEmployeeHandler_Profile(t *testing.T) {
	emp := testutil.Employee("123", "Ana", "Lopez")
	svc := &mockEmployees{}
	svc.On("GetByEmail", mock.Anything, "ana@example.com").Return(emp, nil)

	rr := testutil.ExecuteRequest(employeeRouter(svc, "ana@example.com"),
		testutil.NewHTTPRequest(http.MethodGet, "/employees/profile", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	var got domain.Employee
	testutil.ParseEnvelope(t, rr, &got)
	assert.Equal(t, emp.ID, got.ID)
	svc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestEmployeeHandler_Resume(t *testing.T) {
	emp := testutil.Employee("123", "Ana", "Lopez")
	emp.Position = domain.StringPtr("Analyst")
	svc := &mockEmployees{}
	svc.On("GetByEmail", mock.Anything, "ana@example.com").Return(emp, nil)

	rr := testutil.ExecuteRequest(employeeRouter(svc, "ana@example.com"),
		testutil.NewHTTPRequest(http.MethodGet, "/employees/profile/resume", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "Resume_Ana_Lopez.pdf")
	assert.Equal(t, "%PDF-", rr.Body.String()[:5])
}

func TestEmployeeHandler_ProfileWithoutEmployee(t *testing.T) {
	svc := &mockEmployees{}
	svc.On("GetByEmail", mock.Anything, "admin@example.com").Return(nil, errors.NotFound("employee"))

	rr := testutil.ExecuteRequest(employeeRouter(svc, "admin@example.com"),
		testutil.NewHTTPRequest(http.MethodGet, "/employees/profile/resume", nil))

	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestEmployeeHandler_ProfileRequiresIdentity(t *testing.T) {
	svc := &mockEmployees{}
	h := handler.NewEmployeeHandler(svc, service.NewResumeService(), logger.Nop())

	req := testutil.NewHTTPRequest(http.MethodGet, "/employees/profile", nil)
	req = req.WithContext(httputil.WithUserContext(req.Context(), "u1", "", "admin"))
	rr := testutil.ExecuteRequest(http.HandlerFunc(h.Profile), req)

	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}
