package database

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "duplicate document",
			err:        &pq.Error{Code: "23505", Constraint: "employees_document_key"},
			wantStatus: http.StatusConflict,
			wantMsg:    "an employee with this document already exists",
		},
		{
			name:       "duplicate department wrapped",
			err:        fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "departments_name_lower_idx"}),
			wantStatus: http.StatusConflict,
			wantMsg:    "a department with this name already exists",
		},
		{
			name:       "duplicate user email",
			err:        &pq.Error{Code: "23505", Constraint: "users_email_key"},
			wantStatus: http.StatusConflict,
			wantMsg:    "this email is already registered",
		},
		{
			name:       "foreign key",
			err:        &pq.Error{Code: "23503", Constraint: "employees_department_id_fkey"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "referenced record does not exist",
		},
		{
			name:       "not null",
			err:        &pq.Error{Code: "23502", Column: "first_name"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "validation failed",
		},
		{
			name:       "blank document check",
			err:        &pq.Error{Code: "23514", Constraint: "employees_document_not_blank"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapPQError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestMapPQError_NotPQ(t *testing.T) {
	assert.Nil(t, MapPQError(stderrors.New("plain")))
	assert.Nil(t, MapPQError(&pq.Error{Code: "40001"}))
}
