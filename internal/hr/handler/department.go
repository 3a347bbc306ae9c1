// Package handler exposes the HR services over HTTP
package handler

import (
	"context"
	"net/http"

	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/pkg/httputil"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
)

// DepartmentLister is implemented by *service.DepartmentService
type DepartmentLister interface {
	List(ctx context.Context) ([]*domain.Department, error)
}

// DepartmentHandler handles department endpoints
type DepartmentHandler struct {
	service DepartmentLister
	logger  *logger.Logger
}

// NewDepartmentHandler creates a new department handler
func NewDepartmentHandler(svc DepartmentLister, log *logger.Logger) *DepartmentHandler {
	return &DepartmentHandler{service: svc, logger: log}
}

// List lists all departments
func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	departments, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list departments")
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, departments)
}
