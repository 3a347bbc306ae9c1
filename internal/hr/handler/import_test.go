package handler_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/peoplehub/peoplehub-backend/internal/hr/handler"
	"github.com/peoplehub/peoplehub-backend/internal/hr/service"
	"github.com/peoplehub/peoplehub-backend/pkg/config"
	"github.com/peoplehub/peoplehub-backend/pkg/httputil"
	"github.com/peoplehub/peoplehub-backend/pkg/i18n"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/peoplehub/peoplehub-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type importerFunc func(ctx context.Context, r io.Reader, meta service.ImportMeta) (*service.ImportResult, error)

func (f importerFunc) ImportEmployees(ctx context.Context, r io.Reader, meta service.ImportMeta) (*service.ImportResult, error) {
	return f(ctx, r, meta)
}

var importConfig = config.ImportConfig{Timeout: time.Second, MaxUploadBytes: 1 << 20}

func asAdmin(req *http.Request) *http.Request {
	ctx := httputil.WithUserContext(req.Context(), "u1", "admin@example.com", "admin")
	return req.WithContext(ctx)
}

func TestImportHandler_Success(t *testing.T) {
	var gotMeta service.ImportMeta
	var gotBytes []byte
	h := handler.NewImportHandler(importerFunc(func(ctx context.Context, r io.Reader, meta service.ImportMeta) (*service.ImportResult, error) {
		gotMeta = meta
		gotBytes, _ = io.ReadAll(r)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return &service.ImportResult{ImportID: "imp-1", RowsRead: 2, EmployeesCreated: 2}, nil
	}), importConfig, logger.Nop())

	content := []byte("workbook-bytes")
	req := asAdmin(testutil.NewUploadRequest(t, "/employees/import", "file", "Staff.XLSX", content))
	rr := testutil.ExecuteRequest(http.HandlerFunc(h.Import), req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	var result service.ImportResult
	testutil.ParseEnvelope(t, rr, &result)
	assert.Equal(t, 2, result.EmployeesCreated)
	testutil.AssertBodyContains(t, rr, i18n.T("import.completed"))
	assert.Equal(t, content, gotBytes)
	assert.Equal(t, "Staff.XLSX", gotMeta.FileName)
	assert.Equal(t, "u1", gotMeta.RequestedBy)
	assert.Equal(t, "admin@example.com", gotMeta.RequestedByEmail)
}

func TestImportHandler_RejectsUploads(t *testing.T) {
	never := importerFunc(func(ctx context.Context, r io.Reader, meta service.ImportMeta) (*service.ImportResult, error) {
		t.Fatal("importer must not run")
		return nil, nil
	})

	tests := []struct {
		name   string
		cfg    config.ImportConfig
		req    func(t *testing.T) *http.Request
		status int
		key    string
	}{
		{
			name: "wrong extension",
			cfg:  importConfig,
			req: func(t *testing.T) *http.Request {
				return testutil.NewUploadRequest(t, "/employees/import", "file", "staff.csv", []byte("a,b"))
			},
			status: http.StatusBadRequest,
			key:    "import.invalid_extension",
		},
		{
			name: "wrong field",
			cfg:  importConfig,
			req: func(t *testing.T) *http.Request {
				return testutil.NewUploadRequest(t, "/employees/import", "upload", "staff.xlsx", []byte("x"))
			},
			status: http.StatusBadRequest,
			key:    "import.no_file",
		},
		{
			name: "not multipart",
			cfg:  importConfig,
			req: func(t *testing.T) *http.Request {
				return testutil.NewHTTPRequest(http.MethodPost, "/employees/import", map[string]string{"file": "x"})
			},
			status: http.StatusBadRequest,
			key:    "import.no_file",
		},
		{
			name: "too large",
			cfg:  config.ImportConfig{Timeout: time.Second, MaxUploadBytes: 64},
			req: func(t *testing.T) *http.Request {
				return testutil.NewUploadRequest(t, "/employees/import", "file", "staff.xlsx", bytes.Repeat([]byte("x"), 4096))
			},
			status: http.StatusRequestEntityTooLarge,
			key:    "import.too_large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewImportHandler(never, tt.cfg, logger.Nop())
			rr := testutil.ExecuteRequest(http.HandlerFunc(h.Import), asAdmin(tt.req(t)))

			testutil.AssertStatus(t, rr, tt.status)
			testutil.AssertBodyContains(t, rr, i18n.T(tt.key))
		})
	}
}

func TestImportHandler_MalformedFile(t *testing.T) {
	// A real importer: an unreadable workbook fails before the store is used.
	importer := service.NewImportService(nil, nil, service.ImportOptions{}, logger.Nop())
	h := handler.NewImportHandler(importer, importConfig, logger.Nop())

	req := asAdmin(testutil.NewUploadRequest(t, "/employees/import", "file", "staff.xlsx", []byte("not a zip")))
	rr := testutil.ExecuteRequest(http.HandlerFunc(h.Import), req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertBodyContains(t, rr, i18n.T("import.malformed_file"))
}

func TestImportHandler_PersistenceFailure(t *testing.T) {
	h := handler.NewImportHandler(importerFunc(func(ctx context.Context, r io.Reader, meta service.ImportMeta) (*service.ImportResult, error) {
		return nil, &service.ImportError{Kind: service.KindPersistenceFailure, Err: fmt.Errorf("connection reset")}
	}), importConfig, logger.Nop())

	req := asAdmin(testutil.NewUploadRequest(t, "/employees/import", "file", "staff.xlsx", []byte("x")))
	rr := testutil.ExecuteRequest(http.HandlerFunc(h.Import), req)

	testutil.AssertStatus(t, rr, http.StatusInternalServerError)
	testutil.AssertBodyContains(t, rr, i18n.T("import.persistence_failure"))
}

func TestImportHandler_Timeout(t *testing.T) {
	cfg := config.ImportConfig{Timeout: 20 * time.Millisecond, MaxUploadBytes: 1 << 20}
	h := handler.NewImportHandler(importerFunc(func(ctx context.Context, r io.Reader, meta service.ImportMeta) (*service.ImportResult, error) {
		<-ctx.Done()
		return nil, &service.ImportError{Kind: service.KindPersistenceFailure, Err: fmt.Errorf("pq: canceling statement due to user request")}
	}), cfg, logger.Nop())

	req := asAdmin(testutil.NewUploadRequest(t, "/employees/import", "file", "staff.xlsx", []byte("x")))
	rr := testutil.ExecuteRequest(http.HandlerFunc(h.Import), req)

	testutil.AssertStatus(t, rr, http.StatusGatewayTimeout)
	env := testutil.ParseEnvelope(t, rr, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "IMPORT_TIMEOUT", env.Error.Code)
}

func TestImportHandler_MalformedFileAfterDeadline(t *testing.T) {
	cfg := config.ImportConfig{Timeout: 20 * time.Millisecond, MaxUploadBytes: 1 << 20}
	h := handler.NewImportHandler(importerFunc(func(ctx context.Context, r io.Reader, meta service.ImportMeta) (*service.ImportResult, error) {
		<-ctx.Done()
		return nil, &service.ImportError{Kind: service.KindMalformedFile, Err: fmt.Errorf("zip: not a valid zip file")}
	}), cfg, logger.Nop())

	req := asAdmin(testutil.NewUploadRequest(t, "/employees/import", "file", "staff.xlsx", []byte("x")))
	rr := testutil.ExecuteRequest(http.HandlerFunc(h.Import), req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertBodyContains(t, rr, i18n.T("import.malformed_file"))
}
