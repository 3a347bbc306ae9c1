package handler

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/peoplehub/peoplehub-backend/internal/hr/service"
	"github.com/peoplehub/peoplehub-backend/pkg/config"
	"github.com/peoplehub/peoplehub-backend/pkg/errors"
	"github.com/peoplehub/peoplehub-backend/pkg/httputil"
	"github.com/peoplehub/peoplehub-backend/pkg/i18n"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
)

// formMemory is how much of a multipart upload is buffered before spilling
// to a temp file
const formMemory = 8 << 20

// Importer is implemented by *service.ImportService
type Importer interface {
	ImportEmployees(ctx context.Context, r io.Reader, meta service.ImportMeta) (*service.ImportResult, error)
}

// ImportHandler accepts spreadsheet uploads
type ImportHandler struct {
	importer Importer
	config   config.ImportConfig
	logger   *logger.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importer Importer, cfg config.ImportConfig, log *logger.Logger) *ImportHandler {
	return &ImportHandler{
		importer: importer,
		config:   cfg,
		logger:   log.WithComponent("import"),
	}
}

// Import reads the .xlsx in the multipart field "file" and upserts its rows
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			httputil.ErrorLocalized(w, r, errors.TooLarge("upload exceeds limit").WithKey("import.too_large"))
			return
		}
		httputil.ErrorLocalized(w, r, errors.BadRequest("expected a multipart upload").WithKey("import.no_file"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.ErrorLocalized(w, r, errors.BadRequest("no file uploaded").WithKey("import.no_file"))
		return
	}

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		file.Close()
		httputil.ErrorLocalized(w, r, errors.BadRequest("only .xlsx files are accepted").WithKey("import.invalid_extension"))
		return
	}

	ctx := r.Context()
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	meta := service.ImportMeta{
		FileName:         header.Filename,
		RequestedBy:      httputil.GetUserID(r.Context()),
		RequestedByEmail: httputil.GetUserEmail(r.Context()),
	}

	// The importer closes file.
	result, err := h.importer.ImportEmployees(ctx, file, meta)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("file", header.Filename).
			Str("request_id", httputil.GetRequestID(r.Context())).
			Msg("import failed")
		httputil.ErrorLocalized(w, r, importFailure(ctx, err))
		return
	}

	httputil.JSONWithMessage(w, http.StatusOK, result, i18n.TFromContext(r.Context(), "import.completed"))
}

func importFailure(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrMalformedFile):
		return errors.BadRequest("file is not a readable workbook").WithKey("import.malformed_file")
	case errors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.New("IMPORT_TIMEOUT", "import timed out", http.StatusGatewayTimeout).WithKey("import.timeout")
	default:
		return errors.Internal("import rolled back").WithKey("import.persistence_failure")
	}
}
