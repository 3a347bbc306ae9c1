package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/internal/hr/events"
	"github.com/peoplehub/peoplehub-backend/internal/hr/repository"
	"github.com/peoplehub/peoplehub-backend/internal/hr/spreadsheet"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/peoplehub/peoplehub-backend/pkg/messaging"
	"github.com/shopspring/decimal"
)

// Import failure kinds
const (
	KindMalformedFile      = "malformed_file"
	KindPersistenceFailure = "persistence_failure"
)

var (
	// ErrMalformedFile matches uploads that are not a readable workbook
	ErrMalformedFile = spreadsheet.ErrMalformedFile
	// ErrPersistenceFailure matches batches that were rolled back
	ErrPersistenceFailure = stderrors.New("import persistence failure")
)

// ImportError is returned by ImportEmployees. errors.Is matches both the
// kind sentinel and the underlying cause, so a timed out batch also
// matches context.DeadlineExceeded.
type ImportError struct {
	Kind string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Kind, e.Err)
}

func (e *ImportError) Unwrap() []error {
	sentinel := ErrPersistenceFailure
	if e.Kind == KindMalformedFile {
		sentinel = ErrMalformedFile
	}
	return []error{sentinel, e.Err}
}

// ImportStore runs a batch as one unit of work
type ImportStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.ImportTx) error) error
}

// ImportOptions tunes parsing and diagnostics
type ImportOptions struct {
	Sheet  string
	Strict bool
}

// ImportMeta describes who uploaded what. It only feeds logs and the
// completion event.
type ImportMeta struct {
	FileName         string
	RequestedBy      string
	RequestedByEmail string
}

// RowDiagnostic reports a cell that could not be applied. Only collected in
// strict mode.
type RowDiagnostic struct {
	Row      int    `json:"row"`
	Document string `json:"document"`
	Field    string `json:"field"`
	Value    string `json:"value"`
	Reason   string `json:"reason"`
}

// ImportResult summarises a committed batch
type ImportResult struct {
	ImportID           string          `json:"import_id,omitempty"`
	RowsRead           int             `json:"rows_read"`
	RowsSkipped        int             `json:"rows_skipped"`
	DepartmentsCreated int             `json:"departments_created"`
	EmployeesCreated   int             `json:"employees_created"`
	EmployeesUpdated   int             `json:"employees_updated"`
	EducationCreated   int             `json:"education_created"`
	EducationUpdated   int             `json:"education_updated"`
	Diagnostics        []RowDiagnostic `json:"diagnostics,omitempty"`
}

// ImportService reconciles spreadsheet rows with stored employees
type ImportService struct {
	store     ImportStore
	publisher *events.HREventPublisher
	opts      ImportOptions
	now       func() time.Time
	logger    *logger.Logger
}

// ImportServiceOption configures an ImportService
type ImportServiceOption func(*ImportService)

// WithClock overrides the clock used for default hire dates
func WithClock(now func() time.Time) ImportServiceOption {
	return func(s *ImportService) {
		s.now = now
	}
}

// NewImportService creates a new import service. publisher may be nil.
func NewImportService(
	store ImportStore,
	publisher *events.HREventPublisher,
	opts ImportOptions,
	log *logger.Logger,
	options ...ImportServiceOption,
) *ImportService {
	s := &ImportService{
		store:     store,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
		logger:    log.WithComponent("importer"),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// ImportEmployees parses the workbook in r and upserts its departments,
// employees and education records in a single transaction. Nothing is
// ever deleted. If r is an io.Closer it is closed once parsing is done.
func (s *ImportService) ImportEmployees(ctx context.Context, r io.Reader, meta ImportMeta) (*ImportResult, error) {
	sheet, err := spreadsheet.Read(r, spreadsheet.Options{Sheet: s.opts.Sheet})
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
	if err != nil {
		return nil, &ImportError{Kind: KindMalformedFile, Err: err}
	}

	result := &ImportResult{
		RowsRead:    len(sheet.Rows),
		RowsSkipped: sheet.Skipped,
	}
	if len(sheet.Rows) == 0 {
		s.logger.Info().
			Str("file", meta.FileName).
			Int("rows_skipped", sheet.Skipped).
			Msg("import contained no rows")
		return result, nil
	}

	batch := &importBatch{
		rows:   sheet.Rows,
		today:  dateOnly(s.now()),
		strict: s.opts.Strict,
		result: result,
	}

	err = s.store.WithinTx(ctx, batch.run)
	if err != nil {
		s.logger.Error().Err(err).
			Str("file", meta.FileName).
			Int("rows_read", result.RowsRead).
			Msg("import rolled back")
		return nil, &ImportError{Kind: KindPersistenceFailure, Err: err}
	}

	result.ImportID = uuid.New().String()
	s.logger.WithImportID(result.ImportID).Info().
		Str("file", meta.FileName).
		Str("requested_by", meta.RequestedBy).
		Int("rows_read", result.RowsRead).
		Int("rows_skipped", result.RowsSkipped).
		Int("departments_created", result.DepartmentsCreated).
		Int("employees_created", result.EmployeesCreated).
		Int("employees_updated", result.EmployeesUpdated).
		Int("education_created", result.EducationCreated).
		Int("education_updated", result.EducationUpdated).
		Int("diagnostics", len(result.Diagnostics)).
		Msg("import committed")

	if s.publisher != nil {
		s.publisher.PublishImportCompleted(ctx, messaging.ImportCompletedEvent{
			ImportID:           result.ImportID,
			FileName:           meta.FileName,
			RequestedBy:        meta.RequestedBy,
			RequestedByEmail:   meta.RequestedByEmail,
			RowsRead:           result.RowsRead,
			RowsSkipped:        result.RowsSkipped,
			DepartmentsCreated: result.DepartmentsCreated,
			EmployeesCreated:   result.EmployeesCreated,
			EmployeesUpdated:   result.EmployeesUpdated,
			EducationCreated:   result.EducationCreated,
			EducationUpdated:   result.EducationUpdated,
		})
	}

	return result, nil
}

// importBatch holds the working state of one unit of work
type importBatch struct {
	rows   []spreadsheet.ImportRow
	today  time.Time
	strict bool
	result *ImportResult

	departments map[string]*domain.Department
	employees   map[string]*domain.Employee

	newEmployees     []*domain.Employee
	createdSet       map[string]bool
	touched          []*domain.Employee
	touchedSet       map[string]bool
	newEducation     []*domain.EmployeeEducation
	changedEducation []*domain.EmployeeEducation
	changedSet       map[*domain.EmployeeEducation]bool
	createdEducation map[*domain.EmployeeEducation]bool
}

func (b *importBatch) run(ctx context.Context, tx repository.ImportTx) error {
	// A retried transaction starts from scratch.
	b.reset()

	if err := b.resolveDepartments(ctx, tx); err != nil {
		return err
	}
	if err := b.loadEmployees(ctx, tx); err != nil {
		return err
	}

	for i := range b.rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.apply(&b.rows[i])
	}

	return b.flush(ctx, tx)
}

func (b *importBatch) reset() {
	b.result.DepartmentsCreated = 0
	b.result.EmployeesCreated = 0
	b.result.EmployeesUpdated = 0
	b.result.EducationCreated = 0
	b.result.EducationUpdated = 0
	b.result.Diagnostics = nil

	b.departments = make(map[string]*domain.Department)
	b.employees = make(map[string]*domain.Employee)
	b.newEmployees = nil
	b.createdSet = make(map[string]bool)
	b.touched = nil
	b.touchedSet = make(map[string]bool)
	b.newEducation = nil
	b.changedEducation = nil
	b.changedSet = make(map[*domain.EmployeeEducation]bool)
	b.createdEducation = make(map[*domain.EmployeeEducation]bool)
}

// resolveDepartments loads or creates every department the batch names.
// New departments are inserted right away so employees can reference them.
func (b *importBatch) resolveDepartments(ctx context.Context, tx repository.ImportTx) error {
	var names []string
	seen := make(map[string]bool)
	for _, row := range b.rows {
		key := domain.NameKey(row.Department)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, row.Department)
	}
	if len(names) == 0 {
		return nil
	}

	existing, err := tx.DepartmentsByNames(ctx, names)
	if err != nil {
		return fmt.Errorf("load departments: %w", err)
	}
	for _, dept := range existing {
		b.departments[domain.NameKey(dept.Name)] = dept
	}

	for _, name := range names {
		key := domain.NameKey(name)
		if _, ok := b.departments[key]; ok {
			continue
		}
		dept := &domain.Department{Name: name}
		if err := tx.CreateDepartment(ctx, dept); err != nil {
			return fmt.Errorf("create department %q: %w", dept.Name, err)
		}
		b.departments[key] = dept
		b.result.DepartmentsCreated++
	}
	return nil
}

func (b *importBatch) loadEmployees(ctx context.Context, tx repository.ImportTx) error {
	var documents []string
	seen := make(map[string]bool)
	for _, row := range b.rows {
		if !seen[row.Document] {
			seen[row.Document] = true
			documents = append(documents, row.Document)
		}
	}

	existing, err := tx.EmployeesByDocuments(ctx, documents)
	if err != nil {
		return fmt.Errorf("load employees: %w", err)
	}
	for _, emp := range existing {
		b.employees[emp.Document] = emp
	}
	return nil
}

// apply folds one row into the in-memory state
func (b *importBatch) apply(row *spreadsheet.ImportRow) {
	var dept *domain.Department
	if key := domain.NameKey(row.Department); key != "" {
		dept = b.departments[key]
	}

	emp, ok := b.employees[row.Document]
	if !ok {
		emp = &domain.Employee{
			ID:        uuid.New().String(),
			Document:  row.Document,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Email:     domain.StringPtr(row.Email),
			Phone:     domain.StringPtr(row.Phone),
			Address:   domain.StringPtr(row.Address),
			Status:    domain.StatusActive,
			HireDate:  b.today,
			Salary:    decimal.Zero,
		}
		b.employees[row.Document] = emp
		b.newEmployees = append(b.newEmployees, emp)
		b.createdSet[emp.ID] = true
		b.result.EmployeesCreated++
	} else {
		if row.Email != "" {
			emp.Email = domain.StringPtr(row.Email)
		}
		if row.Phone != "" {
			emp.Phone = domain.StringPtr(row.Phone)
		}
		if row.Address != "" {
			emp.Address = domain.StringPtr(row.Address)
		}
		b.touch(emp)
	}

	if row.Salary != "" {
		if salary, ok := spreadsheet.ParseDecimal(row.Salary); ok {
			emp.Salary = salary
		} else {
			b.diagnose(row, "salary", row.Salary, "not a valid amount")
		}
	}
	if row.Position != "" {
		emp.Position = domain.StringPtr(row.Position)
	}
	if row.Status != "" {
		emp.Status = row.Status
	}
	if row.HireDate != "" {
		if d, ok := spreadsheet.ParseDate(row.HireDate); ok {
			emp.HireDate = d
		} else {
			b.diagnose(row, "hire_date", row.HireDate, "not a date")
		}
	}
	if row.BirthDate != "" {
		if d, ok := spreadsheet.ParseDate(row.BirthDate); ok {
			emp.BirthDate = &d
		} else {
			b.diagnose(row, "birth_date", row.BirthDate, "not a date")
		}
	}
	if dept != nil {
		emp.DepartmentID = &dept.ID
		emp.Department = dept
	}

	if row.EducationLevel != "" {
		b.applyEducation(emp, row)
	}

	if row.ProfessionalProfile != "" {
		emp.ProfessionalProfile = domain.StringPtr(row.ProfessionalProfile)
	}
}

func (b *importBatch) applyEducation(emp *domain.Employee, row *spreadsheet.ImportRow) {
	ed := emp.EducationByLevel(row.EducationLevel)
	if ed == nil {
		profile := row.ProfessionalProfile
		if profile == "" {
			profile = domain.ProfileNotSpecified
		}
		ed = &domain.EmployeeEducation{
			ID:                  uuid.New().String(),
			EmployeeID:          emp.ID,
			EducationLevel:      row.EducationLevel,
			ProfessionalProfile: profile,
		}
		emp.Education = append(emp.Education, ed)
		b.newEducation = append(b.newEducation, ed)
		b.createdEducation[ed] = true
		b.result.EducationCreated++
		return
	}

	if row.ProfessionalProfile == "" {
		return
	}
	ed.ProfessionalProfile = row.ProfessionalProfile
	if !b.createdEducation[ed] && !b.changedSet[ed] {
		b.changedSet[ed] = true
		b.changedEducation = append(b.changedEducation, ed)
		b.result.EducationUpdated++
	}
}

func (b *importBatch) touch(emp *domain.Employee) {
	// Rows repeating a document created earlier in this file stay inserts.
	if b.touchedSet[emp.ID] || b.createdSet[emp.ID] {
		return
	}
	b.touchedSet[emp.ID] = true
	b.touched = append(b.touched, emp)
	b.result.EmployeesUpdated++
}

func (b *importBatch) diagnose(row *spreadsheet.ImportRow, field, value, reason string) {
	if !b.strict {
		return
	}
	b.result.Diagnostics = append(b.result.Diagnostics, RowDiagnostic{
		Row:      row.RowIndex,
		Document: row.Document,
		Field:    field,
		Value:    value,
		Reason:   reason,
	})
}

// flush writes staged changes: employees before their education records
func (b *importBatch) flush(ctx context.Context, tx repository.ImportTx) error {
	for _, emp := range b.newEmployees {
		if err := tx.CreateEmployee(ctx, emp); err != nil {
			return fmt.Errorf("create employee %s: %w", emp.Document, err)
		}
	}
	for _, emp := range b.touched {
		if err := tx.UpdateEmployee(ctx, emp); err != nil {
			return fmt.Errorf("update employee %s: %w", emp.Document, err)
		}
	}
	for _, ed := range b.newEducation {
		if err := tx.CreateEducation(ctx, ed); err != nil {
			return fmt.Errorf("create education %q: %w", ed.EducationLevel, err)
		}
	}
	for _, ed := range b.changedEducation {
		if err := tx.UpdateEducation(ctx, ed); err != nil {
			return fmt.Errorf("update education %q: %w", ed.EducationLevel, err)
		}
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
