package repository_test

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/internal/hr/repository"
	"github.com/peoplehub/peoplehub-backend/internal/hr/service"
	"github.com/peoplehub/peoplehub-backend/pkg/errors"
	"github.com/peoplehub/peoplehub-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	if testutil.ShortMode() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Printf("integration suite unavailable, running unit tests only: %v", err)
		suite = nil
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func requireSuite(t *testing.T) {
	t.Helper()
	testutil.SkipIfShort(t)
	if suite == nil {
		t.Skip("postgres container not available")
	}
	suite.Reset(t)
}

func TestIntegration_DepartmentNameUniqueIgnoringCase(t *testing.T) {
	requireSuite(t)
	ctx := testutil.DefaultTestContext(t)
	repo := repository.NewDepartmentRepository(suite.DB)

	require.NoError(t, repo.Create(ctx, &domain.Department{Name: "Sales"}))

	err := repo.Create(ctx, &domain.Department{Name: "  SALES "})
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr), "got %v", err)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)
	assert.Equal(t, "errors.duplicate_department", appErr.MessageKey)

	found, err := repo.ByNames(ctx, []string{"sales", "Finance"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Sales", found[0].Name)
}

func TestIntegration_ImportStore_RollsBack(t *testing.T) {
	requireSuite(t)
	ctx := testutil.DefaultTestContext(t)
	store := repository.NewImportStore(suite.DB)

	boom := stderrors.New("row 7 exploded")
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.ImportTx) error {
		dept := &domain.Department{Name: "Finance"}
		require.NoError(t, tx.CreateDepartment(ctx, dept))

		emp := testutil.Employee("1001", "Ana", "Lopez")
		emp.DepartmentID = &dept.ID
		require.NoError(t, tx.CreateEmployee(ctx, emp))
		require.NoError(t, tx.CreateEducation(ctx, &domain.EmployeeEducation{
			ID:                  "6f1c4f38-9d7e-4c41-9d3e-2d0f1f6f0a11",
			EmployeeID:          emp.ID,
			EducationLevel:      "Bachelor",
			ProfessionalProfile: domain.ProfileNotSpecified,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Zero(t, suite.Count(t, "departments"))
	assert.Zero(t, suite.Count(t, "employees"))
	assert.Zero(t, suite.Count(t, "employee_education"))
}

func TestIntegration_ImportStore_LoadsEducation(t *testing.T) {
	requireSuite(t)
	ctx := testutil.DefaultTestContext(t)
	store := repository.NewImportStore(suite.DB)

	emp := testutil.Employee("2002", "Luis", "Mora")
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.ImportTx) error {
		if err := tx.CreateEmployee(ctx, emp); err != nil {
			return err
		}
		return tx.CreateEducation(ctx, &domain.EmployeeEducation{
			ID:                  "0b7f8f0e-2a3c-4e55-8f0a-5a8c1e3b9d21",
			EmployeeID:          emp.ID,
			EducationLevel:      "Master",
			ProfessionalProfile: "Data",
		})
	})
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.ImportTx) error {
		found, err := tx.EmployeesByDocuments(ctx, []string{"2002", "9999"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Len(t, found[0].Education, 1)
		assert.Equal(t, "Data", found[0].EducationByLevel("Master").ProfessionalProfile)
		return nil
	})
	require.NoError(t, err)
}

func newImporter() *service.ImportService {
	return service.NewImportService(
		repository.NewImportStore(suite.DB),
		nil,
		service.ImportOptions{},
		suite.Logger,
		service.WithClock(func() time.Time { return testutil.FixedNow }),
	)
}

func TestIntegration_ImportEmployees_Upsert(t *testing.T) {
	requireSuite(t)
	ctx := testutil.DefaultTestContext(t)
	importer := newImporter()

	first := testutil.NewWorkbook("Documento", "Nombre", "Apellido", "Correo", "Departamento", "Salario", "NivelEducativo", "PerfilProfesional").
		Row("1001", "Ana", "Lopez", "ana@example.com", "Finance", "2500.50", "Bachelor", "Accountant").
		Row("1002", "Luis", "Mora", "", "finance", "", "", "").
		Reader(t)

	res, err := importer.ImportEmployees(ctx, first, service.ImportMeta{FileName: "first.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.DepartmentsCreated)
	assert.Equal(t, 2, res.EmployeesCreated)
	assert.Equal(t, 1, res.EducationCreated)

	second := testutil.NewWorkbook("Documento", "Nombre", "Apellido", "Correo", "Departamento", "Salario", "NivelEducativo", "PerfilProfesional").
		Row("1001", "Ana", "Lopez", "", "Operations", "3000", "Bachelor", "Controller").
		Row("1003", "Eva", "Ruiz", "eva@example.com", "", "", "", "").
		Reader(t)

	res, err = importer.ImportEmployees(ctx, second, service.ImportMeta{FileName: "second.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.DepartmentsCreated)
	assert.Equal(t, 1, res.EmployeesCreated)
	assert.Equal(t, 1, res.EmployeesUpdated)
	assert.Equal(t, 0, res.EducationCreated)
	assert.Equal(t, 1, res.EducationUpdated)

	assert.Equal(t, 2, suite.Count(t, "departments"))
	assert.Equal(t, 3, suite.Count(t, "employees"))
	assert.Equal(t, 1, suite.Count(t, "employee_education"))

	employees := repository.NewEmployeeRepository(suite.DB)
	found, err := employees.ByDocuments(ctx, []string{"1001"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	ana := found[0]
	require.NotNil(t, ana.Email)
	assert.Equal(t, "ana@example.com", *ana.Email, "blank cell keeps the stored email")
	assert.True(t, decimal.NewFromInt(3000).Equal(ana.Salary))
	assert.Equal(t, "Controller", ana.EducationByLevel("Bachelor").ProfessionalProfile)

	full, err := employees.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	require.NotNil(t, full.Department)
	assert.Equal(t, "Operations", full.Department.Name)
}

func TestIntegration_ImportEmployees_OversizedSalaryDoesNotAbortBatch(t *testing.T) {
	requireSuite(t)
	ctx := testutil.DefaultTestContext(t)

	wb := testutil.NewWorkbook("documento", "nombre", "apellido", "salario").
		Row("1001", "Ana", "Lopez", "1e20").
		Row("1002", "Luis", "Mora", "1000000000000").
		Row("1003", "Eva", "Ruiz", "999999999999.99").
		Reader(t)

	res, err := newImporter().ImportEmployees(ctx, wb, service.ImportMeta{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.EmployeesCreated)
	assert.Equal(t, 3, suite.Count(t, "employees"))

	found, err := repository.NewEmployeeRepository(suite.DB).ByDocuments(ctx, []string{"1003"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "999999999999.99", found[0].Salary.StringFixed(2))
}

func TestIntegration_ImportEmployees_CancelledLeavesNothing(t *testing.T) {
	requireSuite(t)
	importer := newImporter()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wb := testutil.NewWorkbook("documento", "nombre", "apellido", "departamento").
		Row("1001", "Ana", "Lopez", "Finance").
		Reader(t)

	_, err := importer.ImportEmployees(ctx, wb, service.ImportMeta{})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrPersistenceFailure)

	assert.Zero(t, suite.Count(t, "departments"))
	assert.Zero(t, suite.Count(t, "employees"))
}
