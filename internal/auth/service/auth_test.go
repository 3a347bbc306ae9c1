package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/peoplehub/peoplehub-backend/internal/auth/events"
	"github.com/peoplehub/peoplehub-backend/internal/auth/jwt"
	"github.com/peoplehub/peoplehub-backend/internal/auth/repository"
	"github.com/peoplehub/peoplehub-backend/internal/auth/service"
	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/pkg/config"
	"github.com/peoplehub/peoplehub-backend/pkg/errors"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/peoplehub/peoplehub-backend/pkg/messaging"
	"github.com/peoplehub/peoplehub-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================================
// MOCKS
// ============================================================================

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, user *repository.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*repository.User)
	return user, args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*repository.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*repository.User)
	return user, args.Error(1)
}

func (m *mockUsers) UpdateLastLogin(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockSessions struct{ mock.Mock }

func (m *mockSessions) Create(ctx context.Context, id, userID, refreshToken string, expiresAt time.Time, userAgent, ipAddress string) (*repository.Session, error) {
	args := m.Called(ctx, id, userID, refreshToken, expiresAt, userAgent, ipAddress)
	session, _ := args.Get(0).(*repository.Session)
	return session, args.Error(1)
}

func (m *mockSessions) GetActive(ctx context.Context, id string) (*repository.Session, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*repository.Session)
	return session, args.Error(1)
}

func (m *mockSessions) Rotate(ctx context.Context, id, oldRefreshToken, newRefreshToken string) (bool, error) {
	args := m.Called(ctx, id, oldRefreshToken, newRefreshToken)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessions) Revoke(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSessions) RevokeByRefreshToken(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

type mockEmployees struct{ mock.Mock }

func (m *mockEmployees) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	args := m.Called(ctx, email)
	emp, _ := args.Get(0).(*domain.Employee)
	return emp, args.Error(1)
}

// ============================================================================
// FIXTURE
// ============================================================================

type authFixture struct {
	svc       *service.AuthService
	users     *mockUsers
	sessions  *mockSessions
	employees *mockEmployees
	jwt       *jwt.Manager
	events    *testutil.MockPublisher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:     &mockUsers{},
		sessions:  &mockSessions{},
		employees: &mockEmployees{},
		events:    testutil.NewMockPublisher(),
		jwt: jwt.NewManager(&config.JWTConfig{
			Secret:        "test-secret",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 24 * time.Hour,
			Issuer:        "peoplehub",
		}),
	}
	publisher := events.NewAuthEventPublisher(f.events, logger.Nop())
	f.svc = service.NewAuthService(f.users, f.sessions, f.employees, f.jwt, publisher, logger.Nop(),
		service.WithHashCost(bcrypt.MinCost))
	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.sessions.AssertExpectations(t)
		f.employees.AssertExpectations(t)
	})
	return f
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func employeeUser(t *testing.T) *repository.User {
	employeeID := "e1"
	return &repository.User{
		ID:           "u1",
		Email:        "ana@example.com",
		PasswordHash: hashed(t, "s3cret-pass"),
		FullName:     "Ana Lopez",
		Role:         repository.RoleEmployee,
		EmployeeID:   &employeeID,
	}
}

// ============================================================================
// LOGIN
// ============================================================================

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	user := employeeUser(t)

	f.users.On("GetByEmail", mock.Anything, "ana@example.com").Return(user, nil)
	f.sessions.On("Create", mock.Anything, mock.AnythingOfType("string"), "u1", mock.AnythingOfType("string"),
		mock.AnythingOfType("time.Time"), "curl/8", "10.0.0.1").Return(&repository.Session{}, nil)
	f.users.On("UpdateLastLogin", mock.Anything, "u1").Return(nil)

	resp, err := f.svc.Login(context.Background(), &service.LoginRequest{Email: "ana@example.com", Password: "s3cret-pass"}, "curl/8", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "e1", resp.User.EmployeeID)

	claims, err := f.jwt.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "employee", claims.Role)

	refresh, err := f.jwt.ValidateRefreshToken(resp.RefreshToken)
	require.NoError(t, err)
	f.sessions.AssertCalled(t, "Create", mock.Anything, refresh.SessionID, "u1", resp.RefreshToken,
		mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name     string
		user     *repository.User
		err      error
		password string
	}{
		{"unknown email", nil, errors.NotFound("user"), "whatever"},
		{"wrong password", &repository.User{ID: "u1", PasswordHash: "$2a$04$invalidhashinvalidhashinvalidhashinvalidhashinvalidha"}, nil, "wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			f.users.On("GetByEmail", mock.Anything, "ana@example.com").Return(tt.user, tt.err)

			_, err := f.svc.Login(context.Background(), &service.LoginRequest{Email: "ana@example.com", Password: tt.password}, "", "")
			assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
			f.sessions.AssertNumberOfCalls(t, "Create", 0)
		})
	}
}

// ============================================================================
// REFRESH / LOGOUT
// ============================================================================

func TestRefresh_RotatesToken(t *testing.T) {
	f := newAuthFixture(t)
	user := employeeUser(t)
	pair, err := f.jwt.GenerateTokenPair(&jwt.UserInfo{ID: "u1", Email: user.Email, Role: user.Role}, "s1")
	require.NoError(t, err)

	f.sessions.On("GetActive", mock.Anything, "s1").
		Return(&repository.Session{ID: "s1", UserID: "u1", RefreshTokenHash: repository.HashToken(pair.RefreshToken)}, nil)
	f.users.On("GetByID", mock.Anything, "u1").Return(user, nil)
	f.sessions.On("Rotate", mock.Anything, "s1", pair.RefreshToken, mock.AnythingOfType("string")).Return(true, nil)

	next, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	claims, err := f.jwt.ValidateRefreshToken(next.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.SessionID)
}

func TestRefresh_ReuseRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	pair, err := f.jwt.GenerateTokenPair(&jwt.UserInfo{ID: "u1"}, "s1")
	require.NoError(t, err)

	f.sessions.On("GetActive", mock.Anything, "s1").
		Return(&repository.Session{ID: "s1", UserID: "u1", RefreshTokenHash: repository.HashToken("a-newer-token")}, nil)
	f.sessions.On("Revoke", mock.Anything, "s1").Return(nil)

	_, err = f.svc.Refresh(context.Background(), pair.RefreshToken)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestRefresh_Rejections(t *testing.T) {
	t.Run("access token", func(t *testing.T) {
		f := newAuthFixture(t)
		pair, err := f.jwt.GenerateTokenPair(&jwt.UserInfo{ID: "u1"}, "s1")
		require.NoError(t, err)

		_, err = f.svc.Refresh(context.Background(), pair.AccessToken)
		assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
	})

	t.Run("revoked session", func(t *testing.T) {
		f := newAuthFixture(t)
		pair, err := f.jwt.GenerateTokenPair(&jwt.UserInfo{ID: "u1"}, "s1")
		require.NoError(t, err)
		f.sessions.On("GetActive", mock.Anything, "s1").Return(nil, errors.NotFound("session"))

		_, err = f.svc.Refresh(context.Background(), pair.RefreshToken)
		assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	})

	t.Run("lost rotation race", func(t *testing.T) {
		f := newAuthFixture(t)
		user := employeeUser(t)
		pair, err := f.jwt.GenerateTokenPair(&jwt.UserInfo{ID: "u1"}, "s1")
		require.NoError(t, err)
		f.sessions.On("GetActive", mock.Anything, "s1").
			Return(&repository.Session{ID: "s1", UserID: "u1", RefreshTokenHash: repository.HashToken(pair.RefreshToken)}, nil)
		f.users.On("GetByID", mock.Anything, "u1").Return(user, nil)
		f.sessions.On("Rotate", mock.Anything, "s1", pair.RefreshToken, mock.Anything).Return(false, nil)

		_, err = f.svc.Refresh(context.Background(), pair.RefreshToken)
		assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	})
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	f.sessions.On("RevokeByRefreshToken", mock.Anything, "token").Return(errors.Internal("db down"))

	assert.NoError(t, f.svc.Logout(context.Background(), "token"))
	assert.NoError(t, f.svc.Logout(context.Background(), "  "))
	f.sessions.AssertNumberOfCalls(t, "RevokeByRefreshToken", 1)
}

// ============================================================================
// REGISTRATION / SEEDING
// ============================================================================

func TestRegisterEmployee_Success(t *testing.T) {
	f := newAuthFixture(t)
	emp := testutil.Employee("123", "Ana", "Lopez")

	f.employees.On("GetByEmail", mock.Anything, "ana@example.com").Return(emp, nil)
	f.users.On("GetByEmail", mock.Anything, "ana@example.com").Return(nil, errors.NotFound("user"))
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *repository.User) bool {
		return u.Role == repository.RoleEmployee &&
			u.EmployeeID != nil && *u.EmployeeID == emp.ID &&
			u.FullName == "Ana Lopez" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("long-enough")) == nil
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*repository.User).ID = "u9"
	}).Return(nil)

	info, err := f.svc.RegisterEmployee(context.Background(), &service.RegisterEmployeeRequest{Email: "ana@example.com", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, "u9", info.ID)
	assert.Equal(t, emp.ID, info.EmployeeID)

	published := f.events.Events()
	require.Len(t, published, 1)
	event := published[0].Payload.(messaging.UserRegisteredEvent)
	assert.Equal(t, "u9", event.UserID)
	assert.Equal(t, "Ana Lopez", event.FullName)
}

func TestRegisterEmployee_Rejections(t *testing.T) {
	t.Run("no such employee", func(t *testing.T) {
		f := newAuthFixture(t)
		f.employees.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, errors.NotFound("employee"))

		_, err := f.svc.RegisterEmployee(context.Background(), &service.RegisterEmployeeRequest{Email: "ghost@example.com", Password: "long-enough"})
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
		f.events.AssertNoEventsPublished(t)
	})

	t.Run("already registered", func(t *testing.T) {
		f := newAuthFixture(t)
		f.employees.On("GetByEmail", mock.Anything, "ana@example.com").Return(testutil.Employee("123", "Ana", "Lopez"), nil)
		f.users.On("GetByEmail", mock.Anything, "ana@example.com").Return(employeeUser(t), nil)

		_, err := f.svc.RegisterEmployee(context.Background(), &service.RegisterEmployeeRequest{Email: "ana@example.com", Password: "long-enough"})
		assert.True(t, errors.Is(err, errors.ErrConflict))
		f.users.AssertNumberOfCalls(t, "Create", 0)
	})
}

func TestSeedAdmin(t *testing.T) {
	seed := config.SeedConfig{AdminEmail: "admin@peoplehub.local", AdminPassword: "Admin123!", AdminName: "Root"}

	t.Run("creates when absent", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("GetByEmail", mock.Anything, seed.AdminEmail).Return(nil, errors.NotFound("user"))
		f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *repository.User) bool {
			return u.Role == repository.RoleAdmin && u.FullName == "Root" && u.EmployeeID == nil
		})).Return(nil)

		created, err := f.svc.SeedAdmin(context.Background(), seed)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("no-op when present", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("GetByEmail", mock.Anything, seed.AdminEmail).Return(&repository.User{ID: "u1"}, nil)

		created, err := f.svc.SeedAdmin(context.Background(), seed)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("disabled without credentials", func(t *testing.T) {
		f := newAuthFixture(t)
		created, err := f.svc.SeedAdmin(context.Background(), config.SeedConfig{})
		require.NoError(t, err)
		assert.False(t, created)
	})
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t)
	f.users.On("GetByID", mock.Anything, "u1").Return(employeeUser(t), nil)

	info, err := f.svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Lopez", info.Name)
	assert.Equal(t, "employee", info.Role)
}
