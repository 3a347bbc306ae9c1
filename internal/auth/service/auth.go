// Package service implements sign-in, token refresh and employee
// self-registration against the local users table.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/peoplehub/peoplehub-backend/internal/auth/events"
	"github.com/peoplehub/peoplehub-backend/internal/auth/jwt"
	"github.com/peoplehub/peoplehub-backend/internal/auth/repository"
	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/pkg/config"
	"github.com/peoplehub/peoplehub-backend/pkg/errors"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/peoplehub/peoplehub-backend/pkg/messaging"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the slice of the users table the service needs
type UserStore interface {
	Create(ctx context.Context, user *repository.User) error
	GetByEmail(ctx context.Context, email string) (*repository.User, error)
	GetByID(ctx context.Context, id string) (*repository.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// SessionStore persists refresh-token sessions
type SessionStore interface {
	Create(ctx context.Context, id, userID, refreshToken string, expiresAt time.Time, userAgent, ipAddress string) (*repository.Session, error)
	GetActive(ctx context.Context, id string) (*repository.Session, error)
	Rotate(ctx context.Context, id, oldRefreshToken, newRefreshToken string) (bool, error)
	Revoke(ctx context.Context, id string) error
	RevokeByRefreshToken(ctx context.Context, refreshToken string) error
}

// EmployeeFinder resolves the employee an account registers against
type EmployeeFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.Employee, error)
}

// AuthService handles authentication logic
type AuthService struct {
	users      UserStore
	sessions   SessionStore
	employees  EmployeeFinder
	jwtManager *jwt.Manager
	publisher  *events.AuthEventPublisher
	logger     *logger.Logger
	hashCost   int
	now        func() time.Time
}

// Option customises an AuthService
type Option func(*AuthService)

// WithHashCost sets the bcrypt cost for new passwords
func WithHashCost(cost int) Option {
	return func(s *AuthService) { s.hashCost = cost }
}

// NewAuthService creates a new auth service. publisher may be nil.
func NewAuthService(users UserStore, sessions SessionStore, employees EmployeeFinder, jwtManager *jwt.Manager, publisher *events.AuthEventPublisher, log *logger.Logger, opts ...Option) *AuthService {
	s := &AuthService{
		users:      users,
		sessions:   sessions,
		employees:  employees,
		jwtManager: jwtManager,
		publisher:  publisher,
		logger:     log.WithComponent("auth"),
		hashCost:   bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterEmployeeRequest creates an account for an existing employee
type RegisterEmployeeRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"omitempty,max=255"`
}

// UserInfo is the public view of a user
type UserInfo struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	EmployeeID string `json:"employee_id,omitempty"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
	User         *UserInfo `json:"user"`
}

func toUserInfo(u *repository.User) *UserInfo {
	return &UserInfo{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.FullName,
		Role:       u.Role,
		EmployeeID: domain.Deref(u.EmployeeID),
	}
}

func (u *UserInfo) claims() *jwt.UserInfo {
	return &jwt.UserInfo{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		EmployeeID: u.EmployeeID,
	}
}

// Login checks the password and opens a new session
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, userAgent, ipAddress string) (*LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, errors.InvalidCredentials()
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load user")
		return nil, errors.Internal("failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info().Str("user_id", user.ID).Msg("login rejected: wrong password")
		return nil, errors.InvalidCredentials()
	}

	info := toUserInfo(user)
	sessionID := repository.NewSessionID()
	tokens, err := s.jwtManager.GenerateTokenPair(info.claims(), sessionID)
	if err != nil {
		return nil, errors.Internal("failed to generate tokens")
	}

	expiresAt := s.now().Add(s.jwtManager.GetRefreshExpiry())
	if _, err := s.sessions.Create(ctx, sessionID, user.ID, tokens.RefreshToken, expiresAt, userAgent, ipAddress); err != nil {
		s.logger.Error().Err(err).Msg("failed to create session")
		return nil, errors.Internal("failed to create session")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("user logged in")

	return &LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		TokenType:    tokens.TokenType,
		User:         info,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// retired; presenting it again revokes the whole session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetActive(ctx, claims.SessionID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.logger.Error().Err(err).Msg("failed to load session")
		}
		return nil, sessionInvalid()
	}
	if session.UserID != claims.UserID {
		return nil, sessionInvalid()
	}
	if session.RefreshTokenHash != repository.HashToken(refreshToken) {
		s.logger.Warn().Str("session_id", session.ID).Msg("refresh token reused, revoking session")
		if err := s.sessions.Revoke(ctx, session.ID); err != nil {
			s.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to revoke session")
		}
		return nil, sessionInvalid()
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, sessionInvalid()
	}

	tokens, err := s.jwtManager.GenerateTokenPair(toUserInfo(user).claims(), session.ID)
	if err != nil {
		return nil, errors.Internal("failed to generate tokens")
	}

	rotated, err := s.sessions.Rotate(ctx, session.ID, refreshToken, tokens.RefreshToken)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to rotate refresh token")
		return nil, errors.Internal("failed to refresh session")
	}
	if !rotated {
		// Lost a race with a concurrent refresh of the same token.
		return nil, sessionInvalid()
	}

	return tokens, nil
}

// Logout revokes the session behind refreshToken. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	if err := s.sessions.RevokeByRefreshToken(ctx, refreshToken); err != nil {
		s.logger.Warn().Err(err).Msg("failed to revoke session")
	}
	return nil
}

// Me returns the authenticated user
func (s *AuthService) Me(ctx context.Context, userID string) (*UserInfo, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

// RegisterEmployee creates an employee account. The email must belong to an
// employee already on file and must not have an account yet.
func (s *AuthService) RegisterEmployee(ctx context.Context, req *RegisterEmployeeRequest) (*UserInfo, error) {
	emp, err := s.employees.GetByEmail(ctx, req.Email)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, errors.BadRequest("no employee with this email").WithKey("auth.employee_not_found")
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.Conflict("account already exists").WithKey("auth.already_registered")
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	name := strings.TrimSpace(req.FullName)
	if name == "" {
		name = emp.FullName()
	}
	employeeID := emp.ID
	user := &repository.User{
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		FullName:     name,
		Role:         repository.RoleEmployee,
		EmployeeID:   &employeeID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("employee_id", emp.ID).Msg("employee registered")

	if s.publisher != nil {
		s.publisher.PublishUserRegistered(ctx, messaging.UserRegisteredEvent{
			UserID:     user.ID,
			EmployeeID: emp.ID,
			Email:      user.Email,
			FullName:   user.FullName,
			Role:       user.Role,
		})
	}

	return toUserInfo(user), nil
}

// SeedAdmin creates the configured administrator unless an account with that
// email exists. It reports whether a user was created.
func (s *AuthService) SeedAdmin(ctx context.Context, seed config.SeedConfig) (bool, error) {
	if seed.AdminEmail == "" || seed.AdminPassword == "" {
		return false, nil
	}

	_, err := s.users.GetByEmail(ctx, seed.AdminEmail)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.AdminPassword), s.hashCost)
	if err != nil {
		return false, err
	}

	name := seed.AdminName
	if name == "" {
		name = "Administrator"
	}
	user := &repository.User{
		Email:        seed.AdminEmail,
		PasswordHash: string(hash),
		FullName:     name,
		Role:         repository.RoleAdmin,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return false, err
	}

	s.logger.Info().Str("email", user.Email).Msg("administrator account seeded")
	return true, nil
}

func sessionInvalid() error {
	return errors.Unauthorized("invalid session").WithKey("auth.session_invalid")
}
