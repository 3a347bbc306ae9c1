package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/peoplehub/peoplehub-backend/pkg/database"
	"github.com/peoplehub/peoplehub-backend/pkg/errors"
)

// Session is one refresh-token lineage. Only the token hash is stored.
type Session struct {
	ID               string     `db:"id"`
	UserID           string     `db:"user_id"`
	RefreshTokenHash string     `db:"refresh_token_hash"`
	UserAgent        *string    `db:"user_agent"`
	IPAddress        *string    `db:"ip_address"`
	ExpiresAt        time.Time  `db:"expires_at"`
	CreatedAt        time.Time  `db:"created_at"`
	LastUsedAt       time.Time  `db:"last_used_at"`
	RevokedAt        *time.Time `db:"revoked_at"`
}

const sessionColumns = `id, user_id, refresh_token_hash, user_agent, ip_address, expires_at, created_at, last_used_at, revoked_at`

// SessionRepository handles session persistence
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// NewSessionID returns an ID for a session that is about to be created.
// Tokens embed it, so it must exist before the refresh token is signed.
func NewSessionID() string {
	return uuid.New().String()
}

// Create stores a session for refreshToken under id
func (r *SessionRepository) Create(ctx context.Context, id, userID, refreshToken string, expiresAt time.Time, userAgent, ipAddress string) (*Session, error) {
	session := &Session{
		ID:               id,
		UserID:           userID,
		RefreshTokenHash: HashToken(refreshToken),
		UserAgent:        optional(userAgent),
		IPAddress:        optional(ipAddress),
		ExpiresAt:        expiresAt,
	}

	query := `
		INSERT INTO sessions (id, user_id, refresh_token_hash, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, last_used_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		session.ID,
		session.UserID,
		session.RefreshTokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
	).Scan(&session.CreatedAt, &session.LastUsedAt)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetActive returns a session that is neither revoked nor expired
func (r *SessionRepository) GetActive(ctx context.Context, id string) (*Session, error) {
	var session Session
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`
	err := r.db.GetContext(ctx, &session, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("session")
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Rotate swaps the stored refresh token hash, but only if the caller still
// holds the current token. It reports whether the swap happened.
func (r *SessionRepository) Rotate(ctx context.Context, id, oldRefreshToken, newRefreshToken string) (bool, error) {
	query := `
		UPDATE sessions
		SET refresh_token_hash = $1, last_used_at = NOW()
		WHERE id = $2 AND refresh_token_hash = $3 AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, HashToken(newRefreshToken), id, HashToken(oldRefreshToken))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Revoke revokes a session
func (r *SessionRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	return err
}

// RevokeByRefreshToken revokes the session currently holding refreshToken
func (r *SessionRepository) RevokeByRefreshToken(ctx context.Context, refreshToken string) error {
	query := `UPDATE sessions SET revoked_at = NOW() WHERE refresh_token_hash = $1 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, HashToken(refreshToken))
	return err
}

// RevokeAllForUser revokes all sessions for a user
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	return err
}

// CleanExpired removes expired and revoked sessions
func (r *SessionRepository) CleanExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < NOW() OR revoked_at IS NOT NULL`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// HashToken is the stored form of a refresh token
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
