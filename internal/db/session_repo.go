package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"dttools/internal/types"
)

// SessionRepository provides data access for the sessions table. Sessions
// are looked up by the SHA-256 hash of the opaque bearer token; the raw
// token is never stored.
type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, session *types.Session) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, user_agent, ip_address,
		 expires_at, last_activity_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))`,
		session.ID,
		session.UserID,
		session.TokenHash,
		nilIfEmpty(session.UserAgent),
		nilIfEmpty(session.IPAddress),
		session.ExpiresAt,
		session.LastActivityAt,
		nilIfZeroTime(session.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create session", err)
	}
	return nil
}

// GetByTokenHash retrieves an unexpired session by token hash. An expired
// session reports ErrCodeAuthSessionExpired so the middleware can tell the
// client to re-authenticate rather than retry.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*types.Session, error) {
	row := r.db.QueryRow(ctx,
		`SELECT s.id, s.user_id, s.token_hash, s.user_agent, s.ip_address,
		        s.expires_at, s.last_activity_at, s.created_at
		 FROM sessions s
		 WHERE s.token_hash = $1`,
		tokenHash,
	)

	var s types.Session
	var (
		userAgent *string
		ipAddress *string
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.TokenHash,
		&userAgent,
		&ipAddress,
		&s.ExpiresAt,
		&s.LastActivityAt,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid session token", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve session", err)
	}
	if userAgent != nil {
		s.UserAgent = *userAgent
	}
	if ipAddress != nil {
		s.IPAddress = *ipAddress
	}
	return &s, nil
}

// TouchActivity updates last_activity_at for sliding-expiry accounting.
func (r *SessionRepository) TouchActivity(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE sessions SET last_activity_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to touch session", err)
	}
	return nil
}

// Delete removes a session (logout).
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete session", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeAuthTokenInvalid, "session not found", nil)
	}
	return nil
}

// DeleteExpired removes expired sessions and returns how many were dropped.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete expired sessions", err)
	}
	return tag.RowsAffected(), nil
}
