package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"dttools/internal/types"
)

// SessionConfig holds configuration for session management.
type SessionConfig struct {
	// SessionDuration is the lifetime of a new session. Default: 7 days.
	SessionDuration time.Duration

	// TokenPrefix is the prefix for raw session tokens ("dtt_").
	TokenPrefix string
}

// DefaultSessionConfig returns the default session configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SessionDuration: 7 * 24 * time.Hour,
		TokenPrefix:     "dtt_",
	}
}

// SessionRepo defines the data access methods needed by the SessionService.
type SessionRepo interface {
	Create(ctx context.Context, session *types.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*types.Session, error)
	TouchActivity(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// TokenGenerator abstracts entropy sources for testability.
type TokenGenerator interface {
	// GenerateSessionToken returns the raw bearer token handed to the client.
	GenerateSessionToken() (string, error)
	// GenerateInviteToken returns a raw token for team invitation links.
	GenerateInviteToken() (string, error)
}

// HashToken produces a hex-encoded SHA-256 hash of a raw token string. Both
// session and invite tokens are stored only as this hash, which stays
// searchable in the database (unlike bcrypt, which is salted).
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionService issues and resolves opaque bearer-token sessions.
type SessionService struct {
	repo     SessionRepo
	tokenGen TokenGenerator
	config   SessionConfig
	clock    types.Clock
	logger   *slog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(repo SessionRepo, tokenGen TokenGenerator, config SessionConfig, clock types.Clock, logger *slog.Logger) *SessionService {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		repo:     repo,
		tokenGen: tokenGen,
		config:   config,
		clock:    clock,
		logger:   logger,
	}
}

// CreateSession creates a session for the user and returns the Session plus
// the raw bearer token. The raw token is returned exactly once; only its
// hash is stored.
func (s *SessionService) CreateSession(ctx context.Context, userID, ip, userAgent string) (*types.Session, string, error) {
	token, err := s.tokenGen.GenerateSessionToken()
	if err != nil {
		return nil, "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to generate session token", err)
	}

	now := s.clock.Now()
	session := &types.Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		TokenHash:      HashToken(token),
		IPAddress:      ip,
		UserAgent:      userAgent,
		ExpiresAt:      now.Add(s.config.SessionDuration),
		LastActivityAt: now,
		CreatedAt:      now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, "", err
	}

	s.logger.Info("session created",
		"session_id", session.ID,
		"user_id", userID,
	)

	return session, token, nil
}

// ResolveToken validates a raw bearer token against the store. Returns the
// Session if valid, ErrCodeAuthSessionExpired if it exists but has expired.
func (s *SessionService) ResolveToken(ctx context.Context, token string) (*types.Session, error) {
	session, err := s.repo.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, err
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.logger.Info("session expired",
			"session_id", session.ID,
			"expired_at", session.ExpiresAt,
		)
		return nil, types.NewAppError(types.ErrCodeAuthSessionExpired, "session has expired", nil)
	}

	// Best effort; the session stays valid if the touch fails.
	if err := s.repo.TouchActivity(ctx, session.ID); err != nil {
		s.logger.Warn("failed to touch session activity",
			"session_id", session.ID,
			"error", err,
		)
	}

	return session, nil
}

// InvalidateSession performs a hard delete of a single session so logout
// takes effect immediately.
func (s *SessionService) InvalidateSession(ctx context.Context, sessionID string) error {
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.logger.Info("session invalidated", "session_id", sessionID)
	return nil
}

// CryptoTokenGenerator is the production TokenGenerator using crypto/rand.
type CryptoTokenGenerator struct {
	// TokenPrefix is prepended to generated session tokens.
	TokenPrefix string
}

// NewCryptoTokenGenerator creates a CryptoTokenGenerator with the standard
// "dtt_" prefix.
func NewCryptoTokenGenerator() *CryptoTokenGenerator {
	return &CryptoTokenGenerator{TokenPrefix: "dtt_"}
}

// GenerateSessionToken generates a cryptographically secure bearer token.
// Format: "dtt_" + 32 random hex bytes (64 hex chars).
func (g *CryptoTokenGenerator) GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return g.TokenPrefix + hex.EncodeToString(b), nil
}

// GenerateInviteToken generates a cryptographically secure token for
// invitation links. Format: 32 random hex bytes (64 hex chars).
func (g *CryptoTokenGenerator) GenerateInviteToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CanonicalizeEmail normalizes email addresses for consistent DB lookups.
func CanonicalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
