// Package auth implements signup, login, and session management for the
// DTTools API.
package auth

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"dttools/internal/types"
)

// bcryptCost is the bcrypt cost factor used for password hashing.
const bcryptCost = 12

// UserRepo defines the data access methods needed by the AuthService.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	Create(ctx context.Context, user *types.User) error
	UpdateLastLogin(ctx context.Context, userID string) error
}

// PasswordHasher abstracts bcrypt operations for testability.
type PasswordHasher interface {
	CompareHashAndPassword(hashedPassword, password string) error
	GenerateFromPassword(password string) (string, error)
}

// bcryptHasher is the production implementation of PasswordHasher.
type bcryptHasher struct{}

func (b *bcryptHasher) CompareHashAndPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func (b *bcryptHasher) GenerateFromPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Service wires user lookup, password verification, and session issuance.
type Service struct {
	userRepo   UserRepo
	sessionSvc *SessionService
	hasher     PasswordHasher
	clock      types.Clock
	logger     *slog.Logger
}

// ServiceConfig holds the dependencies for creating an auth Service.
type ServiceConfig struct {
	UserRepo       UserRepo
	SessionService *SessionService
	Hasher         PasswordHasher
	Clock          types.Clock
	Logger         *slog.Logger
}

// NewService creates an auth Service. Hasher defaults to the production
// bcrypt implementation, Clock to RealClock, Logger to slog.Default.
func NewService(cfg ServiceConfig) *Service {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = &bcryptHasher{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		userRepo:   cfg.UserRepo,
		sessionSvc: cfg.SessionService,
		hasher:     hasher,
		clock:      clock,
		logger:     logger,
	}
}

// Signup creates a new active user on the free plan and opens their first
// session. Returns the user, the session, and the raw bearer token.
func (s *Service) Signup(ctx context.Context, email, name, password, ip, userAgent string) (*types.User, *types.Session, string, error) {
	passwordHash, err := s.hasher.GenerateFromPassword(password)
	if err != nil {
		return nil, nil, "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to hash password", err)
	}

	user := &types.User{
		Email:        CanonicalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
		Role:         types.RoleUser,
		Status:       types.UserStatusActive,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, "", err
	}

	session, token, err := s.sessionSvc.CreateSession(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, nil, "", err
	}

	s.logger.Info("user signed up",
		"user_id", user.ID,
		"email", user.Email,
	)

	return user, session, token, nil
}

// Login verifies credentials and opens a session.
//
// Enumeration protection: returns the same generic invalid-credentials error
// for user-not-found and wrong-password, and always runs a bcrypt compare
// even when the user is missing so both paths cost the same.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (*types.User, *types.Session, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, CanonicalizeEmail(email))
	if err != nil {
		if appErr, ok := err.(*types.AppError); ok && appErr.Code == types.ErrCodeAuthUserNotFound {
			_ = s.hasher.CompareHashAndPassword(dummyHash, password)
			return nil, nil, "", types.NewAppError(types.ErrCodeAuthInvalidCreds, "invalid email or password", nil)
		}
		return nil, nil, "", err
	}

	if err := s.hasher.CompareHashAndPassword(user.PasswordHash, password); err != nil {
		return nil, nil, "", types.NewAppError(types.ErrCodeAuthInvalidCreds, "invalid email or password", nil)
	}

	if user.Status != types.UserStatusActive {
		return nil, nil, "", types.NewAppError(types.ErrCodeAuthAccountNotActive, "account not active", nil)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login",
			"user_id", user.ID,
			"error", err,
		)
	}

	session, token, err := s.sessionSvc.CreateSession(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, nil, "", err
	}

	s.logger.Info("user logged in",
		"user_id", user.ID,
		"email", user.Email,
	)

	return user, session, token, nil
}

// Logout invalidates the session behind the given raw token.
func (s *Service) Logout(ctx context.Context, token string) error {
	session, err := s.sessionSvc.repo.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return err
	}
	return s.sessionSvc.InvalidateSession(ctx, session.ID)
}

// dummyHash is a valid bcrypt hash of an unguessable value, compared against
// when the user does not exist so login timing does not leak account
// existence.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
