package auth

import (
	"context"
	"errors"
	"log/slog"

	"dttools/internal/types"
)

// ActorUserSource loads the user row behind a validated session.
type ActorUserSource interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
}

// SessionResolver validates a raw bearer token and returns its session.
type SessionResolver interface {
	ResolveToken(ctx context.Context, token string) (*types.Session, error)
}

// Authenticator turns bearer tokens into request actors. It validates the
// session, then loads the user so role changes take effect on the next
// request rather than at next login.
type Authenticator struct {
	sessions SessionResolver
	users    ActorUserSource
	logger   *slog.Logger
}

func NewAuthenticator(sessions SessionResolver, users ActorUserSource, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		sessions: sessions,
		users:    users,
		logger:   logger,
	}
}

// ResolveToken validates the token and returns the acting user. A session
// whose user has since been deleted or suspended resolves to
// ErrCodeAuthTokenInvalid; the session itself is worthless without an active
// account behind it.
func (a *Authenticator) ResolveToken(ctx context.Context, token string) (*types.Actor, error) {
	session, err := a.sessions.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := a.users.GetByID(ctx, session.UserID)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundUser {
			a.logger.WarnContext(ctx, "session references missing user",
				slog.String("session_id", session.ID),
				slog.String("user_id", session.UserID),
			)
			return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid or expired token", nil)
		}
		return nil, err
	}

	if user.Status != types.UserStatusActive {
		return nil, types.NewAppError(types.ErrCodeAuthAccountNotActive, "account is not active", nil)
	}

	return &types.Actor{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}
