package core

import (
	"context"
	"time"

	"dttools/internal/types"
)

// Authenticator decouples the HTTP layer from specific auth mechanisms
// (session lookups), allowing for easy mocking in tests.
type Authenticator interface {
	// ResolveToken validates an opaque bearer token and returns the Actor
	// it belongs to.
	//
	// Distinct Error Codes:
	// - Return ErrCodeAuthTokenInvalid if the token is malformed or not found.
	// - Return ErrCodeAuthSessionExpired if the session exists but has expired.
	ResolveToken(ctx context.Context, token string) (*types.Actor, error)
}

// EntitlementSource resolves the effective entitlement for a user. The
// resolution runs once per request; the result is injected into the request
// context and never cached across requests.
type EntitlementSource interface {
	ResolveForUser(ctx context.Context, userID string) (*types.Entitlement, error)
}

// UsageSource supplies the current usage counts the limit gates compare
// against the resolved entitlement. Counts are read fresh on every gated
// request.
type UsageSource interface {
	// ProjectCount returns the number of projects owned by the user.
	ProjectCount(ctx context.Context, userID string) (int, error)
	// PersonaCount returns the number of personas attached to the project.
	PersonaCount(ctx context.Context, projectID string) (int, error)
	// DoubleDiamondCount returns the number of Double Diamond projects
	// owned by the user.
	DoubleDiamondCount(ctx context.Context, userID string) (int, error)
	// DoubleDiamondExportTotal returns the cumulative export count across
	// the user's Double Diamond projects.
	DoubleDiamondExportTotal(ctx context.Context, userID string) (int, error)
	// TeamMemberCount returns the team size for the project, counting the
	// owner plus accepted and pending invites.
	TeamMemberCount(ctx context.Context, projectID string) (int, error)
	// AIChatCount returns the user's AI chat message count for the month
	// containing now.
	AIChatCount(ctx context.Context, userID string, now time.Time) (int, error)
}
