package types

import "context"

// Actor represents the authenticated user performing an operation.
// Anonymous requests carry no Actor in context.
type Actor struct {
	ID    string
	Email string
	Role  UserRole
}

// IsAdmin reports whether the actor bypasses every limit gate.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Context Keys
type contextKey string

const (
	actorKey       contextKey = "actor"
	requestIDKey   contextKey = "request_id"
	entitlementKey contextKey = "entitlement"
)

// WithActor stores the Actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor retrieves the Actor from the context.
func GetActor(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithEntitlement stores the resolved entitlement in the context.
// The entitlement middleware sets it once per request; it is an explicit
// request-scoped value, never a cache shared between requests.
func WithEntitlement(ctx context.Context, ent *Entitlement) context.Context {
	return context.WithValue(ctx, entitlementKey, ent)
}

// GetEntitlement retrieves the resolved entitlement from the context.
func GetEntitlement(ctx context.Context) (*Entitlement, bool) {
	ent, ok := ctx.Value(entitlementKey).(*Entitlement)
	return ent, ok && ent != nil
}
