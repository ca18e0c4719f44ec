package core

import (
	"context"
	"sync"
	"time"

	"dttools/internal/types"
)

// --- MockAuthenticator ---

// MockAuthenticator implements the Authenticator interface for testing.
// It allows injecting a predefined Actor for a given token, or returning
// a fixed error to simulate authentication failures.
//
// Usage:
//
//	mock := &MockAuthenticator{
//	    Actor: &types.Actor{ID: "user_1", Role: types.RoleUser},
//	}
//	actor, err := mock.ResolveToken(ctx, "dtt_abc123")
//
// To simulate an error:
//
//	mock := &MockAuthenticator{
//	    Err: types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid token", nil),
//	}
type MockAuthenticator struct {
	// Actor is the predefined Actor returned on successful token resolution.
	// If nil and Err is also nil, ResolveToken returns (nil, nil).
	Actor *types.Actor

	// Err is the error returned by ResolveToken. When set, Actor is ignored.
	Err error

	// ResolveTokenFunc is an optional function that overrides the default behavior.
	// When set, it takes precedence over Actor and Err fields. This allows tests
	// to implement dynamic behavior based on the token value.
	ResolveTokenFunc func(ctx context.Context, token string) (*types.Actor, error)

	// mu protects Calls for concurrent access.
	mu sync.Mutex

	// Calls records every token passed to ResolveToken for assertion purposes.
	Calls []string
}

// ResolveToken implements the Authenticator interface.
// It records the call, then delegates to ResolveTokenFunc if set,
// otherwise returns Err (if set) or Actor.
func (m *MockAuthenticator) ResolveToken(ctx context.Context, token string) (*types.Actor, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, token)
	m.mu.Unlock()

	if m.ResolveTokenFunc != nil {
		return m.ResolveTokenFunc(ctx, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Actor, nil
}

// CallCount returns the number of times ResolveToken was invoked.
func (m *MockAuthenticator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// --- MockEntitlementSource ---

// MockEntitlementSource implements the EntitlementSource interface for testing.
type MockEntitlementSource struct {
	// Entitlement is returned on success. If nil and Err is nil, a resolution
	// with nil Limits is returned (configuration fault shape).
	Entitlement *types.Entitlement

	// Err is the error returned by ResolveForUser. When set, Entitlement is ignored.
	Err error

	mu    sync.Mutex
	Calls []string
}

// ResolveForUser implements the EntitlementSource interface.
func (m *MockEntitlementSource) ResolveForUser(_ context.Context, userID string) (*types.Entitlement, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, userID)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Entitlement != nil {
		return m.Entitlement, nil
	}
	return &types.Entitlement{}, nil
}

// CallCount returns the number of times ResolveForUser was invoked.
func (m *MockEntitlementSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// --- MockUsageSource ---

// MockUsageSource implements the UsageSource interface for testing. Each
// count field feeds the corresponding method; Err makes every method fail.
type MockUsageSource struct {
	Projects       int
	Personas       int
	DoubleDiamonds int
	DDExports      int
	TeamMembers    int
	AIChats        int

	// Err is returned by every method when set.
	Err error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockUsageSource) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// CallCount returns how many times the named method was invoked.
func (m *MockUsageSource) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockUsageSource) ProjectCount(_ context.Context, _ string) (int, error) {
	m.record("ProjectCount")
	return m.Projects, m.Err
}

func (m *MockUsageSource) PersonaCount(_ context.Context, _ string) (int, error) {
	m.record("PersonaCount")
	return m.Personas, m.Err
}

func (m *MockUsageSource) DoubleDiamondCount(_ context.Context, _ string) (int, error) {
	m.record("DoubleDiamondCount")
	return m.DoubleDiamonds, m.Err
}

func (m *MockUsageSource) DoubleDiamondExportTotal(_ context.Context, _ string) (int, error) {
	m.record("DoubleDiamondExportTotal")
	return m.DDExports, m.Err
}

func (m *MockUsageSource) TeamMemberCount(_ context.Context, _ string) (int, error) {
	m.record("TeamMemberCount")
	return m.TeamMembers, m.Err
}

func (m *MockUsageSource) AIChatCount(_ context.Context, _ string, _ time.Time) (int, error) {
	m.record("AIChatCount")
	return m.AIChats, m.Err
}

// --- MockHealthProbe ---

// MockHealthProbe implements the HealthProbe interface for testing.
type MockHealthProbe struct {
	ProbeName string

	// CheckErr is returned by Check. Nil means healthy.
	CheckErr error

	// CheckDelay simulates a slow probe.
	CheckDelay time.Duration

	// CheckFunc optionally overrides the default behavior.
	CheckFunc func(ctx context.Context) error
}

// Name implements the HealthProbe interface.
func (m *MockHealthProbe) Name() string {
	return m.ProbeName
}

// Check implements the HealthProbe interface.
func (m *MockHealthProbe) Check(ctx context.Context) error {
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx)
	}
	if m.CheckDelay > 0 {
		select {
		case <-time.After(m.CheckDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.CheckErr
}
