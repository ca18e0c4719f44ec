package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dttools/internal/types"
)

type mockAuthService struct {
	signupFn func(ctx context.Context, email, name, password, ip, userAgent string) (*types.User, *types.Session, string, error)
	loginFn  func(ctx context.Context, email, password, ip, userAgent string) (*types.User, *types.Session, string, error)
	logoutFn func(ctx context.Context, token string) error

	logoutTokens []string
}

func sessionFixture(userID string) (*types.User, *types.Session, string) {
	user := &types.User{
		ID:     userID,
		Email:  "tester@example.com",
		Name:   "Tester",
		Role:   types.RoleUser,
		Status: types.UserStatusActive,
	}
	session := &types.Session{
		ID:        "sess_1",
		UserID:    userID,
		ExpiresAt: time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC),
	}
	return user, session, "dtt_rawtoken"
}

func (m *mockAuthService) Signup(ctx context.Context, email, name, password, ip, userAgent string) (*types.User, *types.Session, string, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, email, name, password, ip, userAgent)
	}
	user, session, token := sessionFixture("user_new")
	return user, session, token, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*types.User, *types.Session, string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password, ip, userAgent)
	}
	user, session, token := sessionFixture("user_1")
	return user, session, token, nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	m.logoutTokens = append(m.logoutTokens, token)
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

type mockAuthUsers struct {
	getFn func(ctx context.Context, id string) (*types.User, error)
}

func (m *mockAuthUsers) GetByID(ctx context.Context, id string) (*types.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &types.User{ID: id, Email: "tester@example.com", Status: types.UserStatusActive}, nil
}

var (
	_ AuthService   = (*mockAuthService)(nil)
	_ AuthUserStore = (*mockAuthUsers)(nil)
)

func newTestAuthHandler(service *mockAuthService) *AuthHandler {
	if service == nil {
		service = &mockAuthService{}
	}
	return NewAuthHandler(service, &mockAuthUsers{}, testValidator(), nil)
}

func TestAuthSignup_Success(t *testing.T) {
	h := newTestAuthHandler(nil)

	req := makeRequest("POST", "/api/auth/signup", SignupRequest{
		Email:    "new@example.com",
		Name:     "New User",
		Password: "longenough1",
	}, context.Background())
	rr := httptest.NewRecorder()

	h.Signup(rr, req)
	wantStatus(t, rr, http.StatusCreated)

	var resp struct {
		Data SessionResponse `json:"data"`
	}
	parseJSONResponse(t, rr, &resp)
	if resp.Data.Token != "dtt_rawtoken" {
		t.Errorf("token = %q, want dtt_rawtoken", resp.Data.Token)
	}
	if resp.Data.User == nil || resp.Data.User.ID != "user_new" {
		t.Errorf("user = %+v, want user_new", resp.Data.User)
	}
}

func TestAuthSignup_ShortPasswordRejected(t *testing.T) {
	service := &mockAuthService{
		signupFn: func(ctx context.Context, email, name, password, ip, userAgent string) (*types.User, *types.Session, string, error) {
			t.Fatal("signup should not be called for an invalid body")
			return nil, nil, "", nil
		},
	}
	h := newTestAuthHandler(service)

	req := makeRequest("POST", "/api/auth/signup", SignupRequest{
		Email:    "new@example.com",
		Name:     "New User",
		Password: "short",
	}, context.Background())
	rr := httptest.NewRecorder()

	h.Signup(rr, req)
	wantStatus(t, rr, http.StatusBadRequest)
}

func TestAuthLogin_Success(t *testing.T) {
	var gotEmail string
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password, ip, userAgent string) (*types.User, *types.Session, string, error) {
			gotEmail = email
			user, session, token := sessionFixture("user_1")
			return user, session, token, nil
		},
	}
	h := newTestAuthHandler(service)

	req := makeRequest("POST", "/api/auth/login", LoginRequest{
		Email:    "tester@example.com",
		Password: "longenough1",
	}, context.Background())
	rr := httptest.NewRecorder()

	h.Login(rr, req)
	wantStatus(t, rr, http.StatusOK)

	if gotEmail != "tester@example.com" {
		t.Errorf("login email = %q, want tester@example.com", gotEmail)
	}
	var resp struct {
		Data SessionResponse `json:"data"`
	}
	parseJSONResponse(t, rr, &resp)
	if resp.Data.Token != "dtt_rawtoken" {
		t.Errorf("token = %q, want dtt_rawtoken", resp.Data.Token)
	}
}

func TestAuthLogin_InvalidCredentials(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password, ip, userAgent string) (*types.User, *types.Session, string, error) {
			return nil, nil, "", types.NewAppError(types.ErrCodeAuthInvalidCreds, "Invalid email or password", nil)
		},
	}
	h := newTestAuthHandler(service)

	req := makeRequest("POST", "/api/auth/login", LoginRequest{
		Email:    "tester@example.com",
		Password: "wrongpassword",
	}, context.Background())
	rr := httptest.NewRecorder()

	h.Login(rr, req)
	wantStatus(t, rr, http.StatusUnauthorized)
}

func TestAuthLogout_DeletesSession(t *testing.T) {
	service := &mockAuthService{}
	h := newTestAuthHandler(service)

	ctx := contextWithActor("user_1", types.RoleUser)
	req := makeRequest("POST", "/api/auth/logout", nil, ctx)
	req.Header.Set("Authorization", "Bearer dtt_rawtoken")
	rr := httptest.NewRecorder()

	h.Logout(rr, req)
	wantStatus(t, rr, http.StatusNoContent)

	if len(service.logoutTokens) != 1 || service.logoutTokens[0] != "dtt_rawtoken" {
		t.Errorf("logout tokens = %v, want [dtt_rawtoken]", service.logoutTokens)
	}
}

func TestAuthLogout_MissingBearerToken(t *testing.T) {
	service := &mockAuthService{}
	h := newTestAuthHandler(service)

	ctx := contextWithActor("user_1", types.RoleUser)
	req := makeRequest("POST", "/api/auth/logout", nil, ctx)
	rr := httptest.NewRecorder()

	h.Logout(rr, req)
	wantStatus(t, rr, http.StatusUnauthorized)

	if len(service.logoutTokens) != 0 {
		t.Errorf("logout tokens = %v, want none", service.logoutTokens)
	}
}

func TestAuthMe_ReturnsCurrentUser(t *testing.T) {
	h := newTestAuthHandler(nil)

	ctx := contextWithActor("user_1", types.RoleUser)
	req := makeRequest("GET", "/api/auth/me", nil, ctx)
	rr := httptest.NewRecorder()

	h.Me(rr, req)
	wantStatus(t, rr, http.StatusOK)

	var resp struct {
		Data types.User `json:"data"`
	}
	parseJSONResponse(t, rr, &resp)
	if resp.Data.ID != "user_1" {
		t.Errorf("user id = %q, want user_1", resp.Data.ID)
	}
}

func TestAuthMe_Unauthenticated(t *testing.T) {
	h := newTestAuthHandler(nil)

	req := makeRequest("GET", "/api/auth/me", nil, context.Background())
	rr := httptest.NewRecorder()

	h.Me(rr, req)
	wantStatus(t, rr, http.StatusUnauthorized)
}
