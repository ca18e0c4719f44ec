// Package handlers contains the HTTP handler implementations for the DTTools
// API. Each handler declares the narrow data-access interfaces it needs,
// receives its dependencies through its constructor, and mounts its own
// routes on the shared chi router.
package handlers

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"dttools/internal/auth"
	"dttools/internal/core"
	"dttools/internal/types"
)

// Middleware is a chi-compatible middleware constructor. Handlers take the
// limit gates as Middleware values so route wiring stays in one place.
type Middleware = func(http.Handler) http.Handler

// AuthService is the account lifecycle contract backing the auth routes.
// auth.Service satisfies it.
type AuthService interface {
	Signup(ctx context.Context, email, name, password, ip, userAgent string) (*types.User, *types.Session, string, error)
	Login(ctx context.Context, email, password, ip, userAgent string) (*types.User, *types.Session, string, error)
	Logout(ctx context.Context, token string) error
}

// AuthUserStore loads the full user row for GET /auth/me.
type AuthUserStore interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
}

// SignupRequest is the request body for POST /api/auth/signup.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the request body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse carries the raw session token. The token is shown exactly
// once; only its hash is stored.
type SessionResponse struct {
	User      *types.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// AuthHandler serves signup, login, logout, and the current-user lookup.
type AuthHandler struct {
	service   AuthService
	users     AuthUserStore
	validator *core.Validator
	logger    *slog.Logger
}

func NewAuthHandler(service AuthService, users AuthUserStore, v *core.Validator, l *slog.Logger) *AuthHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AuthHandler{
		service:   service,
		users:     users,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the auth routes. Signup and login are public;
// logout and me run behind the auth middleware.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	user, session, token, err := h.service.Signup(r.Context(), req.Email, req.Name, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user signed up", slog.String("user_id", user.ID))
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: SessionResponse{
		User:      user,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	user, session, token, err := h.service.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: SessionResponse{
		User:      user,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}})
}

// Logout handles POST /api/auth/logout. The session behind the presented
// token is deleted; the response is 204 once the token parses.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := types.GetActor(r.Context()); !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	token := bearerToken(r)
	if token == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Bearer token is required", nil))
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		core.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: user})
}

// bearerToken pulls the raw bearer token off the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// clientIP strips the port from RemoteAddr. Proxy headers are not trusted;
// the deployment terminates TLS at the app.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

var _ AuthService = (*auth.Service)(nil)
