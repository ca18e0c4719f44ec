package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"dttools/internal/auth"
	"dttools/internal/core"
	"dttools/internal/types"
)

// InviteStore persists project invitations.
type InviteStore interface {
	Create(ctx context.Context, invite *types.ProjectInvite) error
	ListByProjectID(ctx context.Context, projectID string) ([]*types.ProjectInvite, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*types.ProjectInvite, error)
	MarkAccepted(ctx context.Context, id string, at time.Time) error
}

// InviteProjectStore checks project ownership before issuing invites.
type InviteProjectStore interface {
	GetByID(ctx context.Context, id string, userID string) (*types.Project, error)
}

// CreateInviteRequest is the request body for POST /api/projects/{projectID}/invites.
type CreateInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=editor viewer"`
}

// AcceptInviteRequest is the request body for POST /api/invites/accept.
type AcceptInviteRequest struct {
	Token string `json:"token" validate:"required"`
}

// InviteResponse carries the raw token alongside the stored invite. The
// token is shown exactly once; only its hash survives.
type InviteResponse struct {
	Invite *types.ProjectInvite `json:"invite"`
	Token  string               `json:"token"`
}

const inviteTTL = 7 * 24 * time.Hour

// InviteHandler manages team invitations on a project.
type InviteHandler struct {
	invites   InviteStore
	projects  InviteProjectStore
	tokens    auth.TokenGenerator
	validator *core.Validator
	logger    *slog.Logger
}

func NewInviteHandler(invites InviteStore, projects InviteProjectStore, tokens auth.TokenGenerator, v *core.Validator, l *slog.Logger) *InviteHandler {
	if l == nil {
		l = slog.Default()
	}
	return &InviteHandler{
		invites:   invites,
		projects:  projects,
		tokens:    tokens,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts invitation routes. The collaboration gate caps team
// size in front of invite creation; accepting is keyed by token alone.
func (h *InviteHandler) RegisterRoutes(r chi.Router, collabGate Middleware) {
	r.Route("/projects/{projectID}/invites", func(r chi.Router) {
		r.With(collabGate).Post("/", h.Create)
		r.Get("/", h.List)
	})
	r.Post("/invites/accept", h.Accept)
}

// Create handles POST /api/projects/{projectID}/invites.
func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	projectID := chi.URLParam(r, "projectID")
	if _, err := h.projects.GetByID(r.Context(), projectID, actor.ID); err != nil {
		core.Error(w, r, err)
		return
	}

	var req CreateInviteRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	token, err := h.tokens.GenerateInviteToken()
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to generate invite token", err))
		return
	}

	now := time.Now().UTC()
	invite := &types.ProjectInvite{
		ID:        "inv_" + uuid.New().String(),
		ProjectID: projectID,
		Email:     req.Email,
		Role:      req.Role,
		TokenHash: auth.HashToken(token),
		ExpiresAt: now.Add(inviteTTL),
		CreatedAt: now,
	}

	if err := h.invites.Create(r.Context(), invite); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "invite created",
		slog.String("invite_id", invite.ID),
		slog.String("project_id", projectID),
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: InviteResponse{
		Invite: invite,
		Token:  token,
	}})
}

// List handles GET /api/projects/{projectID}/invites.
func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	projectID := chi.URLParam(r, "projectID")
	if _, err := h.projects.GetByID(r.Context(), projectID, actor.ID); err != nil {
		core.Error(w, r, err)
		return
	}

	invites, err := h.invites.ListByProjectID(r.Context(), projectID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: invites})
}

// Accept handles POST /api/invites/accept. Expired and already-accepted
// invites both surface as not found so the token reveals nothing about the
// invite's state.
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req AcceptInviteRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	invite, err := h.invites.GetByTokenHash(r.Context(), auth.HashToken(req.Token))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	if invite.AcceptedAt != nil || now.After(invite.ExpiresAt) {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundInvite, "Invite not found", nil))
		return
	}

	if err := h.invites.MarkAccepted(r.Context(), invite.ID, now); err != nil {
		core.Error(w, r, err)
		return
	}
	invite.AcceptedAt = &now

	h.logger.InfoContext(r.Context(), "invite accepted",
		slog.String("invite_id", invite.ID),
		slog.String("project_id", invite.ProjectID),
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: invite})
}
