package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dttools/internal/billing"
	"dttools/internal/core"
	"dttools/internal/types"
)

// AdminUserStore is the support-tooling slice of the user repository.
type AdminUserStore interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
	UpdateOverrides(ctx context.Context, userID string, maxProjects, aiChatLimit, maxDDProjects, maxDDExports *int) error
}

// AdminAddonStore grants and revokes add-ons outside the checkout flow.
type AdminAddonStore interface {
	Grant(ctx context.Context, userID string, key types.AddonKey) error
	Revoke(ctx context.Context, userID string, key types.AddonKey) error
}

// UpdateOverridesRequest is the request body for PUT /api/admin/users/{userID}/overrides.
// All four overrides are replaced together; a nil field clears the override
// so the plan value applies again.
type UpdateOverridesRequest struct {
	MaxProjects              *int `json:"maxProjects"`
	AIChatLimit              *int `json:"aiChatLimit"`
	MaxDoubleDiamondProjects *int `json:"maxDoubleDiamondProjects"`
	MaxDoubleDiamondExports  *int `json:"maxDoubleDiamondExports"`
}

// AdminHandler hosts support tooling: per-user limit overrides and manual
// add-on grants. Every route sits behind the admin gate.
type AdminHandler struct {
	users     AdminUserStore
	addons    AdminAddonStore
	validator *core.Validator
	logger    *slog.Logger
}

func NewAdminHandler(users AdminUserStore, addons AdminAddonStore, v *core.Validator, l *slog.Logger) *AdminHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AdminHandler{
		users:     users,
		addons:    addons,
		validator: v,
		logger:    l,
	}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router, adminGate Middleware) {
	r.Route("/admin/users/{userID}", func(r chi.Router) {
		r.Use(adminGate)
		r.Put("/overrides", h.UpdateOverrides)
		r.Post("/addons/{addonKey}", h.GrantAddon)
		r.Delete("/addons/{addonKey}", h.RevokeAddon)
	})
}

// UpdateOverrides handles PUT /api/admin/users/{userID}/overrides.
func (h *AdminHandler) UpdateOverrides(w http.ResponseWriter, r *http.Request) {
	var req UpdateOverridesRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	userID := chi.URLParam(r, "userID")
	if _, err := h.users.GetByID(r.Context(), userID); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.users.UpdateOverrides(r.Context(), userID,
		req.MaxProjects, req.AIChatLimit,
		req.MaxDoubleDiamondProjects, req.MaxDoubleDiamondExports); err != nil {
		core.Error(w, r, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user overrides updated",
		slog.String("user_id", userID),
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: user})
}

// GrantAddon handles POST /api/admin/users/{userID}/addons/{addonKey}.
func (h *AdminHandler) GrantAddon(w http.ResponseWriter, r *http.Request) {
	key := types.AddonKey(chi.URLParam(r, "addonKey"))
	if _, ok := billing.AddonByKey(key); !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidAddon, "Unknown add-on key", nil))
		return
	}

	userID := chi.URLParam(r, "userID")
	if _, err := h.users.GetByID(r.Context(), userID); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.addons.Grant(r.Context(), userID, key); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "addon granted",
		slog.String("user_id", userID),
		slog.String("addon_key", string(key)),
	)
	w.WriteHeader(http.StatusNoContent)
}

// RevokeAddon handles DELETE /api/admin/users/{userID}/addons/{addonKey}.
func (h *AdminHandler) RevokeAddon(w http.ResponseWriter, r *http.Request) {
	key := types.AddonKey(chi.URLParam(r, "addonKey"))
	if _, ok := billing.AddonByKey(key); !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidAddon, "Unknown add-on key", nil))
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := h.addons.Revoke(r.Context(), userID, key); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "addon revoked",
		slog.String("user_id", userID),
		slog.String("addon_key", string(key)),
	)
	w.WriteHeader(http.StatusNoContent)
}
