package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dttools/internal/billing"
	"dttools/internal/config"
	"dttools/internal/core"
	"dttools/internal/external"
	"dttools/internal/types"
)

// PlanCatalog resolves named plans for checkout.
type PlanCatalog interface {
	GetByName(ctx context.Context, name types.PlanName) (*types.SubscriptionPlan, error)
}

// CheckoutPlanRequest is the request body for POST /api/billing/checkout/plan.
type CheckoutPlanRequest struct {
	Plan string `json:"plan" validate:"required,oneof=pro team enterprise"`
}

// CheckoutAddonRequest is the request body for POST /api/billing/checkout/addon.
type CheckoutAddonRequest struct {
	Addon string `json:"addon" validate:"required"`
}

// CheckoutResponse is the response for checkout session creation.
type CheckoutResponse struct {
	CheckoutURL string    `json:"checkoutUrl"`
	SessionID   string    `json:"sessionId"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// PortalResponse is the response for POST /api/billing/portal.
type PortalResponse struct {
	PortalURL string `json:"portalUrl"`
}

// BillingHandler handles synchronous billing actions initiated by the user.
// Webhook-driven state changes live in WebhookHandler.
type BillingHandler struct {
	provider     external.BillingProvider
	plans        PlanCatalog
	validator    *core.Validator
	dashboardURL string
	logger       *slog.Logger
}

func NewBillingHandler(provider external.BillingProvider, plans PlanCatalog, cfg *config.Config, v *core.Validator, l *slog.Logger) *BillingHandler {
	if l == nil {
		l = slog.Default()
	}

	dashboardURL := ""
	if cfg != nil {
		dashboardURL = cfg.Server.DashboardURL
	}

	return &BillingHandler{
		provider:     provider,
		plans:        plans,
		validator:    v,
		dashboardURL: dashboardURL,
		logger:       l,
	}
}

func (h *BillingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/billing", func(r chi.Router) {
		r.Post("/checkout/plan", h.CheckoutPlan)
		r.Post("/checkout/addon", h.CheckoutAddon)
		r.Post("/portal", h.Portal)
	})
}

// checkoutURLs builds the redirect targets server-side. Client-supplied
// redirect URLs would be an open redirect.
func (h *BillingHandler) checkoutURLs() external.CheckoutURLs {
	return external.CheckoutURLs{
		Success: h.dashboardURL + "/billing?success=true",
		Cancel:  h.dashboardURL + "/billing?canceled=true",
	}
}

// CheckoutPlan handles POST /api/billing/checkout/plan. Downgrades to free go
// through the portal, so free is rejected by validation.
func (h *BillingHandler) CheckoutPlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	var req CheckoutPlanRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	plan, err := h.plans.GetByName(r.Context(), types.PlanName(req.Plan))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	checkoutURL, sessionID, err := h.provider.CreatePlanCheckout(r.Context(), actor.ID, plan, h.checkoutURLs())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "plan checkout failed",
			slog.String("user_id", actor.ID),
			slog.String("plan", req.Plan),
			slog.Any("error", err),
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: CheckoutResponse{
		CheckoutURL: checkoutURL,
		SessionID:   sessionID,
		ExpiresAt:   time.Now().UTC().Add(24 * time.Hour),
	}})
}

// CheckoutAddon handles POST /api/billing/checkout/addon. The add-on key must
// belong to the closed catalog set.
func (h *BillingHandler) CheckoutAddon(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	var req CheckoutAddonRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	addon, ok := billing.AddonByKey(types.AddonKey(req.Addon))
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidAddon,
			"Unknown add-on key", nil))
		return
	}

	checkoutURL, sessionID, err := h.provider.CreateAddonCheckout(r.Context(), actor.ID, addon, h.checkoutURLs())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "addon checkout failed",
			slog.String("user_id", actor.ID),
			slog.String("addon", req.Addon),
			slog.Any("error", err),
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: CheckoutResponse{
		CheckoutURL: checkoutURL,
		SessionID:   sessionID,
		ExpiresAt:   time.Now().UTC().Add(24 * time.Hour),
	}})
}

// Portal handles POST /api/billing/portal.
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	portalURL, err := h.provider.CreatePortalSession(r.Context(), actor.ID, h.dashboardURL+"/billing")
	if err != nil {
		h.logger.ErrorContext(r.Context(), "portal session failed",
			slog.String("user_id", actor.ID),
			slog.Any("error", err),
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: PortalResponse{PortalURL: portalURL}})
}
