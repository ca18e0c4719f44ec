package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dttools/internal/core"
	"dttools/internal/types"
)

// EntitlementResolver resolves the full entitlement for a user, or the free
// plan defaults for anonymous callers.
type EntitlementResolver interface {
	ResolveForUser(ctx context.Context, userID string) (*types.Entitlement, error)
	ResolveAnonymous(ctx context.Context) (*types.Entitlement, error)
}

// ProjectCounter reports the caller's current project count for the usage
// block of the subscription-info response.
type ProjectCounter interface {
	ProjectCount(ctx context.Context, userID string) (int, error)
}

// SubscriptionUsage is the usage block of the subscription-info response.
type SubscriptionUsage struct {
	Projects int `json:"projects"`
}

// SubscriptionInfoResponse is the body of GET /api/subscription-info.
type SubscriptionInfoResponse struct {
	Plan         *types.SubscriptionPlan `json:"plan"`
	Subscription *types.UserSubscription `json:"subscription"`
	Limits       *types.Limits           `json:"limits"`
	Addons       types.AddonFlags        `json:"addons"`
	Usage        SubscriptionUsage       `json:"usage"`
}

// SubscriptionHandler serves the resolved entitlement snapshot.
type SubscriptionHandler struct {
	entitlements EntitlementResolver
	usage        ProjectCounter
	logger       *slog.Logger
}

func NewSubscriptionHandler(entitlements EntitlementResolver, usage ProjectCounter, l *slog.Logger) *SubscriptionHandler {
	if l == nil {
		l = slog.Default()
	}
	return &SubscriptionHandler{
		entitlements: entitlements,
		usage:        usage,
		logger:       l,
	}
}

func (h *SubscriptionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/subscription-info", h.Info)
}

// Info handles GET /api/subscription-info. Anonymous callers (the route is
// reachable without a token) get the free plan's limits, no add-ons, and a
// zero project count.
func (h *SubscriptionHandler) Info(w http.ResponseWriter, r *http.Request) {
	actor, authenticated := types.GetActor(r.Context())

	var (
		ent *types.Entitlement
		err error
	)
	if authenticated {
		ent, err = h.entitlements.ResolveForUser(r.Context(), actor.ID)
	} else {
		ent, err = h.entitlements.ResolveAnonymous(r.Context())
	}
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp := SubscriptionInfoResponse{
		Plan:         ent.Plan,
		Subscription: ent.Subscription,
		Limits:       ent.Limits,
		Addons:       ent.Addons,
	}

	if authenticated {
		count, err := h.usage.ProjectCount(r.Context(), actor.ID)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		resp.Usage.Projects = count
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}
