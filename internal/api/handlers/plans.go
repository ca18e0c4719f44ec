package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"dttools/internal/core"
	"dttools/internal/types"
)

// PlanStore is the catalog access contract for the public listing and the
// admin CRUD routes.
type PlanStore interface {
	List(ctx context.Context) ([]*types.SubscriptionPlan, error)
	GetByID(ctx context.Context, id string) (*types.SubscriptionPlan, error)
	Create(ctx context.Context, plan *types.SubscriptionPlan) error
	Update(ctx context.Context, plan *types.SubscriptionPlan) error
}

// PlanRequest is the request body for admin plan create and update. Numeric
// caps use pointers; nil means unlimited.
type PlanRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	DisplayName string `json:"displayName" validate:"required,max=200"`
	PriceCents  int64  `json:"priceCents" validate:"min=0"`

	MaxProjects              *int `json:"maxProjects"`
	MaxPersonasPerProject    *int `json:"maxPersonasPerProject"`
	MaxUsersPerTeam          *int `json:"maxUsersPerTeam"`
	AIChatLimit              *int `json:"aiChatLimit"`
	LibraryArticlesCount     *int `json:"libraryArticlesCount"`
	MaxDoubleDiamondProjects *int `json:"maxDoubleDiamondProjects"`
	MaxDoubleDiamondExports  *int `json:"maxDoubleDiamondExports"`

	HasCollaboration        bool `json:"hasCollaboration"`
	HasSharedWorkspace      bool `json:"hasSharedWorkspace"`
	HasCommentsAndFeedback  bool `json:"hasCommentsAndFeedback"`
	HasPermissionManagement bool `json:"hasPermissionManagement"`
	HasSso                  bool `json:"hasSso"`
	HasCustomIntegrations   bool `json:"hasCustomIntegrations"`
	Has24x7Support          bool `json:"has24x7Support"`

	ExportFormats []string `json:"exportFormats" validate:"dive,oneof=pdf png csv markdown"`
}

// PlanHandler serves the public catalog and the admin plan management routes.
type PlanHandler struct {
	plans     PlanStore
	validator *core.Validator
	logger    *slog.Logger
}

func NewPlanHandler(plans PlanStore, v *core.Validator, l *slog.Logger) *PlanHandler {
	if l == nil {
		l = slog.Default()
	}
	return &PlanHandler{
		plans:     plans,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the public catalog listing and, behind the admin
// gate, the plan management routes.
func (h *PlanHandler) RegisterRoutes(r chi.Router, adminGate Middleware) {
	r.Get("/plans", h.List)

	r.Route("/admin/plans", func(r chi.Router) {
		r.Use(adminGate)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/{planID}", h.Update)
	})
}

// List handles GET /api/plans. Public so the pricing page can render without
// a session.
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: plans})
}

// Create handles POST /api/admin/plans.
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	plan := req.toPlan()
	plan.ID = "plan_" + uuid.New().String()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	if err := h.plans.Create(r.Context(), plan); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "plan created",
		slog.String("plan_id", plan.ID),
		slog.String("name", plan.Name),
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: plan})
}

// Update handles PUT /api/admin/plans/{planID}. Full replacement of the
// plan's caps and flags; partial edits go through the dashboard as full
// submissions.
func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	existing, err := h.plans.GetByID(r.Context(), planID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req PlanRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	plan := req.toPlan()
	plan.ID = existing.ID
	plan.CreatedAt = existing.CreatedAt
	plan.UpdatedAt = time.Now().UTC()

	if err := h.plans.Update(r.Context(), plan); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "plan updated",
		slog.String("plan_id", plan.ID),
		slog.String("name", plan.Name),
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: plan})
}

func (req *PlanRequest) toPlan() *types.SubscriptionPlan {
	return &types.SubscriptionPlan{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		PriceCents:  req.PriceCents,

		MaxProjects:              req.MaxProjects,
		MaxPersonasPerProject:    req.MaxPersonasPerProject,
		MaxUsersPerTeam:          req.MaxUsersPerTeam,
		AIChatLimit:              req.AIChatLimit,
		LibraryArticlesCount:     req.LibraryArticlesCount,
		MaxDoubleDiamondProjects: req.MaxDoubleDiamondProjects,
		MaxDoubleDiamondExports:  req.MaxDoubleDiamondExports,

		HasCollaboration:        req.HasCollaboration,
		HasSharedWorkspace:      req.HasSharedWorkspace,
		HasCommentsAndFeedback:  req.HasCommentsAndFeedback,
		HasPermissionManagement: req.HasPermissionManagement,
		HasSso:                  req.HasSso,
		HasCustomIntegrations:   req.HasCustomIntegrations,
		Has24x7Support:          req.Has24x7Support,

		ExportFormats: req.ExportFormats,
	}
}
