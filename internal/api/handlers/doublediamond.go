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

// DoubleDiamondStore persists Double Diamond projects and their export
// counters.
type DoubleDiamondStore interface {
	Create(ctx context.Context, project *types.DoubleDiamondProject) error
	GetByID(ctx context.Context, id string, userID string) (*types.DoubleDiamondProject, error)
	ListByUserID(ctx context.Context, userID string) ([]*types.DoubleDiamondProject, error)
	UpdatePhase(ctx context.Context, id string, userID string, phase types.DiamondPhase) error
	IncrementExportCount(ctx context.Context, id string, userID string) error
}

// CreateDoubleDiamondRequest is the request body for POST /api/double-diamond.
type CreateDoubleDiamondRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateDiamondPhaseRequest is the request body for PATCH /api/double-diamond/{diamondID}/phase.
type UpdateDiamondPhaseRequest struct {
	Phase string `json:"phase" validate:"required,oneof=discover define develop deliver"`
}

// DoubleDiamondHandler manages Double Diamond methodology projects.
type DoubleDiamondHandler struct {
	diamonds  DoubleDiamondStore
	validator *core.Validator
	logger    *slog.Logger
}

func NewDoubleDiamondHandler(diamonds DoubleDiamondStore, v *core.Validator, l *slog.Logger) *DoubleDiamondHandler {
	if l == nil {
		l = slog.Default()
	}
	return &DoubleDiamondHandler{
		diamonds:  diamonds,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts Double Diamond routes. Creation and export are gated
// independently: the creation gate caps how many projects a user can hold,
// the export gate caps cumulative exports across them.
func (h *DoubleDiamondHandler) RegisterRoutes(r chi.Router, creationGate, exportGate Middleware) {
	r.Route("/double-diamond", func(r chi.Router) {
		r.With(creationGate).Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{diamondID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/phase", h.UpdatePhase)
			r.With(exportGate).Post("/export", h.Export)
		})
	})
}

// Create handles POST /api/double-diamond.
func (h *DoubleDiamondHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	var req CreateDoubleDiamondRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	project := &types.DoubleDiamondProject{
		ID:          "dd_" + uuid.New().String(),
		UserID:      actor.ID,
		Name:        req.Name,
		Description: req.Description,
		Phase:       types.PhaseDiscover,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.diamonds.Create(r.Context(), project); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "double diamond project created",
		slog.String("diamond_id", project.ID),
		slog.String("user_id", actor.ID),
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: project})
}

// List handles GET /api/double-diamond.
func (h *DoubleDiamondHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	projects, err := h.diamonds.ListByUserID(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: projects})
}

// Get handles GET /api/double-diamond/{diamondID}.
func (h *DoubleDiamondHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	project, err := h.diamonds.GetByID(r.Context(), chi.URLParam(r, "diamondID"), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: project})
}

// UpdatePhase handles PATCH /api/double-diamond/{diamondID}/phase.
func (h *DoubleDiamondHandler) UpdatePhase(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	var req UpdateDiamondPhaseRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	diamondID := chi.URLParam(r, "diamondID")
	if err := h.diamonds.UpdatePhase(r.Context(), diamondID, actor.ID, types.DiamondPhase(req.Phase)); err != nil {
		core.Error(w, r, err)
		return
	}

	project, err := h.diamonds.GetByID(r.Context(), diamondID, actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: project})
}

// Export handles POST /api/double-diamond/{diamondID}/export. The counter is
// incremented only after ownership is confirmed, so exports against other
// users' projects never burn quota.
func (h *DoubleDiamondHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	diamondID := chi.URLParam(r, "diamondID")
	project, err := h.diamonds.GetByID(r.Context(), diamondID, actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.diamonds.IncrementExportCount(r.Context(), diamondID, actor.ID); err != nil {
		core.Error(w, r, err)
		return
	}
	project.ExportCount++

	h.logger.InfoContext(r.Context(), "double diamond exported",
		slog.String("diamond_id", diamondID),
		slog.Int("export_count", project.ExportCount),
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: project})
}
