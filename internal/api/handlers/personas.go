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

// PersonaStore persists empathize-phase personas.
type PersonaStore interface {
	Create(ctx context.Context, persona *types.Persona) error
	ListByProjectID(ctx context.Context, projectID string) ([]*types.Persona, error)
}

// PersonaProjectStore checks project ownership before persona access.
type PersonaProjectStore interface {
	GetByID(ctx context.Context, id string, userID string) (*types.Project, error)
}

// CreatePersonaRequest is the request body for POST /api/projects/{projectID}/personas.
type CreatePersonaRequest struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Age          int      `json:"age" validate:"omitempty,min=0,max=150"`
	Occupation   string   `json:"occupation" validate:"max=200"`
	Bio          string   `json:"bio" validate:"max=2000"`
	Goals        []string `json:"goals" validate:"max=20,dive,max=500"`
	Frustrations []string `json:"frustrations" validate:"max=20,dive,max=500"`
}

// PersonaHandler manages personas nested under a project.
type PersonaHandler struct {
	personas  PersonaStore
	projects  PersonaProjectStore
	validator *core.Validator
	logger    *slog.Logger
}

func NewPersonaHandler(personas PersonaStore, projects PersonaProjectStore, v *core.Validator, l *slog.Logger) *PersonaHandler {
	if l == nil {
		l = slog.Default()
	}
	return &PersonaHandler{
		personas:  personas,
		projects:  projects,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts persona routes. The creation gate enforces the
// per-project persona cap in front of Create only.
func (h *PersonaHandler) RegisterRoutes(r chi.Router, creationGate Middleware) {
	r.Route("/projects/{projectID}/personas", func(r chi.Router) {
		r.With(creationGate).Post("/", h.Create)
		r.Get("/", h.List)
	})
}

// Create handles POST /api/projects/{projectID}/personas.
func (h *PersonaHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req CreatePersonaRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	persona := &types.Persona{
		ID:           "persona_" + uuid.New().String(),
		ProjectID:    projectID,
		Name:         req.Name,
		Age:          req.Age,
		Occupation:   req.Occupation,
		Bio:          req.Bio,
		Goals:        req.Goals,
		Frustrations: req.Frustrations,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.personas.Create(r.Context(), persona); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "persona created",
		slog.String("persona_id", persona.ID),
		slog.String("project_id", projectID),
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: persona})
}

// List handles GET /api/projects/{projectID}/personas.
func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
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

	personas, err := h.personas.ListByProjectID(r.Context(), projectID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: personas})
}
