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

// ProjectStore is the data access contract for project CRUD. Mirrors the
// concrete db.ProjectRepository methods used by this handler.
type ProjectStore interface {
	Create(ctx context.Context, project *types.Project) error
	GetByID(ctx context.Context, id string, userID string) (*types.Project, error)
	ListByUserID(ctx context.Context, userID string) ([]*types.Project, error)
	Update(ctx context.Context, project *types.Project) error
	Delete(ctx context.Context, id string, userID string) error
}

// CreateProjectRequest is the request body for POST /api/projects.
type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateProjectRequest is the request body for PATCH /api/projects/{projectID}.
type UpdateProjectRequest struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Description    *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Status         *string `json:"status,omitempty" validate:"omitempty,oneof=in_progress completed archived"`
	CurrentPhase   *int    `json:"currentPhase,omitempty" validate:"omitempty,min=1,max=5"`
	CompletionRate *int    `json:"completionRate,omitempty" validate:"omitempty,min=0,max=100"`
}

// ProjectHandler manages design thinking project CRUD.
type ProjectHandler struct {
	projects  ProjectStore
	validator *core.Validator
	logger    *slog.Logger
}

func NewProjectHandler(projects ProjectStore, v *core.Validator, l *slog.Logger) *ProjectHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ProjectHandler{
		projects:  projects,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts project routes. The creation gate enforces the plan's
// project cap in front of Create only.
func (h *ProjectHandler) RegisterRoutes(r chi.Router, creationGate Middleware) {
	r.Route("/projects", func(r chi.Router) {
		r.With(creationGate).Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	var req CreateProjectRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	project := &types.Project{
		ID:           "proj_" + uuid.New().String(),
		UserID:       actor.ID,
		Name:         req.Name,
		Description:  req.Description,
		Status:       types.ProjectStatusInProgress,
		CurrentPhase: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.projects.Create(r.Context(), project); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "project created",
		slog.String("project_id", project.ID),
		slog.String("user_id", actor.ID),
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: project})
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	projects, err := h.projects.ListByUserID(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: projects})
}

// Get handles GET /api/projects/{projectID}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	project, err := h.projects.GetByID(r.Context(), chi.URLParam(r, "projectID"), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: project})
}

// Update handles PATCH /api/projects/{projectID}. Partial update; absent
// fields keep their stored values.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	var req UpdateProjectRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	project, err := h.projects.GetByID(r.Context(), chi.URLParam(r, "projectID"), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Status != nil {
		project.Status = types.ProjectStatus(*req.Status)
	}
	if req.CurrentPhase != nil {
		project.CurrentPhase = *req.CurrentPhase
	}
	if req.CompletionRate != nil {
		project.CompletionRate = *req.CompletionRate
	}
	project.UpdatedAt = time.Now().UTC()

	if err := h.projects.Update(r.Context(), project); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: project})
}

// Delete handles DELETE /api/projects/{projectID}.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	if err := h.projects.Delete(r.Context(), chi.URLParam(r, "projectID"), actor.ID); err != nil {
		core.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
