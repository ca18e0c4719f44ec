package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"dttools/internal/core"
	"dttools/internal/types"
)

// ExportJobStore records queued binary exports.
type ExportJobStore interface {
	CreateJob(ctx context.Context, job *types.ExportJob) error
	ListByProjectID(ctx context.Context, projectID string, userID string) ([]*types.ExportJob, error)
}

// ExportProjectStore loads the project and its personas for rendering.
type ExportProjectStore interface {
	GetByID(ctx context.Context, id string, userID string) (*types.Project, error)
}

// ExportPersonaStore supplies the personas included in an export.
type ExportPersonaStore interface {
	ListByProjectID(ctx context.Context, projectID string) ([]*types.Persona, error)
}

// ExportHandler renders project exports. Markdown and CSV are produced
// inline; PDF and PNG are queued as jobs for the render worker.
type ExportHandler struct {
	projects ExportProjectStore
	personas ExportPersonaStore
	jobs     ExportJobStore
	logger   *slog.Logger
}

func NewExportHandler(projects ExportProjectStore, personas ExportPersonaStore, jobs ExportJobStore, l *slog.Logger) *ExportHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ExportHandler{
		projects: projects,
		personas: personas,
		jobs:     jobs,
		logger:   l,
	}
}

// RegisterRoutes mounts export routes. The format gate rejects formats the
// caller's plan does not grant before the handler runs.
func (h *ExportHandler) RegisterRoutes(r chi.Router, formatGate Middleware) {
	r.Route("/projects/{projectID}/export", func(r chi.Router) {
		r.With(formatGate).Get("/", h.Export)
		r.Get("/jobs", h.ListJobs)
	})
}

// Export handles GET /api/projects/{projectID}/export?format=.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	format := types.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = types.FormatMarkdown
	}

	projectID := chi.URLParam(r, "projectID")
	project, err := h.projects.GetByID(r.Context(), projectID, actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	switch format {
	case types.FormatMarkdown:
		personas, err := h.personas.ListByProjectID(r.Context(), projectID)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		h.writeInline(w, r, renderMarkdown(project, personas), "text/markdown; charset=utf-8",
			project.ID+".md")

	case types.FormatCSV:
		personas, err := h.personas.ListByProjectID(r.Context(), projectID)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		body, err := renderCSV(project, personas)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		h.writeInline(w, r, body, "text/csv; charset=utf-8", project.ID+".csv")

	case types.FormatPDF, types.FormatPNG:
		job := &types.ExportJob{
			ID:        "exp_" + uuid.New().String(),
			ProjectID: projectID,
			UserID:    actor.ID,
			Format:    format,
			Status:    types.ExportJobQueued,
			CreatedAt: time.Now().UTC(),
		}
		if err := h.jobs.CreateJob(r.Context(), job); err != nil {
			core.Error(w, r, err)
			return
		}
		h.logger.InfoContext(r.Context(), "export job queued",
			slog.String("job_id", job.ID),
			slog.String("format", string(format)),
		)
		core.JSON(w, r, http.StatusAccepted, core.APIResponse{Data: job})

	default:
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationFormat,
			fmt.Sprintf("unsupported export format %q", format), nil))
	}
}

// ListJobs handles GET /api/projects/{projectID}/export/jobs.
func (h *ExportHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
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

	jobs, err := h.jobs.ListByProjectID(r.Context(), projectID, actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: jobs})
}

// writeInline sends a rendered document, gzip-compressed when the client
// accepts it.
func (h *ExportHandler) writeInline(w http.ResponseWriter, r *http.Request, body []byte, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusOK)
		gz := gzip.NewWriter(w)
		if _, err := gz.Write(body); err != nil {
			h.logger.ErrorContext(r.Context(), "export write failed", slog.Any("error", err))
			return
		}
		if err := gz.Close(); err != nil {
			h.logger.ErrorContext(r.Context(), "export flush failed", slog.Any("error", err))
		}
		return
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.ErrorContext(r.Context(), "export write failed", slog.Any("error", err))
	}
}

func renderMarkdown(project *types.Project, personas []*types.Persona) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", project.Name)
	if project.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", project.Description)
	}
	fmt.Fprintf(&b, "- Status: %s\n", project.Status)
	fmt.Fprintf(&b, "- Phase: %d\n", project.CurrentPhase)
	fmt.Fprintf(&b, "- Completion: %d%%\n\n", project.CompletionRate)

	if len(personas) > 0 {
		b.WriteString("## Personas\n\n")
		for _, p := range personas {
			fmt.Fprintf(&b, "### %s\n\n", p.Name)
			if p.Occupation != "" {
				fmt.Fprintf(&b, "%s, %d\n\n", p.Occupation, p.Age)
			}
			if p.Bio != "" {
				fmt.Fprintf(&b, "%s\n\n", p.Bio)
			}
			for _, g := range p.Goals {
				fmt.Fprintf(&b, "- Goal: %s\n", g)
			}
			for _, f := range p.Frustrations {
				fmt.Fprintf(&b, "- Frustration: %s\n", f)
			}
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

func renderCSV(project *types.Project, personas []*types.Persona) ([]byte, error) {
	var b strings.Builder
	cw := csv.NewWriter(&b)

	records := [][]string{
		{"type", "name", "detail_1", "detail_2", "detail_3"},
		{"project", project.Name, string(project.Status),
			strconv.Itoa(project.CurrentPhase), strconv.Itoa(project.CompletionRate)},
	}
	for _, p := range personas {
		records = append(records, []string{
			"persona", p.Name, p.Occupation,
			strings.Join(p.Goals, "; "), strings.Join(p.Frustrations, "; "),
		})
	}
	if err := cw.WriteAll(records); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}
