package core

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dttools/internal/types"
)

// limitRejection is the JSON body written on a 403 limit rejection. Clients
// match on Code verbatim and render the usage numbers in upgrade dialogs.
type limitRejection struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	CurrentUsage *int   `json:"currentUsage,omitempty"`
	Limit        *int   `json:"limit,omitempty"`
	UpgradeURL   string `json:"upgradeUrl"`
}

// limitFailure is the JSON body written when a gate cannot make a decision.
// Gates fail closed: a missing entitlement or unreachable counter store is a
// 500, never an allow. Resolver internals are not leaked.
type limitFailure struct {
	Error string `json:"error"`
}

// gateActor extracts the Actor for a gated route. Gates run behind
// AuthMiddleware, so a missing actor means the route was mounted without
// authentication; respond 401 rather than guessing.
func (s *Server) gateActor(w http.ResponseWriter, r *http.Request) (types.Actor, bool) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Authentication required")
		return types.Actor{}, false
	}
	return actor, true
}

// gateLimits extracts the resolved limits from the request context.
// A missing or nil-limits entitlement is a configuration fault.
func (s *Server) gateLimits(w http.ResponseWriter, r *http.Request) (*types.Limits, bool) {
	ent, ok := types.GetEntitlement(r.Context())
	if !ok || ent.Limits == nil {
		s.Logger.Error("limit gate has no resolved entitlement",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		JSON(w, r, http.StatusInternalServerError, limitFailure{Error: "unable to resolve subscription limits"})
		return nil, false
	}
	return ent.Limits, true
}

// rejectLimit writes the 403 limit rejection body.
func (s *Server) rejectLimit(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string, usage int, limit int) {
	s.Logger.Info("limit gate rejected request",
		slog.String("code", string(code)),
		slog.String("path", r.URL.Path),
		slog.Int("current_usage", usage),
		slog.Int("limit", limit),
	)
	JSON(w, r, http.StatusForbidden, limitRejection{
		Error:        message,
		Code:         string(code),
		CurrentUsage: &usage,
		Limit:        &limit,
		UpgradeURL:   s.Config.UpgradeURL(),
	})
}

// rejectCapability writes the 403 rejection for a boolean capability the
// entitlement does not grant. There are no usage numbers to report.
func (s *Server) rejectCapability(w http.ResponseWriter, r *http.Request, message string) {
	s.Logger.Info("capability gate rejected request",
		slog.String("path", r.URL.Path),
	)
	JSON(w, r, http.StatusForbidden, limitRejection{
		Error:      message,
		Code:       string(types.ErrCodeUpgradeRequired),
		UpgradeURL: s.Config.UpgradeURL(),
	})
}

// enforceCount applies the shared counted-resource rule: allow when the
// resolved limit is nil (unlimited) or usage < limit, reject otherwise.
// The usage count is only computed when a finite limit demands it.
// Returns true when the request may proceed.
func (s *Server) enforceCount(
	w http.ResponseWriter,
	r *http.Request,
	limit *int,
	code types.ErrorCode,
	message string,
	count func(ctx context.Context) (int, error),
) bool {
	if limit == nil {
		return true
	}

	usage, err := count(r.Context())
	if err != nil {
		s.Logger.Error("limit gate usage lookup failed",
			slog.String("code", string(code)),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		JSON(w, r, http.StatusInternalServerError, limitFailure{Error: "unable to check usage"})
		return false
	}

	if usage < *limit {
		return true
	}

	s.rejectLimit(w, r, code, message, usage, *limit)
	return false
}

// ProjectCreationGate rejects project creation once the user's project count
// reaches the resolved maxProjects limit.
func (s *Server) ProjectCreationGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := s.gateActor(w, r)
		if !ok {
			return
		}
		if actor.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}

		limits, ok := s.gateLimits(w, r)
		if !ok {
			return
		}

		allowed := s.enforceCount(w, r, limits.MaxProjects,
			types.ErrCodeProjectLimit, "Project limit reached for your plan",
			func(ctx context.Context) (int, error) {
				return s.Usage.ProjectCount(ctx, actor.ID)
			})
		if allowed {
			next.ServeHTTP(w, r)
		}
	})
}

// PersonaCreationGate rejects persona creation once the project's persona
// count reaches the resolved maxPersonasPerProject limit. The project ID is
// read from the route pattern.
func (s *Server) PersonaCreationGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := s.gateActor(w, r)
		if !ok {
			return
		}
		if actor.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}

		limits, ok := s.gateLimits(w, r)
		if !ok {
			return
		}

		projectID := chi.URLParam(r, "projectID")
		allowed := s.enforceCount(w, r, limits.MaxPersonasPerProject,
			types.ErrCodePersonaLimit, "Persona limit reached for this project",
			func(ctx context.Context) (int, error) {
				return s.Usage.PersonaCount(ctx, projectID)
			})
		if allowed {
			next.ServeHTTP(w, r)
		}
	})
}

// AIChatGate rejects AI chat messages once the user's monthly message count
// reaches the resolved aiChatLimit. The window is the calendar month (UTC);
// the counter store owns the rollover.
func (s *Server) AIChatGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := s.gateActor(w, r)
		if !ok {
			return
		}
		if actor.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}

		limits, ok := s.gateLimits(w, r)
		if !ok {
			return
		}

		allowed := s.enforceCount(w, r, limits.AIChatLimit,
			types.ErrCodeAIChatLimit, "Monthly AI chat limit reached",
			func(ctx context.Context) (int, error) {
				return s.Usage.AIChatCount(ctx, actor.ID, s.clock().Now())
			})
		if allowed {
			next.ServeHTTP(w, r)
		}
	})
}

// DoubleDiamondCreationGate rejects Double Diamond project creation once the
// user's count reaches the resolved maxDoubleDiamondProjects limit.
func (s *Server) DoubleDiamondCreationGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := s.gateActor(w, r)
		if !ok {
			return
		}
		if actor.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}

		limits, ok := s.gateLimits(w, r)
		if !ok {
			return
		}

		allowed := s.enforceCount(w, r, limits.MaxDoubleDiamondProjects,
			types.ErrCodeDoubleDiamondLimit, "Double Diamond project limit reached for your plan",
			func(ctx context.Context) (int, error) {
				return s.Usage.DoubleDiamondCount(ctx, actor.ID)
			})
		if allowed {
			next.ServeHTTP(w, r)
		}
	})
}

// DoubleDiamondExportGate rejects Double Diamond exports once the user's
// cumulative export count reaches the resolved maxDoubleDiamondExports limit.
func (s *Server) DoubleDiamondExportGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := s.gateActor(w, r)
		if !ok {
			return
		}
		if actor.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}

		limits, ok := s.gateLimits(w, r)
		if !ok {
			return
		}

		allowed := s.enforceCount(w, r, limits.MaxDoubleDiamondExports,
			types.ErrCodeDoubleDiamondLimit, "Double Diamond export limit reached for your plan",
			func(ctx context.Context) (int, error) {
				return s.Usage.DoubleDiamondExportTotal(ctx, actor.ID)
			})
		if allowed {
			next.ServeHTTP(w, r)
		}
	})
}

// ExportFormatGate rejects exports in formats the resolved entitlement does
// not grant. The format is read from the "format" query parameter; absence
// means markdown, which every plan can export.
func (s *Server) ExportFormatGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := s.gateActor(w, r)
		if !ok {
			return
		}
		if actor.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}

		limits, ok := s.gateLimits(w, r)
		if !ok {
			return
		}

		format := types.FormatMarkdown
		if raw := r.URL.Query().Get("format"); raw != "" {
			format = types.ExportFormat(raw)
		}

		switch format {
		case types.FormatPDF, types.FormatPNG, types.FormatCSV, types.FormatMarkdown:
		default:
			Error(w, r, types.NewAppError(types.ErrCodeValidationFormat, "unknown export format", nil))
			return
		}

		if !limits.CanExport(format) {
			s.rejectCapability(w, r, "Your plan does not include "+string(format)+" exports")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CollaborationGate rejects team invitations when the entitlement does not
// grant collaboration, or when the project's team size has reached the
// resolved maxUsersPerTeam limit. The project ID is read from the route
// pattern.
func (s *Server) CollaborationGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := s.gateActor(w, r)
		if !ok {
			return
		}
		if actor.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}

		limits, ok := s.gateLimits(w, r)
		if !ok {
			return
		}

		if !limits.CanCollaborate {
			s.rejectCapability(w, r, "Your plan does not include collaboration")
			return
		}

		projectID := chi.URLParam(r, "projectID")
		allowed := s.enforceCount(w, r, limits.MaxUsersPerTeam,
			types.ErrCodeTeamLimit, "Team member limit reached for your plan",
			func(ctx context.Context) (int, error) {
				return s.Usage.TeamMemberCount(ctx, projectID)
			})
		if allowed {
			next.ServeHTTP(w, r)
		}
	})
}
