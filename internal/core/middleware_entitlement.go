package core

import (
	"log/slog"
	"net/http"

	"dttools/internal/types"
)

// EntitlementMiddleware resolves the effective entitlement for the
// authenticated actor and injects it into the request context. Resolution
// runs once per request; gates and handlers downstream read the context
// value instead of resolving again.
//
// Requests without an Actor (public paths) pass through untouched. Admins
// still get a resolved entitlement: the admin bypass lives in the gates,
// not here, so /api/subscription-info reports an admin's real plan.
//
// A resolution failure does not end the request here. The failure is
// recorded in context as a missing entitlement; gates fail closed on it
// with a 500 while ungated reads surface their own errors.
func (s *Server) EntitlementMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Entitlements == nil {
			next.ServeHTTP(w, r)
			return
		}

		actor, ok := types.GetActor(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ent, err := s.Entitlements.ResolveForUser(r.Context(), actor.ID)
		if err != nil {
			s.Logger.Error("entitlement resolution failed",
				slog.String("user_id", actor.ID),
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			next.ServeHTTP(w, r)
			return
		}

		ctx := types.WithEntitlement(r.Context(), ent)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
