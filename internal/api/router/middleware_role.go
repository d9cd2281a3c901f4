package router

import (
	"net/http"

	httpmiddleware "github.com/physiocare/booking-platform/internal/http/middleware"
)

// requireRole gates a route group to actors holding one of the given roles.
// It assumes ActorJWT already ran; a missing actor is rejected.
func requireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := httpmiddleware.ActorFromContext(r.Context())
			if !ok {
				http.Error(w, "missing actor", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
