package guard

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/sige-edu/sige/internal/identity"
)

// PrincipalHeader carries the upstream-authenticated principal id. The
// gateway strips and re-sets it on every request.
const PrincipalHeader = "X-Principal-Id"

// Middleware wires authorization helpers for HTTP handlers.
type Middleware struct {
	Guard  *Guard
	Logger *slog.Logger
}

// ResolvePrincipal copies the authenticated principal id from the request
// header into the context. Requests without one proceed unauthenticated and
// fail every later check.
func (m Middleware) ResolvePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principalID := strings.TrimSpace(r.Header.Get(PrincipalHeader))
		if principalID != "" {
			r = r.WithContext(WithPrincipal(r.Context(), principalID))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the current principal holds one of the given roles.
func (m Middleware) RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID := PrincipalFromContext(r.Context())
			if principalID == "" {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			for _, role := range roles {
				ok, err := m.Guard.Evaluator().IsRole(r.Context(), principalID, role)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("guard require role", slog.Any("error", err))
					}
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				if ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
