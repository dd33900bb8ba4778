package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/watchstore/pkg/apperr"
	"github.com/dmehra2102/watchstore/pkg/httpx"
)

// PrincipalCheck rejects principals whose account can no longer act, for
// example a deactivated user.
type PrincipalCheck func(ctx context.Context, p Principal) error

// Authenticate resolves the bearer token into a Principal stored on the request
// context. Requests without a valid token get 401.
func Authenticate(log *slog.Logger, v Verifier, check PrincipalCheck) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r.Header.Get("Authorization"))
			if token == "" {
				httpx.Fail(w, http.StatusUnauthorized, "Access denied. No token provided.", "")
				return
			}
			p, err := v.Verify(r.Context(), token)
			if err != nil {
				httpx.Error(w, r, log, err)
				return
			}
			if check != nil {
				if err := check(r.Context(), p); err != nil {
					httpx.Error(w, r, log, err)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole must run after Authenticate.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, "Access denied. No token provided.", "")
				return
			}
			if !allowed[p.Role] {
				httpx.Fail(w, http.StatusForbidden, "Access denied. Admin privileges required.", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin admits admins and super admins.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(RoleAdmin, RoleSuperAdmin)
}

// ErrInactive is the error a PrincipalCheck returns for disabled accounts.
var ErrInactive = apperr.New(apperr.KindUnauthorized, "Invalid token or account deactivated.")
