package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/stockbar/stockbar/internal/platform/httpx"
	"github.com/stockbar/stockbar/internal/shared"
)

// PermissionChecker resolves the permissions of a role.
type PermissionChecker interface {
	RolePermissions(ctx context.Context, roleID int64) ([]string, error)
}

// Middleware guards routes with permission requirements. The administrator
// role bypasses every check.
type Middleware struct {
	Service PermissionChecker
	Logger  *slog.Logger
}

// RequireAny allows the request when the caller holds at least one of the
// listed permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, false)
}

// RequireAll allows the request only when the caller holds every listed
// permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, true)
}

func (m Middleware) require(perms []string, all bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if principal.IsAdmin() || len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			granted, err := m.Service.RolePermissions(r.Context(), principal.RoleID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("resolve permissions", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !satisfies(granted, perms, all) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func satisfies(granted, required []string, all bool) bool {
	held := make(map[string]struct{}, len(granted))
	for _, name := range granted {
		held[name] = struct{}{}
	}
	matches := 0
	for _, name := range required {
		if _, ok := held[name]; ok {
			matches++
		}
	}
	if all {
		return matches == len(required)
	}
	return matches > 0
}
