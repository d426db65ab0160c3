package auth

import (
	"net/http"
	"strings"

	"github.com/stockbar/stockbar/internal/platform/httpx"
	"github.com/stockbar/stockbar/internal/shared"
)

// Middleware authenticates requests from the Authorization header.
type Middleware struct {
	Service *Service
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved principal in the request context.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		user, err := m.Service.UserFromToken(r.Context(), token)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		principal := &shared.Principal{
			UserID:   user.ID,
			RoleID:   user.RoleID,
			Email:    user.Email,
			FullName: user.FullName,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
