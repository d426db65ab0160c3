package shared

import "context"

// Principal describes the authenticated caller resolved by the auth middleware.
type Principal struct {
	UserID   int64
	RoleID   int64
	Email    string
	FullName string
}

// AdminRoleID is the fixed identifier of the built-in administrator role.
const AdminRoleID int64 = 1

// IsAdmin reports whether the principal carries the administrator role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.RoleID == AdminRoleID
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context, returning nil for
// unauthenticated requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
