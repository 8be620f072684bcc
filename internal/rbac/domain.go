package rbac

import (
	"context"
	"strings"
)

// RoleSuperAdmin bypasses every permission check.
const RoleSuperAdmin = "super_admin"

// Principal describes the authenticated actor as reported by the auth collaborator. It is
// passed explicitly to the workflow layer; nothing reads it from global state.
type Principal struct {
	UserID      int64    `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// IsSuperUser reports whether the principal holds the super admin role.
func (p *Principal) IsSuperUser() bool {
	return p != nil && strings.EqualFold(p.Role, RoleSuperAdmin)
}

// Can reports whether the principal holds permission. A nil principal can do nothing.
func (p *Principal) Can(permission string) bool {
	if p == nil {
		return false
	}
	if p.IsSuperUser() {
		return true
	}
	return hasAnyPermission(p.Permissions, normalizePermissions([]string{permission}))
}

// Granted filters scopes down to those the principal holds, keeping order.
func (p *Principal) Granted(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		if p.Can(scope) {
			out = append(out, scope)
		}
	}
	return out
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
