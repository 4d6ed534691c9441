package auth

import (
	"context"

	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"
)

// Scopes understood by the service.
const (
	ScopeRead  = "tablescan:read"
	ScopeWrite = "tablescan:write"

	RoleAdmin = "tablescan_admin"
)

type ctxKey struct{}

// Principal represents an authenticated identity extracted from a JWT.
type Principal struct {
	Sub      string          `json:"sub"`
	Scopes   map[string]bool `json:"scopes"`
	Roles    map[string]bool `json:"roles"`
	ClientID string          `json:"client_id"`
	Issuer   string          `json:"issuer"`
	Email    string          `json:"email"`
}

// WithPrincipal stores a Principal in the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFrom extracts the Principal from the context. It also finds the
// principal the MCP bearer middleware stores in the token info.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	if p, ok := ctx.Value(ctxKey{}).(*Principal); ok {
		return p, true
	}
	if info := sdkauth.TokenInfoFromContext(ctx); info != nil {
		if p, ok := info.Extra["principal"].(*Principal); ok {
			return p, true
		}
	}
	return nil, false
}

// HasScope returns true if the principal has the given scope.
func (p *Principal) HasScope(s string) bool {
	return p.Scopes[s]
}

// HasAnyScope returns true if the principal has any of the given scopes.
func (p *Principal) HasAnyScope(scopes ...string) bool {
	for _, s := range scopes {
		if p.Scopes[s] {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the principal has the admin role.
func (p *Principal) IsAdmin() bool {
	return p.Roles[RoleAdmin]
}
