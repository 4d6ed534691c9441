package auth

import (
	"log/slog"
	"net/http"
)

// DevPrincipal is the identity injected when authentication is disabled.
func DevPrincipal() *Principal {
	return &Principal{
		Sub: "dev-user",
		Scopes: map[string]bool{
			"openid":   true,
			ScopeRead:  true,
			ScopeWrite: true,
		},
		Roles:    map[string]bool{RoleAdmin: true},
		ClientID: "dev",
		Issuer:   "dev",
		Email:    "dev@tablescan.local",
	}
}

// DevModeMiddleware injects a synthetic admin Principal.
// Use only when AUTH_ENABLED=false (development).
func DevModeMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	logger.Warn("dev mode: authentication disabled, all requests get an admin principal")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithPrincipal(r.Context(), DevPrincipal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
