package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"
)

// RawTokenVerifier checks a bearer token that has already been taken off the
// Authorization header.
type RawTokenVerifier interface {
	VerifyToken(ctx context.Context, rawToken string) (*Principal, time.Time, error)
}

// NewMCPTokenVerifier exposes v as the MCP SDK's TokenVerifier. Scopes are
// reported sorted; admins are granted both tablescan scopes so SDK-side
// scope checks treat them like the HTTP API does. The Principal travels in
// TokenInfo.Extra for PrincipalFrom.
func NewMCPTokenVerifier(v RawTokenVerifier) sdkauth.TokenVerifier {
	return func(ctx context.Context, token string, _ *http.Request) (*sdkauth.TokenInfo, error) {
		principal, expiry, err := v.VerifyToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", sdkauth.ErrInvalidToken, err)
		}

		granted := make(map[string]bool, len(principal.Scopes)+2)
		for s, ok := range principal.Scopes {
			if ok {
				granted[s] = true
			}
		}
		if principal.IsAdmin() {
			granted[ScopeRead] = true
			granted[ScopeWrite] = true
		}
		scopes := make([]string, 0, len(granted))
		for s := range granted {
			scopes = append(scopes, s)
		}
		slices.Sort(scopes)

		return &sdkauth.TokenInfo{
			UserID:     principal.Sub,
			Scopes:     scopes,
			Expiration: expiry,
			Extra: map[string]any{
				"principal": principal,
			},
		}, nil
	}
}
