package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/sports-playlist/internal/infrastructure/jwt"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenQueryParam carries the token on websocket upgrades, where browsers cannot
// set an Authorization header.
const TokenQueryParam = "access_token"

type tokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// Auth returns middleware that validates the Bearer JWT and injects claims into context.
func Auth(provider tokenVerifier) func(http.Handler) http.Handler {
	return authenticate(provider, false)
}

// AuthWithQueryToken is Auth that also accepts the token as ?access_token=.
func AuthWithQueryToken(provider tokenVerifier) func(http.Handler) http.Handler {
	return authenticate(provider, true)
}

func authenticate(provider tokenVerifier, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok && allowQuery {
				tokenStr = r.URL.Query().Get(TokenQueryParam)
				ok = tokenStr != ""
			}
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := provider.Verify(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return tok, tok != ""
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}
