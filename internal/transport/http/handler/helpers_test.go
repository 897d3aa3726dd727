package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	jwtinfra "github.com/sports-playlist/internal/infrastructure/jwt"
	"github.com/sports-playlist/internal/transport/http/middleware"
	"github.com/stretchr/testify/require"
)

// withChiParam injects a chi URL param into the request context.
func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// asUser attaches claims for userID as if the auth middleware had run.
func asUser(r *http.Request, userID, role string) *http.Request {
	return r.WithContext(middleware.WithClaims(r.Context(), &jwtinfra.Claims{UserID: userID, Role: role}))
}

func decodeError(t *testing.T, body []byte) string {
	t.Helper()
	var env MessageEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env.Error
}
