package http

import (
	"log/slog"

	"github.com/sports-playlist/internal/application/auth"
	"github.com/sports-playlist/internal/application/match"
	"github.com/sports-playlist/internal/application/playlist"
	jwtinfra "github.com/sports-playlist/internal/infrastructure/jwt"
	"github.com/sports-playlist/internal/realtime"
)

// Deps holds the services and infrastructure the router wires into handlers.
type Deps struct {
	AuthService     auth.Service
	MatchService    match.Service
	PlaylistService playlist.Service
	JWTVerifier     TokenVerifier
	Hub             *realtime.Hub
	Logger          *slog.Logger
}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}
