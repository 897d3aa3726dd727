package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sports-playlist/internal/config"
	"github.com/sports-playlist/internal/domain"
	"github.com/sports-playlist/internal/transport/http/handler"
	appmiddleware "github.com/sports-playlist/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds background
// housekeeping such as rate-limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTVerifier)
	adminOnly := appmiddleware.RequireRole(domain.RoleAdmin)

	// 5 requests/second, burst of 10, on the credential endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(deps.AuthService)
	matchH := handler.NewMatchHandler(deps.MatchService)
	playlistH := handler.NewPlaylistHandler(deps.PlaylistService)
	hubH := handler.NewHubHandler(deps.Hub, cfg.AllowedOrigins, deps.Logger)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/auth/register", authH.Register)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", matchH.List)
			r.Get("/live", matchH.ListLive)
			r.Get("/replay", matchH.ListReplay)
			r.Get("/search", matchH.Search)
			r.Get("/{id}", matchH.Get)
			r.With(authMw).Get("/{id}/stream", matchH.Stream)

			r.Group(func(r chi.Router) {
				r.Use(authMw, adminOnly)
				r.Post("/", matchH.Create)
				r.Put("/{id}", matchH.Update)
				r.Delete("/{id}", matchH.Delete)
			})
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Use(authMw)
			r.Get("/", playlistH.List)
			r.Get("/contains/{matchId}", playlistH.Contains)
			r.Post("/{matchId}", playlistH.Add)
			r.Delete("/{matchId}", playlistH.Remove)
		})

		r.With(appmiddleware.AuthWithQueryToken(deps.JWTVerifier)).Get("/hubs/notifications", hubH.Connect)
	})

	return r
}
