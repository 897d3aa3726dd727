package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sports-playlist/internal/application/playlist"
	"github.com/sports-playlist/internal/domain"
	"github.com/sports-playlist/internal/transport/http/middleware"
)

// PlaylistHandler handles the caller's personal playlist.
type PlaylistHandler struct {
	svc playlist.Service
}

func NewPlaylistHandler(svc playlist.Service) *PlaylistHandler { return &PlaylistHandler{svc: svc} }

func (h *PlaylistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	matches, err := h.svc.List(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	if matches == nil {
		matches = []domain.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *PlaylistHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Add(r.Context(), userID, chi.URLParam(r, "matchId")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Match added to playlist"})
}

func (h *PlaylistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Remove(r.Context(), userID, chi.URLParam(r, "matchId")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Match removed from playlist"})
}

func (h *PlaylistHandler) Contains(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	found, err := h.svc.Contains(r.Context(), userID, chi.URLParam(r, "matchId"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.UserID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return claims.UserID, true
}
