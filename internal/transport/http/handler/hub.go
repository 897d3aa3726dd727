package handler

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/sports-playlist/internal/realtime"
)

// HubHandler upgrades authenticated requests to notification websockets.
type HubHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHubHandler accepts upgrades from the given origins. "*" allows any origin
// and a request without an Origin header is always accepted.
func NewHubHandler(hub *realtime.Hub, allowedOrigins []string, logger *slog.Logger) *HubHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HubHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

func (h *HubHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	c := realtime.NewClient(h.hub, conn, userID)
	if err := h.hub.Register(r.Context(), c); err != nil {
		h.logger.Warn("websocket register failed", "user_id", userID, "err", err)
		_ = conn.Close()
		return
	}
	c.Start()
}

