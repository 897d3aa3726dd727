// Package notification fans user-facing notifications out to every configured
// channel. Delivery is at-most-once: failures are logged and dropped.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sports-playlist/internal/domain"
	"github.com/sports-playlist/internal/metrics"
)

const (
	titleStatusUpdate   = "Match Status Update"
	titlePlaylistUpdate = "Playlist Update"

	scopeAll  = "all"
	scopeUser = "user"
)

// Playlist actions understood by SendPlaylistNotification.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// Channel is a transport that can push a notification to everyone or to one user.
type Channel interface {
	Name() string
	SendToAll(ctx context.Context, n domain.Notification) error
	SendToUser(ctx context.Context, userID string, n domain.Notification) error
}

// Service never returns delivery errors. Callers fire and forget.
type Service interface {
	BroadcastStatusChange(ctx context.Context, e domain.StatusChangeEvent)
	Broadcast(ctx context.Context, n domain.Notification)
	NotifyUser(ctx context.Context, userID string, n domain.Notification)
	SendPlaylistNotification(ctx context.Context, userID, action string, m *domain.Match)
}

type service struct {
	channels []Channel
	logger   *slog.Logger
	now      func() time.Time
}

type ServiceDeps struct {
	Channels []Channel
	Logger   *slog.Logger
	Now      func() time.Time // defaults to time.Now
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		channels: deps.Channels,
		logger:   logger.With("component", "notification-dispatcher"),
		now:      now,
	}
}

func (s *service) BroadcastStatusChange(ctx context.Context, e domain.StatusChangeEvent) {
	s.Broadcast(ctx, domain.Notification{
		Title:   titleStatusUpdate,
		Message: e.MatchTitle,
		Details: fmt.Sprintf("Match status changed from %s to %s", e.OldStatus, e.NewStatus),
		Status:  string(e.NewStatus),
	})
}

func (s *service) Broadcast(ctx context.Context, n domain.Notification) {
	n = s.stamp(n)
	for _, ch := range s.channels {
		err := ch.SendToAll(ctx, n)
		metrics.RecordNotification(ch.Name(), scopeAll, err)
		if err != nil {
			s.logger.Warn("broadcast failed", "channel", ch.Name(), "title", n.Title, "err", err)
		}
	}
}

func (s *service) NotifyUser(ctx context.Context, userID string, n domain.Notification) {
	n = s.stamp(n)
	for _, ch := range s.channels {
		err := ch.SendToUser(ctx, userID, n)
		metrics.RecordNotification(ch.Name(), scopeUser, err)
		if err != nil {
			s.logger.Warn("user notification failed", "channel", ch.Name(), "user_id", userID, "title", n.Title, "err", err)
		}
	}
}

func (s *service) SendPlaylistNotification(ctx context.Context, userID, action string, m *domain.Match) {
	var msg string
	switch action {
	case ActionAdded:
		msg = "Match added to playlist"
	case ActionRemoved:
		msg = "Match removed from playlist"
	default:
		msg = fmt.Sprintf("Match %s playlist", action)
	}
	s.NotifyUser(ctx, userID, domain.Notification{
		Title:   titlePlaylistUpdate,
		Message: msg,
		Details: m.Title,
		Status:  string(m.Status),
	})
}

func (s *service) stamp(n domain.Notification) domain.Notification {
	if n.Timestamp.IsZero() {
		n.Timestamp = s.now().UTC()
	}
	return n
}
