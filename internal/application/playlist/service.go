package playlist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sports-playlist/internal/application/notification"
	"github.com/sports-playlist/internal/domain"
)

type Service interface {
	List(ctx context.Context, userID string) ([]domain.Match, error)
	Add(ctx context.Context, userID, matchID string) error
	Remove(ctx context.Context, userID, matchID string) error
	Contains(ctx context.Context, userID, matchID string) (bool, error)
}

type playlistStore interface {
	Put(ctx context.Context, e *domain.PlaylistEntry) error
	Get(ctx context.Context, userID, matchID string) (*domain.PlaylistEntry, error)
	ListByUser(ctx context.Context, userID string) ([]domain.PlaylistEntry, error)
	Delete(ctx context.Context, userID, matchID string) error
}

type matchReader interface {
	Get(ctx context.Context, matchID string) (*domain.Match, error)
	GetMany(ctx context.Context, matchIDs []string) ([]domain.Match, error)
}

type userNotifier interface {
	SendPlaylistNotification(ctx context.Context, userID, action string, m *domain.Match)
}

type service struct {
	repo     playlistStore
	matches  matchReader
	notifier userNotifier
	now      func() time.Time
}

type ServiceDeps struct {
	PlaylistRepo playlistStore
	MatchRepo    matchReader
	Notifier     userNotifier
	Now          func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.PlaylistRepo, matches: deps.MatchRepo, notifier: deps.Notifier, now: now}
}

// List returns the matches in the user's playlist, most recently added first.
func (s *service) List(ctx context.Context, userID string) ([]domain.Match, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []domain.Match{}, nil
	}
	added := make(map[string]time.Time, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		added[e.MatchID] = e.DateAdded
		ids = append(ids, e.MatchID)
	}
	matches, err := s.matches.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return added[matches[i].MatchID].After(added[matches[j].MatchID])
	})
	return matches, nil
}

func (s *service) Add(ctx context.Context, userID, matchID string) error {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return err
	}
	err = s.repo.Put(ctx, &domain.PlaylistEntry{UserID: userID, MatchID: matchID, DateAdded: s.now().UTC()})
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("match already in playlist: %w", domain.ErrBadRequest)
	}
	if err != nil {
		return err
	}
	s.notifier.SendPlaylistNotification(ctx, userID, notification.ActionAdded, m)
	return nil
}

func (s *service) Remove(ctx context.Context, userID, matchID string) error {
	if err := s.repo.Delete(ctx, userID, matchID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("match not found in playlist: %w", domain.ErrNotFound)
		}
		return err
	}
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		// The entry is gone; a match deleted meanwhile just gets a bare notification.
		m = &domain.Match{MatchID: matchID}
	}
	s.notifier.SendPlaylistNotification(ctx, userID, notification.ActionRemoved, m)
	return nil
}

func (s *service) Contains(ctx context.Context, userID, matchID string) (bool, error) {
	_, err := s.repo.Get(ctx, userID, matchID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
