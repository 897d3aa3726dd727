package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sports-playlist/internal/domain"
	"github.com/sports-playlist/internal/pkg/id"
)

type Service interface {
	List(ctx context.Context) ([]domain.Match, error)
	ListByStatus(ctx context.Context, status domain.MatchStatus) ([]domain.Match, error)
	Search(ctx context.Context, query string) ([]domain.Match, error)
	Get(ctx context.Context, matchID string) (*domain.Match, error)
	StreamURL(ctx context.Context, matchID string) (string, error)
	Create(ctx context.Context, in domain.MatchInput) (*domain.Match, error)
	Update(ctx context.Context, matchID string, in domain.MatchInput) error
	Delete(ctx context.Context, matchID string) error
}

type matchStore interface {
	Put(ctx context.Context, m *domain.Match) error
	Get(ctx context.Context, matchID string) (*domain.Match, error)
	Scan(ctx context.Context) ([]domain.Match, error)
	ListByStatus(ctx context.Context, status domain.MatchStatus) ([]domain.Match, error)
	Update(ctx context.Context, m *domain.Match) error
	HardDelete(ctx context.Context, matchID string) error
}

type playlistCleaner interface {
	DeleteByMatch(ctx context.Context, matchID string) (int, error)
}

type streamPresigner interface {
	StreamURL(ctx context.Context, locator string) (string, error)
}

type service struct {
	repo      matchStore
	playlists playlistCleaner
	presigner streamPresigner
	logger    *slog.Logger
}

type ServiceDeps struct {
	MatchRepo    matchStore
	PlaylistRepo playlistCleaner
	Presigner    streamPresigner
	Logger       *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		repo:      deps.MatchRepo,
		playlists: deps.PlaylistRepo,
		presigner: deps.Presigner,
		logger:    logger,
	}
}

func (s *service) List(ctx context.Context) ([]domain.Match, error) {
	return s.repo.Scan(ctx)
}

func (s *service) ListByStatus(ctx context.Context, status domain.MatchStatus) ([]domain.Match, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, domain.ErrBadRequest)
	}
	return s.repo.ListByStatus(ctx, status)
}

// Search matches query case-insensitively against title and competition.
// A blank query returns every match.
func (s *service) Search(ctx context.Context, query string) ([]domain.Match, error) {
	all, err := s.repo.Scan(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}
	out := make([]domain.Match, 0, len(all))
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.Title), q) || strings.Contains(strings.ToLower(m.Competition), q) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, matchID string) (*domain.Match, error) {
	return s.repo.Get(ctx, matchID)
}

func (s *service) StreamURL(ctx context.Context, matchID string) (string, error) {
	m, err := s.repo.Get(ctx, matchID)
	if err != nil {
		return "", err
	}
	if m.StreamURL == nil || *m.StreamURL == "" {
		return "", fmt.Errorf("match has no stream: %w", domain.ErrNotFound)
	}
	return s.presigner.StreamURL(ctx, *m.StreamURL)
}

func (s *service) Create(ctx context.Context, in domain.MatchInput) (*domain.Match, error) {
	m := &domain.Match{
		MatchID:     id.New(),
		Title:       in.Title,
		Competition: in.Competition,
		Date:        in.Date.UTC(),
		Status:      in.Status,
		StreamURL:   in.StreamURL,
	}
	if err := s.repo.Put(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) Update(ctx context.Context, matchID string, in domain.MatchInput) error {
	if in.ID != "" && in.ID != matchID {
		return fmt.Errorf("body id does not match path id: %w", domain.ErrBadRequest)
	}
	return s.repo.Update(ctx, &domain.Match{
		MatchID:     matchID,
		Title:       in.Title,
		Competition: in.Competition,
		Date:        in.Date.UTC(),
		Status:      in.Status,
		StreamURL:   in.StreamURL,
	})
}

// Delete removes the match, then every playlist entry that referenced it.
func (s *service) Delete(ctx context.Context, matchID string) error {
	if err := s.repo.HardDelete(ctx, matchID); err != nil {
		return err
	}
	n, err := s.playlists.DeleteByMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("remove match %s from playlists: %w", matchID, err)
	}
	if n > 0 {
		s.logger.Info("removed deleted match from playlists", "match_id", matchID, "entries", n)
	}
	return nil
}
