// Package seed populates an empty deployment with demo users and matches.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sports-playlist/internal/application/auth"
	"github.com/sports-playlist/internal/domain"
	"github.com/sports-playlist/internal/pkg/id"
)

type userStore interface {
	Empty(ctx context.Context) (bool, error)
	Put(ctx context.Context, u *domain.User) error
}

type matchStore interface {
	Put(ctx context.Context, m *domain.Match) error
}

type Deps struct {
	UserRepo   userStore
	MatchRepo  matchStore
	BcryptCost int
	Now        func() time.Time
	Logger     *slog.Logger
}

type seedUser struct {
	username, email, password, role string
}

var users = []seedUser{
	{"admin", "admin@sportsplaylist.com", "Admin123!", domain.RoleAdmin},
	{"user1", "user1@example.com", "User123!", domain.RoleUser},
}

type seedMatch struct {
	title, competition string
	offset             time.Duration
	status             domain.MatchStatus
	stream             string
}

var matches = []seedMatch{
	{"Liverpool vs Manchester United", "Premier League", 2 * time.Hour, domain.MatchStatusLive, "https://example.com/stream/live1"},
	{"Barcelona vs Real Madrid", "La Liga", -48 * time.Hour, domain.MatchStatusReplay, "https://example.com/stream/replay1"},
	{"Bayern Munich vs Borussia Dortmund", "Bundesliga", 5 * time.Hour, domain.MatchStatusLive, "https://example.com/stream/live2"},
	{"Paris Saint-Germain vs Marseille", "Ligue 1", -24 * time.Hour, domain.MatchStatusReplay, "https://example.com/stream/replay2"},
}

// Run writes the demo data when the users table is empty and reports whether it did.
func Run(ctx context.Context, deps Deps) (bool, error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	empty, err := deps.UserRepo.Empty(ctx)
	if err != nil {
		return false, fmt.Errorf("check users: %w", err)
	}
	if !empty {
		logger.Debug("seed skipped, users present")
		return false, nil
	}

	for _, su := range users {
		u, err := auth.NewUser(su.username, su.email, su.password, su.role, deps.BcryptCost)
		if err != nil {
			return false, err
		}
		if err := deps.UserRepo.Put(ctx, u); err != nil {
			return false, fmt.Errorf("seed user %s: %w", su.username, err)
		}
	}

	base := now().UTC()
	for _, sm := range matches {
		stream := sm.stream
		m := &domain.Match{
			MatchID:     id.New(),
			Title:       sm.title,
			Competition: sm.competition,
			Date:        base.Add(sm.offset),
			Status:      sm.status,
			StreamURL:   &stream,
		}
		if err := deps.MatchRepo.Put(ctx, m); err != nil {
			return false, fmt.Errorf("seed match %q: %w", sm.title, err)
		}
	}

	logger.Info("seeded demo data", "users", len(users), "matches", len(matches))
	return true, nil
}
