// Package demo flips match statuses at random so notification flows can be
// shown without waiting for real kick-off times. Development use only.
package demo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sports-playlist/internal/application/reconcile"
	"github.com/sports-playlist/internal/domain"
)

const maxFlips = 3

// Rand is the random source; *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Perm(n int) []int
}

type broadcaster interface {
	Broadcast(ctx context.Context, n domain.Notification)
}

type Randomiser struct {
	open     reconcile.SessionOpener
	notifier broadcaster
	rnd      Rand
	logger   *slog.Logger
}

type RandomiserDeps struct {
	Open     reconcile.SessionOpener
	Notifier broadcaster
	Rand     Rand
	Logger   *slog.Logger
}

func NewRandomiser(deps RandomiserDeps) *Randomiser {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Randomiser{
		open:     deps.Open,
		notifier: deps.Notifier,
		rnd:      deps.Rand,
		logger:   logger.With("component", "demo-randomiser"),
	}
}

// RandomiseOnce flips between one and three random matches Live<->Replay,
// commits them together and broadcasts one summary notification. Store
// failures wrap domain.ErrStore; a partially committed batch is still
// summarised for the matches that were written.
func (r *Randomiser) RandomiseOnce(ctx context.Context, _ time.Time) (int, error) {
	sess, err := r.open(ctx)
	if err != nil {
		return 0, reconcile.WrapStoreErr("open match session", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.logger.Warn("close match session", "err", cerr)
		}
	}()

	matches, err := sess.ListAll(ctx)
	if err != nil {
		return 0, reconcile.WrapStoreErr("list matches", err)
	}
	if len(matches) == 0 {
		r.logger.Info("no matches to update")
		return 0, nil
	}

	count := 1 + r.rnd.IntN(min(maxFlips, len(matches)))
	picked := make([]domain.Match, 0, count)
	for _, i := range r.rnd.Perm(len(matches))[:count] {
		m := matches[i]
		old := m.Status
		m.Status = flip(m.Status)
		if err := sess.Update(&m); err != nil {
			return 0, reconcile.WrapStoreErr("stage match "+m.MatchID, err)
		}
		r.logger.Info("match status randomly changed", "match_id", m.MatchID, "from", old, "to", m.Status)
		picked = append(picked, m)
	}

	if err := sess.CommitBatch(ctx); err != nil {
		var partial *domain.PartialCommitError
		if !errors.As(err, &partial) {
			return 0, reconcile.WrapStoreErr("commit match statuses", err)
		}
		picked = slices.DeleteFunc(picked, func(m domain.Match) bool {
			return !slices.Contains(partial.Committed, m.MatchID)
		})
		if len(picked) > 0 {
			r.notifier.Broadcast(ctx, summary(picked))
		}
		return len(picked), reconcile.WrapStoreErr("commit match statuses", err)
	}
	r.notifier.Broadcast(ctx, summary(picked))
	return len(picked), nil
}

func flip(s domain.MatchStatus) domain.MatchStatus {
	if s == domain.MatchStatusLive {
		return domain.MatchStatusReplay
	}
	return domain.MatchStatusLive
}

func summary(matches []domain.Match) domain.Notification {
	ids := make([]string, len(matches))
	details := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.MatchID
		details[i] = fmt.Sprintf("Match ID: %s, New Status: %s", m.MatchID, m.Status)
	}
	return domain.Notification{
		Title:   "Match Status Update",
		Message: "Matches updated (Automatic - For Demo): " + strings.Join(ids, ", "),
		Details: "The following matches have been updated: " + strings.Join(details, ", "),
		Status:  "Updated",
	}
}
