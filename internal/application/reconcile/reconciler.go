// Package reconcile keeps each match's Live/Replay status in line with its
// scheduled start time.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sports-playlist/internal/domain"
	"github.com/sports-playlist/internal/metrics"
)

// DefaultLiveWindow is how long after kick-off a match counts as live.
const DefaultLiveWindow = 90 * time.Minute

// Session is a unit of work over the match store, scoped to one pass.
type Session interface {
	ListAll(ctx context.Context) ([]domain.Match, error)
	Update(m *domain.Match) error
	CommitBatch(ctx context.Context) error
	Close() error
}

// SessionOpener opens a fresh Session for each pass.
type SessionOpener func(ctx context.Context) (Session, error)

type statusNotifier interface {
	BroadcastStatusChange(ctx context.Context, e domain.StatusChangeEvent)
}

// NextStatus applies the live-window policy to m at now. It reports the status
// m should have and whether that differs from its current one.
func NextStatus(m *domain.Match, now time.Time, window time.Duration) (domain.MatchStatus, bool) {
	end := m.Date.Add(window)
	switch {
	case !now.Before(m.Date) && now.Before(end):
		return domain.MatchStatusLive, m.Status != domain.MatchStatusLive
	case !now.Before(end) && m.Status == domain.MatchStatusLive:
		return domain.MatchStatusReplay, true
	default:
		return m.Status, false
	}
}

// Reconciler runs single reconciliation passes.
type Reconciler struct {
	open     SessionOpener
	notifier statusNotifier
	window   time.Duration
	logger   *slog.Logger
}

type ReconcilerDeps struct {
	Open       SessionOpener
	Notifier   statusNotifier
	LiveWindow time.Duration
	Logger     *slog.Logger
}

func NewReconciler(deps ReconcilerDeps) *Reconciler {
	window := deps.LiveWindow
	if window <= 0 {
		window = DefaultLiveWindow
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		open:     deps.Open,
		notifier: deps.Notifier,
		window:   window,
		logger:   logger.With("component", "reconciler"),
	}
}

// ReconcileOnce moves every match to the status the policy gives it at now.
// Changes are committed together after the full pass and one event per change
// is broadcast only once the commit succeeds. On a store failure the returned
// error wraps domain.ErrStore. If the commit fails after some chunks were
// written, events for exactly those matches are still broadcast and their
// count is returned with the error.
func (r *Reconciler) ReconcileOnce(ctx context.Context, now time.Time) (changed int, err error) {
	started := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.RecordReconcilePass(result, time.Since(started))
	}()

	sess, err := r.open(ctx)
	if err != nil {
		return 0, WrapStoreErr("open match session", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.logger.Warn("close match session", "err", cerr)
		}
	}()

	matches, err := sess.ListAll(ctx)
	if err != nil {
		return 0, WrapStoreErr("list matches", err)
	}

	var events []domain.StatusChangeEvent
	for i := range matches {
		m := &matches[i]
		next, ok := NextStatus(m, now, r.window)
		if !ok {
			continue
		}
		old := m.Status
		m.Status = next
		if err := sess.Update(m); err != nil {
			return 0, WrapStoreErr("stage match "+m.MatchID, err)
		}
		events = append(events, domain.StatusChangeEvent{
			MatchID:    m.MatchID,
			MatchTitle: m.Title,
			OldStatus:  old,
			NewStatus:  next,
		})
	}
	if len(events) == 0 {
		return 0, nil
	}

	if err := sess.CommitBatch(ctx); err != nil {
		var partial *domain.PartialCommitError
		if !errors.As(err, &partial) {
			return 0, WrapStoreErr("commit match statuses", err)
		}
		committed := make(map[string]bool, len(partial.Committed))
		for _, id := range partial.Committed {
			committed[id] = true
		}
		events = slices.DeleteFunc(events, func(e domain.StatusChangeEvent) bool {
			return !committed[e.MatchID]
		})
		r.emit(ctx, events)
		return len(events), WrapStoreErr("commit match statuses", err)
	}

	r.emit(ctx, events)
	return len(events), nil
}

func (r *Reconciler) emit(ctx context.Context, events []domain.StatusChangeEvent) {
	for _, e := range events {
		metrics.RecordTransition(string(e.NewStatus))
		r.logger.Info("match status changed", "match_id", e.MatchID, "from", e.OldStatus, "to", e.NewStatus)
		r.notifier.BroadcastStatusChange(ctx, e)
	}
}

// WrapStoreErr prefixes err with op and makes sure it wraps domain.ErrStore.
func WrapStoreErr(op string, err error) error {
	if errors.Is(err, domain.ErrStore) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStore, err)
}
