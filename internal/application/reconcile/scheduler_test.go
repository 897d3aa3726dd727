package reconcile

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sports-playlist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- fake clock ---

type fakeTimer struct {
	c       chan time.Time
	d       time.Duration
	stopped bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }
func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

// fakeClock hands every created timer to the test through timers so the test
// decides when each one fires.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers chan *fakeTimer
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start, timers: make(chan *fakeTimer, 16)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	t := &fakeTimer{c: make(chan time.Time, 1), d: d}
	c.timers <- t
	return t
}

// advance moves time forward and fires the next pending timer.
func (c *fakeClock) advance(t *testing.T) {
	t.Helper()
	select {
	case tm := <-c.timers:
		c.mu.Lock()
		c.now = c.now.Add(tm.d)
		fired := c.now
		c.mu.Unlock()
		tm.c <- fired
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never armed a timer")
	}
}

// waitArmed blocks until the scheduler is waiting on a new timer, then hands it back
// so a later advance can fire it.
func (c *fakeClock) waitArmed(t *testing.T) {
	t.Helper()
	select {
	case tm := <-c.timers:
		c.timers <- tm
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never re-armed its timer")
	}
}

// syncBuffer is a log sink safe for the scheduler goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// --- helpers ---

func startScheduler(t *testing.T, clk *fakeClock, pass PassFunc) (*Scheduler, *syncBuffer, context.CancelFunc, <-chan error) {
	t.Helper()
	logs := &syncBuffer{}
	s := NewScheduler(SchedulerDeps{
		Pass:     pass,
		Interval: 30 * time.Second,
		Clock:    clk,
		Logger:   slog.New(slog.NewTextHandler(logs, nil)),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(cancel)
	return s, logs, cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
		return nil
	}
}

// --- tests ---

func TestScheduler_TicksAtInterval(t *testing.T) {
	clk := newFakeClock(now)
	calls := make(chan time.Time, 4)
	s, _, cancel, done := startScheduler(t, clk, func(_ context.Context, at time.Time) (int, error) {
		calls <- at
		return 0, nil
	})

	clk.advance(t)
	clk.advance(t)

	assert.Equal(t, now.Add(30*time.Second), <-calls)
	assert.Equal(t, now.Add(60*time.Second), <-calls)
	assert.Equal(t, StateRunning, s.State())

	cancel()
	assert.ErrorIs(t, waitDone(t, done), context.Canceled)
	assert.Equal(t, StateStopping, s.State())
}

func TestScheduler_StopsPromptlyBetweenTicks(t *testing.T) {
	clk := newFakeClock(now)
	var called bool
	s, _, cancel, done := startScheduler(t, clk, func(context.Context, time.Time) (int, error) {
		called = true
		return 0, nil
	})
	clk.waitArmed(t)

	cancel()
	assert.ErrorIs(t, waitDone(t, done), context.Canceled)
	assert.False(t, called)
	assert.Equal(t, "Stopping", s.State().String())
}

func TestScheduler_StoreFailure_LoggedOnceAndNextTickProceeds(t *testing.T) {
	clk := newFakeClock(now)
	store := newMemStore(match("m1", now.Add(-10*time.Minute), domain.MatchStatusReplay))
	store.commitErr = errors.New("throttled")
	n := &mockNotifier{}
	n.On("BroadcastStatusChange", mock.Anything, mock.Anything)
	r := newReconciler(store, n)

	passes := make(chan error, 4)
	_, logs, cancel, done := startScheduler(t, clk, func(ctx context.Context, at time.Time) (int, error) {
		changed, err := r.ReconcileOnce(ctx, at)
		passes <- err
		return changed, err
	})

	clk.advance(t)
	require.Error(t, <-passes)
	clk.waitArmed(t)
	assert.Equal(t, 1, strings.Count(logs.String(), "level=ERROR"))
	assert.Equal(t, domain.MatchStatusReplay, store.status("m1"))
	n.AssertNotCalled(t, "BroadcastStatusChange", mock.Anything, mock.Anything)

	store.commitErr = nil
	clk.advance(t)
	require.NoError(t, <-passes)
	assert.Equal(t, domain.MatchStatusLive, store.status("m1"))
	n.AssertNumberOfCalls(t, "BroadcastStatusChange", 1)

	cancel()
	waitDone(t, done)
	assert.Equal(t, 1, strings.Count(logs.String(), "level=ERROR"))
}

func TestScheduler_PanicRecovered(t *testing.T) {
	clk := newFakeClock(now)
	calls := make(chan struct{}, 4)
	first := true
	_, logs, cancel, done := startScheduler(t, clk, func(context.Context, time.Time) (int, error) {
		calls <- struct{}{}
		if first {
			first = false
			panic("nil map")
		}
		return 0, nil
	})

	clk.advance(t)
	<-calls
	clk.advance(t)
	<-calls

	cancel()
	require.ErrorIs(t, waitDone(t, done), context.Canceled)
	assert.Equal(t, 1, strings.Count(logs.String(), "level=ERROR"))
	assert.Contains(t, logs.String(), "pass panicked")
}

func TestScheduler_InFlightPassFinishesOnShutdown(t *testing.T) {
	clk := newFakeClock(now)
	entered := make(chan struct{})
	release := make(chan struct{})
	var passCtxErr error
	_, _, cancel, done := startScheduler(t, clk, func(ctx context.Context, _ time.Time) (int, error) {
		close(entered)
		<-release
		passCtxErr = ctx.Err()
		return 1, nil
	})

	clk.advance(t)
	<-entered
	cancel()

	select {
	case <-done:
		t.Fatal("Run returned while a pass was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	assert.ErrorIs(t, waitDone(t, done), context.Canceled)
	assert.NoError(t, passCtxErr, "pass context must not be cancelled")
}

func TestScheduler_Defaults(t *testing.T) {
	s := NewScheduler(SchedulerDeps{Pass: func(context.Context, time.Time) (int, error) { return 0, nil }})
	assert.Equal(t, DefaultInterval, s.interval)
	assert.Equal(t, "reconcile-scheduler", s.String())
	assert.Equal(t, StateIdle, s.State())
}
