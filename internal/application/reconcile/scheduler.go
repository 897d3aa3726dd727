package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// DefaultInterval is the wait between reconciliation passes.
const DefaultInterval = 30 * time.Second

// State is the scheduler lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	default:
		return "Idle"
	}
}

// PassFunc runs one pass at now and reports how many items it changed.
type PassFunc func(ctx context.Context, now time.Time) (int, error)

// Scheduler calls a pass on a fixed interval until its context is cancelled.
// Errors and panics from a pass are logged and the loop carries on.
type Scheduler struct {
	name     string
	pass     PassFunc
	interval time.Duration
	clock    Clock
	logger   *slog.Logger
	state    atomic.Int32
}

type SchedulerDeps struct {
	Name     string
	Pass     PassFunc
	Interval time.Duration
	Clock    Clock
	Logger   *slog.Logger
}

func NewScheduler(deps SchedulerDeps) *Scheduler {
	interval := deps.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.Name
	if name == "" {
		name = "reconcile-scheduler"
	}
	return &Scheduler{
		name:     name,
		pass:     deps.Pass,
		interval: interval,
		clock:    clock,
		logger:   logger.With("component", name),
	}
}

func (s *Scheduler) State() State { return State(s.state.Load()) }

// Run blocks until ctx is cancelled. A pass already in progress when ctx is
// cancelled runs to completion on a detached context before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.state.Store(int32(StateRunning))
	s.logger.Info("scheduler started", "interval", s.interval)

	timer := s.clock.NewTimer(s.interval)
	defer func() { timer.Stop() }()

	for {
		select {
		case <-ctx.Done():
			s.state.Store(int32(StateStopping))
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-timer.C():
			s.tick(context.WithoutCancel(ctx))
			timer = s.clock.NewTimer(s.interval)
		}
	}
}

// Serve implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error { return s.Run(ctx) }

func (s *Scheduler) String() string { return s.name }

func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("pass panicked", "err", fmt.Errorf("panic: %v", r), "stack", string(debug.Stack()))
		}
	}()

	n, err := s.pass(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("pass failed", "changes", n, "err", err)
		return
	}
	if n > 0 {
		s.logger.Info("pass completed", "changes", n)
		return
	}
	s.logger.Debug("pass completed", "changes", 0)
}
