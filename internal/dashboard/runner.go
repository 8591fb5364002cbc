package dashboard

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/live-dashboard/internal/render"
)

// State is the refresh loop's state.
type State int32

const (
	// Idle waits for input.
	Idle State = iota
	// Refreshing runs cycles, sleeping Interval between them while auto-refresh is on.
	Refreshing
)

func (s State) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

// Runner drives a Controller without a browser: cycle, emit, then while auto-refresh is
// enabled sleep, invalidate and restart from the top.
type Runner struct {
	ctrl   Controller
	state  atomic.Int32
	after  func(time.Duration) <-chan time.Time
	logger *zap.Logger
}

// NewRunner creates an idle Runner for ctrl.
func NewRunner(ctrl Controller, logger *zap.Logger) *Runner {
	return &Runner{ctrl: ctrl, after: time.After, logger: logger}
}

// SetAfter replaces the sleep timer source. For tests.
func (r *Runner) SetAfter(after func(time.Duration) <-chan time.Time) {
	r.after = after
}

// State returns the current state.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Run cycles st until auto-refresh is off or ctx is done. The refresh config is re-read at
// the top of every cycle, so a change made between cycles applies to the next sleep.
// Returns ctx.Err() when cancelled during a sleep, nil when auto-refresh is off.
func (r *Runner) Run(ctx context.Context, st *PageState, emit func(render.View)) error {
	r.state.Store(int32(Refreshing))
	defer r.state.Store(int32(Idle))

	force := false
	for {
		view := r.ctrl.Cycle(ctx, st, force)
		emit(view)

		if !view.Refresh.Enabled {
			return nil
		}
		r.logger.Debug("sleeping before next cycle",
			zap.String("page", r.ctrl.Name()),
			zap.Duration("interval", view.Refresh.Interval))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(view.Refresh.Interval):
		}
		force = true
	}
}
