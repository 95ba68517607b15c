package bridge

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-rogue/internal/core"
	"github.com/vovakirdan/tui-rogue/internal/engine"
)

// Validation errors returned by Submit. All are rejected before anything
// is staged; the caller is informed synchronously.
var (
	ErrActionPending = errors.New("bridge: an action is already staged")
	ErrUnknownAction = errors.New("bridge: unknown action kind")
	ErrSelfTarget    = errors.New("bridge: action cannot target yourself")
	ErrNotAdjacent   = errors.New("bridge: target must be adjacent")
	ErrOutOfBounds   = errors.New("bridge: direction leaves the map")
)

// Bounds is the coordinate envelope directions are validated against.
type Bounds struct {
	W, H int
}

// PendingActionQueue stages at most one injected command for the
// simulation to pick up before its next blocking input read.
//
// The staged action and its direction live in one immutable struct behind
// a single atomic pointer, so the consumer observes both together or not
// at all. After staging, one sentinel byte is pushed into the simulation's
// input channel; the run loop only re-checks the staging slot right before
// it blocks, and the sentinel forces exactly one more pass through that
// check.
type PendingActionQueue struct {
	slot   atomic.Pointer[engine.QueuedAction]
	wake   func(byte) bool
	bounds Bounds
	log    *log.Logger
}

var _ engine.PendingSource = (*PendingActionQueue)(nil)

// NewPendingActionQueue creates a queue that wakes the simulation through
// the given function (normally the engine's PushInput).
func NewPendingActionQueue(wake func(byte) bool, bounds Bounds, logger *log.Logger) *PendingActionQueue {
	return &PendingActionQueue{wake: wake, bounds: bounds, log: logger}
}

// Submit validates and stages one directional command. A second submit
// before the first is consumed fails with ErrActionPending rather than
// overwriting a not-yet-processed input.
func (p *PendingActionQueue) Submit(kind engine.ActionKind, dx, dy int) error {
	spec, ok := engine.SpecFor(kind)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAction, uint8(kind))
	}

	d := core.Delta{DX: dx, DY: dy}
	// Envelope check only: the bridge does not track the player, so a
	// delta is rejected here when no position on the map could reach it.
	// The position-relative clipping happens in the simulation when the
	// action executes.
	if core.Abs(dx) >= p.bounds.W || core.Abs(dy) >= p.bounds.H {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, dx, dy)
	}
	if spec.SelfForbidden && d.IsZero() {
		return fmt.Errorf("%w: %s", ErrSelfTarget, spec.Name)
	}
	if spec.AdjacencyRequired && !spec.Ranged && !d.IsAdjacent() {
		return fmt.Errorf("%w: %s at (%d,%d)", ErrNotAdjacent, spec.Name, dx, dy)
	}

	qa := &engine.QueuedAction{Kind: kind, Dir: d}
	if !p.slot.CompareAndSwap(nil, qa) {
		return ErrActionPending
	}

	// Stage first, wake second: by the time the sentinel lands, the
	// action and direction are fully visible.
	if !p.wake(engine.WakeSentinel) {
		p.log.Debug("wake channel full; simulation will see the action on its next pass")
	}
	return nil
}

// Take removes and returns the staged action, if any. Called by the
// simulation's run loop immediately before each blocking read.
func (p *PendingActionQueue) Take() (engine.QueuedAction, bool) {
	qa := p.slot.Swap(nil)
	if qa == nil {
		return engine.QueuedAction{}, false
	}
	return *qa, true
}

// Staged is a diagnostic snapshot of whether an action is waiting.
func (p *PendingActionQueue) Staged() bool {
	return p.slot.Load() != nil
}
