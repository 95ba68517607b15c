package bridge

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-rogue/internal/arena"
	"github.com/vovakirdan/tui-rogue/internal/script"
)

// SessionState tracks where a session is in its lifecycle.
type SessionState int32

const (
	StateUninitialized SessionState = iota
	StateReady
	StateActive
	StateShuttingDown
	StateWiped
)

// String returns a human-readable name for the state.
func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting-down"
	case StateWiped:
		return "wiped"
	default:
		return "unknown"
	}
}

// ErrBadTransition is returned when a lifecycle step is called out of
// order. The chain is strict: Uninitialized→Ready→Active→ShuttingDown→
// Wiped→Ready, no skipping. The original bridge trusted callers to
// sequence correctly; here misuse is a hard error.
var ErrBadTransition = errors.New("bridge: lifecycle step out of order")

// ControllerConfig wires the collaborators a session depends on.
type ControllerConfig struct {
	Arena  *arena.Arena
	Logger *log.Logger

	// ScriptDir is where hook scripts live; empty uses the built-in set.
	ScriptDir string

	// SnapshotDir is created on reinit as part of path configuration.
	SnapshotDir string

	// OpenData and CloseData manage persistent data handles (the sqlite
	// store). Either may be nil.
	OpenData  func() error
	CloseData func() error

	// StatusBufSize sizes the display-status buffer. Zero uses a default.
	StatusBufSize int
}

const defaultStatusBufSize = 256

// Controller owns the Shutdown → Wipe → Reinit sequence that lets a second
// session run in the same process without inheriting anything from the
// first. It only ever references simulation state, never inspects it: the
// teardown hook frees dynamic objects, the arena wipe zeroes bulk state.
type Controller struct {
	cfg ControllerConfig
	log *log.Logger

	state SessionState

	// Session flags, reset to defaults on reinit.
	inProgress  bool
	gameOver    bool
	cleanupDone bool

	teardown  func()
	scripts   *script.Engine
	statusBuf []byte

	cacheResets []func()
}

// NewController creates a controller in the Uninitialized state.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.StatusBufSize <= 0 {
		cfg.StatusBufSize = defaultStatusBufSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{cfg: cfg, log: logger.WithPrefix("lifecycle")}
}

// State returns the current lifecycle state.
func (c *Controller) State() SessionState {
	return c.state
}

// Scripts returns the current scripting instance, nil between sessions.
func (c *Controller) Scripts() *script.Engine {
	return c.scripts
}

// StatusBuf returns the display-status buffer for the current session.
func (c *Controller) StatusBuf() []byte {
	return c.statusBuf
}

// SetStatusBuf replaces the display-status buffer after a reformat. The
// new slice must share the original backing array.
func (c *Controller) SetStatusBuf(buf []byte) {
	c.statusBuf = buf
}

// RegisterCacheReset adds a bridge-local cache reset callback, invoked on
// every reinit.
func (c *Controller) RegisterCacheReset(fn func()) {
	c.cacheResets = append(c.cacheResets, fn)
}

// MarkCleanupDone records that the simulation's own termination path
// already freed the dynamic objects, so Shutdown must not free them again.
func (c *Controller) MarkCleanupDone() {
	c.cleanupDone = true
}

// CleanupDone reports the cleanup-already-ran flag.
func (c *Controller) CleanupDone() bool {
	return c.cleanupDone
}

// SetGameOver records the terminal-game flag for the session.
func (c *Controller) SetGameOver(v bool) {
	c.gameOver = v
}

// GameOver reports the terminal-game flag.
func (c *Controller) GameOver() bool {
	return c.gameOver
}

// InProgress reports whether a session is currently active.
func (c *Controller) InProgress() bool {
	return c.inProgress
}

// Init performs first-time initialization: Uninitialized → Ready.
func (c *Controller) Init() error {
	if c.state != StateUninitialized {
		return fmt.Errorf("%w: init from %s", ErrBadTransition, c.state)
	}
	c.reinitSteps()
	c.state = StateReady
	c.log.Info("bridge initialized")
	return nil
}

// Activate marks a session as started: Ready → Active. The teardown hook
// is the simulation's own entry point for freeing its dynamic objects.
func (c *Controller) Activate(teardown func()) error {
	if c.state != StateReady {
		return fmt.Errorf("%w: activate from %s", ErrBadTransition, c.state)
	}
	c.teardown = teardown
	c.inProgress = true
	c.state = StateActive
	return nil
}

// Shutdown frees session resources: Active → ShuttingDown. Order is
// strict: dynamic objects first, then data handles, then scripting (which
// may hold references into game objects, so it must outlive none of them),
// then display buffers, then flags. Steps log failures and continue;
// aborting mid-teardown would lose more than it saves.
func (c *Controller) Shutdown() error {
	if c.state != StateActive {
		return fmt.Errorf("%w: shutdown from %s", ErrBadTransition, c.state)
	}

	if c.cleanupDone {
		c.log.Debug("dynamic objects already freed by termination path")
	} else if c.teardown != nil {
		c.teardown()
		c.cleanupDone = true
	}
	c.teardown = nil

	if c.cfg.CloseData != nil {
		if err := c.cfg.CloseData(); err != nil {
			c.log.Error("closing data handles failed", "err", err)
		}
	}

	if c.scripts != nil {
		c.scripts.Close()
		c.scripts = nil
	}

	c.statusBuf = nil
	c.inProgress = false

	c.state = StateShuttingDown
	c.log.Info("session shut down")
	return nil
}

// Wipe zeroes the static arena: ShuttingDown → Wiped. Shutdown must have
// completed first; wiping under live references is undefined behavior,
// which is exactly why the transition check is a hard error here.
func (c *Controller) Wipe() error {
	if c.state != StateShuttingDown {
		return fmt.Errorf("%w: wipe from %s", ErrBadTransition, c.state)
	}
	c.cfg.Arena.Wipe()
	c.state = StateWiped
	c.log.Info("arena wiped", "size", c.cfg.Arena.Size())
	return nil
}

// Reinit rebuilds everything a fresh session needs: Wiped → Ready. Order
// is strict because later steps assume earlier ones: paths before data
// handles, data handles before scripting, scripting before buffers.
func (c *Controller) Reinit() error {
	if c.state != StateWiped {
		return fmt.Errorf("%w: reinit from %s", ErrBadTransition, c.state)
	}
	c.reinitSteps()
	c.state = StateReady
	c.log.Info("session ready")
	return nil
}

func (c *Controller) reinitSteps() {
	if c.cfg.SnapshotDir != "" {
		if err := os.MkdirAll(c.cfg.SnapshotDir, 0o755); err != nil {
			c.log.Error("creating snapshot dir failed", "dir", c.cfg.SnapshotDir, "err", err)
		}
	}

	if c.cfg.OpenData != nil {
		if err := c.cfg.OpenData(); err != nil {
			c.log.Error("opening data handles failed", "err", err)
		}
	}

	c.scripts = script.New(c.cfg.ScriptDir, c.log)
	if err := c.scripts.Load(); err != nil {
		c.log.Error("loading hook scripts failed", "err", err)
	}

	c.statusBuf = make([]byte, 0, c.cfg.StatusBufSize)

	for _, reset := range c.cacheResets {
		reset()
	}

	c.gameOver = false
	c.cleanupDone = false
}
