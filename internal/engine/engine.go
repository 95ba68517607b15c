// Package engine implements the single-goroutine dungeon simulation. The
// engine keeps its bulk state in an arena region and blocks on a byte input
// channel inside its own run loop; everything outside drives it through the
// bridge layer, never directly.
package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-rogue/internal/arena"
	"github.com/vovakirdan/tui-rogue/internal/core"
)

// WakeSentinel is the byte pushed into the input channel to force one more
// pass through the pending-action check. It is consumed without dispatching
// a command.
const WakeSentinel byte = 0x00

// KeyEscape cancels a pending prompt.
const KeyEscape byte = 0x1b

const maxMissileRange = 12

// Terminal run-loop results. The run loop exits by returning one of these;
// there is no non-local escape out of the simulation.
var (
	ErrQuit       = errors.New("engine: player quit")
	ErrPlayerDied = errors.New("engine: player died")
	ErrStopped    = errors.New("engine: stopped by driver")
)

// StatusSnapshot carries the status-bar values published after every turn.
// Plain values only; safe to copy across the queue.
type StatusSnapshot struct {
	HP    int
	MaxHP int
	Gold  int
	Depth int
	Turn  uint64
	Kills int
}

// Events receives render output from the simulation. Implemented by the
// bridge, which forwards every call into the render queue.
type Events interface {
	// Tile publishes one glyph update.
	Tile(x, y int, glyph rune, color core.Color)
	// Message publishes a line of text to the named window.
	Message(window, text string)
	// Status publishes a status-bar snapshot.
	Status(s StatusSnapshot)
	// Flush marks the end of a burst of updates.
	Flush()
	// Clear asks the consumer to wipe its display before the next burst.
	Clear()
	// TurnComplete signals that one full command finished.
	TurnComplete(turn uint64)
}

// PendingSource yields externally injected directional actions. Implemented
// by the bridge's pending action queue; the run loop polls it immediately
// before every blocking read.
type PendingSource interface {
	Take() (QueuedAction, bool)
}

// Hooks is the scripting surface invoked at simulation milestones.
type Hooks interface {
	// LevelEntered runs when the player arrives on a level. A non-empty
	// return is shown as a message.
	LevelEntered(depth int) (string, error)
	// TurnPassed runs after every completed turn.
	TurnPassed(turn uint64) error
}

// Config holds the engine's tunables for one session.
type Config struct {
	Width    int
	Height   int
	Seed     int64
	Monsters int

	// InputBuffer sizes the blocking input channel.
	InputBuffer int
}

// DefaultConfig returns the dimensions used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Width:       72,
		Height:      18,
		Monsters:    6,
		InputBuffer: 32,
	}
}

// Engine is the simulation. All fields are owned by the simulation
// goroutine once Run starts; external access goes through PushInput,
// the pending source, and the serializer (while stopped).
type Engine struct {
	cfg   Config
	mem   *arena.Arena
	world *World
	rng   *rand.Rand
	log   *log.Logger

	input   chan byte
	pending PendingSource
	ev      Events
	hooks   Hooks

	turn      uint64
	prompting bool
	stop      atomic.Bool
	lastObs   Observable

	// OnPrompt is invoked just before the run loop blocks waiting for a
	// prompt answer. Set by the facade before Run.
	OnPrompt func(question string)

	// OnCommandDone is invoked after each fully processed command.
	// Set by the facade before Run.
	OnCommandDone func()
}

// New builds an engine shell over the given arena and collaborators.
// The caller must then either Generate a fresh first level or LoadState a
// restored one before Run.
func New(cfg Config, mem *arena.Arena, logger *log.Logger, ev Events, pending PendingSource, hooks Hooks) *Engine {
	if cfg.InputBuffer <= 0 {
		cfg.InputBuffer = DefaultConfig().InputBuffer
	}
	return &Engine{
		cfg:     cfg,
		mem:     mem,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		log:     logger,
		input:   make(chan byte, cfg.InputBuffer),
		pending: pending,
		ev:      ev,
		hooks:   hooks,
	}
}

// Generate carves the first level into the arena.
func (e *Engine) Generate() error {
	world, err := NewWorld(e.mem, e.rng, e.cfg.Width, e.cfg.Height, 1, e.cfg.Monsters)
	if err != nil {
		return fmt.Errorf("engine: carve level: %w", err)
	}
	e.world = world
	return nil
}

// PushInput delivers one byte into the blocking input channel. Returns
// false if the channel is full; callers treat that as "busy".
func (e *Engine) PushInput(b byte) bool {
	select {
	case e.input <- b:
		return true
	default:
		return false
	}
}

// Stop asks the run loop to exit at its next wakeup. The sentinel push
// unblocks a loop currently waiting on input.
func (e *Engine) Stop() {
	e.stop.Store(true)
	e.PushInput(WakeSentinel)
}

// Turn returns the number of completed turns.
func (e *Engine) Turn() uint64 {
	return e.turn
}

// Run is the simulation loop. It blocks on the input channel, checking the
// pending action source immediately before each read, and processes exactly
// one command per wakeup. Run returns only on a terminal event.
func (e *Engine) Run() error {
	e.announceLevel()
	e.publishFrame()
	e.ev.TurnComplete(e.turn)

	for {
		if e.stop.Load() {
			return ErrStopped
		}

		if qa, ok := e.pending.Take(); ok {
			e.execAction(qa)
			if err := e.checkTerminal(); err != nil {
				return err
			}
			e.done()
			continue
		}

		b := <-e.input
		if b == WakeSentinel {
			continue
		}

		if err := e.command(b); err != nil {
			return err
		}
		if err := e.checkTerminal(); err != nil {
			return err
		}
		e.done()
	}
}

func (e *Engine) done() {
	e.ev.TurnComplete(e.turn)
	if e.OnCommandDone != nil {
		e.OnCommandDone()
	}
}

// checkTerminal handles the death path: dynamic objects are freed right
// here, so the later lifecycle shutdown must not free them again.
func (e *Engine) checkTerminal() error {
	if e.world == nil || e.world.Player.HP > 0 {
		return nil
	}
	e.say("You die...")
	e.publishFrame()
	e.Teardown()
	return ErrPlayerDied
}

// command dispatches a single ordinary input byte as one turn.
func (e *Engine) command(b byte) error {
	switch b {
	case 'Q':
		e.say("Goodbye.")
		return ErrQuit
	case '.':
		e.say("You wait.")
		e.endTurn()
	case ',':
		e.pickup()
		e.endTurn()
	case '>':
		e.descend()
	case 'o':
		if d, ok := e.promptDirection("Open in what direction?"); ok {
			e.doOpen(d)
			e.endTurn()
		}
	case 'c':
		if d, ok := e.promptDirection("Close in what direction?"); ok {
			e.doClose(d)
			e.endTurn()
		}
	default:
		if d, ok := dirForKey(b); ok {
			e.move(d)
			e.endTurn()
		} else {
			e.say(fmt.Sprintf("Unknown command '%c'.", b))
		}
	}
	return nil
}

// promptDirection asks the UI a question and blocks until the next input
// byte arrives. Escape cancels.
func (e *Engine) promptDirection(question string) (core.Delta, bool) {
	e.ev.Message("prompt", question)
	e.prompting = true
	if e.OnPrompt != nil {
		e.OnPrompt(question)
	}

	for {
		b := <-e.input
		if b == WakeSentinel {
			if e.stop.Load() {
				e.prompting = false
				return core.Delta{}, false
			}
			continue
		}
		e.prompting = false
		if b == KeyEscape {
			e.say("Never mind.")
			return core.Delta{}, false
		}
		if d, ok := dirForKey(b); ok {
			return d, true
		}
		e.say("That's not a direction.")
		return core.Delta{}, false
	}
}

// dirForKey maps vi movement keys to deltas.
func dirForKey(b byte) (core.Delta, bool) {
	switch b {
	case 'h':
		return core.Delta{DX: -1}, true
	case 'l':
		return core.Delta{DX: 1}, true
	case 'k':
		return core.Delta{DY: -1}, true
	case 'j':
		return core.Delta{DY: 1}, true
	case 'y':
		return core.Delta{DX: -1, DY: -1}, true
	case 'u':
		return core.Delta{DX: 1, DY: -1}, true
	case 'b':
		return core.Delta{DX: -1, DY: 1}, true
	case 'n':
		return core.Delta{DX: 1, DY: 1}, true
	}
	return core.Delta{}, false
}

func (e *Engine) move(d core.Delta) {
	nx, ny := e.world.Player.X+d.DX, e.world.Player.Y+d.DY
	if m := e.world.MonsterAt(nx, ny); m != nil {
		e.say(fmt.Sprintf("You hit the %s.", m.Name))
		e.hitMonster(m, 1+e.rng.Intn(3))
		return
	}
	t := e.world.TileAt(nx, ny)
	if t.Solid() {
		switch t {
		case TileDoorClosed:
			e.say("The door is closed.")
		case TileDoorLocked:
			e.say("The door is locked.")
		default:
			e.say("You bump into a wall.")
		}
		return
	}
	e.world.Player.X = nx
	e.world.Player.Y = ny
	if it := e.world.ItemAt(nx, ny); it != nil {
		e.say(fmt.Sprintf("You see here %s.", it.Name))
	}
}

func (e *Engine) pickup() {
	it := e.world.ItemAt(e.world.Player.X, e.world.Player.Y)
	if it == nil {
		e.say("There is nothing here to pick up.")
		return
	}
	e.world.Player.Gold += it.Gold
	e.world.RemoveItem(it)
	e.say(fmt.Sprintf("You pick up %s.", it.Name))
}

// descend regenerates the level one depth further down. The old level's
// arena regions stay allocated until the session is wiped; only the
// offsets move forward.
func (e *Engine) descend() {
	if e.world.TileAt(e.world.Player.X, e.world.Player.Y) != TileStairsDown {
		e.say("You can't go down here.")
		return
	}
	depth := e.world.Depth + 1
	world, err := NewWorld(e.mem, e.rng, e.cfg.Width, e.cfg.Height, depth, e.cfg.Monsters+depth)
	if err != nil {
		e.log.Error("level generation failed, staying put", "depth", depth, "err", err)
		e.say("The stairs crumble beneath you.")
		return
	}
	hp, gold, kills := e.world.Player.HP, e.world.Player.Gold, e.world.Player.Kills
	e.world = world
	e.world.Player.HP = core.Min(hp+2, e.world.Player.MaxHP)
	e.world.Player.Gold = gold
	e.world.Player.Kills = kills

	e.ev.Clear()
	e.announceLevel()
	e.endTurn()
}

func (e *Engine) announceLevel() {
	e.say(fmt.Sprintf("Welcome to depth %d.", e.world.Depth))
	if e.hooks == nil {
		return
	}
	msg, err := e.hooks.LevelEntered(e.world.Depth)
	if err != nil {
		e.log.Warn("level hook failed", "depth", e.world.Depth, "err", err)
		return
	}
	if msg != "" {
		e.say(msg)
	}
}

// endTurn advances the clock, lets monsters act, and republishes the frame.
func (e *Engine) endTurn() {
	e.turn++
	e.monstersAct()
	if e.hooks != nil {
		if err := e.hooks.TurnPassed(e.turn); err != nil {
			e.log.Warn("turn hook failed", "turn", e.turn, "err", err)
		}
	}
	e.publishFrame()
}

// monstersAct moves every monster one step: chase if the player is close,
// otherwise shuffle randomly.
func (e *Engine) monstersAct() {
	for _, m := range e.world.Monsters {
		dx := e.world.Player.X - m.X
		dy := e.world.Player.Y - m.Y

		if core.Abs(dx) <= 1 && core.Abs(dy) <= 1 {
			e.say(fmt.Sprintf("The %s bites you!", m.Name))
			e.world.Player.HP--
			continue
		}

		var step core.Delta
		if core.Abs(dx) <= 6 && core.Abs(dy) <= 6 {
			step = core.Delta{DX: sign(dx), DY: sign(dy)}
		} else {
			step = core.Delta{DX: e.rng.Intn(3) - 1, DY: e.rng.Intn(3) - 1}
		}

		nx, ny := m.X+step.DX, m.Y+step.DY
		if e.world.TileAt(nx, ny).Solid() || e.world.MonsterAt(nx, ny) != nil {
			continue
		}
		if nx == e.world.Player.X && ny == e.world.Player.Y {
			continue
		}
		m.X, m.Y = nx, ny
	}
}

// publishFrame republishes the whole visible state. Dropped queue entries
// are fine: the next frame repeats them.
func (e *Engine) publishFrame() {
	w := e.world
	for y := 0; y < w.H; y++ {
		for x := 0; x < w.W; x++ {
			if core.Abs(x-w.Player.X) <= 8 && core.Abs(y-w.Player.Y) <= 5 {
				w.MarkExplored(x, y)
			}
			if !w.Explored(x, y) {
				continue
			}
			glyph, color := w.TileAt(x, y).Glyph()
			e.ev.Tile(x, y, glyph, color)
		}
	}
	for _, it := range w.Items {
		if w.Explored(it.X, it.Y) {
			e.ev.Tile(it.X, it.Y, it.Glyph, core.ColorBrightYellow)
		}
	}
	for _, m := range w.Monsters {
		if w.Explored(m.X, m.Y) {
			e.ev.Tile(m.X, m.Y, m.Glyph, core.ColorBrightRed)
		}
	}
	e.ev.Tile(w.Player.X, w.Player.Y, '@', core.ColorBrightWhite)

	e.ev.Status(StatusSnapshot{
		HP:    w.Player.HP,
		MaxHP: w.Player.MaxHP,
		Gold:  w.Player.Gold,
		Depth: w.Depth,
		Turn:  e.turn,
		Kills: w.Player.Kills,
	})
	e.ev.Flush()
}

func (e *Engine) say(text string) {
	e.ev.Message("message", text)
}

// Teardown frees the dynamic game objects. Idempotent; the arena region is
// left untouched for the lifecycle controller to wipe. The final
// observable state is kept so session records survive the free.
func (e *Engine) Teardown() {
	if e.world != nil {
		e.lastObs = e.Observe()
	}
	e.world = nil
}

// TornDown reports whether dynamic objects have already been freed.
func (e *Engine) TornDown() bool {
	return e.world == nil
}
