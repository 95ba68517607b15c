package engine

import (
	"fmt"

	"github.com/vovakirdan/tui-rogue/internal/core"
)

// ActionKind identifies one of the directional commands that can be injected
// from outside the simulation's ordinary input stream.
type ActionKind uint8

const (
	ActionKick ActionKind = iota
	ActionOpen
	ActionClose
	ActionFire
	ActionThrow
	ActionLock
	ActionUnlock

	actionKindCount
)

// String returns the command name for an action kind.
func (k ActionKind) String() string {
	if spec, ok := SpecFor(k); ok {
		return spec.Name
	}
	return fmt.Sprintf("ActionKind(%d)", uint8(k))
}

// ActionSpec declares an injectable command together with its validation
// requirements. The table below is the single source of truth for which
// directions are legal for each command.
type ActionSpec struct {
	Kind ActionKind
	Name string

	// SelfForbidden rejects the (0,0) direction.
	SelfForbidden bool

	// AdjacencyRequired restricts the target to one tile away unless the
	// action is Ranged.
	AdjacencyRequired bool

	// Ranged allows targets beyond the adjacent ring.
	Ranged bool

	run func(*Engine, core.Delta)
}

// specs maps every ActionKind to its behavior. Indexed by kind.
var specs = [actionKindCount]ActionSpec{
	ActionKick:   {Kind: ActionKick, Name: "kick", SelfForbidden: true, AdjacencyRequired: true, run: (*Engine).doKick},
	ActionOpen:   {Kind: ActionOpen, Name: "open", SelfForbidden: true, AdjacencyRequired: true, run: (*Engine).doOpen},
	ActionClose:  {Kind: ActionClose, Name: "close", SelfForbidden: true, AdjacencyRequired: true, run: (*Engine).doClose},
	ActionFire:   {Kind: ActionFire, Name: "fire", SelfForbidden: true, Ranged: true, run: (*Engine).doFire},
	ActionThrow:  {Kind: ActionThrow, Name: "throw", SelfForbidden: true, Ranged: true, run: (*Engine).doThrow},
	ActionLock:   {Kind: ActionLock, Name: "lock", SelfForbidden: true, AdjacencyRequired: true, run: (*Engine).doLock},
	ActionUnlock: {Kind: ActionUnlock, Name: "unlock", SelfForbidden: true, AdjacencyRequired: true, run: (*Engine).doUnlock},
}

// SpecFor returns the spec for a kind, or false for an unknown kind.
func SpecFor(kind ActionKind) (ActionSpec, bool) {
	if int(kind) >= len(specs) {
		return ActionSpec{}, false
	}
	return specs[kind], true
}

// QueuedAction is an injected command plus its direction, consumed by the
// run loop as a single unit.
type QueuedAction struct {
	Kind ActionKind
	Dir  core.Delta
}

// execAction runs a previously validated queued action as one full turn.
func (e *Engine) execAction(qa QueuedAction) {
	spec, ok := SpecFor(qa.Kind)
	if !ok {
		e.log.Warn("dropping action with unknown kind", "kind", uint8(qa.Kind))
		return
	}
	spec.run(e, qa.Dir)
	e.endTurn()
}

func (e *Engine) doKick(d core.Delta) {
	x, y := e.world.Player.X+d.DX, e.world.Player.Y+d.DY
	switch e.world.TileAt(x, y) {
	case TileDoorClosed, TileDoorLocked:
		if e.rng.Intn(3) == 0 {
			e.world.SetTile(x, y, TileDoorBroken)
			e.say("As you kick the door, it crashes open!")
		} else {
			e.say("WHAMM!")
		}
	case TileWall:
		e.say("Ouch! That hurts.")
		e.world.Player.HP--
	default:
		if m := e.world.MonsterAt(x, y); m != nil {
			e.hitMonster(m, 2)
		} else {
			e.say("You kick at empty space.")
		}
	}
}

func (e *Engine) doOpen(d core.Delta) {
	x, y := e.world.Player.X+d.DX, e.world.Player.Y+d.DY
	switch e.world.TileAt(x, y) {
	case TileDoorClosed:
		e.world.SetTile(x, y, TileDoorOpen)
		e.say("The door opens.")
	case TileDoorLocked:
		e.say("This door is locked.")
	case TileDoorOpen, TileDoorBroken:
		e.say("This door is already open.")
	default:
		e.say("You see no door there.")
	}
}

func (e *Engine) doClose(d core.Delta) {
	x, y := e.world.Player.X+d.DX, e.world.Player.Y+d.DY
	switch e.world.TileAt(x, y) {
	case TileDoorOpen:
		if e.world.MonsterAt(x, y) != nil {
			e.say("There's a monster in the way!")
			return
		}
		e.world.SetTile(x, y, TileDoorClosed)
		e.say("The door closes.")
	case TileDoorBroken:
		e.say("This door is broken.")
	case TileDoorClosed, TileDoorLocked:
		e.say("This door is already closed.")
	default:
		e.say("You see no door there.")
	}
}

func (e *Engine) doFire(d core.Delta) {
	e.rayAttack(d, 3, "The arrow")
}

func (e *Engine) doThrow(d core.Delta) {
	e.rayAttack(d, 1, "The rock")
}

// rayAttack walks outward from the player along d until it hits a monster
// or something solid.
func (e *Engine) rayAttack(d core.Delta, damage int, missile string) {
	sx := sign(d.DX)
	sy := sign(d.DY)
	x, y := e.world.Player.X, e.world.Player.Y
	for range maxMissileRange {
		x += sx
		y += sy
		if m := e.world.MonsterAt(x, y); m != nil {
			e.say(fmt.Sprintf("%s hits the %s.", missile, m.Name))
			e.hitMonster(m, damage)
			return
		}
		if e.world.TileAt(x, y).Solid() {
			break
		}
	}
	e.say(fmt.Sprintf("%s clatters to the floor.", missile))
}

func (e *Engine) doLock(d core.Delta) {
	x, y := e.world.Player.X+d.DX, e.world.Player.Y+d.DY
	switch e.world.TileAt(x, y) {
	case TileDoorClosed:
		e.world.SetTile(x, y, TileDoorLocked)
		e.say("Klunk! The door is locked.")
	case TileDoorLocked:
		e.say("This door is already locked.")
	case TileDoorOpen, TileDoorBroken:
		e.say("You must close it first.")
	default:
		e.say("You see no door there.")
	}
}

func (e *Engine) doUnlock(d core.Delta) {
	x, y := e.world.Player.X+d.DX, e.world.Player.Y+d.DY
	switch e.world.TileAt(x, y) {
	case TileDoorLocked:
		e.world.SetTile(x, y, TileDoorClosed)
		e.say("Klick! The door is unlocked.")
	case TileDoorClosed:
		e.say("This door is not locked.")
	default:
		e.say("You see no locked door there.")
	}
}

func (e *Engine) hitMonster(m *Monster, damage int) {
	m.HP -= damage
	if m.HP <= 0 {
		e.say(fmt.Sprintf("The %s dies!", m.Name))
		e.world.RemoveMonster(m)
		e.world.Player.Kills++
	}
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
