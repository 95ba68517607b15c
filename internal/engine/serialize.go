package engine

import (
	"encoding/gob"
	"fmt"
	"io"
	"math/rand"
)

// stateRecord is the gob image of a stopped engine. The world's arena
// offsets are stored as-is: they only resolve once the matching arena
// bytes have been restored, which is why the snapshot integrator always
// replays the arena stream first.
type stateRecord struct {
	Turn    uint64
	ReSeed  int64
	Config  Config
	W, H    int
	Depth   int
	Terrain int
	Explore int

	Player   Player
	Monsters []Monster
	Items    []Item
}

// SaveState writes the logical game graph. Must only be called while the
// simulation goroutine is stopped.
func (e *Engine) SaveState(w io.Writer) error {
	if e.world == nil {
		return fmt.Errorf("engine: no world to save")
	}

	rec := stateRecord{
		Turn:    e.turn,
		ReSeed:  e.rng.Int63(),
		Config:  e.cfg,
		W:       e.world.W,
		H:       e.world.H,
		Depth:   e.world.Depth,
		Terrain: e.world.terrainOff,
		Explore: e.world.exploredOff,
		Player:  e.world.Player,
	}
	for _, m := range e.world.Monsters {
		rec.Monsters = append(rec.Monsters, *m)
	}
	for _, it := range e.world.Items {
		rec.Items = append(rec.Items, *it)
	}

	if err := gob.NewEncoder(w).Encode(rec); err != nil {
		return fmt.Errorf("engine: encode state: %w", err)
	}
	return nil
}

// LoadState replaces the engine's logical state with a previously saved
// stream. The arena must already hold the bytes the stream's offsets point
// into. Must only be called while the simulation goroutine is stopped.
func (e *Engine) LoadState(r io.Reader) error {
	var rec stateRecord
	if err := gob.NewDecoder(r).Decode(&rec); err != nil {
		return fmt.Errorf("engine: decode state: %w", err)
	}
	if rec.W <= 0 || rec.H <= 0 {
		return fmt.Errorf("engine: decode state: bad dimensions %dx%d", rec.W, rec.H)
	}

	world := &World{
		W:           rec.W,
		H:           rec.H,
		Depth:       rec.Depth,
		terrainOff:  rec.Terrain,
		exploredOff: rec.Explore,
		Player:      rec.Player,
	}
	for i := range rec.Monsters {
		m := rec.Monsters[i]
		world.Monsters = append(world.Monsters, &m)
	}
	for i := range rec.Items {
		it := rec.Items[i]
		world.Items = append(world.Items, &it)
	}

	e.cfg = rec.Config
	e.turn = rec.Turn
	e.rng = rand.New(rand.NewSource(rec.ReSeed))
	world.Rebind(e.mem, e.rng)
	e.world = world

	if world.terrain() == nil || world.explored() == nil {
		e.world = nil
		return fmt.Errorf("engine: decode state: offsets outside restored arena")
	}
	return nil
}

// Observable is the externally visible game state, used to compare
// sessions and verify snapshot round-trips.
type Observable struct {
	Status   StatusSnapshot
	X, Y     int
	Monsters int
	Items    int
}

// Observe captures the externally visible state of a stopped engine.
// After teardown it returns the last state captured before the dynamic
// objects were freed.
func (e *Engine) Observe() Observable {
	if e.world == nil {
		return e.lastObs
	}
	return Observable{
		Status: StatusSnapshot{
			HP:    e.world.Player.HP,
			MaxHP: e.world.Player.MaxHP,
			Gold:  e.world.Player.Gold,
			Depth: e.world.Depth,
			Turn:  e.turn,
			Kills: e.world.Player.Kills,
		},
		X:        e.world.Player.X,
		Y:        e.world.Player.Y,
		Monsters: len(e.world.Monsters),
		Items:    len(e.world.Items),
	}
}
