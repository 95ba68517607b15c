package engine

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-rogue/internal/arena"
	"github.com/vovakirdan/tui-rogue/internal/core"
)

// recEvents records everything the simulation publishes.
type recEvents struct {
	messages []string
	statuses []StatusSnapshot
	turnDone []uint64
	flushes  int
	clears   int
}

func (r *recEvents) Tile(x, y int, glyph rune, color core.Color) {}
func (r *recEvents) Message(window, text string)                 { r.messages = append(r.messages, text) }
func (r *recEvents) Status(s StatusSnapshot)                     { r.statuses = append(r.statuses, s) }
func (r *recEvents) Flush()                                      { r.flushes++ }
func (r *recEvents) Clear()                                      { r.clears++ }
func (r *recEvents) TurnComplete(turn uint64)                    { r.turnDone = append(r.turnDone, turn) }

func (r *recEvents) saw(sub string) bool {
	for _, m := range r.messages {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

// slicePending pops actions off a slice, one per Take.
type slicePending struct {
	actions []QueuedAction
}

func (p *slicePending) Take() (QueuedAction, bool) {
	if len(p.actions) == 0 {
		return QueuedAction{}, false
	}
	qa := p.actions[0]
	p.actions = p.actions[1:]
	return qa, true
}

func testEngine(t *testing.T, seed int64) (*Engine, *recEvents) {
	t.Helper()
	ev := &recEvents{}
	cfg := DefaultConfig()
	cfg.Seed = seed
	e := New(cfg, arena.New(1<<18), log.New(io.Discard), ev, &slicePending{}, nil)
	if err := e.Generate(); err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	return e, ev
}

// calm removes all monsters so turns pass without combat.
func calm(e *Engine) {
	e.world.Monsters = nil
}

func TestGenerateDeterministic(t *testing.T) {
	a, _ := testEngine(t, 99)
	b, _ := testEngine(t, 99)

	if a.world.Player != b.world.Player {
		t.Errorf("Same seed should spawn the same player: %+v vs %+v", a.world.Player, b.world.Player)
	}
	if len(a.world.Monsters) != len(b.world.Monsters) {
		t.Fatalf("Monster counts differ: %d vs %d", len(a.world.Monsters), len(b.world.Monsters))
	}
	for i := range a.world.Monsters {
		if *a.world.Monsters[i] != *b.world.Monsters[i] {
			t.Errorf("Monster %d differs: %+v vs %+v", i, *a.world.Monsters[i], *b.world.Monsters[i])
		}
	}
	for y := 0; y < a.world.H; y++ {
		for x := 0; x < a.world.W; x++ {
			if a.world.TileAt(x, y) != b.world.TileAt(x, y) {
				t.Fatalf("Terrain differs at (%d,%d)", x, y)
			}
		}
	}
}

func TestGenerateSpawnsPlayerOnFloor(t *testing.T) {
	e, _ := testEngine(t, 3)
	p := e.world.Player
	if e.world.TileAt(p.X, p.Y).Solid() {
		t.Errorf("Player spawned inside something solid at (%d,%d)", p.X, p.Y)
	}
	if p.HP <= 0 || p.HP != p.MaxHP {
		t.Errorf("Fresh player should start at full health, got %d/%d", p.HP, p.MaxHP)
	}
}

func TestDirForKey(t *testing.T) {
	cases := []struct {
		key    byte
		dx, dy int
	}{
		{'h', -1, 0}, {'l', 1, 0}, {'k', 0, -1}, {'j', 0, 1},
		{'y', -1, -1}, {'u', 1, -1}, {'b', -1, 1}, {'n', 1, 1},
	}
	for _, tc := range cases {
		d, ok := dirForKey(tc.key)
		if !ok {
			t.Errorf("dirForKey(%q) not recognized", tc.key)
			continue
		}
		if d.DX != tc.dx || d.DY != tc.dy {
			t.Errorf("dirForKey(%q) = %+v, want (%d,%d)", tc.key, d, tc.dx, tc.dy)
		}
	}
	if _, ok := dirForKey('x'); ok {
		t.Error("dirForKey('x') should not be a direction")
	}
}

func TestMoveBlockedBySolid(t *testing.T) {
	e, ev := testEngine(t, 5)
	calm(e)
	p := e.world.Player
	e.world.SetTile(p.X+1, p.Y, TileWall)

	e.move(core.Delta{DX: 1})
	if e.world.Player.X != p.X || e.world.Player.Y != p.Y {
		t.Error("Player should not move into a wall")
	}
	if !ev.saw("bump into a wall") {
		t.Errorf("Expected a bump message, got %v", ev.messages)
	}

	e.world.SetTile(p.X+1, p.Y, TileDoorLocked)
	e.move(core.Delta{DX: 1})
	if !ev.saw("locked") {
		t.Errorf("Expected a locked-door message, got %v", ev.messages)
	}
}

func TestDoorActions(t *testing.T) {
	e, ev := testEngine(t, 5)
	calm(e)
	p := e.world.Player
	dx, dy := p.X+1, p.Y
	east := core.Delta{DX: 1}

	e.world.SetTile(dx, dy, TileDoorClosed)

	e.doOpen(east)
	if e.world.TileAt(dx, dy) != TileDoorOpen {
		t.Fatalf("Expected open door, got %v", e.world.TileAt(dx, dy))
	}
	e.doClose(east)
	if e.world.TileAt(dx, dy) != TileDoorClosed {
		t.Fatalf("Expected closed door, got %v", e.world.TileAt(dx, dy))
	}
	e.doLock(east)
	if e.world.TileAt(dx, dy) != TileDoorLocked {
		t.Fatalf("Expected locked door, got %v", e.world.TileAt(dx, dy))
	}

	// A locked door resists opening.
	e.doOpen(east)
	if e.world.TileAt(dx, dy) != TileDoorLocked {
		t.Error("Opening a locked door should not change it")
	}
	if !ev.saw("This door is locked") {
		t.Errorf("Expected a locked message, got %v", ev.messages)
	}

	e.doUnlock(east)
	if e.world.TileAt(dx, dy) != TileDoorClosed {
		t.Fatalf("Expected unlocked (closed) door, got %v", e.world.TileAt(dx, dy))
	}

	// No door at all.
	e.world.SetTile(dx, dy, TileFloor)
	e.doOpen(east)
	if !ev.saw("no door there") {
		t.Errorf("Expected a no-door message, got %v", ev.messages)
	}
}

func TestKickWallHurts(t *testing.T) {
	e, ev := testEngine(t, 5)
	calm(e)
	p := e.world.Player
	e.world.SetTile(p.X+1, p.Y, TileWall)
	hp := e.world.Player.HP

	e.doKick(core.Delta{DX: 1})
	if e.world.Player.HP != hp-1 {
		t.Errorf("Kicking a wall should cost 1 HP, went %d -> %d", hp, e.world.Player.HP)
	}
	if !ev.saw("Ouch") {
		t.Errorf("Expected an ouch, got %v", ev.messages)
	}
}

func TestRayAttackHitsFirstMonster(t *testing.T) {
	e, ev := testEngine(t, 5)
	calm(e)
	p := e.world.Player

	// Clear floor to the east, monster three tiles out.
	for i := 1; i <= 4; i++ {
		e.world.SetTile(p.X+i, p.Y, TileFloor)
	}
	m := &Monster{X: p.X + 3, Y: p.Y, HP: 10, Glyph: 'o', Name: "orc"}
	e.world.Monsters = []*Monster{m}

	e.doFire(core.Delta{DX: 1})
	if m.HP != 7 {
		t.Errorf("Arrow should deal 3 damage, monster at %d HP", m.HP)
	}
	if !ev.saw("The arrow hits the orc") {
		t.Errorf("Expected a hit message, got %v", ev.messages)
	}

	// A wall in between stops the missile short.
	e.world.SetTile(p.X+2, p.Y, TileWall)
	e.doFire(core.Delta{DX: 1})
	if m.HP != 7 {
		t.Errorf("Missile through a wall should not connect, monster at %d HP", m.HP)
	}
	if !ev.saw("clatters to the floor") {
		t.Errorf("Expected a miss message, got %v", ev.messages)
	}
}

func TestKillCreditsPlayer(t *testing.T) {
	e, _ := testEngine(t, 5)
	calm(e)
	m := &Monster{X: 1, Y: 1, HP: 2, Glyph: 'r', Name: "sewer rat"}
	e.world.Monsters = []*Monster{m}

	e.hitMonster(m, 5)
	if len(e.world.Monsters) != 0 {
		t.Error("Dead monster should leave the level")
	}
	if e.world.Player.Kills != 1 {
		t.Errorf("Expected 1 kill, got %d", e.world.Player.Kills)
	}
}

func TestPickup(t *testing.T) {
	e, ev := testEngine(t, 5)
	calm(e)
	p := e.world.Player
	e.world.Items = []*Item{{X: p.X, Y: p.Y, Glyph: '$', Name: "gold pieces", Gold: 25}}

	e.pickup()
	if e.world.Player.Gold != 25 {
		t.Errorf("Expected 25 gold, got %d", e.world.Player.Gold)
	}
	if len(e.world.Items) != 0 {
		t.Error("Picked-up item should leave the floor")
	}

	e.pickup()
	if !ev.saw("nothing here to pick up") {
		t.Errorf("Expected a nothing-here message, got %v", ev.messages)
	}
}

func TestDescendCarriesProgress(t *testing.T) {
	e, ev := testEngine(t, 5)
	calm(e)
	e.world.Player.Gold = 40
	e.world.Player.Kills = 3
	p := e.world.Player
	e.world.SetTile(p.X, p.Y, TileStairsDown)

	e.descend()
	if e.world.Depth != 2 {
		t.Fatalf("Expected depth 2, got %d", e.world.Depth)
	}
	if e.world.Player.Gold != 40 || e.world.Player.Kills != 3 {
		t.Errorf("Gold and kills should carry down: %+v", e.world.Player)
	}
	if ev.clears != 1 {
		t.Errorf("Descending should clear the display once, got %d", ev.clears)
	}
	if e.turn != 1 {
		t.Errorf("Descending costs a turn, got turn %d", e.turn)
	}
}

func TestDescendNeedsStairs(t *testing.T) {
	e, ev := testEngine(t, 5)
	calm(e)
	p := e.world.Player
	e.world.SetTile(p.X, p.Y, TileFloor)

	e.descend()
	if e.world.Depth != 1 {
		t.Errorf("No stairs, no descent: depth %d", e.world.Depth)
	}
	if !ev.saw("can't go down here") {
		t.Errorf("Expected a refusal, got %v", ev.messages)
	}
}

func TestPromptedOpenConsumesDirectionByte(t *testing.T) {
	e, _ := testEngine(t, 5)
	calm(e)
	p := e.world.Player
	e.world.SetTile(p.X+1, p.Y, TileDoorClosed)

	// The answer byte is already buffered when the prompt starts.
	e.PushInput('l')
	if err := e.command('o'); err != nil {
		t.Fatalf("command('o') failed: %v", err)
	}
	if e.world.TileAt(p.X+1, p.Y) != TileDoorOpen {
		t.Error("Prompted open should have opened the east door")
	}
	if e.turn != 1 {
		t.Errorf("A completed prompt costs a turn, got %d", e.turn)
	}
}

func TestPromptEscapeCancels(t *testing.T) {
	e, ev := testEngine(t, 5)
	calm(e)
	p := e.world.Player
	e.world.SetTile(p.X+1, p.Y, TileDoorClosed)

	e.PushInput(KeyEscape)
	if err := e.command('o'); err != nil {
		t.Fatalf("command('o') failed: %v", err)
	}
	if e.world.TileAt(p.X+1, p.Y) != TileDoorClosed {
		t.Error("Cancelled prompt must not touch the door")
	}
	if e.turn != 0 {
		t.Errorf("A cancelled prompt costs nothing, got turn %d", e.turn)
	}
	if !ev.saw("Never mind") {
		t.Errorf("Expected a cancel message, got %v", ev.messages)
	}
}

func TestDeathTearsDown(t *testing.T) {
	e, ev := testEngine(t, 5)
	calm(e)
	e.world.Player.HP = 0

	err := e.checkTerminal()
	if !errors.Is(err, ErrPlayerDied) {
		t.Fatalf("Expected ErrPlayerDied, got %v", err)
	}
	if !e.TornDown() {
		t.Error("Death should free the dynamic objects")
	}
	if !ev.saw("You die") {
		t.Errorf("Expected a death message, got %v", ev.messages)
	}

	// The final state stays observable for session records.
	obs := e.Observe()
	if obs.Status.HP != 0 {
		t.Errorf("Observe after teardown should keep the last state, got %+v", obs)
	}
}

func TestRunQuit(t *testing.T) {
	e, _ := testEngine(t, 5)
	calm(e)

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	if !e.PushInput('Q') {
		t.Fatal("PushInput('Q') rejected")
	}
	select {
	case err := <-done:
		if !errors.Is(err, ErrQuit) {
			t.Fatalf("Expected ErrQuit, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit after quit")
	}
}

func TestStopUnblocksRun(t *testing.T) {
	e, _ := testEngine(t, 5)
	calm(e)

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	e.Stop()
	select {
	case err := <-done:
		if !errors.Is(err, ErrStopped) {
			t.Fatalf("Expected ErrStopped, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit after Stop")
	}
}

// stopWhenDrained serves its actions, then asks the engine to stop.
type stopWhenDrained struct {
	e       *Engine
	actions []QueuedAction
}

func (p *stopWhenDrained) Take() (QueuedAction, bool) {
	if len(p.actions) > 0 {
		qa := p.actions[0]
		p.actions = p.actions[1:]
		return qa, true
	}
	p.e.Stop()
	return QueuedAction{}, false
}

func TestRunConsumesPendingBeforeBlocking(t *testing.T) {
	ev := &recEvents{}
	cfg := DefaultConfig()
	cfg.Seed = 5
	pending := &stopWhenDrained{actions: []QueuedAction{
		{Kind: ActionKick, Dir: core.Delta{DX: 1}},
	}}
	e := New(cfg, arena.New(1<<18), log.New(io.Discard), ev, pending, nil)
	pending.e = e
	if err := e.Generate(); err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	calm(e)

	// The injected kick runs without any keyboard input; the next poll of
	// the empty pending source stops the loop.
	err := e.Run()
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("Expected ErrStopped, got %v", err)
	}
	if e.Turn() != 1 {
		t.Errorf("Injected action should complete one turn, got %d", e.Turn())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	e, _ := testEngine(t, 11)
	calm(e)
	e.world.Player.Gold = 77
	e.world.Player.Kills = 2
	e.endTurn()
	e.endTurn()

	var state, mem bytes.Buffer
	if err := e.SaveState(&state); err != nil {
		t.Fatalf("SaveState() failed: %v", err)
	}
	if _, err := e.mem.WriteTo(&mem); err != nil {
		t.Fatalf("WriteTo() failed: %v", err)
	}
	want := e.Observe()

	// A brand-new engine over a brand-new arena.
	mem2 := arena.New(1 << 18)
	if _, err := mem2.ReadFrom(bytes.NewReader(mem.Bytes())); err != nil {
		t.Fatalf("ReadFrom() failed: %v", err)
	}
	e2 := New(DefaultConfig(), mem2, log.New(io.Discard), &recEvents{}, &slicePending{}, nil)
	if err := e2.LoadState(&state); err != nil {
		t.Fatalf("LoadState() failed: %v", err)
	}

	got := e2.Observe()
	if got != want {
		t.Errorf("Round trip changed the observable state:\n got %+v\nwant %+v", got, want)
	}

	// Terrain is readable through the restored offsets.
	for y := 0; y < e2.world.H; y++ {
		for x := 0; x < e2.world.W; x++ {
			if e2.world.TileAt(x, y) != e.world.TileAt(x, y) {
				t.Fatalf("Terrain differs at (%d,%d) after restore", x, y)
			}
		}
	}
}

func TestLoadStateRejectsGarbage(t *testing.T) {
	e := New(DefaultConfig(), arena.New(1<<18), log.New(io.Discard), &recEvents{}, &slicePending{}, nil)
	if err := e.LoadState(strings.NewReader("definitely not gob")); err == nil {
		t.Error("LoadState should reject a garbage stream")
	}
	if e.world != nil {
		t.Error("Failed load must not leave a half-built world")
	}
}

func TestSaveStateNeedsWorld(t *testing.T) {
	e := New(DefaultConfig(), arena.New(1<<18), log.New(io.Discard), &recEvents{}, &slicePending{}, nil)
	var buf bytes.Buffer
	if err := e.SaveState(&buf); err == nil {
		t.Error("SaveState without a world should fail")
	}
}
