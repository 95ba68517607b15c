package engine

import (
	"math/rand"

	"github.com/vovakirdan/tui-rogue/internal/arena"
	"github.com/vovakirdan/tui-rogue/internal/core"
)

// Tile is the terrain byte stored in the arena region.
type Tile byte

const (
	TileRock Tile = iota
	TileWall
	TileFloor
	TileCorridor
	TileDoorClosed
	TileDoorOpen
	TileDoorLocked
	TileDoorBroken
	TileStairsDown
)

// Solid reports whether the tile blocks movement and missiles.
func (t Tile) Solid() bool {
	switch t {
	case TileRock, TileWall, TileDoorClosed, TileDoorLocked:
		return true
	}
	return false
}

// Glyph returns the display rune for a tile.
func (t Tile) Glyph() (rune, core.Color) {
	switch t {
	case TileWall:
		return '#', core.ColorGray
	case TileFloor:
		return '.', core.ColorDefault
	case TileCorridor:
		return '·', core.ColorGray
	case TileDoorClosed, TileDoorLocked:
		return '+', core.ColorYellow
	case TileDoorOpen, TileDoorBroken:
		return '\'', core.ColorYellow
	case TileStairsDown:
		return '>', core.ColorBrightWhite
	default:
		return ' ', core.ColorDefault
	}
}

// Player is the player-controlled actor.
type Player struct {
	X, Y  int
	HP    int
	MaxHP int
	Gold  int
	Kills int
}

// Monster is a hostile actor wandering the level.
type Monster struct {
	X, Y  int
	HP    int
	Glyph rune
	Name  string
}

// Item is something lying on the floor.
type Item struct {
	X, Y  int
	Glyph rune
	Name  string
	Gold  int
}

// World holds the dynamic objects of one dungeon level plus offsets into
// the arena region where the terrain and exploration bytes live. The
// offsets are only meaningful against the arena they were allocated from;
// a restored world must be paired with its restored arena.
type World struct {
	W, H  int
	Depth int

	// Arena-backed bulk state.
	terrainOff  int
	exploredOff int

	Player   Player
	Monsters []*Monster
	Items    []*Item

	mem *arena.Arena
	rng *rand.Rand
}

var monsterCatalog = []struct {
	glyph rune
	name  string
	hp    int
}{
	{'r', "sewer rat", 2},
	{'b', "bat", 2},
	{'k', "kobold", 4},
	{'o', "orc", 6},
	{'z', "zombie", 5},
}

// NewWorld carves a rooms-and-corridors level into freshly allocated arena
// regions and populates it with monsters and items.
func NewWorld(mem *arena.Arena, rng *rand.Rand, w, h, depth, monsters int) (*World, error) {
	terrainOff, err := mem.Alloc(w * h)
	if err != nil {
		return nil, err
	}
	exploredOff, err := mem.Alloc(w * h)
	if err != nil {
		return nil, err
	}

	world := &World{
		W:           w,
		H:           h,
		Depth:       depth,
		terrainOff:  terrainOff,
		exploredOff: exploredOff,
		mem:         mem,
		rng:         rng,
	}
	world.generate(monsters)
	return world, nil
}

// Rebind reattaches a deserialized world to the arena and RNG it must run
// against. Called after a snapshot restore, once the arena bytes are in
// place; the stored offsets resolve into the restored region.
func (w *World) Rebind(mem *arena.Arena, rng *rand.Rand) {
	w.mem = mem
	w.rng = rng
}

func (w *World) terrain() []byte {
	return w.mem.Bytes(w.terrainOff, w.W*w.H)
}

func (w *World) explored() []byte {
	return w.mem.Bytes(w.exploredOff, w.W*w.H)
}

// TileAt returns the terrain at (x, y), TileRock outside the map.
func (w *World) TileAt(x, y int) Tile {
	if x < 0 || x >= w.W || y < 0 || y >= w.H {
		return TileRock
	}
	return Tile(w.terrain()[y*w.W+x])
}

// SetTile overwrites the terrain at (x, y). Out-of-bounds writes are ignored.
func (w *World) SetTile(x, y int, t Tile) {
	if x < 0 || x >= w.W || y < 0 || y >= w.H {
		return
	}
	w.terrain()[y*w.W+x] = byte(t)
}

// MarkExplored records that the player has seen (x, y).
func (w *World) MarkExplored(x, y int) {
	if x < 0 || x >= w.W || y < 0 || y >= w.H {
		return
	}
	w.explored()[y*w.W+x] = 1
}

// Explored reports whether (x, y) has been seen this session.
func (w *World) Explored(x, y int) bool {
	if x < 0 || x >= w.W || y < 0 || y >= w.H {
		return false
	}
	return w.explored()[y*w.W+x] != 0
}

// MonsterAt returns the monster occupying (x, y), or nil.
func (w *World) MonsterAt(x, y int) *Monster {
	for _, m := range w.Monsters {
		if m.X == x && m.Y == y {
			return m
		}
	}
	return nil
}

// ItemAt returns the topmost item at (x, y), or nil.
func (w *World) ItemAt(x, y int) *Item {
	for _, it := range w.Items {
		if it.X == x && it.Y == y {
			return it
		}
	}
	return nil
}

// RemoveMonster deletes a monster from the level.
func (w *World) RemoveMonster(m *Monster) {
	for i, cur := range w.Monsters {
		if cur == m {
			w.Monsters = append(w.Monsters[:i], w.Monsters[i+1:]...)
			return
		}
	}
}

// RemoveItem deletes an item from the level.
func (w *World) RemoveItem(it *Item) {
	for i, cur := range w.Items {
		if cur == it {
			w.Items = append(w.Items[:i], w.Items[i+1:]...)
			return
		}
	}
}

// generate carves rooms, connects them with corridors, and places doors,
// stairs, monsters, and items.
func (w *World) generate(monsters int) {
	var rooms []core.Rect

	attempts := 0
	for len(rooms) < 6 && attempts < 200 {
		attempts++
		rw := 5 + w.rng.Intn(8)
		rh := 4 + w.rng.Intn(4)
		rx := 1 + w.rng.Intn(core.Max(1, w.W-rw-2))
		ry := 1 + w.rng.Intn(core.Max(1, w.H-rh-2))
		room := core.NewRect(rx, ry, rw, rh)

		overlaps := false
		for _, other := range rooms {
			grown := core.NewRect(other.X-1, other.Y-1, other.W+2, other.H+2)
			if room.Intersects(grown) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		rooms = append(rooms, room)
		w.carveRoom(room)
	}

	for i := 1; i < len(rooms); i++ {
		ax, ay := rooms[i-1].Center()
		bx, by := rooms[i].Center()
		w.carveCorridor(ax, ay, bx, by)
	}

	// Player starts in the first room, stairs land in the last.
	if len(rooms) > 0 {
		px, py := rooms[0].Center()
		w.Player = Player{X: px, Y: py, HP: 14 + w.Depth, MaxHP: 14 + w.Depth}

		sx, sy := rooms[len(rooms)-1].Center()
		w.SetTile(sx, sy, TileStairsDown)
	}

	for i := 0; i < monsters && len(rooms) > 1; i++ {
		room := rooms[1+w.rng.Intn(len(rooms)-1)]
		mx := room.X + 1 + w.rng.Intn(core.Max(1, room.W-2))
		my := room.Y + 1 + w.rng.Intn(core.Max(1, room.H-2))
		if w.MonsterAt(mx, my) != nil || w.TileAt(mx, my) != TileFloor {
			continue
		}
		kind := monsterCatalog[w.rng.Intn(len(monsterCatalog))]
		hp := kind.hp + w.Depth/2
		w.Monsters = append(w.Monsters, &Monster{X: mx, Y: my, HP: hp, Glyph: kind.glyph, Name: kind.name})
	}

	for i := 0; i < len(rooms); i++ {
		if w.rng.Intn(2) == 0 {
			continue
		}
		room := rooms[i]
		ix := room.X + 1 + w.rng.Intn(core.Max(1, room.W-2))
		iy := room.Y + 1 + w.rng.Intn(core.Max(1, room.H-2))
		if w.TileAt(ix, iy) != TileFloor || w.ItemAt(ix, iy) != nil {
			continue
		}
		w.Items = append(w.Items, &Item{X: ix, Y: iy, Glyph: '$', Name: "gold pieces", Gold: 5 + w.rng.Intn(20)})
	}
}

func (w *World) carveRoom(r core.Rect) {
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			onEdge := x == r.X || x == r.Right()-1 || y == r.Y || y == r.Bottom()-1
			if onEdge {
				w.SetTile(x, y, TileWall)
			} else {
				w.SetTile(x, y, TileFloor)
			}
		}
	}
}

// carveCorridor digs an L-shaped corridor; walls it passes through become
// closed doors, occasionally locked.
func (w *World) carveCorridor(ax, ay, bx, by int) {
	x, y := ax, ay
	for x != bx {
		x += sign(bx - x)
		w.dig(x, y)
	}
	for y != by {
		y += sign(by - y)
		w.dig(x, y)
	}
}

func (w *World) dig(x, y int) {
	switch w.TileAt(x, y) {
	case TileWall:
		if w.rng.Intn(5) == 0 {
			w.SetTile(x, y, TileDoorLocked)
		} else {
			w.SetTile(x, y, TileDoorClosed)
		}
	case TileRock:
		w.SetTile(x, y, TileCorridor)
	}
}
