// Package core provides fundamental types shared by the engine and the
// bridge layer. It contains no external dependencies (especially no Bubble
// Tea) to keep simulation logic pure and testable.
package core

// Rect represents an axis-aligned rectangle used for dungeon rooms and
// screen regions.
type Rect struct {
	X, Y int // Top-left corner position
	W, H int // Width and height
}

// NewRect creates a new rectangle with the given position and dimensions.
func NewRect(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Right returns the x-coordinate of the right edge.
func (r Rect) Right() int {
	return r.X + r.W
}

// Bottom returns the y-coordinate of the bottom edge.
func (r Rect) Bottom() int {
	return r.Y + r.H
}

// Intersects returns true if this rectangle overlaps with another.
func (r Rect) Intersects(other Rect) bool {
	if r.X >= other.Right() || other.X >= r.Right() {
		return false
	}
	if r.Y >= other.Bottom() || other.Y >= r.Bottom() {
		return false
	}
	return true
}

// Contains returns true if the point (x, y) is inside this rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Center returns the center point of the rectangle.
func (r Rect) Center() (int, int) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Delta is a signed 2D direction vector. Directional commands carry a Delta
// whose components are normally confined to {-1, 0, 1}; ranged commands may
// aim further out.
type Delta struct {
	DX, DY int
}

// IsZero returns true for the self-target direction (0, 0).
func (d Delta) IsZero() bool {
	return d.DX == 0 && d.DY == 0
}

// IsAdjacent returns true if the delta points at most one tile away
// (Chebyshev distance <= 1), excluding the zero delta.
func (d Delta) IsAdjacent() bool {
	if d.IsZero() {
		return false
	}
	return Abs(d.DX) <= 1 && Abs(d.DY) <= 1
}

// InBounds reports whether the delta stays inside a w×h grid when applied
// to the position (x, y).
func (d Delta) InBounds(x, y, w, h int) bool {
	nx, ny := x+d.DX, y+d.DY
	return nx >= 0 && nx < w && ny >= 0 && ny < h
}

// Abs returns the absolute value of an integer.
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Min returns the smaller of two integers.
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two integers.
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
