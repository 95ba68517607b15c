// Package bridge sits between the single-goroutine simulation and the
// driver/UI layer. It moves render output across goroutines without locks,
// injects external commands into the simulation's blocking input read, and
// owns the session lifecycle including full arena resets between sessions.
//
// Concurrency model: exactly two logical contexts. The simulation context
// may block inside its own input read; the driver context never blocks.
// Every driver-side call here returns immediately.
package bridge

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-rogue/internal/core"
	"github.com/vovakirdan/tui-rogue/internal/engine"
)

// ElementKind tags a render queue element.
type ElementKind uint8

const (
	// ElemTile updates one map cell.
	ElemTile ElementKind = iota
	// ElemMessage carries a line of text for a named window.
	ElemMessage
	// ElemStatus carries a status-bar snapshot.
	ElemStatus
	// ElemFlush marks the end of a burst of updates.
	ElemFlush
	// ElemClear asks the consumer to wipe its display.
	ElemClear
	// ElemTurnComplete signals that one full command finished.
	ElemTurnComplete
)

// Element is the fixed-size tagged union carried by the render queue.
// Which fields are meaningful depends on Kind; the rest stay zero.
type Element struct {
	Kind ElementKind

	// ElemTile
	X, Y  int
	Glyph rune
	Color core.Color

	// ElemMessage
	Window string
	Text   string

	// ElemStatus
	Status engine.StatusSnapshot

	// ElemTurnComplete
	Turn uint64
}

// dropLogInterval rate-limits queue-full diagnostics.
const dropLogInterval = time.Second

// RenderQueue is a fixed-capacity single-producer/single-consumer ring
// buffer. The simulation goroutine is the only caller of Enqueue; the
// driver goroutine is the only caller of Dequeue. Indices grow
// monotonically and wrap through a power-of-two mask; one slot is kept
// empty so head==tail always means empty.
//
// The store of head after the slot write is what publishes the element:
// the consumer loads head before reading the slot, so it can never observe
// a partially written element.
type RenderQueue struct {
	slots []Element
	mask  uint64

	head atomic.Uint64 // producer-owned
	tail atomic.Uint64 // consumer-owned

	drops       atomic.Uint64
	lastDropLog atomic.Int64
	log         *log.Logger
}

// NewRenderQueue creates a queue with the given capacity, which must be a
// power of two of at least 2. Usable capacity is one less than requested.
func NewRenderQueue(capacity int, logger *log.Logger) (*RenderQueue, error) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("bridge: render queue capacity %d is not a power of two", capacity)
	}
	return &RenderQueue{
		slots: make([]Element, capacity),
		mask:  uint64(capacity - 1),
		log:   logger,
	}, nil
}

// Enqueue publishes one element. Called only from the simulation context.
// Returns false when the queue is full; the element is dropped. Drops are
// harmless because the producer republishes the full render state every
// frame, so a drop delays visual convergence by one tick at most.
func (q *RenderQueue) Enqueue(el Element) bool {
	head := q.head.Load()
	if head-q.tail.Load() >= q.mask { // full: N-1 elements in flight
		q.noteDrop()
		return false
	}
	q.slots[head&q.mask] = el
	q.head.Store(head + 1)
	return true
}

// Dequeue consumes one element. Called only from the driver context.
func (q *RenderQueue) Dequeue() (Element, bool) {
	tail := q.tail.Load()
	if q.head.Load() == tail {
		return Element{}, false
	}
	el := q.slots[tail&q.mask]
	q.tail.Store(tail + 1)
	return el, true
}

// IsEmpty is a non-authoritative snapshot for diagnostics only; the value
// can be stale the instant it is read.
func (q *RenderQueue) IsEmpty() bool {
	return q.head.Load() == q.tail.Load()
}

// Len is a non-authoritative element count for diagnostics only.
func (q *RenderQueue) Len() int {
	return int(q.head.Load() - q.tail.Load())
}

// Capacity returns the number of elements the queue can hold.
func (q *RenderQueue) Capacity() int {
	return len(q.slots) - 1
}

// Drops returns how many elements have been dropped on a full queue.
func (q *RenderQueue) Drops() uint64 {
	return q.drops.Load()
}

func (q *RenderQueue) noteDrop() {
	n := q.drops.Add(1)
	if q.log == nil {
		return
	}
	now := time.Now().UnixNano()
	last := q.lastDropLog.Load()
	if now-last < int64(dropLogInterval) {
		return
	}
	if q.lastDropLog.CompareAndSwap(last, now) {
		q.log.Debug("render queue full, dropping", "total_drops", n)
	}
}

// queueEvents forwards engine render callbacks into the queue. It is the
// producer-side adapter installed on the engine at session start.
type queueEvents struct {
	q *RenderQueue
}

var _ engine.Events = queueEvents{}

func (s queueEvents) Tile(x, y int, glyph rune, color core.Color) {
	s.q.Enqueue(Element{Kind: ElemTile, X: x, Y: y, Glyph: glyph, Color: color})
}

func (s queueEvents) Message(window, text string) {
	s.q.Enqueue(Element{Kind: ElemMessage, Window: window, Text: text})
}

func (s queueEvents) Status(st engine.StatusSnapshot) {
	s.q.Enqueue(Element{Kind: ElemStatus, Status: st})
}

func (s queueEvents) Flush() {
	s.q.Enqueue(Element{Kind: ElemFlush})
}

func (s queueEvents) Clear() {
	s.q.Enqueue(Element{Kind: ElemClear})
}

func (s queueEvents) TurnComplete(turn uint64) {
	s.q.Enqueue(Element{Kind: ElemTurnComplete, Turn: turn})
}
