package bridge

import (
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-rogue/internal/core"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestRenderQueueRejectsBadCapacity(t *testing.T) {
	for _, capacity := range []int{0, 1, 3, 100, 4095} {
		if _, err := NewRenderQueue(capacity, testLogger()); err == nil {
			t.Errorf("NewRenderQueue(%d) should have failed", capacity)
		}
	}
}

func TestRenderQueueFIFO(t *testing.T) {
	q, err := NewRenderQueue(16, testLogger())
	if err != nil {
		t.Fatalf("NewRenderQueue() failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		el := Element{Kind: ElemMessage, Window: "log", Text: fmt.Sprintf("msg-%d", i)}
		if !q.Enqueue(el) {
			t.Fatalf("Enqueue(%d) rejected on a non-full queue", i)
		}
	}

	for i := 0; i < 10; i++ {
		el, ok := q.Dequeue()
		if !ok {
			t.Fatalf("Dequeue(%d) empty before all elements drained", i)
		}
		want := fmt.Sprintf("msg-%d", i)
		if el.Text != want {
			t.Errorf("Expected %q, got %q: order not preserved", want, el.Text)
		}
	}

	if !q.IsEmpty() {
		t.Error("Queue should be empty after draining everything")
	}
}

func TestRenderQueueHoldsCapacityMinusOne(t *testing.T) {
	q, err := NewRenderQueue(4096, testLogger())
	if err != nil {
		t.Fatalf("NewRenderQueue() failed: %v", err)
	}

	accepted := 0
	for i := 0; i < 4096; i++ {
		if q.Enqueue(Element{Kind: ElemTile, X: i}) {
			accepted++
		}
	}

	// One slot stays open so head==tail always means empty.
	if accepted != 4095 {
		t.Errorf("Expected 4095 accepted elements, got %d", accepted)
	}
	if q.Len() != 4095 {
		t.Errorf("Expected Len() of 4095, got %d", q.Len())
	}
	if q.Drops() != 1 {
		t.Errorf("Expected 1 dropped element, got %d", q.Drops())
	}

	// Draining one slot makes room for exactly one more.
	if _, ok := q.Dequeue(); !ok {
		t.Fatal("Dequeue() failed on a full queue")
	}
	if !q.Enqueue(Element{Kind: ElemFlush}) {
		t.Error("Enqueue should succeed after one Dequeue")
	}
}

func TestRenderQueueWrapAround(t *testing.T) {
	q, err := NewRenderQueue(4, testLogger())
	if err != nil {
		t.Fatalf("NewRenderQueue() failed: %v", err)
	}

	// Push and pop enough to lap the ring several times.
	for i := 0; i < 50; i++ {
		if !q.Enqueue(Element{Kind: ElemTile, X: i, Glyph: '@'}) {
			t.Fatalf("Enqueue(%d) rejected with only one element in flight", i)
		}
		el, ok := q.Dequeue()
		if !ok {
			t.Fatalf("Dequeue(%d) came up empty", i)
		}
		if el.X != i {
			t.Errorf("Expected X=%d, got %d", i, el.X)
		}
	}
}

func TestRenderQueueConcurrentProducerConsumer(t *testing.T) {
	q, err := NewRenderQueue(64, testLogger())
	if err != nil {
		t.Fatalf("NewRenderQueue() failed: %v", err)
	}

	const total = 10000
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			for !q.Enqueue(Element{Kind: ElemTile, X: i, Color: core.ColorWhite}) {
				// Consumer will make room.
			}
		}
	}()

	for i := 0; i < total; i++ {
		var el Element
		var ok bool
		for {
			if el, ok = q.Dequeue(); ok {
				break
			}
		}
		if el.X != i {
			t.Fatalf("Expected element %d, got %d: cross-goroutine order broken", i, el.X)
		}
	}
	wg.Wait()

	if !q.IsEmpty() {
		t.Errorf("Expected empty queue after consuming all %d elements", total)
	}
}
