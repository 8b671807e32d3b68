package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/rigado/blerf/radio/timer"
)

type compares struct {
	mu  sync.Mutex
	chs []int
	c   chan int
}

func (c *compares) HandleCompare(ch int) {
	c.mu.Lock()
	c.chs = append(c.chs, ch)
	c.mu.Unlock()
	c.c <- ch
}

func TestHostCounts(t *testing.T) {
	h, err := NewHost(timer.Rate32KHz)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}

	a := h.Now()
	time.Sleep(20 * time.Millisecond)
	b := h.Now()
	if d := b - a; d < timer.Rate32KHz.Ticks(15000) {
		t.Fatalf("counter advanced %v ticks in 20ms", d)
	}
}

func TestHostTicks(t *testing.T) {
	h := &Host{rate: timer.Rate4MHz}
	if got := h.ticks(1500 * int64(time.Millisecond)); got != 6000000 {
		t.Fatalf("ticks %v, want 6000000", got)
	}
	// well past the point a plain ns*rate product overflows
	want := uint64(3000) * 4000000
	if got := h.ticks(3000 * int64(time.Second)); got != uint32(want) {
		t.Fatalf("ticks %v, want %v", got, uint32(want))
	}
}

func TestHostCompare(t *testing.T) {
	h, err := NewHost(timer.Rate32KHz)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	defer h.Close()

	c := &compares{c: make(chan int, 4)}
	h.Attach(c)

	h.SetCompare(1, h.Now()+timer.Rate32KHz.Ticks(200000))
	h.ClearCompare(1)
	h.SetCompare(0, h.Now()+timer.Rate32KHz.Ticks(5000))
	h.SetCompare(0, h.Now()+timer.Rate32KHz.Ticks(10000))

	select {
	case ch := <-c.c:
		if ch != 0 {
			t.Fatalf("unexpected channel %v", ch)
		}
	case <-time.After(time.Second):
		t.Fatalf("compare never fired")
	}

	time.Sleep(50 * time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.chs) != 1 {
		t.Fatalf("expected 1 compare, got %v", c.chs)
	}
}
