package timer

import "testing"

type fakeHW struct {
	now     uint32
	compare map[int]uint32
}

func newFakeHW() *fakeHW {
	return &fakeHW{compare: map[int]uint32{}}
}

func (f *fakeHW) Now() uint32                     { return f.now }
func (f *fakeHW) SetCompare(ch int, ticks uint32) { f.compare[ch] = ticks }
func (f *fakeHW) ClearCompare(ch int)             { delete(f.compare, ch) }

// advance moves the counter one tick at a time and fires due compares.
func (f *fakeHW) advance(b *Bank, ticks uint32) {
	for i := uint32(0); i < ticks; i++ {
		f.now = (f.now + 1) & b.Mask()
		for ch, d := range f.compare {
			if d == f.now {
				b.HandleCompare(ch)
			}
		}
	}
}

func TestCompareFiresOnce(t *testing.T) {
	hw := newFakeHW()
	b := NewBank(hw, 2, 24)

	n := 0
	if err := b.Compare(0, 100, func() { n++ }); err != nil {
		t.Fatalf("compare: %v", err)
	}
	hw.advance(b, 99)
	if n != 0 {
		t.Fatalf("fired early")
	}
	hw.advance(b, 200)
	if n != 1 {
		t.Fatalf("expected 1 callback, got %v", n)
	}
	if b.Armed(0) {
		t.Fatalf("channel still armed after firing")
	}
}

func TestRearmReplacesDeadline(t *testing.T) {
	hw := newFakeHW()
	b := NewBank(hw, 1, 24)

	first, second := 0, 0
	b.Compare(0, 50, func() { first++ })
	b.Compare(0, 80, func() { second++ })
	hw.advance(b, 100)

	if first != 0 || second != 1 {
		t.Fatalf("expected only the second deadline to fire, got %v/%v", first, second)
	}
}

func TestDisableIdempotent(t *testing.T) {
	hw := newFakeHW()
	b := NewBank(hw, 1, 24)

	n := 0
	b.Compare(0, 10, func() { n++ })
	b.Disable(0)
	b.Disable(0)
	hw.advance(b, 20)
	b.Disable(0)

	if n != 0 {
		t.Fatalf("disabled channel fired")
	}
}

func TestComparePastIsSkipped(t *testing.T) {
	hw := newFakeHW()
	b := NewBank(hw, 1, 24)
	hw.now = 1000

	n := 0
	if err := b.Compare(0, 900, func() { n++ }); err != ErrPast {
		t.Fatalf("expected ErrPast, got %v", err)
	}
	if err := b.Compare(0, 1000, func() { n++ }); err != ErrPast {
		t.Fatalf("expected ErrPast for now, got %v", err)
	}
	if b.Armed(0) {
		t.Fatalf("past deadline left armed")
	}
}

func TestCompareAcrossWrap(t *testing.T) {
	hw := newFakeHW()
	b := NewBank(hw, 1, 24)
	hw.now = b.Mask() - 10

	n := 0
	deadline := b.Add(hw.now, 20)
	if deadline != 9 {
		t.Fatalf("unexpected wrapped deadline %v", deadline)
	}
	if err := b.Compare(0, deadline, func() { n++ }); err != nil {
		t.Fatalf("wrapped deadline rejected: %v", err)
	}
	hw.advance(b, 25)
	if n != 1 {
		t.Fatalf("wrapped deadline did not fire")
	}
}

func TestDisableAllKeepsWindow(t *testing.T) {
	hw := newFakeHW()
	b := NewBank(hw, 2, 24)

	b.Compare(0, 100, func() {})
	b.StartWindow(1, 10, 5, 20, func(bool) {})
	b.DisableAll()

	if b.Armed(0) {
		t.Fatalf("channel 0 survived DisableAll")
	}
	if !b.Armed(1) {
		t.Fatalf("window channel cancelled by DisableAll")
	}
}

func TestWindowRepeats(t *testing.T) {
	hw := newFakeHW()
	b := NewBank(hw, 1, 24)

	var edges []uint32
	out := func(on bool) {
		edges = append(edges, hw.now)
	}
	if err := b.StartWindow(0, 10, 5, 20, out); err != nil {
		t.Fatalf("start window: %v", err)
	}
	hw.advance(b, 55)
	b.StopWindow(0)
	hw.advance(b, 100)

	exp := []uint32{10, 15, 30, 35, 50, 55}
	if len(edges) != len(exp) {
		t.Fatalf("expected edges %v, got %v", exp, edges)
	}
	for i := range exp {
		if edges[i] != exp[i] {
			t.Fatalf("expected edges %v, got %v", exp, edges)
		}
	}
}

func TestRateConversion(t *testing.T) {
	if v := Rate4MHz.Ticks(150); v != 600 {
		t.Fatalf("150us at 4MHz: %v", v)
	}
	if v := Rate32KHz.Ticks(1); v != 1 {
		t.Fatalf("1us at 32KHz should round up to 1 tick, got %v", v)
	}
	if v := Rate4MHz.Micros(600); v != 150 {
		t.Fatalf("600 ticks at 4MHz: %v", v)
	}
}
