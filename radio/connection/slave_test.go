package connection

import (
	"testing"

	"github.com/rigado/blerf"
	"github.com/rigado/blerf/radio"
	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/coproc/sim"
	"github.com/rigado/blerf/radio/evt"
)

var masterPDU = []byte{0x01, 0x00}

type fixture struct {
	s    *sim.Sim
	r    *radio.Radio
	sl   *Slave
	sums []Summary
}

func newFixture(t *testing.T, c Config) *fixture {
	t.Helper()

	f := &fixture{s: sim.New(32)}
	var err error
	f.r, err = radio.New(f.s, f.s, blerf.OptLogger(blerf.NopLogger()))
	if err != nil {
		t.Fatalf("new radio: %v", err)
	}
	f.s.Attach(f.r)

	if c.Interval == 0 {
		c.Interval = 4000
	}
	if c.Window == 0 {
		c.Window = 100
	}
	c.Logger = blerf.NopLogger()
	f.sl, err = NewSlave(f.r, c)
	if err != nil {
		t.Fatalf("new slave: %v", err)
	}
	f.sl.OnEvent(func(s Summary) { f.sums = append(f.sums, s) })
	f.r.OnCompletion(func(e radio.Event) { f.sl.HandleEvent(e) })

	f.s.SetNow(1000)
	f.sl.Establish(1000)
	return f
}

func (f *fixture) slaveOp(t *testing.T, i int) *cmd.SlaveEventOp {
	t.Helper()
	ps := f.s.Posts()
	if i >= len(ps) {
		t.Fatalf("no post %v, have %v", i, len(ps))
	}
	op, ok := ps[i].D.Op.(*cmd.SlaveEventOp)
	if !ok {
		t.Fatalf("post %v is %v", i, ps[i].D.Variant())
	}
	return op
}

func TestNewSlaveValidates(t *testing.T) {
	s := sim.New(32)
	r, _ := radio.New(s, s, blerf.OptLogger(blerf.NopLogger()))

	cases := []Config{
		{Interval: 0, Window: 10},
		{Interval: 100, Window: 0},
		{Interval: 100, Window: 100},
	}
	for i, c := range cases {
		if _, err := NewSlave(r, c); err == nil {
			t.Fatalf("case %v: expected error", i)
		}
	}
	if _, err := NewSlave(nil, Config{Interval: 100, Window: 10}); err == nil {
		t.Fatalf("expected error for nil radio")
	}

	sl, _ := NewSlave(r, Config{Interval: 100, Window: 10, Logger: blerf.NopLogger()})
	if err := sl.Schedule(); err == nil {
		t.Fatalf("expected error before establish")
	}
}

func TestAnchorFollowsObservedTime(t *testing.T) {
	f := newFixture(t, Config{Handle: 7})

	if err := f.sl.Schedule(); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if op := f.slaveOp(t, 0); op.WindowTick != 100*WidenFactor || op.Handle != 7 {
		t.Fatalf("unexpected first event %+v", op)
	}
	tr := f.s.Posts()[0].D.Trigger
	if tr.Kind != cmd.AtAbsoluteTick || tr.Ticks != 5000-f.r.Rate().Ticks(radio.RxReadyDelay) {
		t.Fatalf("unexpected trigger %+v", tr)
	}

	// the master's clock runs a little slow
	f.s.Advance(4012)
	f.s.Receive(masterPDU, evt.Trailer{Timestamp: 5012})
	if len(f.sums) != 0 {
		t.Fatalf("event closed before the answer went out")
	}
	f.s.CompleteTx()

	if len(f.sums) != 1 {
		t.Fatalf("expected 1 summary, got %v", len(f.sums))
	}
	sum := f.sums[0]
	if !sum.Anchored || sum.Anchor != 5012 || sum.Expected != 5000 || sum.Missed != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if a := f.sl.Anchor(); a.Ticks != 5012 || a.FirstPacket {
		t.Fatalf("unexpected anchor %+v", a)
	}
	if f.sl.Next() != 9012 {
		t.Fatalf("next anchor %v, want 9012", f.sl.Next())
	}
	if len(f.s.Sent()) != 1 {
		t.Fatalf("answer not sent")
	}

	if err := f.sl.Schedule(); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	op := f.slaveOp(t, 2)
	if op.WindowTick != 100 {
		t.Fatalf("window still widened: %v", op.WindowTick)
	}
	if op.SeqNum != 1 {
		t.Fatalf("sequence number not toggled")
	}
	if tr := f.s.Posts()[2].D.Trigger; tr.Ticks != 9012-f.r.Rate().Ticks(radio.RxReadyDelay) {
		t.Fatalf("next event not on the observed anchor: %v", tr.Ticks)
	}
}

func TestMissedEventsAndSupervision(t *testing.T) {
	f := newFixture(t, Config{SupervisionEvents: 2})

	if err := f.sl.Schedule(); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	f.s.Advance(6000)

	if len(f.sums) != 1 || f.sums[0].Status != radio.StatusTimeout || f.sums[0].Anchored {
		t.Fatalf("unexpected summaries %+v", f.sums)
	}
	if f.sl.Missed() != 1 || f.sl.Next() != 9000 {
		t.Fatalf("missed %v next %v", f.sl.Missed(), f.sl.Next())
	}
	if !f.sl.Anchor().FirstPacket {
		t.Fatalf("first packet flag cleared without a frame")
	}

	if err := f.sl.Schedule(); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	f.s.Advance(4000)

	if !f.sl.Lost() {
		t.Fatalf("supervision limit not reached")
	}
	if err := f.sl.Schedule(); err != ErrLost {
		t.Fatalf("expected ErrLost, got %v", err)
	}
	if f.sl.Counter() != 2 {
		t.Fatalf("unexpected counter %v", f.sl.Counter())
	}
}

func TestAnchorPolicy(t *testing.T) {
	tests := []struct {
		name     string
		policy   AnchorPolicy
		anchored bool
		anchor   uint32
	}{
		{"default", nil, false, 1000},
		{"crc errors move anchor", AnchorPolicy{radio.StatusOK, radio.StatusCRCError}, true, 5020},
	}

	for _, tc := range tests {
		f := newFixture(t, Config{Policy: tc.policy})
		if err := f.sl.Schedule(); err != nil {
			t.Fatalf("%v: schedule: %v", tc.name, err)
		}
		f.s.Advance(4020)
		f.s.Receive(masterPDU, evt.Trailer{Status: evt.StatusCRCErr, Timestamp: 5020})

		if len(f.sums) != 1 {
			t.Fatalf("%v: expected 1 summary, got %v", tc.name, len(f.sums))
		}
		sum := f.sums[0]
		if sum.Status != radio.StatusCRCError || sum.Anchored != tc.anchored || sum.Anchor != tc.anchor {
			t.Fatalf("%v: unexpected summary %+v", tc.name, sum)
		}
		if len(f.s.Sent()) != 0 {
			t.Fatalf("%v: answered a corrupt frame", tc.name)
		}
	}
}

func TestWindowCappedAtHalfInterval(t *testing.T) {
	a := Anchor{Window: 1000, Interval: 4000, FirstPacket: true}
	if w := a.window(); w != 2000 {
		t.Fatalf("window %v, want 2000", w)
	}
	a.FirstPacket = false
	if w := a.window(); w != 1000 {
		t.Fatalf("window %v, want 1000", w)
	}
}
