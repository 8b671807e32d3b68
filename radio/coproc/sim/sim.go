// Package sim is a deterministic stand-in for the radio co-processor and its
// free-running counter. Time only moves in Advance, and interrupts are only
// delivered from Advance and Flush, never from inside a call made by the
// radio, so the radio sees the same ordering it would on hardware.
package sim

import (
	"fmt"

	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/coproc"
	"github.com/rigado/blerf/radio/evt"
)

type op struct {
	h       cmd.Handle
	d       *cmd.Descriptor
	result  cmd.Result
	done    bool
	started uint32
}

type irq struct {
	h cmd.Handle
	m evt.Mask
}

// Post records one Post call.
type Post struct {
	Handle cmd.Handle
	D      *cmd.Descriptor
	At     uint32
	// InISR is set when the post came from inside interrupt delivery.
	InISR bool
}

// Sim implements coproc.Coprocessor and timer.Hardware.
type Sim struct {
	Layout evt.Layout

	isr  coproc.ISR
	now  uint32
	mask uint32

	compare map[int]uint32

	next    cmd.Handle
	ops     map[cmd.Handle]*op
	running *op
	pending []irq
	inISR   bool

	posts    []Post
	cancels  []cmd.Handle
	sent     [][]byte
	compares int
}

// New returns a simulator whose counter wraps at 2^bits.
func New(bits uint) *Sim {
	mask := uint32(0xffffffff)
	if bits > 0 && bits < 32 {
		mask = uint32(1)<<bits - 1
	}
	return &Sim{
		Layout:  evt.DefaultLayout,
		mask:    mask,
		compare: map[int]uint32{},
		ops:     map[cmd.Handle]*op{},
		next:    1,
	}
}

// Attach routes interrupts to isr.
func (s *Sim) Attach(isr coproc.ISR) {
	s.isr = isr
}

// Now implements timer.Hardware.
func (s *Sim) Now() uint32 {
	return s.now
}

// SetNow moves the counter without firing compares.
func (s *Sim) SetNow(t uint32) {
	s.now = t & s.mask
}

// SetCompare implements timer.Hardware.
func (s *Sim) SetCompare(ch int, ticks uint32) {
	s.compare[ch] = ticks & s.mask
}

// ClearCompare implements timer.Hardware.
func (s *Sim) ClearCompare(ch int) {
	delete(s.compare, ch)
}

// CompareArmed reports the deadline of ch, if any.
func (s *Sim) CompareArmed(ch int) (uint32, bool) {
	v, ok := s.compare[ch]
	return v, ok
}

// CompareFired counts compare interrupts delivered.
func (s *Sim) CompareFired() int {
	return s.compares
}

// Post implements coproc.Coprocessor.
func (s *Sim) Post(d *cmd.Descriptor) (cmd.Handle, error) {
	if d == nil {
		return 0, fmt.Errorf("sim: nil descriptor")
	}

	h := s.next
	s.next++

	o := &op{h: h, d: d, started: s.now, result: cmd.Result{Status: cmd.Active}}
	if d.Trigger.Kind == cmd.AtAbsoluteTick {
		o.result.Status = cmd.Pending
	}
	s.ops[h] = o
	s.posts = append(s.posts, Post{Handle: h, D: d, At: s.now, InISR: s.inISR})

	if d.Variant() == cmd.NoOperation {
		s.finish(o, cmd.DoneOK, evt.CommandDone|evt.LastCommandDone)
		return h, nil
	}

	s.running = o
	return h, nil
}

// Cancel implements coproc.Coprocessor.
func (s *Sim) Cancel(h cmd.Handle) error {
	s.cancels = append(s.cancels, h)

	o, ok := s.ops[h]
	if !ok {
		return fmt.Errorf("sim: unknown handle %v", h)
	}
	if o.done {
		return nil
	}
	s.finish(o, cmd.DoneAborted, evt.CommandDone|evt.LastCommandDone)
	return nil
}

// Result implements coproc.Coprocessor.
func (s *Sim) Result(h cmd.Handle) (cmd.Result, error) {
	o, ok := s.ops[h]
	if !ok {
		return cmd.Result{}, fmt.Errorf("sim: unknown handle %v", h)
	}
	return o.result, nil
}

// Posts returns every Post call so far.
func (s *Sim) Posts() []Post {
	return s.posts
}

// Cancels returns every cancelled handle.
func (s *Sim) Cancels() []cmd.Handle {
	return s.cancels
}

// Sent returns the PDUs transmitted from tx queues.
func (s *Sim) Sent() [][]byte {
	return s.sent
}

// Running is the descriptor the hardware is executing.
func (s *Sim) Running() (*cmd.Descriptor, cmd.Handle, bool) {
	if s.running == nil || s.running.done {
		return nil, 0, false
	}
	return s.running.d, s.running.h, true
}

func (s *Sim) finish(o *op, st cmd.HWStatus, m evt.Mask) {
	o.done = true
	o.result.Status = st
	if s.running == o {
		s.running = nil
	}
	s.raise(o.h, m)
}

func (s *Sim) raise(h cmd.Handle, m evt.Mask) {
	s.pending = append(s.pending, irq{h, m})
}

// Flush delivers pending interrupts, including any raised while delivering.
func (s *Sim) Flush() {
	if s.inISR || s.isr == nil {
		return
	}
	for len(s.pending) > 0 {
		i := s.pending[0]
		s.pending = s.pending[1:]

		s.inISR = true
		s.isr.HandleInterrupt(i.h, i.m)
		s.inISR = false
	}
}

// Advance moves the counter forward, firing compares in deadline order and
// delivering the interrupts they cause.
func (s *Sim) Advance(ticks uint32) {
	s.Flush()
	for {
		ch, d, ok := s.nextCompare(ticks)
		if !ok {
			s.now = (s.now + ticks) & s.mask
			return
		}

		ticks -= d
		s.now = (s.now + d) & s.mask
		delete(s.compare, ch)
		s.compares++

		if s.isr != nil {
			s.inISR = true
			s.isr.HandleCompare(ch)
			s.inISR = false
		}
		s.Flush()
	}
}

func (s *Sim) nextCompare(within uint32) (int, uint32, bool) {
	best, bestD, found := 0, uint32(0), false
	for ch, t := range s.compare {
		d := (t - s.now) & s.mask
		if d == 0 || d > within {
			continue
		}
		if !found || d < bestD || d == bestD && ch < best {
			best, bestD, found = ch, d, true
		}
	}
	return best, bestD, found
}
