// Package connection keeps the timing of a slave role connection on top of a
// radio.Radio, following the master's observed transmit times instead of the
// nominal schedule.
package connection

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rigado/blerf"
	"github.com/rigado/blerf/radio"
	"github.com/rigado/blerf/radio/cmd"
)

// ErrLost is returned by Schedule once the supervision limit was reached.
var ErrLost = errors.New("connection: supervision timeout")

// Config describes a connection as agreed in the connect request. Times are
// in counter ticks.
type Config struct {
	Handle   uint16
	Interval uint32
	Window   uint32

	// SupervisionEvents is how many consecutive events may be missed.
	// Zero selects SupervisionEventsDefault.
	SupervisionEvents int

	// Policy selects which outcomes resync the anchor. Nil selects
	// DefaultAnchorPolicy.
	Policy AnchorPolicy

	Logger blerf.Logger
}

// Summary is what one finished connection event amounted to.
type Summary struct {
	Counter  uint16
	Expected uint32
	Anchor   uint32
	Anchored bool
	Missed   int
	Status   radio.Status
}

// Slave drives the connection events of one slave role connection. Schedule
// runs in the scheduler context, HandleEvent from the radio's completion
// callback; like the radio it relies on the two never overlapping.
type Slave struct {
	r   *radio.Radio
	log blerf.Logger

	handle      uint16
	anchor      Anchor
	policy      AnchorPolicy
	supervision int

	established bool
	inEvent     bool
	anchored    bool
	eventAt     uint32

	counter uint16
	seq     uint8
	missed  int
	lost    bool

	onEvent func(Summary)
}

// NewSlave returns the slave side of a connection on r.
func NewSlave(r *radio.Radio, c Config) (*Slave, error) {
	switch {
	case r == nil:
		return nil, fmt.Errorf("nil radio")
	case c.Interval == 0:
		return nil, fmt.Errorf("invalid interval %v", c.Interval)
	case c.Window == 0 || c.Window >= c.Interval:
		return nil, fmt.Errorf("invalid window %v (interval %v)", c.Window, c.Interval)
	}

	s := &Slave{
		r:           r,
		handle:      c.Handle,
		policy:      c.Policy,
		supervision: c.SupervisionEvents,
		anchor: Anchor{
			Window:   c.Window,
			Interval: c.Interval,
		},
	}
	if s.policy == nil {
		s.policy = DefaultAnchorPolicy
	}
	if s.supervision <= 0 {
		s.supervision = SupervisionEventsDefault
	}

	l := c.Logger
	if l == nil {
		l = blerf.GetLogger()
	}
	s.log = l.ChildLogger(map[string]interface{}{"conn": c.Handle})
	return s, nil
}

// Establish starts the connection from the connect request received at
// ticks. The first event is expected one interval later.
func (s *Slave) Establish(ticks uint32) {
	s.anchor.Ticks = ticks & s.r.Timers().Mask()
	s.anchor.FirstPacket = true
	s.established = true
	s.inEvent = false
	s.counter = 0
	s.seq = 0
	s.missed = 0
	s.lost = false
	s.log.Debugf("established at %v", s.anchor.Ticks)
}

// OnEvent registers a callback run at the end of each connection event.
func (s *Slave) OnEvent(cb func(Summary)) {
	s.onEvent = cb
}

// Anchor returns the current timing.
func (s *Slave) Anchor() Anchor {
	return s.anchor
}

// Next is the expected start of the next event.
func (s *Slave) Next() uint32 {
	return s.r.Timers().Add(s.anchor.Ticks, s.anchor.Interval*uint32(s.missed+1))
}

// Counter is the connection event counter.
func (s *Slave) Counter() uint16 {
	return s.counter
}

// Missed is the number of events in a row without a frame from the master.
func (s *Slave) Missed() int {
	return s.missed
}

// Lost reports whether the supervision limit was reached.
func (s *Slave) Lost() bool {
	return s.lost
}

// Send queues pdu as the answer of the next event. Without it an empty PDU
// is sent.
func (s *Slave) Send(pdu []byte) error {
	return s.r.SetTxPayload(pdu)
}

// Schedule posts the next connection event: a receive at the next anchor
// with its guard at the end of the window, and the answer chained one IFS
// after the master's frame.
func (s *Slave) Schedule() error {
	if !s.established {
		return errors.New("connection: not established")
	}
	if s.lost {
		return ErrLost
	}
	if s.inEvent {
		return radio.ErrBusy
	}

	next := s.Next()
	w := s.anchor.window()

	s.r.Select(&cmd.SlaveEventOp{
		Handle:     s.handle,
		WindowTick: w,
		SeqNum:     s.seq,
	})
	s.r.ArmTimeout(s.r.Timers().Add(next, w))
	s.r.ArmCapture()
	if _, err := s.r.StartAt(next, 0, false); err != nil {
		return errors.Wrap(err, "can't start event")
	}

	s.inEvent = true
	s.anchored = false
	s.eventAt = next

	if s.r.TxQueue().Len() == 0 {
		if err := s.r.SetTxPayload(emptyPDU); err != nil {
			s.log.Debugf("can't queue empty pdu: %v", err)
		}
	}
	if err := s.r.EnableTx(); err != nil {
		return errors.Wrap(err, "can't chain answer")
	}
	return nil
}

// HandleEvent follows the radio's completions. It returns true when ev
// closed the current connection event.
func (s *Slave) HandleEvent(ev radio.Event) bool {
	if !s.inEvent {
		return false
	}

	if !s.anchored && ev.HasTimestamp && s.policy.Allows(ev.Status) {
		s.anchor.Ticks = ev.Timestamp
		s.anchor.FirstPacket = false
		s.anchored = true
		s.missed = 0
	}

	if !ev.Terminal || ev.Chained {
		return false
	}

	s.inEvent = false
	sum := Summary{
		Counter:  s.counter,
		Expected: s.eventAt,
		Anchored: s.anchored,
		Status:   ev.Status,
	}

	if s.anchored {
		if ev.Status == radio.StatusOK {
			s.seq ^= 1
		}
	} else {
		s.missed++
		s.log.Debugf("event %v missed (%v), %v in a row", s.counter, ev.Status, s.missed)
		if s.missed >= s.supervision {
			s.lost = true
			s.log.Infof("connection lost after %v missed events", s.missed)
		}
	}

	s.counter++
	sum.Anchor = s.anchor.Ticks
	sum.Missed = s.missed
	if s.onEvent != nil {
		s.onEvent(sum)
	}
	return true
}
