package connection

import (
	"github.com/rigado/blerf/radio"
)

// Anchor is the timing of a periodic slave connection, in counter ticks.
type Anchor struct {
	// Ticks is the start of the last event whose master frame was seen.
	Ticks uint32
	// Window is how long the receiver listens for the master after the
	// expected anchor before the event is given up.
	Window   uint32
	Interval uint32
	// FirstPacket is set until the first frame of the connection was seen.
	FirstPacket bool
}

// AnchorPolicy lists the event outcomes whose frame time stamp may move the
// anchor. A frame that failed its CRC was still sent by the master at the
// stamped time, so including radio.StatusCRCError trades robustness against
// a corrupt access address match for fewer missed resyncs.
type AnchorPolicy []radio.Status

// DefaultAnchorPolicy only trusts frames that passed their CRC.
var DefaultAnchorPolicy = AnchorPolicy{radio.StatusOK}

// Allows reports whether st may move the anchor.
func (p AnchorPolicy) Allows(st radio.Status) bool {
	for _, s := range p {
		if s == st {
			return true
		}
	}
	return false
}

// window is the receive window of the next event. It is widened on the
// first event and never covers more than half the interval.
func (a Anchor) window() uint32 {
	w := a.Window
	if a.FirstPacket {
		w *= WidenFactor
	}
	if max := a.Interval / 2; w > max {
		w = max
	}
	return w
}
