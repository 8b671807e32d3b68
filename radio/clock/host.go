// Package clock provides a free-running counter for hosts without a radio
// timer, driving compare interrupts from the Go runtime.
package clock

import (
	"sync"
	"time"

	"github.com/rigado/blerf/radio/coproc"
	"github.com/rigado/blerf/radio/timer"
)

type compare struct {
	gen uint64
	t   *time.Timer
}

// Host is a 32 bit counter at a fixed rate on top of the monotonic clock. It
// implements timer.Hardware; compare matches are delivered on a runtime
// timer goroutine, so the handler must serialize them, e.g. with
// coproc.Locked.
type Host struct {
	rate   timer.Rate
	origin int64

	mu  sync.Mutex
	cmp map[int]*compare
	gen uint64
	isr coproc.CompareHandler
}

// NewHost returns a counter at rate starting at zero now.
func NewHost(rate timer.Rate) (*Host, error) {
	origin, err := monotonic()
	if err != nil {
		return nil, err
	}
	return &Host{
		rate:   rate,
		origin: origin,
		cmp:    make(map[int]*compare),
	}, nil
}

// Attach routes compare matches to isr.
func (h *Host) Attach(isr coproc.CompareHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isr = isr
}

// Rate is the counter frequency.
func (h *Host) Rate() timer.Rate {
	return h.rate
}

// Now implements timer.Hardware.
func (h *Host) Now() uint32 {
	ns, err := monotonic()
	if err != nil {
		return 0
	}
	return h.ticks(ns - h.origin)
}

func (h *Host) ticks(ns int64) uint32 {
	s, rem := uint64(ns)/1e9, uint64(ns)%1e9
	return uint32(s*uint64(h.rate) + rem*uint64(h.rate)/1e9)
}

// SetCompare implements timer.Hardware. A deadline behind the counter is
// taken as a full wrap ahead, as the hardware would.
func (h *Host) SetCompare(ch int, ticks uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stop(ch)

	d := ticks - h.Now()
	wait := time.Duration(uint64(d) * 1e9 / uint64(h.rate))

	h.gen++
	c := &compare{gen: h.gen}
	gen := c.gen
	c.t = time.AfterFunc(wait, func() { h.fire(ch, gen) })
	h.cmp[ch] = c
}

// ClearCompare implements timer.Hardware.
func (h *Host) ClearCompare(ch int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stop(ch)
}

// Close stops every pending compare.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.cmp {
		h.stop(ch)
	}
}

func (h *Host) stop(ch int) {
	if c, ok := h.cmp[ch]; ok {
		c.t.Stop()
		delete(h.cmp, ch)
	}
}

// fire drops matches of a compare that was replaced or cleared after its
// runtime timer already expired.
func (h *Host) fire(ch int, gen uint64) {
	h.mu.Lock()
	c, ok := h.cmp[ch]
	if !ok || c.gen != gen {
		h.mu.Unlock()
		return
	}
	delete(h.cmp, ch)
	isr := h.isr
	h.mu.Unlock()

	if isr != nil {
		isr.HandleCompare(ch)
	}
}
