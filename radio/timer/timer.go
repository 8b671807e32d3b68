package timer

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrPast is returned when a deadline has already elapsed at the time it is
// armed. The channel is left disarmed instead of firing immediately.
var ErrPast = errors.New("timer: deadline already past")

// Hardware is a free-running counter with one compare register per channel.
// A compare match must end up in Bank.HandleCompare for that channel.
type Hardware interface {
	Now() uint32
	SetCompare(ch int, ticks uint32)
	ClearCompare(ch int)
}

// Callback runs on the compare interrupt. It must not block.
type Callback func()

type channel struct {
	armed      bool
	deadline   uint32
	cb         Callback
	persistent bool
	win        *window
}

// Bank binds absolute tick deadlines to one-shot callbacks. Each channel holds
// at most one outstanding deadline; arming again replaces it.
type Bank struct {
	hw   Hardware
	mask uint32
	ch   []channel
}

// NewBank returns a bank of n channels on a counter that wraps at 2^bits.
func NewBank(hw Hardware, n int, bits uint) *Bank {
	mask := uint32(0xffffffff)
	if bits > 0 && bits < 32 {
		mask = uint32(1)<<bits - 1
	}
	return &Bank{
		hw:   hw,
		mask: mask,
		ch:   make([]channel, n),
	}
}

// Now reads the counter, masked to its width.
func (b *Bank) Now() uint32 {
	return b.hw.Now() & b.mask
}

// Mask is the counter wrap mask.
func (b *Bank) Mask() uint32 {
	return b.mask
}

// Add returns t+d modulo the counter width.
func (b *Bank) Add(t, d uint32) uint32 {
	return (t + d) & b.mask
}

// Diff returns how many ticks t is ahead of ref, modulo the counter width.
// Values above half the range mean t is behind ref.
func (b *Bank) Diff(t, ref uint32) uint32 {
	return (t - ref) & b.mask
}

// Past reports whether t is at or behind ref.
func (b *Bank) Past(t, ref uint32) bool {
	d := b.Diff(t, ref)
	return d == 0 || d > b.mask>>1
}

// Compare arms ch to call cb when the counter reaches deadline.
func (b *Bank) Compare(ch int, deadline uint32, cb Callback) error {
	c, err := b.channel(ch)
	if err != nil {
		return err
	}

	deadline &= b.mask
	if b.Past(deadline, b.Now()) {
		b.disable(ch, c)
		return ErrPast
	}

	c.armed = true
	c.deadline = deadline
	c.cb = cb
	b.hw.SetCompare(ch, deadline)
	return nil
}

// Armed reports whether ch holds an outstanding deadline.
func (b *Bank) Armed(ch int) bool {
	c, err := b.channel(ch)
	if err != nil {
		return false
	}
	return c.armed
}

// Deadline returns the armed deadline of ch.
func (b *Bank) Deadline(ch int) (uint32, bool) {
	c, err := b.channel(ch)
	if err != nil || !c.armed {
		return 0, false
	}
	return c.deadline, true
}

// Disable cancels ch. Disabling an idle or already fired channel is a no-op.
func (b *Bank) Disable(ch int) {
	c, err := b.channel(ch)
	if err != nil {
		return
	}
	b.disable(ch, c)
}

// DisableAll cancels every channel except running output windows.
func (b *Bank) DisableAll() {
	for i := range b.ch {
		if b.ch[i].persistent {
			continue
		}
		b.disable(i, &b.ch[i])
	}
}

func (b *Bank) disable(ch int, c *channel) {
	if c.armed {
		b.hw.ClearCompare(ch)
	}
	c.armed = false
	c.cb = nil
}

// HandleCompare is the compare-match interrupt entry for ch. A match on a
// disarmed channel, one that raced a Disable, is ignored.
func (b *Bank) HandleCompare(ch int) {
	c, err := b.channel(ch)
	if err != nil || !c.armed {
		return
	}

	cb := c.cb
	c.armed = false
	c.cb = nil
	b.hw.ClearCompare(ch)

	if cb != nil {
		cb()
	}
}

func (b *Bank) channel(ch int) (*channel, error) {
	if ch < 0 || ch >= len(b.ch) {
		return nil, fmt.Errorf("timer: invalid channel %v", ch)
	}
	return &b.ch[ch], nil
}
