package timer

import "fmt"

type window struct {
	begin    uint32
	duration uint32
	interval uint32
	out      func(on bool)
	on       bool
}

// StartWindow drives out high for [begin, begin+duration) and repeats every
// interval ticks. The channel re-arms itself from its own callback until
// StopWindow is called.
func (b *Bank) StartWindow(ch int, begin, duration, interval uint32, out func(on bool)) error {
	c, err := b.channel(ch)
	if err != nil {
		return err
	}
	if duration == 0 || duration >= interval {
		return fmt.Errorf("timer: invalid window %v/%v", duration, interval)
	}

	b.disable(ch, c)
	c.persistent = true
	c.win = &window{
		begin:    begin & b.mask,
		duration: duration,
		interval: interval,
		out:      out,
	}

	// skip whole periods already behind us
	for b.Past(c.win.begin, b.Now()) {
		c.win.begin = b.Add(c.win.begin, interval)
	}

	return b.Compare(ch, c.win.begin, func() { b.windowEdge(ch) })
}

// StopWindow stops a running window and drives its output low.
func (b *Bank) StopWindow(ch int) {
	c, err := b.channel(ch)
	if err != nil || c.win == nil {
		return
	}

	w := c.win
	c.persistent = false
	c.win = nil
	b.disable(ch, c)
	if w.on && w.out != nil {
		w.out(false)
	}
}

func (b *Bank) windowEdge(ch int) {
	c := &b.ch[ch]
	w := c.win
	if w == nil {
		return
	}

	var next uint32
	if !w.on {
		w.on = true
		next = b.Add(w.begin, w.duration)
	} else {
		w.on = false
		w.begin = b.Add(w.begin, w.interval)
		next = w.begin
	}
	if w.out != nil {
		w.out(w.on)
	}

	if err := b.Compare(ch, next, func() { b.windowEdge(ch) }); err != nil {
		// the edge was missed, fall in line with the next period
		if w.on {
			w.on = false
			if w.out != nil {
				w.out(false)
			}
		}
		for b.Past(w.begin, b.Now()) {
			w.begin = b.Add(w.begin, w.interval)
		}
		_ = b.Compare(ch, w.begin, func() { b.windowEdge(ch) })
	}
}
