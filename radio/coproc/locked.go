package coproc

import (
	"sync"

	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/evt"
)

// Locked gives an ISR the mutual exclusion interrupt priority gives it on a
// microcontroller, for hosts where completions, compares and the scheduler
// run on different goroutines. Code run from the ISR, including completion
// callbacks, must not call Do.
type Locked struct {
	mu  sync.Mutex
	isr ISR
}

// NewLocked wraps isr.
func NewLocked(isr ISR) *Locked {
	return &Locked{isr: isr}
}

// HandleInterrupt implements Handler.
func (l *Locked) HandleInterrupt(h cmd.Handle, m evt.Mask) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.isr.HandleInterrupt(h, m)
}

// HandleCompare implements CompareHandler.
func (l *Locked) HandleCompare(ch int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.isr.HandleCompare(ch)
}

// Do runs fn with interrupts held off.
func (l *Locked) Do(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}
