// Package coproc defines the contract between the radio engine and the
// command co-processor that executes descriptors.
package coproc

import (
	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/evt"
)

// Coprocessor executes radio descriptors. None of the calls block on the
// radio; outcomes arrive later as interrupts.
type Coprocessor interface {
	// Post hands d to the hardware. d must stay untouched until the
	// completion naming the returned handle has been dispatched.
	Post(d *cmd.Descriptor) (cmd.Handle, error)

	// Cancel aborts h. Cancelling a finished operation is not an error.
	Cancel(h cmd.Handle) error

	// Result reads the output block of h.
	Result(h cmd.Handle) (cmd.Result, error)
}

// Handler receives completion interrupts in hardware completion order.
type Handler interface {
	HandleInterrupt(h cmd.Handle, m evt.Mask)
}

// CompareHandler receives counter compare-match interrupts.
type CompareHandler interface {
	HandleCompare(ch int)
}

// ISR is everything a radio engine exposes to interrupt context.
type ISR interface {
	Handler
	CompareHandler
}

// Serializer runs fn with interrupt delivery held off. Backends that write
// into a descriptor's queues outside of an interrupt do so through it when
// their Handler provides one.
type Serializer interface {
	Do(fn func())
}
