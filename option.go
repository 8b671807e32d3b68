package blerf

import (
	"github.com/rigado/blerf/radio/evt"
	"github.com/rigado/blerf/radio/timer"
)

// DeviceOption is an interface which the radio should implement to allow using configuration options
type DeviceOption interface {
	SetName(string) error
	SetLogger(Logger) error
	SetTickRate(timer.Rate) error
	SetCounterBits(uint) error
	SetMinStartOffset(us uint32) error
	SetIFS(us uint32) error
	SetReadyDelay(txUs, rxUs uint32) error
	SetLayout(evt.Layout) error
	SetRxQueue(n, size int) error
	SetTxQueue(n, size int) error
	SetErrorHandler(handler func(error)) error
}

// An Option is a configuration function, which configures the radio.
type Option func(DeviceOption) error

// OptName tags log output of the radio.
func OptName(name string) Option {
	return func(opt DeviceOption) error {
		return opt.SetName(name)
	}
}

// OptLogger replaces the default logger.
func OptLogger(l Logger) Option {
	return func(opt DeviceOption) error {
		return opt.SetLogger(l)
	}
}

// OptTickRate sets the frequency of the free-running counter.
func OptTickRate(r timer.Rate) Option {
	return func(opt DeviceOption) error {
		return opt.SetTickRate(r)
	}
}

// OptCounterBits sets the counter width; deadlines wrap at 2^bits.
func OptCounterBits(bits uint) Option {
	return func(opt DeviceOption) error {
		return opt.SetCounterBits(bits)
	}
}

// OptMinStartOffset sets how far ahead a start must be to use an absolute
// trigger instead of starting at once.
func OptMinStartOffset(us uint32) Option {
	return func(opt DeviceOption) error {
		return opt.SetMinStartOffset(us)
	}
}

// OptIFS sets the inter frame spacing used for chained operations.
func OptIFS(us uint32) Option {
	return func(opt DeviceOption) error {
		return opt.SetIFS(us)
	}
}

// OptReadyDelay sets the tx and rx ramp-up times.
func OptReadyDelay(txUs, rxUs uint32) Option {
	return func(opt DeviceOption) error {
		return opt.SetReadyDelay(txUs, rxUs)
	}
}

// OptLayout sets which trailer fields the hardware appends to rx entries.
func OptLayout(l evt.Layout) Option {
	return func(opt DeviceOption) error {
		return opt.SetLayout(l)
	}
}

// OptRxQueue sets the rx ring geometry.
func OptRxQueue(n, size int) Option {
	return func(opt DeviceOption) error {
		return opt.SetRxQueue(n, size)
	}
}

// OptTxQueue sets the tx ring geometry.
func OptTxQueue(n, size int) Option {
	return func(opt DeviceOption) error {
		return opt.SetTxQueue(n, size)
	}
}

// OptErrorHandler sets error handler
func OptErrorHandler(handler func(error)) Option {
	return func(opt DeviceOption) error {
		return opt.SetErrorHandler(handler)
	}
}
