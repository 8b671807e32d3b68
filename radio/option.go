package radio

import (
	"fmt"

	"github.com/rigado/blerf"
	"github.com/rigado/blerf/radio/evt"
	"github.com/rigado/blerf/radio/timer"
)

// SetName tags the radio's log output.
func (r *Radio) SetName(name string) error {
	r.params.name = name
	return nil
}

// SetLogger replaces the logger.
func (r *Radio) SetLogger(l blerf.Logger) error {
	if l == nil {
		return fmt.Errorf("nil logger")
	}
	r.baseLog = l
	return nil
}

// SetTickRate sets the counter frequency.
func (r *Radio) SetTickRate(rate timer.Rate) error {
	r.params.rate = rate
	return nil
}

// SetCounterBits sets the counter width.
func (r *Radio) SetCounterBits(bits uint) error {
	r.params.counterBits = bits
	return nil
}

// SetMinStartOffset sets the immediate trigger threshold.
func (r *Radio) SetMinStartOffset(us uint32) error {
	r.params.minStartOffsetUs = us
	return nil
}

// SetIFS sets the spacing of chained operations.
func (r *Radio) SetIFS(us uint32) error {
	r.params.ifsUs = us
	return nil
}

// SetReadyDelay sets the ramp-up times.
func (r *Radio) SetReadyDelay(txUs, rxUs uint32) error {
	r.params.txReadyUs = txUs
	r.params.rxReadyUs = rxUs
	return nil
}

// SetLayout sets the rx entry trailer layout.
func (r *Radio) SetLayout(l evt.Layout) error {
	r.params.layout = l
	return nil
}

// SetRxQueue sets the rx ring geometry.
func (r *Radio) SetRxQueue(n, size int) error {
	r.params.rxEntries, r.params.rxSize = n, size
	return nil
}

// SetTxQueue sets the tx ring geometry.
func (r *Radio) SetTxQueue(n, size int) error {
	r.params.txEntries, r.params.txSize = n, size
	return nil
}

// SetErrorHandler ...
func (r *Radio) SetErrorHandler(handler func(error)) error {
	r.errorHandler = handler
	return nil
}
