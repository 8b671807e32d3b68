package radio

import (
	"fmt"

	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/evt"
	"github.com/rigado/blerf/radio/timer"
)

const (
	ChannelMax = 39

	// IFS is the BLE inter frame spacing in microseconds.
	IFS = 150

	// MinStartOffset is how far ahead, in microseconds, a start has to be for
	// the co-processor to take it as an absolute trigger.
	MinStartOffset = 400

	TxReadyDelay = 40
	RxReadyDelay = 40

	CounterBitsMin = 16
	CounterBitsMax = 32

	// room for a 255 byte PDU, 2 byte header and the full trailer
	EntrySizeDefault = 1 + 2 + 255 + 9
	RxEntriesDefault = 4
	TxEntriesDefault = 2
)

// Timer channels owned by the radio.
const (
	chGuard = iota
	chWindow
	numChannels
)

type params struct {
	name string

	rate        timer.Rate
	counterBits uint

	minStartOffsetUs uint32
	ifsUs            uint32
	txReadyUs        uint32
	rxReadyUs        uint32

	layout evt.Layout

	rxEntries, rxSize int
	txEntries, txSize int
}

func (p *params) init() {
	p.name = "radio"
	p.rate = timer.Rate4MHz
	p.counterBits = 32
	p.minStartOffsetUs = MinStartOffset
	p.ifsUs = IFS
	p.txReadyUs = TxReadyDelay
	p.rxReadyUs = RxReadyDelay
	p.layout = evt.DefaultLayout
	p.rxEntries, p.rxSize = RxEntriesDefault, EntrySizeDefault
	p.txEntries, p.txSize = TxEntriesDefault, EntrySizeDefault
}

func (p *params) validate() error {
	if p == nil {
		return fmt.Errorf("params nil")
	}

	switch {
	case p.rate == 0:
		return fmt.Errorf("invalid tick rate %v", p.rate)

	case p.counterBits < CounterBitsMin || p.counterBits > CounterBitsMax:
		return fmt.Errorf("invalid counter width %v", p.counterBits)

	case p.ifsUs == 0 || p.ifsUs >= p.minStartOffsetUs:
		return fmt.Errorf("invalid IFS %v (min start offset %v)", p.ifsUs, p.minStartOffsetUs)

	case p.txReadyUs >= p.minStartOffsetUs || p.rxReadyUs >= p.minStartOffsetUs:
		return fmt.Errorf("ready delay %v/%v exceeds min start offset %v", p.txReadyUs, p.rxReadyUs, p.minStartOffsetUs)

	case p.rxEntries <= 0 || p.txEntries <= 0:
		return fmt.Errorf("invalid queue depth %v/%v", p.rxEntries, p.txEntries)

	case p.rxSize <= p.layout.Overhead() || p.txSize <= 0:
		return fmt.Errorf("invalid entry size %v/%v", p.rxSize, p.txSize)
	}

	return nil
}

func (p *params) readyUs(isTx bool) uint32 {
	if isTx {
		return p.txReadyUs
	}
	return p.rxReadyUs
}

// ValidateRF checks link parameters passed to Configure.
func ValidateRF(rf cmd.RF) error {
	switch {
	case rf.Channel > ChannelMax:
		return fmt.Errorf("invalid channel %v", rf.Channel)

	case rf.PHY != cmd.PHY1M && rf.PHY != cmd.PHY2M && rf.PHY != cmd.PHYCoded:
		return fmt.Errorf("invalid PHY %v", rf.PHY)

	case rf.CRCInit > 0xffffff:
		return fmt.Errorf("invalid CRCInit 0x%X", rf.CRCInit)
	}

	return nil
}
