// Package radio sequences BLE radio operations on a command co-processor and
// dispatches its completion interrupts.
//
// A Radio is driven from two contexts: the scheduler, which configures and
// posts operations, and the radio interrupt, which calls HandleInterrupt and
// HandleCompare. The two never run at the same time; the Radio holds no lock.
package radio

import (
	"github.com/pkg/errors"
	"github.com/rigado/blerf"
	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/coproc"
	"github.com/rigado/blerf/radio/queue"
	"github.com/rigado/blerf/radio/timer"
)

var (
	// ErrBusy is returned when an operation is requested while the previous
	// one is still in flight and cannot be chained.
	ErrBusy = errors.New("radio: busy")

	// ErrNoOp is returned when no variant was selected.
	ErrNoOp = errors.New("radio: no operation selected")
)

// Radio is the command and timing engine of one radio peripheral.
type Radio struct {
	params  params
	baseLog blerf.Logger
	log     blerf.Logger

	hw     coproc.Coprocessor
	timers *timer.Bank

	rxq *queue.Queue
	txq *queue.Queue

	rf         cmd.RF
	op         cmd.Op
	continuous bool

	cur       *cmd.Descriptor
	curHandle cmd.Handle
	busy      bool
	chained   *cmd.Descriptor
	observed  bool

	ignoreNext bool

	guard        uint32
	guardSet     bool
	guardSkipped bool
	capture      bool

	aborting    bool
	abortStatus Status
	abortOp     cmd.Variant
	nop         *cmd.Descriptor
	nopHandle   cmd.Handle

	startTicks uint32
	end        uint32

	frameBuf []byte

	callback     func(Event)
	errorHandler func(error)

	stats Stats
}

// New returns a radio posting to hw and keeping time with th. Compare
// interrupts of th must be routed to HandleCompare and completions of hw to
// HandleInterrupt.
func New(hw coproc.Coprocessor, th timer.Hardware, opts ...blerf.Option) (*Radio, error) {
	if hw == nil || th == nil {
		return nil, errors.New("radio: nil hardware")
	}

	r := &Radio{hw: hw}
	r.params.init()
	if err := r.Option(opts...); err != nil {
		return nil, errors.Wrap(err, "can't set options")
	}
	if err := r.params.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid params")
	}

	if r.baseLog == nil {
		r.baseLog = blerf.GetLogger()
	}
	r.log = r.baseLog.ChildLogger(map[string]interface{}{"radio": r.params.name})

	var err error
	r.rxq, err = queue.New(r.params.rxEntries, r.params.rxSize)
	if err != nil {
		return nil, errors.Wrap(err, "rx queue")
	}
	r.txq, err = queue.New(r.params.txEntries, r.params.txSize)
	if err != nil {
		return nil, errors.Wrap(err, "tx queue")
	}

	r.timers = timer.NewBank(th, numChannels, r.params.counterBits)
	r.frameBuf = make([]byte, r.params.rxSize)
	r.rf = cmd.RF{PHY: cmd.PHY1M}
	return r, nil
}

// Option sets the options specified.
func (r *Radio) Option(opts ...blerf.Option) error {
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return err
		}
	}
	return nil
}

// Configure sets the link parameters used by the next operations. Nothing is
// sent to the hardware until an operation starts.
func (r *Radio) Configure(channel uint8, accessAddress, crcInit uint32, phy cmd.PHY) error {
	rf := cmd.RF{
		Channel:       channel,
		AccessAddress: accessAddress,
		CRCInit:       crcInit,
		PHY:           phy,
	}
	if err := ValidateRF(rf); err != nil {
		return errors.Wrap(err, "can't configure")
	}
	r.rf = rf
	return nil
}

// Select picks the operation variant for the following requests. Once a
// variant the hardware answers on its own is posted, the next EnableRx or
// EnableTx is ignored.
func (r *Radio) Select(op cmd.Op) {
	r.op = op
}

// SetContinuous keeps a receive running after a frame instead of ending it.
func (r *Radio) SetContinuous(on bool) {
	r.continuous = on
}

// OnCompletion registers the callback run at the end of every dispatch pass.
func (r *Radio) OnCompletion(cb func(Event)) {
	r.callback = cb
}

// EnableRx requests a receive. If an operation is in flight the receive is
// chained to it and starts one IFS after it completes successfully.
func (r *Radio) EnableRx() error {
	return r.enable(false)
}

// EnableTx requests a transmit, chained like EnableRx.
func (r *Radio) EnableTx() error {
	return r.enable(true)
}

// Disable aborts whatever is running. Exactly one terminal completion with
// StatusAborted follows, however many times Disable is called before it.
func (r *Radio) Disable() {
	r.abort(StatusAborted)
}

// StartAt posts the selected operation to start at ticks plus remainderUs.
// It returns the offset in microseconds from ticks at which the radio is
// actually ready, zero if it is ready earlier, for the caller's warm-up
// accounting.
func (r *Radio) StartAt(ticks, remainderUs uint32, isTx bool) (uint32, error) {
	if r.op == nil {
		return 0, ErrNoOp
	}
	if r.busy || r.aborting {
		r.stats.Busy++
		return 0, ErrBusy
	}

	d := r.newDescriptor(isTx)
	readyAt := r.start(d, ticks, remainderUs)
	if err := r.post(d); err != nil {
		return 0, err
	}
	if r.timers.Past(readyAt, ticks) {
		return 0, nil
	}
	return r.params.rate.Micros(r.timers.Diff(readyAt, ticks)), nil
}

// ArmTimeout sets the too-late guard of the next operation to the absolute
// tick deadline.
func (r *Radio) ArmTimeout(deadline uint32) {
	r.guard = deadline & r.timers.Mask()
	r.guardSet = true
}

// ArmCapture asks for the end of the next operation to be time stamped.
func (r *Radio) ArmCapture() {
	r.capture = true
}

// SetTxPayload queues a PDU for the next transmit.
func (r *Radio) SetTxPayload(pdu []byte) error {
	e, err := r.txq.Acquire()
	if err != nil {
		r.stats.NoBuffer++
		return err
	}
	if len(pdu) > len(e.Buf()) {
		r.txq.ReturnActive()
		return errors.Errorf("radio: pdu of %v bytes exceeds entry size %v", len(pdu), len(e.Buf()))
	}
	n := copy(e.Buf(), pdu)
	return r.txq.Release(e, n)
}

// StartDebugWindow drives out high for [begin, begin+duration) every
// interval ticks until StopDebugWindow.
func (r *Radio) StartDebugWindow(begin, duration, interval uint32, out func(on bool)) error {
	return r.timers.StartWindow(chWindow, begin, duration, interval, out)
}

// StopDebugWindow stops the debug output window.
func (r *Radio) StopDebugWindow() {
	r.timers.StopWindow(chWindow)
}

// GuardSkipped reports whether the last armed guard was already past.
func (r *Radio) GuardSkipped() bool {
	return r.guardSkipped
}

// Busy reports whether an operation is in flight.
func (r *Radio) Busy() bool {
	return r.busy || r.aborting
}

// Now reads the counter.
func (r *Radio) Now() uint32 {
	return r.timers.Now()
}

// Rate is the counter frequency.
func (r *Radio) Rate() timer.Rate {
	return r.params.rate
}

// Timers exposes the radio's timer bank.
func (r *Radio) Timers() *timer.Bank {
	return r.timers
}

// EndTicks is the last captured end of operation.
func (r *Radio) EndTicks() uint32 {
	return r.end
}

// StartTicks is the start of the last received frame.
func (r *Radio) StartTicks() uint32 {
	return r.startTicks
}

// RxQueue returns the receive ring shared with the hardware.
func (r *Radio) RxQueue() *queue.Queue {
	return r.rxq
}

// TxQueue returns the transmit ring shared with the hardware.
func (r *Radio) TxQueue() *queue.Queue {
	return r.txq
}

// Stats returns a copy of the counters.
func (r *Radio) Stats() Stats {
	return r.stats
}

func (r *Radio) newDescriptor(isTx bool) *cmd.Descriptor {
	return &cmd.Descriptor{
		Op:      r.op,
		Tx:      isTx,
		RF:      r.rf,
		RxQueue: r.rxq,
		TxQueue: r.txq,
	}
}

func (r *Radio) dispatchError(e error) {
	if r.errorHandler == nil {
		r.log.Error(e)
		return
	}
	r.errorHandler(e)
}
