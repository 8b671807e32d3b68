// Package h4 runs the radio co-processor on the far end of a byte stream,
// typically a UART, using H4 style packet framing.
package h4

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rigado/blerf"
	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/coproc"
	"github.com/rigado/blerf/radio/evt"
	"github.com/rigado/blerf/radio/queue"
)

type remoteOp struct {
	d      *cmd.Descriptor
	result cmd.Result
}

// Remote implements coproc.Coprocessor over an io.ReadWriteCloser. Handles
// are assigned on the host so Post never waits for the co-processor.
type Remote struct {
	rwc io.ReadWriteCloser
	log blerf.Logger

	wmu sync.Mutex

	mu   sync.Mutex
	next cmd.Handle
	ops  map[cmd.Handle]*remoteOp
	isr  coproc.Handler

	rxQueue chan []byte
	done    chan struct{}
	cmu     sync.Mutex
	wg      sync.WaitGroup
}

// New starts a remote co-processor on rwc. Completions are delivered from a
// goroutine of the Remote, so isr must serialize them with the scheduler,
// e.g. with coproc.Locked.
func New(rwc io.ReadWriteCloser, l blerf.Logger) *Remote {
	if l == nil {
		l = blerf.GetLogger()
	}

	r := &Remote{
		rwc:     rwc,
		log:     l.ChildLogger(map[string]interface{}{"coproc": "h4"}),
		next:    1,
		ops:     make(map[cmd.Handle]*remoteOp),
		rxQueue: make(chan []byte, rxQueueSize),
		done:    make(chan struct{}),
	}

	r.wg.Add(2)
	go r.rxLoop()
	go r.eventLoop()
	return r
}

// Attach routes completions to isr.
func (r *Remote) Attach(isr coproc.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isr = isr
}

// Reset asks the co-processor to drop every operation.
func (r *Remote) Reset() error {
	r.mu.Lock()
	r.ops = make(map[cmd.Handle]*remoteOp)
	r.mu.Unlock()
	return r.write(opReset, nil)
}

// Post implements coproc.Coprocessor.
func (r *Remote) Post(d *cmd.Descriptor) (cmd.Handle, error) {
	if d == nil {
		return 0, fmt.Errorf("nil descriptor")
	}

	b := make([]byte, 2+d.Len())
	if err := d.Marshal(b[2:]); err != nil {
		return 0, errors.Wrap(err, "can't marshal descriptor")
	}

	r.mu.Lock()
	h := r.next
	// handles travel as 16 bits
	r.next++
	if r.next > 0xffff {
		r.next = 1
	}
	r.ops[h] = &remoteOp{d: d, result: cmd.Result{Status: cmd.Pending}}
	r.mu.Unlock()

	binary.LittleEndian.PutUint16(b, uint16(h))
	if err := r.write(opPost, b); err != nil {
		r.mu.Lock()
		delete(r.ops, h)
		r.mu.Unlock()
		return 0, err
	}
	return h, nil
}

// Cancel implements coproc.Coprocessor. Operations already retired are
// ignored.
func (r *Remote) Cancel(h cmd.Handle) error {
	r.mu.Lock()
	_, ok := r.ops[h]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(h))
	return r.write(opCancel, b)
}

// Result implements coproc.Coprocessor.
func (r *Remote) Result(h cmd.Handle) (cmd.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.ops[h]
	if !ok {
		return cmd.Result{}, fmt.Errorf("unknown handle %v", h)
	}
	return op.result, nil
}

// Close stops the Remote and closes the underlying stream.
func (r *Remote) Close() error {
	r.cmu.Lock()
	defer r.cmu.Unlock()

	select {
	case <-r.done:
		return nil
	default:
	}

	close(r.done)
	err := r.rwc.Close()
	r.wg.Wait()
	return errors.Wrap(err, "can't close h4")
}

func (r *Remote) isOpen() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

func (r *Remote) write(code byte, payload []byte) error {
	if !r.isOpen() {
		return io.EOF
	}

	r.wmu.Lock()
	defer r.wmu.Unlock()

	p := packet(cmdPacket, code, payload)
	_, err := r.rwc.Write(p)
	r.log.Debugf("write [% 0x], %v", p, err)
	return errors.Wrap(err, "can't write h4")
}

func (r *Remote) rxLoop() {
	defer r.wg.Done()

	f := newFrame(r.rxQueue, r.done)
	tmp := make([]byte, 512)
	for {
		n, err := r.rwc.Read(tmp)
		if !r.isOpen() {
			return
		}
		if err != nil {
			if err == io.EOF || err == io.ErrClosedPipe {
				r.log.Infof("h4 stream ended: %v", err)
				return
			}
			continue
		}
		f.Assemble(tmp[:n])
	}
}

func (r *Remote) eventLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.done:
			return
		case p := <-r.rxQueue:
			if err := r.handlePacket(p); err != nil {
				r.log.Warnf("dropping packet [% 0x]: %v", p, err)
			}
		}
	}
}

func (r *Remote) handlePacket(p []byte) error {
	if len(p) < headerLength || p[0] != evtPacket {
		return fmt.Errorf("not an event packet")
	}

	payload := p[headerLength:]
	switch p[1] {
	case evtComplete:
		return r.handleComplete(payload)
	case evtRxEntry:
		return r.handleRxEntry(payload)
	default:
		return fmt.Errorf("unknown event 0x%02x", p[1])
	}
}

func (r *Remote) handleComplete(b []byte) error {
	if len(b) < completeLength {
		return fmt.Errorf("short completion (%v)", len(b))
	}

	h := cmd.Handle(binary.LittleEndian.Uint16(b[0:]))
	m := evt.Mask(binary.LittleEndian.Uint32(b[2:]))
	res := cmd.Result{
		Status:    cmd.HWStatus(binary.LittleEndian.Uint16(b[6:])),
		NumTx:     b[8],
		NumRxOk:   b[9],
		NumRxNok:  b[10],
		NumRxBuf:  b[11],
		LastRSSI:  int8(b[12]),
		Timestamp: binary.LittleEndian.Uint32(b[13:]),
	}

	r.mu.Lock()
	op, ok := r.ops[h]
	if ok {
		op.result = res
	}
	isr := r.isr
	r.mu.Unlock()

	if !ok {
		r.log.Debugf("completion for retired handle %v", h)
	}
	if isr != nil {
		isr.HandleInterrupt(h, m)
	}

	if ok && m.Has(evt.CommandDone|evt.LastCommandDone) {
		r.mu.Lock()
		delete(r.ops, h)
		r.mu.Unlock()
	}
	return nil
}

// handleRxEntry lands a received entry in the queue of its descriptor. The
// completion announcing it follows as its own event. The queue belongs to
// the ISR, so the write runs under the handler's Serializer when it has one.
func (r *Remote) handleRxEntry(b []byte) error {
	if len(b) < 2 {
		return fmt.Errorf("short rx entry")
	}

	h := cmd.Handle(binary.LittleEndian.Uint16(b[0:]))
	r.mu.Lock()
	op, ok := r.ops[h]
	isr := r.isr
	r.mu.Unlock()
	if !ok || op.d.RxQueue == nil {
		return fmt.Errorf("rx entry for unknown handle %v", h)
	}

	var full bool
	var err error
	write := func() {
		full, err = landEntry(op.d.RxQueue, b[2:])
	}
	if s, ok := isr.(coproc.Serializer); ok {
		s.Do(write)
	} else {
		write()
	}

	if full && isr != nil {
		isr.HandleInterrupt(h, evt.RxBufFull)
	}
	return err
}

func landEntry(q *queue.Queue, b []byte) (bool, error) {
	e, err := q.Acquire()
	if err != nil {
		return true, nil
	}
	if len(b) > len(e.Buf()) {
		q.ReturnActive()
		return false, fmt.Errorf("rx entry of %v bytes exceeds %v", len(b), len(e.Buf()))
	}
	return false, q.Release(e, copy(e.Buf(), b))
}
