package radio

import (
	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/evt"
)

// HandleCompare is the counter compare interrupt entry.
func (r *Radio) HandleCompare(ch int) {
	r.timers.HandleCompare(ch)
}

// HandleInterrupt consumes one completion interrupt of handle h. It runs on
// the interrupt stack: it never blocks and touches only preallocated buffers.
func (r *Radio) HandleInterrupt(h cmd.Handle, m evt.Mask) {
	if r.aborting {
		r.drain(h, m)
		return
	}
	if !r.busy || h != r.curHandle {
		r.stats.Stale++
		r.log.Debugf("stale completion %v [%v]", h, m)
		return
	}

	d := r.cur
	ev := Event{
		Status:  StatusOK,
		Variant: d.Variant(),
		Mask:    m,
	}

	if m.Has(evt.InternalError) {
		// same cleanup as a timeout, the no-op completion reports it
		r.stats.HWErrors++
		r.log.Errorf("internal error on %v [%v]", d.Variant(), m)
		r.abort(StatusHWError)
		return
	}

	ended := false

	if m.Has(evt.TxDone) {
		r.stats.Tx++
		if r.capture {
			r.end = r.timers.Now()
			ev.End = r.end
		}
		r.observed = true
	}

	if m.Has(evt.RxData) {
		r.timers.Disable(chGuard)
		// a bridge may announce several entries with one interrupt, the
		// older ones go up first as events of their own
		for r.continuous && r.rxq.Len() > 1 {
			older := Event{Status: StatusOK, Variant: ev.Variant, Mask: m & evt.RxData}
			r.receive(d, &older)
			if r.callback != nil {
				r.callback(older)
			}
			if r.aborting || !r.busy || h != r.curHandle {
				return
			}
		}
		r.receive(d, &ev)
	}

	if m.Has(evt.RxNok) {
		r.stats.RxNok++
		ev.Status = StatusCRCError
		r.discard(d, &ev)
		if d.Op.SingleShot() && !r.continuous {
			r.timers.Disable(chGuard)
			ended = true
		}
	}

	if m.Has(evt.RxBufFull) {
		r.stats.NoBuffer++
		if !r.observed && ev.Status == StatusOK {
			ev.Status = StatusNoBuffer
		}
	}

	if m.Has(evt.LastCommandDone) {
		r.timers.DisableAll()
	}

	if m.Has(evt.CommandDone | evt.LastCommandDone) {
		ended = true
		res, err := r.hw.Result(h)
		if err != nil {
			r.log.Debugf("no result for %v: %v", h, err)
		} else {
			d.Complete(res)
			ev.Result = res
			r.resultStatus(res, &ev)
		}
	}

	if ended {
		r.busy = false
		r.capture = false
		r.ignoreNext = false
		ev.Terminal = true

		if r.chained != nil {
			if r.observed && ev.Status == StatusOK {
				ev.Chained = r.postChained()
			} else {
				r.chained = nil
				r.stats.ChainDropped++
			}
		}
	}

	if r.callback != nil {
		r.callback(ev)
	}
}

// resultStatus folds the hardware status into the event when nothing more
// specific was seen in this pass.
func (r *Radio) resultStatus(res cmd.Result, ev *Event) {
	if ev.Status != StatusOK || r.observed {
		return
	}

	switch {
	case res.Status == cmd.DoneRxTimeout || res.Status == cmd.DoneNoSync:
		ev.Status = StatusTimeout
	case res.Status == cmd.DoneRxErr:
		ev.Status = StatusCRCError
	case res.Status == cmd.ErrorRxBuf:
		ev.Status = StatusNoBuffer
	case res.Status == cmd.DoneAborted || res.Status == cmd.DoneStopped:
		ev.Status = StatusAborted
	case res.Status.IsError():
		r.stats.HWErrors++
		r.log.Errorf("%v ended with %v", ev.Variant, res.Status)
		ev.Status = StatusHWError
	}
}

func (r *Radio) receive(d *cmd.Descriptor, ev *Event) {
	e, ok := r.rxq.Peek()
	if !ok {
		r.log.Debug("rx event without finished entry")
		return
	}

	b := evt.RxEntry(e.Bytes())
	if ts, err := b.TimestampWErr(r.params.layout); err == nil {
		ev.Timestamp = ts
		ev.HasTimestamp = true
	}

	f, err := evt.Extract(b, r.params.layout, d.RF.PHY, r.params.rate, r.frameBuf)
	r.rxq.Recycle(e)

	switch err {
	case nil:
		// the extractor does not know the counter width
		f.End = r.timers.Add(f.Timestamp, f.End-f.Timestamp)
		ev.Frame = f
		ev.HasFrame = true
		ev.End = f.End
		r.observed = true
		r.startTicks = f.Timestamp
		if r.capture {
			r.end = f.End
		}
		r.stats.LastRSSI = f.RSSI
		if ev.Mask.Has(evt.RxEmpty) {
			r.stats.RxEmpty++
		} else {
			r.stats.RxOk++
		}
	case evt.ErrNoFrame:
		ev.Status = StatusCRCError
	default:
		r.log.Debugf("can't extract frame: %v", err)
		ev.Status = StatusCRCError
	}
}

// discard drops a frame that failed its CRC, keeping only its time stamp.
func (r *Radio) discard(d *cmd.Descriptor, ev *Event) {
	e, ok := r.rxq.Peek()
	if !ok {
		return
	}

	if ts, err := evt.RxEntry(e.Bytes()).TimestampWErr(r.params.layout); err == nil {
		ev.Timestamp = ts
		ev.HasTimestamp = true
	}
	r.rxq.Recycle(e)
}

// drain handles completions while an abort is in progress. Only the no-op
// ends the abort; the cancelled operation's completion just retires it.
func (r *Radio) drain(h cmd.Handle, m evt.Mask) {
	if h == r.nopHandle && r.nop != nil {
		if !m.Has(evt.CommandDone | evt.LastCommandDone) {
			return
		}
		res, err := r.hw.Result(h)
		if err != nil {
			res = cmd.Result{Status: cmd.DoneOK}
		}
		r.finishAbort(res)
		return
	}

	if r.busy && h == r.curHandle && m.Has(evt.CommandDone|evt.LastCommandDone) {
		if res, err := r.hw.Result(h); err == nil {
			r.cur.Complete(res)
		}
		r.busy = false
	}
}

func (r *Radio) finishAbort(res cmd.Result) {
	if r.nop != nil {
		r.nop.Complete(res)
	}

	r.timers.DisableAll()
	r.rxq.Flush()
	r.busy = false
	r.cur = nil
	r.aborting = false
	r.nop = nil

	ev := Event{
		Status:   r.abortStatus,
		Variant:  r.abortOp,
		Mask:     evt.CommandDone | evt.LastCommandDone,
		Terminal: true,
		Result:   res,
	}
	if r.callback != nil {
		r.callback(ev)
	}
}
