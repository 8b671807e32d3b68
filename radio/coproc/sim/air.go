package sim

import (
	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/evt"
)

// Receive lands pdu in the running operation's rx queue as the hardware would,
// time stamped at the current counter value unless t carries one. Transmit
// operations only receive when the hardware listens for an answer itself,
// like an advertisement waiting for scan requests.
func (s *Sim) Receive(pdu []byte, t evt.Trailer) bool {
	o := s.running
	if o == nil || o.done || o.d.RxQueue == nil {
		return false
	}
	if o.d.Tx && !o.d.Op.AutoResponds() {
		return false
	}
	if t.Timestamp == 0 {
		t.Timestamp = s.now
	}

	crcErr := t.Status&evt.StatusCRCErr != 0
	t.Status = t.Status&^evt.StatusChannelMask | o.d.RF.Channel&evt.StatusChannelMask

	e, err := o.d.RxQueue.Acquire()
	if err != nil {
		o.result.NumRxBuf++
		if o.d.Op.SingleShot() {
			s.finish(o, cmd.ErrorRxBuf, evt.RxBufFull|evt.CommandDone|evt.LastCommandDone)
		} else {
			s.raise(o.h, evt.RxBufFull)
		}
		s.Flush()
		return false
	}

	b := evt.AppendRxEntry(nil, s.Layout, pdu, t)
	if len(b) > len(e.Buf()) {
		o.d.RxQueue.ReturnActive()
		return false
	}
	o.d.RxQueue.Release(e, copy(e.Buf(), b))

	var m evt.Mask
	if crcErr {
		o.result.NumRxNok++
		m = evt.RxNok | evt.RxEntryDone
	} else {
		o.result.NumRxOk++
		o.result.LastRSSI = t.RSSI
		o.result.Timestamp = t.Timestamp
		m = evt.RxOk | evt.RxEntryDone
		if len(pdu) >= 2 && pdu[1] == 0 {
			m = evt.RxEmpty | evt.RxEntryDone
		}
	}

	if o.d.Op.SingleShot() {
		st := cmd.DoneOK
		if crcErr {
			st = cmd.DoneRxErr
		}
		s.finish(o, st, m|evt.CommandDone|evt.LastCommandDone)
	} else {
		s.raise(o.h, m)
	}
	s.Flush()
	return true
}

// CompleteTx ends the running transmit, consuming one PDU of its tx queue.
func (s *Sim) CompleteTx() bool {
	o := s.running
	if o == nil || o.done || !o.d.Tx {
		return false
	}

	if q := o.d.TxQueue; q != nil {
		if e, ok := q.Peek(); ok {
			pdu := make([]byte, e.Len())
			copy(pdu, e.Bytes())
			s.sent = append(s.sent, pdu)
			q.Recycle(e)
		}
	}

	o.result.NumTx++
	s.finish(o, cmd.DoneOK, evt.TxDone|evt.CommandDone|evt.LastCommandDone)
	s.Flush()
	return true
}

// EndRx ends the running operation the way the hardware does when it gives up
// on its own, e.g. with cmd.DoneRxTimeout or cmd.DoneNoSync.
func (s *Sim) EndRx(st cmd.HWStatus) bool {
	o := s.running
	if o == nil || o.done {
		return false
	}
	s.finish(o, st, evt.CommandDone|evt.LastCommandDone)
	s.Flush()
	return true
}

// InternalError raises an internal error on the running operation.
func (s *Sim) InternalError() bool {
	o := s.running
	if o == nil || o.done {
		return false
	}
	s.raise(o.h, evt.InternalError)
	s.Flush()
	return true
}
