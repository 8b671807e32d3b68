package radio

import (
	"github.com/pkg/errors"
	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/timer"
)

// start picks the trigger of d and arms the guard. The co-processor needs
// MinStartOffset of notice for an absolute trigger, anything closer (or
// already late) starts at once. It returns the tick the radio is ready at.
func (r *Radio) start(d *cmd.Descriptor, ticks, remainderUs uint32) uint32 {
	rate := r.params.rate
	now := r.timers.Now()
	ready := rate.Ticks(r.params.readyUs(d.Tx))

	target := r.timers.Add(ticks, rate.Ticks(remainderUs))
	ramp := (target - ready) & r.timers.Mask()

	var readyAt uint32
	if r.timers.Past(ramp, now) || r.timers.Diff(ramp, now) < rate.Ticks(r.params.minStartOffsetUs) {
		d.Trigger = cmd.Trigger{Kind: cmd.Immediate}
		readyAt = r.timers.Add(now, ready)
	} else {
		d.Trigger = cmd.Trigger{Kind: cmd.AtAbsoluteTick, Ticks: ramp}
		readyAt = target
	}

	r.armGuard()
	return readyAt
}

func (r *Radio) enable(isTx bool) error {
	if r.ignoreNext {
		r.ignoreNext = false
		r.stats.Suppressed++
		r.log.Debugf("%v answered by hardware, request suppressed", r.op.Variant())
		return nil
	}
	if r.op == nil {
		return ErrNoOp
	}
	if r.aborting {
		r.stats.Busy++
		return ErrBusy
	}

	d := r.newDescriptor(isTx)
	if r.busy {
		r.chain(d)
		return nil
	}

	d.Trigger = cmd.Trigger{Kind: cmd.Immediate}
	r.armGuard()
	return r.post(d)
}

// chain stores next to be posted from the completion of the current
// operation. The link on the current descriptor is software only; the
// hardware took its copy at Post.
func (r *Radio) chain(next *cmd.Descriptor) {
	if r.chained != nil {
		r.log.Debug("replacing chained operation")
	}
	r.chained = next
	r.cur.Condition = cmd.ChainOnSuccess
	r.cur.Next = next
}

// postChained runs on the interrupt, right after the previous operation's
// results were captured. The trigger is relative to now so no scheduling
// latency adds to the IFS.
func (r *Radio) postChained() bool {
	next := r.chained
	r.chained = nil

	next.Trigger = cmd.Trigger{
		Kind:   cmd.ChainedPastRelative,
		Ticks:  r.timers.Now(),
		Offset: r.params.rate.Ticks(r.params.ifsUs),
	}
	r.armGuard()
	if err := r.post(next); err != nil {
		return false
	}
	r.stats.Chained++
	return true
}

func (r *Radio) armGuard() {
	if !r.guardSet {
		return
	}
	r.guardSet = false

	err := r.timers.Compare(chGuard, r.guard, r.onGuard)
	switch {
	case err == timer.ErrPast:
		r.guardSkipped = true
		r.stats.GuardSkipped++
		r.log.Debugf("guard %v already past, skipped", r.guard)
	case err != nil:
		r.dispatchError(errors.Wrap(err, "can't arm guard"))
	default:
		r.guardSkipped = false
	}
}

func (r *Radio) post(d *cmd.Descriptor) error {
	h, err := r.hw.Post(d)
	if err != nil {
		r.timers.Disable(chGuard)
		err = errors.Wrapf(err, "can't post %v", d.Variant())
		r.dispatchError(err)
		return err
	}

	r.cur = d
	r.curHandle = h
	r.busy = true
	r.observed = false
	r.stats.Posted++
	if d.Op.AutoResponds() {
		r.ignoreNext = true
	}
	return nil
}

// onGuard runs when the too-late guard fires before a completion disarmed it.
func (r *Radio) onGuard() {
	r.stats.Timeouts++
	r.log.Debug("guard expired")
	r.abort(StatusTimeout)
}

// abort cancels the running operation and posts a no-op whose completion is
// the single terminal completion. Calling it again before that completion
// does nothing.
func (r *Radio) abort(status Status) {
	if r.aborting {
		return
	}
	r.aborting = true
	r.abortStatus = status
	r.abortOp = cmd.NoOperation
	r.stats.Aborts++

	if r.busy {
		r.abortOp = r.cur.Variant()
		if err := r.hw.Cancel(r.curHandle); err != nil {
			r.dispatchError(errors.Wrap(err, "can't cancel"))
		}
	}

	r.rxq.ReturnActive()
	r.chained = nil
	r.ignoreNext = false
	r.guardSet = false
	r.capture = false
	r.timers.Disable(chGuard)

	r.nop = &cmd.Descriptor{
		Op:      &cmd.NopOp{},
		Trigger: cmd.Trigger{Kind: cmd.Immediate},
	}
	h, err := r.hw.Post(r.nop)
	if err != nil {
		// no completion will ever come for the no-op, end it here
		r.dispatchError(errors.Wrap(err, "can't post nop"))
		r.finishAbort(cmd.Result{Status: cmd.ErrorPar})
		return
	}
	r.nopHandle = h
}
