package timer

// Rate is the frequency of the free-running counter in Hz.
type Rate uint32

const (
	// Rate4MHz is the radio timer of the command co-processor.
	Rate4MHz Rate = 4000000
	// Rate32KHz is a low-frequency RTC style counter.
	Rate32KHz Rate = 32768
)

// Ticks converts microseconds into counter ticks, rounding up so a deadline
// computed from it is never early.
func (r Rate) Ticks(us uint32) uint32 {
	return uint32((uint64(us)*uint64(r) + 999999) / 1000000)
}

// Micros converts ticks into microseconds, rounding down.
func (r Rate) Micros(ticks uint32) uint32 {
	if r == 0 {
		return 0
	}
	return uint32(uint64(ticks) * 1000000 / uint64(r))
}
