package evt

import (
	"strings"
)

// Mask is the event bitmask the co-processor raises with a completion.
type Mask uint32

const (
	CommandDone     Mask = 1 << 0
	LastCommandDone Mask = 1 << 1
	TxDone          Mask = 1 << 4
	RxOk            Mask = 1 << 16
	RxNok           Mask = 1 << 17
	RxIgnored       Mask = 1 << 18
	RxEmpty         Mask = 1 << 19
	RxBufFull       Mask = 1 << 22
	RxEntryDone     Mask = 1 << 23
	InternalError   Mask = 1 << 31
)

// RxData is any event saying a frame landed in the rx queue.
const RxData = RxOk | RxEmpty | RxEntryDone

// Has reports whether any bit of f is set.
func (m Mask) Has(f Mask) bool {
	return m&f != 0
}

var maskNames = []struct {
	m Mask
	s string
}{
	{CommandDone, "CommandDone"},
	{LastCommandDone, "LastCommandDone"},
	{TxDone, "TxDone"},
	{RxOk, "RxOk"},
	{RxNok, "RxNok"},
	{RxIgnored, "RxIgnored"},
	{RxEmpty, "RxEmpty"},
	{RxBufFull, "RxBufFull"},
	{RxEntryDone, "RxEntryDone"},
	{InternalError, "InternalError"},
}

func (m Mask) String() string {
	var ss []string
	for _, n := range maskNames {
		if m&n.m != 0 {
			ss = append(ss, n.s)
		}
	}
	if len(ss) == 0 {
		return "none"
	}
	return strings.Join(ss, "|")
}
