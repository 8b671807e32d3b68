package radio

import (
	"fmt"

	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/evt"
)

// Status is the outcome reported to the scheduler for a dispatch pass.
type Status uint8

const (
	StatusOK Status = iota
	StatusTimeout
	StatusCRCError
	StatusNoBuffer
	StatusAborted
	StatusHWError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimeout:
		return "timeout"
	case StatusCRCError:
		return "crc error"
	case StatusNoBuffer:
		return "no buffer"
	case StatusAborted:
		return "aborted"
	case StatusHWError:
		return "hw error"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Event is emitted to the completion callback at the end of every dispatch
// pass. Frame.Payload aliases a buffer owned by the radio and is only valid
// during the callback.
type Event struct {
	Status  Status
	Variant cmd.Variant
	Mask    evt.Mask

	// Terminal is set when the operation this pass belongs to has ended.
	Terminal bool

	// Chained is set when a chained operation was posted in this pass.
	Chained bool

	Frame    evt.Frame
	HasFrame bool

	// Timestamp is the start of the received frame, also set when the
	// frame failed its CRC but the hardware still stamped it.
	Timestamp    uint32
	HasTimestamp bool

	End    uint32
	Result cmd.Result
}

// Stats counts what the radio did since it was created.
type Stats struct {
	Posted       uint32 `json:"posted"`
	Chained      uint32 `json:"chained"`
	ChainDropped uint32 `json:"chain_dropped"`
	Suppressed   uint32 `json:"suppressed"`
	Busy         uint32 `json:"busy"`
	Stale        uint32 `json:"stale"`
	Tx           uint32 `json:"tx"`
	RxOk         uint32 `json:"rx_ok"`
	RxEmpty      uint32 `json:"rx_empty"`
	RxNok        uint32 `json:"rx_nok"`
	NoBuffer     uint32 `json:"no_buffer"`
	Timeouts     uint32 `json:"timeouts"`
	GuardSkipped uint32 `json:"guard_skipped"`
	HWErrors     uint32 `json:"hw_errors"`
	Aborts       uint32 `json:"aborts"`
	LastRSSI     int8   `json:"last_rssi"`
}
