package cmd

import "fmt"

// HWStatus is the status word the co-processor writes into a command's
// result block.
type HWStatus uint16

const (
	Idle    HWStatus = 0x0000
	Pending HWStatus = 0x0001
	Active  HWStatus = 0x0002
	Skipped HWStatus = 0x0003

	DoneOK        HWStatus = 0x1400
	DoneRxTimeout HWStatus = 0x1401
	DoneNoSync    HWStatus = 0x1402
	DoneRxErr     HWStatus = 0x1403
	DoneConnect   HWStatus = 0x1404
	DoneEnded     HWStatus = 0x1406
	DoneAborted   HWStatus = 0x1407
	DoneStopped   HWStatus = 0x1408

	ErrorPastStart HWStatus = 0x0801
	ErrorPar       HWStatus = 0x1800
	ErrorRxBuf     HWStatus = 0x1801
	ErrorSynth     HWStatus = 0x0806
)

// IsDone reports a normal end of operation.
func (s HWStatus) IsDone() bool {
	return s&0xff00 == 0x1400
}

// IsError reports a status the hardware raised as an error.
func (s HWStatus) IsError() bool {
	return s&0xf000 == 0x1000 && !s.IsDone() || s&0xff00 == 0x0800
}

func (s HWStatus) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Skipped:
		return "skipped"
	case DoneOK:
		return "done ok"
	case DoneRxTimeout:
		return "done rx timeout"
	case DoneNoSync:
		return "done no sync"
	case DoneRxErr:
		return "done rx error"
	case DoneConnect:
		return "done connect"
	case DoneEnded:
		return "done ended"
	case DoneAborted:
		return "done aborted"
	case DoneStopped:
		return "done stopped"
	case ErrorPastStart:
		return "error past start"
	case ErrorPar:
		return "error parameter"
	case ErrorRxBuf:
		return "error rx buffer"
	case ErrorSynth:
		return "error synth"
	default:
		return fmt.Sprintf("status 0x%04X", uint16(s))
	}
}
