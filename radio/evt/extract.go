package evt

import (
	"github.com/pkg/errors"
	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/timer"
)

// ErrNoFrame means the entry holds no valid frame: it is empty or the
// hardware flagged a CRC error.
var ErrNoFrame = errors.New("evt: no valid frame")

// Frame is the metadata and payload taken out of a finished rx entry.
type Frame struct {
	Payload   []byte
	Length    int
	CRC       uint32
	RSSI      int8
	Channel   uint8
	Ignored   bool
	Timestamp uint32
	End       uint32
}

// Extract parses e according to l. The PDU is copied into dst, truncated to
// its length, and Payload aliases dst. Timing fields are filled in even when
// ErrNoFrame is returned for a CRC error so callers may still use them.
func Extract(e RxEntry, l Layout, phy cmd.PHY, rate timer.Rate, dst []byte) (Frame, error) {
	var f Frame
	if len(e) == 0 || len(e) < l.Overhead() {
		return f, ErrNoFrame
	}

	if l.LenByte {
		n, err := e.LengthWErr(l)
		if err != nil {
			return f, err
		}
		if int(n) != len(e)-1 {
			return f, errors.Errorf("evt: length byte %v, entry holds %v", n, len(e)-1)
		}
	}

	pdu, err := e.PDUWErr(l)
	if err != nil {
		return f, errors.Wrap(err, "pdu")
	}
	f.Length = len(pdu)
	f.RSSI = RSSIInvalid

	if l.Timestamp {
		f.Timestamp, err = e.TimestampWErr(l)
		if err != nil {
			return f, errors.Wrap(err, "timestamp")
		}
		f.End = f.Timestamp + rate.Ticks(Airtime(len(pdu), phy))
	}
	if l.RSSI {
		f.RSSI, err = e.RSSIWErr(l)
		if err != nil {
			return f, errors.Wrap(err, "rssi")
		}
	}
	if l.CRC {
		f.CRC, err = e.CRCWErr(l)
		if err != nil {
			return f, errors.Wrap(err, "crc")
		}
	}
	if l.Status {
		st, err := e.StatusWErr(l)
		if err != nil {
			return f, errors.Wrap(err, "status")
		}
		f.Channel = st & StatusChannelMask
		f.Ignored = st&StatusIgnored != 0
		if st&StatusCRCErr != 0 {
			return f, ErrNoFrame
		}
	}

	if len(pdu) == 0 {
		return f, ErrNoFrame
	}

	n := copy(dst, pdu)
	f.Payload = dst[:n]
	return f, nil
}

// Airtime is the time in microseconds, rounded up, that a PDU of n bytes plus
// its CRC occupies on air.
func Airtime(n int, phy cmd.PHY) uint32 {
	bits := uint64(n+CRCLen) * 8
	return uint32((bits*uint64(phy.BitTimeNs()) + 999) / 1000)
}
