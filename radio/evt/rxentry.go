package evt

import (
	"encoding/binary"
	"fmt"
)

// Trailer field sizes.
const (
	CRCLen       = 3
	RSSILen      = 1
	StatusLen    = 1
	TimestampLen = 4
)

// Status byte bits appended by the hardware.
const (
	StatusChannelMask = 0x3f
	StatusIgnored     = 0x40
	StatusCRCErr      = 0x80
)

// RSSIInvalid is written when no RSSI could be measured.
const RSSIInvalid = -128

// Layout says which optional fields the hardware stores around the PDU.
type Layout struct {
	LenByte   bool
	CRC       bool
	RSSI      bool
	Status    bool
	Timestamp bool
}

// DefaultLayout stores everything.
var DefaultLayout = Layout{LenByte: true, CRC: true, RSSI: true, Status: true, Timestamp: true}

func (l Layout) lead() int {
	if l.LenByte {
		return 1
	}
	return 0
}

// TrailerLen is the number of bytes following the PDU.
func (l Layout) TrailerLen() int {
	n := 0
	if l.CRC {
		n += CRCLen
	}
	if l.RSSI {
		n += RSSILen
	}
	if l.Status {
		n += StatusLen
	}
	if l.Timestamp {
		n += TimestampLen
	}
	return n
}

// Overhead is every byte of an entry that is not PDU.
func (l Layout) Overhead() int {
	return l.lead() + l.TrailerLen()
}

func (l Layout) crcOffset(n int) int {
	return n - l.TrailerLen()
}

func (l Layout) rssiOffset(n int) int {
	o := l.crcOffset(n)
	if l.CRC {
		o += CRCLen
	}
	return o
}

func (l Layout) statusOffset(n int) int {
	o := l.rssiOffset(n)
	if l.RSSI {
		o += RSSILen
	}
	return o
}

func (l Layout) timestampOffset(n int) int {
	o := l.statusOffset(n)
	if l.Status {
		o += StatusLen
	}
	return o
}

// RxEntry is the content of a finished rx data entry.
type RxEntry []byte

func (e RxEntry) LengthWErr(l Layout) (uint8, error) {
	if !l.LenByte {
		return uint8(len(e) - l.Overhead()), nil
	}
	return getByte(e, 0, 0)
}

func (e RxEntry) PDUWErr(l Layout) ([]byte, error) {
	n := len(e) - l.Overhead()
	if n < 0 {
		return nil, fmt.Errorf("index error")
	}
	return getBytes(e, l.lead(), n)
}

func (e RxEntry) CRCWErr(l Layout) (uint32, error) {
	if !l.CRC {
		return 0, fmt.Errorf("crc not stored")
	}
	bb, err := getBytes(e, l.crcOffset(len(e)), CRCLen)
	if err != nil {
		return 0, err
	}
	return uint32(bb[0]) | uint32(bb[1])<<8 | uint32(bb[2])<<16, nil
}

func (e RxEntry) RSSIWErr(l Layout) (int8, error) {
	if !l.RSSI {
		return RSSIInvalid, fmt.Errorf("rssi not stored")
	}
	v, err := getByte(e, l.rssiOffset(len(e)), 0x80)
	return int8(v), err
}

func (e RxEntry) StatusWErr(l Layout) (uint8, error) {
	if !l.Status {
		return 0, fmt.Errorf("status not stored")
	}
	return getByte(e, l.statusOffset(len(e)), StatusCRCErr)
}

func (e RxEntry) TimestampWErr(l Layout) (uint32, error) {
	if !l.Timestamp {
		return 0, fmt.Errorf("timestamp not stored")
	}
	bb, err := getBytes(e, l.timestampOffset(len(e)), TimestampLen)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(bb), nil
}

func (e RxEntry) RSSI(l Layout) int8 {
	v, _ := e.RSSIWErr(l)
	return v
}

func (e RxEntry) Timestamp(l Layout) uint32 {
	v, _ := e.TimestampWErr(l)
	return v
}

// get or default
func getByte(b []byte, i int, def byte) (byte, error) {
	bb, err := getBytes(b, i, 1)
	if err != nil {
		return def, err
	}
	return bb[0], nil
}

func getBytes(bytes []byte, start int, count int) ([]byte, error) {
	if bytes == nil || start < 0 || start > len(bytes) {
		return nil, fmt.Errorf("index error")
	}

	if count < 0 {
		return bytes[start:], nil
	}

	end := start + count
	//end is non-inclusive
	if end > len(bytes) {
		return nil, fmt.Errorf("index error")
	}

	return bytes[start:end], nil
}
