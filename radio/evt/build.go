package evt

import "encoding/binary"

// Trailer is what the hardware appends after a PDU.
type Trailer struct {
	CRC       uint32
	RSSI      int8
	Status    uint8
	Timestamp uint32
}

// AppendRxEntry lays out pdu and t the way the hardware stores a received
// frame and appends it to b.
func AppendRxEntry(b []byte, l Layout, pdu []byte, t Trailer) []byte {
	if l.LenByte {
		b = append(b, uint8(len(pdu)+l.TrailerLen()))
	}
	b = append(b, pdu...)
	if l.CRC {
		b = append(b, byte(t.CRC), byte(t.CRC>>8), byte(t.CRC>>16))
	}
	if l.RSSI {
		b = append(b, byte(t.RSSI))
	}
	if l.Status {
		b = append(b, t.Status)
	}
	if l.Timestamp {
		var ts [TimestampLen]byte
		binary.LittleEndian.PutUint32(ts[:], t.Timestamp)
		b = append(b, ts[:]...)
	}
	return b
}
