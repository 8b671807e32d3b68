package h4

// Packet indicators, first byte of every packet on the wire.
const (
	cmdPacket = 0x01
	evtPacket = 0x04
)

// Host to co-processor commands.
const (
	opPost   = 0x01
	opCancel = 0x02
	opReset  = 0x03
)

// Co-processor to host events.
const (
	evtComplete = 0x01
	evtRxEntry  = 0x02
)

const (
	// type, code, 16 bit length
	headerLength = 4

	// handle, mask, status, counters, rssi, time stamp
	completeLength = 2 + 4 + 2 + 4 + 1 + 4

	rxQueueSize = 64
)
