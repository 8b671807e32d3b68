package connection

const (
	// WidenFactor multiplies the receive window of the first event, when the
	// master's transmit instant is only known from the connect request.
	WidenFactor = 10

	// SupervisionEventsDefault is how many events in a row may pass without
	// a frame before the connection counts as lost.
	SupervisionEventsDefault = 6
)

// empty data PDU, LLID continuation, no payload
var emptyPDU = []byte{0x01, 0x00}
