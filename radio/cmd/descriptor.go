package cmd

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rigado/blerf/radio/queue"
)

var (
	// ErrNotComplete is returned when a result block is read before the
	// completion naming its descriptor was dispatched.
	ErrNotComplete = errors.New("cmd: result not available")

	errShort = errors.New("cmd: buffer too short")
)

// Handle names a posted descriptor on the co-processor.
type Handle uint32

// PHY of the radio link.
type PHY uint8

const (
	PHY1M PHY = iota
	PHY2M
	PHYCoded
)

// BitTimeNs is the on-air duration of one bit.
func (p PHY) BitTimeNs() uint32 {
	switch p {
	case PHY2M:
		return 500
	case PHYCoded:
		return 8000
	default:
		return 1000
	}
}

func (p PHY) String() string {
	switch p {
	case PHY1M:
		return "1M"
	case PHY2M:
		return "2M"
	case PHYCoded:
		return "coded"
	default:
		return fmt.Sprintf("phy(%d)", uint8(p))
	}
}

// ParsePHY reads the names String produces.
func ParsePHY(s string) (PHY, error) {
	switch s {
	case "1M", "1m":
		return PHY1M, nil
	case "2M", "2m":
		return PHY2M, nil
	case "coded", "Coded":
		return PHYCoded, nil
	}
	return 0, errors.Errorf("cmd: unknown phy %q", s)
}

// RF holds the link parameters set by Configure.
type RF struct {
	Channel       uint8
	AccessAddress uint32
	CRCInit       uint32
	PHY           PHY
}

// TriggerKind selects how the co-processor starts an operation.
type TriggerKind uint8

const (
	Immediate TriggerKind = iota
	AtAbsoluteTick
	// ChainedPastRelative starts Offset ticks after Ticks, or at once if
	// that moment has already passed.
	ChainedPastRelative
)

type Trigger struct {
	Kind   TriggerKind
	Ticks  uint32
	Offset uint32
}

// Condition decides what runs after the operation ends.
type Condition uint8

const (
	Stop Condition = iota
	ChainOnSuccess
)

// Result is the output block of one operation.
type Result struct {
	Status    HWStatus
	NumTx     uint8
	NumRxOk   uint8
	NumRxNok  uint8
	NumRxBuf  uint8
	LastRSSI  int8
	Timestamp uint32
}

// Descriptor is one radio operation. It is built right before posting and is
// left alone until its completion retires it.
type Descriptor struct {
	Op        Op
	Tx        bool
	RF        RF
	Trigger   Trigger
	Condition Condition
	Next      *Descriptor

	RxQueue *queue.Queue
	TxQueue *queue.Queue

	result Result
	done   bool
}

// Variant of the descriptor's op.
func (d *Descriptor) Variant() Variant {
	if d.Op == nil {
		return NoOperation
	}
	return d.Op.Variant()
}

// Complete fills the result block. Only the dispatcher calls this, on the
// completion that names the descriptor.
func (d *Descriptor) Complete(r Result) {
	d.result = r
	d.done = true
}

// Done reports whether the result block is valid.
func (d *Descriptor) Done() bool {
	return d.done
}

// Result returns the result block once the descriptor has completed.
func (d *Descriptor) Result() (Result, error) {
	if !d.done {
		return Result{}, ErrNotComplete
	}
	return d.result, nil
}

const descriptorHeaderLen = 19

// Len is the encoded size of the descriptor.
func (d *Descriptor) Len() int {
	n := descriptorHeaderLen
	if d.Op != nil {
		n += d.Op.Len()
	}
	return n
}

// Marshal encodes the descriptor for a co-processor reached over a wire.
// Queues and the chain link stay local.
func (d *Descriptor) Marshal(b []byte) error {
	if len(b) < d.Len() {
		return errShort
	}

	b[0] = uint8(d.Variant())
	b[1] = 0
	if d.Tx {
		b[1] = 1
	}
	b[2] = d.RF.Channel
	binary.LittleEndian.PutUint32(b[3:], d.RF.AccessAddress)
	// crc init is 24 bits on air
	b[7] = byte(d.RF.CRCInit)
	b[8] = byte(d.RF.CRCInit >> 8)
	b[9] = byte(d.RF.CRCInit >> 16)
	b[10] = uint8(d.RF.PHY)
	b[11] = uint8(d.Trigger.Kind)
	binary.LittleEndian.PutUint32(b[12:], d.Trigger.Ticks)
	b[16] = uint8(d.Condition)
	binary.LittleEndian.PutUint16(b[17:], uint16(d.Trigger.Offset))

	if d.Op == nil {
		return nil
	}
	return errors.Wrap(d.Op.Marshal(b[descriptorHeaderLen:]), "can't marshal op")
}
