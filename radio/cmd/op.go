package cmd

import (
	"encoding/binary"
	"fmt"

	"github.com/rigado/blerf/parser"
)

// Variant identifies the kind of radio operation.
type Variant uint8

const (
	NoOperation Variant = iota
	Advertise
	GenericReceive
	ConnectionSlaveEvent
)

func (v Variant) String() string {
	switch v {
	case NoOperation:
		return "nop"
	case Advertise:
		return "advertise"
	case GenericReceive:
		return "generic rx"
	case ConnectionSlaveEvent:
		return "slave"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// Op is the variant specific part of a descriptor. The concrete type is chosen
// once when the role is configured.
type Op interface {
	Variant() Variant

	// AutoResponds is true when the hardware answers the peer on its own
	// (scan and connect requests while advertising).
	AutoResponds() bool

	// SingleShot is true when one received frame ends the operation.
	SingleShot() bool

	Len() int
	Marshal([]byte) error
}

// AdvertiseOp sends an advertising PDU and answers scan/connect requests.
type AdvertiseOp struct {
	PDUType     uint8
	AdvData     []byte
	ScanRspData []byte
}

func (c *AdvertiseOp) Variant() Variant   { return Advertise }
func (c *AdvertiseOp) AutoResponds() bool { return true }
func (c *AdvertiseOp) SingleShot() bool   { return true }
func (c *AdvertiseOp) Len() int           { return 3 + len(c.AdvData) + len(c.ScanRspData) }

func (c *AdvertiseOp) Marshal(b []byte) error {
	if len(b) < c.Len() {
		return errShort
	}
	if err := parser.Validate(c.AdvData); err != nil {
		return fmt.Errorf("cmd: adv data: %w", err)
	}
	if err := parser.Validate(c.ScanRspData); err != nil {
		return fmt.Errorf("cmd: scan response: %w", err)
	}
	b[0] = c.PDUType
	b[1] = uint8(len(c.AdvData))
	n := 2 + copy(b[2:], c.AdvData)
	b[n] = uint8(len(c.ScanRspData))
	copy(b[n+1:], c.ScanRspData)
	return nil
}

// GenericRxOp receives on the configured channel, one frame or until stopped.
type GenericRxOp struct {
	Continuous bool
}

func (c *GenericRxOp) Variant() Variant   { return GenericReceive }
func (c *GenericRxOp) AutoResponds() bool { return false }
func (c *GenericRxOp) SingleShot() bool   { return !c.Continuous }
func (c *GenericRxOp) Len() int           { return 1 }

func (c *GenericRxOp) Marshal(b []byte) error {
	if len(b) < c.Len() {
		return errShort
	}
	b[0] = 0
	if c.Continuous {
		b[0] = 1
	}
	return nil
}

// SlaveEventOp is one slave side connection event.
type SlaveEventOp struct {
	Handle     uint16
	WindowTick uint32
	SeqNum     uint8
}

func (c *SlaveEventOp) Variant() Variant   { return ConnectionSlaveEvent }
func (c *SlaveEventOp) AutoResponds() bool { return false }
func (c *SlaveEventOp) SingleShot() bool   { return true }
func (c *SlaveEventOp) Len() int           { return 7 }

func (c *SlaveEventOp) Marshal(b []byte) error {
	if len(b) < c.Len() {
		return errShort
	}
	binary.LittleEndian.PutUint16(b[0:], c.Handle)
	binary.LittleEndian.PutUint32(b[2:], c.WindowTick)
	b[6] = c.SeqNum
	return nil
}

// NopOp does nothing and completes. It is posted after a cancel so there is
// always a terminal completion.
type NopOp struct{}

func (c *NopOp) Variant() Variant     { return NoOperation }
func (c *NopOp) AutoResponds() bool   { return false }
func (c *NopOp) SingleShot() bool     { return true }
func (c *NopOp) Len() int             { return 0 }
func (c *NopOp) Marshal([]byte) error { return nil }
