package cmd

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestResultOnlyAfterComplete(t *testing.T) {
	d := &Descriptor{Op: &GenericRxOp{}}

	if _, err := d.Result(); err != ErrNotComplete {
		t.Fatalf("expected ErrNotComplete, got %v", err)
	}

	d.Complete(Result{Status: DoneOK, LastRSSI: -40})
	r, err := d.Result()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if r.Status != DoneOK || r.LastRSSI != -40 {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestVariantFlags(t *testing.T) {
	tests := []struct {
		op         Op
		variant    Variant
		auto       bool
		singleShot bool
	}{
		{&AdvertiseOp{}, Advertise, true, true},
		{&GenericRxOp{}, GenericReceive, false, true},
		{&GenericRxOp{Continuous: true}, GenericReceive, false, false},
		{&SlaveEventOp{}, ConnectionSlaveEvent, false, true},
		{&NopOp{}, NoOperation, false, true},
	}

	for _, tt := range tests {
		if tt.op.Variant() != tt.variant {
			t.Fatalf("%T: variant %v", tt.op, tt.op.Variant())
		}
		if tt.op.AutoResponds() != tt.auto {
			t.Fatalf("%T: auto responds %v", tt.op, tt.op.AutoResponds())
		}
		if tt.op.SingleShot() != tt.singleShot {
			t.Fatalf("%T: single shot %v", tt.op, tt.op.SingleShot())
		}
	}
}

func TestDescriptorMarshal(t *testing.T) {
	d := &Descriptor{
		Op: &AdvertiseOp{PDUType: 0, AdvData: []byte{2, 1, 6}},
		Tx: true,
		RF: RF{
			Channel:       37,
			AccessAddress: 0x8E89BED6,
			CRCInit:       0x555555,
			PHY:           PHY1M,
		},
		Trigger: Trigger{Kind: AtAbsoluteTick, Ticks: 0x01020304},
	}

	b := make([]byte, d.Len())
	if err := d.Marshal(b); err != nil {
		t.Fatal(err)
	}

	if b[0] != uint8(Advertise) || b[1] != 1 || b[2] != 37 {
		t.Fatalf("bad header % X", b[:3])
	}
	if binary.LittleEndian.Uint32(b[3:]) != 0x8E89BED6 {
		t.Fatalf("bad access address % X", b[3:7])
	}
	if !bytes.Equal(b[7:10], []byte{0x55, 0x55, 0x55}) {
		t.Fatalf("bad crc init % X", b[7:10])
	}
	if binary.LittleEndian.Uint32(b[12:]) != 0x01020304 {
		t.Fatalf("bad trigger % X", b[12:16])
	}
	if !bytes.Equal(b[descriptorHeaderLen:], []byte{0, 3, 2, 1, 6, 0}) {
		t.Fatalf("bad op % X", b[descriptorHeaderLen:])
	}

	if err := d.Marshal(make([]byte, 4)); err == nil {
		t.Fatal("no error on short buffer")
	}
}

func TestStatusClasses(t *testing.T) {
	if !DoneOK.IsDone() || DoneOK.IsError() {
		t.Fatal("DoneOK misclassified")
	}
	if !ErrorRxBuf.IsError() || !ErrorPastStart.IsError() {
		t.Fatal("error status misclassified")
	}
	if Active.IsDone() || Active.IsError() {
		t.Fatal("Active misclassified")
	}
}

func TestParsePHY(t *testing.T) {
	for _, p := range []PHY{PHY1M, PHY2M, PHYCoded} {
		got, err := ParsePHY(p.String())
		if err != nil || got != p {
			t.Fatalf("%v: got %v, %v", p, got, err)
		}
	}
	if _, err := ParsePHY("3M"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAdvertiseRejectsMalformedData(t *testing.T) {
	d := &Descriptor{Op: &AdvertiseOp{AdvData: []byte{0x05, 0x01, 0x06}}}
	b := make([]byte, d.Len())
	if err := d.Marshal(b); err == nil {
		t.Fatalf("truncated adv data accepted")
	}

	d.Op = &AdvertiseOp{ScanRspData: make([]byte, 40)}
	b = make([]byte, d.Len())
	if err := d.Marshal(b); err == nil {
		t.Fatalf("oversized scan response accepted")
	}
}
