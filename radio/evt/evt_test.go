package evt

import (
	"bytes"
	"testing"

	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/timer"
)

func TestExtractTrailerRoundTrip(t *testing.T) {
	pdu := []byte{0x03, 0x04, 0xde, 0xad, 0xbe, 0xef}
	tr := Trailer{
		CRC:       0xabcdef,
		RSSI:      -67,
		Status:    12,
		Timestamp: 0x12345678,
	}
	e := AppendRxEntry(nil, DefaultLayout, pdu, tr)

	if e[0] != byte(len(e)-1) {
		t.Fatalf("length byte %v, entry %v", e[0], len(e))
	}

	dst := make([]byte, 64)
	f, err := Extract(RxEntry(e), DefaultLayout, cmd.PHY1M, timer.Rate4MHz, dst)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if !bytes.Equal(f.Payload, pdu) {
		t.Fatalf("payload % X", f.Payload)
	}
	if f.CRC != tr.CRC {
		t.Fatalf("crc %06X", f.CRC)
	}
	if f.RSSI != tr.RSSI {
		t.Fatalf("rssi %v", f.RSSI)
	}
	if f.Channel != 12 {
		t.Fatalf("channel %v", f.Channel)
	}
	if f.Timestamp != tr.Timestamp {
		t.Fatalf("timestamp %08X", f.Timestamp)
	}

	// (6 + 3) bytes * 8us at 1M = 72us = 288 ticks at 4MHz
	if f.End != tr.Timestamp+288 {
		t.Fatalf("end %v, expected %v", f.End, tr.Timestamp+288)
	}
}

func TestExtractCRCError(t *testing.T) {
	e := AppendRxEntry(nil, DefaultLayout, []byte{1, 2, 3}, Trailer{Status: StatusCRCErr, Timestamp: 500})

	f, err := Extract(RxEntry(e), DefaultLayout, cmd.PHY1M, timer.Rate4MHz, make([]byte, 16))
	if err != ErrNoFrame {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
	if f.Payload != nil {
		t.Fatal("payload copied for crc error")
	}
	if f.Timestamp != 500 {
		t.Fatalf("timestamp should survive crc error, got %v", f.Timestamp)
	}
}

func TestExtractEmpty(t *testing.T) {
	if _, err := Extract(nil, DefaultLayout, cmd.PHY1M, timer.Rate4MHz, nil); err != ErrNoFrame {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}

	e := AppendRxEntry(nil, DefaultLayout, nil, Trailer{})
	if _, err := Extract(RxEntry(e), DefaultLayout, cmd.PHY1M, timer.Rate4MHz, nil); err != ErrNoFrame {
		t.Fatalf("expected ErrNoFrame for pdu-less entry, got %v", err)
	}
}

func TestExtractTruncatesToDst(t *testing.T) {
	pdu := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	e := AppendRxEntry(nil, DefaultLayout, pdu, Trailer{})

	dst := make([]byte, 4)
	f, err := Extract(RxEntry(e), DefaultLayout, cmd.PHY1M, timer.Rate4MHz, dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(f.Payload, pdu[:4]) || f.Length != len(pdu) {
		t.Fatalf("payload % X length %v", f.Payload, f.Length)
	}
}

func TestExtractLengthMismatch(t *testing.T) {
	e := AppendRxEntry(nil, DefaultLayout, []byte{1, 2}, Trailer{})
	e[0]++
	if _, err := Extract(RxEntry(e), DefaultLayout, cmd.PHY1M, timer.Rate4MHz, make([]byte, 8)); err == nil {
		t.Fatal("no error on length mismatch")
	}
}

func TestExtractMinimalLayout(t *testing.T) {
	l := Layout{Timestamp: true}
	e := AppendRxEntry(nil, l, []byte{9, 9}, Trailer{Timestamp: 77})

	f, err := Extract(RxEntry(e), l, cmd.PHY2M, timer.Rate4MHz, make([]byte, 8))
	if err != nil {
		t.Fatal(err)
	}
	if f.RSSI != RSSIInvalid || f.Timestamp != 77 {
		t.Fatalf("unexpected frame %+v", f)
	}
	// (2 + 3) * 8 bits at 0.5us = 20us = 80 ticks
	if f.End != 77+80 {
		t.Fatalf("end %v", f.End)
	}
}

func TestAirtime(t *testing.T) {
	tests := []struct {
		n   int
		phy cmd.PHY
		us  uint32
	}{
		{0, cmd.PHY1M, 24},
		{37, cmd.PHY1M, 320},
		{37, cmd.PHY2M, 160},
		{1, cmd.PHYCoded, 256},
	}
	for _, tt := range tests {
		if v := Airtime(tt.n, tt.phy); v != tt.us {
			t.Fatalf("airtime(%v, %v) = %v, expected %v", tt.n, tt.phy, v, tt.us)
		}
	}
}

func TestMaskString(t *testing.T) {
	m := RxOk | LastCommandDone
	if s := m.String(); s != "LastCommandDone|RxOk" {
		t.Fatalf("mask string %q", s)
	}
	if Mask(0).String() != "none" {
		t.Fatal("empty mask string")
	}
}
