package h4

import (
	"bytes"
	"testing"
)

func collect(c chan []byte) [][]byte {
	var out [][]byte
	for {
		select {
		case p := <-c:
			out = append(out, p)
		default:
			return out
		}
	}
}

func TestAssemble(t *testing.T) {
	a := packet(evtPacket, evtComplete, []byte{1, 2, 3})
	b := packet(evtPacket, evtRxEntry, bytes.Repeat([]byte{0xAA}, 300))

	stream := append([]byte{0x00, 0xff}, a...)
	stream = append(stream, b...)

	tests := []struct {
		name  string
		split []int
	}{
		{"whole", nil},
		{"byte by byte", []int{1}},
		{"split header", []int{4, 3}},
		{"split payload", []int{9, 200}},
	}

	for _, tc := range tests {
		c := make(chan []byte, 8)
		f := newFrame(c, nil)

		rest := stream
		for i := 0; len(rest) > 0; i++ {
			n := len(rest)
			if len(tc.split) > 0 {
				n = tc.split[i%len(tc.split)]
				if n > len(rest) {
					n = len(rest)
				}
			}
			f.Assemble(rest[:n])
			rest = rest[n:]
		}

		got := collect(c)
		if len(got) != 2 {
			t.Fatalf("%v: expected 2 packets, got %v", tc.name, len(got))
		}
		if !bytes.Equal(got[0], a) || !bytes.Equal(got[1], b) {
			t.Fatalf("%v: packets differ", tc.name)
		}
	}
}

func TestAssembleIncomplete(t *testing.T) {
	c := make(chan []byte, 1)
	f := newFrame(c, nil)

	p := packet(cmdPacket, opCancel, []byte{1, 0})
	f.Assemble(p[:len(p)-1])
	if len(collect(c)) != 0 {
		t.Fatalf("incomplete packet emitted")
	}
	f.Assemble(p[len(p)-1:])
	if got := collect(c); len(got) != 1 || !bytes.Equal(got[0], p) {
		t.Fatalf("unexpected packets %x", got)
	}
}
