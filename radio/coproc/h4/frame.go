package h4

import (
	"encoding/binary"
	"fmt"
	"time"
)

// frameTimeout drops a partially received packet when the rest is late.
const frameTimeout = 500 * time.Millisecond

type frame struct {
	b       []byte
	timeout time.Time
	out     chan []byte
	done    <-chan struct{}
}

func newFrame(c chan []byte, done <-chan struct{}) *frame {
	return &frame{
		b:    make([]byte, 0, 512),
		out:  c,
		done: done,
	}
}

// Assemble feeds raw bytes from the line and emits every complete packet.
func (f *frame) Assemble(b []byte) {
	switch {
	case len(b) == 0:
		return

	case !f.timeout.IsZero() && time.Now().After(f.timeout):
		//timed out
		fallthrough
	case f.b == nil:
		f.reset()
	}

	if len(f.b) == 0 {
		if err := f.waitStart(b); err != nil {
			return
		}
	} else {
		f.b = append(f.b, b...)
	}

	for {
		rf, err := f.frame()
		if err != nil {
			return
		}
		out := make([]byte, len(rf))
		copy(out, rf)
		select {
		case f.out <- out:
		case <-f.done:
			return
		}

		rem := f.b[len(rf):]
		if len(rem) == 0 {
			f.reset()
			return
		}

		// shift and look for the next start in what is left
		next := make([]byte, len(rem))
		copy(next, rem)
		f.reset()
		if err := f.waitStart(next); err != nil {
			return
		}
	}
}

func (f *frame) reset() {
	f.b = make([]byte, 0, 512)
	f.timeout = time.Time{}
}

func (f *frame) waitStart(b []byte) error {
	for i, v := range b {
		if v != cmdPacket && v != evtPacket {
			continue
		}
		f.timeout = time.Now().Add(frameTimeout)
		f.b = append(f.b, b[i:]...)
		return nil
	}
	return fmt.Errorf("couldnt find start byte")
}

func (f *frame) frame() ([]byte, error) {
	if len(f.b) < headerLength {
		return nil, fmt.Errorf("not enough bytes")
	}

	tl := int(binary.LittleEndian.Uint16(f.b[2:])) + headerLength
	if len(f.b) < tl {
		return nil, fmt.Errorf("not enough bytes")
	}
	return f.b[:tl], nil
}

// packet encodes one packet.
func packet(typ, code byte, payload []byte) []byte {
	b := make([]byte, headerLength+len(payload))
	b[0] = typ
	b[1] = code
	binary.LittleEndian.PutUint16(b[2:], uint16(len(payload)))
	copy(b[headerLength:], payload)
	return b
}
