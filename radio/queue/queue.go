// Package queue implements the fixed-capacity data entry rings shared between
// software and the radio hardware write path.
package queue

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoEntry is returned by Acquire when the next entry is not free. The frame
// that would have used it is dropped and counted.
var ErrNoEntry = errors.New("queue: no free entry")

// Status of a data entry.
type Status uint8

const (
	Pending Status = iota
	Active
	Finished
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Entry is one fixed-size buffer of the ring. While Active, only the current
// writer may touch Buf.
type Entry struct {
	idx    int
	buf    []byte
	n      int
	status Status
}

// Index of the entry in the ring.
func (e *Entry) Index() int { return e.idx }

// Status of the entry.
func (e *Entry) Status() Status { return e.status }

// Buf is the whole backing buffer, for the writer.
func (e *Entry) Buf() []byte { return e.buf }

// Bytes is the written part of a Finished entry.
func (e *Entry) Bytes() []byte { return e.buf[:e.n] }

// Len is the number of bytes written.
func (e *Entry) Len() int { return e.n }

// Queue is a ring of entries allocated once, indexed modulo capacity.
type Queue struct {
	entries []Entry
	arena   []byte

	wr     int // next write target
	rd     int // oldest finished entry
	active int // index of the active entry, -1 if none

	finished int
	dropped  uint32
}

// New allocates a ring of n entries of size bytes each.
func New(n, size int) (*Queue, error) {
	if n <= 0 || size <= 0 {
		return nil, fmt.Errorf("queue: invalid geometry %vx%v", n, size)
	}

	q := &Queue{
		entries: make([]Entry, n),
		arena:   make([]byte, n*size),
		active:  -1,
	}
	for i := range q.entries {
		q.entries[i] = Entry{
			idx: i,
			buf: q.arena[i*size : (i+1)*size : (i+1)*size],
		}
	}
	return q, nil
}

// Cap is the number of entries in the ring.
func (q *Queue) Cap() int { return len(q.entries) }

// Len is the number of Finished entries waiting to be read.
func (q *Queue) Len() int { return q.finished }

// Dropped counts frames lost because no entry was free.
func (q *Queue) Dropped() uint32 { return q.dropped }

// Entry returns entry i of the ring.
func (q *Queue) Entry(i int) *Entry {
	return &q.entries[i%len(q.entries)]
}

// Active returns the entry currently owned by the writer.
func (q *Queue) Active() (*Entry, bool) {
	if q.active < 0 {
		return nil, false
	}
	return &q.entries[q.active], true
}

// Acquire marks the next Pending entry Active and returns it as the write
// target. If an entry is already Active, or the ring has lapped an unread
// Finished entry, the frame is dropped.
func (q *Queue) Acquire() (*Entry, error) {
	if q.active >= 0 {
		q.dropped++
		return nil, ErrNoEntry
	}

	e := &q.entries[q.wr]
	if e.status != Pending {
		q.dropped++
		return nil, ErrNoEntry
	}

	e.status = Active
	e.n = 0
	q.active = e.idx
	return e, nil
}

// Release marks an Active entry Finished with n valid bytes and advances the
// write position.
func (q *Queue) Release(e *Entry, n int) error {
	if e == nil || e.status != Active || e.idx != q.active {
		return fmt.Errorf("queue: release of non-active entry")
	}
	if n < 0 || n > len(e.buf) {
		return fmt.Errorf("queue: invalid length %v", n)
	}

	e.n = n
	e.status = Finished
	q.active = -1
	q.finished++
	q.wr = (q.wr + 1) % len(q.entries)
	return nil
}

// Peek returns the oldest Finished entry.
func (q *Queue) Peek() (*Entry, bool) {
	if q.finished == 0 {
		return nil, false
	}
	return &q.entries[q.rd], true
}

// Recycle returns the oldest Finished entry to Pending once its contents were
// consumed.
func (q *Queue) Recycle(e *Entry) error {
	if e == nil || e.status != Finished || e.idx != q.rd {
		return fmt.Errorf("queue: recycle out of order")
	}

	e.status = Pending
	e.n = 0
	q.finished--
	q.rd = (q.rd + 1) % len(q.entries)
	return nil
}

// ReturnActive hands an Active entry back as Pending without advancing, as
// if the write never started.
func (q *Queue) ReturnActive() bool {
	if q.active < 0 {
		return false
	}

	e := &q.entries[q.active]
	e.status = Pending
	e.n = 0
	q.active = -1
	return true
}

// Flush drops every Finished entry and any Active one.
func (q *Queue) Flush() {
	q.ReturnActive()
	for {
		e, ok := q.Peek()
		if !ok {
			return
		}
		q.Recycle(e)
	}
}
