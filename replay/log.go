// Package replay records brush occurrences and plays them back through a brush
// session. Logs serialize to a versioned little-endian record format, optionally
// compressed, so stroke recordings can drive regression tests.
package replay

import "slices"

// Occurrence is one recorded paint event.
type Occurrence struct {
	// X and Y are the normalized terrain coordinates of the brush center.
	X, Y     float32
	Strength float32
	Size     float32
	// Rotation in degrees.
	Rotation float32
	// Texture names the brush tip. Empty selects the unnamed tip the replaying session was created with.
	Texture string
}

// Log is a first-in first-out queue of occurrences in recording order.
// The zero value is an empty log.
type Log struct {
	items []Occurrence
	head  int
}

// NewLog creates a log holding occurrences in order.
func NewLog(occurrences ...Occurrence) *Log {
	return &Log{items: slices.Clone(occurrences)}
}

// Enqueue appends o at the back of the log.
func (l *Log) Enqueue(o Occurrence) {
	l.items = append(l.items, o)
}

// Dequeue removes and returns the oldest occurrence.
func (l *Log) Dequeue() (Occurrence, bool) {
	if l.head >= len(l.items) {
		return Occurrence{}, false
	}
	o := l.items[l.head]
	l.head++
	if l.head == len(l.items) {
		l.items = l.items[:0]
		l.head = 0
	}
	return o, true
}

// Peek returns the oldest occurrence without removing it.
func (l *Log) Peek() (Occurrence, bool) {
	if l.head >= len(l.items) {
		return Occurrence{}, false
	}
	return l.items[l.head], true
}

// Len returns the number of queued occurrences.
func (l *Log) Len() int { return len(l.items) - l.head }

// Occurrences returns a copy of the queued occurrences, oldest first.
func (l *Log) Occurrences() []Occurrence {
	return slices.Clone(l.items[l.head:])
}

// Clone returns an independent copy of the queue so it can be replayed more than once.
func (l *Log) Clone() *Log {
	return NewLog(l.items[l.head:]...)
}
