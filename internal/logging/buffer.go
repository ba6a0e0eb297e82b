package logging

import (
	"sync"
	"time"
)

const DefaultBufferSize = 1000

// Entry is one line of child output kept for later replay.
type Entry struct {
	Time   time.Time
	Source string
	Text   string
}

// RingBuffer is a thread-safe circular buffer of output lines.
type RingBuffer struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &RingBuffer{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Add appends a line, stamped with the current time.
func (rb *RingBuffer) Add(source, text string) {
	rb.Append(Entry{Time: time.Now(), Source: source, Text: text})
}

// Append stores e, overwriting the oldest entry when full.
func (rb *RingBuffer) Append(e Entry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.entries[rb.pos] = e
	rb.pos = (rb.pos + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
}

// Last returns the last n entries, oldest first. If n <= 0 or n > count, it
// returns all entries.
func (rb *RingBuffer) Last(n int) []Entry {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if n <= 0 || n > rb.count {
		n = rb.count
	}
	if n == 0 {
		return nil
	}

	result := make([]Entry, n)
	start := (rb.pos - n + rb.size) % rb.size
	for i := 0; i < n; i++ {
		result[i] = rb.entries[(start+i)%rb.size]
	}
	return result
}

// All returns all entries in order.
func (rb *RingBuffer) All() []Entry {
	return rb.Last(0)
}

// Len returns the number of entries currently in the buffer.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}
