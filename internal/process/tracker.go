package process

import "sync"

// Tracker counts outstanding lifecycles. Its Wait channel closes the first
// time the count drops to zero, after which no new lifecycle may be added.
type Tracker struct {
	mu      sync.Mutex
	pending int
	drained bool
	done    chan struct{}
}

func NewTracker() *Tracker {
	return &Tracker{done: make(chan struct{})}
}

// Add registers one lifecycle. It returns false once the tracker has drained.
func (t *Tracker) Add() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.drained {
		return false
	}
	t.pending++
	return true
}

// Done resolves one lifecycle registered with Add.
func (t *Tracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == 0 {
		panic("process: Tracker.Done without matching Add")
	}
	t.pending--
	if t.pending == 0 {
		t.drained = true
		close(t.done)
	}
}

// Pending returns the number of unresolved lifecycles.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Wait returns a channel that closes when every lifecycle has resolved.
func (t *Tracker) Wait() <-chan struct{} {
	return t.done
}
