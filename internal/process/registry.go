package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frontendtony/dualexe/internal/config"
	"github.com/frontendtony/dualexe/internal/logging"
)

var (
	ErrUndefined      = errors.New("undefined")
	ErrAlreadyRunning = errors.New("already running")
	ErrNotRunning     = errors.New("not running")
	ErrShuttingDown   = errors.New("shutting down")
)

type stopRequest int

const (
	stopNone stopRequest = iota
	stopGraceful
	stopForce
)

// entry is the registry's view of one label. All fields are guarded by
// Registry.mu.
type entry struct {
	status           Status
	handle           Handle
	pending          stopRequest // stop asked for before the handle existed
	askedToStop      bool
	restartRequested bool
	attempt          int // consecutive automatic relaunches
	restarts         int
	pid              int
	startedAt        time.Time
	stoppedAt        time.Time
	exitCode         int
	wake             chan struct{} // closed to cut a relaunch backoff short
}

// Registry owns every label's lifecycle. At most one process instance runs
// per label; all state transitions happen under one lock so a concurrent
// input or stop sees either the old handle or the new one.
type Registry struct {
	ctx     context.Context
	config  *config.Config
	out     Sink
	log     *slog.Logger
	tracker *Tracker

	mu      sync.Mutex
	entries map[string]*entry
	history map[string]*logging.RingBuffer
}

// NewRegistry creates an idle registry for every label in cfg. Cancelling
// ctx abandons pending relaunches; it does not signal running children.
func NewRegistry(ctx context.Context, cfg *config.Config, out Sink) *Registry {
	r := &Registry{
		ctx:     ctx,
		config:  cfg,
		out:     out,
		log:     slog.Default(),
		tracker: NewTracker(),
		entries: make(map[string]*entry),
		history: make(map[string]*logging.RingBuffer),
	}
	for _, label := range cfg.Labels() {
		r.entries[label] = &entry{status: StatusIdle}
		r.history[label] = logging.NewRingBuffer(logging.DefaultBufferSize)
	}
	return r
}

// Done returns a channel that closes once every tracked lifecycle has ended.
func (r *Registry) Done() <-chan struct{} {
	return r.tracker.Wait()
}

// StartAll starts every configured label in configuration order and returns
// how many were started.
func (r *Registry) StartAll() int {
	// Hold the tracker open so an early exit cannot drain it mid-scan, and so
	// an empty configuration still completes.
	if !r.tracker.Add() {
		return 0
	}
	defer r.tracker.Done()

	started := 0
	for _, label := range r.config.Labels() {
		if err := r.Start(label); err != nil {
			r.log.Warn("initial start", "label", label, "error", err)
			continue
		}
		started++
	}
	return started
}

func (r *Registry) lookup(label string) (*entry, error) {
	e, ok := r.entries[label]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefined, label)
	}
	return e, nil
}

// Start launches a fresh lifecycle for label, clearing asked-to-stop.
func (r *Registry) Start(label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(label)
	if err != nil {
		return err
	}
	if e.status.Active() {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, label)
	}
	if !r.tracker.Add() {
		return fmt.Errorf("%w: %s", ErrShuttingDown, label)
	}

	e.status = StatusStarting
	e.askedToStop = false
	e.restartRequested = false
	e.pending = stopNone
	e.attempt = 0
	e.restarts = 0

	go r.run(label)
	return nil
}

// Input forwards text verbatim to the label's standard input.
func (r *Registry) Input(label, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(label)
	if err != nil {
		return err
	}
	if !e.status.Live() {
		return fmt.Errorf("%w: %s", ErrNotRunning, label)
	}
	if e.handle == nil {
		// Still spawning.
		return nil
	}
	return r.deliver(label, e, func(h Handle) error { return h.SendInput(text) })
}

// Stop sends the label's stop command and keeps it from relaunching.
func (r *Registry) Stop(label string) error {
	return r.halt(label, stopGraceful)
}

// Kill terminates the label's process and keeps it from relaunching.
func (r *Registry) Kill(label string) error {
	return r.halt(label, stopForce)
}

func (r *Registry) halt(label string, req stopRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(label)
	if err != nil {
		return err
	}
	if !e.status.Active() {
		return fmt.Errorf("%w: %s", ErrNotRunning, label)
	}
	e.askedToStop = true
	return r.request(label, e, req)
}

// Restart gracefully stops the label and relaunches it on exit, whether or
// not it is configured to restart automatically.
func (r *Registry) Restart(label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(label)
	if err != nil {
		return err
	}
	if !e.status.Active() {
		return fmt.Errorf("%w: %s", ErrNotRunning, label)
	}
	if e.askedToStop {
		// A stop is already under way and wins.
		return nil
	}
	e.restartRequested = true
	e.attempt = 0
	if e.status == StatusStopping {
		return nil
	}
	return r.request(label, e, stopGraceful)
}

// request applies a stop to whatever phase the entry is in. Callers hold mu.
func (r *Registry) request(label string, e *entry, req stopRequest) error {
	switch e.status {
	case StatusStarting:
		if req > e.pending {
			e.pending = req
		}
		return nil
	case StatusRestarting:
		e.wakeUp()
		return nil
	}

	e.status = StatusStopping
	return r.deliver(label, e, func(h Handle) error { return h.RequestStop(req == stopForce) })
}

// deliver calls fn on the entry's handle, treating a process that already
// exited as a no-op. Callers hold mu.
func (r *Registry) deliver(label string, e *entry, fn func(Handle) error) error {
	err := fn(e.handle)
	if errors.Is(err, ErrProcessExited) {
		r.log.Debug("capability unavailable", "label", label, "error", err)
		return nil
	}
	return err
}

func (e *entry) wakeUp() {
	if e.wake != nil {
		close(e.wake)
		e.wake = nil
	}
}

// ExitAll gracefully stops every active label and returns how many.
func (r *Registry) ExitAll() int {
	return r.haltAll(stopGraceful)
}

// KillAll terminates every active label and returns how many.
func (r *Registry) KillAll() int {
	return r.haltAll(stopForce)
}

func (r *Registry) haltAll(req stopRequest) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, label := range r.config.Labels() {
		e := r.entries[label]
		if !e.status.Active() {
			continue
		}
		e.askedToStop = true
		if err := r.request(label, e, req); err != nil {
			r.log.Warn("stopping", "label", label, "error", err)
		}
		n++
	}
	return n
}

// States returns a snapshot of every label in configuration order.
func (r *Registry) States() []ProcessState {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make([]ProcessState, 0, len(r.entries))
	for _, label := range r.config.Labels() {
		e := r.entries[label]
		states = append(states, ProcessState{
			Label:       label,
			Status:      e.status,
			PID:         e.pid,
			StartedAt:   e.startedAt,
			StoppedAt:   e.stoppedAt,
			Restarts:    e.restarts,
			ExitCode:    e.exitCode,
			AskedToStop: e.askedToStop,
		})
	}
	return states
}

// History returns up to n of the label's most recent output lines.
func (r *Registry) History(label string, n int) ([]logging.Entry, error) {
	r.mu.Lock()
	buf, ok := r.history[label]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefined, label)
	}
	return buf.Last(n), nil
}
