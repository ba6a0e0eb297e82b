package process

import (
	"fmt"
	"time"

	"github.com/frontendtony/dualexe/internal/config"
	"github.com/google/uuid"
)

// run is one label's lifecycle: spawn, wait for exit, then either relaunch
// under the same label or finish. It holds a tracker slot until it returns.
func (r *Registry) run(label string) {
	defer r.tracker.Done()

	def, _ := r.config.Lookup(label)
	for {
		code := r.runOnce(label, def)
		delay, wake, relaunch := r.settle(label, def, code)
		if !relaunch {
			return
		}
		if !r.await(label, delay, wake) {
			return
		}
	}
}

// runOnce spawns the label's command and blocks until it exits and its
// output is flushed.
func (r *Registry) runOnce(label string, def config.Process) int {
	log := r.log.With("label", label, "run", uuid.NewString())

	r.out.Info("Starting: " + label)
	proc := NewManagedProcess(label, def, r.out, r.history[label], log)
	h, err := proc.Start()
	if err != nil {
		log.Error("spawn failed", "error", err)
		r.out.Error(fmt.Sprintf("Failed to start %s: %v", label, err))
		return spawnFailureCode
	}
	r.install(label, h, proc.PID())

	return proc.Wait()
}

// install publishes the handle of a freshly spawned process and delivers any
// stop that arrived while it was starting.
func (r *Registry) install(label string, h Handle, pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[label]
	e.handle = h
	e.pid = pid
	e.startedAt = time.Now()
	e.stoppedAt = time.Time{}
	e.status = StatusRunning

	if req := e.pending; req != stopNone {
		e.pending = stopNone
		if err := r.request(label, e, req); err != nil {
			r.log.Warn("delivering pending stop", "label", label, "error", err)
		}
	}
}

// settle retires the exited process and decides whether to relaunch. The
// handle is removed in the same critical section as the status change.
func (r *Registry) settle(label string, def config.Process, code int) (time.Duration, <-chan struct{}, bool) {
	var notices []string
	defer func() {
		for _, n := range notices {
			r.out.Info(n)
		}
	}()
	notices = append(notices, fmt.Sprintf("Exit: %s / code %d", label, code))

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[label]
	e.handle = nil
	e.pid = 0
	e.pending = stopNone
	e.stoppedAt = time.Now()
	e.exitCode = code

	if e.askedToStop || !(e.restartRequested || def.AutoRestart) {
		e.status = StatusIdle
		e.restartRequested = false
		return 0, nil, false
	}

	var delay time.Duration
	if e.restartRequested {
		e.restartRequested = false
		e.attempt = 0
	} else {
		if !shouldRetry(e.attempt, def.Retry) {
			e.status = StatusIdle
			notices = append(notices, fmt.Sprintf("Giving up: %s after %d restarts", label, e.attempt))
			return 0, nil, false
		}
		delay = nextBackoff(e.attempt, def.Retry)
		e.attempt++
	}

	e.restarts++
	e.status = StatusRestarting
	e.wake = make(chan struct{})
	if delay > 0 {
		notices = append(notices, fmt.Sprintf("Restarting %s in %s", label, delay.Round(time.Millisecond)))
	}
	r.log.Info("scheduling relaunch", "label", label, "attempt", e.attempt, "backoff", delay)
	return delay, e.wake, true
}

// await sleeps out the relaunch backoff. It returns false if the label was
// stopped in the meantime or the registry's context ended.
func (r *Registry) await(label string, delay time.Duration, wake <-chan struct{}) bool {
	cancelled := false
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-wake:
		case <-r.ctx.Done():
			cancelled = true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[label]
	e.wake = nil
	if cancelled || e.askedToStop {
		e.status = StatusIdle
		return false
	}
	e.status = StatusStarting
	return true
}
