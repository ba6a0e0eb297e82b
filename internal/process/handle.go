package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"syscall"
	"time"
)

const (
	inputBacklog = 64
	killTimeout  = 10 * time.Second
)

var (
	// ErrProcessExited is returned by a Handle whose process is gone.
	ErrProcessExited = errors.New("process has exited")
	// ErrInputBacklog is returned when the child is not draining its input.
	ErrInputBacklog = errors.New("input backlog full")
)

// Handle is the capability to talk to one running child process.
type Handle interface {
	// SendInput forwards text to the child's standard input as-is.
	SendInput(text string) error
	// RequestStop writes the configured stop command followed by a newline,
	// or terminates the process when force is set.
	RequestStop(force bool) error
}

// processHandle is bound to one OS process. Input is written by its own
// goroutine so callers never block on a child that stops reading.
type processHandle struct {
	pid         int
	stopCommand string
	input       chan string
	done        <-chan struct{}
	signal      func(sig syscall.Signal) error
	log         *slog.Logger
}

func newProcessHandle(pid int, stopCommand string, w io.Writer, done <-chan struct{}, log *slog.Logger) *processHandle {
	h := &processHandle{
		pid:         pid,
		stopCommand: stopCommand,
		input:       make(chan string, inputBacklog),
		done:        done,
		log:         log,
		signal: func(sig syscall.Signal) error {
			// The child leads its own process group; signal all of it.
			return syscall.Kill(-pid, sig)
		},
	}
	go h.writeLoop(w)
	return h
}

func (h *processHandle) writeLoop(w io.Writer) {
	for {
		select {
		case text := <-h.input:
			if _, err := io.WriteString(w, text); err != nil {
				h.log.Debug("writing to child input", "pid", h.pid, "error", err)
			}
		case <-h.done:
			return
		}
	}
}

func (h *processHandle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *processHandle) SendInput(text string) error {
	if h.exited() {
		return ErrProcessExited
	}
	select {
	case h.input <- text:
		return nil
	default:
		return ErrInputBacklog
	}
}

func (h *processHandle) RequestStop(force bool) error {
	if !force {
		return h.SendInput(h.stopCommand + "\n")
	}
	if h.exited() {
		return ErrProcessExited
	}

	if err := h.signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return ErrProcessExited
		}
		return fmt.Errorf("terminating process %d: %w", h.pid, err)
	}

	time.AfterFunc(killTimeout, func() {
		if h.exited() {
			return
		}
		h.log.Warn("process ignored SIGTERM, sending SIGKILL", "pid", h.pid)
		_ = h.signal(syscall.SIGKILL)
	})
	return nil
}
