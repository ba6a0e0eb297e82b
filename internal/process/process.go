package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/frontendtony/dualexe/internal/config"
	"github.com/frontendtony/dualexe/internal/logging"
	"github.com/frontendtony/dualexe/internal/stream"
	"golang.org/x/sync/errgroup"
)

const (
	shell = "sh"

	// drainTimeout bounds how long output is read after the child exits.
	// Descendants that inherited the pipes can otherwise hold them open.
	drainTimeout = 2 * time.Second

	// spawnFailureCode is the exit code reported when the command could not
	// be started at all.
	spawnFailureCode = -1
)

const (
	SourceStdout = "STDOUT"
	SourceStderr = "STDERR"
)

// Sink receives labeled child output and supervisor notices.
type Sink interface {
	Stdout(label, line string)
	Stderr(label, line string)
	Info(msg string)
	Error(msg string)
}

// ManagedProcess owns one spawn of a label's command: its output streams,
// its input and stop capability, and its exit.
type ManagedProcess struct {
	label   string
	config  config.Process
	out     Sink
	history *logging.RingBuffer
	log     *slog.Logger

	stdout *stream.Stream
	stderr *stream.Stream

	cmd     *exec.Cmd
	ptmx    *os.File // PTY master (nil in pipe mode)
	readers []*os.File
	group   errgroup.Group
	done    chan struct{}
}

// NewManagedProcess prepares a spawn of cfg under label. history may be nil.
func NewManagedProcess(label string, cfg config.Process, out Sink, history *logging.RingBuffer, log *slog.Logger) *ManagedProcess {
	if log == nil {
		log = slog.Default()
	}
	p := &ManagedProcess{
		label:   label,
		config:  cfg,
		out:     out,
		history: history,
		log:     log,
		done:    make(chan struct{}),
	}
	p.stdout = stream.New(func(line, style string) { p.emit(SourceStdout, line, style) })
	p.stderr = stream.New(func(line, style string) { p.emit(SourceStderr, line, style) })
	return p
}

// Start launches the command via sh -c and returns the capability handle
// bound to it. In PTY mode it falls back to pipes if no PTY can be allocated.
func (p *ManagedProcess) Start() (Handle, error) {
	var (
		stdin io.Writer
		err   error
	)
	if p.config.PTY {
		stdin, err = p.startPTY()
		if err != nil {
			p.log.Warn("pty unavailable, falling back to pipes", "error", err)
			stdin, err = p.startPipes()
		}
	} else {
		stdin, err = p.startPipes()
	}
	if err != nil {
		return nil, fmt.Errorf("spawning %q: %w", p.config.Command, err)
	}

	p.log.Debug("spawned", "pid", p.cmd.Process.Pid, "pty", p.ptmx != nil)
	return newProcessHandle(p.cmd.Process.Pid, p.config.StopCommand, stdin, p.done, p.log), nil
}

func (p *ManagedProcess) command() *exec.Cmd {
	cmd := exec.Command(shell, "-c", p.config.Command)
	if p.config.Cwd != "" {
		cmd.Dir = p.config.Cwd
	}
	cmd.Env = buildEnv(p.config.Env)
	return cmd
}

func (p *ManagedProcess) startPTY() (io.Writer, error) {
	cmd := p.command()
	// pty.Start puts the child in a new session, which also makes it a
	// process group leader.
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	p.cmd = cmd
	p.ptmx = ptmx
	p.readers = []*os.File{ptmx}
	// The line discipline turns \n into \r\n.
	p.stdout.TrimCR = true
	p.pump(ptmx, p.stdout)
	return ptmx, nil
}

func (p *ManagedProcess) startPipes() (io.Writer, error) {
	cmd := p.command()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, err
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	err = cmd.Start()
	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()
	if err != nil {
		outR.Close()
		errR.Close()
		return nil, err
	}

	p.cmd = cmd
	p.readers = []*os.File{outR, errR}
	p.pump(outR, p.stdout)
	p.pump(errR, p.stderr)
	return stdin, nil
}

func (p *ManagedProcess) pump(r io.Reader, s *stream.Stream) {
	p.group.Go(func() error {
		_, err := io.Copy(s, r)
		if err != nil && !endOfOutput(err) {
			return err
		}
		return nil
	})
}

// endOfOutput reports read errors that just mean the other side is gone: a
// PTY master returns EIO once the child's terminal closes, and a read end we
// closed after the drain timeout returns ErrClosed.
func endOfOutput(err error) bool {
	return errors.Is(err, os.ErrClosed) || errors.Is(err, syscall.EIO)
}

// Wait blocks until the process exits and its output is drained, flushes
// both streams and returns the exit code (-1 if killed by a signal).
func (p *ManagedProcess) Wait() int {
	waitErr := p.cmd.Wait()
	close(p.done)

	drained := make(chan error, 1)
	go func() { drained <- p.group.Wait() }()

	var readErr error
	select {
	case readErr = <-drained:
	case <-time.After(drainTimeout):
		p.log.Warn("output still open after exit, closing", "timeout", drainTimeout)
		p.closeReaders()
		readErr = <-drained
	}
	if readErr != nil {
		p.log.Warn("reading child output", "error", readErr)
	}
	p.closeReaders()

	p.stdout.Flush()
	p.stderr.Flush()

	code := exitCode(waitErr)
	p.log.Debug("exited", "code", code, "error", waitErr)
	return code
}

// PID returns the OS process id, or 0 before Start.
func (p *ManagedProcess) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *ManagedProcess) closeReaders() {
	for _, f := range p.readers {
		_ = f.Close()
	}
}

func (p *ManagedProcess) emit(source, line, style string) {
	text := style + line
	if p.history != nil {
		p.history.Add(source, text)
	}
	if source == SourceStderr {
		p.out.Stderr(p.label, text)
		return
	}
	p.out.Stdout(p.label, text)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return spawnFailureCode
}

func buildEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
