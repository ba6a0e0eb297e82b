package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/frontendtony/dualexe/internal/logging"
	"github.com/frontendtony/dualexe/internal/process"
)

// Controller is the part of the process registry the dispatcher drives.
type Controller interface {
	Start(label string) error
	Stop(label string) error
	Kill(label string) error
	Restart(label string) error
	Input(label, text string) error
	ExitAll() int
	KillAll() int
	States() []process.ProcessState
	History(label string, n int) ([]logging.Entry, error)
}

// Dispatcher routes operator lines to a Controller and reports the outcome
// as notices. No command error ends the session.
type Dispatcher struct {
	ctl Controller
	out process.Sink
}

func NewDispatcher(ctl Controller, out process.Sink) *Dispatcher {
	return &Dispatcher{ctl: ctl, out: out}
}

// Dispatch parses and executes one operator line.
func (d *Dispatcher) Dispatch(line string) {
	cmd, err := Parse(line)
	switch {
	case errors.Is(err, ErrEmpty):
		return
	case errors.Is(err, ErrUnknownCommand):
		d.out.Error("Unknown command: " + cmd.Name)
		return
	case errors.Is(err, ErrMissingLabel):
		d.out.Error("Missing label: " + cmd.Name)
		return
	case err != nil:
		d.out.Error(err.Error())
		return
	}
	d.Execute(cmd)
}

// Execute runs an already parsed command.
func (d *Dispatcher) Execute(cmd Command) {
	switch cmd.Name {
	case Start:
		d.report(cmd.Label, d.ctl.Start(cmd.Label))
	case Stop:
		d.report(cmd.Label, d.ctl.Stop(cmd.Label))
	case Kill:
		d.report(cmd.Label, d.ctl.Kill(cmd.Label))
	case Restart:
		d.report(cmd.Label, d.ctl.Restart(cmd.Label))
	case Input:
		d.report(cmd.Label, d.ctl.Input(cmd.Label, cmd.Text))
	case Send:
		d.report(cmd.Label, d.ctl.Input(cmd.Label, cmd.Text+"\n"))
	case Exit:
		if n := d.ctl.ExitAll(); n > 0 {
			d.out.Info(fmt.Sprintf("Stopping %d %s", n, plural(n)))
		}
	case KillAll:
		if n := d.ctl.KillAll(); n > 0 {
			d.out.Info(fmt.Sprintf("Killing %d %s", n, plural(n)))
		}
	case Status:
		d.status()
	case Tail:
		d.tail(cmd.Label, cmd.Lines)
	case Help:
		d.help()
	default:
		d.out.Error("Unknown command: " + cmd.Name)
	}
}

// report turns a registry error into the matching notice.
func (d *Dispatcher) report(label string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, process.ErrUndefined):
		d.out.Info("Undefined: " + label)
	case errors.Is(err, process.ErrAlreadyRunning):
		d.out.Info("Already running: " + label)
	case errors.Is(err, process.ErrNotRunning):
		d.out.Info("Not running: " + label)
	case errors.Is(err, process.ErrShuttingDown):
		d.out.Info("Shutting down, not starting: " + label)
	default:
		d.out.Error(fmt.Sprintf("%s: %v", label, err))
	}
}

func (d *Dispatcher) status() {
	for _, s := range d.ctl.States() {
		d.out.Info(describe(s))
	}
}

func describe(s process.ProcessState) string {
	switch s.Status {
	case process.StatusRunning, process.StatusStopping:
		return fmt.Sprintf("%s: %s (pid %d, up %s, restarts %d)",
			s.Label, s.Status, s.PID, formatUptime(s.Uptime()), s.Restarts)
	case process.StatusIdle:
		if s.StoppedAt.IsZero() {
			return fmt.Sprintf("%s: idle", s.Label)
		}
		return fmt.Sprintf("%s: idle (exit %d)", s.Label, s.ExitCode)
	default:
		return fmt.Sprintf("%s: %s (restarts %d)", s.Label, s.Status, s.Restarts)
	}
}

func (d *Dispatcher) tail(label string, n int) {
	entries, err := d.ctl.History(label, n)
	if err != nil {
		d.report(label, err)
		return
	}
	if len(entries) == 0 {
		d.out.Info("No output yet: " + label)
		return
	}
	for _, e := range entries {
		if e.Source == process.SourceStderr {
			d.out.Stderr(label, e.Text)
			continue
		}
		d.out.Stdout(label, e.Text)
	}
}

var helpLines = []string{
	"start <label>          start a stopped process",
	"stop <label>           send the stop command",
	"kill <label>           terminate the process",
	"restart <label>        stop, then start again",
	"input <label> <text>   write text to stdin as-is",
	"send <label> <text>    write text and a newline",
	"status                 show every process",
	"tail <label> [n]       replay the last n lines",
	"exit                   stop everything and quit",
	"killall                kill everything and quit",
}

func (d *Dispatcher) help() {
	for _, l := range helpLines {
		d.out.Info(l)
	}
}

func plural(n int) string {
	if n == 1 {
		return "process"
	}
	return "processes"
}

func formatUptime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
