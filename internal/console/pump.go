package console

import (
	"bytes"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Printlner prints lines above a running program.
type Printlner interface {
	Println(args ...interface{})
}

type programPrinter struct {
	prog *tea.Program
}

// ProgramPrinter prints above prog. Unlike prog.Println it does not block
// once the program has finished; the line is dropped instead.
func ProgramPrinter(prog *tea.Program) Printlner {
	return programPrinter{prog: prog}
}

func (p programPrinter) Println(args ...interface{}) {
	p.prog.Send(tea.Println(args...)())
}

// Pump queues lines written to it and hands them to a Printlner from its own
// goroutine, so writers never wait on the program's event loop.
type Pump struct {
	mu      sync.Mutex
	lines   []string
	partial []byte
	closed  bool
	direct  io.Writer
	ready   chan struct{}
	stopped chan struct{}
}

func NewPump() *Pump {
	return &Pump{
		ready:   make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Write queues every complete line in b. Writes after Close are dropped
// unless the pump was detached first.
func (p *Pump) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.direct != nil {
		return p.direct.Write(b)
	}
	if p.closed {
		return len(b), nil
	}

	data := append(p.partial, b...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		p.lines = append(p.lines, string(data[:i]))
		data = data[i+1:]
	}
	p.partial = append([]byte(nil), data...)
	p.signal()
	return len(b), nil
}

func (p *Pump) signal() {
	select {
	case p.ready <- struct{}{}:
	default:
	}
}

func (p *Pump) take() ([]string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines := p.lines
	p.lines = nil
	if p.closed && len(p.partial) > 0 {
		lines = append(lines, string(p.partial))
		p.partial = nil
	}
	return lines, p.closed || p.direct != nil
}

// Run delivers queued lines to dst in batches until Close or Detach, then
// returns.
func (p *Pump) Run(dst Printlner) {
	defer close(p.stopped)
	for range p.ready {
		lines, closed := p.take()
		if len(lines) > 0 {
			dst.Println(strings.Join(lines, "\n"))
		}
		if closed {
			return
		}
	}
}

// Close stops accepting lines and waits for Run to flush the queue. Run must
// have been started.
func (p *Pump) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.signal()
	}
	p.mu.Unlock()
	<-p.stopped
}

// Detach writes everything still queued to w, sends later writes straight
// to w and lets Run return. Unlike Close it does not wait for Run, which may
// be stuck on a program that has already ended.
func (p *Pump) Detach(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.direct != nil {
		return
	}
	for _, line := range p.lines {
		io.WriteString(w, line+"\n")
	}
	if len(p.partial) > 0 {
		w.Write(p.partial)
	}
	p.lines, p.partial = nil, nil
	p.direct = w
	p.signal()
}
