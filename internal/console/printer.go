package console

import (
	"io"
	"strings"
	"sync"

	"github.com/frontendtony/dualexe/internal/process"
	"github.com/frontendtony/dualexe/internal/stream"
)

const supervisorTag = "DUALEXE"

// Printer frames child output and supervisor notices as labeled console
// lines. It is safe for concurrent use; each line is written in one call.
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	err   io.Writer
	color bool
}

func NewPrinter(out, err io.Writer, color bool) *Printer {
	return &Printer{out: out, err: err, color: color}
}

// Redirect swaps the writers lines go to.
func (p *Printer) Redirect(out, err io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = out
	p.err = err
}

func (p *Printer) Stdout(label, line string) {
	p.child(false, label, process.SourceStdout, line)
}

func (p *Printer) Stderr(label, line string) {
	p.child(true, label, process.SourceStderr, line)
}

func (p *Printer) Info(msg string) {
	p.write(false, frame(supervisorTag, "INFO", msg))
}

func (p *Printer) Error(msg string) {
	p.write(true, frame(supervisorTag, "ERROR", msg))
}

// Echo repeats an operator command line.
func (p *Printer) Echo(prompt, line string) {
	p.write(false, prompt+line)
}

func (p *Printer) child(toErr bool, label, source, line string) {
	// The reset keeps a child's unterminated style off the label; the line
	// carries its own style prefix to restore it.
	if !p.color {
		p.write(toErr, frame(label, source, stream.Strip(line)))
		return
	}
	p.write(toErr, stream.Reset+frame(label, source, line))
}

func (p *Printer) write(toErr bool, line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w := p.out
	if toErr {
		w = p.err
	}
	_, _ = io.WriteString(w, line+"\n")
}

func frame(tag, kind, text string) string {
	var b strings.Builder
	b.Grow(len(tag) + len(kind) + len(text) + 5)
	b.WriteString("[")
	b.WriteString(tag)
	b.WriteString("][")
	b.WriteString(kind)
	b.WriteString("] ")
	b.WriteString(text)
	return b.String()
}
