package console

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPrintln struct {
	mu    sync.Mutex
	lines []string
	delay time.Duration
}

func (r *recordingPrintln) Println(args ...interface{}) {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, strings.Split(fmt.Sprint(args...), "\n")...)
}

func (r *recordingPrintln) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// stuckPrintln blocks every call until release is closed, like
// tea.Program.Println once the program has stopped reading messages.
type stuckPrintln struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newStuckPrintln() *stuckPrintln {
	return &stuckPrintln{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *stuckPrintln) Println(args ...interface{}) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
}

func TestPump_DeliversLinesInOrder(t *testing.T) {
	dst := &recordingPrintln{delay: time.Millisecond}
	p := NewPump()
	go p.Run(dst)

	var want []string
	for i := 0; i < 100; i++ {
		line := fmt.Sprintf("line %d", i)
		want = append(want, line)
		_, err := p.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	p.Close()

	assert.Equal(t, want, dst.Lines())
}

func TestPump_JoinsPartialWrites(t *testing.T) {
	dst := &recordingPrintln{}
	p := NewPump()
	go p.Run(dst)

	p.Write([]byte("hel"))
	p.Write([]byte("lo\nwor"))
	p.Write([]byte("ld"))
	p.Close()

	assert.Equal(t, []string{"hello", "world"}, dst.Lines())
}

func TestPump_DropsWritesAfterClose(t *testing.T) {
	dst := &recordingPrintln{}
	p := NewPump()
	go p.Run(dst)
	p.Close()

	n, err := p.Write([]byte("late\n"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Empty(t, dst.Lines())
}

func TestPump_WriteDoesNotBlockOnSlowPrinter(t *testing.T) {
	dst := &recordingPrintln{delay: 200 * time.Millisecond}
	p := NewPump()
	go p.Run(dst)
	defer p.Close()

	start := time.Now()
	for i := 0; i < 10; i++ {
		p.Write([]byte("x\n"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPump_DetachFlushesToWriter(t *testing.T) {
	dst := newStuckPrintln()
	p := NewPump()
	stopped := make(chan struct{})
	go func() {
		p.Run(dst)
		close(stopped)
	}()

	p.Write([]byte("first\n"))
	<-dst.entered
	p.Write([]byte("queued\npart"))

	var fallback bytes.Buffer
	detached := make(chan struct{})
	go func() {
		p.Detach(&fallback)
		close(detached)
	}()
	select {
	case <-detached:
	case <-time.After(time.Second):
		t.Fatal("Detach waited on a blocked printer")
	}

	p.Write([]byte("ial\nlater\n"))
	assert.Equal(t, "queued\npartial\nlater\n", fallback.String())

	close(dst.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Detach")
	}
	p.Close()

	p.Write([]byte("after close\n"))
	assert.Contains(t, fallback.String(), "after close")
}

func TestPump_DetachAfterCloseIsNoop(t *testing.T) {
	dst := &recordingPrintln{}
	p := NewPump()
	go p.Run(dst)
	p.Write([]byte("done\n"))
	p.Close()

	var fallback bytes.Buffer
	p.Detach(&fallback)
	assert.Empty(t, fallback.String())
	assert.Equal(t, []string{"done"}, dst.Lines())
}

type idleModel struct{}

func (idleModel) Init() tea.Cmd                       { return tea.Quit }
func (idleModel) Update(tea.Msg) (tea.Model, tea.Cmd) { return idleModel{}, nil }
func (idleModel) View() string                        { return "" }

func TestProgramPrinter_DoesNotBlockAfterExit(t *testing.T) {
	prog := tea.NewProgram(idleModel{}, tea.WithInput(nil), tea.WithOutput(io.Discard))
	_, err := prog.Run()
	require.NoError(t, err)

	printed := make(chan struct{})
	go func() {
		ProgramPrinter(prog).Println("dropped")
		close(printed)
	}()
	select {
	case <-printed:
	case <-time.After(time.Second):
		t.Fatal("Println blocked on a finished program")
	}
}
