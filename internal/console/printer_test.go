package console

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestPrinter(color bool) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinter(&out, &errOut, color), &out, &errOut
}

func TestPrinter_ChildLines(t *testing.T) {
	p, out, errOut := newTestPrinter(true)

	p.Stdout("web", "\x1b[31mred")
	p.Stderr("web", "oops")

	assert.Equal(t, "\x1b[0m[web][STDOUT] \x1b[31mred\n", out.String())
	assert.Equal(t, "\x1b[0m[web][STDERR] oops\n", errOut.String())
}

func TestPrinter_Notices(t *testing.T) {
	p, out, errOut := newTestPrinter(true)

	p.Info("Starting: web")
	p.Error("Unknown command: x")

	assert.Equal(t, "[DUALEXE][INFO] Starting: web\n", out.String())
	assert.Equal(t, "[DUALEXE][ERROR] Unknown command: x\n", errOut.String())
}

func TestPrinter_NoColor(t *testing.T) {
	p, out, _ := newTestPrinter(false)

	p.Stdout("web", "\x1b[1;32mok\x1b[0m done")

	assert.Equal(t, "[web][STDOUT] ok done\n", out.String())
}

func TestPrinter_Echo(t *testing.T) {
	p, out, _ := newTestPrinter(false)

	p.Echo(PromptSymbol, "status")
	assert.Equal(t, "> status\n", out.String())
}

func TestPrinter_Redirect(t *testing.T) {
	p, out, _ := newTestPrinter(false)
	var moved bytes.Buffer

	p.Redirect(&moved, &moved)
	p.Info("x")

	assert.Empty(t, out.String())
	assert.Equal(t, "[DUALEXE][INFO] x\n", moved.String())
}

type lockedBuffer struct {
	mu sync.Mutex
	bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Buffer.Write(p)
}

func TestPrinter_ConcurrentLinesStayWhole(t *testing.T) {
	var out lockedBuffer
	p := NewPrinter(&out, &out, false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p.Stdout("a", "0123456789")
			}
		}()
	}
	wg.Wait()

	for _, line := range bytes.Split(bytes.TrimSuffix(out.Bytes(), []byte("\n")), []byte("\n")) {
		assert.Equal(t, "[a][STDOUT] 0123456789", string(line))
	}
}
