package stream

import (
	"bytes"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// Reset is the canonical SGR reset sequence.
const Reset = "\x1b[0m"

// MaxLine bounds the partial-line buffer. A line that grows past it is
// emitted in pieces of at most MaxLine bytes, never splitting an SGR
// sequence or a UTF-8 encoded rune.
const MaxLine = 1 << 20

var sgrPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// LineFunc receives one complete line (without its newline) together with
// the style suffix that was active when the line started.
type LineFunc func(line, style string)

// Stream turns arbitrary output chunks into complete lines and tracks the
// terminal style that is still active at the end of each line, so a caller
// that resets the terminal before every line can re-apply it.
type Stream struct {
	// TrimCR drops one trailing carriage return from each line.
	TrimCR bool

	emit LineFunc

	mu    sync.Mutex
	buf   []byte
	style string
}

// New returns a Stream that reports lines to emit.
func New(emit LineFunc) *Stream {
	return &Stream{emit: emit}
}

// Write implements io.Writer. It never returns an error.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := append(s.buf, data[:i]...)
		s.emitLine(string(line))
		s.buf = line[:0]
		data = data[i+1:]
	}
	s.buf = append(s.buf, data...)

	for len(s.buf) >= MaxLine {
		cut := cutPoint(s.buf)
		s.emitLine(string(s.buf[:cut]))
		s.buf = append(s.buf[:0], s.buf[cut:]...)
	}
	return len(p), nil
}

// cutPoint returns where to split an overlong buffer: MaxLine, moved back
// to the start of an unfinished SGR sequence or rune that straddles it.
func cutPoint(buf []byte) int {
	cut := MaxLine
	if esc := bytes.LastIndexByte(buf[:cut], 0x1b); esc > 0 && sgrPrefix(buf[esc+1:cut]) {
		cut = esc
	}
	// Back up over a rune that is cut off, or not yet complete, at the boundary.
	i := cut - 1
	for i > 0 && cut-i < utf8.UTFMax && !utf8.RuneStart(buf[i]) {
		i--
	}
	if !utf8.FullRune(buf[i:cut]) {
		cut = i
	}
	if cut == 0 {
		return MaxLine
	}
	return cut
}

// sgrPrefix reports whether b can still grow into the tail of an SGR
// sequence: an opening bracket followed only by parameters.
func sgrPrefix(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	if b[0] != '[' {
		return false
	}
	for _, c := range b[1:] {
		if c != ';' && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// Flush emits any buffered partial line. It is called once the underlying
// stream has closed.
func (s *Stream) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) == 0 {
		return
	}
	line := string(s.buf)
	s.buf = s.buf[:0]
	s.emitLine(line)
}

// Style returns the style suffix that will be applied to the next line.
func (s *Stream) Style() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// Pending returns a copy of the bytes not yet terminated by a newline.
func (s *Stream) Pending() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf...)
}

func (s *Stream) emitLine(line string) {
	if s.TrimCR {
		line = strings.TrimSuffix(line, "\r")
	}
	style := s.style
	if s.emit != nil {
		s.emit(line, style)
	}
	s.style = Fold(style + line)
}

// Fold returns the SGR sequences still in effect at the end of text: every
// sequence after the last reset, in order. Text without a reset is treated
// as starting unstyled, so all of its sequences are in effect.
func Fold(text string) string {
	matches := sgrPattern.FindAllString(text, -1)
	last := -1
	for i, m := range matches {
		if m == Reset {
			last = i
		}
	}
	return strings.Join(matches[last+1:], "")
}

// Strip removes all SGR sequences from text.
func Strip(text string) string {
	return sgrPattern.ReplaceAllString(text, "")
}
