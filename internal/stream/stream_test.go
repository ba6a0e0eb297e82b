package stream

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	line  string
	style string
}

func collect() (*Stream, *[]emitted) {
	var out []emitted
	s := New(func(line, style string) {
		out = append(out, emitted{line, style})
	})
	return s, &out
}

func lines(out []emitted) []string {
	var result []string
	for _, e := range out {
		result = append(result, e.line)
	}
	return result
}

func TestStream_SplitsCompleteLines(t *testing.T) {
	s, out := collect()

	n, err := s.Write([]byte("one\ntwo\nthr"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, []string{"one", "two"}, lines(*out))
	assert.Equal(t, []byte("thr"), s.Pending())

	s.Write([]byte("ee\n"))
	assert.Equal(t, []string{"one", "two", "three"}, lines(*out))
	assert.Empty(t, s.Pending())
}

func TestStream_ChunkingInvariance(t *testing.T) {
	input := "alpha\n\x1b[32mbeta\ngam\x1b[0mma\n\ndelta \x1b[1;31mred\n"
	want := strings.Split(strings.TrimSuffix(input, "\n"), "\n")

	// Every pair of cut points.
	for i := 0; i <= len(input); i++ {
		for j := i; j <= len(input); j++ {
			s, out := collect()
			s.Write([]byte(input[:i]))
			s.Write([]byte(input[i:j]))
			s.Write([]byte(input[j:]))
			s.Flush()
			require.Equal(t, want, lines(*out), "cuts at %d,%d", i, j)
		}
	}
}

func TestStream_ChunkingInvariance_Random(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString(strings.Repeat("x", i%17))
		if i%5 == 0 {
			b.WriteString("\x1b[3" + string(rune('0'+i%8)) + "m")
		}
		b.WriteByte('\n')
	}
	input := b.String()

	ref, refOut := collect()
	ref.Write([]byte(input))

	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		s, out := collect()
		rest := input
		for len(rest) > 0 {
			n := rng.Intn(len(rest)) + 1
			s.Write([]byte(rest[:n]))
			rest = rest[n:]
		}
		require.Equal(t, *refOut, *out, "round %d", round)
	}
	assert.Len(t, *refOut, 200)
}

func TestStream_StyleCarriesAcrossChunks(t *testing.T) {
	s, out := collect()

	s.Write([]byte("ab\x1b[31mcd"))
	assert.Empty(t, *out)

	s.Write([]byte("ef\n\x1b[0mgh\n"))
	require.Len(t, *out, 2)
	assert.Equal(t, emitted{"ab\x1b[31mcdef", ""}, (*out)[0])
	assert.Equal(t, emitted{"\x1b[0mgh", "\x1b[31m"}, (*out)[1])
	assert.Equal(t, "", s.Style())
}

func TestStream_StyleStacksUntilReset(t *testing.T) {
	s, out := collect()

	s.Write([]byte("\x1b[1mbold\n\x1b[4munderline\nplain\x1b[0m\nafter\n"))
	require.Len(t, *out, 4)
	assert.Equal(t, "", (*out)[0].style)
	assert.Equal(t, "\x1b[1m", (*out)[1].style)
	assert.Equal(t, "\x1b[1m\x1b[4m", (*out)[2].style)
	assert.Equal(t, "", (*out)[3].style)
}

func TestStream_FlushEmitsPartial(t *testing.T) {
	s, out := collect()

	s.Write([]byte("\x1b[33mwarn\nno newline"))
	s.Flush()
	require.Len(t, *out, 2)
	assert.Equal(t, emitted{"no newline", "\x1b[33m"}, (*out)[1])

	// A second flush has nothing to emit.
	s.Flush()
	assert.Len(t, *out, 2)
}

func TestStream_FlushEmpty(t *testing.T) {
	s, out := collect()
	s.Write([]byte("done\n"))
	s.Flush()
	assert.Equal(t, []string{"done"}, lines(*out))
}

func TestStream_PendingNeverHoldsNewline(t *testing.T) {
	s, _ := collect()
	for _, chunk := range []string{"a", "\n", "b\nc", "\n\n", "d"} {
		s.Write([]byte(chunk))
		assert.NotContains(t, string(s.Pending()), "\n")
	}
}

func TestStream_TrimCR(t *testing.T) {
	s, out := collect()
	s.TrimCR = true
	s.Write([]byte("ready\r\nok\r\r\n"))
	assert.Equal(t, []string{"ready", "ok\r"}, lines(*out))
}

func TestStream_MaxLine(t *testing.T) {
	s, out := collect()
	s.Write([]byte(strings.Repeat("z", MaxLine+10)))
	require.Len(t, *out, 1)
	assert.Len(t, (*out)[0].line, MaxLine)
	assert.Len(t, s.Pending(), 10)
}

func TestStream_MaxLineKeepsSGRWhole(t *testing.T) {
	s, out := collect()
	s.Write([]byte(strings.Repeat("a", MaxLine-2) + "\x1b[31mred"))
	require.Len(t, *out, 1)
	assert.Equal(t, strings.Repeat("a", MaxLine-2), (*out)[0].line)
	assert.Equal(t, []byte("\x1b[31mred"), s.Pending())

	s.Flush()
	require.Len(t, *out, 2)
	assert.Equal(t, "\x1b[31mred", (*out)[1].line)
	assert.Equal(t, "\x1b[31m", s.Style())
}

func TestStream_MaxLineKeepsRuneWhole(t *testing.T) {
	s, out := collect()
	s.Write([]byte(strings.Repeat("a", MaxLine-1) + "é"))
	require.Len(t, *out, 1)
	assert.Len(t, (*out)[0].line, MaxLine-1)
	assert.True(t, utf8.ValidString((*out)[0].line))
	assert.Equal(t, []byte("é"), s.Pending())
}

func TestCutPoint(t *testing.T) {
	plain := []byte(strings.Repeat("z", MaxLine+1))
	assert.Equal(t, MaxLine, cutPoint(plain))

	// A finished sequence before the boundary does not move the cut.
	done := []byte(strings.Repeat("z", MaxLine-6) + "\x1b[1mzzzz")
	assert.Equal(t, MaxLine, cutPoint(done))

	// Nothing safe to back up to: fall back to the hard limit.
	esc := []byte("\x1b[" + strings.Repeat("1", MaxLine))
	assert.Equal(t, MaxLine, cutPoint(esc))
}

func TestFold(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text", "hello", ""},
		{"no reset", "a\x1b[31mb\x1b[1mc", "\x1b[31m\x1b[1m"},
		{"after reset", "\x1b[31mred\x1b[0m\x1b[32mgreen", "\x1b[32m"},
		{"ends with reset", "\x1b[31mred\x1b[0m", ""},
		{"last reset wins", "\x1b[0m\x1b[1m\x1b[0m\x1b[2m\x1b[3m", "\x1b[2m\x1b[3m"},
		{"non sgr escape ignored", "\x1b[2K\x1b[35m", "\x1b[35m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestFold_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"\x1b[31m",
		"x\x1b[0m\x1b[1;32my\x1b[4m",
		"\x1b[0m",
		"\x1b[38;5;208morange\x1b[0m\x1b[7m",
	}
	for _, in := range inputs {
		once := Fold(in)
		assert.Equal(t, once, Fold(once), "input %q", in)
	}
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "red plain", Strip("\x1b[31mred\x1b[0m plain"))
	assert.Equal(t, "\x1b[2Kline", Strip("\x1b[2K\x1b[1mline"))
}
