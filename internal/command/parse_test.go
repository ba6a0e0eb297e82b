package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"start web", Command{Name: Start, Label: "web"}},
		{"  stop\tweb  ", Command{Name: Stop, Label: "web"}},
		{"kill web", Command{Name: Kill, Label: "web"}},
		{"restart web", Command{Name: Restart, Label: "web"}},
		{"input web hello   there", Command{Name: Input, Label: "web", Text: "hello there"}},
		{"input web", Command{Name: Input, Label: "web"}},
		{"send web rs", Command{Name: Send, Label: "web", Text: "rs"}},
		{"exit", Command{Name: Exit}},
		{"killall now", Command{Name: KillAll}},
		{"status", Command{Name: Status}},
		{"tail web", Command{Name: Tail, Label: "web", Lines: defaultTailLines}},
		{"tail web 3", Command{Name: Tail, Label: "web", Text: "3", Lines: 3}},
		{"help", Command{Name: Help}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("   ")
	assert.ErrorIs(t, err, ErrEmpty)

	cmd, err := Parse("launch web")
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Equal(t, "launch", cmd.Name)

	cmd, err = Parse("stop")
	assert.ErrorIs(t, err, ErrMissingLabel)
	assert.Equal(t, "stop", cmd.Name)

	_, err = Parse("tail web many")
	assert.Error(t, err)
	_, err = Parse("tail web 0")
	assert.Error(t, err)
}

func TestParse_CaseSensitive(t *testing.T) {
	_, err := Parse("START web")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
