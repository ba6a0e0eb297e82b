package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command names understood by the dispatcher.
const (
	Start   = "start"
	Stop    = "stop"
	Kill    = "kill"
	Restart = "restart"
	Input   = "input"
	Send    = "send"
	Exit    = "exit"
	KillAll = "killall"
	Status  = "status"
	Tail    = "tail"
	Help    = "help"
)

const defaultTailLines = 10

var (
	ErrEmpty          = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingLabel   = errors.New("missing label")
)

// needsLabel lists the commands that take a label as their first argument.
var needsLabel = map[string]bool{
	Start:   true,
	Stop:    true,
	Kill:    true,
	Restart: true,
	Input:   true,
	Send:    true,
	Tail:    true,
	Exit:    false,
	KillAll: false,
	Status:  false,
	Help:    false,
}

// Command is one parsed operator line.
type Command struct {
	Name  string
	Label string
	// Text is every token after the label rejoined with single spaces.
	Text string
	// Lines is the requested count for tail.
	Lines int
}

// Parse splits line on whitespace into a command. The returned error wraps
// ErrEmpty, ErrUnknownCommand or ErrMissingLabel and names the command.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmpty
	}

	cmd := Command{Name: fields[0]}
	takesLabel, known := needsLabel[cmd.Name]
	if !known {
		return cmd, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}
	if !takesLabel {
		return cmd, nil
	}
	if len(fields) < 2 {
		return cmd, fmt.Errorf("%w: %s", ErrMissingLabel, cmd.Name)
	}
	cmd.Label = fields[1]
	cmd.Text = strings.Join(fields[2:], " ")

	if cmd.Name == Tail {
		cmd.Lines = defaultTailLines
		if cmd.Text != "" {
			n, err := strconv.Atoi(cmd.Text)
			if err != nil || n <= 0 {
				return cmd, fmt.Errorf("tail: invalid line count %q", cmd.Text)
			}
			cmd.Lines = n
		}
	}
	return cmd, nil
}
