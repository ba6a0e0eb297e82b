package console

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const PromptSymbol = "> "

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#10B981"}
	colorDim    = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}

	promptStyle      = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	placeholderStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// Commands sent on the first and later Ctrl+C.
const (
	InterruptCommand      = "exit"
	ForceInterruptCommand = "killall"
)

// SubmitFunc receives each operator line.
type SubmitFunc func(line string)

// Prompt is the operator line editor. Output is printed above it by the
// program; the prompt itself stays on the last line.
type Prompt struct {
	input      textinput.Model
	submit     SubmitFunc
	interrupts int
}

func NewPrompt(submit SubmitFunc) Prompt {
	in := textinput.New()
	in.Prompt = PromptSymbol
	in.PromptStyle = promptStyle
	in.PlaceholderStyle = placeholderStyle
	in.Placeholder = "type a command, or help"
	in.CharLimit = 4096
	in.Focus()
	return Prompt{input: in, submit: submit}
}

// Init implements tea.Model.
func (m Prompt) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Prompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			m.submit(line)
			return m, nil
		case tea.KeyCtrlC:
			m.interrupts++
			if m.interrupts == 1 {
				m.submit(InterruptCommand)
			} else {
				m.submit(ForceInterruptCommand)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Prompt) View() string {
	return m.input.View()
}
