package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// confirmModel is a single yes/no question.
type confirmModel struct {
	prompt   string
	answered bool
	yes      bool
	help     help.Model
	keys     keyMap
}

func newConfirmModel(prompt string) confirmModel {
	return confirmModel{prompt: prompt, help: help.New(), keys: newKeyMap()}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(km, m.keys.yes):
		m.answered, m.yes = true, true
		return m, tea.Quit
	case key.Matches(km, m.keys.no), key.Matches(km, m.keys.quit):
		m.answered, m.yes = true, false
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.answered {
		answer := styles.err.Render("no")
		if m.yes {
			answer = styles.ok.Render("yes")
		}
		return fmt.Sprintf("%s %s\n", m.prompt, answer)
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s %s\n", styles.warn.Render(m.prompt), helpView)
}

// Confirm asks a yes/no question on the terminal. Anything but an explicit yes is a no.
func Confirm(prompt string, in io.Reader, out io.Writer) (bool, error) {
	p := tea.NewProgram(newConfirmModel(prompt), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	m, ok := final.(confirmModel)
	return ok && m.yes, nil
}
