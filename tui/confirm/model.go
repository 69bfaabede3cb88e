package confirm

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dylan/wchflash/tui/help"
	"github.com/dylan/wchflash/tui/shared"
)

type Model struct {
	question string
	value    bool
	done     bool
	aborted  bool
}

func New(question string, def bool) Model {
	return Model{question: question, value: def}
}

func (m Model) Value() bool { return m.value }
func (m Model) Done() bool { return m.done }
func (m Model) Aborted() bool { return m.aborted }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, shared.Keys.Quit, shared.Keys.Escape):
		m.aborted = true
		return m, tea.Quit
	case key.Matches(keyMsg, shared.Keys.Yes):
		m.value, m.done = true, true
		return m, tea.Quit
	case key.Matches(keyMsg, shared.Keys.No):
		m.value, m.done = false, true
		return m, tea.Quit
	case key.Matches(keyMsg, shared.Keys.Toggle):
		m.value = !m.value
	case key.Matches(keyMsg, shared.Keys.Select):
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(shared.PointerStyle.Render("? ") + shared.QuestionStyle.Render(m.question) + " ")

	switch {
	case m.done:
		b.WriteString(shared.AnswerStyle.Render(yesNo(m.value)) + "\n")
		return b.String()
	case m.aborted:
		b.WriteString(shared.HintStyle.Render("cancelled") + "\n")
		return b.String()
	}

	yes, no := shared.ItemStyle.Render("Yes"), shared.ItemStyle.Render("No")
	if m.value {
		yes = shared.AnswerStyle.Render("[Yes]")
	} else {
		no = shared.AnswerStyle.Render("[No]")
	}
	b.WriteString(yes + " / " + no + "\n")
	b.WriteString(help.Hints(shared.Keys.ConfirmHelp()) + "\n")
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// Ask shows a yes/no prompt and blocks for the answer.
func Ask(question string, def bool, opts ...tea.ProgramOption) (bool, error) {
	final, err := tea.NewProgram(New(question, def), opts...).Run()
	if err != nil {
		return false, fmt.Errorf("running prompt: %w", err)
	}
	m := final.(Model)
	if m.aborted {
		return false, shared.ErrAborted
	}
	return m.value, nil
}
