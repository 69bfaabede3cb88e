package pathinput

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dylan/wchflash/tui/help"
	"github.com/dylan/wchflash/tui/shared"
)

// ValidateFunc rejects a path with a message shown under the input.
type ValidateFunc func(path string) error

type Model struct {
	prompt   string
	input    textinput.Model
	validate ValidateFunc
	err      error

	done    bool
	aborted bool
}

func New(prompt, def string, validate ValidateFunc) Model {
	ti := textinput.New()
	ti.Placeholder = "./firmware.bin"
	ti.CharLimit = 4096
	ti.Width = 60
	ti.SetValue(def)
	ti.CursorEnd()
	ti.Focus()
	return Model{prompt: prompt, input: ti, validate: validate}
}

func (m Model) Value() string { return strings.TrimSpace(m.input.Value()) }
func (m Model) Done() bool { return m.done }
func (m Model) Aborted() bool { return m.aborted }
func (m Model) Err() error { return m.err }
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, shared.Keys.Quit, shared.Keys.Escape):
			m.aborted = true
			return m, tea.Quit
		case key.Matches(keyMsg, shared.Keys.Select):
			path := expand(m.Value())
			if m.validate != nil {
				if err := m.validate(path); err != nil {
					m.err = err
					return m, nil
				}
			}
			m.input.SetValue(path)
			m.done = true
			return m, tea.Quit
		case key.Matches(keyMsg, shared.Keys.Complete):
			if c := complete(m.input.Value()); c != "" {
				m.input.SetValue(c)
				m.input.CursorEnd()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.err = nil
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(shared.PointerStyle.Render("? ") + shared.QuestionStyle.Render(m.prompt) + " ")
	switch {
	case m.done:
		b.WriteString(shared.RenderPath(m.Value()) + "\n")
		return b.String()
	case m.aborted:
		b.WriteString(shared.HintStyle.Render("cancelled") + "\n")
		return b.String()
	}
	b.WriteString("\n  " + m.input.View() + "\n")
	if m.err != nil {
		b.WriteString("  " + shared.FeedbackErrorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString(help.Hints(shared.Keys.PathHelp()) + "\n")
	return b.String()
}

func expand(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

// complete extends partial to the longest common prefix of matching
// entries. Directories get a trailing separator.
func complete(partial string) string {
	matches, err := filepath.Glob(expand(partial) + "*")
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	prefix := matches[0]
	for _, m := range matches[1:] {
		for !strings.HasPrefix(m, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	if len(matches) == 1 {
		if info, err := os.Stat(prefix); err == nil && info.IsDir() {
			prefix += string(filepath.Separator)
		}
	}
	return prefix
}

// Ask prompts for a path until validate accepts it.
func Ask(prompt, def string, validate ValidateFunc, opts ...tea.ProgramOption) (string, error) {
	final, err := tea.NewProgram(New(prompt, def, validate), opts...).Run()
	if err != nil {
		return "", fmt.Errorf("running prompt: %w", err)
	}
	m := final.(Model)
	if m.aborted {
		return "", shared.ErrAborted
	}
	return m.Value(), nil
}
