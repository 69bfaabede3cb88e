package menu

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dylan/wchflash/tui/help"
	"github.com/dylan/wchflash/tui/shared"
)

// filterThreshold is the item count above which typing filters the list.
const filterThreshold = 7

type Model struct {
	title        string
	items        []string
	filtered     []int // indexes into items
	cursor       int
	scrollOffset int

	filterInput textinput.Model

	chosen  int
	done    bool
	aborted bool
}

// New creates a menu with the cursor on def.
func New(title string, items []string, def int) Model {
	fi := textinput.New()
	fi.Placeholder = "type to filter..."
	fi.CharLimit = 60

	m := Model{title: title, items: items, filterInput: fi, chosen: -1}
	if m.filterable() {
		m.filterInput.Focus()
	}
	m.applyFilter()
	if def >= 0 && def < len(items) {
		m.cursor = def
		m.ensureCursorVisible()
	}
	return m
}

func (m Model) filterable() bool { return len(m.items) > filterThreshold }

func (m *Model) applyFilter() {
	query := strings.ToLower(m.filterInput.Value())
	m.filtered = nil
	for i, it := range m.items {
		if query == "" || strings.Contains(strings.ToLower(it), query) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
	m.ensureCursorVisible()
}

// listHeight returns how many items fit in the visible area.
func (m Model) listHeight() int {
	return max(1, min(10, len(m.filtered)))
}

func (m *Model) ensureCursorVisible() {
	h := m.listHeight()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	} else if m.cursor >= m.scrollOffset+h {
		m.scrollOffset = m.cursor - h + 1
	}
}

// Chosen returns the selected item index, or -1.
func (m Model) Chosen() int { return m.chosen }

func (m Model) Aborted() bool { return m.aborted }

func (m Model) Init() tea.Cmd {
	if m.filterable() {
		return textinput.Blink
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, shared.Keys.Quit, shared.Keys.Escape):
		m.aborted = true
		return m, tea.Quit
	case key.Matches(keyMsg, shared.Keys.Select):
		if m.cursor < len(m.filtered) {
			m.chosen = m.filtered[m.cursor]
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	case keyMsg.Type == tea.KeyUp, keyMsg.Type == tea.KeyDown:
	case m.filterable():
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, shared.Keys.Down):
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			m.ensureCursorVisible()
		}
	case key.Matches(keyMsg, shared.Keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(shared.PointerStyle.Render("? ") + shared.QuestionStyle.Render(m.title))

	if m.done {
		b.WriteString(" " + shared.AnswerStyle.Render(m.items[m.chosen]) + "\n")
		return b.String()
	}
	if m.aborted {
		b.WriteString(" " + shared.HintStyle.Render("cancelled") + "\n")
		return b.String()
	}
	b.WriteString("\n")

	if m.filterable() {
		b.WriteString("  " + m.filterInput.View() + "\n")
	}
	if len(m.filtered) == 0 {
		b.WriteString(shared.HintStyle.Render("  no matches") + "\n")
	}

	end := min(m.scrollOffset+m.listHeight(), len(m.filtered))
	for i := m.scrollOffset; i < end; i++ {
		label := m.items[m.filtered[i]]
		if i == m.cursor {
			b.WriteString(shared.PointerStyle.Render("» ") + shared.CursorStyle.Render(label) + "\n")
		} else {
			b.WriteString("  " + shared.ItemStyle.Render(label) + "\n")
		}
	}
	if len(m.filtered) > m.listHeight() {
		b.WriteString(shared.HintStyle.Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.filtered))) + "\n")
	}
	b.WriteString(help.Hints(shared.Keys.MenuHelp()) + "\n")
	return b.String()
}

// Select shows the menu and blocks until an item is chosen.
func Select(title string, items []string, def int, opts ...tea.ProgramOption) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("menu %q has no items", title)
	}
	final, err := tea.NewProgram(New(title, items, def), opts...).Run()
	if err != nil {
		return -1, fmt.Errorf("running menu: %w", err)
	}
	m := final.(Model)
	if m.aborted || m.chosen < 0 {
		return -1, shared.ErrAborted
	}
	return m.chosen, nil
}
