package activity

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dylan/wchflash/tui/shared"
)

// Model shows a spinner next to a label until an ActivityDoneMsg arrives.
type Model struct {
	label   string
	spinner spinner.Model
	done    bool
	aborted bool
	err     error
}

func New(label string) Model {
	s := spinner.New()
	s.Spinner = shared.SpinnerType
	s.Style = shared.SpinnerStyle
	return Model{label: label, spinner: s}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case shared.ActivityDoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	case tea.KeyMsg:
		if key.Matches(msg, shared.Keys.Quit) {
			m.aborted = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch {
	case m.aborted:
		return shared.FeedbackWarningStyle.Render("✗ "+m.label+" (interrupted)") + "\n"
	case m.done && m.err != nil:
		return shared.FeedbackErrorStyle.Render("✗ "+m.label) + "\n"
	case m.done:
		return shared.FeedbackSuccessStyle.Render("✓ "+m.label) + "\n"
	}
	return m.spinner.View() + " " + shared.AccentStyle.Render(m.label) + "\n"
}

// Run executes fn while a spinner is shown. ctrl+c cancels the context
// passed to fn; Run still waits for fn to return.
func Run(ctx context.Context, label string, fn func(context.Context) error, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(label), opts...)
	result := make(chan error, 1)
	go func() {
		err := fn(ctx)
		result <- err
		p.Send(shared.ActivityDoneMsg{Err: err})
	}()

	final, runErr := p.Run()
	if m, ok := final.(Model); ok && m.aborted {
		cancel()
		<-result
		return shared.ErrAborted
	}
	err := <-result
	if runErr != nil && err == nil {
		return fmt.Errorf("running spinner: %w", runErr)
	}
	return err
}
