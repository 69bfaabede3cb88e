package wait

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dylan/wchflash/tui/shared"
)

const interval = 100 * time.Millisecond

// Model is a countdown with a progress bar.
type Model struct {
	reason  string
	total   time.Duration
	elapsed time.Duration
	bar     progress.Model
	aborted bool
}

func New(reason string, total time.Duration) Model {
	bar := progress.New(
		progress.WithGradient(shared.ProgressFrom, shared.ProgressTo),
		progress.WithWidth(40),
	)
	return Model{reason: reason, total: total, bar: bar}
}

func tick() tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return shared.WaitTickMsg{} })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Done() bool { return m.elapsed >= m.total }

func (m Model) Percent() float64 {
	if m.total <= 0 {
		return 1
	}
	return min(1, float64(m.elapsed)/float64(m.total))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case shared.WaitTickMsg:
		m.elapsed += interval
		if m.Done() {
			return m, tea.Quit
		}
		return m, tick()
	case tea.KeyMsg:
		if key.Matches(msg, shared.Keys.Quit) {
			m.aborted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.Done() {
		return ""
	}
	remaining := (m.total - m.elapsed).Round(time.Second)
	var b strings.Builder
	b.WriteString(shared.FeedbackInfoStyle.Render(m.reason) + "\n")
	b.WriteString(m.bar.ViewAs(m.Percent()) + " " + shared.HintStyle.Render(remaining.String()) + "\n")
	return b.String()
}

// Sleep shows a countdown for d and matches flasher.Sleeper.
func Sleep(ctx context.Context, d time.Duration, reason string, opts ...tea.ProgramOption) error {
	if d <= 0 {
		return ctx.Err()
	}
	opts = append(opts, tea.WithContext(ctx))
	final, err := tea.NewProgram(New(reason, d), opts...).Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, tea.ErrProgramKilled) {
			if ctxErr == nil {
				ctxErr = context.Canceled
			}
			return ctxErr
		}
		return fmt.Errorf("running countdown: %w", err)
	}
	if m, ok := final.(Model); ok && m.aborted {
		return context.Canceled
	}
	return nil
}

// Sleeper returns Sleep bound to program options.
func Sleeper(opts ...tea.ProgramOption) func(context.Context, time.Duration, string) error {
	return func(ctx context.Context, d time.Duration, reason string) error {
		return Sleep(ctx, d, reason, opts...)
	}
}
