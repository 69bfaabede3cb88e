package tui

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dylan/wchflash/config"
	"github.com/dylan/wchflash/tui/activity"
	"github.com/dylan/wchflash/tui/confirm"
	"github.com/dylan/wchflash/tui/menu"
	"github.com/dylan/wchflash/tui/pathinput"
	"github.com/dylan/wchflash/tui/shared"
	"github.com/dylan/wchflash/tui/wait"
)

// Terminal runs each prompt as a short inline bubbletea program.
type Terminal struct {
	opts []tea.ProgramOption
}

// NewTerminal sets up styles from cfg. in and out default to the process
// stdin and stdout when nil.
func NewTerminal(cfg config.Config, in io.Reader, out io.Writer) *Terminal {
	shared.Apply(cfg)

	var opts []tea.ProgramOption
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	return &Terminal{opts: opts}
}

func (t *Terminal) Select(title string, items []string, def int) (int, error) {
	return menu.Select(title, items, def, t.opts...)
}

func (t *Terminal) Confirm(question string, def bool) (bool, error) {
	return confirm.Ask(question, def, t.opts...)
}

func (t *Terminal) Path(prompt, def string, validate func(string) error) (string, error) {
	return pathinput.Ask(prompt, def, validate, t.opts...)
}

func (t *Terminal) Spin(ctx context.Context, label string, fn func(context.Context) error) error {
	return activity.Run(ctx, label, fn, t.opts...)
}

func (t *Terminal) Sleep(ctx context.Context, d time.Duration, reason string) error {
	return wait.Sleep(ctx, d, reason, t.opts...)
}
