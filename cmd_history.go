package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dylan/wchflash/tui/shared"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past flash sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()
		if !e.cfg.ResolvedHistoryEnabled() {
			return errors.New("flash history is disabled in the config")
		}
		e.openHistory()
		if e.history == nil {
			return fmt.Errorf("could not open %s", e.cfg.ResolvedHistoryPath())
		}

		ctx := cmd.Context()
		entries, err := e.history.Recent(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			e.out.Info("No flash sessions recorded yet")
			return nil
		}

		for _, en := range entries {
			status := shared.FeedbackSuccessStyle.Render("ok    ")
			if !en.Succeeded {
				status = shared.FeedbackErrorStyle.Render("failed")
			}
			line := fmt.Sprintf("%s  %s  %-9s %s  speed=%s erase=%s attempts=%d",
				shared.DimStyle.Render(en.Time.Format("2006-01-02 15:04:05")),
				status, en.Chip, shared.RenderPath(en.Firmware),
				en.Speed, en.EraseMethod, en.Attempts)
			e.out.Plain(line)
			if len(en.SpeedsTried) > 1 {
				e.out.Plain(shared.MutedStyle.Render("    speeds tried: " + strings.Join(en.SpeedsTried, ", ")))
			}
			if en.Error != "" {
				e.out.Plain(shared.MutedStyle.Render("    " + en.Error))
			}
		}

		sum, err := e.history.Summarize(ctx)
		if err != nil {
			return err
		}
		e.out.Info("%d sessions, %d succeeded, %d failed", sum.Total, sum.Succeeded, sum.Failed)
		return nil
	},
}
