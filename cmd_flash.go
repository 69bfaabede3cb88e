package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/flasher"
	"github.com/spf13/cobra"
)

var (
	flashChip     string
	flashFirmware string
	flashSpeed    string
	flashErase    string
	flashYes      bool
)

var errFlashFailed = errors.New("firmware update failed")

var flashCmd = &cobra.Command{
	Use:   "flash",
	Short: "Flash firmware without prompts",
	Long: `Runs one erase, reset and flash session using flags and saved settings.
Options not given on the command line come from the config file. A chip
given with --chip that differs from the detected one aborts the session
unless --yes is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		e.openHistory()

		ctx := cmd.Context()
		req, device, err := flashRequest(ctx, e)
		if err != nil {
			return err
		}

		orch := flasher.New(e.client,
			flasher.WithMaxRetries(e.cfg.ResolvedMaxRetries()),
			flasher.WithRetryDelay(e.cfg.ResolvedRetryDelay()),
			flasher.WithLogger(e.log),
			flasher.WithObserver(e.out.Observe),
			flasher.WithSleeper(func(ctx context.Context, d time.Duration, reason string) error {
				e.out.Info("%s", reason)
				return flasher.Sleep(ctx, d, reason)
			}),
			flasher.WithConfirm(func(declared, detected chip.Profile) bool {
				e.out.Warn("Warning: Selected device type (%s) does not match detected chip (%s)", declared.ID, detected.ID)
				return flashYes
			}),
		)

		out := orch.Flash(ctx, req)
		e.record(ctx, device, req, out)
		if !out.Succeeded {
			return errFlashFailed
		}
		return nil
	},
}

// flashRequest merges flags over the saved config. A --chip with a board
// preset starts from that board's options. Without any firmware path the
// last image flashed successfully onto that chip is reused. The device name
// is the preset's menu name, if any.
func flashRequest(ctx context.Context, e *env) (flasher.Request, string, error) {
	req := flasher.Request{
		FirmwarePath: e.cfg.FirmwarePath,
		Options:      e.cfg.ResolvedOptions(),
	}
	if flashFirmware != "" {
		req.FirmwarePath = flashFirmware
	}

	var device string
	if flashChip != "" {
		p, ok := chip.Lookup(flashChip)
		if !ok {
			return req, "", fmt.Errorf("unknown chip type %q", flashChip)
		}
		req.Declared = p
		if b, ok := chip.BoardForChip(p.ID); ok {
			req.Declared = b.Profile()
			req.Options, _ = b.Options()
			device = b.Name
		}
	}

	if req.FirmwarePath == "" && !req.Declared.IsZero() && e.history != nil {
		fw, err := e.history.LastFirmware(ctx, req.Declared.ID)
		if err != nil {
			e.log.WithError(err).Warn("could not look up last firmware")
		}
		req.FirmwarePath = fw
	}
	if req.FirmwarePath == "" {
		return req, "", fmt.Errorf("no firmware given: use --firmware or save a firmware path with 'wchflash config set-firmware'")
	}

	if flashSpeed != "" {
		s, err := chip.ParseSpeed(flashSpeed)
		if err != nil {
			return req, "", err
		}
		req.Options.Speed = s
	}
	if flashErase != "" {
		m, err := chip.ParseEraseMethod(flashErase)
		if err != nil {
			return req, "", err
		}
		req.Options.EraseMethod = m
	}

	return req, device, nil
}
