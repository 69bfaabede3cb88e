package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/config"
	"github.com/dylan/wchflash/flasher"
	"github.com/dylan/wchflash/history"
	"github.com/dylan/wchflash/probe"
	"github.com/dylan/wchflash/tui/banner"
	"github.com/dylan/wchflash/tui/console"
	"github.com/dylan/wchflash/tui/shared"
	"github.com/sirupsen/logrus"
)

// Prompter asks the user questions. tui.Terminal implements it.
type Prompter interface {
	Select(title string, items []string, def int) (int, error)
	Confirm(question string, def bool) (bool, error)
	Path(prompt, def string, validate func(string) error) (string, error)
	Spin(ctx context.Context, label string, fn func(context.Context) error) error
	Sleep(ctx context.Context, d time.Duration, reason string) error
}

// Device is the flashing tool plus the adapter listing the wizard checks
// first. *wlink.Client implements it.
type Device interface {
	flasher.Tool
	Adapters(ctx context.Context) ([]string, error)
}

// Recorder stores finished sessions. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (int64, error)
}

// Wizard walks the user through selecting a board, options and firmware,
// then flashes in a loop until they are done.
type Wizard struct {
	Prompt     Prompter
	Out        *console.Printer
	Device     Device
	Config     config.Config
	ConfigPath string
	History    Recorder // optional
	Log        logrus.FieldLogger
	Version    string

	// Checker runs the dependency check at startup; nil skips it.
	Checker *probe.Checker

	// Save persists Config; defaults to config.Save.
	Save func(path string, cfg config.Config) error
}

// ErrMissingDependencies ends the wizard when the user will not continue
// without the tools wlink needs.
var ErrMissingDependencies = errors.New("missing required dependencies")

type selection struct {
	board    chip.Board
	options  chip.Options
	firmware string
}

func (w *Wizard) logger() logrus.FieldLogger {
	if w.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		w.Log = l
	}
	return w.Log
}

// Run runs the wizard until the user quits. Cancelling a prompt ends the
// wizard without an error.
func (w *Wizard) Run(ctx context.Context) error {
	err := w.run(ctx)
	switch {
	case errors.Is(err, shared.ErrAborted), errors.Is(err, context.Canceled):
		w.Out.Warn("\nProgram interrupted by user")
		return nil
	case errors.Is(err, ErrMissingDependencies):
		w.Out.Error("Cannot proceed without required dependencies.")
		return err
	case err != nil:
		w.Out.Error("\nCritical Error: %v", err)
		return err
	}
	w.Out.Plain("\n" + banner.Farewell())
	return nil
}

func (w *Wizard) run(ctx context.Context) error {
	w.Out.Plain(banner.Welcome(w.Version))

	if err := w.checkDependencies(); err != nil {
		return err
	}
	if err := w.checkConnection(ctx); err != nil {
		return err
	}

	var sel selection
	var err error
	if sel.board, err = w.chooseBoard(ctx); err != nil {
		return err
	}
	if sel.options, err = w.chooseOptions(sel.board); err != nil {
		return err
	}

	for {
		if sel.firmware == "" {
			if sel.firmware, err = w.chooseFirmware(sel.board); err != nil {
				return err
			}
		}

		out, err := w.flash(ctx, &sel)
		if err != nil {
			return err
		}

		if !out.Succeeded {
			retry, err := w.Prompt.Confirm("Would you like to retry?", true)
			if err != nil {
				return err
			}
			if !retry {
				return nil
			}
			if err := w.maybeChangeSettings(ctx, &sel, true); err != nil {
				return err
			}
			continue
		}

		again, err := w.Prompt.Confirm("Would you like to flash another device with the same settings?", false)
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
		w.Out.Plain(banner.Welcome(w.Version))
		if err := w.maybeChangeSettings(ctx, &sel, false); err != nil {
			return err
		}
	}
}

// maybeChangeSettings offers to change firmware and device. After a
// failure the firmware question comes first.
func (w *Wizard) maybeChangeSettings(ctx context.Context, sel *selection, firmwareFirst bool) error {
	change, err := w.Prompt.Confirm("Would you like to change any settings?", false)
	if err != nil || !change {
		return err
	}

	askFirmware := func() error {
		ok, err := w.Prompt.Confirm("Would you like to change the firmware file location?", false)
		if ok {
			sel.firmware = ""
		}
		return err
	}
	askDevice := func() error {
		ok, err := w.Prompt.Confirm("Would you like to change the device type?", false)
		if err != nil || !ok {
			return err
		}
		if sel.board, err = w.chooseBoard(ctx); err != nil {
			return err
		}
		sel.options, err = w.chooseOptions(sel.board)
		return err
	}

	steps := []func() error{askDevice, askFirmware}
	if firmwareFirst {
		steps = []func() error{askFirmware, askDevice}
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// flash runs one session. It returns the session context's error when the
// user aborted a spinner or prompt mid-session.
func (w *Wizard) flash(ctx context.Context, sel *selection) (flasher.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tool := &spinningTool{Tool: w.Device, prompt: w.Prompt, cancel: cancel}
	orch := flasher.New(tool,
		flasher.WithLogger(w.logger()),
		flasher.WithObserver(w.Out.Observe),
		flasher.WithSleeper(w.Prompt.Sleep),
		flasher.WithMaxRetries(w.Config.ResolvedMaxRetries()),
		flasher.WithRetryDelay(w.Config.ResolvedRetryDelay()),
		flasher.WithConfirm(w.confirmMismatch(cancel)),
	)

	req := flasher.Request{
		Declared:     sel.board.Profile(),
		FirmwarePath: sel.firmware,
		Options:      sel.options,
	}
	out := orch.Flash(ctx, req)
	w.record(ctx, sel.board.Name, req, out)
	if err := ctx.Err(); err != nil {
		return out, err
	}

	// a confirmed mismatch switches the board for the next round
	if sel.board.IsPreset() && !out.Profile.IsZero() && out.Profile.ID != sel.board.Chip {
		if b, ok := chip.BoardForChip(out.Profile.ID); ok {
			sel.board = b
			sel.options, _ = b.Options()
		}
	}
	return out, nil
}

// confirmMismatch returns a ConfirmFunc for one session. Aborting the
// question cancels the session instead of declining.
func (w *Wizard) confirmMismatch(cancel context.CancelFunc) flasher.ConfirmFunc {
	return func(declared, detected chip.Profile) bool {
		w.Out.Warn("Warning: Selected device type (%s) does not match detected chip (%s)", declared.ID, detected.ID)
		ok, err := w.Prompt.Confirm("Would you like to continue with the detected chip type?", true)
		if errors.Is(err, shared.ErrAborted) {
			cancel()
		}
		return err == nil && ok
	}
}

func (w *Wizard) record(ctx context.Context, device string, req flasher.Request, out flasher.Outcome) {
	if w.History == nil {
		return
	}
	if _, err := w.History.Record(context.WithoutCancel(ctx), history.NewEntry(device, req, out)); err != nil {
		w.logger().WithError(err).Warn("could not record flash history")
	}
}

func (w *Wizard) save() {
	save := w.Save
	if save == nil {
		save = config.Save
	}
	if w.ConfigPath == "" {
		return
	}
	if err := save(w.ConfigPath, w.Config); err != nil {
		w.Out.Warn("Warning: Could not save settings: %v", err)
	}
}

// checkDependencies reports missing tools and asks whether to go on
// without them. Fix commands are printed, never run.
func (w *Wizard) checkDependencies() error {
	if w.Checker == nil {
		return nil
	}
	report := w.Checker.Run()
	if report.OK() {
		return nil
	}

	w.Out.Warn("Some dependencies are missing.")
	for _, c := range report.Failed() {
		w.Out.Check(c)
	}
	proceed, err := w.Prompt.Confirm("Would you like to continue anyway?", false)
	if err != nil {
		return err
	}
	if !proceed {
		return ErrMissingDependencies
	}
	return nil
}

func (w *Wizard) checkConnection(ctx context.Context) error {
	for {
		var adapters []string
		err := w.Prompt.Spin(ctx, "Checking device connection...", func(ctx context.Context) error {
			var err error
			adapters, err = w.Device.Adapters(ctx)
			return err
		})
		if errors.Is(err, shared.ErrAborted) {
			return err
		}
		if err == nil && len(adapters) > 0 {
			for _, a := range adapters {
				w.Out.Success("► %s", a)
			}
			return nil
		}

		if err != nil {
			w.logger().WithError(err).Debug("adapter listing failed")
		}
		w.Out.Error("No WCH-Link device found. Please check the USB connection.")
		retry, perr := w.Prompt.Confirm("Would you like to check again?", true)
		if perr != nil {
			return perr
		}
		if !retry {
			return fmt.Errorf("no WCH-Link adapter connected")
		}
	}
}
