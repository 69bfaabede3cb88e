package wizard

import (
	"context"
	"errors"

	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/flasher"
	"github.com/dylan/wchflash/tui/shared"
	"github.com/dylan/wchflash/wlink"
)

// spinningTool shows a spinner while each wlink call runs. Aborting a
// spinner cancels the whole session.
type spinningTool struct {
	flasher.Tool
	prompt Prompter
	cancel context.CancelFunc
}

func (t *spinningTool) spin(ctx context.Context, label string, fn func(context.Context) error) error {
	err := t.prompt.Spin(ctx, label, fn)
	if errors.Is(err, shared.ErrAborted) {
		t.cancel()
		return context.Canceled
	}
	return err
}

func (t *spinningTool) Detect(ctx context.Context) (d wlink.Detection, err error) {
	spinErr := t.spin(ctx, "Detecting chip type...", func(ctx context.Context) error {
		d, err = t.Tool.Detect(ctx)
		return err
	})
	if err == nil {
		err = spinErr
	}
	return d, err
}

func (t *spinningTool) Erase(ctx context.Context, method chip.EraseMethod, chipID string) (res wlink.Result, err error) {
	spinErr := t.spin(ctx, "Erasing chip...", func(ctx context.Context) error {
		res, err = t.Tool.Erase(ctx, method, chipID)
		return err
	})
	if err == nil {
		err = spinErr
	}
	return res, err
}

func (t *spinningTool) Reset(ctx context.Context) error {
	return t.spin(ctx, "Resetting device...", t.Tool.Reset)
}

func (t *spinningTool) Flash(ctx context.Context, chipID string, speed chip.Speed, verify bool, path string) (res wlink.Result, err error) {
	spinErr := t.spin(ctx, "Flashing firmware...", func(ctx context.Context) error {
		res, err = t.Tool.Flash(ctx, chipID, speed, verify, path)
		return err
	})
	if err == nil {
		err = spinErr
	}
	return res, err
}
