package wizard

import (
	"context"
	"errors"
	"os"

	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/flasher"
	"github.com/dylan/wchflash/tui/shared"
	"github.com/dylan/wchflash/wlink"
)

const (
	useDefaultPath = "Use default path"
	useSavedPath   = "Use saved path"
	selectNewPath  = "Select new firmware path"
)

// chooseBoard offers the auto-detected board first, then the menu.
func (w *Wizard) chooseBoard(ctx context.Context) (chip.Board, error) {
	var det wlink.Detection
	err := w.Prompt.Spin(ctx, "Detecting chip type...", func(ctx context.Context) error {
		var err error
		det, err = w.Device.Detect(ctx)
		return err
	})
	switch {
	case errors.Is(err, shared.ErrAborted):
		return chip.Board{}, err
	case err != nil:
		w.logger().WithError(err).Debug("auto-detect failed")
		w.Out.Warn("Could not auto-detect chip type")
	default:
		if b, ok := chip.BoardForChip(det.Profile.ID); ok {
			w.Out.Success("► Detected chip type: %s", det.Profile.ID)
			use, err := w.Prompt.Confirm("Would you like to use detected chip type ("+det.Profile.ID+")?", true)
			if err != nil {
				return chip.Board{}, err
			}
			if use {
				return b, w.remember(b)
			}
		} else {
			w.Out.Success("► Detected chip type: %s", det.Profile.ID)
		}
	}

	names := make([]string, len(chip.Boards))
	def := 0
	for i, b := range chip.Boards {
		names[i] = b.Name
		if b.Name == w.Config.Device {
			def = i
		}
	}
	idx, err := w.Prompt.Select("Select device type:", names, def)
	if err != nil {
		return chip.Board{}, err
	}
	b := chip.Boards[idx]
	return b, w.remember(b)
}

// remember offers to make b the default device type.
func (w *Wizard) remember(b chip.Board) error {
	if w.Config.Device == b.Name {
		return nil
	}
	keep, err := w.Prompt.Confirm("Save this device type as default?", true)
	if err != nil || !keep {
		return err
	}
	w.Config.Device = b.Name
	w.save()
	return nil
}

// chooseOptions returns the pinned options of a preset board, or asks for
// speed and erase method.
func (w *Wizard) chooseOptions(b chip.Board) (chip.Options, error) {
	if opts, ok := b.Options(); ok {
		return opts, nil
	}

	w.Out.Plain(shared.TitleStyle.Render("\nWLink Configuration Options"))
	current := w.Config.ResolvedOptions()

	speeds := make([]string, len(chip.Speeds))
	speedDef := 0
	for i, s := range chip.Speeds {
		speeds[i] = s.String()
		if s == current.Speed {
			speedDef = i
		}
	}
	si, err := w.Prompt.Select("Select connection speed:", speeds, speedDef)
	if err != nil {
		return chip.Options{}, err
	}

	methods := make([]string, len(chip.EraseMethods))
	methodDef := 0
	for i, m := range chip.EraseMethods {
		methods[i] = m.String()
		if m == current.EraseMethod {
			methodDef = i
		}
	}
	mi, err := w.Prompt.Select("Select erase method:", methods, methodDef)
	if err != nil {
		return chip.Options{}, err
	}

	opts := chip.Options{EraseMethod: chip.EraseMethods[mi], Speed: chip.Speeds[si]}
	keep, err := w.Prompt.Confirm("Save these options as default?", true)
	if err != nil {
		return chip.Options{}, err
	}
	if keep {
		w.Config.DefaultOptions = opts
		w.save()
	}
	return opts, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return path != "" && err == nil
}

func validateFirmware(path string) error {
	_, err := flasher.ValidateFirmware(path)
	return err
}

// chooseFirmware resolves the image to flash for a board.
func (w *Wizard) chooseFirmware(b chip.Board) (string, error) {
	saved := w.Config.FirmwarePath

	if !b.IsPreset() {
		if exists(saved) {
			w.Out.Success("Using saved firmware path: %s", saved)
			return saved, nil
		}
		return w.askFirmware("Enter firmware file path:", "")
	}

	def := b.DefaultFirmware
	if exists(def) {
		w.Out.Success("Current firmware path: %s", def)
	}

	choices := []string{useDefaultPath}
	if exists(saved) && saved != def {
		choices = append(choices, useSavedPath+" ("+saved+")")
	}
	choices = append(choices, selectNewPath)

	idx, err := w.Prompt.Select("Firmware file options:", choices, 0)
	if err != nil {
		return "", err
	}
	switch {
	case idx == 0 && exists(def):
		return def, nil
	case idx == 0:
		w.Out.Warn("Default firmware path not found. Please select a new path.")
	case idx == 1 && len(choices) == 3:
		return saved, nil
	}

	start := ""
	if exists(def) {
		start = def
	}
	return w.askFirmware("Select firmware file:", start)
}

func (w *Wizard) askFirmware(prompt, def string) (string, error) {
	path, err := w.Prompt.Path(prompt, def, validateFirmware)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", &flasher.ValidationError{Reason: "no firmware file selected"}
	}
	if w.Config.FirmwarePath != path {
		keep, err := w.Prompt.Confirm("Save this firmware path as default?", true)
		if err != nil {
			return "", err
		}
		if keep {
			w.Config.FirmwarePath = path
			w.save()
		}
	}
	return path, nil
}
