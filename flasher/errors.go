package flasher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/wlink"
)

// ValidationError indicates the firmware path cannot be flashed.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid firmware %q: %s", e.Path, e.Reason)
}

// DetectionFailure indicates no known chip could be identified. Output holds
// the raw status text for manual troubleshooting.
type DetectionFailure struct {
	Output string
	Err    error
}

func (e *DetectionFailure) Error() string {
	return fmt.Sprintf("chip detection failed: %v", e.Err)
}

func (e *DetectionFailure) Unwrap() error { return e.Err }

// ChipMismatchError indicates the attached chip differs from the declared
// one and the user declined to continue.
type ChipMismatchError struct {
	Declared string
	Detected string
}

func (e *ChipMismatchError) Error() string {
	return fmt.Sprintf("chip type mismatch: expected %s, got %s", e.Declared, e.Detected)
}

// EraseFailedError indicates every erase attempt failed.
type EraseFailedError struct {
	Chip     string
	Attempts int
	Kind     wlink.ErrorKind
	Output   string
}

func (e *EraseFailedError) Error() string {
	return fmt.Sprintf("chip erase failed after %d attempts on %s (%s)", e.Attempts, e.Chip, e.Kind)
}

// ResetFailedError indicates a reset failed on a profile that needs the
// device to settle before flashing.
type ResetFailedError struct {
	Err error
}

func (e *ResetFailedError) Error() string {
	return fmt.Sprintf("failed to reset device: %v", e.Err)
}

func (e *ResetFailedError) Unwrap() error { return e.Err }

// FlashExhaustedError indicates every speed and retry was used up.
type FlashExhaustedError struct {
	Chip     string
	Speeds   []chip.Speed
	Attempts int
	Kind     wlink.ErrorKind
	Output   string
}

func (e *FlashExhaustedError) Error() string {
	speeds := make([]string, len(e.Speeds))
	for i, s := range e.Speeds {
		speeds[i] = s.String()
	}
	return fmt.Sprintf("firmware flash failed on %s after %d attempts (speeds tried: %s)",
		e.Chip, e.Attempts, strings.Join(speeds, ", "))
}

// Diagnose turns a session error into the message shown to the user.
func Diagnose(err error) wlink.Diagnosis {
	if err == nil {
		return wlink.Diagnosis{}
	}

	var kind wlink.ErrorKind
	var output string
	var eraseErr *EraseFailedError
	var flashErr *FlashExhaustedError
	switch {
	case errors.As(err, &eraseErr):
		kind, output = eraseErr.Kind, eraseErr.Output
	case errors.As(err, &flashErr):
		kind, output = flashErr.Kind, flashErr.Output
	}

	d := wlink.Diagnosis{Summary: err.Error()}
	if kind != wlink.KindNone && kind != wlink.KindUnclassified {
		cause := wlink.Diagnose(kind, output)
		d.Steps = append([]string{cause.Summary}, cause.Steps...)
	}
	return d
}
