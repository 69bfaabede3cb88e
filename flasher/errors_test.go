package flasher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/wlink"
)

func TestErrorMessages(t *testing.T) {
	testCases := []struct {
		descr string
		err   error
		want  string
	}{
		{"validation", &ValidationError{Path: "x.hex", Reason: "must be a .bin file"}, `invalid firmware "x.hex": must be a .bin file`},
		{"mismatch", &ChipMismatchError{Declared: "CH32V003", Detected: "CH32V30X"}, "chip type mismatch: expected CH32V003, got CH32V30X"},
		{"erase", &EraseFailedError{Chip: "CH32V30X", Attempts: 3, Kind: wlink.KindUSBIO}, "chip erase failed after 3 attempts on CH32V30X (usb-io-error)"},
		{"exhausted", &FlashExhaustedError{Chip: "CH57X", Attempts: 9, Speeds: []chip.Speed{chip.SpeedHigh, chip.SpeedMedium, chip.SpeedLow}},
			"firmware flash failed on CH57X after 9 attempts (speeds tried: high, medium, low)"},
	}
	for _, tc := range testCases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Test %q: got %q, want %q", tc.descr, got, tc.want)
		}
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("usb gone")
	if !errors.Is(&ResetFailedError{Err: cause}, cause) {
		t.Error("ResetFailedError should unwrap")
	}
	wrapped := fmt.Errorf("session: %w", &DetectionFailure{Err: cause})
	var df *DetectionFailure
	if !errors.As(wrapped, &df) || !errors.Is(wrapped, cause) {
		t.Error("DetectionFailure should be reachable through wrapping")
	}
}

func TestDiagnoseSessionErrors(t *testing.T) {
	if d := Diagnose(nil); d.Summary != "" || len(d.Steps) != 0 {
		t.Errorf("Diagnose(nil) = %+v", d)
	}

	usb := Diagnose(&FlashExhaustedError{Chip: "CH32V30X", Kind: wlink.KindUSBIO})
	if len(usb.Steps) != 5 {
		t.Fatalf("USB diagnosis steps = %v, want summary plus 4 steps", usb.Steps)
	}
	if !strings.Contains(usb.Steps[1], "Unplug") {
		t.Errorf("first remediation = %q", usb.Steps[1])
	}

	plain := Diagnose(&FlashExhaustedError{Chip: "CH32V30X", Kind: wlink.KindUnclassified, Output: "weird"})
	if len(plain.Steps) != 0 {
		t.Errorf("unclassified failures should carry no steps, got %v", plain.Steps)
	}
	if !strings.HasPrefix(plain.Summary, "firmware flash failed") {
		t.Errorf("summary = %q", plain.Summary)
	}
}

func TestValidateFirmware(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "fw.BIN")
	hex := filepath.Join(dir, "fw.hex")
	for _, p := range []string{good, hex} {
		if err := os.WriteFile(p, []byte{1}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	testCases := []struct {
		descr   string
		path    string
		wantErr bool
	}{
		{"empty path", "", true},
		{"missing file", filepath.Join(dir, "nope.bin"), true},
		{"directory", dir, true},
		{"wrong extension", hex, true},
		{"upper-case extension", good, false},
	}
	for _, tc := range testCases {
		abs, err := ValidateFirmware(tc.path)
		if tc.wantErr {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Test %q: error = %v, want ValidationError", tc.descr, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Test %q: unexpected error %v", tc.descr, err)
			continue
		}
		if !filepath.IsAbs(abs) {
			t.Errorf("Test %q: path %q not absolute", tc.descr, abs)
		}
	}
}
