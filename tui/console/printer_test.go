package console

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/flasher"
	"github.com/dylan/wchflash/wlink"
)

func TestOutputPrettifies(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	p.Output("12:00:01 [INFO] Connected to WCH-Link v2.10\n\n[INFO] Flash done\n")

	got := buf.String()
	for _, want := range []string{"► Connected to WCH-Link v2.10", "► Flash completed successfully"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "[INFO]") {
		t.Errorf("level tags not stripped:\n%s", got)
	}
}

func TestDiagnosisNumbersSteps(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Diagnosis(wlink.Diagnose(wlink.KindUSBIO, ""))
	got := buf.String()
	if !strings.Contains(got, "USB I/O Error") || !strings.Contains(got, "1. Unplug and replug") || !strings.Contains(got, "4. Ensure device") {
		t.Errorf("diagnosis:\n%s", got)
	}
}

func TestObserveSession(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	prof, _ := chip.Lookup("CH32V20X")

	events := []flasher.Event{
		{Kind: flasher.EventDetected, Profile: prof},
		{Kind: flasher.EventState, State: flasher.StateErasing},
		{Kind: flasher.EventInvoke, State: flasher.StateFlashing, Speed: chip.SpeedMedium, Attempt: 2, MaxAttempts: 3},
		{Kind: flasher.EventResult, State: flasher.StateFlashing, Attempt: 2, MaxAttempts: 3,
			Result: wlink.Result{ExitCode: 1, Stderr: "Error: Operation timed out"}, Err: errors.New("exit status 1")},
		{Kind: flasher.EventWarning, Err: errors.New("reset failed: no target")},
		{Kind: flasher.EventState, State: flasher.StateFailed,
			Err: &flasher.FlashExhaustedError{Chip: "CH32V20X", Attempts: 9, Kind: wlink.KindConnectionTimeout}},
	}
	for _, ev := range events {
		p.Observe(ev)
	}

	got := buf.String()
	for _, want := range []string{
		"Chip: CH32V20X",
		"high → medium → low",
		"Starting Firmware Update",
		"Speed: medium",
		"attempt 2/3",
		"Device connection timed out",
		"Retrying flash command with same speed",
		"reset failed: no target",
		"Firmware Update Error: firmware flash failed on CH32V20X",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

type statusTool struct {
	output string
}

func (t statusTool) Detect(ctx context.Context) (wlink.Detection, error) {
	return wlink.Detection{Output: t.output}, wlink.ErrChipNotFound
}

func (statusTool) Reset(ctx context.Context) error { return nil }

func (statusTool) Erase(ctx context.Context, method chip.EraseMethod, chipID string) (wlink.Result, error) {
	return wlink.Result{}, nil
}

func (statusTool) Flash(ctx context.Context, chipID string, speed chip.Speed, verify bool, path string) (wlink.Result, error) {
	return wlink.Result{}, nil
}

func TestDetectionFailureShowsRawOutput(t *testing.T) {
	fw := filepath.Join(t.TempDir(), "fw.bin")
	if err := os.WriteFile(fw, []byte{1}, 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	p := New(&buf)
	raw := "12:00:01 [INFO] Connected to WCH-Link v2.10\nAttached chip: unknown 0xdeadbeef"
	orch := flasher.New(statusTool{output: raw}, flasher.WithObserver(p.Observe))
	if out := orch.Flash(context.Background(), flasher.Request{FirmwarePath: fw}); out.Succeeded {
		t.Fatal("expected detection failure")
	}

	got := buf.String()
	for _, want := range []string{"chip detection failed", "Device detection details:", "Attached chip: unknown 0xdeadbeef"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
