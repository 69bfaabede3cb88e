package flasher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/wlink"
)

// fakeTool simulates wlink for a single attached chip.
type fakeTool struct {
	detected  chip.Profile
	detectErr error

	eraseFails int // number of leading erase failures
	resetErr   error
	flashOK    func(speed chip.Speed, call int) bool
	failOutput string

	detects int
	erases  int
	resets  int
	flashes []chip.Speed
	verify  []bool
	paths   []string
	methods []chip.EraseMethod
	log     []string
}

func (f *fakeTool) Detect(context.Context) (wlink.Detection, error) {
	f.detects++
	f.log = append(f.log, "detect")
	if f.detectErr != nil {
		return wlink.Detection{Output: "raw status"}, f.detectErr
	}
	return wlink.Detection{Profile: f.detected, Output: "raw status"}, nil
}

func (f *fakeTool) Erase(_ context.Context, method chip.EraseMethod, _ string) (wlink.Result, error) {
	f.erases++
	f.methods = append(f.methods, method)
	f.log = append(f.log, "erase")
	if f.erases <= f.eraseFails {
		return wlink.Result{ExitCode: 1, Stderr: f.failOutput}, errors.New("erase failed")
	}
	return wlink.Result{Stdout: "Erase done"}, nil
}

func (f *fakeTool) Reset(context.Context) error {
	f.resets++
	f.log = append(f.log, "reset")
	return f.resetErr
}

func (f *fakeTool) Flash(_ context.Context, _ string, speed chip.Speed, verify bool, path string) (wlink.Result, error) {
	f.flashes = append(f.flashes, speed)
	f.verify = append(f.verify, verify)
	f.paths = append(f.paths, path)
	f.log = append(f.log, "flash:"+speed.String())
	if f.flashOK != nil && f.flashOK(speed, len(f.flashes)) {
		return wlink.Result{Stdout: "Flash done"}, nil
	}
	return wlink.Result{ExitCode: 1, Stderr: f.failOutput}, errors.New("flash failed")
}

func (f *fakeTool) invocations() int {
	return f.detects + f.erases + f.resets + len(f.flashes)
}

type sleepRecorder struct {
	waits []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration, _ string) error {
	r.waits = append(r.waits, d)
	return nil
}

func writeFirmware(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.bin")
	if err := os.WriteFile(path, []byte{0x6f, 0x00, 0x00, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func genericProfile(t *testing.T, id string) chip.Profile {
	t.Helper()
	p, ok := chip.Lookup(id)
	if !ok {
		t.Fatalf("unknown chip %s", id)
	}
	return p
}

func newTestOrchestrator(tool Tool, opts ...Option) (*Orchestrator, *sleepRecorder) {
	rec := &sleepRecorder{}
	opts = append([]Option{WithSleeper(rec.sleep)}, opts...)
	return New(tool, opts...), rec
}

func TestEscalatesUntilLowSpeedSucceeds(t *testing.T) {
	tool := &fakeTool{
		detected: genericProfile(t, "CH32V20X"),
		flashOK:  func(s chip.Speed, _ int) bool { return s == chip.SpeedLow },
	}
	o, _ := newTestOrchestrator(tool)

	ok, opts := o.AttemptFlash(context.Background(), chip.Profile{}, writeFirmware(t),
		chip.Options{EraseMethod: chip.EraseDefault, Speed: chip.SpeedHigh})
	if !ok {
		t.Fatal("expected success at low speed")
	}
	if opts.Speed != chip.SpeedLow {
		t.Errorf("final speed = %s, want low", opts.Speed)
	}

	want := []chip.Speed{
		chip.SpeedHigh, chip.SpeedHigh, chip.SpeedHigh,
		chip.SpeedMedium, chip.SpeedMedium, chip.SpeedMedium,
		chip.SpeedLow,
	}
	if len(tool.flashes) != len(want) {
		t.Fatalf("flash invocations = %v, want %v", tool.flashes, want)
	}
	for i := range want {
		if tool.flashes[i] != want[i] {
			t.Errorf("flash %d at %s, want %s", i, tool.flashes[i], want[i])
		}
	}
	failed := 0
	for _, s := range tool.flashes {
		if s != chip.SpeedLow {
			failed++
		}
	}
	if failed != 2*MaxRetries {
		t.Errorf("failed flash invocations = %d, want %d", failed, 2*MaxRetries)
	}
}

func TestFixedSpeedNeverEscalates(t *testing.T) {
	tool := &fakeTool{detected: genericProfile(t, "CH32V003")}
	o, _ := newTestOrchestrator(tool)

	out := o.Flash(context.Background(), Request{
		FirmwarePath: writeFirmware(t),
		Options:      chip.Options{EraseMethod: chip.EraseDefault, Speed: chip.SpeedHigh},
	})
	if out.Succeeded {
		t.Fatal("expected failure")
	}
	if len(tool.flashes) != MaxRetries {
		t.Fatalf("flash invocations = %d, want %d", len(tool.flashes), MaxRetries)
	}
	for i, s := range tool.flashes {
		if s != chip.SpeedLow {
			t.Errorf("flash %d at %s, want low", i, s)
		}
		if !tool.verify[i] {
			t.Errorf("flash %d should force --verify", i)
		}
	}
	var exhausted *FlashExhaustedError
	if !errors.As(out.Err, &exhausted) {
		t.Fatalf("error = %v, want FlashExhaustedError", out.Err)
	}
	if len(exhausted.Speeds) != 1 || exhausted.Speeds[0] != chip.SpeedLow {
		t.Errorf("exhausted speeds = %v, want [low]", exhausted.Speeds)
	}
}

func TestEraseExhaustionPreventsFlash(t *testing.T) {
	tool := &fakeTool{
		detected:   genericProfile(t, "CH32V30X"),
		eraseFails: MaxRetries,
		failOutput: "Error: Operation timed out",
		flashOK:    func(chip.Speed, int) bool { return true },
	}
	o, rec := newTestOrchestrator(tool)

	out := o.Flash(context.Background(), Request{FirmwarePath: writeFirmware(t), Options: chip.DefaultOptions()})
	if out.Succeeded {
		t.Fatal("expected failure")
	}
	if tool.erases != MaxRetries {
		t.Errorf("erase invocations = %d, want %d", tool.erases, MaxRetries)
	}
	if len(tool.flashes) != 0 {
		t.Errorf("flash invocations = %d, want 0", len(tool.flashes))
	}
	var eraseErr *EraseFailedError
	if !errors.As(out.Err, &eraseErr) {
		t.Fatalf("error = %v, want EraseFailedError", out.Err)
	}
	if eraseErr.Kind != wlink.KindConnectionTimeout {
		t.Errorf("erase error kind = %s, want connection-timeout", eraseErr.Kind)
	}
	if len(rec.waits) != MaxRetries-1 {
		t.Errorf("waits between erases = %d, want %d", len(rec.waits), MaxRetries-1)
	}
	for _, w := range rec.waits {
		if w != DefaultRetryDelay {
			t.Errorf("erase retry wait = %s, want %s", w, DefaultRetryDelay)
		}
	}

	d := Diagnose(out.Err)
	if len(d.Steps) == 0 || !strings.Contains(d.Steps[0], "timed out") {
		t.Errorf("Diagnose() = %+v, want timeout explanation", d)
	}
}

func TestEraseRecoversWithinRetries(t *testing.T) {
	tool := &fakeTool{
		detected:   genericProfile(t, "CH32V30X"),
		eraseFails: MaxRetries - 1,
		flashOK:    func(chip.Speed, int) bool { return true },
	}
	o, _ := newTestOrchestrator(tool)

	out := o.Flash(context.Background(), Request{FirmwarePath: writeFirmware(t), Options: chip.DefaultOptions()})
	if !out.Succeeded {
		t.Fatalf("expected success, got %v", out.Err)
	}
	if out.Erases != MaxRetries {
		t.Errorf("Erases = %d, want %d", out.Erases, MaxRetries)
	}
}

func TestMissingFirmwareMakesNoInvocations(t *testing.T) {
	tool := &fakeTool{detected: genericProfile(t, "CH32V30X")}
	o, _ := newTestOrchestrator(tool)

	out := o.Flash(context.Background(), Request{
		FirmwarePath: filepath.Join(t.TempDir(), "missing.bin"),
		Options:      chip.DefaultOptions(),
	})
	var verr *ValidationError
	if !errors.As(out.Err, &verr) {
		t.Fatalf("error = %v, want ValidationError", out.Err)
	}
	if n := tool.invocations(); n != 0 {
		t.Errorf("external invocations = %d, want 0", n)
	}
}

func TestFirstTrySuccessShortCircuits(t *testing.T) {
	tool := &fakeTool{
		detected: genericProfile(t, "CH32V30X"),
		flashOK:  func(chip.Speed, int) bool { return true },
	}
	o, _ := newTestOrchestrator(tool)

	fw := writeFirmware(t)
	out := o.Flash(context.Background(), Request{FirmwarePath: fw, Options: chip.DefaultOptions()})
	if !out.Succeeded || out.Err != nil {
		t.Fatalf("expected success, got %v", out.Err)
	}
	if tool.erases != 1 || tool.resets != 1 || len(tool.flashes) != 1 {
		t.Errorf("erase/reset/flash = %d/%d/%d, want 1/1/1", tool.erases, tool.resets, len(tool.flashes))
	}
	want := []string{"detect", "erase", "reset", "flash:high"}
	if strings.Join(tool.log, ",") != strings.Join(want, ",") {
		t.Errorf("call order = %v, want %v", tool.log, want)
	}
	if !filepath.IsAbs(tool.paths[0]) {
		t.Errorf("firmware path %q should be absolute", tool.paths[0])
	}
	if len(out.Attempts) != 1 || out.Attempts[0].Number != 0 || out.Attempts[0].SpeedIndex != 0 {
		t.Errorf("attempts = %+v", out.Attempts)
	}
}

func TestMismatchDeclined(t *testing.T) {
	tool := &fakeTool{
		detected: genericProfile(t, "CH32V30X"),
		flashOK:  func(chip.Speed, int) bool { return true },
	}
	asked := false
	o, _ := newTestOrchestrator(tool, WithConfirm(func(declared, detected chip.Profile) bool {
		asked = true
		if declared.ID != "CH32V003" || detected.ID != "CH32V30X" {
			t.Errorf("confirm(%s, %s)", declared.ID, detected.ID)
		}
		return false
	}))

	out := o.Flash(context.Background(), Request{
		Declared:     chip.SquadranV003.Profile(),
		FirmwarePath: writeFirmware(t),
	})
	if !asked {
		t.Error("user should be asked about the mismatch")
	}
	var mismatch *ChipMismatchError
	if !errors.As(out.Err, &mismatch) {
		t.Fatalf("error = %v, want ChipMismatchError", out.Err)
	}
	if tool.erases != 0 || len(tool.flashes) != 0 {
		t.Errorf("erase/flash = %d/%d, want 0/0", tool.erases, len(tool.flashes))
	}
}

func TestMismatchAcceptedUsesDetectedPreset(t *testing.T) {
	tool := &fakeTool{
		detected: genericProfile(t, "CH32V30X"),
		flashOK:  func(chip.Speed, int) bool { return true },
	}
	o, _ := newTestOrchestrator(tool, WithConfirm(func(chip.Profile, chip.Profile) bool { return true }))

	out := o.Flash(context.Background(), Request{
		Declared:     chip.SquadranV003.Profile(),
		FirmwarePath: writeFirmware(t),
		Options:      chip.Options{EraseMethod: chip.EraseDefault, Speed: chip.SpeedHigh},
	})
	if !out.Succeeded {
		t.Fatalf("expected success, got %v", out.Err)
	}
	if out.Profile.ID != "CH32V30X" || !out.Profile.Preset {
		t.Errorf("profile = %v, want CH32V30X preset", out.Profile)
	}
	if tool.methods[0] != chip.ErasePowerOff {
		t.Errorf("erase method = %s, want power-off", tool.methods[0])
	}
	if tool.flashes[0] != chip.SpeedLow {
		t.Errorf("preset should start at low, got %s", tool.flashes[0])
	}
}

func TestMismatchWithoutConfirmAborts(t *testing.T) {
	tool := &fakeTool{detected: genericProfile(t, "CH32V30X")}
	o, _ := newTestOrchestrator(tool)

	ok, _ := o.AttemptFlash(context.Background(), chip.SquadranV003.Profile(), writeFirmware(t), chip.Options{})
	if ok {
		t.Fatal("expected failure")
	}
	if tool.erases != 0 {
		t.Errorf("erase invocations = %d, want 0", tool.erases)
	}
}

func TestDetectionFailureKeepsOutput(t *testing.T) {
	tool := &fakeTool{detectErr: wlink.ErrChipNotFound}
	o, _ := newTestOrchestrator(tool)

	out := o.Flash(context.Background(), Request{FirmwarePath: writeFirmware(t)})
	var df *DetectionFailure
	if !errors.As(out.Err, &df) {
		t.Fatalf("error = %v, want DetectionFailure", out.Err)
	}
	if df.Output != "raw status" {
		t.Errorf("DetectionFailure output = %q", df.Output)
	}
	if !errors.Is(out.Err, wlink.ErrChipNotFound) {
		t.Error("DetectionFailure should unwrap to ErrChipNotFound")
	}
}

func TestResetFailure(t *testing.T) {
	testCases := []struct {
		descr       string
		chipID      string
		wantSuccess bool
	}{
		{"generic profile treats reset failure as warning", "CH32V20X", true},
		{"settle profile treats reset failure as fatal", "CH32V003", false},
	}
	for _, tc := range testCases {
		tool := &fakeTool{
			detected: genericProfile(t, tc.chipID),
			resetErr: errors.New("reset: no target"),
			flashOK:  func(chip.Speed, int) bool { return true },
		}
		var warnings int
		o, _ := newTestOrchestrator(tool, WithObserver(func(ev Event) {
			if ev.Kind == EventWarning {
				warnings++
			}
		}))

		out := o.Flash(context.Background(), Request{FirmwarePath: writeFirmware(t), Options: chip.DefaultOptions()})
		if out.Succeeded != tc.wantSuccess {
			t.Fatalf("Test %q: succeeded = %v, err = %v", tc.descr, out.Succeeded, out.Err)
		}
		if tc.wantSuccess {
			if warnings != 1 {
				t.Errorf("Test %q: warnings = %d, want 1", tc.descr, warnings)
			}
			continue
		}
		var rerr *ResetFailedError
		if !errors.As(out.Err, &rerr) {
			t.Errorf("Test %q: error = %v, want ResetFailedError", tc.descr, out.Err)
		}
		if len(tool.flashes) != 0 {
			t.Errorf("Test %q: flash invocations = %d, want 0", tc.descr, len(tool.flashes))
		}
	}
}

func TestStartsAtConfiguredSpeed(t *testing.T) {
	tool := &fakeTool{detected: genericProfile(t, "CH57X")}
	o, _ := newTestOrchestrator(tool)

	out := o.Flash(context.Background(), Request{
		FirmwarePath: writeFirmware(t),
		Options:      chip.Options{EraseMethod: chip.ErasePinReset, Speed: chip.SpeedMedium},
	})
	if out.Succeeded {
		t.Fatal("expected failure")
	}
	if len(tool.flashes) != 2*MaxRetries {
		t.Fatalf("flash invocations = %d, want %d", len(tool.flashes), 2*MaxRetries)
	}
	if tool.flashes[0] != chip.SpeedMedium {
		t.Errorf("first speed = %s, want medium", tool.flashes[0])
	}
	if tool.methods[0] != chip.ErasePinReset {
		t.Errorf("erase method = %s, want pin-rst", tool.methods[0])
	}
	if out.Options.Speed != chip.SpeedLow {
		t.Errorf("last known speed = %s, want low", out.Options.Speed)
	}

	prev := -1
	for _, a := range out.Attempts {
		if a.SpeedIndex < prev {
			t.Fatalf("speed index decreased: %+v", out.Attempts)
		}
		prev = a.SpeedIndex
	}
}

func TestAttemptNumberResetsOnEscalation(t *testing.T) {
	tool := &fakeTool{
		detected: genericProfile(t, "CH32V20X"),
		flashOK:  func(s chip.Speed, _ int) bool { return s == chip.SpeedLow },
	}
	o, _ := newTestOrchestrator(tool)

	out := o.Flash(context.Background(), Request{FirmwarePath: writeFirmware(t), Options: chip.DefaultOptions()})
	wantNumbers := []int{0, 1, 2, 0, 1, 2, 0}
	if len(out.Attempts) != len(wantNumbers) {
		t.Fatalf("attempts = %d, want %d", len(out.Attempts), len(wantNumbers))
	}
	for i, a := range out.Attempts {
		if a.Number != wantNumbers[i] {
			t.Errorf("attempt %d number = %d, want %d", i, a.Number, wantNumbers[i])
		}
	}
}

func TestCancelledContextAborts(t *testing.T) {
	tool := &fakeTool{detected: genericProfile(t, "CH32V20X")}
	ctx, cancel := context.WithCancel(context.Background())
	o := New(tool, WithSleeper(func(context.Context, time.Duration, string) error {
		cancel()
		return context.Canceled
	}))

	out := o.Flash(ctx, Request{FirmwarePath: writeFirmware(t), Options: chip.DefaultOptions()})
	if out.Succeeded {
		t.Fatal("expected failure")
	}
	if !errors.Is(out.Err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", out.Err)
	}
	if len(tool.flashes) != 0 {
		t.Errorf("flash invocations = %d, want 0 after cancel during settle", len(tool.flashes))
	}
}

func TestObserverSeesStateSequence(t *testing.T) {
	tool := &fakeTool{
		detected: genericProfile(t, "CH32V20X"),
		flashOK:  func(chip.Speed, int) bool { return true },
	}
	var states []string
	o, _ := newTestOrchestrator(tool, WithObserver(func(ev Event) {
		if ev.Kind == EventState {
			states = append(states, ev.State.String())
		}
	}))

	o.Flash(context.Background(), Request{FirmwarePath: writeFirmware(t), Options: chip.DefaultOptions()})
	want := "validating,detecting,erasing,resetting,flashing,succeeded"
	if got := strings.Join(states, ","); got != want {
		t.Errorf("states = %s, want %s", got, want)
	}
}
