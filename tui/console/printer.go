package console

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/flasher"
	"github.com/dylan/wchflash/probe"
	"github.com/dylan/wchflash/tui/banner"
	"github.com/dylan/wchflash/tui/shared"
	"github.com/dylan/wchflash/wlink"
)

// Printer writes user-facing progress to a terminal.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

func New(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}

func (p *Printer) Feedback(f shared.Feedback) { p.println(f.Render()) }

func (p *Printer) Info(format string, args ...any) {
	p.Feedback(shared.Feedback{Level: shared.FeedbackInfo, Message: fmt.Sprintf(format, args...)})
}

func (p *Printer) Success(format string, args ...any) {
	p.Feedback(shared.Feedback{Level: shared.FeedbackSuccess, Message: fmt.Sprintf(format, args...)})
}

func (p *Printer) Warn(format string, args ...any) {
	p.Feedback(shared.Feedback{Level: shared.FeedbackWarning, Message: fmt.Sprintf(format, args...)})
}

func (p *Printer) Error(format string, args ...any) {
	p.Feedback(shared.Feedback{Level: shared.FeedbackError, Message: fmt.Sprintf(format, args...)})
}

// Plain writes s without styling.
func (p *Printer) Plain(s string) { p.println(s) }

// Output prints raw wlink output as prettified bullets.
func (p *Printer) Output(raw string) {
	for _, line := range wlink.Prettify(raw) {
		p.println(shared.BulletStyle.Render(line))
	}
}

// Diagnosis prints a failure summary and its remediation steps.
func (p *Printer) Diagnosis(d wlink.Diagnosis) {
	if d.Summary == "" {
		return
	}
	p.Error("%s", d.Summary)
	for i, step := range d.Steps {
		if len(d.Steps) > 1 {
			p.Warn("%d. %s", i+1, step)
		} else {
			p.Warn("%s", step)
		}
	}
}

// Check prints one dependency check and, when it failed, the commands that
// fix it. The commands are only shown.
func (p *Printer) Check(c probe.Check) {
	if c.OK {
		p.Success("✓ %s: %s", c.Name, c.Detail)
		return
	}
	p.Error("✗ %s: %s", c.Name, c.Detail)
	for _, fix := range c.Fix {
		p.Info("    %s", fix)
	}
}

// Observe renders orchestrator events. It matches flasher.Observer.
func (p *Printer) Observe(ev flasher.Event) {
	switch ev.Kind {
	case flasher.EventState:
		p.state(ev)
	case flasher.EventDetected:
		p.detected(ev.Profile)
	case flasher.EventInvoke:
		p.invoke(ev)
	case flasher.EventResult:
		p.result(ev)
	case flasher.EventWarning:
		p.Warn("Warning: %v", ev.Err)
	}
}

func (p *Printer) state(ev flasher.Event) {
	switch ev.State {
	case flasher.StateDetecting:
		p.Info("Detecting chip type...")
	case flasher.StateErasing:
		p.println(banner.Section("Starting Firmware Update"))
	case flasher.StateResetting:
		p.Info("► Resetting device...")
	case flasher.StateSucceeded:
		p.Success("\n✨ Firmware update completed successfully! ✨")
	case flasher.StateFailed:
		p.Error("\nFirmware Update Error: %v", ev.Err)
		var df *flasher.DetectionFailure
		if errors.As(ev.Err, &df) && strings.TrimSpace(df.Output) != "" {
			p.Feedback(shared.Feedback{
				Level:   shared.FeedbackWarning,
				Message: "Device detection details:",
				Detail:  strings.TrimRight(df.Output, "\n"),
			})
		}
		p.Diagnosis(trimSummary(flasher.Diagnose(ev.Err)))
	}
}

// trimSummary drops the summary line, which StateFailed already printed.
func trimSummary(d wlink.Diagnosis) wlink.Diagnosis {
	if len(d.Steps) == 0 {
		return wlink.Diagnosis{}
	}
	return wlink.Diagnosis{Summary: d.Steps[0], Steps: d.Steps[1:]}
}

func (p *Printer) detected(prof chip.Profile) {
	if prof.Preset {
		p.Success("► VSD Squadran mini detected")
	}
	p.Success("► Detected device configuration:")
	p.Success("  • Chip: %s", prof.ID)
	p.Success("  • Erase method: %s", prof.EraseMethod)
	if prof.Fixed() {
		p.Success("  • Speed: %s (verify)", prof.FixedSpeed)
		return
	}
	speeds := make([]string, 0, len(prof.FlashSpeeds()))
	for _, s := range prof.FlashSpeeds() {
		speeds = append(speeds, s.String())
	}
	p.Success("  • Speeds: %s", strings.Join(speeds, " → "))
}

func (p *Printer) invoke(ev flasher.Event) {
	attempt := ""
	if ev.Attempt > 1 {
		attempt = fmt.Sprintf(" (attempt %d/%d)", ev.Attempt, ev.MaxAttempts)
	}
	if ev.State == flasher.StateErasing {
		p.Warn("\n► Executing erase command...%s", attempt)
		return
	}
	p.Warn("\n► Executing flash command (Speed: %s)...%s", ev.Speed, attempt)
}

func (p *Printer) result(ev flasher.Event) {
	if out := ev.Result.Stdout; strings.TrimSpace(out) != "" {
		p.Output(out)
	}
	if ev.Err == nil {
		return
	}
	kind := ev.Result.Kind()
	if kind == wlink.KindNone {
		kind = wlink.KindUnclassified
	}
	p.Diagnosis(wlink.Diagnose(kind, ev.Result.Output()))
	if ev.Attempt < ev.MaxAttempts {
		if ev.State == flasher.StateErasing {
			p.Warn("Retrying erase command...")
		} else {
			p.Warn("Retrying flash command with same speed...")
		}
	}
}
