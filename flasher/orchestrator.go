package flasher

import (
	"context"
	"errors"
	"fmt"

	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/wlink"
	"github.com/sirupsen/logrus"
)

// Detector identifies the chip attached to the adapter.
type Detector interface {
	Detect(ctx context.Context) (wlink.Detection, error)
}

// Resetter resets the attached chip.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Programmer erases and writes flash.
type Programmer interface {
	Erase(ctx context.Context, method chip.EraseMethod, chipID string) (wlink.Result, error)
	Flash(ctx context.Context, chipID string, speed chip.Speed, verify bool, firmwarePath string) (wlink.Result, error)
}

// Tool is everything a session needs from the flashing utility.
// *wlink.Client implements it.
type Tool interface {
	Detector
	Resetter
	Programmer
}

// Request describes one flash session.
type Request struct {
	// Declared is the profile the user expects; zero when unknown.
	Declared     chip.Profile
	FirmwarePath string
	Options      chip.Options
}

// Attempt records one flash invocation.
type Attempt struct {
	Profile      chip.Profile
	FirmwarePath string
	Options      chip.Options
	Number       int // 0-based within the current speed
	SpeedIndex   int
	Result       wlink.Result
}

// Outcome is the result of a session. Err is nil exactly when Succeeded.
type Outcome struct {
	Succeeded bool
	Options   chip.Options
	Profile   chip.Profile
	Err       error
	Erases    int
	Attempts  []Attempt
}

// Orchestrator runs erase/reset/flash sessions with retry and speed
// escalation. It is not safe for concurrent use against one adapter.
type Orchestrator struct {
	tool   Tool
	config Config
}

// New creates an Orchestrator driving tool.
func New(tool Tool, opts ...Option) *Orchestrator {
	if tool == nil {
		panic("tool cannot be nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Orchestrator{tool: tool, config: cfg}
}

// AttemptFlash runs a session and reports success with the options that
// were in effect when it ended.
func (o *Orchestrator) AttemptFlash(ctx context.Context, declared chip.Profile, firmwarePath string, opts chip.Options) (bool, chip.Options) {
	out := o.Flash(ctx, Request{Declared: declared, FirmwarePath: firmwarePath, Options: opts})
	return out.Succeeded, out.Options
}

// Flash runs a full session. It never returns an error directly; failures
// are reported in Outcome.Err.
func (o *Orchestrator) Flash(ctx context.Context, req Request) Outcome {
	s := &session{
		o:    o,
		req:  req,
		log:  o.config.Logger.WithField("firmware", req.FirmwarePath),
		opts: req.Options,
	}
	s.run(ctx)

	out := s.outcome
	out.Succeeded = s.state == StateSucceeded
	out.Options = s.opts
	out.Profile = s.profile
	out.Err = s.err
	return out
}

type session struct {
	o   *Orchestrator
	req Request
	log logrus.FieldLogger

	state    State
	profile  chip.Profile
	opts     chip.Options
	firmware string
	speeds   []chip.Speed

	speedIndex   int
	attempt      int
	eraseAttempt int
	pendingDelay bool

	err     error
	outcome Outcome
}

func (s *session) run(ctx context.Context) {
	s.enter(StateValidating)
	for !s.state.Terminal() {
		if err := ctx.Err(); err != nil {
			s.fail(fmt.Errorf("cancelled: %w", err))
			break
		}
		next := s.step(ctx)
		if next != s.state {
			s.enter(next)
		}
	}
}

func (s *session) step(ctx context.Context) State {
	switch s.state {
	case StateValidating:
		return s.validate()
	case StateDetecting:
		return s.detect(ctx)
	case StateErasing:
		return s.erase(ctx)
	case StateResetting:
		return s.reset(ctx)
	case StateFlashing:
		return s.flash(ctx)
	}
	return s.fail(fmt.Errorf("unexpected state %s", s.state))
}

func (s *session) enter(st State) {
	s.state = st
	s.log.WithField("state", st.String()).Debug("session state")
	s.emit(Event{Kind: EventState, State: st})
}

func (s *session) emit(ev Event) {
	if s.o.config.Observer == nil {
		return
	}
	if ev.Profile.IsZero() {
		ev.Profile = s.profile
	}
	s.o.config.Observer(ev)
}

func (s *session) fail(err error) State {
	s.err = err
	s.log.WithError(err).Error("flash session failed")
	s.state = StateFailed
	s.emit(Event{Kind: EventState, State: StateFailed, Err: err})
	return StateFailed
}

func (s *session) wait(ctx context.Context, reason string) error {
	return s.o.config.Sleep(ctx, s.o.config.RetryDelay, reason)
}

func (s *session) validate() State {
	abs, err := ValidateFirmware(s.req.FirmwarePath)
	if err != nil {
		return s.fail(err)
	}
	s.firmware = abs
	return StateDetecting
}

func (s *session) detect(ctx context.Context) State {
	d, err := s.o.tool.Detect(ctx)
	if err != nil {
		return s.fail(&DetectionFailure{Output: d.Output, Err: err})
	}

	declared := s.req.Declared
	if !declared.IsZero() && declared.ID != d.Profile.ID {
		s.log.WithFields(logrus.Fields{"declared": declared.ID, "detected": d.Profile.ID}).Warn("chip mismatch")
		if s.o.config.Confirm == nil || !s.o.config.Confirm(declared, d.Profile) {
			return s.fail(&ChipMismatchError{Declared: declared.ID, Detected: d.Profile.ID})
		}
	}

	s.profile = chip.Resolve(declared, d.Profile).WithOptions(s.req.Options)
	s.speeds = s.profile.FlashSpeeds()
	s.speedIndex = s.profile.StartIndex(s.req.Options)
	s.opts = chip.Options{EraseMethod: s.profile.EraseMethod, Speed: s.speeds[s.speedIndex]}

	s.log = s.log.WithField("chip", s.profile.ID)
	s.log.WithField("profile", s.profile.String()).Info("chip resolved")
	s.emit(Event{Kind: EventDetected, State: StateDetecting, Profile: s.profile})
	return StateErasing
}

func (s *session) erase(ctx context.Context) State {
	limit := s.o.config.MaxRetries
	s.emit(Event{Kind: EventInvoke, State: StateErasing, Attempt: s.eraseAttempt + 1, MaxAttempts: limit})

	res, err := s.o.tool.Erase(ctx, s.profile.EraseMethod, s.profile.ID)
	s.outcome.Erases++
	s.emit(Event{Kind: EventResult, State: StateErasing, Attempt: s.eraseAttempt + 1, MaxAttempts: limit, Result: res, Err: err})
	if err == nil {
		return StateResetting
	}

	s.eraseAttempt++
	s.log.WithFields(logrus.Fields{"attempt": s.eraseAttempt, "kind": res.Kind().String()}).Warn("erase failed")
	if s.eraseAttempt >= limit {
		return s.fail(&EraseFailedError{
			Chip:     s.profile.ID,
			Attempts: s.eraseAttempt,
			Kind:     res.Kind(),
			Output:   res.Output(),
		})
	}
	if err := s.wait(ctx, "Retrying erase command..."); err != nil {
		return s.fail(fmt.Errorf("cancelled: %w", err))
	}
	return StateErasing
}

func (s *session) reset(ctx context.Context) State {
	if err := s.o.tool.Reset(ctx); err != nil {
		if s.profile.RequireSettle || errors.Is(err, context.Canceled) {
			return s.fail(&ResetFailedError{Err: err})
		}
		s.log.WithError(err).Warn("reset failed")
		s.emit(Event{Kind: EventWarning, State: StateResetting, Err: fmt.Errorf("reset failed: %w", err)})
	} else if s.profile.SettleDelay > 0 {
		if err := s.o.config.Sleep(ctx, s.profile.SettleDelay, "Waiting for device to stabilize..."); err != nil {
			return s.fail(fmt.Errorf("cancelled: %w", err))
		}
	}

	if s.pendingDelay {
		s.pendingDelay = false
		if err := s.wait(ctx, "Waiting before next flash attempt..."); err != nil {
			return s.fail(fmt.Errorf("cancelled: %w", err))
		}
	}
	return StateFlashing
}

func (s *session) flash(ctx context.Context) State {
	limit := s.o.config.MaxRetries
	speed := s.speeds[s.speedIndex]
	s.opts.Speed = speed

	s.emit(Event{Kind: EventInvoke, State: StateFlashing, Speed: speed, Attempt: s.attempt + 1, MaxAttempts: limit})
	res, err := s.o.tool.Flash(ctx, s.profile.ID, speed, s.profile.Fixed(), s.firmware)
	s.outcome.Attempts = append(s.outcome.Attempts, Attempt{
		Profile:      s.profile,
		FirmwarePath: s.firmware,
		Options:      s.opts,
		Number:       s.attempt,
		SpeedIndex:   s.speedIndex,
		Result:       res,
	})
	s.emit(Event{Kind: EventResult, State: StateFlashing, Speed: speed, Attempt: s.attempt + 1, MaxAttempts: limit, Result: res, Err: err})

	if err == nil {
		s.log.WithField("speed", speed.String()).Info("firmware flashed")
		return StateSucceeded
	}

	s.attempt++
	s.log.WithFields(logrus.Fields{
		"speed":   speed.String(),
		"attempt": s.attempt,
		"kind":    res.Kind().String(),
	}).Warn("flash failed")

	if s.attempt < limit {
		s.pendingDelay = true
		return StateResetting
	}

	if s.speedIndex+1 >= len(s.speeds) {
		return s.fail(&FlashExhaustedError{
			Chip:     s.profile.ID,
			Speeds:   s.speeds[s.profile.StartIndex(s.req.Options) : s.speedIndex+1],
			Attempts: len(s.outcome.Attempts),
			Kind:     res.Kind(),
			Output:   res.Output(),
		})
	}

	s.speedIndex++
	s.attempt = 0
	s.opts.Speed = s.speeds[s.speedIndex]
	s.log.WithField("speed", s.opts.Speed.String()).Info("escalating flash speed")
	s.pendingDelay = true
	return StateResetting
}
