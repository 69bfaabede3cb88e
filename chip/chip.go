package chip

import (
	"fmt"
	"strings"
	"time"
)

type EraseMethod string

const (
	EraseDefault  EraseMethod = "default"
	ErasePowerOff EraseMethod = "power-off"
	ErasePinReset EraseMethod = "pin-rst"
)

// EraseMethods lists every erase method wlink accepts, in menu order.
var EraseMethods = []EraseMethod{EraseDefault, ErasePowerOff, ErasePinReset}

func (m EraseMethod) String() string { return string(m) }

func (m EraseMethod) Valid() bool {
	for _, known := range EraseMethods {
		if m == known {
			return true
		}
	}
	return false
}

// ParseEraseMethod accepts the wlink spelling of an erase method.
func ParseEraseMethod(s string) (EraseMethod, error) {
	m := EraseMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown erase method %q (want one of default, power-off, pin-rst)", s)
	}
	return m, nil
}

type Speed string

const (
	SpeedHigh   Speed = "high"
	SpeedMedium Speed = "medium"
	SpeedLow    Speed = "low"
)

// Speeds lists every link speed, fastest first.
var Speeds = []Speed{SpeedHigh, SpeedMedium, SpeedLow}

func (s Speed) String() string { return string(s) }

func (s Speed) Valid() bool {
	switch s {
	case SpeedHigh, SpeedMedium, SpeedLow:
		return true
	}
	return false
}

func ParseSpeed(s string) (Speed, error) {
	sp := Speed(strings.ToLower(strings.TrimSpace(s)))
	if !sp.Valid() {
		return "", fmt.Errorf("unknown speed %q (want one of high, medium, low)", s)
	}
	return sp, nil
}

// Options are the user-facing knobs for a flash session.
type Options struct {
	EraseMethod EraseMethod `toml:"erase_method"`
	Speed       Speed       `toml:"speed"`
}

// DefaultOptions returns the options used when nothing has been saved yet.
func DefaultOptions() Options {
	return Options{EraseMethod: EraseDefault, Speed: SpeedHigh}
}

// Profile describes how a chip family is erased and flashed.
type Profile struct {
	ID          string
	EraseMethod EraseMethod
	Speeds      []Speed // escalation order
	FixedSpeed  Speed   // when set, Speeds is ignored and --verify is forced

	// RequireSettle makes a failed reset fatal; SettleDelay is waited after
	// every successful reset.
	RequireSettle bool
	SettleDelay   time.Duration

	// Preset profiles come from a board definition: erase method and the
	// starting speed are pinned, user options are ignored.
	Preset bool
}

func (p Profile) IsZero() bool { return p.ID == "" }

func (p Profile) Fixed() bool { return p.FixedSpeed != "" }

// FlashSpeeds returns the speeds a session walks through, in order.
func (p Profile) FlashSpeeds() []Speed {
	if p.Fixed() {
		return []Speed{p.FixedSpeed}
	}
	if len(p.Speeds) == 0 {
		return Speeds
	}
	return p.Speeds
}

// StartIndex returns the index into FlashSpeeds where flashing begins.
// Only non-preset, non-fixed profiles honour the user's configured speed.
func (p Profile) StartIndex(opts Options) int {
	if p.Fixed() || p.Preset {
		return 0
	}
	for i, s := range p.FlashSpeeds() {
		if s == opts.Speed {
			return i
		}
	}
	return 0
}

// WithOptions applies user options to a detected profile. Preset profiles
// keep their pinned erase method.
func (p Profile) WithOptions(opts Options) Profile {
	if p.Preset {
		return p
	}
	if opts.EraseMethod.Valid() {
		p.EraseMethod = opts.EraseMethod
	}
	return p
}

func (p Profile) String() string {
	if p.Fixed() {
		return fmt.Sprintf("%s (erase=%s, speed=%s fixed)", p.ID, p.EraseMethod, p.FixedSpeed)
	}
	return fmt.Sprintf("%s (erase=%s, speeds=%v)", p.ID, p.EraseMethod, p.FlashSpeeds())
}
