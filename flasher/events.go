package flasher

import (
	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/wlink"
)

type State int

const (
	StateIdle State = iota
	StateValidating
	StateDetecting
	StateErasing
	StateResetting
	StateFlashing
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateDetecting:
		return "detecting"
	case StateErasing:
		return "erasing"
	case StateResetting:
		return "resetting"
	case StateFlashing:
		return "flashing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session has finished.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

type EventKind int

const (
	EventState    EventKind = iota // entered State
	EventDetected                  // Profile resolved
	EventInvoke                    // about to run erase or flash
	EventResult                    // Result holds the finished invocation
	EventWarning                   // Err is non-fatal
)

// Event reports session progress to an Observer.
type Event struct {
	Kind        EventKind
	State       State
	Profile     chip.Profile
	Speed       chip.Speed
	Attempt     int // 1-based
	MaxAttempts int
	Result      wlink.Result
	Err         error
}

// Observer receives session events.
type Observer func(Event)
