package history

import (
	"time"

	"github.com/dylan/wchflash/flasher"
)

// Entry is one finished flash session.
type Entry struct {
	ID          int64
	Time        time.Time
	Device      string // board menu name, empty for non-interactive runs
	Chip        string
	Firmware    string
	EraseMethod string
	Speed       string   // speed in effect when the session ended
	SpeedsTried []string // in escalation order
	Succeeded   bool
	Attempts    int
	Error       string
}

// Summary counts entries per outcome.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// NewEntry builds an entry for a finished session.
func NewEntry(device string, req flasher.Request, out flasher.Outcome) Entry {
	e := Entry{
		Time:        time.Now(),
		Device:      device,
		Chip:        out.Profile.ID,
		Firmware:    req.FirmwarePath,
		EraseMethod: out.Options.EraseMethod.String(),
		Speed:       out.Options.Speed.String(),
		Succeeded:   out.Succeeded,
		Attempts:    len(out.Attempts),
	}
	if e.Chip == "" {
		e.Chip = req.Declared.ID
	}
	seen := make(map[string]bool)
	for _, a := range out.Attempts {
		if a.FirmwarePath != "" {
			e.Firmware = a.FirmwarePath
		}
		s := a.Options.Speed.String()
		if !seen[s] {
			seen[s] = true
			e.SpeedsTried = append(e.SpeedsTried, s)
		}
	}
	if out.Err != nil {
		e.Error = out.Err.Error()
	}
	return e
}
