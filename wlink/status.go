package wlink

import (
	"errors"
	"strings"

	"github.com/dylan/wchflash/chip"
)

// ErrChipNotFound is returned when status output names no known chip.
var ErrChipNotFound = errors.New("unable to detect chip type")

// Status is the parsed form of `wlink status -v`.
type Status struct {
	Adapter        string
	ChipID         string // detected family, e.g. CH32V30X
	RawChipID      string // value printed after "ChipID:"
	ESIG           string
	FlashProtected string
	ReadProtected  string
	Output         string
}

// ParseStatus extracts the fields wchflash cares about from status output.
func ParseStatus(out string) Status {
	st := Status{Output: out}
	for _, line := range strings.Split(out, "\n") {
		clean := StripLine(line)
		switch {
		case strings.Contains(clean, "Connected to"):
			st.Adapter = strings.TrimSpace(after("Connected to")(clean))
		case strings.Contains(clean, "ChipID:"):
			st.RawChipID = strings.TrimSpace(after("ChipID:")(clean))
		case strings.Contains(clean, "ESIG:"):
			st.ESIG = strings.TrimSpace(after("ESIG:")(clean))
		case strings.Contains(clean, "Flash protected:"):
			st.FlashProtected = strings.TrimSpace(after("protected:")(clean))
		case strings.Contains(clean, "Read protected:"):
			st.ReadProtected = strings.TrimSpace(after("protected:")(clean))
		}
	}
	if id, ok := chip.Match(out); ok {
		st.ChipID = id
	}
	return st
}

// ParseAdapters returns the WCH-Link adapters listed by `wlink list`.
func ParseAdapters(out string) []string {
	var adapters []string
	for _, line := range strings.Split(out, "\n") {
		clean := StripLine(line)
		if strings.Contains(clean, "WCH-Link") {
			adapters = append(adapters, clean)
		}
	}
	return adapters
}
