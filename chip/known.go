package chip

import (
	"strings"
	"time"
)

// KnownIDs is the detection order used when scanning `wlink status` output.
var KnownIDs = []string{
	"CH32V30X", "CH32V103", "CH57X", "CH56X", "CH32V20X", "CH582",
	"CH32V003", "CH8571", "CH59X", "CH643", "CH32X035", "CH32L103",
	"CH641", "CH585", "CH564", "CH32V007", "CH645", "CH32V317",
}

// adapterAliases map adapter firmware names to the chip family they imply
// when no chip id is printed.
var adapterAliases = map[string]string{
	"WCH-LinkE-CH32V305": "CH32V30X",
}

const genericSettle = 5 * time.Second

// Lookup returns the profile for a detected chip id.
func Lookup(id string) (Profile, bool) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "CH32V003" {
		return Profile{
			ID:            id,
			EraseMethod:   ErasePowerOff,
			FixedSpeed:    SpeedLow,
			RequireSettle: true,
			SettleDelay:   genericSettle,
		}, true
	}
	for _, known := range KnownIDs {
		if known == id {
			return Profile{
				ID:          id,
				EraseMethod: EraseDefault,
				Speeds:      []Speed{SpeedHigh, SpeedMedium, SpeedLow},
				SettleDelay: genericSettle,
			}, true
		}
	}
	return Profile{}, false
}

// Match scans free-form text for a known chip id, falling back to adapter
// aliases. It returns the first id in KnownIDs order.
func Match(text string) (string, bool) {
	for _, id := range KnownIDs {
		if strings.Contains(text, id) {
			return id, true
		}
	}
	for alias, id := range adapterAliases {
		if strings.Contains(text, alias) {
			return id, true
		}
	}
	return "", false
}

// preset returns the board-pinned variant of a chip profile, if any board
// ships that chip.
func preset(id string) (Profile, bool) {
	switch id {
	case "CH32V003":
		p, _ := Lookup(id)
		p.Preset = true
		return p, true
	case "CH32V30X":
		return Profile{
			ID:            id,
			EraseMethod:   ErasePowerOff,
			Speeds:        []Speed{SpeedLow, SpeedMedium, SpeedHigh},
			RequireSettle: true,
			SettleDelay:   genericSettle,
			Preset:        true,
		}, true
	}
	return Profile{}, false
}

// Resolve picks the profile a session runs with once the attached chip is
// known. A matching declaration wins; otherwise the detected chip is used,
// keeping the board preset flavour when the declaration was a preset.
func Resolve(declared, detected Profile) Profile {
	switch {
	case declared.IsZero():
		return detected
	case declared.ID == detected.ID:
		return declared
	case declared.Preset:
		if p, ok := preset(detected.ID); ok {
			return p
		}
	}
	return detected
}
