package chip

// Board is a device type offered by the wizard.
type Board struct {
	Name            string
	Chip            string // expected chip id, empty for generic adapters
	DefaultFirmware string
}

var (
	SquadranV003 = Board{
		Name:            "VSD Squadran Mini (CH32V003)",
		Chip:            "CH32V003",
		DefaultFirmware: "./Firmware_Link/FIRMWARE_CH32V003.bin",
	}
	SquadranV30X = Board{
		Name:            "VSD Squadran Mini (CH32V30X)",
		Chip:            "CH32V30X",
		DefaultFirmware: "./Firmware_Link/WCH-LinkE-APP-IAP.bin",
	}
	OtherAdapter = Board{
		Name: "Other WCH-Link devices",
	}
)

// Boards lists the wizard's device types in menu order.
var Boards = []Board{SquadranV003, SquadranV30X, OtherAdapter}

// BoardByName returns the board with the given menu name.
func BoardByName(name string) (Board, bool) {
	for _, b := range Boards {
		if b.Name == name {
			return b, true
		}
	}
	return Board{}, false
}

// BoardForChip returns the preset board that ships the given chip.
func BoardForChip(id string) (Board, bool) {
	for _, b := range Boards {
		if b.Chip != "" && b.Chip == id {
			return b, true
		}
	}
	return Board{}, false
}

// IsPreset reports whether the board pins its own flash options.
func (b Board) IsPreset() bool { return b.Chip != "" }

// Profile returns the declared profile for the board, or the zero profile
// for generic adapters where the chip is only known after detection.
func (b Board) Profile() Profile {
	if !b.IsPreset() {
		return Profile{}
	}
	p, _ := preset(b.Chip)
	return p
}

// Options returns the options a preset board forces. ok is false for
// generic boards, whose options come from the user.
func (b Board) Options() (Options, bool) {
	if !b.IsPreset() {
		return Options{}, false
	}
	p := b.Profile()
	return Options{EraseMethod: p.EraseMethod, Speed: p.FlashSpeeds()[0]}, true
}
