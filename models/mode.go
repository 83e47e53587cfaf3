// ABOUTME: Operating-mode and design-zone tags for DAB TPS analysis.
// ABOUTME: Six Tong modes, three Das-Basu zones, plus Undefined/NoSolution.

package models

// Mode tags one region of duty-ratio space with its own closed-form power
// and RMS-current formulas. Modes 1-6 follow the Tong et al. (2016) table;
// Zone I/II/V follow the Das & Basu (2021) ZVS zone design.
type Mode int

const (
	ModeUndefined Mode = iota
	Mode1
	Mode2
	Mode3
	Mode4
	Mode5
	Mode6
	ZoneI
	ZoneII
	ZoneV
	// ModeNoSolution marks a sweep row for which no candidate met the
	// power tolerance (and the nearest-fallback policy rejected it).
	ModeNoSolution
)

var modeNames = map[Mode]string{
	ModeUndefined:  "undefined",
	Mode1:          "1",
	Mode2:          "2",
	Mode3:          "3",
	Mode4:          "4",
	Mode5:          "5",
	Mode6:          "6",
	ZoneI:          "I",
	ZoneII:         "II",
	ZoneV:          "V",
	ModeNoSolution: "NO_SOLUTION",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "undefined"
}

// MarshalJSON emits the human-readable tag used in the table contract.
func (m Mode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// TongModes lists the six canonical modes in classifier priority order.
func TongModes() []Mode {
	return []Mode{Mode1, Mode2, Mode3, Mode4, Mode5, Mode6}
}
