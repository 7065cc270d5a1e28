package carbon

import (
	"fmt"
	"strings"
)

// Mode selects the unit a power reading is reported in.
type Mode string

const (
	ModeGramsPerHour Mode = "gco2eqph"
	ModeCarMPH       Mode = "car-mph"
	ModeCarKPH       Mode = "car-kph"
	ModeIce          Mode = "ice"
	ModeBeef         Mode = "beef"
	ModeTofu         Mode = "tofu"
	ModeBulb         Mode = "bulb"
	ModeCFL          Mode = "cfl"
	ModeWatt         Mode = "watt"
)

// DefaultMode is the mode used when none is given.
const DefaultMode = ModeGramsPerHour

// unit is a fixed ratio applied either to watts (power units) or to
// gCO2eq/h (emission units).
type unit struct {
	ratio       float64
	suffix      string
	power       bool
	description string
}

var units = map[Mode]unit{
	ModeBulb: {1 / IncandescentBulbWatts, " lightbulbs", true, "incandescent lightbulbs using the same power"},
	ModeCFL:  {1 / CFLBulbWatts, " CFLs", true, "CFLs using the same power"},
	ModeWatt: {1, "W", true, "watts used"},

	ModeGramsPerHour: {1, "gCO2eq/h", false, "grams of CO2-equivalent emitted per hour"},
	ModeCarMPH:       {1 / CarGramsPerMile, "mph in a car", false, "speed a car would drive to emit the same"},
	ModeCarKPH:       {1 / CarGramsPerKilometer, "kph in a car", false, "speed a car would drive to emit the same"},
	ModeIce:          {SeaIceMM2PerGram, "mm^2/h sea ice", false, "September sea ice lost per hour"},
	ModeBeef:         {1 / BeefGramsCO2PerGram, " grams of beef/h", false, "grams of beef produced per hour for the same emissions"},
	ModeTofu:         {1 / TofuGramsCO2PerGram, " grams of tofu/h", false, "grams of tofu produced per hour for the same emissions"},
}

// modeOrder is the order modes are listed in help text.
var modeOrder = []Mode{
	ModeIce, ModeBeef, ModeTofu, ModeCarMPH, ModeCarKPH, ModeBulb, ModeCFL, ModeWatt, ModeGramsPerHour,
}

// Modes returns every supported mode in help order.
func Modes() []Mode {
	out := make([]Mode, len(modeOrder))
	copy(out, modeOrder)
	return out
}

// ParseMode validates s as a mode name. Matching ignores case and
// surrounding whitespace.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := units[m]; !ok {
		names := make([]string, len(modeOrder))
		for i, mode := range modeOrder {
			names[i] = string(mode)
		}
		return "", fmt.Errorf("unknown mode %q (want one of %s)", s, strings.Join(names, ", "))
	}
	return m, nil
}

// NeedsIntensity reports whether converting to m requires the local
// carbon intensity.
func (m Mode) NeedsIntensity() bool {
	u, ok := units[m]
	return ok && !u.power
}

// Description is a one-line explanation of the mode for help text.
func (m Mode) Description() string {
	return units[m].description
}

// Amount is a converted reading.
type Amount struct {
	Mode   Mode
	Value  float64
	Suffix string
}

// String renders the amount with two decimals followed by the unit suffix,
// e.g. "1.00 lightbulbs" or "12.34gCO2eq/h".
func (a Amount) String() string {
	return fmt.Sprintf("%0.2f", a.Value) + a.Suffix
}

// IntensitySource supplies the local carbon intensity in gCO2eq/kWh. It is
// only called for emission modes.
type IntensitySource func() (float64, error)

// Convert expresses watts in the unit selected by mode.
func Convert(watts float64, mode Mode, intensity IntensitySource) (Amount, error) {
	u, ok := units[mode]
	if !ok {
		return Amount{}, fmt.Errorf("unknown mode %q", mode)
	}
	if err := validateWatts(watts); err != nil {
		return Amount{}, err
	}

	if u.power {
		return Amount{Mode: mode, Value: watts * u.ratio, Suffix: u.suffix}, nil
	}

	if intensity == nil {
		return Amount{}, fmt.Errorf("mode %s needs a carbon intensity source", mode)
	}
	gco2eq, err := intensity()
	if err != nil {
		return Amount{}, err
	}
	gph, err := GramsPerHour(watts, gco2eq)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Mode: mode, Value: gph * u.ratio, Suffix: u.suffix}, nil
}
