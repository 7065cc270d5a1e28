package carbon

import (
	"fmt"
	"math"

	"github.com/kylemcdonald/nvidia-co2/internal/zones"
)

// Estimate returns the emission rate in gCO2eq per hour of drawing watts
// continuously in zone.
//
// Returns an error if watts is negative, NaN or infinite.
func Estimate(watts float64, zone zones.Zone) (float64, error) {
	g, err := GramsPerHour(watts, zone.CarbonIntensity)
	if err != nil {
		return 0, fmt.Errorf("zone %s: %w", zone.ID, err)
	}
	return g, nil
}

// GramsPerHour applies (watts / 1000) × intensity, where intensity is in
// gCO2eq/kWh. A constant draw of W watts for one hour is W/1000 kWh.
func GramsPerHour(watts, intensity float64) (float64, error) {
	if err := validateWatts(watts); err != nil {
		return 0, err
	}
	if math.IsNaN(intensity) || math.IsInf(intensity, 0) || intensity < 0 {
		return 0, fmt.Errorf("invalid carbon intensity %v gCO2eq/kWh", intensity)
	}
	return (watts / WattsPerKilowatt) * intensity, nil
}

func validateWatts(watts float64) error {
	if math.IsNaN(watts) || math.IsInf(watts, 0) {
		return fmt.Errorf("invalid power %v W", watts)
	}
	if watts < 0 {
		return fmt.Errorf("negative power %v W", watts)
	}
	return nil
}
