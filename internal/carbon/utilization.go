package carbon

// AverageWatts interpolates linearly between idle and full-load power:
// minWatts + utilization × (maxWatts − minWatts). Utilization is clamped to
// [0.0, 1.0].
func AverageWatts(minWatts, maxWatts, utilization float64) float64 {
	u := Clamp(utilization, 0.0, 1.0)
	return minWatts + (u * (maxWatts - minWatts))
}

// UtilizationFromPercent converts a 0-100 percentage to a clamped fraction.
func UtilizationFromPercent(percent float64) float64 {
	return Clamp(percent/100.0, 0.0, 1.0)
}

// Clamp restricts a value to the range [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
