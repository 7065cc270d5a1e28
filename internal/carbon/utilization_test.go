package carbon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverageWatts(t *testing.T) {
	tests := []struct {
		name        string
		utilization float64
		want        float64
	}{
		{name: "idle", utilization: 0, want: MinWattsPerThread},
		{name: "full load", utilization: 1, want: MaxWattsPerThread},
		{name: "half load", utilization: 0.5, want: 3.31},
		{name: "over 100% clamped", utilization: 2, want: MaxWattsPerThread},
		{name: "negative clamped", utilization: -1, want: MinWattsPerThread},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AverageWatts(MinWattsPerThread, MaxWattsPerThread, tt.utilization)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestUtilizationFromPercent(t *testing.T) {
	assert.InDelta(t, 0.42, UtilizationFromPercent(42), 1e-9)
	assert.Equal(t, 1.0, UtilizationFromPercent(250))
	assert.Equal(t, 0.0, UtilizationFromPercent(-3))
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		min   float64
		max   float64
		want  float64
	}{
		{name: "within range", value: 0.5, min: 0.0, max: 1.0, want: 0.5},
		{name: "below min", value: -0.5, min: 0.0, max: 1.0, want: 0.0},
		{name: "above max", value: 1.5, min: 0.0, max: 1.0, want: 1.0},
		{name: "at min", value: 0.0, min: 0.0, max: 1.0, want: 0.0},
		{name: "at max", value: 1.0, min: 0.0, max: 1.0, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp(tt.value, tt.min, tt.max))
		})
	}
}
