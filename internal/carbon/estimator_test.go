package carbon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylemcdonald/nvidia-co2/internal/zones"
)

func TestEstimate(t *testing.T) {
	fr := zones.Zone{ID: "FR", CarbonIntensity: 56}
	pl := zones.Zone{ID: "PL", CarbonIntensity: 662}

	tests := []struct {
		name  string
		watts float64
		zone  zones.Zone
		want  float64
	}{
		{name: "zero watts emits nothing", watts: 0, zone: pl, want: 0},
		{name: "one kilowatt for an hour equals intensity", watts: 1000, zone: pl, want: 662},
		{name: "typical GPU box in France", watts: 350, zone: fr, want: 19.6},
		{name: "fractional watts", watts: 0.5, zone: fr, want: 0.028},
		{name: "zero intensity zone", watts: 500, zone: zones.Zone{ID: "X"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Estimate(tt.watts, tt.zone)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEstimate_Linear(t *testing.T) {
	z := zones.Zone{ID: "DE", CarbonIntensity: 381}

	one, err := Estimate(100, z)
	require.NoError(t, err)
	three, err := Estimate(300, z)
	require.NoError(t, err)

	assert.InDelta(t, 3*one, three, 1e-9)
}

func TestEstimate_InvalidWatts(t *testing.T) {
	z := zones.Zone{ID: "DE", CarbonIntensity: 381}

	for _, w := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := Estimate(w, z)
		assert.Error(t, err, "watts=%v", w)
	}

	_, err := Estimate(-5, z)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DE")
}

func TestGramsPerHour_InvalidIntensity(t *testing.T) {
	for _, i := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := GramsPerHour(100, i)
		assert.Error(t, err, "intensity=%v", i)
	}
}
