package zones

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rect(minX, minY, maxX, maxY float64) orb.Ring {
	return orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}
}

// circle returns a closed counter-clockwise ring with n distinct vertices.
func circle(n int, radius float64) orb.Ring {
	r := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		r = append(r, orb.Point{radius * math.Cos(a), radius * math.Sin(a)})
	}
	return append(r, r[0])
}

func TestValidatePolygon(t *testing.T) {
	shell := rect(0, 0, 10, 10)

	tests := []struct {
		name    string
		polygon orb.Polygon
		wantErr string
	}{
		{
			name:    "square",
			polygon: orb.Polygon{shell},
		},
		{
			name:    "repeated vertex",
			polygon: orb.Polygon{{{0, 0}, {10, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}},
		},
		{
			name:    "hole inside",
			polygon: orb.Polygon{shell, rect(2, 2, 4, 4)},
		},
		{
			name:    "hole touching outer ring at a vertex",
			polygon: orb.Polygon{shell, {{0, 0}, {3, 1}, {1, 3}, {0, 0}}},
		},
		{
			name:    "disjoint holes",
			polygon: orb.Polygon{shell, rect(1, 1, 3, 3), rect(5, 5, 7, 7)},
		},
		{
			name:    "bowtie",
			polygon: orb.Polygon{{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}},
			wantErr: "outer ring: ring self-intersects between edges 0 and 2",
		},
		{
			name:    "hole crossing outer ring",
			polygon: orb.Polygon{shell, {{5, 5}, {15, 5}, {15, 6}, {5, 6}, {5, 5}}},
			wantErr: "outer ring crosses hole 1",
		},
		{
			name:    "hole outside outer ring",
			polygon: orb.Polygon{shell, rect(20, 20, 21, 21)},
			wantErr: "hole 1 lies outside the outer ring",
		},
		{
			name:    "hole containing outer ring",
			polygon: orb.Polygon{rect(2, 2, 4, 4), shell},
			wantErr: "hole 1 lies outside the outer ring",
		},
		{
			name:    "crossing holes",
			polygon: orb.Polygon{shell, rect(2, 2, 6, 6), rect(4, 4, 8, 8)},
			wantErr: "hole 1 crosses hole 2",
		},
		{
			name:    "nested holes",
			polygon: orb.Polygon{shell, rect(1, 1, 9, 9), rect(3, 3, 5, 5)},
			wantErr: "holes 1 and 2 overlap",
		},
		{
			name:    "identical holes",
			polygon: orb.Polygon{shell, rect(2, 2, 4, 4), rect(2, 2, 4, 4)},
			wantErr: "holes 1 and 2 overlap",
		},
		{
			name:    "too few distinct vertices",
			polygon: orb.Polygon{{{0, 0}, {1, 0}, {1, 0}, {0, 0}}},
			wantErr: "outer ring: ring has 3 distinct vertices, want at least 4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePolygon(compactPolygon(tt.polygon))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestCompactRing(t *testing.T) {
	got := compactRing(orb.Ring{{0, 0}, {0, 0}, {1, 0}, {1, 0}, {1, 1}, {0, 0}, {0, 0}})
	assert.Equal(t, orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, got)
	assert.Empty(t, compactRing(nil))
}

func TestValidatePolygon_LargeRing(t *testing.T) {
	p := orb.Polygon{circle(20000, 10), circle(5000, 2)}
	require.NoError(t, validatePolygon(p))
	assert.InDelta(t, math.Pi*(100-4), polygonArea(p), 0.01)
}

func BenchmarkValidatePolygon(b *testing.B) {
	p := orb.Polygon{circle(20000, 10)}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := validatePolygon(p); err != nil {
			b.Fatal(err)
		}
	}
}
