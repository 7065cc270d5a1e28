package zones

import (
	"fmt"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

// square returns a geometry line for an axis-aligned square zone.
func square(id string, minLon, minLat, size float64) string {
	maxLon, maxLat := minLon+size, minLat+size
	return fmt.Sprintf(
		`{"id":%q,"geometry":{"type":"Polygon","coordinates":[[[%g,%g],[%g,%g],[%g,%g],[%g,%g],[%g,%g]]]}}`,
		id, minLon, minLat, maxLon, minLat, maxLon, maxLat, minLon, maxLat, minLon, minLat,
	)
}

// zoneFS builds a data root holding the given geometry lines. Every id in
// intensities gets a fallback mix entry.
func zoneFS(t *testing.T, geometries string, intensities map[string]float64) fstest.MapFS {
	t.Helper()

	mixes := make(map[string]map[string]float64, len(intensities))
	for id, v := range intensities {
		mixes[id] = map[string]float64{"carbonIntensity": v}
	}
	params, err := json.Marshal(map[string]any{"fallbackZoneMixes": mixes})
	require.NoError(t, err)

	return fstest.MapFS{
		GeometriesFile: &fstest.MapFile{Data: []byte(geometries)},
		IntensityFile:  &fstest.MapFile{Data: params},
		NamesFile:      &fstest.MapFile{Data: []byte(`{}`)},
	}
}

// loadLines loads a catalog from geometry lines, giving every zone an
// intensity of 100.
func loadLines(t *testing.T, ids []string, lines ...string) *Catalog {
	t.Helper()

	intensities := make(map[string]float64, len(ids))
	for _, id := range ids {
		intensities[id] = 100
	}
	var geometries string
	for _, l := range lines {
		geometries += l + "\n"
	}

	c, err := Load(zoneFS(t, geometries, intensities))
	require.NoError(t, err)
	return c
}

// bundledRoot returns the embedded data directory.
func bundledRoot(tb testing.TB) fs.FS {
	tb.Helper()
	root, err := fs.Sub(bundledData, "data")
	require.NoError(tb, err)
	return root
}
