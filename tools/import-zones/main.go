// Package main converts an electricityMap-style world.geojson into the
// zone geometry file embedded by internal/zones.
//
// Each feature becomes one line of zone_geometries.jsonl. The zone id is
// read from a feature property (zoneName by default) or the feature id.
// Features whose id has no entry in the existing co2eq_parameters.json are
// skipped, since the catalog rejects zones without an intensity.
//
// Usage:
//
//	go run ./tools/import-zones --geojson world.geojson [--out-dir DIR] [--validate]
//
// Flags:
//
//	--geojson      Input FeatureCollection (required)
//	--out-dir      Zone data directory (default: ./internal/zones/data)
//	--id-property  Feature property holding the zone id (default: zoneName)
//	--validate     Load the written catalog and fail on any data error
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/pflag"

	"github.com/kylemcdonald/nvidia-co2/internal/zones"
)

// zoneLine is one output record.
type zoneLine struct {
	ID       string            `json:"id"`
	Geometry *geojson.Geometry `json:"geometry"`
}

// importStats summarizes a conversion.
type importStats struct {
	Written         int
	NoID            int
	NoIntensity     int
	UnsupportedType int
}

func main() {
	input := pflag.String("geojson", "", "Input GeoJSON FeatureCollection")
	outDir := pflag.String("out-dir", "./internal/zones/data", "Zone data directory")
	idProperty := pflag.String("id-property", "zoneName", "Feature property holding the zone id")
	validate := pflag.Bool("validate", true, "Load the written catalog and report data errors")
	pflag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: --geojson is required")
		os.Exit(2)
	}

	known, err := readIntensityIDs(filepath.Join(*outDir, zones.IntensityFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading intensities: %v\n", err)
		os.Exit(1)
	}

	in, err := os.Open(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening input: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = in.Close() }()

	data, stats, err := convert(in, *idProperty, func(id string) bool { return known[id] })
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting %s: %v\n", *input, err)
		os.Exit(1)
	}

	outPath := filepath.Join(*outDir, zones.GeometriesFile)
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s: %d zones (%d without id, %d without intensity, %d non-polygon)\n",
		outPath, stats.Written, stats.NoID, stats.NoIntensity, stats.UnsupportedType)

	if *validate {
		c, err := zones.Load(os.DirFS(*outDir))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Validation passed: %d zones load\n", c.Len())
	}
}

// readIntensityIDs returns the set of zone ids with a fallback intensity.
func readIntensityIDs(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var params struct {
		FallbackZoneMixes map[string]json.RawMessage `json:"fallbackZoneMixes"`
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	ids := make(map[string]bool, len(params.FallbackZoneMixes))
	for id := range params.FallbackZoneMixes {
		ids[id] = true
	}
	return ids, nil
}

// convert reads a FeatureCollection and returns JSONL sorted by zone id.
func convert(r io.Reader, idProperty string, keep func(id string) bool) ([]byte, importStats, error) {
	var stats importStats

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, stats, fmt.Errorf("reading input: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, stats, fmt.Errorf("parsing FeatureCollection: %w", err)
	}

	seen := make(map[string]bool)
	var lines []zoneLine
	for i, f := range fc.Features {
		id := f.Properties.MustString(idProperty, "")
		if id == "" {
			if s, ok := f.ID.(string); ok {
				id = s
			}
		}
		if id == "" {
			stats.NoID++
			continue
		}

		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			stats.UnsupportedType++
			continue
		}

		if keep != nil && !keep(id) {
			stats.NoIntensity++
			continue
		}
		if seen[id] {
			return nil, stats, fmt.Errorf("feature %d: duplicate zone id %q", i, id)
		}
		seen[id] = true

		lines = append(lines, zoneLine{ID: id, Geometry: geojson.NewGeometry(f.Geometry)})
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })

	var buf bytes.Buffer
	for _, l := range lines {
		b, err := json.Marshal(l)
		if err != nil {
			return nil, stats, fmt.Errorf("encoding zone %s: %w", l.ID, err)
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	stats.Written = len(lines)
	return buf.Bytes(), stats, nil
}
