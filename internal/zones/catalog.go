package zones

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Data file names relative to the data root.
const (
	GeometriesFile = "zone_geometries.jsonl"
	IntensityFile  = "co2eq_parameters.json"
	NamesFile      = "zone_names.json"
)

// maxLineBytes bounds a single geometry line.
const maxLineBytes = 16 << 20

//go:embed data
var bundledData embed.FS

// geometryRecord is one line of the geometry file.
type geometryRecord struct {
	ID       string          `json:"id"`
	Geometry json.RawMessage `json:"geometry"`
}

type zoneMix struct {
	CarbonIntensity *float64 `json:"carbonIntensity"`
	Source          string   `json:"source"`
}

type co2eqParameters struct {
	FallbackZoneMixes map[string]zoneMix `json:"fallbackZoneMixes"`
}

type zoneName struct {
	ZoneName    string `json:"zoneName"`
	CountryName string `json:"countryName"`
}

// Catalog is an ordered, read-only collection of zones.
type Catalog struct {
	zones []Zone
	byID  map[string]int
	index *boundsIndex
}

var (
	defaultCatalog    *Catalog
	defaultCatalogErr error
	defaultOnce       sync.Once
)

// Default returns the catalog parsed from the bundled data. The data is
// parsed on first use; later calls return the same catalog (or error).
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		root, err := fs.Sub(bundledData, "data")
		if err != nil {
			defaultCatalogErr = &DataLoadError{File: "data", Err: err}
			return
		}
		defaultCatalog, defaultCatalogErr = Load(root)
	})
	return defaultCatalog, defaultCatalogErr
}

// Load parses the zone data files from fsys. Every error is a
// *DataLoadError.
func Load(fsys fs.FS) (*Catalog, error) {
	intensities, err := loadIntensities(fsys)
	if err != nil {
		return nil, err
	}
	names, err := loadNames(fsys)
	if err != nil {
		return nil, err
	}
	zones, err := loadGeometries(fsys, intensities, names)
	if err != nil {
		return nil, err
	}

	c, err := newCatalog(zones)
	if err != nil {
		return nil, &DataLoadError{File: GeometriesFile, Err: err}
	}
	for id := range intensities {
		if _, ok := c.byID[id]; !ok {
			logger.Debug().Str("zone", id).Msg("carbon intensity has no zone geometry; ignoring")
		}
	}
	logger.Debug().Int("zones", c.Len()).Msg("zone catalog loaded")
	return c, nil
}

func newCatalog(zones []Zone) (*Catalog, error) {
	byID := make(map[string]int, len(zones))
	for i, z := range zones {
		byID[z.ID] = i
	}
	index, err := newBoundsIndex(zones)
	if err != nil {
		return nil, err
	}
	return &Catalog{zones: zones, byID: byID, index: index}, nil
}

func loadIntensities(fsys fs.FS) (map[string]float64, error) {
	var params co2eqParameters
	if err := decodeStrict(fsys, IntensityFile, &params); err != nil {
		return nil, err
	}
	if params.FallbackZoneMixes == nil {
		return nil, &DataLoadError{File: IntensityFile, Err: errors.New(`missing "fallbackZoneMixes"`)}
	}

	intensities := make(map[string]float64, len(params.FallbackZoneMixes))
	for id, mix := range params.FallbackZoneMixes {
		switch {
		case mix.CarbonIntensity == nil:
			return nil, &DataLoadError{File: IntensityFile, Err: fmt.Errorf("zone %q: missing carbonIntensity", id)}
		case !finite(*mix.CarbonIntensity) || *mix.CarbonIntensity < 0:
			return nil, &DataLoadError{File: IntensityFile, Err: fmt.Errorf("zone %q: invalid carbonIntensity %v", id, *mix.CarbonIntensity)}
		}
		intensities[id] = *mix.CarbonIntensity
	}
	return intensities, nil
}

func loadNames(fsys fs.FS) (map[string]zoneName, error) {
	names := make(map[string]zoneName)
	if err := decodeStrict(fsys, NamesFile, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func loadGeometries(fsys fs.FS, intensities map[string]float64, names map[string]zoneName) ([]Zone, error) {
	data, err := fs.ReadFile(fsys, GeometriesFile)
	if err != nil {
		return nil, &DataLoadError{File: GeometriesFile, Err: err}
	}

	var zones []Zone
	seen := make(map[string]int)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		zone, err := parseZone(line, intensities, names)
		if err != nil {
			return nil, &DataLoadError{File: GeometriesFile, Line: lineNo, Err: err}
		}
		if prev, dup := seen[zone.ID]; dup {
			return nil, &DataLoadError{File: GeometriesFile, Line: lineNo, Err: fmt.Errorf("duplicate zone %q (first on line %d)", zone.ID, prev)}
		}
		seen[zone.ID] = lineNo
		zones = append(zones, zone)
	}
	if err := scanner.Err(); err != nil {
		return nil, &DataLoadError{File: GeometriesFile, Line: lineNo + 1, Err: err}
	}
	if len(zones) == 0 {
		return nil, &DataLoadError{File: GeometriesFile, Err: errors.New("no zones defined")}
	}
	return zones, nil
}

func parseZone(line []byte, intensities map[string]float64, names map[string]zoneName) (Zone, error) {
	var rec geometryRecord
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return Zone{}, fmt.Errorf("decoding zone: %w", err)
	}
	if dec.More() {
		return Zone{}, errors.New("trailing data after zone object")
	}
	if rec.ID == "" {
		return Zone{}, errors.New(`missing "id"`)
	}
	if len(rec.Geometry) == 0 {
		return Zone{}, fmt.Errorf("zone %q: missing geometry", rec.ID)
	}

	geom, err := geojson.UnmarshalGeometry(rec.Geometry)
	if err != nil {
		return Zone{}, fmt.Errorf("zone %q: parsing geometry: %w", rec.ID, err)
	}
	polygons, err := polygonsOf(geom.Geometry())
	if err != nil {
		return Zone{}, fmt.Errorf("zone %q: %w", rec.ID, err)
	}

	compacted := make([]orb.Polygon, len(polygons))
	var area float64
	for i, p := range polygons {
		compacted[i] = compactPolygon(p)
		if err := validatePolygon(compacted[i]); err != nil {
			return Zone{}, fmt.Errorf("zone %q polygon %d: %w", rec.ID, i, err)
		}
		area += polygonArea(compacted[i])
	}

	intensity, ok := intensities[rec.ID]
	if !ok {
		return Zone{}, fmt.Errorf("zone %q: no carbon intensity in %s", rec.ID, IntensityFile)
	}

	name := names[rec.ID]
	return Zone{
		ID:              rec.ID,
		Name:            name.ZoneName,
		Country:         name.CountryName,
		Geometry:        geom.Geometry(),
		CarbonIntensity: intensity,
		Area:            area,
		Bound:           geom.Geometry().Bound(),
		polygons:        compacted,
	}, nil
}

// decodeStrict decodes a whole JSON document, rejecting unknown fields.
func decodeStrict(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return &DataLoadError{File: name, Err: err}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &DataLoadError{File: name, Err: err}
	}
	return nil
}

// Len returns the number of zones.
func (c *Catalog) Len() int {
	return len(c.zones)
}

// Zones returns a copy of the zones in file order.
func (c *Catalog) Zones() []Zone {
	out := make([]Zone, len(c.zones))
	copy(out, c.zones)
	return out
}

// Zone returns the zone with the given id.
func (c *Catalog) Zone(id string) (Zone, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Zone{}, false
	}
	return c.zones[i], true
}
