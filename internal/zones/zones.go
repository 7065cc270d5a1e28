// Package zones maps geographic coordinates to electricity zones and their
// average carbon intensity.
//
// The zone table is bundled with the binary: region polygons, a fallback
// carbon intensity per region and display names. It is parsed once per
// process (see Default) and is read-only afterwards.
package zones

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
)

// logger receives load diagnostics. Callers replace it with SetLogger.
var logger = zerolog.Nop()

// SetLogger sets the logger used by the package for load and resolution
// diagnostics.
func SetLogger(l zerolog.Logger) {
	logger = l.With().Str("component", "zones").Logger()
}

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// orb converts the point to the catalog's planar convention (x=lon, y=lat).
func (p Point) orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func (p Point) validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("invalid coordinate lat=%v lon=%v", p.Lat, p.Lon)
	}
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", p.Lat, p.Lon)
}

// Zone is a named region with a polygon boundary and the average carbon
// intensity of its electricity.
type Zone struct {
	// ID is the zone identifier (e.g., "DE", "US-CAL-CISO").
	ID string

	// Name and Country are display names. Either may be empty.
	Name    string
	Country string

	// Geometry is an orb.Polygon or orb.MultiPolygon with (lon, lat) vertices.
	Geometry orb.Geometry

	// CarbonIntensity is in grams CO2eq per kWh.
	CarbonIntensity float64

	// Area is the planar area in square degrees (outer rings minus holes).
	Area float64

	// Bound is the bounding box of Geometry.
	Bound orb.Bound

	polygons []orb.Polygon
}

// Contains reports whether p lies inside the zone. Points on a ring boundary
// count as inside.
func (z Zone) Contains(p Point) bool {
	pt := p.orb()
	if !z.Bound.Contains(pt) {
		return false
	}
	for _, poly := range z.polygons {
		if polygonCovers(poly, pt) {
			return true
		}
	}
	return false
}

// DisplayName returns the zone name, falling back to the id.
func (z Zone) DisplayName() string {
	if z.Name != "" {
		return z.Name
	}
	return z.ID
}
