package zones

// Resolve returns the most specific zone containing p.
//
// Zones are prefiltered by bounding box and then tested for exact
// containment, boundary inclusive. When several zones contain p (a country
// and one of its grid regions, say) the zone with the smallest area wins;
// zones with identical area are ordered by id and the lexicographically
// smallest is returned. A *NoZoneFoundError is returned when no zone
// contains p.
func (c *Catalog) Resolve(p Point) (Zone, error) {
	if err := p.validate(); err != nil {
		return Zone{}, err
	}

	best := -1
	for _, i := range c.index.candidates(p.orb()) {
		z := &c.zones[i]
		if !z.Contains(p) {
			continue
		}
		if best < 0 || moreSpecific(z, &c.zones[best]) {
			best = i
		}
	}
	if best < 0 {
		return Zone{}, &NoZoneFoundError{Point: p}
	}

	zone := c.zones[best]
	logger.Debug().
		Str("zone", zone.ID).
		Float64("lat", p.Lat).
		Float64("lon", p.Lon).
		Float64("area", zone.Area).
		Msg("resolved zone")
	return zone, nil
}

// Resolve is shorthand for c.Resolve(p).
func Resolve(c *Catalog, p Point) (Zone, error) {
	return c.Resolve(p)
}

// moreSpecific orders zones by area, then id.
func moreSpecific(a, b *Zone) bool {
	if a.Area != b.Area {
		return a.Area < b.Area
	}
	return a.ID < b.ID
}
