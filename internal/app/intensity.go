package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kylemcdonald/nvidia-co2/internal/cache"
	"github.com/kylemcdonald/nvidia-co2/internal/telemetry"
	"github.com/kylemcdonald/nvidia-co2/internal/zones"
)

// IPFinder discovers the host's public IP address.
type IPFinder interface {
	PublicIP(ctx context.Context) (string, error)
}

// Locator maps an IP address to coordinates.
type Locator interface {
	Locate(ctx context.Context, ip string) (telemetry.Location, error)
}

// ZoneResolver maps coordinates to the zone that contains them.
type ZoneResolver interface {
	Resolve(p zones.Point) (zones.Zone, error)
}

// BundledZones resolves against the catalog compiled into the binary,
// loading it on first use.
type BundledZones struct{}

func (BundledZones) Resolve(p zones.Point) (zones.Zone, error) {
	c, err := zones.Default()
	if err != nil {
		return zones.Zone{}, err
	}
	return c.Resolve(p)
}

// IntensityLookup finds the carbon intensity of the grid the host draws
// from: public IP, then the cache, then geolocation and zone resolution on
// a miss.
type IntensityLookup struct {
	ip       IPFinder
	geo      Locator
	resolver ZoneResolver
	store    *cache.Store
	logger   zerolog.Logger
}

// NewIntensityLookup creates a lookup that records results in store.
func NewIntensityLookup(ip IPFinder, geo Locator, resolver ZoneResolver, store *cache.Store, logger zerolog.Logger) *IntensityLookup {
	return &IntensityLookup{
		ip:       ip,
		geo:      geo,
		resolver: resolver,
		store:    store,
		logger:   logger,
	}
}

// Intensity returns gCO2eq/kWh for the host's location.
func (l *IntensityLookup) Intensity(ctx context.Context) (float64, error) {
	ip, err := l.ip.PublicIP(ctx)
	if err != nil {
		return 0, err
	}

	return l.store.GetOrCompute(ip, func() (float64, error) {
		loc, err := l.geo.Locate(ctx, ip)
		if err != nil {
			return 0, err
		}

		zone, err := l.resolver.Resolve(loc.Point)
		if err != nil {
			return 0, fmt.Errorf("locating grid zone for %s: %w", ip, err)
		}

		l.logger.Info().
			Str("ip", ip).
			Str("city", loc.City).
			Str("region", loc.Region).
			Str("country", loc.Country).
			Str("zone", zone.ID).
			Str("zone_name", zone.DisplayName()).
			Float64("intensity", zone.CarbonIntensity).
			Msg("resolved grid zone")
		return zone.CarbonIntensity, nil
	})
}
