package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/kylemcdonald/nvidia-co2/internal/zones"
)

// maxGeolocationBody bounds the response read from the geolocation service.
const maxGeolocationBody = 1 << 20

// Location is where an IP address is believed to be.
type Location struct {
	Point   zones.Point
	City    string
	Region  string
	Country string
}

// ipinfoResponse is the subset of the ipinfo.io JSON schema used here.
type ipinfoResponse struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Loc     string `json:"loc"`
	Bogon   bool   `json:"bogon"`
}

// Geolocator maps IP addresses to coordinates with an ipinfo-style HTTP
// service (GET {base}/{ip}/json).
type Geolocator struct {
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewGeolocator creates a geolocator. A nil client uses http.DefaultClient.
func NewGeolocator(client *http.Client, baseURL string, logger zerolog.Logger) *Geolocator {
	if client == nil {
		client = http.DefaultClient
	}
	return &Geolocator{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "geolocation").Logger(),
	}
}

// Locate looks up ip.
func (g *Geolocator) Locate(ctx context.Context, ip string) (Location, error) {
	endpoint := fmt.Sprintf("%s/%s/json", g.baseURL, url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, &UnavailableError{Source: SourceGeolocation, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Location{}, &UnavailableError{Source: SourceGeolocation, Err: fmt.Errorf("failed to fetch %s: %w", endpoint, err)}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.Warn().Err(err).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return Location{}, unavailable(SourceGeolocation, "bad status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGeolocationBody))
	if err != nil {
		return Location{}, &UnavailableError{Source: SourceGeolocation, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	var info ipinfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return Location{}, &UnavailableError{Source: SourceGeolocation, Err: fmt.Errorf("invalid JSON response: %w", err)}
	}
	if info.Bogon {
		return Location{}, unavailable(SourceGeolocation, "%s is not a public address", ip)
	}

	pt, err := parseLoc(info.Loc)
	if err != nil {
		return Location{}, &UnavailableError{Source: SourceGeolocation, Err: err}
	}

	loc := Location{Point: pt, City: info.City, Region: info.Region, Country: info.Country}
	g.logger.Debug().
		Str("ip", ip).
		Str("city", loc.City).
		Str("country", loc.Country).
		Stringer("point", loc.Point).
		Msg("geolocated IP")
	return loc, nil
}

// parseLoc parses ipinfo's "lat,lon" field.
func parseLoc(s string) (zones.Point, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return zones.Point{}, fmt.Errorf("missing or malformed loc %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return zones.Point{}, fmt.Errorf("parsing latitude in %q: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return zones.Point{}, fmt.Errorf("parsing longitude in %q: %w", s, err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return zones.Point{}, fmt.Errorf("loc %q out of range", s)
	}
	return zones.Point{Lat: lat, Lon: lon}, nil
}
