package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylemcdonald/nvidia-co2/internal/zones"
)

func TestGeolocator_Locate(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ip":"203.0.113.7","city":"Paris","region":"Île-de-France","country":"FR","loc":"48.8534,2.3488","org":"AS0 Example","timezone":"Europe/Paris"}`))
	}))
	defer srv.Close()

	g := NewGeolocator(srv.Client(), srv.URL+"/", zerolog.Nop())
	loc, err := g.Locate(context.Background(), "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, "/203.0.113.7/json", gotPath)
	assert.Equal(t, zones.Point{Lat: 48.8534, Lon: 2.3488}, loc.Point)
	assert.Equal(t, "Paris", loc.City)
	assert.Equal(t, "FR", loc.Country)
}

func TestGeolocator_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "oops"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"rate limit"}`},
		{name: "invalid json", status: http.StatusOK, body: "<html>"},
		{name: "bogon", status: http.StatusOK, body: `{"ip":"10.0.0.1","bogon":true}`},
		{name: "missing loc", status: http.StatusOK, body: `{"ip":"203.0.113.7"}`},
		{name: "malformed loc", status: http.StatusOK, body: `{"loc":"48.8;2.3"}`},
		{name: "out of range", status: http.StatusOK, body: `{"loc":"148.8,2.3"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewGeolocator(srv.Client(), srv.URL, zerolog.Nop())
			_, err := g.Locate(context.Background(), "203.0.113.7")
			var unavail *UnavailableError
			require.True(t, errors.As(err, &unavail), "got %v", err)
			assert.Equal(t, SourceGeolocation, unavail.Source)
		})
	}
}

func TestGeolocator_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := NewGeolocator(nil, url, zerolog.Nop())
	_, err := g.Locate(context.Background(), "203.0.113.7")
	var unavail *UnavailableError
	assert.True(t, errors.As(err, &unavail))
}

func TestParseLoc(t *testing.T) {
	p, err := parseLoc("-33.8688, 151.2093")
	require.NoError(t, err)
	assert.Equal(t, zones.Point{Lat: -33.8688, Lon: 151.2093}, p)

	for _, bad := range []string{"", "1", "a,b", "1,x"} {
		_, err := parseLoc(bad)
		assert.Error(t, err, bad)
	}
}
