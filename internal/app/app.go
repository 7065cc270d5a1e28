// Package app runs one nvidia-co2 invocation: sample power, convert it to
// the requested unit, and print it above the nvidia-smi report.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/kylemcdonald/nvidia-co2/internal/cache"
	"github.com/kylemcdonald/nvidia-co2/internal/carbon"
	"github.com/kylemcdonald/nvidia-co2/internal/config"
	"github.com/kylemcdonald/nvidia-co2/internal/report"
	"github.com/kylemcdonald/nvidia-co2/internal/telemetry"
)

// PowerSampler returns the host's current CPU and GPU draw.
type PowerSampler interface {
	Sample(ctx context.Context) (telemetry.PowerSample, error)
}

// StatusReader returns the plain nvidia-smi report.
type StatusReader interface {
	Status(ctx context.Context) (string, error)
}

// Deps are the collaborators of an App.
type Deps struct {
	Sampler  PowerSampler
	Status   StatusReader
	IP       IPFinder
	Geo      Locator
	Resolver ZoneResolver
	// Fs holds the intensity cache file.
	Fs afero.Fs
}

// App is a configured nvidia-co2 run.
type App struct {
	cfg    *config.Config
	deps   Deps
	out    io.Writer
	logger zerolog.Logger
}

// New creates an App writing its report to out. A nil Resolver uses the
// bundled zone catalog.
func New(cfg *config.Config, deps Deps, out io.Writer, logger zerolog.Logger) *App {
	if deps.Resolver == nil {
		deps.Resolver = BundledZones{}
	}
	return &App{cfg: cfg, deps: deps, out: out, logger: logger}
}

// NewFromConfig wires the real host collaborators described by cfg.
func NewFromConfig(cfg *config.Config, out io.Writer, logger zerolog.Logger) *App {
	osFs := afero.NewOsFs()

	rapl := telemetry.NewRAPLReader(osFs, cfg.RAPLRoot, logger)
	estimator := telemetry.NewCPUEstimator(nil, logger)
	smi := telemetry.NewNvidiaSMI(telemetry.ExecRunner{}, cfg.NvidiaSMI, logger)

	return New(cfg, Deps{
		Sampler: telemetry.NewSampler(cfg.Source(), cfg.SampleInterval, rapl, estimator, smi, logger),
		Status:  smi,
		IP:      telemetry.NewPublicIPFinder(telemetry.NewDNSResolver(cfg.DNSResolver), cfg.IPLookupHost, logger),
		Geo:     telemetry.NewGeolocator(&http.Client{Timeout: cfg.Timeout}, cfg.GeolocationURL, logger),
		Fs:      osFs,
	}, out, logger)
}

// Run prints the report for mode. Nothing is written unless every value
// was obtained.
func (a *App) Run(ctx context.Context, mode carbon.Mode) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	sample, err := a.deps.Sampler.Sample(ctx)
	if err != nil {
		return fmt.Errorf("sampling power: %w", err)
	}

	amount, err := a.convert(ctx, sample.Total(), mode)
	if err != nil {
		return err
	}

	status, err := a.deps.Status.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading GPU status: %w", err)
	}

	if err := report.Render(a.out, status, amount.String()); err != nil {
		return err
	}

	a.logger.Info().
		Str("mode", string(mode)).
		Float64("watts", sample.Total()).
		Float64("value", amount.Value).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("report written")
	return nil
}

// convert opens the intensity cache only for modes that need it, so power
// modes never touch the network or the cache file.
func (a *App) convert(ctx context.Context, watts float64, mode carbon.Mode) (carbon.Amount, error) {
	if !mode.NeedsIntensity() {
		return carbon.Convert(watts, mode, nil)
	}

	var amount carbon.Amount
	err := cache.With(a.deps.Fs, a.cfg.CachePath, a.logger, func(store *cache.Store) error {
		lookup := NewIntensityLookup(a.deps.IP, a.deps.Geo, a.deps.Resolver, store, a.logger)

		var err error
		amount, err = carbon.Convert(watts, mode, func() (float64, error) {
			return lookup.Intensity(ctx)
		})
		return err
	})
	if err != nil {
		return carbon.Amount{}, fmt.Errorf("converting to %s: %w", mode, err)
	}
	return amount, nil
}
