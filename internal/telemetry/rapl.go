package telemetry

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const (
	raplPackagePrefix = "intel-rapl:"
	raplEnergyFile    = "energy_uj"
	raplMaxRangeFile  = "max_energy_range_uj"
)

// RAPLReader measures CPU package power from the cumulative energy counters
// the powercap driver exposes under sysfs.
type RAPLReader struct {
	fs     afero.Fs
	root   string
	logger zerolog.Logger
	sleep  func(context.Context, time.Duration) error
	now    func() time.Time
}

// RAPLOption configures a RAPLReader.
type RAPLOption func(*RAPLReader)

// WithSleep replaces the wait between the two counter reads.
func WithSleep(fn func(context.Context, time.Duration) error) RAPLOption {
	return func(r *RAPLReader) {
		r.sleep = fn
	}
}

// WithClock replaces the clock used to measure the sample interval.
func WithClock(now func() time.Time) RAPLOption {
	return func(r *RAPLReader) {
		r.now = now
	}
}

// NewRAPLReader creates a reader for the powercap tree at root
// (normally /sys/class/powercap/intel-rapl).
func NewRAPLReader(fs afero.Fs, root string, logger zerolog.Logger, opts ...RAPLOption) *RAPLReader {
	r := &RAPLReader{
		fs:     fs,
		root:   root,
		logger: logger.With().Str("component", "rapl").Logger(),
		sleep:  sleepContext,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Packages lists the top-level RAPL domains (one per CPU socket), sorted.
// Sub-domains such as intel-rapl:0:0 are excluded since their energy is
// already counted by the package.
func (r *RAPLReader) Packages() ([]string, error) {
	matches, err := afero.Glob(r.fs, path.Join(r.root, raplPackagePrefix+"*"))
	if err != nil {
		return nil, unavailable(SourceRAPL, "listing %s: %w", r.root, err)
	}

	var pkgs []string
	for _, m := range matches {
		name := path.Base(m)
		if strings.Count(name, ":") != 1 {
			continue
		}
		pkgs = append(pkgs, m)
	}
	if len(pkgs) == 0 {
		return nil, unavailable(SourceRAPL, "no %s* domains under %s", raplPackagePrefix, r.root)
	}
	sort.Strings(pkgs)
	return pkgs, nil
}

// Watts samples every package counter, waits interval, samples again and
// returns the summed average power over the elapsed time.
func (r *RAPLReader) Watts(ctx context.Context, interval time.Duration) (float64, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("rapl sample interval must be positive, got %s", interval)
	}

	pkgs, err := r.Packages()
	if err != nil {
		return 0, err
	}

	before := make([]uint64, len(pkgs))
	for i, pkg := range pkgs {
		if before[i], err = r.readCounter(pkg, raplEnergyFile); err != nil {
			return 0, err
		}
	}
	start := r.now()

	if err := r.sleep(ctx, interval); err != nil {
		return 0, unavailable(SourceRAPL, "waiting for sample: %w", err)
	}

	var totalUJ float64
	for i, pkg := range pkgs {
		after, err := r.readCounter(pkg, raplEnergyFile)
		if err != nil {
			return 0, err
		}
		delta, err := r.delta(pkg, before[i], after)
		if err != nil {
			return 0, err
		}
		totalUJ += float64(delta)
	}

	elapsed := r.now().Sub(start)
	if elapsed <= 0 {
		elapsed = interval
	}

	watts := totalUJ / (1e6 * elapsed.Seconds())
	r.logger.Debug().
		Int("packages", len(pkgs)).
		Float64("energy_uj", totalUJ).
		Dur("elapsed", elapsed).
		Float64("watts", watts).
		Msg("sampled RAPL energy")
	return watts, nil
}

// delta returns after-before, correcting for a single counter wraparound.
func (r *RAPLReader) delta(pkg string, before, after uint64) (uint64, error) {
	if after >= before {
		return after - before, nil
	}
	maxRange, err := r.readCounter(pkg, raplMaxRangeFile)
	if err != nil {
		return 0, err
	}
	if before > maxRange {
		return 0, unavailable(SourceRAPL, "%s: counter %d exceeds max range %d", pkg, before, maxRange)
	}
	r.logger.Debug().Str("package", path.Base(pkg)).Msg("energy counter wrapped")
	return maxRange - before + after, nil
}

func (r *RAPLReader) readCounter(pkg, file string) (uint64, error) {
	p := path.Join(pkg, file)
	data, err := afero.ReadFile(r.fs, p)
	if err != nil {
		return 0, unavailable(SourceRAPL, "reading %s: %w", p, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, unavailable(SourceRAPL, "parsing %s: %w", p, err)
	}
	return v, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
