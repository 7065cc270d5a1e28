package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"

	"github.com/kylemcdonald/nvidia-co2/internal/carbon"
)

// CPUStats reports host CPU utilization and thread count.
type CPUStats interface {
	// Percent returns total CPU utilization (0-100) measured over interval.
	Percent(ctx context.Context, interval time.Duration) (float64, error)
	// Threads returns the number of logical CPUs.
	Threads() (int, error)
}

// HostCPU reads CPU statistics from the running host via gopsutil.
type HostCPU struct{}

func (HostCPU) Percent(ctx context.Context, interval time.Duration) (float64, error) {
	ps, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return 0, err
	}
	if len(ps) == 0 {
		return 0, fmt.Errorf("no CPU utilization reported")
	}
	return ps[0], nil
}

func (HostCPU) Threads() (int, error) {
	return cpu.Counts(true)
}

// CPUEstimator approximates CPU power from utilization when no energy
// counter is available.
type CPUEstimator struct {
	stats  CPUStats
	logger zerolog.Logger
}

// NewCPUEstimator creates an estimator backed by stats, or by the host when
// stats is nil.
func NewCPUEstimator(stats CPUStats, logger zerolog.Logger) *CPUEstimator {
	if stats == nil {
		stats = HostCPU{}
	}
	return &CPUEstimator{
		stats:  stats,
		logger: logger.With().Str("component", "cpu-estimate").Logger(),
	}
}

// Watts returns threads × (idle + utilization × (max − idle)) using the
// per-thread figures in the carbon package.
func (e *CPUEstimator) Watts(ctx context.Context, interval time.Duration) (float64, error) {
	threads, err := e.stats.Threads()
	if err != nil {
		return 0, &UnavailableError{Source: SourceCPUEstimate, Err: fmt.Errorf("counting CPUs: %w", err)}
	}
	if threads <= 0 {
		return 0, unavailable(SourceCPUEstimate, "host reports %d logical CPUs", threads)
	}

	pct, err := e.stats.Percent(ctx, interval)
	if err != nil {
		return 0, &UnavailableError{Source: SourceCPUEstimate, Err: fmt.Errorf("measuring utilization: %w", err)}
	}

	util := carbon.UtilizationFromPercent(pct)
	watts := float64(threads) * carbon.AverageWatts(carbon.MinWattsPerThread, carbon.MaxWattsPerThread, util)

	e.logger.Debug().
		Int("threads", threads).
		Float64("utilization", util).
		Float64("watts", watts).
		Msg("estimated CPU power")
	return watts, nil
}
