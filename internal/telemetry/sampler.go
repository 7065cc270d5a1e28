package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kylemcdonald/nvidia-co2/internal/carbon"
)

// PowerSource selects how power is obtained.
type PowerSource string

const (
	// PowerMeasured requires RAPL counters and nvidia-smi power readings.
	PowerMeasured PowerSource = "measured"
	// PowerEstimate falls back to utilization-based estimates per component.
	PowerEstimate PowerSource = "estimate"
)

// ParsePowerSource validates a power source name.
func ParsePowerSource(s string) (PowerSource, error) {
	switch ps := PowerSource(s); ps {
	case PowerMeasured, PowerEstimate:
		return ps, nil
	default:
		return "", fmt.Errorf("unknown power source %q (want %s or %s)", s, PowerMeasured, PowerEstimate)
	}
}

// CPUMeter returns average CPU power over a sample interval.
type CPUMeter interface {
	Watts(ctx context.Context, interval time.Duration) (float64, error)
}

// PowerSample is one combined CPU and GPU reading.
type PowerSample struct {
	CPUWatts     float64
	GPUWatts     float64
	CPUEstimated bool
	GPUEstimated bool
}

// Total is the combined draw in watts.
func (p PowerSample) Total() float64 {
	return p.CPUWatts + p.GPUWatts
}

// Sampler combines a CPU meter and nvidia-smi into a single reading.
type Sampler struct {
	source    PowerSource
	interval  time.Duration
	cpu       CPUMeter
	estimator CPUMeter
	gpu       *NvidiaSMI
	logger    zerolog.Logger
}

// NewSampler creates a sampler. estimator is only consulted when source is
// PowerEstimate and may be nil otherwise.
func NewSampler(source PowerSource, interval time.Duration, cpu, estimator CPUMeter, gpu *NvidiaSMI, logger zerolog.Logger) *Sampler {
	return &Sampler{
		source:    source,
		interval:  interval,
		cpu:       cpu,
		estimator: estimator,
		gpu:       gpu,
		logger:    logger.With().Str("component", "sampler").Logger(),
	}
}

// Sample reads CPU power, then GPU power.
func (s *Sampler) Sample(ctx context.Context) (PowerSample, error) {
	var (
		sample PowerSample
		err    error
	)

	sample.CPUWatts, sample.CPUEstimated, err = s.cpuWatts(ctx)
	if err != nil {
		return PowerSample{}, err
	}

	sample.GPUWatts, sample.GPUEstimated, err = s.gpuWatts(ctx)
	if err != nil {
		return PowerSample{}, err
	}

	s.logger.Info().
		Float64("cpu_watts", sample.CPUWatts).
		Float64("gpu_watts", sample.GPUWatts).
		Bool("cpu_estimated", sample.CPUEstimated).
		Bool("gpu_estimated", sample.GPUEstimated).
		Msg("sampled power")
	return sample, nil
}

func (s *Sampler) cpuWatts(ctx context.Context) (float64, bool, error) {
	w, err := s.cpu.Watts(ctx, s.interval)
	if err == nil {
		return w, false, nil
	}

	var unavail *UnavailableError
	if s.source != PowerEstimate || s.estimator == nil || !errors.As(err, &unavail) {
		return 0, false, err
	}

	s.logger.Info().Err(err).Msg("energy counter unavailable, estimating CPU power")
	w, err = s.estimator.Watts(ctx, s.interval)
	if err != nil {
		return 0, false, err
	}
	return w, true, nil
}

func (s *Sampler) gpuWatts(ctx context.Context) (float64, bool, error) {
	if s.source != PowerEstimate {
		w, err := s.gpu.Watts(ctx)
		return w, false, err
	}

	readings, err := s.gpu.Readings(ctx)
	if err != nil {
		return 0, false, err
	}

	var (
		total     float64
		estimated bool
	)
	for i, r := range readings {
		if r.PowerDraw != nil {
			total += *r.PowerDraw
			continue
		}
		w, ok := carbon.CalculateGPUPowerWatts(r.Name, carbon.UtilizationFromPercent(r.Utilization))
		if !ok {
			return 0, false, unavailable(SourceNvidiaSMI, "GPU %d (%s) reports no power.draw and has no known TDP", i, r.Name)
		}
		s.logger.Debug().Int("gpu", i).Str("model", r.Name).Float64("watts", w).Msg("estimated GPU power from TDP")
		total += w
		estimated = true
	}
	return total, estimated, nil
}
