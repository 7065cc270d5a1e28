// Package telemetry samples local power draw (RAPL energy counters,
// nvidia-smi, or a utilization-based estimate) and discovers where the host
// is (public IP and IP geolocation).
package telemetry

import "fmt"

// Source names the collaborator that failed to deliver a reading.
type Source string

const (
	SourceRAPL        Source = "rapl"
	SourceNvidiaSMI   Source = "nvidia-smi"
	SourcePublicIP    Source = "public-ip"
	SourceGeolocation Source = "geolocation"
	SourceCPUEstimate Source = "cpu-estimate"
)

// UnavailableError reports that a telemetry source could not be read.
// It is fatal for the run and not retried.
type UnavailableError struct {
	Source Source
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func unavailable(src Source, format string, args ...any) error {
	return &UnavailableError{Source: src, Err: fmt.Errorf(format, args...)}
}
