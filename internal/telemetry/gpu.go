package telemetry

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// notAvailable is what nvidia-smi prints for a field the board does not report.
const notAvailable = "[N/A]"

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. On failure the returned error includes the
// command's stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// GPUReading is one board as reported by nvidia-smi.
type GPUReading struct {
	Name string
	// PowerDraw is the reported board power in watts; nil when the board
	// reports [N/A].
	PowerDraw *float64
	// Utilization is GPU utilization in percent.
	Utilization float64
}

// NvidiaSMI queries GPUs through the nvidia-smi command.
type NvidiaSMI struct {
	runner Runner
	path   string
	logger zerolog.Logger
}

// NewNvidiaSMI creates a client that invokes the binary at path using runner.
func NewNvidiaSMI(runner Runner, path string, logger zerolog.Logger) *NvidiaSMI {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &NvidiaSMI{
		runner: runner,
		path:   path,
		logger: logger.With().Str("component", "nvidia-smi").Logger(),
	}
}

// Watts returns the summed power draw of every GPU. A host without GPUs
// (no output lines) draws 0 W.
func (n *NvidiaSMI) Watts(ctx context.Context) (float64, error) {
	out, err := n.run(ctx, "--query-gpu=power.draw", "--format=csv,noheader,nounits")
	if err != nil {
		return 0, err
	}

	var total float64
	count := 0
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == notAvailable {
			return 0, unavailable(SourceNvidiaSMI, "GPU %d does not report power.draw", count)
		}
		w, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return 0, unavailable(SourceNvidiaSMI, "parsing power.draw %q: %w", line, err)
		}
		total += w
		count++
	}

	n.logger.Debug().Int("gpus", count).Float64("watts", total).Msg("read GPU power")
	return total, nil
}

// Readings returns name, power and utilization for every GPU.
func (n *NvidiaSMI) Readings(ctx context.Context) ([]GPUReading, error) {
	out, err := n.run(ctx, "--query-gpu=name,power.draw,utilization.gpu", "--format=csv,noheader,nounits")
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(out))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = 3

	var readings []GPUReading
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, unavailable(SourceNvidiaSMI, "parsing GPU query output: %w", err)
		}

		reading := GPUReading{Name: strings.TrimSpace(rec[0])}
		if p := strings.TrimSpace(rec[1]); p != notAvailable {
			w, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, unavailable(SourceNvidiaSMI, "parsing power.draw %q: %w", p, err)
			}
			reading.PowerDraw = &w
		}
		if u := strings.TrimSpace(rec[2]); u != notAvailable {
			util, err := strconv.ParseFloat(u, 64)
			if err != nil {
				return nil, unavailable(SourceNvidiaSMI, "parsing utilization.gpu %q: %w", u, err)
			}
			reading.Utilization = util
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

// Status returns the plain nvidia-smi report.
func (n *NvidiaSMI) Status(ctx context.Context) (string, error) {
	out, err := n.run(ctx)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (n *NvidiaSMI) run(ctx context.Context, args ...string) ([]byte, error) {
	out, err := n.runner.Run(ctx, n.path, args...)
	if err != nil {
		return nil, &UnavailableError{Source: SourceNvidiaSMI, Err: fmt.Errorf("running %s: %w", n.path, err)}
	}
	return out, nil
}
