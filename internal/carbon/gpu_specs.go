package carbon

import (
	_ "embed"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// CSV column indices for GPU TDP data.
const (
	colGPUModel = 0 // gpu_model
	colTDPWatts = 1 // tdp_watts
)

//go:embed data/gpu_tdp.csv
var gpuTDPCSV string

// GPUSpec is the board power rating of a GPU model as reported by nvidia-smi.
type GPUSpec struct {
	// Model is the product name (e.g., "NVIDIA GeForce RTX 4090").
	Model string

	// TDP is the Thermal Design Power in watts.
	TDP float64
}

var (
	gpuSpecs     map[string]GPUSpec
	gpuSpecKeys  []string
	gpuSpecsOnce sync.Once
)

// parseGPUSpecs initializes the package-level gpuSpecs map by parsing
// the embedded CSV of GPU TDP ratings.
func parseGPUSpecs() {
	gpuSpecs = make(map[string]GPUSpec)

	reader := csv.NewReader(strings.NewReader(gpuTDPCSV))

	// Skip header row
	_, err := reader.Read()
	if err != nil {
		logger.Error().Err(err).Msg("failed to read GPU TDP CSV header")
		return
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn().Err(err).Msg("skipping malformed GPU TDP CSV row")
			continue
		}

		if len(record) <= colTDPWatts {
			continue
		}

		model := strings.TrimSpace(record[colGPUModel])
		if model == "" {
			continue
		}

		tdp, err := strconv.ParseFloat(strings.TrimSpace(record[colTDPWatts]), 64)
		if err != nil || tdp <= 0 {
			continue
		}

		key := normalizeGPUModel(model)
		gpuSpecs[key] = GPUSpec{Model: model, TDP: tdp}
		gpuSpecKeys = append(gpuSpecKeys, key)
	}

	// Longest names first so "a100-sxm4-80gb" wins over a shorter prefix.
	sort.Slice(gpuSpecKeys, func(i, j int) bool {
		if len(gpuSpecKeys[i]) != len(gpuSpecKeys[j]) {
			return len(gpuSpecKeys[i]) > len(gpuSpecKeys[j])
		}
		return gpuSpecKeys[i] < gpuSpecKeys[j]
	})
}

// normalizeGPUModel lowercases, drops the vendor prefix and collapses
// whitespace.
func normalizeGPUModel(model string) string {
	m := strings.ToLower(strings.Join(strings.Fields(model), " "))
	m = strings.TrimPrefix(m, "nvidia ")
	return m
}

// GetGPUSpec retrieves the GPUSpec for a model name as printed by
// nvidia-smi. An exact (normalized) match is preferred; otherwise the
// longest known model contained in the name is used.
// Returns the GPUSpec and true if found, or an empty GPUSpec and false otherwise.
func GetGPUSpec(model string) (GPUSpec, bool) {
	gpuSpecsOnce.Do(parseGPUSpecs)

	key := normalizeGPUModel(model)
	if key == "" {
		return GPUSpec{}, false
	}
	if spec, ok := gpuSpecs[key]; ok {
		return spec, true
	}
	for _, k := range gpuSpecKeys {
		if strings.Contains(key, k) {
			return gpuSpecs[k], true
		}
	}
	return GPUSpec{}, false
}

// GPUSpecCount reports the number of loaded GPU specifications.
func GPUSpecCount() int {
	gpuSpecsOnce.Do(parseGPUSpecs)
	return len(gpuSpecs)
}

// CalculateGPUPowerWatts estimates the draw of one GPU from its TDP and
// utilization (0.0-1.0). Unknown models return 0 and false.
func CalculateGPUPowerWatts(model string, utilization float64) (float64, bool) {
	spec, ok := GetGPUSpec(model)
	if !ok {
		return 0, false
	}

	// Simplified model: power scales linearly with utilization up to TDP.
	return spec.TDP * Clamp(utilization, 0.0, 1.0), true
}
