// Package config loads nvidia-co2 settings.
//
// Settings come from three layers, later layers winning:
//   - built-in defaults (Default)
//   - an optional YAML file named by NVIDIA_CO2_CONFIG
//   - NVIDIA_CO2_LOG_LEVEL, NVIDIA_CO2_CACHE and NVIDIA_CO2_POWER_SOURCE
//
// Unknown keys in the file are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/kylemcdonald/nvidia-co2/internal/telemetry"
)

// Environment variables read by Load.
const (
	EnvConfig      = "NVIDIA_CO2_CONFIG"
	EnvLogLevel    = "NVIDIA_CO2_LOG_LEVEL"
	EnvCache       = "NVIDIA_CO2_CACHE"
	EnvPowerSource = "NVIDIA_CO2_POWER_SOURCE"
)

// Config holds every tunable of a run.
type Config struct {
	// LogLevel is a zerolog level name. Logs go to stderr.
	LogLevel string `yaml:"log_level"`

	// CachePath is the JSON file mapping public IP to carbon intensity.
	CachePath string `yaml:"cache_path"`

	// SampleInterval is the wait between the two RAPL counter reads.
	SampleInterval time.Duration `yaml:"sample_interval"`

	// Timeout bounds the whole run, network calls included.
	Timeout time.Duration `yaml:"timeout"`

	// RAPLRoot is the powercap directory holding intel-rapl:N domains.
	RAPLRoot string `yaml:"rapl_root"`

	// NvidiaSMI is the nvidia-smi binary, looked up in PATH when not absolute.
	NvidiaSMI string `yaml:"nvidia_smi"`

	// DNSResolver is the host:port of the server answering IPLookupHost.
	DNSResolver string `yaml:"dns_resolver"`

	// IPLookupHost is the name the DNSResolver answers with the caller's IP.
	IPLookupHost string `yaml:"ip_lookup_host"`

	// GeolocationURL is the base of an ipinfo-style API.
	GeolocationURL string `yaml:"geolocation_url"`

	// PowerSource is "measured" or "estimate".
	PowerSource string `yaml:"power_source"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:       "warn",
		CachePath:      "/tmp/nvidia-co2-cache.json",
		SampleInterval: 10 * time.Millisecond,
		Timeout:        10 * time.Second,
		RAPLRoot:       "/sys/class/powercap/intel-rapl",
		NvidiaSMI:      "nvidia-smi",
		DNSResolver:    "resolver1.opendns.com:53",
		IPLookupHost:   "myip.opendns.com",
		GeolocationURL: "https://ipinfo.io",
		PowerSource:    string(telemetry.PowerMeasured),
	}
}

// Load builds the configuration from defaults, the file named by
// NVIDIA_CO2_CONFIG (if set) and environment overrides, then validates it.
func Load(fs afero.Fs) (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfig); path != "" {
		if err := cfg.loadFile(fs, path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFile merges the YAML file at path into c.
func (c *Config) loadFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvCache); v != "" {
		c.CachePath = v
	}
	if v := os.Getenv(EnvPowerSource); v != "" {
		c.PowerSource = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		errs = append(errs, fmt.Errorf("log_level %q is not a valid level", c.LogLevel))
	}

	if c.CachePath == "" {
		errs = append(errs, fmt.Errorf("cache_path is required"))
	}

	if c.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("sample_interval must be positive, got %s", c.SampleInterval))
	}

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	} else if c.SampleInterval >= c.Timeout {
		errs = append(errs, fmt.Errorf("sample_interval %s must be shorter than timeout %s", c.SampleInterval, c.Timeout))
	}

	if c.RAPLRoot == "" {
		errs = append(errs, fmt.Errorf("rapl_root is required"))
	}

	if c.NvidiaSMI == "" {
		errs = append(errs, fmt.Errorf("nvidia_smi is required"))
	}

	if _, _, err := net.SplitHostPort(c.DNSResolver); err != nil {
		errs = append(errs, fmt.Errorf("dns_resolver %q must be host:port: %w", c.DNSResolver, err))
	}

	if c.IPLookupHost == "" {
		errs = append(errs, fmt.Errorf("ip_lookup_host is required"))
	}

	if u, err := url.Parse(c.GeolocationURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("geolocation_url %q must be an http(s) URL", c.GeolocationURL))
	}

	if _, err := telemetry.ParsePowerSource(c.PowerSource); err != nil {
		errs = append(errs, fmt.Errorf("power_source: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Level returns the parsed log level. Call after Validate.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.WarnLevel
	}
	return lvl
}

// Source returns the parsed power source. Call after Validate.
func (c *Config) Source() telemetry.PowerSource {
	return telemetry.PowerSource(c.PowerSource)
}
