package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylemcdonald/nvidia-co2/internal/telemetry"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfig, EnvLogLevel, EnvCache, EnvPowerSource} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/tmp/nvidia-co2-cache.json", cfg.CachePath)
	assert.Equal(t, 10*time.Millisecond, cfg.SampleInterval)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "/sys/class/powercap/intel-rapl", cfg.RAPLRoot)
	assert.Equal(t, "nvidia-smi", cfg.NvidiaSMI)
	assert.Equal(t, "resolver1.opendns.com:53", cfg.DNSResolver)
	assert.Equal(t, "myip.opendns.com", cfg.IPLookupHost)
	assert.Equal(t, "https://ipinfo.io", cfg.GeolocationURL)
	assert.Equal(t, telemetry.PowerMeasured, cfg.Source())
	assert.Equal(t, zerolog.WarnLevel, cfg.Level())
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(afero.NewMemMapFs())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/nvidia-co2.yaml", []byte(`
log_level: info
cache_path: /var/cache/nvidia-co2.json
sample_interval: 250ms
timeout: 30s
geolocation_url: http://geo.internal:8080
power_source: estimate
`), 0o644))

	t.Setenv(EnvConfig, "/etc/nvidia-co2.yaml")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvCache, "/home/me/.cache/co2.json")

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "env wins over file")
	assert.Equal(t, "/home/me/.cache/co2.json", cfg.CachePath, "env wins over file")
	assert.Equal(t, 250*time.Millisecond, cfg.SampleInterval)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "http://geo.internal:8080", cfg.GeolocationURL)
	assert.Equal(t, telemetry.PowerEstimate, cfg.Source())
	assert.Equal(t, "nvidia-smi", cfg.NvidiaSMI, "unset keys keep defaults")
}

func TestLoad_PowerSourceEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPowerSource, "estimate")

	cfg, err := Load(afero.NewMemMapFs())
	require.NoError(t, err)
	assert.Equal(t, telemetry.PowerEstimate, cfg.Source())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing file",
			env:     map[string]string{EnvConfig: "/nope.yaml"},
			wantErr: "reading config",
		},
		{
			name:    "unknown key",
			file:    "colour: blue\n",
			wantErr: "parsing config",
		},
		{
			name:    "bad duration",
			file:    "timeout: soon\n",
			wantErr: "parsing config",
		},
		{
			name:    "bad log level",
			env:     map[string]string{EnvLogLevel: "loud"},
			wantErr: "log_level",
		},
		{
			name:    "bad power source",
			env:     map[string]string{EnvPowerSource: "guess"},
			wantErr: "power_source",
		},
		{
			name:    "negative interval",
			file:    "sample_interval: -1s\n",
			wantErr: "sample_interval",
		},
		{
			name:    "interval longer than timeout",
			file:    "sample_interval: 20s\ntimeout: 5s\n",
			wantErr: "shorter than timeout",
		},
		{
			name:    "resolver without port",
			file:    "dns_resolver: resolver1.opendns.com\n",
			wantErr: "dns_resolver",
		},
		{
			name:    "geolocation url without scheme",
			file:    "geolocation_url: ipinfo.io\n",
			wantErr: "geolocation_url",
		},
		{
			name:    "empty cache path",
			file:    "cache_path: \"\"\n",
			wantErr: "cache_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			fs := afero.NewMemMapFs()
			if tt.file != "" {
				require.NoError(t, afero.WriteFile(fs, "/cfg.yaml", []byte(tt.file), 0o644))
				t.Setenv(EnvConfig, "/cfg.yaml")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(fs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/empty.yaml", nil, 0o644))
	t.Setenv(EnvConfig, "/empty.yaml")

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.RAPLRoot = ""
	cfg.NvidiaSMI = ""
	cfg.IPLookupHost = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rapl_root")
	assert.Contains(t, err.Error(), "nvidia_smi")
	assert.Contains(t, err.Error(), "ip_lookup_host")
}
