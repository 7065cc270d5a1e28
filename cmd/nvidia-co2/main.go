// Command nvidia-co2 prints the carbon impact of the host's current CPU and
// GPU power draw above the nvidia-smi status report.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/kylemcdonald/nvidia-co2/internal/app"
	"github.com/kylemcdonald/nvidia-co2/internal/carbon"
	"github.com/kylemcdonald/nvidia-co2/internal/config"
	"github.com/kylemcdonald/nvidia-co2/internal/zones"
)

const name = "nvidia-co2"

// usageError is a command-line mistake; it exits with status 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }
func (e *usageError) ExitCode() int { return 2 }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		code := 1
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			code = coder.ExitCode()
		}
		os.Exit(code)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var modeName string

	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVarP(&modeName, "mode", "m", string(carbon.DefaultMode), modeHelp())
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return nil
		}
		return &usageError{err: err}
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stdout, flagSet)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return &usageError{err: fmt.Errorf("unexpected argument: %s", rest[0])}
	}

	mode, err := carbon.ParseMode(modeName)
	if err != nil {
		return &usageError{err: err}
	}

	cfg, err := config.Load(afero.NewOsFs())
	if err != nil {
		return err
	}

	logger := newLogger(stderr, cfg.Level())
	zones.SetLogger(logger)
	carbon.SetLogger(logger)

	logger.Debug().
		Str("mode", string(mode)).
		Str("power_source", cfg.PowerSource).
		Str("cache", cfg.CachePath).
		Msg("starting")

	return app.NewFromConfig(cfg, stdout, logger).Run(ctx, mode)
}

// newLogger writes human-readable logs to w, tagged with a per-run id so
// lines from one invocation can be grouped.
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		Level(level).
		With().
		Timestamp().
		Str("run_id", uuid.New().String()).
		Logger()
}

func modeHelp() string {
	names := make([]string, 0, len(carbon.Modes()))
	for _, m := range carbon.Modes() {
		names = append(names, string(m))
	}
	return "[" + strings.Join(names, "|") + "] unit to report"
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `Show gCO2eq emissions information with nvidia-smi.

Combines CPU and GPU power draw. Emissions are corrected for location using
IP address geolocation.

Usage: %s [flags]

Flags:
%s
Modes:
`, name, flagSet.FlagUsages())
	for _, m := range carbon.Modes() {
		fmt.Fprintf(w, "  %-9s %s\n", m, m.Description())
	}
	fmt.Fprintf(w, `
Environment:
  %s  YAML config file
  %s  log level (default warn)
  %s  intensity cache file
  %s  measured or estimate
`, config.EnvConfig, config.EnvLogLevel, config.EnvCache, config.EnvPowerSource)
}
