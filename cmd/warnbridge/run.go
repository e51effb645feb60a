package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad/warnbridge/internal/config"
	"github.com/nerrad/warnbridge/internal/logging"
	"github.com/nerrad/warnbridge/internal/supervisor"
)

// configError marks a failure that happened before the daemon started
// doing any work: a bad flag, a missing or invalid config file. These map
// to exit code 1. Every other failure returned by run maps to exit code 2.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// runCommand parses run's flags, loads configuration, and blocks running
// the daemon until it is signalled to stop. It returns the process exit
// code.
func runCommand(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file (overrides WARNBRIDGE_CONFIG)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, getConfigPath(*configPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var cfgErr *configError
		if errors.As(err, &cfgErr) {
			return 1
		}
		return 2
	}
	return 0
}

// run loads configuration and hands off to supervisor.Run. Separated from
// runCommand for testability: it returns an error instead of an exit code
// and never calls os.Exit.
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting warnbridge", "version", version, "commit", commit, "build_date", date)

	cfg, err := config.Load(configPath)
	if err != nil {
		return &configError{fmt.Errorf("loading config: %w", err)}
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}, version)
	log.Info("logger initialised", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	return supervisor.Run(ctx, cfg, log, version)
}
