package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bolasblack/dirsync/internal/config"
	"github.com/bolasblack/dirsync/internal/state"
	"github.com/bolasblack/dirsync/internal/util"
)

// Common error messages for CLI commands.
const (
	ErrMsgConfigNotFound = "configuration not found: run 'dirsync init' first or pass SOURCE REPLICA LOG_FILE"
	ErrMsgStateNotFound  = "no pass recorded yet: run 'dirsync run' or 'dirsync once' first"
)

// loadConfig loads the config named by --config, or ./.dirsync.toml. A
// missing default file is not an error, since positional arguments can
// supply everything; a missing --config file is.
func loadConfig(env *util.Env, cwd string) (config.Config, string, error) {
	path := configPath
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cwd, util.ConfigFilename)
	}

	cfg, err := config.LoadConfig(env, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			cfg = config.DefaultConfig()
			return cfg, "", nil
		}
		return config.Config{}, path, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, path, nil
}

// applyArgs overlays positional arguments in the order
// SOURCE REPLICA LOG_FILE INTERVAL.
func applyArgs(cfg *config.Config, args []string) error {
	fields := []*string{&cfg.Source, &cfg.Replica, &cfg.LogFile}
	for i, arg := range args {
		if i < len(fields) {
			*fields[i] = arg
			continue
		}
		interval, err := config.ParseInterval(arg)
		if err != nil {
			return err
		}
		cfg.Interval = interval
	}
	return cfg.ExpandPaths()
}

// resolveConfig builds the effective configuration from the config file and
// positional arguments, and validates it.
func resolveConfig(env *util.Env, args []string) (config.Config, error) {
	cwd, err := getCwd()
	if err != nil {
		return config.Config{}, err
	}
	cfg, path, err := loadConfig(env, cwd)
	if err != nil {
		return config.Config{}, err
	}
	if err := applyArgs(&cfg, args); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingField) && path == "" {
			return config.Config{}, fmt.Errorf("%s (%w)", ErrMsgConfigNotFound, err)
		}
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadRequiredState loads the status file of the configured replica and
// returns an error if none exists.
func loadRequiredState(env *util.Env, cfg config.Config) (*state.State, error) {
	st, err := state.Load(env, cfg.StateDir, cfg.Replica)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	if st == nil {
		return nil, errors.New(ErrMsgStateNotFound)
	}
	return st, nil
}

// displaySourceDrift prints a warning when the replica used to be fed from
// another source. Returns true if there was any drift to display.
func displaySourceDrift(w io.Writer, drift *state.SourceDrift) bool {
	if drift == nil {
		return false
	}
	fmt.Fprintln(w, "Source has changed since this replica was first mirrored:")
	fmt.Fprintf(w, "  Source: %s → %s\n", drift.Old, drift.New)
	fmt.Fprintln(w, "Files that only exist in the old source will be removed from the replica.")
	return true
}

// getCwd returns the current working directory or an error.
func getCwd() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cwd, nil
}

// progressStep writes a progress message with → prefix (step in progress).
// Delegates to util.ProgressStep for shared implementation.
var progressStep = util.ProgressStep

// progressDone writes a progress message with ✓ prefix (step completed).
// Delegates to util.ProgressDone for shared implementation.
var progressDone = util.ProgressDone

// progressWarn writes a progress message with ! prefix.
// Delegates to util.ProgressWarn for shared implementation.
var progressWarn = util.ProgressWarn
