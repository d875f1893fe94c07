// Package config handles parsing and writing of dirsync configuration files (.dirsync.toml).
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/invopop/jsonschema"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/bolasblack/dirsync/internal/mirror"
	"github.com/bolasblack/dirsync/internal/schedule"
	"github.com/bolasblack/dirsync/internal/util"
)

var (
	// ErrMissingField is wrapped by Validate when a required field is empty.
	ErrMissingField = errors.New("missing required field")
	// ErrInsideRoot is wrapped by Validate when the log file or the state
	// directory lies inside the source or the replica, where passes would
	// rewrite or prune it.
	ErrInsideRoot = errors.New("must be outside the source and replica folders")
)

// Duration is a time.Duration written in TOML either as a Go duration
// string ("90s", "5m") or as an integer number of seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String returns the Go duration string.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText encodes the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// JSONSchema implements jsonschema.JSONSchemer to generate a schema that accepts
// both string and integer formats.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string", Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`, Description: "Go duration string, e.g. 30s or 5m"},
			{Type: "integer", Minimum: "1", Description: "Number of seconds"},
		},
		Description: "Pause between the end of one pass and the start of the next",
	}
}

// parseDuration converts a raw TOML value to a Duration.
// Accepts a duration string or an integer number of seconds.
func parseDuration(val any) (Duration, error) {
	switch v := val.(type) {
	case nil:
		return 0, nil
	case string:
		var d Duration
		if err := d.UnmarshalText([]byte(v)); err != nil {
			return 0, err
		}
		return d, nil
	case int64:
		return Duration(time.Duration(v) * time.Second), nil
	default:
		return 0, fmt.Errorf("invalid type: %T", val)
	}
}

// ParseInterval parses an interval given on the command line: a Go
// duration string or a plain number of seconds.
func ParseInterval(s string) (Duration, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return parseDuration(secs)
	}
	var d Duration
	if err := d.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid interval %q: use seconds or a duration such as 30s", s)
	}
	return d, nil
}

// Config represents the dirsync configuration (after processing).
// This is the final merged config used internally by the program.
type Config struct {
	Source       string   `toml:"source" json:"source" jsonschema:"required,description=Folder to mirror from; never modified"`
	Replica      string   `toml:"replica" json:"replica" jsonschema:"required,description=Folder kept identical to the source"`
	LogFile      string   `toml:"log_file" json:"log_file" jsonschema:"required,description=Append-only log of every change"`
	Interval     Duration `toml:"interval,omitempty" json:"interval,omitempty" jsonschema:"description=Pause between passes (default 60s)"`
	Exclude      []string `toml:"exclude,omitempty" json:"exclude,omitempty" jsonschema:"description=gitignore-style patterns excluded from mirroring"`
	VerifyBytes  bool     `toml:"verify_bytes,omitempty" json:"verify_bytes,omitempty" jsonschema:"description=Compare bytes after fingerprints match"`
	SyncMetadata bool     `toml:"sync_metadata,omitempty" json:"sync_metadata,omitempty" jsonschema:"description=Also mirror mode bits and modification times of unchanged files"`
	StateDir     string   `toml:"state_dir,omitempty" json:"state_dir,omitempty" jsonschema:"description=Directory for status and lock files (default ~/.dirsync)"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: Duration(schedule.DefaultInterval),
		StateDir: util.DefaultStateDir(),
	}
}

// ApplyDefaults fills in fields left empty.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.Interval == 0 {
		c.Interval = def.Interval
	}
	if c.StateDir == "" {
		c.StateDir = def.StateDir
	}
}

// ExpandPaths expands a leading ~ in every path field.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.Source, &c.Replica, &c.LogFile, &c.StateDir} {
		if *p == "" {
			continue
		}
		expanded, err := util.ExpandPath(*p)
		if err != nil {
			return fmt.Errorf("expand %s: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks that the config can drive a sync.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"source", c.Source},
		{"replica", c.Replica},
		{"log_file", c.LogFile},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}

	source, err := filepath.Abs(c.Source)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	replica, err := filepath.Abs(c.Replica)
	if err != nil {
		return fmt.Errorf("resolve replica: %w", err)
	}
	if mirror.RootsOverlap(source, replica) {
		return fmt.Errorf("%w: %s and %s", mirror.ErrOverlappingRoots, c.Source, c.Replica)
	}

	for _, f := range []struct {
		name  string
		value string
	}{
		{"log_file", c.LogFile},
		{"state_dir", c.StateDir},
	} {
		if f.value == "" {
			continue
		}
		path, err := filepath.Abs(f.value)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f.name, err)
		}
		if mirror.Within(source, path) || mirror.Within(replica, path) {
			return fmt.Errorf("%s %s %w", f.name, f.value, ErrInsideRoot)
		}
	}
	return nil
}

// ReconcilerOptions translates the config into mirror options.
func (c *Config) ReconcilerOptions() []mirror.Option {
	var opts []mirror.Option
	if len(c.Exclude) > 0 {
		opts = append(opts, mirror.WithIgnore(mirror.NewIgnoreList(c.Exclude...)))
	}
	if c.VerifyBytes {
		opts = append(opts, mirror.WithByteVerification())
	}
	if c.SyncMetadata {
		opts = append(opts, mirror.WithMetadataSync())
	}
	return opts
}

// rawConfig is an intermediate type for decoding TOML with a flexible interval.
type rawConfig struct {
	Includes     []string `toml:"includes,omitempty"`
	Source       string   `toml:"source"`
	Replica      string   `toml:"replica"`
	LogFile      string   `toml:"log_file"`
	Interval     any      `toml:"interval,omitempty"`
	Exclude      []string `toml:"exclude,omitempty"`
	VerifyBytes  bool     `toml:"verify_bytes,omitempty"`
	SyncMetadata bool     `toml:"sync_metadata,omitempty"`
	StateDir     string   `toml:"state_dir,omitempty"`
}

// SchemaConfig is the exported type for JSON schema generation.
// It represents what users can write in .dirsync.toml files.
type SchemaConfig struct {
	Includes     []string `toml:"includes,omitempty" json:"includes,omitempty" jsonschema:"description=Other config files to include and merge (supports glob patterns)"`
	Source       string   `toml:"source" json:"source" jsonschema:"description=Folder to mirror from; never modified"`
	Replica      string   `toml:"replica" json:"replica" jsonschema:"description=Folder kept identical to the source"`
	LogFile      string   `toml:"log_file" json:"log_file" jsonschema:"description=Append-only log of every change"`
	Interval     Duration `toml:"interval,omitempty" json:"interval,omitempty"`
	Exclude      []string `toml:"exclude,omitempty" json:"exclude,omitempty" jsonschema:"description=gitignore-style patterns excluded from mirroring"`
	VerifyBytes  bool     `toml:"verify_bytes,omitempty" json:"verify_bytes,omitempty" jsonschema:"description=Compare bytes after fingerprints match"`
	SyncMetadata bool     `toml:"sync_metadata,omitempty" json:"sync_metadata,omitempty" jsonschema:"description=Also mirror mode bits and modification times of unchanged files"`
	StateDir     string   `toml:"state_dir,omitempty" json:"state_dir,omitempty" jsonschema:"description=Directory for status and lock files (default ~/.dirsync)"`
}

// LoadConfig reads and parses a configuration file from the given path.
// Supports includes directive for composable configuration.
// Applies defaults and expands ~ in paths; it does not validate, since
// command line arguments may still fill in missing fields.
func LoadConfig(env *util.Env, path string) (Config, error) {
	cfg, err := LoadWithIncludes(env, path)
	if err != nil {
		return Config{}, err
	}
	cfg.ApplyDefaults()
	if err := cfg.ExpandPaths(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SchemaComment is the TOML comment that references the JSON Schema for editor autocomplete.
const SchemaComment = "#:schema https://raw.githubusercontent.com/bolasblack/dirsync/refs/heads/master/dirsync-config.schema.json\n\n"

// SaveConfig writes the configuration to the given path with schema comment header.
func SaveConfig(env *util.Env, path string, cfg Config) error {
	var content []byte
	content = append(content, SchemaComment...)
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	content = append(content, encoded...)
	return afero.WriteFile(env.Fs, path, content, 0o644)
}
