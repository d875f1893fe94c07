package config

import (
	"fmt"
	"path/filepath"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/bolasblack/dirsync/internal/util"
)

// LoadWithIncludes loads config with includes support.
// It processes includes recursively, merging configs in the order they are specified.
func LoadWithIncludes(env *util.Env, path string) (Config, error) {
	return loadWithIncludes(env, path, make(map[string]bool))
}

// loadWithIncludes is the internal recursive implementation.
func loadWithIncludes(env *util.Env, path string, visited map[string]bool) (Config, error) {
	// Get absolute path for circular reference detection
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	if visited[absPath] {
		return Config{}, fmt.Errorf("circular include detected: %s", path)
	}
	visited[absPath] = true

	data, err := afero.ReadFile(env.Fs, path)
	if err != nil {
		return Config{}, err
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Relative include paths and relative roots resolve against the file's directory
	baseDir := filepath.Dir(absPath)

	var merged Config
	for _, includePattern := range raw.Includes {
		resolvedPattern := includePattern
		if !filepath.IsAbs(includePattern) {
			resolvedPattern = filepath.Join(baseDir, includePattern)
		}

		matchedFiles, err := expandGlob(env, resolvedPattern)
		if err != nil {
			return Config{}, fmt.Errorf("failed to expand glob %s: %w", includePattern, err)
		}

		// Empty glob result is OK (no files matched)
		for _, includePath := range matchedFiles {
			included, err := loadWithIncludes(env, includePath, visited)
			if err != nil {
				return Config{}, fmt.Errorf("failed to load include %s: %w", includePath, err)
			}
			merged = mergeConfigs(merged, included)
		}
	}

	current, err := rawToConfig(raw, baseDir)
	if err != nil {
		return Config{}, fmt.Errorf("failed to convert config %s: %w", path, err)
	}

	// Current file wins over everything it includes
	return mergeConfigs(merged, current), nil
}

// rawToConfig converts rawConfig to Config without applying defaults.
func rawToConfig(raw rawConfig, baseDir string) (Config, error) {
	interval, err := parseDuration(raw.Interval)
	if err != nil {
		return Config{}, fmt.Errorf("interval: %w", err)
	}

	return Config{
		Source:       resolvePath(baseDir, raw.Source),
		Replica:      resolvePath(baseDir, raw.Replica),
		LogFile:      resolvePath(baseDir, raw.LogFile),
		Interval:     interval,
		Exclude:      raw.Exclude,
		VerifyBytes:  raw.VerifyBytes,
		SyncMetadata: raw.SyncMetadata,
		StateDir:     resolvePath(baseDir, raw.StateDir),
	}, nil
}

// resolvePath anchors a relative path at baseDir. Empty paths and paths
// starting with ~ are left for later expansion.
func resolvePath(baseDir, path string) string {
	if path == "" || path[0] == '~' || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// isGlobPattern checks if the pattern contains glob special characters.
func isGlobPattern(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// expandGlob expands a glob pattern and returns sorted matched files.
// For literal paths (no glob characters), returns error if file doesn't exist.
// For glob patterns, returns empty slice if no files match.
func expandGlob(env *util.Env, pattern string) ([]string, error) {
	if !isGlobPattern(pattern) {
		if _, err := env.Fs.Stat(pattern); err != nil {
			return nil, err
		}
		return []string{pattern}, nil
	}

	matches, err := afero.Glob(env.Fs, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// mergeConfigs merges overlay config into base config.
// Scalars: overlay wins if set
// Booleans: true wins (an include cannot be switched off)
// Exclude: append (concatenate)
func mergeConfigs(base, overlay Config) Config {
	result := base

	if overlay.Source != "" {
		result.Source = overlay.Source
	}
	if overlay.Replica != "" {
		result.Replica = overlay.Replica
	}
	if overlay.LogFile != "" {
		result.LogFile = overlay.LogFile
	}
	if overlay.Interval != 0 {
		result.Interval = overlay.Interval
	}
	if overlay.StateDir != "" {
		result.StateDir = overlay.StateDir
	}

	result.VerifyBytes = result.VerifyBytes || overlay.VerifyBytes
	result.SyncMetadata = result.SyncMetadata || overlay.SyncMetadata

	if len(overlay.Exclude) > 0 {
		result.Exclude = append(append([]string(nil), result.Exclude...), overlay.Exclude...)
	}

	return result
}
