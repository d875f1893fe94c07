package util

import (
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

const (
	// AppName is the program name used in user-facing messages.
	AppName = "dirsync"
	// ConfigFilename is the default configuration file, looked up in the working directory.
	ConfigFilename = ".dirsync.toml"
	// StateDirName is the per-user directory holding status files and locks.
	StateDirName = ".dirsync"
	// EnvVerbose enables debug logging when set to a true value.
	EnvVerbose = "DIRSYNC_VERBOSE"
)

// DefaultStateDir returns ~/.dirsync, or a relative .dirsync if the home
// directory cannot be determined.
func DefaultStateDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return StateDirName
	}
	return filepath.Join(home, StateDirName)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	return homedir.Expand(path)
}
