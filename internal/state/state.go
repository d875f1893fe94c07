// Package state keeps a small status file per replica recording the outcome
// of the latest reconciliation pass, and the lock that keeps two dirsync
// processes from writing the same replica.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/bolasblack/dirsync/internal/fingerprint"
	"github.com/bolasblack/dirsync/internal/mirror"
	"github.com/bolasblack/dirsync/internal/util"
)

const (
	// StateFileSuffix is appended to the replica ID to name its status file.
	StateFileSuffix = ".json"
	// LockFileSuffix is appended to the replica ID to name its lock file.
	LockFileSuffix = ".lock"
	// replicaIDLength is the number of hex characters kept from the fingerprint.
	replicaIDLength = 12
)

// State is the persistent status of one replica.
type State struct {
	// InstanceID identifies this replica's history; it is regenerated only
	// when the status file is deleted.
	InstanceID string    `json:"instance_id"`
	Source     string    `json:"source"`
	Replica    string    `json:"replica"`
	CreatedAt  time.Time `json:"created_at"`
	// Passes counts every recorded pass, including aborted ones.
	Passes   int         `json:"passes"`
	LastPass *PassRecord `json:"last_pass,omitempty"`
}

// ReplicaID derives a short stable identifier from the replica's absolute path.
func ReplicaID(replica string) string {
	if abs, err := filepath.Abs(replica); err == nil {
		replica = abs
	}
	return fingerprint.OfBytes([]byte(replica)).String()[:replicaIDLength]
}

// StateFilePath returns the path of the status file for replica.
func StateFilePath(stateDir, replica string) string {
	return filepath.Join(stateDir, ReplicaID(replica)+StateFileSuffix)
}

// LockFilePath returns the path of the lock file for replica.
func LockFilePath(stateDir, replica string) string {
	return filepath.Join(stateDir, ReplicaID(replica)+LockFileSuffix)
}

// Load reads the status file of replica.
// Returns nil and no error if the status file does not exist.
func Load(env *util.Env, stateDir, replica string) (*State, error) {
	data, err := afero.ReadFile(env.Fs, StateFilePath(stateDir, replica))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return &state, nil
}

// Save writes the status file, creating stateDir if needed.
func Save(env *util.Env, stateDir string, state *State) error {
	if err := env.Fs.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := afero.WriteFile(env.Fs, StateFilePath(stateDir, state.Replica), data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// LoadOrCreate loads the status file of replica, or creates and saves a new
// one. The boolean reports whether the state was created.
func LoadOrCreate(env *util.Env, stateDir, source, replica string) (*State, bool, error) {
	state, err := Load(env, stateDir, replica)
	if err != nil {
		return nil, false, err
	}
	if state != nil {
		return state, false, nil
	}

	state = &State{
		InstanceID: uuid.New().String(),
		Source:     source,
		Replica:    replica,
		CreatedAt:  time.Now(),
	}
	if err := Save(env, stateDir, state); err != nil {
		return nil, true, err
	}
	return state, true, nil
}

// Record stores the outcome of a pass as the latest one.
func (s *State) Record(report *mirror.Report, passErr error) {
	s.Passes++
	s.LastPass = NewPassRecord(report, passErr)
}

// SourceDrift describes a replica that is now fed from a different source
// than the one it was first mirrored from.
type SourceDrift struct {
	Old string
	New string
}

func (d *SourceDrift) String() string {
	return fmt.Sprintf("replica was previously mirrored from %s, now from %s", d.Old, d.New)
}

// DetectSourceDrift compares the recorded source with the given one.
// Returns nil when they match.
func (s *State) DetectSourceDrift(source string) *SourceDrift {
	if s.Source == "" || filepath.Clean(s.Source) == filepath.Clean(source) {
		return nil
	}
	return &SourceDrift{Old: s.Source, New: source}
}

// UpdateSource records the source the replica is now fed from.
func (s *State) UpdateSource(source string) {
	s.Source = source
}
