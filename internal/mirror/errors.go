package mirror

import (
	"errors"
	"fmt"
)

// ErrOverlappingRoots is returned when one root is nested inside the other.
// Mirroring such a pair would copy the replica into itself.
var ErrOverlappingRoots = errors.New("source and replica roots overlap")

// RootUnavailableError aborts a pass: one of the roots could not be used at
// all. The filesystem is left as it was; the next pass retries.
type RootUnavailableError struct {
	Role string // "source" or "replica"
	Path string
	Err  error
}

func (e *RootUnavailableError) Error() string {
	return fmt.Sprintf("%s root %s unavailable: %v", e.Role, e.Path, e.Err)
}

func (e *RootUnavailableError) Unwrap() error {
	return e.Err
}

// EntryIOError reports a failure on a single file or directory. The entry is
// skipped and the pass continues.
type EntryIOError struct {
	Op   string // e.g. "copy", "mkdir", "remove", "fingerprint", "walk"
	Path string // relative, slash-separated
	Err  error
}

func (e *EntryIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *EntryIOError) Unwrap() error {
	return e.Err
}
