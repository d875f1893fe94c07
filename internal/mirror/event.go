package mirror

import (
	"fmt"
	"strings"
)

// EventKind identifies what a reconciliation pass did to one entry.
type EventKind int

const (
	// ReplicaRootCreated indicates the replica root did not exist and was created.
	ReplicaRootCreated EventKind = iota
	// DirCreated indicates a replica directory was created.
	DirCreated
	// FileCopied indicates a file was copied to a replica path that had none.
	FileCopied
	// FileUpdated indicates an existing replica file was overwritten with new content.
	FileUpdated
	// MetadataUpdated indicates only mode bits or modification time were reapplied.
	MetadataUpdated
	// DirRemoved indicates a replica directory and its subtree were removed.
	DirRemoved
	// FileRemoved indicates a replica file was removed.
	FileRemoved
	// EntryFailed indicates an operation on a single entry failed and was skipped.
	EntryFailed
	// RootFailed indicates a root was unavailable and the pass was aborted.
	RootFailed
)

// String returns a human-readable string for the event kind.
func (k EventKind) String() string {
	switch k {
	case ReplicaRootCreated:
		return "replica-root-created"
	case DirCreated:
		return "dir-created"
	case FileCopied:
		return "file-copied"
	case FileUpdated:
		return "file-updated"
	case MetadataUpdated:
		return "metadata-updated"
	case DirRemoved:
		return "dir-removed"
	case FileRemoved:
		return "file-removed"
	case EntryFailed:
		return "entry-failed"
	case RootFailed:
		return "root-failed"
	default:
		return "unknown"
	}
}

// IsError reports whether the kind describes a failure.
func (k EventKind) IsError() bool {
	return k == EntryFailed || k == RootFailed
}

// Event is a single change (or failure) reported by a pass.
type Event struct {
	Kind EventKind
	// Path is relative to the roots and slash-separated. "." is the root itself.
	Path string
	// Source and Replica are the absolute paths involved, when applicable.
	Source  string
	Replica string
	// Op names the failed operation for EntryFailed events.
	Op     string
	Err    error
	DryRun bool
}

// Message renders the event as a single log line body.
func (e Event) Message() string {
	var msg string
	switch e.Kind {
	case ReplicaRootCreated:
		msg = fmt.Sprintf("Created replica folder: %s", e.Replica)
	case DirCreated:
		msg = fmt.Sprintf("Created folder: %s", e.Replica)
	case FileCopied:
		msg = fmt.Sprintf("Copied file: %s -> %s", e.Source, e.Replica)
	case FileUpdated:
		msg = fmt.Sprintf("Updated file: %s -> %s", e.Source, e.Replica)
	case MetadataUpdated:
		msg = fmt.Sprintf("Updated metadata: %s -> %s", e.Source, e.Replica)
	case DirRemoved:
		msg = fmt.Sprintf("Removed folder: %s", e.Replica)
	case FileRemoved:
		msg = fmt.Sprintf("Removed file: %s", e.Replica)
	case EntryFailed:
		return fmt.Sprintf("Error: %s %s: %v", e.Op, e.Path, e.Err)
	case RootFailed:
		return fmt.Sprintf("Error: pass aborted: %v", e.Err)
	default:
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	if e.DryRun {
		return "Would have " + lowerFirst(msg)
	}
	return msg
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// Logger receives the events of a pass, in the order they happen.
type Logger interface {
	Log(Event)
}

// LoggerFunc adapts a function to the Logger interface.
type LoggerFunc func(Event)

// Log calls f(e).
func (f LoggerFunc) Log(e Event) {
	f(e)
}

// discard is used when a Reconciler is built without a logger.
var discard = LoggerFunc(func(Event) {})
