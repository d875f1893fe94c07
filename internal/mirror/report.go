package mirror

import "time"

// Report summarizes one pass.
type Report struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool

	DirsCreated     int
	FilesCopied     int
	FilesUpdated    int
	MetadataUpdated int
	DirsRemoved     int
	FilesRemoved    int
	BytesCopied     int64

	Errors []*EntryIOError
}

// Changes returns the number of mutations the pass made (or would have made,
// for a dry run).
func (r *Report) Changes() int {
	if r == nil {
		return 0
	}
	return r.DirsCreated + r.FilesCopied + r.FilesUpdated + r.MetadataUpdated +
		r.DirsRemoved + r.FilesRemoved
}

// count updates the counter matching a successful event.
func (r *Report) count(kind EventKind) {
	switch kind {
	case ReplicaRootCreated, DirCreated:
		r.DirsCreated++
	case FileCopied:
		r.FilesCopied++
	case FileUpdated:
		r.FilesUpdated++
	case MetadataUpdated:
		r.MetadataUpdated++
	case DirRemoved:
		r.DirsRemoved++
	case FileRemoved:
		r.FilesRemoved++
	}
}
