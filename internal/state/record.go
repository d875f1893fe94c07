package state

import (
	"time"

	"github.com/bolasblack/dirsync/internal/mirror"
)

// PassRecord is the persisted summary of one pass.
type PassRecord struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	DryRun    bool          `json:"dry_run,omitempty"`

	DirsCreated     int   `json:"dirs_created"`
	FilesCopied     int   `json:"files_copied"`
	FilesUpdated    int   `json:"files_updated"`
	MetadataUpdated int   `json:"metadata_updated,omitempty"`
	DirsRemoved     int   `json:"dirs_removed"`
	FilesRemoved    int   `json:"files_removed"`
	BytesCopied     int64 `json:"bytes_copied"`

	Errors []EntryFailure `json:"errors,omitempty"`
	// Aborted holds the reason a pass stopped before touching any entry.
	Aborted string `json:"aborted,omitempty"`
}

// EntryFailure is a persisted mirror.EntryIOError.
type EntryFailure struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

// NewPassRecord converts the result of mirror.Reconcile into a record.
// report may be nil when the pass never started.
func NewPassRecord(report *mirror.Report, passErr error) *PassRecord {
	rec := &PassRecord{}
	if passErr != nil {
		rec.Aborted = passErr.Error()
	}
	if report == nil {
		return rec
	}

	// Compile-time check: must match mirror.Report fields exactly.
	// If Report adds a field, this line fails to compile, forcing you to
	// decide whether the record should persist it.
	type fields struct {
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

		Errors []*mirror.EntryIOError
	}
	_ = fields(*report)

	rec.ID = report.ID
	rec.StartedAt = report.StartedAt
	rec.Duration = report.Duration
	rec.DryRun = report.DryRun
	rec.DirsCreated = report.DirsCreated
	rec.FilesCopied = report.FilesCopied
	rec.FilesUpdated = report.FilesUpdated
	rec.MetadataUpdated = report.MetadataUpdated
	rec.DirsRemoved = report.DirsRemoved
	rec.FilesRemoved = report.FilesRemoved
	rec.BytesCopied = report.BytesCopied
	for _, e := range report.Errors {
		failure := EntryFailure{Op: e.Op, Path: e.Path}
		if e.Err != nil {
			failure.Error = e.Err.Error()
		}
		rec.Errors = append(rec.Errors, failure)
	}
	return rec
}

// Changes returns the number of entries the pass changed.
func (r *PassRecord) Changes() int {
	if r == nil {
		return 0
	}
	return r.DirsCreated + r.FilesCopied + r.FilesUpdated + r.MetadataUpdated +
		r.DirsRemoved + r.FilesRemoved
}

// Failed reports whether the pass was aborted or skipped any entry.
func (r *PassRecord) Failed() bool {
	return r != nil && (r.Aborted != "" || len(r.Errors) > 0)
}
