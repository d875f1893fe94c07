// Package journal records reconciliation events in an append-only log file
// and echoes them on the console.
package journal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/bolasblack/dirsync/internal/mirror"
)

// TimeLayout is the timestamp format of every journal line.
const TimeLayout = "2006-01-02 15:04:05"

// Journal appends one line per event to a log file:
//
//	[2024-03-01 12:00:00] Copied file: /src/a.txt -> /dst/a.txt
//
// The file is opened and closed for every line, so it can be rotated or
// removed between events.
type Journal struct {
	fs      afero.Fs
	path    string
	console *slog.Logger
	now     func() time.Time

	mu sync.Mutex
}

var _ mirror.Logger = (*Journal)(nil)

// Option configures a Journal.
type Option func(*Journal)

// WithConsole sets the logger events are echoed to. Defaults to slog.Default().
func WithConsole(l *slog.Logger) Option {
	return func(j *Journal) {
		j.console = l
	}
}

// WithClock overrides the time source for line timestamps.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// New returns a Journal writing to path on fs.
func New(fs afero.Fs, path string, opts ...Option) *Journal {
	j := &Journal{
		fs:   fs,
		path: path,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.console == nil {
		j.console = slog.Default()
	}
	return j
}

// Path returns the log file path.
func (j *Journal) Path() string {
	return j.path
}

// Log implements mirror.Logger. A failure to write the file is reported on
// the console.
func (j *Journal) Log(ev mirror.Event) {
	msg := ev.Message()
	if err := j.Append(msg); err != nil {
		j.console.Error("failed to write log file", "path", j.path, "error", err)
	}

	attrs := []any{"path", ev.Path, "kind", ev.Kind.String()}
	if ev.Kind.IsError() {
		j.console.Error(msg, attrs...)
		return
	}
	j.console.Info(msg, attrs...)
}

// Append writes a single timestamped line.
func (j *Journal) Append(msg string) error {
	line := fmt.Sprintf("[%s] %s\n", j.now().Format(TimeLayout), msg)

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := j.open()
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("write log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

// Check makes sure the log file can be opened for appending, creating it
// and its parent directory if needed.
func (j *Journal) Check() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := j.open()
	if err != nil {
		return err
	}
	return f.Close()
}

func (j *Journal) open() (afero.File, error) {
	if err := j.fs.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := j.fs.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
