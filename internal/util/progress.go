// Package util provides shared helpers for the CLI and the sync engine.
package util

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

// Progress writes a progress message if w is not nil.
func Progress(w io.Writer, format string, args ...any) {
	if w != nil {
		_, _ = fmt.Fprintf(w, format, args...)
	}
}

// ProgressStep writes a progress message with → prefix (step in progress).
func ProgressStep(w io.Writer, format string, args ...any) {
	Progress(w, "→ "+format, args...)
}

// ProgressDone writes a progress message with ✓ prefix (step completed).
func ProgressDone(w io.Writer, format string, args ...any) {
	Progress(w, "✓ "+format, args...)
}

// ProgressWarn writes a progress message with ! prefix (step finished with problems).
func ProgressWarn(w io.Writer, format string, args ...any) {
	Progress(w, "! "+format, args...)
}

// Count formats n with the singular or plural form of a noun, e.g. "1 file", "3 files".
func Count(n int, singular, plural string) string {
	return english.Plural(n, singular, plural)
}

// Bytes formats a byte count for humans, e.g. "1.2 MB".
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
