// Package fingerprint computes content digests of files and uses them to
// decide whether two files hold the same bytes.
package fingerprint

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"
)

// chunkSize is the read size used when streaming a file through the hasher.
// Any size is correct; this one only affects throughput.
const chunkSize = 4096

// Fingerprint is the MD5 digest of a file's full content.
type Fingerprint [md5.Size]byte

// String returns the lowercase hex form of the digest.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// OfBytes returns the fingerprint of an in-memory value.
func OfBytes(b []byte) Fingerprint {
	return Fingerprint(md5.Sum(b))
}

// Error reports a file that could not be fully read for hashing.
type Error struct {
	Op   string // "open" or "read"
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fingerprint %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Comparator hashes files on a single filesystem.
type Comparator struct {
	fs          afero.Fs
	verifyBytes bool
	buffers     sync.Pool
}

// Option configures a Comparator.
type Option func(*Comparator)

// WithByteVerification makes Equal compare both files byte for byte after
// their fingerprints match.
func WithByteVerification() Option {
	return func(c *Comparator) {
		c.verifyBytes = true
	}
}

// NewComparator returns a Comparator reading from fs.
func NewComparator(fs afero.Fs, opts ...Option) *Comparator {
	c := &Comparator{fs: fs}
	c.buffers.New = func() any {
		buf := make([]byte, chunkSize)
		return &buf
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sum is a convenience wrapper around NewComparator(fs).Sum(path).
func Sum(fs afero.Fs, path string) (Fingerprint, error) {
	return NewComparator(fs).Sum(path)
}

// Sum streams the file at path through MD5 and returns its fingerprint.
func (c *Comparator) Sum(path string) (Fingerprint, error) {
	f, err := c.fs.Open(path)
	if err != nil {
		return Fingerprint{}, &Error{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	bufp := c.buffers.Get().(*[]byte)
	defer c.buffers.Put(bufp)

	hasher := md5.New()
	if _, err := io.CopyBuffer(hasher, onlyReader{f}, *bufp); err != nil {
		return Fingerprint{}, &Error{Op: "read", Path: path, Err: err}
	}

	var sum Fingerprint
	copy(sum[:], hasher.Sum(nil))
	return sum, nil
}

// Equal reports whether the files at a and b both exist and have the same
// fingerprint. A missing file is not an error; it simply makes the files
// unequal.
func (c *Comparator) Equal(a, b string) (bool, error) {
	sumA, err := c.Sum(a)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	sumB, err := c.Sum(b)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if sumA != sumB {
		return false, nil
	}
	if !c.verifyBytes {
		return true, nil
	}
	return c.sameBytes(a, b)
}

// sameBytes compares two files chunk by chunk.
func (c *Comparator) sameBytes(a, b string) (bool, error) {
	fa, err := c.fs.Open(a)
	if err != nil {
		return false, &Error{Op: "open", Path: a, Err: err}
	}
	defer fa.Close()

	fb, err := c.fs.Open(b)
	if err != nil {
		return false, &Error{Op: "open", Path: b, Err: err}
	}
	defer fb.Close()

	bufA := make([]byte, chunkSize)
	bufB := make([]byte, chunkSize)
	for {
		na, errA := io.ReadFull(fa, bufA)
		if errA != nil && errA != io.EOF && errA != io.ErrUnexpectedEOF {
			return false, &Error{Op: "read", Path: a, Err: errA}
		}
		nb, errB := io.ReadFull(fb, bufB)
		if errB != nil && errB != io.EOF && errB != io.ErrUnexpectedEOF {
			return false, &Error{Op: "read", Path: b, Err: errB}
		}
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		// A short read means EOF on that side; equal lengths were just checked.
		if na < chunkSize {
			return true, nil
		}
	}
}

// onlyReader hides ReaderFrom/WriterTo so io.CopyBuffer actually uses the
// pooled buffer.
type onlyReader struct {
	io.Reader
}
