// Package mirror reconciles a replica directory tree with a source tree.
//
// A pass has two phases that always run in this order:
//   - propagate walks the source and creates or overwrites whatever the
//     replica is missing or holds with different content
//   - prune walks the replica and removes whatever has no source counterpart
//
// Every mutation is reported to a Logger as an Event. A failure on one entry
// is reported and skipped; only an unusable root aborts the pass.
// A Reconciler keeps no state between passes.
package mirror

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/bolasblack/dirsync/internal/fingerprint"
)

// Reconciler mirrors a source tree onto a replica tree on one filesystem.
type Reconciler struct {
	fs           afero.Fs
	logger       Logger
	ignore       Matcher
	verifyBytes  bool
	syncMetadata bool
	dryRun       bool
	now          func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithIgnore excludes matching relative paths from both phases.
func WithIgnore(m Matcher) Option {
	return func(r *Reconciler) {
		r.ignore = m
	}
}

// WithByteVerification compares files byte for byte after their
// fingerprints match.
func WithByteVerification() Option {
	return func(r *Reconciler) {
		r.verifyBytes = true
	}
}

// WithMetadataSync reapplies mode bits and modification time to replica
// files whose content already matches but whose metadata drifted.
func WithMetadataSync() Option {
	return func(r *Reconciler) {
		r.syncMetadata = true
	}
}

// WithDryRun reports what a pass would do without touching the replica.
func WithDryRun() Option {
	return func(r *Reconciler) {
		r.dryRun = true
	}
}

// WithClock overrides the time source used for reports.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// New creates a Reconciler. A nil logger discards events.
func New(fs afero.Fs, logger Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = discard
	}
	r := &Reconciler{
		fs:     fs,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs a single pass with a Reconciler built from the arguments.
func Reconcile(fs afero.Fs, sourceRoot, replicaRoot string, logger Logger, opts ...Option) (*Report, error) {
	return New(fs, logger, opts...).Reconcile(sourceRoot, replicaRoot)
}

// Reconcile brings replicaRoot into content equivalence with sourceRoot.
// The source is never modified.
//
// The returned Report is never nil. The error is non-nil only when a root is
// unusable, in which case it is a *RootUnavailableError; failures on single
// entries are listed in Report.Errors instead.
func (r *Reconciler) Reconcile(sourceRoot, replicaRoot string) (*Report, error) {
	p := &pass{
		Reconciler: r,
		cmp:        r.comparator(),
		removed:    map[string]bool{},
		report: &Report{
			ID:        uuid.NewString(),
			StartedAt: r.now(),
			DryRun:    r.dryRun,
		},
	}
	defer func() {
		p.report.Duration = r.now().Sub(p.report.StartedAt)
	}()

	if err := p.resolveRoots(sourceRoot, replicaRoot); err != nil {
		return p.report, p.abort(err)
	}
	if err := p.checkSourceRoot(); err != nil {
		return p.report, p.abort(err)
	}
	replicaExists, err := p.prepareReplicaRoot()
	if err != nil {
		return p.report, p.abort(err)
	}

	p.propagate()
	if replicaExists || !r.dryRun {
		p.prune()
	}
	return p.report, nil
}

func (r *Reconciler) comparator() *fingerprint.Comparator {
	if r.verifyBytes {
		return fingerprint.NewComparator(r.fs, fingerprint.WithByteVerification())
	}
	return fingerprint.NewComparator(r.fs)
}

// RootsOverlap reports whether one of the two cleaned paths contains the other.
func RootsOverlap(a, b string) bool {
	return Within(a, b) || Within(b, a)
}

// Within reports whether the cleaned path equals root or lies below it.
func Within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// pass holds the per-call state of one reconciliation.
type pass struct {
	*Reconciler
	cmp     *fingerprint.Comparator
	report  *Report
	source  string
	replica string
	// removed tracks entries a dry run reported as removed, so that prune
	// does not report them a second time.
	removed map[string]bool
}

func (p *pass) resolveRoots(sourceRoot, replicaRoot string) error {
	source, err := p.resolveRoot(sourceRoot)
	if err != nil {
		return &RootUnavailableError{Role: "source", Path: sourceRoot, Err: err}
	}
	replica, err := p.resolveRoot(replicaRoot)
	if err != nil {
		return &RootUnavailableError{Role: "replica", Path: replicaRoot, Err: err}
	}
	p.source, p.replica = source, replica

	if RootsOverlap(source, replica) {
		return &RootUnavailableError{Role: "replica", Path: replica, Err: ErrOverlappingRoots}
	}
	return nil
}

// resolveRoot returns the absolute path of a root with symlinks resolved, so
// that walks descend into a linked root and overlap is judged on the real
// locations. Only the OS filesystem has links to resolve. A root that does
// not exist yet keeps its name under its resolved parent.
func (p *pass) resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if _, ok := p.fs.(*afero.OsFs); !ok {
		return abs, nil
	}
	return evalSymlinks(abs)
}

func evalSymlinks(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !isNotExist(err) {
		return "", err
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	dir, err := evalSymlinks(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(path)), nil
}

func (p *pass) checkSourceRoot() error {
	info, err := p.fs.Stat(p.source)
	if err != nil {
		return &RootUnavailableError{Role: "source", Path: p.source, Err: err}
	}
	if !info.IsDir() {
		return &RootUnavailableError{Role: "source", Path: p.source, Err: errNotDir}
	}
	if err := p.checkListable(p.source); err != nil {
		return &RootUnavailableError{Role: "source", Path: p.source, Err: err}
	}
	return nil
}

// prepareReplicaRoot creates the replica root if needed. It reports whether
// the root exists once it returns (always true outside of dry runs).
func (p *pass) prepareReplicaRoot() (bool, error) {
	info, err := p.fs.Stat(p.replica)
	switch {
	case err == nil && !info.IsDir():
		return false, &RootUnavailableError{Role: "replica", Path: p.replica, Err: errNotDir}
	case err == nil:
		if err := p.checkListable(p.replica); err != nil {
			return false, &RootUnavailableError{Role: "replica", Path: p.replica, Err: err}
		}
		return true, nil
	case !isNotExist(err):
		return false, &RootUnavailableError{Role: "replica", Path: p.replica, Err: err}
	}

	ev := Event{Kind: ReplicaRootCreated, Path: ".", Source: p.source, Replica: p.replica}
	if p.dryRun {
		p.emit(ev)
		return false, nil
	}
	if err := p.fs.MkdirAll(p.replica, 0o755); err != nil {
		return false, &RootUnavailableError{Role: "replica", Path: p.replica, Err: err}
	}
	p.emit(ev)
	return true, nil
}

// checkListable opens a directory and reads one name from it.
func (p *pass) checkListable(dir string) error {
	f, err := p.fs.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && err != io.EOF {
		return err
	}
	return nil
}

var errNotDir = errors.New("not a directory")

func (p *pass) abort(err error) error {
	p.logger.Log(Event{Kind: RootFailed, Path: ".", Source: p.source, Replica: p.replica, Err: err, DryRun: p.dryRun})
	return err
}

func (p *pass) emit(ev Event) {
	ev.DryRun = p.dryRun
	p.report.count(ev.Kind)
	p.logger.Log(ev)
}

func (p *pass) fail(op, rel string, err error) {
	p.report.Errors = append(p.report.Errors, &EntryIOError{Op: op, Path: rel, Err: err})
	p.logger.Log(Event{
		Kind:    EntryFailed,
		Path:    rel,
		Source:  p.sourcePath(rel),
		Replica: p.replicaPath(rel),
		Op:      op,
		Err:     err,
		DryRun:  p.dryRun,
	})
}

func (p *pass) ignored(rel string, isDir bool) bool {
	if p.ignore == nil || rel == "." {
		return false
	}
	return p.ignore.MatchesPath(rel) || (isDir && p.ignore.MatchesPath(rel+"/"))
}

func (p *pass) sourcePath(rel string) string {
	return filepath.Join(p.source, filepath.FromSlash(rel))
}

func (p *pass) replicaPath(rel string) string {
	return filepath.Join(p.replica, filepath.FromSlash(rel))
}

// relPath maps an absolute path under root to its slash-separated identity.
func relPath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}
