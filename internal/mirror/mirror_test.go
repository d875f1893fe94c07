package mirror

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bolasblack/dirsync/internal/fingerprint"
)

type recorder struct {
	events []Event
}

func (r *recorder) Log(e Event) {
	r.events = append(r.events, e)
}

// trace renders events as "kind path" lines for order-sensitive assertions.
func (r *recorder) trace() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind.String()+" "+e.Path)
	}
	return out
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

// snapshot maps every entry below root to its content, or "/" for directories.
func snapshot(t *testing.T, fs afero.Fs, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		rel, _ := filepath.Rel(root, path)
		if rel == "." {
			return nil
		}
		if info.IsDir() {
			out[filepath.ToSlash(rel)] = "/"
			return nil
		}
		out[filepath.ToSlash(rel)] = readFile(t, fs, path)
		return nil
	})
	require.NoError(t, err)
	return out
}

func newSource(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/a.txt", "hello")
	writeFile(t, fs, "/src/sub/b.txt", "x")
	return fs
}

func TestReconcile_EmptyReplica(t *testing.T) {
	fs := newSource(t)
	rec := &recorder{}

	report, err := Reconcile(fs, "/src", "/dst", rec)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"replica-root-created .",
		"file-copied a.txt",
		"dir-created sub",
		"file-copied sub/b.txt",
	}, rec.trace())
	assert.Equal(t, snapshot(t, fs, "/src"), snapshot(t, fs, "/dst"))

	assert.Equal(t, 2, report.DirsCreated)
	assert.Equal(t, 2, report.FilesCopied)
	assert.Equal(t, int64(len("hello")+len("x")), report.BytesCopied)
	assert.Empty(t, report.Errors)
	assert.NotEmpty(t, report.ID)
}

func TestReconcile_ChangedFileIsUpdated(t *testing.T) {
	fs := newSource(t)
	_, err := Reconcile(fs, "/src", "/dst", nil)
	require.NoError(t, err)

	writeFile(t, fs, "/src/a.txt", "hello, world")
	rec := &recorder{}
	report, err := Reconcile(fs, "/src", "/dst", rec)
	require.NoError(t, err)

	assert.Equal(t, []string{"file-updated a.txt"}, rec.trace())
	assert.Equal(t, "hello, world", readFile(t, fs, "/dst/a.txt"))
	assert.Equal(t, 1, report.FilesUpdated)
}

func TestReconcile_ExtraneousEntriesArePruned(t *testing.T) {
	fs := newSource(t)
	_, err := Reconcile(fs, "/src", "/dst", nil)
	require.NoError(t, err)

	writeFile(t, fs, "/dst/old.txt", "stale")
	writeFile(t, fs, "/dst/olddir/deep/c.txt", "stale")
	rec := &recorder{}
	report, err := Reconcile(fs, "/src", "/dst", rec)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"file-removed old.txt",
		"dir-removed olddir",
	}, rec.trace())
	assert.Equal(t, snapshot(t, fs, "/src"), snapshot(t, fs, "/dst"))
	assert.Equal(t, 1, report.FilesRemoved)
	assert.Equal(t, 1, report.DirsRemoved)
}

func TestReconcile_LeftoverTempFilesAreDiscarded(t *testing.T) {
	fs := newSource(t)
	_, err := Reconcile(fs, "/src", "/dst", nil)
	require.NoError(t, err)

	leftover := tempPath("/dst/sub/b.txt")
	writeFile(t, fs, leftover, "partial")
	writeFile(t, fs, "/dst/.notes.dirsync-backup.tmp", "user data")

	dry := &recorder{}
	_, err = Reconcile(fs, "/src", "/dst", dry, WithDryRun())
	require.NoError(t, err)
	assert.Equal(t, []string{"file-removed .notes.dirsync-backup.tmp"}, dry.trace())

	rec := &recorder{}
	report, err := Reconcile(fs, "/src", "/dst", rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"file-removed .notes.dirsync-backup.tmp"}, rec.trace(),
		"only the look-alike user file is reported")
	assert.Equal(t, 1, report.FilesRemoved)
	assert.Equal(t, snapshot(t, fs, "/src"), snapshot(t, fs, "/dst"))
}

func TestIsTempName(t *testing.T) {
	assert.True(t, isTempName(filepath.Base(tempPath("/dst/a.txt"))))
	assert.True(t, isTempName(".archive.tar.gz.dirsync-0a1b2c3d.tmp"))
	assert.False(t, isTempName("a.txt"))
	assert.False(t, isTempName(".a.txt.dirsync-XYZ.tmp"))
	assert.False(t, isTempName("a.txt.dirsync-0a1b2c3d.tmp"))
}

func TestReconcile_SecondPassIsSilent(t *testing.T) {
	fs := newSource(t)
	_, err := Reconcile(fs, "/src", "/dst", nil)
	require.NoError(t, err)

	rec := &recorder{}
	report, err := Reconcile(fs, "/src", "/dst", rec)
	require.NoError(t, err)
	assert.Empty(t, rec.events)
	assert.Zero(t, report.Changes())
}

func TestReconcile_ConvergesFromArbitraryReplica(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/keep.txt", "same")
	writeFile(t, fs, "/src/change.txt", "new")
	writeFile(t, fs, "/src/a/b/c/deep.txt", "deep")
	require.NoError(t, fs.MkdirAll("/src/empty", 0o755))

	writeFile(t, fs, "/dst/keep.txt", "same")
	writeFile(t, fs, "/dst/change.txt", "old")
	writeFile(t, fs, "/dst/a/b/extra.txt", "extra")
	writeFile(t, fs, "/dst/gone/x.txt", "x")

	before := snapshot(t, fs, "/src")
	_, err := Reconcile(fs, "/src", "/dst", nil)
	require.NoError(t, err)

	assert.Equal(t, before, snapshot(t, fs, "/src"), "source must not change")
	assert.Equal(t, before, snapshot(t, fs, "/dst"))

	rec := &recorder{}
	_, err = Reconcile(fs, "/src", "/dst", rec)
	require.NoError(t, err)
	assert.Empty(t, rec.events)
}

func TestReconcile_ContentComparisonIgnoresMetadata(t *testing.T) {
	fs := newSource(t)
	_, err := Reconcile(fs, "/src", "/dst", nil)
	require.NoError(t, err)

	require.NoError(t, fs.Chmod("/dst/a.txt", 0o600))
	old := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/dst/a.txt", old, old))

	rec := &recorder{}
	_, err = Reconcile(fs, "/src", "/dst", rec)
	require.NoError(t, err)
	assert.Empty(t, rec.events)
}

func TestReconcile_MetadataSync(t *testing.T) {
	fs := newSource(t)
	_, err := Reconcile(fs, "/src", "/dst", nil)
	require.NoError(t, err)

	require.NoError(t, fs.Chmod("/dst/a.txt", 0o600))
	rec := &recorder{}
	report, err := Reconcile(fs, "/src", "/dst", rec, WithMetadataSync())
	require.NoError(t, err)

	assert.Equal(t, []string{"metadata-updated a.txt"}, rec.trace())
	assert.Equal(t, 1, report.MetadataUpdated)
	info, err := fs.Stat("/dst/a.txt")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	rec = &recorder{}
	_, err = Reconcile(fs, "/src", "/dst", rec, WithMetadataSync())
	require.NoError(t, err)
	assert.Empty(t, rec.events)
}

func TestReconcile_CopyCarriesModeAndTime(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/run.sh", "#!/bin/sh\n")
	require.NoError(t, fs.Chmod("/src/run.sh", 0o755))
	mtime := time.Date(2020, 5, 17, 10, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/src/run.sh", mtime, mtime))

	_, err := Reconcile(fs, "/src", "/dst", nil)
	require.NoError(t, err)

	info, err := fs.Stat("/dst/run.sh")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(mtime))
}

func TestReconcile_KindMismatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/x/f.txt", "f")
	writeFile(t, fs, "/src/y", "y")
	writeFile(t, fs, "/dst/x", "was a file")
	writeFile(t, fs, "/dst/y/inner.txt", "was a dir")

	rec := &recorder{}
	_, err := Reconcile(fs, "/src", "/dst", rec)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"file-removed x",
		"dir-created x",
		"file-copied x/f.txt",
		"dir-removed y",
		"file-copied y",
	}, rec.trace())
	assert.Equal(t, snapshot(t, fs, "/src"), snapshot(t, fs, "/dst"))
}

func TestReconcile_IgnoreList(t *testing.T) {
	fs := newSource(t)
	writeFile(t, fs, "/src/debug.log", "noise")
	writeFile(t, fs, "/src/cache/blob", "noise")
	writeFile(t, fs, "/dst/keep.log", "replica only")

	rec := &recorder{}
	_, err := Reconcile(fs, "/src", "/dst", rec, WithIgnore(NewIgnoreList("*.log", "cache/")))
	require.NoError(t, err)

	got := snapshot(t, fs, "/dst")
	assert.Equal(t, map[string]string{
		"a.txt":     "hello",
		"sub":       "/",
		"sub/b.txt": "x",
		"keep.log":  "replica only",
	}, got)
}

func TestReconcile_DryRun(t *testing.T) {
	t.Run("missing replica root", func(t *testing.T) {
		fs := newSource(t)
		rec := &recorder{}
		report, err := Reconcile(fs, "/src", "/dst", rec, WithDryRun())
		require.NoError(t, err)

		assert.Equal(t, []string{
			"replica-root-created .",
			"file-copied a.txt",
			"dir-created sub",
			"file-copied sub/b.txt",
		}, rec.trace())
		for _, e := range rec.events {
			assert.True(t, e.DryRun)
			assert.True(t, strings.HasPrefix(e.Message(), "Would have "), e.Message())
		}
		assert.True(t, report.DryRun)

		exists, err := afero.Exists(fs, "/dst")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("existing replica", func(t *testing.T) {
		fs := newSource(t)
		_, err := Reconcile(fs, "/src", "/dst", nil)
		require.NoError(t, err)
		writeFile(t, fs, "/src/a.txt", "changed")
		writeFile(t, fs, "/dst/extra/e.txt", "e")
		require.NoError(t, fs.Remove("/dst/sub/b.txt"))
		writeFile(t, fs, "/dst/sub/b.txt/inner", "now a dir")
		before := snapshot(t, fs, "/dst")

		rec := &recorder{}
		_, err = Reconcile(fs, "/src", "/dst", rec, WithDryRun())
		require.NoError(t, err)

		assert.Equal(t, []string{
			"file-updated a.txt",
			"dir-removed sub/b.txt",
			"file-copied sub/b.txt",
			"dir-removed extra",
		}, rec.trace(), "entries reported in propagate are not reported again by prune")
		assert.Equal(t, before, snapshot(t, fs, "/dst"))
	})
}

func TestReconcile_RootErrors(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		rec := &recorder{}
		report, err := Reconcile(fs, "/nope", "/dst", rec)
		require.Error(t, err)
		require.NotNil(t, report)

		var rootErr *RootUnavailableError
		require.ErrorAs(t, err, &rootErr)
		assert.Equal(t, "source", rootErr.Role)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, []string{"root-failed ."}, rec.trace())

		exists, _ := afero.Exists(fs, "/dst")
		assert.False(t, exists, "replica must not be created when the source is unusable")
	})

	t.Run("source is a file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/src", "not a dir")
		_, err := Reconcile(fs, "/src", "/dst", nil)
		var rootErr *RootUnavailableError
		require.ErrorAs(t, err, &rootErr)
		assert.Equal(t, "source", rootErr.Role)
	})

	t.Run("replica is a file", func(t *testing.T) {
		fs := newSource(t)
		writeFile(t, fs, "/dst", "not a dir")
		_, err := Reconcile(fs, "/src", "/dst", nil)
		var rootErr *RootUnavailableError
		require.ErrorAs(t, err, &rootErr)
		assert.Equal(t, "replica", rootErr.Role)
		assert.Equal(t, "not a dir", readFile(t, fs, "/dst"))
	})

	t.Run("overlapping roots", func(t *testing.T) {
		fs := newSource(t)
		for _, replica := range []string{"/src", "/src/sub/mirror", "/"} {
			_, err := Reconcile(fs, "/src", replica, nil)
			assert.ErrorIs(t, err, ErrOverlappingRoots, replica)
		}
		exists, _ := afero.Exists(fs, "/src/sub/mirror")
		assert.False(t, exists)
	})
}

func TestRootsOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"/data/src", "/data/src", true},
		{"/data/src", "/data/src/replica", true},
		{"/data/src/replica", "/data/src", true},
		{"/data/src", "/data/srcreplica", false},
		{"/data/src", "/data/replica", false},
		{"/data/src/", "/data/src", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RootsOverlap(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

// failingFs fails Open for a single path.
type failingFs struct {
	afero.Fs
	path string
}

var errInjected = errors.New("injected failure")

func (f *failingFs) Open(name string) (afero.File, error) {
	if name == f.path {
		return nil, &os.PathError{Op: "open", Path: name, Err: errInjected}
	}
	return f.Fs.Open(name)
}

func TestReconcile_EntryErrorDoesNotAbortPass(t *testing.T) {
	t.Run("copy", func(t *testing.T) {
		mem := afero.NewMemMapFs()
		writeFile(t, mem, "/src/a.txt", "a")
		writeFile(t, mem, "/src/bad.txt", "bad")
		writeFile(t, mem, "/src/c.txt", "c")
		fs := &failingFs{Fs: mem, path: "/src/bad.txt"}

		rec := &recorder{}
		report, err := Reconcile(fs, "/src", "/dst", rec)
		require.NoError(t, err)

		assert.Equal(t, []string{
			"replica-root-created .",
			"file-copied a.txt",
			"entry-failed bad.txt",
			"file-copied c.txt",
		}, rec.trace())
		require.Len(t, report.Errors, 1)
		assert.Equal(t, "copy", report.Errors[0].Op)
		assert.ErrorIs(t, report.Errors[0], errInjected)

		exists, _ := afero.Exists(mem, "/dst/bad.txt")
		assert.False(t, exists)
		names, err := afero.ReadDir(mem, "/dst")
		require.NoError(t, err)
		assert.Len(t, names, 2, "no temp file may be left behind")
	})

	t.Run("fingerprint", func(t *testing.T) {
		mem := afero.NewMemMapFs()
		writeFile(t, mem, "/src/bad.txt", "new")
		writeFile(t, mem, "/dst/bad.txt", "old")
		fs := &failingFs{Fs: mem, path: "/src/bad.txt"}

		report, err := Reconcile(fs, "/src", "/dst", nil)
		require.NoError(t, err)
		require.Len(t, report.Errors, 1)
		assert.Equal(t, "fingerprint", report.Errors[0].Op)

		var fpErr *fingerprint.Error
		require.ErrorAs(t, report.Errors[0], &fpErr)
		assert.Equal(t, "/src/bad.txt", fpErr.Path)
		assert.Equal(t, "old", readFile(t, mem, "/dst/bad.txt"))
	})
}

func TestReconcile_Clock(t *testing.T) {
	fs := newSource(t)
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{start, start.Add(1500 * time.Millisecond)}
	clock := func() time.Time {
		now := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return now
	}

	report, err := Reconcile(fs, "/src", "/dst", nil, WithClock(clock))
	require.NoError(t, err)
	assert.Equal(t, start, report.StartedAt)
	assert.Equal(t, 1500*time.Millisecond, report.Duration)
}

func TestReconcile_ByteVerification(t *testing.T) {
	fs := newSource(t)
	rec := &recorder{}
	_, err := Reconcile(fs, "/src", "/dst", rec, WithByteVerification())
	require.NoError(t, err)
	assert.Equal(t, snapshot(t, fs, "/src"), snapshot(t, fs, "/dst"))

	rec = &recorder{}
	_, err = Reconcile(fs, "/src", "/dst", rec, WithByteVerification())
	require.NoError(t, err)
	assert.Empty(t, rec.events)
}

func TestReconcile_Symlinks(t *testing.T) {
	root := t.TempDir()
	src, dst := filepath.Join(root, "src"), filepath.Join(root, "dst")
	fs := afero.NewOsFs()
	writeFile(t, fs, filepath.Join(src, "real.txt"), "real")
	require.NoError(t, fs.MkdirAll(filepath.Join(src, "dir"), 0o755))
	require.NoError(t, os.Symlink("real.txt", filepath.Join(src, "link.txt")))
	require.NoError(t, os.Symlink("missing.txt", filepath.Join(src, "dangling")))
	require.NoError(t, os.Symlink("dir", filepath.Join(src, "dirlink")))

	_, err := Reconcile(fs, src, dst, nil)
	require.NoError(t, err)

	info, err := os.Lstat(filepath.Join(dst, "link.txt"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular(), "a link to a file is mirrored as a regular file")
	assert.Equal(t, "real", readFile(t, fs, filepath.Join(dst, "link.txt")))

	for _, name := range []string{"dangling", "dirlink"} {
		_, err := os.Lstat(filepath.Join(dst, name))
		assert.True(t, os.IsNotExist(err), name)
	}

	rec := &recorder{}
	_, err = Reconcile(fs, src, dst, rec)
	require.NoError(t, err)
	assert.Empty(t, rec.events)
}

func TestReconcile_SymlinkedRoots(t *testing.T) {
	fs := afero.NewOsFs()

	t.Run("source root is a link", func(t *testing.T) {
		root := t.TempDir()
		target, link, dst := filepath.Join(root, "target"), filepath.Join(root, "link"), filepath.Join(root, "dst")
		writeFile(t, fs, filepath.Join(target, "a.txt"), "hello")
		require.NoError(t, os.Symlink(target, link))

		rec := &recorder{}
		_, err := Reconcile(fs, link, dst, rec)
		require.NoError(t, err)
		assert.Equal(t, []string{"replica-root-created .", "file-copied a.txt"}, rec.trace())
		assert.Equal(t, "hello", readFile(t, fs, filepath.Join(dst, "a.txt")))
	})

	t.Run("replica root is a link", func(t *testing.T) {
		root := t.TempDir()
		src, target, link := filepath.Join(root, "src"), filepath.Join(root, "target"), filepath.Join(root, "link")
		writeFile(t, fs, filepath.Join(src, "a.txt"), "hello")
		writeFile(t, fs, filepath.Join(target, "stale.txt"), "old")
		require.NoError(t, os.Symlink(target, link))

		rec := &recorder{}
		_, err := Reconcile(fs, src, link, rec)
		require.NoError(t, err)
		assert.Equal(t, []string{"file-copied a.txt", "file-removed stale.txt"}, rec.trace())
		_, err = os.Lstat(filepath.Join(target, "stale.txt"))
		assert.True(t, os.IsNotExist(err))
		info, err := os.Lstat(link)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&os.ModeSymlink, "the link itself is kept")
	})

	t.Run("replica linked into the source overlaps", func(t *testing.T) {
		root := t.TempDir()
		src, link := filepath.Join(root, "src"), filepath.Join(root, "link")
		require.NoError(t, fs.MkdirAll(filepath.Join(src, "inner"), 0o755))
		require.NoError(t, os.Symlink(filepath.Join(src, "inner"), link))

		_, err := Reconcile(fs, src, link, nil)
		assert.ErrorIs(t, err, ErrOverlappingRoots)
	})

	t.Run("missing replica under a linked parent", func(t *testing.T) {
		root := t.TempDir()
		src, parent := filepath.Join(root, "src"), filepath.Join(root, "parent")
		writeFile(t, fs, filepath.Join(src, "a.txt"), "hello")
		require.NoError(t, os.Symlink(src, parent))

		_, err := Reconcile(fs, src, filepath.Join(parent, "backup"), nil)
		assert.ErrorIs(t, err, ErrOverlappingRoots)
		_, statErr := os.Lstat(filepath.Join(src, "backup"))
		assert.True(t, os.IsNotExist(statErr), "nothing is created inside the source")
	})
}

func TestWithin(t *testing.T) {
	assert.True(t, Within("/backup", "/backup"))
	assert.True(t, Within("/backup", "/backup/logs/sync.log"))
	assert.True(t, Within("/backup/", "/backup/x/../sync.log"))
	assert.False(t, Within("/backup", "/backup.log"))
	assert.False(t, Within("/backup/logs", "/backup"))
}
