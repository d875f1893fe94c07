package mirror

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/google/uuid"
)

var copyBuffers = sync.Pool{
	New: func() any {
		buf := make([]byte, 32*1024)
		return &buf
	},
}

// copyFile writes the content of src to dst through a temporary sibling and
// renames it into place, so dst never holds a partial copy. Mode bits and
// modification time are carried over on a best-effort basis.
func (p *pass) copyFile(src, dst string, srcInfo os.FileInfo) (int64, error) {
	in, err := p.fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp := tempPath(dst)
	out, err := p.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	bufp := copyBuffers.Get().(*[]byte)
	defer copyBuffers.Put(bufp)

	n, err := io.CopyBuffer(out, struct{ io.Reader }{in}, *bufp)
	if err != nil {
		out.Close()
		p.discardTemp(tmp)
		return 0, err
	}
	if err := out.Close(); err != nil {
		p.discardTemp(tmp)
		return 0, err
	}

	p.applyMetadata(tmp, srcInfo)

	if err := p.fs.Rename(tmp, dst); err != nil {
		p.discardTemp(tmp)
		return 0, fmt.Errorf("rename into place: %w", err)
	}
	return n, nil
}

func (p *pass) applyMetadata(path string, srcInfo os.FileInfo) {
	if err := p.fs.Chmod(path, srcInfo.Mode().Perm()); err != nil {
		slog.Debug("failed to copy mode bits", "path", path, "error", err)
	}
	if err := p.fs.Chtimes(path, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		slog.Debug("failed to copy modification time", "path", path, "error", err)
	}
}

func (p *pass) discardTemp(path string) {
	if err := p.fs.Remove(path); err != nil && !isNotExist(err) {
		slog.Warn("failed to remove temp file", "path", path, "error", err)
	}
}

// tempPath names a hidden sibling of dst. A leftover from an interrupted
// copy is discarded by the next prune.
func tempPath(dst string) string {
	name := fmt.Sprintf(".%s.dirsync-%s.tmp", filepath.Base(dst), uuid.NewString()[:8])
	return filepath.Join(filepath.Dir(dst), name)
}

var tempName = regexp.MustCompile(`^\..+\.dirsync-[0-9a-f]{8}\.tmp$`)

// isTempName reports whether a base name has the shape tempPath produces.
func isTempName(name string) bool {
	return tempName.MatchString(name)
}

// discardLeftover removes a temp file left in the replica by an interrupted
// copy. It is dirsync's own artifact, so it is not reported as a removal.
func (p *pass) discardLeftover(rel string) {
	target := p.replicaPath(rel)
	if p.dryRun {
		slog.Debug("would discard leftover temp file", "path", target)
		return
	}
	if err := p.fs.Remove(target); err != nil && !isNotExist(err) {
		p.fail("remove", rel, err)
		return
	}
	slog.Debug("discarded leftover temp file", "path", target)
}
