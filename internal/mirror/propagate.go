package mirror

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// propagate walks the source depth first in lexical order and makes sure
// every directory and file has an identical counterpart in the replica.
func (p *pass) propagate() {
	_ = afero.Walk(p.fs, p.source, func(path string, info os.FileInfo, err error) error {
		rel, relErr := relPath(p.source, path)
		if relErr != nil {
			p.fail("walk", path, relErr)
			return nil
		}
		if err != nil {
			p.fail("walk", rel, err)
			return nil
		}
		if rel == "." {
			return nil
		}
		if p.ignored(rel, info.IsDir()) {
			slog.Debug("ignoring source entry", "path", rel)
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		kind, srcInfo := kindOf(info), info
		if info.Mode()&os.ModeSymlink != 0 {
			kind, srcInfo, err = resolveLink(p.fs, path, info)
			if err != nil {
				p.fail("stat", rel, err)
				return nil
			}
		}

		switch kind {
		case kindDir:
			if !p.ensureDir(rel, srcInfo) {
				return filepath.SkipDir
			}
		case kindFile:
			p.syncFile(rel, srcInfo)
		default:
			slog.Debug("skipping unmirrored entry", "path", rel, "mode", srcInfo.Mode().String())
		}
		return nil
	})
}

// ensureDir makes the replica hold a directory at rel. It reports whether the
// walk should descend into the source directory.
func (p *pass) ensureDir(rel string, srcInfo os.FileInfo) bool {
	target := p.replicaPath(rel)
	info, err := lstat(p.fs, target)
	switch {
	case err == nil && info.IsDir():
		return true
	case err == nil:
		if !p.removeEntry(rel, FileRemoved) {
			return false
		}
	case !isNotExist(err):
		p.fail("stat", rel, err)
		return false
	}

	ev := Event{Kind: DirCreated, Path: rel, Source: p.sourcePath(rel), Replica: target}
	if p.dryRun {
		p.emit(ev)
		return true
	}
	if err := p.fs.MkdirAll(target, dirPerm(srcInfo)); err != nil {
		p.fail("mkdir", rel, err)
		return false
	}
	p.emit(ev)
	return true
}

// syncFile makes the replica file at rel content-identical to the source.
func (p *pass) syncFile(rel string, srcInfo os.FileInfo) {
	source, target := p.sourcePath(rel), p.replicaPath(rel)
	kind := FileCopied

	info, err := lstat(p.fs, target)
	switch {
	case isNotExist(err):
	case err != nil:
		p.fail("stat", rel, err)
		return
	case info.IsDir():
		if !p.removeEntry(rel, DirRemoved) {
			return
		}
	case !info.Mode().IsRegular():
		if !p.removeEntry(rel, FileRemoved) {
			return
		}
	default:
		same, err := p.cmp.Equal(source, target)
		if err != nil {
			p.fail("fingerprint", rel, err)
			return
		}
		if same {
			p.syncFileMetadata(rel, srcInfo, info)
			return
		}
		kind = FileUpdated
	}

	ev := Event{Kind: kind, Path: rel, Source: source, Replica: target}
	if p.dryRun {
		p.emit(ev)
		return
	}
	n, err := p.copyFile(source, target, srcInfo)
	if err != nil {
		p.fail("copy", rel, err)
		return
	}
	p.report.BytesCopied += n
	p.emit(ev)
}

// syncFileMetadata reapplies mode bits and modification time to a replica
// file whose content already matches. It does nothing unless metadata sync
// is enabled.
func (p *pass) syncFileMetadata(rel string, srcInfo, dstInfo os.FileInfo) {
	if !p.syncMetadata {
		return
	}
	modeDrift := srcInfo.Mode().Perm() != dstInfo.Mode().Perm()
	timeDrift := !srcInfo.ModTime().Equal(dstInfo.ModTime())
	if !modeDrift && !timeDrift {
		return
	}

	target := p.replicaPath(rel)
	ev := Event{Kind: MetadataUpdated, Path: rel, Source: p.sourcePath(rel), Replica: target}
	if p.dryRun {
		p.emit(ev)
		return
	}
	if modeDrift {
		if err := p.fs.Chmod(target, srcInfo.Mode().Perm()); err != nil {
			p.fail("chmod", rel, err)
			return
		}
	}
	if timeDrift {
		if err := p.fs.Chtimes(target, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
			p.fail("chtimes", rel, err)
			return
		}
	}
	p.emit(ev)
}

// removeEntry deletes the replica entry at rel, recursively for DirRemoved.
// It reports whether the entry is gone (or would be, in a dry run).
func (p *pass) removeEntry(rel string, kind EventKind) bool {
	target := p.replicaPath(rel)
	ev := Event{Kind: kind, Path: rel, Replica: target}
	if p.dryRun {
		p.removed[rel] = true
		p.emit(ev)
		return true
	}

	var err error
	if kind == DirRemoved {
		err = p.fs.RemoveAll(target)
	} else {
		err = p.fs.Remove(target)
	}
	if err != nil && !isNotExist(err) {
		p.fail("remove", rel, err)
		return false
	}
	p.emit(ev)
	return true
}

func dirPerm(info os.FileInfo) os.FileMode {
	return info.Mode().Perm() | 0o700
}
