package mirror

import (
	"errors"
	"os"
	"syscall"

	"github.com/spf13/afero"
)

type entryKind int

const (
	kindMissing entryKind = iota
	kindDir
	kindFile
	// kindOther covers sockets, devices, pipes and symlinks that do not
	// resolve to a regular file. These are never mirrored.
	kindOther
)

func kindOf(info os.FileInfo) entryKind {
	switch {
	case info.IsDir():
		return kindDir
	case info.Mode().IsRegular():
		return kindFile
	default:
		return kindOther
	}
}

// lstat reports the entry itself, without following a final symlink, when
// the filesystem supports it.
func lstat(fs afero.Fs, path string) (os.FileInfo, error) {
	if l, ok := fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return fs.Stat(path)
}

// classifySource decides how a source entry takes part in mirroring. A
// symlink counts as a file when it resolves to a regular file; the returned
// info then describes the target. A missing entry is kindMissing with a nil
// error.
func classifySource(fs afero.Fs, path string) (entryKind, os.FileInfo, error) {
	info, err := lstat(fs, path)
	if err != nil {
		if isNotExist(err) {
			return kindMissing, nil, nil
		}
		return kindMissing, nil, err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return kindOf(info), info, nil
	}
	return resolveLink(fs, path, info)
}

func resolveLink(fs afero.Fs, path string, link os.FileInfo) (entryKind, os.FileInfo, error) {
	target, err := fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// dangling link
			return kindOther, link, nil
		}
		return kindMissing, nil, err
	}
	if target.Mode().IsRegular() {
		return kindFile, target, nil
	}
	return kindOther, target, nil
}

// isNotExist treats a path whose parent is not a directory as missing.
func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
