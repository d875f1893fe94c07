package mirror

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// prune walks the replica and removes every entry whose source counterpart
// is missing or of another kind. A directory is removed with its whole
// subtree and not descended into.
//
// When the source side cannot be inspected for a reason other than absence,
// the replica entry is kept and the failure reported.
func (p *pass) prune() {
	_ = afero.Walk(p.fs, p.replica, func(path string, info os.FileInfo, err error) error {
		rel, relErr := relPath(p.replica, path)
		if relErr != nil {
			p.fail("walk", path, relErr)
			return nil
		}
		if err != nil {
			if !isNotExist(err) {
				p.fail("walk", rel, err)
			}
			return nil
		}
		if rel == "." {
			return nil
		}
		isDir := info.IsDir()
		if p.ignored(rel, isDir) || p.removed[rel] {
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}

		srcKind, _, err := classifySource(p.fs, p.sourcePath(rel))
		if err != nil {
			p.fail("stat", rel, err)
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}

		if isDir {
			if srcKind == kindDir {
				return nil
			}
			slog.Debug("pruning replica directory", "path", rel, "source", kindName(srcKind))
			p.removeEntry(rel, DirRemoved)
			return filepath.SkipDir
		}
		if srcKind == kindFile && kindOf(info) == kindFile {
			return nil
		}
		if srcKind == kindMissing && isTempName(info.Name()) {
			p.discardLeftover(rel)
			return nil
		}
		p.removeEntry(rel, FileRemoved)
		return nil
	})
}

func kindName(k entryKind) string {
	switch k {
	case kindDir:
		return "directory"
	case kindFile:
		return "file"
	case kindOther:
		return "unmirrored"
	default:
		return "missing"
	}
}
