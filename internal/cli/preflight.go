package cli

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/bolasblack/dirsync/internal/util"
)

// checkReadableDir verifies that path is a directory the process can list.
// The permission check only applies to the real filesystem.
func checkReadableDir(env *util.Env, path string) error {
	info, err := env.Fs.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if _, ok := env.Fs.(*afero.OsFs); !ok {
		return nil
	}
	return checkAccess(path)
}
