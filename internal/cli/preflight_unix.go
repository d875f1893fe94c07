//go:build unix

package cli

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func checkAccess(path string) error {
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return fmt.Errorf("%s is not readable: %w", path, err)
	}
	return nil
}
