package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bolasblack/dirsync/internal/fingerprint"
	"github.com/bolasblack/dirsync/internal/util"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint FILE...",
	Short: "Print the content fingerprint of files",
	Long:  `Print the MD5 content fingerprint dirsync uses to decide whether a replica file is up to date.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printFingerprints(util.NewReadonlyOsEnv(), cmd.OutOrStdout(), args)
	},
}

func printFingerprints(env *util.Env, w io.Writer, paths []string) error {
	failed := 0
	for _, path := range paths {
		sum, err := fingerprint.Sum(env.Fs, path)
		if err != nil {
			slog.Error("cannot fingerprint file", "path", path, "error", err)
			failed++
			continue
		}
		fmt.Fprintf(w, "%s  %s\n", sum, path)
	}
	if failed > 0 {
		return fmt.Errorf("%s could not be read", util.Count(failed, "file", "files"))
	}
	return nil
}
