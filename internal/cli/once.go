package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bolasblack/dirsync/internal/config"
	"github.com/bolasblack/dirsync/internal/util"
)

var onceDryRun bool

var onceCmd = &cobra.Command{
	Use:   "once [SOURCE REPLICA LOG_FILE]",
	Short: "Run a single pass and exit",
	Long: `Run a single pass and exit. The exit status is non-zero if a root folder
could not be used or any entry failed to mirror.

With --dry-run, print what the pass would do without touching the replica,
the log file or the status file.`,
	Args: cobra.MaximumNArgs(3),
	RunE: runOnce,
}

func init() {
	onceCmd.Flags().BoolVarP(&onceDryRun, "dry-run", "n", false, "report changes without making them")
}

func runOnce(cmd *cobra.Command, args []string) error {
	env := util.NewOsEnv()
	cfg, err := resolveConfig(env, args)
	if err != nil {
		return err
	}
	return syncOnce(env, cmd.OutOrStdout(), cfg, onceDryRun)
}

func syncOnce(env *util.Env, out io.Writer, cfg config.Config, dryRun bool) error {
	s, release, err := prepareSyncer(env, cfg, out, dryRun)
	if err != nil {
		return err
	}
	defer release()

	report, err := s.pass()
	if err != nil {
		return err
	}
	printReport(out, report)

	if n := len(report.Errors); n > 0 {
		return fmt.Errorf("%s could not be mirrored", util.Count(n, "entry", "entries"))
	}
	return nil
}
