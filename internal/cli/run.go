package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bolasblack/dirsync/internal/config"
	"github.com/bolasblack/dirsync/internal/schedule"
	"github.com/bolasblack/dirsync/internal/util"
)

var runCmd = &cobra.Command{
	Use:   "run [SOURCE REPLICA LOG_FILE INTERVAL]",
	Short: "Mirror the source into the replica periodically",
	Long: `Run a pass immediately and then again INTERVAL after each pass finishes,
until interrupted. INTERVAL is a number of seconds or a duration such as 5m.

Arguments override the values in the config file.`,
	Example: `  dirsync run ~/Documents /mnt/backup/Documents ~/dirsync.log 60`,
	Args:    cobra.MaximumNArgs(4),
	RunE:    runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	env := util.NewOsEnv()
	cfg, err := resolveConfig(env, args)
	if err != nil {
		return err
	}
	return runLoop(cmd.Context(), env, cmd.OutOrStdout(), cfg)
}

// runLoop drives passes until ctx is cancelled.
func runLoop(ctx context.Context, env *util.Env, out io.Writer, cfg config.Config) error {
	if err := checkReadableDir(env, cfg.Source); err != nil {
		return fmt.Errorf("source folder is not usable: %w", err)
	}

	s, release, err := prepareSyncer(env, cfg, out, false)
	if err != nil {
		return err
	}
	defer release()

	progressStep(out, "Mirroring %s → %s every %s (log: %s)\n", cfg.Source, cfg.Replica, cfg.Interval, cfg.LogFile)

	passes := 0
	err = schedule.Every(ctx, cfg.Interval.Std(), func(context.Context) {
		passes++
		_, _ = s.pass()
	})
	if err != nil {
		return err
	}

	progressDone(out, "Stopped after %s\n", util.Count(passes, "pass", "passes"))
	return nil
}
