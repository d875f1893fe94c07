package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bolasblack/dirsync/internal/config"
	"github.com/bolasblack/dirsync/internal/state"
	"github.com/bolasblack/dirsync/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status [SOURCE REPLICA LOG_FILE]",
	Short: "Show the outcome of the latest pass",
	Long:  `Show the replica's status file: when it was last mirrored, what changed and which entries failed.`,
	Args:  cobra.MaximumNArgs(3),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	env := util.NewReadonlyOsEnv()
	cfg, err := resolveConfig(env, args)
	if err != nil {
		return err
	}
	return showStatus(env, cmd.OutOrStdout(), cfg, time.Now())
}

func showStatus(env *util.Env, w io.Writer, cfg config.Config, now time.Time) error {
	st, err := loadRequiredState(env, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Source:   %s\n", st.Source)
	fmt.Fprintf(w, "Replica:  %s\n", st.Replica)
	fmt.Fprintf(w, "Log file: %s\n", cfg.LogFile)
	fmt.Fprintf(w, "Passes:   %s since %s\n", humanize.Comma(int64(st.Passes)), humanize.RelTime(st.CreatedAt, now, "ago", "from now"))

	if displaySourceDrift(w, st.DetectSourceDrift(cfg.Source)) {
		fmt.Fprintln(w, "The next pass will mirror the new source.")
	}

	rec := st.LastPass
	if rec == nil {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Last pass: %s, took %s\n", humanize.RelTime(rec.StartedAt, now, "ago", "from now"), rec.Duration.Round(time.Millisecond))
	if rec.Aborted == "" {
		fmt.Fprintf(w, "  Created:  %s, %s\n", util.Count(rec.DirsCreated, "folder", "folders"), util.Count(rec.FilesCopied, "file", "files"))
		fmt.Fprintf(w, "  Updated:  %s\n", util.Count(rec.FilesUpdated+rec.MetadataUpdated, "file", "files"))
		fmt.Fprintf(w, "  Removed:  %s, %s\n", util.Count(rec.DirsRemoved, "folder", "folders"), util.Count(rec.FilesRemoved, "file", "files"))
		fmt.Fprintf(w, "  Copied:   %s\n", util.Bytes(rec.BytesCopied))
	}

	state.RenderBanner(rec, w)
	return nil
}
