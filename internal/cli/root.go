// Package cli implements the dirsync command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bolasblack/dirsync/internal/journal"
	"github.com/bolasblack/dirsync/internal/util"
)

var (
	// Version, Commit, and Date are set at build time via ldflags
	Version = "dev"
	Commit  = ""
	Date    = ""
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "dirsync",
	Short: "dirsync - Keep a replica folder identical to a source folder",
	Long: `dirsync keeps a replica folder an exact copy of a source folder.

Each pass copies new and changed files from the source, then removes
whatever the source no longer has. The source is never modified. Every
change is appended to a log file.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		journal.SetupConsole(os.Stderr, verbose || envEnabled(util.EnvVerbose))
	},
}

func Execute() {
	ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI with a context that is cancelled on shutdown.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GetRootCmd returns the root command for documentation generation.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func envEnabled(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("dirsync version %s\ncommit: %s\ndate: %s\n", Version, Commit, Date))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./"+util.ConfigFilename+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging (or set "+util.EnvVerbose+"=true)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(fingerprintCmd)
}
