package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/bolasblack/dirsync/internal/config"
	"github.com/bolasblack/dirsync/internal/util"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a dirsync configuration in the current directory",
	Long:  `Create a ` + util.ConfigFilename + ` file in the current directory from a template, asking for the source, replica and log file paths.`,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := getCwd()
	if err != nil {
		return err
	}
	env := util.NewOsEnv()
	path := filepath.Join(cwd, util.ConfigFilename)

	if _, err := env.Fs.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	var selected string
	var roots config.Roots
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select a template").
				Options(
					huh.NewOption("Minimal - source, replica and log file only", string(config.TemplateMinimal)),
					huh.NewOption("Backup - verified copies every 5 minutes, editor and OS junk excluded", string(config.TemplateBackup)),
				).
				Value(&selected),
			huh.NewInput().Title("Source folder").Value(&roots.Source).Validate(requiredInput),
			huh.NewInput().Title("Replica folder").Value(&roots.Replica).Validate(requiredInput),
			huh.NewInput().Title("Log file").Value(&roots.LogFile).Validate(requiredInput),
		),
	).Run()
	if err != nil {
		return fmt.Errorf("init cancelled: %w", err)
	}

	return writeInitConfig(env, cmd.OutOrStdout(), path, config.Template(selected), roots)
}

func requiredInput(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

// writeInitConfig renders a template and writes it to path.
func writeInitConfig(env *util.Env, out io.Writer, path string, template config.Template, roots config.Roots) error {
	content, err := config.GenerateConfig(template, roots)
	if err != nil {
		return fmt.Errorf("failed to generate configuration: %w", err)
	}
	if err := afero.WriteFile(env.Fs, path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	progressDone(out, "Created %s\n", path)
	fmt.Fprintln(out, "Run 'dirsync once --dry-run' to preview the first pass.")
	return nil
}
