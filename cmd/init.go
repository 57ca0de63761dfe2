package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mediakit/internal/services"
)

var initCmd = &cobra.Command{
	Use:     "init [directory]",
	Aliases: []string{"i"},
	Short:   "Create a mediakit project",
	Long: `Write .mediakit.yml and create the storage, template and export
directories it names.

Examples:
  mediakit init                      # Initialize the current directory
  mediakit init my-kit --example     # Add a sample template and manifest
  mediakit init --driver sqlite      # Store kits in SQLite`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initDriver  string
	initExample bool
	initForce   bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initDriver, "driver", "file", "Storage driver (memory, file, sqlite, postgres, mysql, mongo)")
	initCmd.Flags().BoolVar(&initExample, "example", false, "Add a sample template and component manifest")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	cfg, err := services.NewInitService().InitProject(services.InitOptions{
		ProjectDir: dir,
		Driver:     initDriver,
		Example:    initExample,
		Force:      initForce,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", filepath.Join(dir, services.ConfigFileName))
	fmt.Fprintf(out, "  storage:   %s\n", cfg.Storage.Driver)
	fmt.Fprintf(out, "  templates: %s\n", cfg.Templates.Dir)
	fmt.Fprintf(out, "  exports:   %s\n", cfg.Export.Dir)
	fmt.Fprintln(out, "\nRun 'mediakit serve' to start editing.")
	return nil
}
