package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/templates"
)

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"t"},
	Short:   "List kit templates",
	Long: `List the built-in templates and those in templates.dir. A template in the
directory replaces a built-in of the same name.

Examples:
  mediakit templates
  mediakit templates --category speaker -o json`,
	Args: cobra.NoArgs,
	RunE: runTemplates,
}

var (
	templatesFlags    *OutputFlags
	templatesCategory string
)

func init() {
	rootCmd.AddCommand(templatesCmd)

	templatesFlags = AddOutputFlags(templatesCmd)
	templatesCmd.Flags().StringVar(&templatesCategory, "category", "", "Only list templates in this category")
}

func runTemplates(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := loadSession()
	if err != nil {
		return err
	}
	defer closeLog()

	lib, err := templates.New(cfg.Templates.Dir, eventbus.New(logger), logger)
	if err != nil {
		return err
	}
	list := lib.Filter(templatesCategory, true)

	return templatesFlags.Write(cmd.OutOrStdout(), list, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "NAME\tCATEGORY\tTITLE\tSECTIONS\tPREMIUM")
		for _, t := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\n", t.Name, t.Category, t.Title, len(t.Sections), t.Premium)
		}
	})
}
