package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/services"
)

var componentsCmd = &cobra.Command{
	Use:     "components",
	Aliases: []string{"c"},
	Short:   "List component types",
	Long: `List the built-in component types and any loaded from
components.manifest_dir.

Examples:
  mediakit components                 # Table of every type
  mediakit components --category header
  mediakit components -o yaml         # Full definitions with schemas`,
	Args: cobra.NoArgs,
	RunE: runComponents,
}

var (
	componentsFlags    *OutputFlags
	componentsCategory string
)

func init() {
	rootCmd.AddCommand(componentsCmd)

	componentsFlags = AddOutputFlags(componentsCmd)
	componentsCmd.Flags().StringVar(&componentsCategory, "category", "", "Only list types in this category")
}

func runComponents(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := loadSession()
	if err != nil {
		return err
	}
	defer closeLog()

	bus := eventbus.New(logger)
	reg, err := services.NewRegistry(bus, cfg.Components.ManifestDir, logger)
	if err != nil {
		return err
	}

	var defs []registry.Definition
	for _, def := range reg.List() {
		if componentsCategory == "" || def.Category == componentsCategory {
			defs = append(defs, def)
		}
	}

	return componentsFlags.Write(cmd.OutOrStdout(), defs, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "TYPE\tCATEGORY\tTITLE\tFIELDS\tPREMIUM")
		for _, def := range defs {
			var fields []string
			if def.ContentSchema != nil {
				for _, f := range def.ContentSchema.Fields {
					fields = append(fields, f.Name)
				}
			}
			if def.List != nil {
				fields = append(fields, def.List.Prefix+"_N")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n",
				def.Type, def.Category, def.Title, strings.Join(fields, ","), def.Premium)
		}
	})
}
