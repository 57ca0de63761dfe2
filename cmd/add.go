package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/mediakit/internal/services"
	"github.com/conneroisu/mediakit/internal/types"
)

var addCmd = &cobra.Command{
	Use:     "add <type>",
	Aliases: []string{"a"},
	Short:   "Add a component to a kit and save it",
	Long: `Add one component to a saved kit, or to a new kit when --kit is not
given, then save. Prints the kit id and the new component id.

Content is inline JSON or @file.json / @file.yaml. Fields left out take the
type's defaults.

Examples:
  mediakit add hero --content '{"name": "Ada Lovelace"}'
  mediakit add biography --kit kit_123 --section section_2 --column column_1
  mediakit add topics --kit kit_123 --content @topics.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var (
	addKit     string
	addSection string
	addColumn  string
	addIndex   int
	addContent string
)

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVar(&addKit, "kit", "", "Id of the kit to edit (default: a new kit)")
	addCmd.Flags().StringVar(&addSection, "section", "", "Section id (default: the last section)")
	addCmd.Flags().StringVar(&addColumn, "column", "", "Column key such as column_2")
	addCmd.Flags().IntVar(&addIndex, "index", -1, "Index in the column; negative appends")
	addCmd.Flags().StringVar(&addContent, "content", "", "Content as JSON or @file")
}

func runAdd(cmd *cobra.Command, args []string) error {
	content, err := ParseContent(addContent)
	if err != nil {
		return err
	}
	if addKit != "" {
		viper.Set("builder.kit_id", addKit)
	}
	cfg, logger, closeLog, err := loadSession()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()
	k, err := services.OpenKit(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer k.Close()

	var pos *types.Position
	if addSection != "" {
		pos = &types.Position{SectionID: addSection, Column: addColumn, Index: addIndex}
	}
	if err := k.Palette.CanAdd(args[0]); err != nil {
		return err
	}
	c, err := k.Builder.AddComponent(ctx, args[0], pos, content)
	if err != nil {
		return err
	}
	id, err := k.Controls.Save(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "kit: %s\ncomponent: %s\n", id, c.ID)
	return nil
}
