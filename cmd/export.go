package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/mediakit/internal/export"
	"github.com/conneroisu/mediakit/internal/services"
	"github.com/conneroisu/mediakit/internal/types"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Aliases: []string{"e"},
	Short:   "Export a saved kit",
	Long: `Render a saved kit to HTML, JSON or YAML. The file is written to
export.dir unless --stdout is given.

Examples:
  mediakit export --kit kit_123
  mediakit export --kit kit_123 -f yaml --stdout`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	exportKit    string
	exportFormat string
	exportStdout bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportKit, "kit", "", "Id of the kit to export (required)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(types.ExportHTML), "Export format (html, json, yaml)")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "Write to stdout instead of export.dir")
	_ = exportCmd.MarkFlagRequired("kit")
	AddFlagValidation(exportCmd, "format", func(format string) error {
		valid := make([]string, 0, len(export.Formats()))
		for _, f := range export.Formats() {
			valid = append(valid, string(f))
		}
		return ValidateFormatWithSuggestion(format, valid)
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	viper.Set("builder.kit_id", exportKit)
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

	format := types.ExportFormat(exportFormat)
	if exportStdout {
		data, err := k.Exporter.Encode(ctx, k.Builder.Document(), format)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	res, err := k.Controls.Export(ctx, format)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", exportKit, res.Filename)
	if res.URL != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", res.URL)
	}
	return nil
}
