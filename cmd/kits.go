package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mediakit/internal/services"
)

var kitsCmd = &cobra.Command{
	Use:     "kits",
	Aliases: []string{"k"},
	Short:   "List saved kits",
	Long: `List the kits in the configured storage, most recently updated first.

Examples:
  mediakit kits
  MEDIAKIT_STORAGE_DRIVER=sqlite mediakit kits -o json`,
	Args: cobra.NoArgs,
	RunE: runKits,
}

var kitsFlags *OutputFlags

func init() {
	rootCmd.AddCommand(kitsCmd)

	kitsFlags = AddOutputFlags(kitsCmd)
}

func runKits(cmd *cobra.Command, args []string) error {
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

	kits, err := k.Adapter.Kits(ctx)
	if err != nil {
		return err
	}
	return kitsFlags.Write(cmd.OutOrStdout(), kits, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ID\tVERSION\tUPDATED")
		for _, s := range kits {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Version, s.UpdatedAt.Local().Format(time.DateTime))
		}
	})
}
