package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/mediakit/internal/errors"
	mcpserver "github.com/conneroisu/mediakit/internal/mcp"
	"github.com/conneroisu/mediakit/internal/services"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP tools over stdio",
	Long: `Run a Model Context Protocol server on stdin and stdout so an assistant
can add, edit and move components, apply templates, save and export.

Logs go to stderr. A dirty kit is saved when the client disconnects.

Example client entry:
  {"command": "mediakit", "args": ["mcp", "--kit", "kit_123"]}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

var mcpKit string

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().StringVar(&mcpKit, "kit", "", "Id of a saved kit to open")
}

func runMCP(cmd *cobra.Command, args []string) error {
	if mcpKit != "" {
		viper.Set("builder.kit_id", mcpKit)
	}
	cfg, logger, closeLog, err := loadSession()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	k, err := services.OpenKit(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer k.Close()

	srv := mcpserver.New(mcpserver.Deps{
		Builder:   k.Builder,
		Controls:  k.Controls,
		Templates: k.Templates,
		Adapter:   k.Adapter,
		Palette:   k.Palette,
		Logger:    logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	jobs, cancelJobs := context.WithCancel(gctx)
	g.Go(func() error { return k.Run(jobs) })
	g.Go(func() error {
		defer cancelJobs()
		return srv.Serve(gctx, cmd.InOrStdin(), cmd.OutOrStdout())
	})
	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if _, err := k.Controls.SaveIfDirty(context.WithoutCancel(ctx)); err != nil {
		logger.Error(ctx, err, "Final save failed", "kit", k.Builder.KitID())
	}
	return runErr
}
