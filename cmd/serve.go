package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/mediakit/internal/services"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the kit editor",
	Long: `Start the editor server for one kit. The browser client receives every
builder event over /ws and edits the kit through the /api routes.

A dirty kit is saved once more when the server stops.

Examples:
  mediakit serve                     # Serve a new kit on localhost:8080
  mediakit serve --kit kit_123       # Open a saved kit
  mediakit serve -p 9000 --host 0.0.0.0`,
	RunE: runServe,
}

var serveKit string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().StringVar(&serveKit, "kit", "", "Id of a saved kit to open")
	AddFlagValidation(serveCmd, "port", ValidatePort)

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("kit") {
		viper.Set("builder.kit_id", serveKit)
	}
	cfg, logger, closeLog, err := loadSession()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting editor", "addr", cfg.Server.Addr(), "storage", cfg.Storage.Driver)
	return services.NewServeService(cfg, logger).Serve(ctx)
}
