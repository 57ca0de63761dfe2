// Package cmd provides the mediakit command-line interface.
//
// Configuration System:
//
//	Settings come from several sources with clear precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. MEDIAKIT_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (MEDIAKIT_SERVER_PORT, etc.)
//	4. Configuration file (.mediakit.yml) - lowest priority
//
// Environment Variables:
//
//	MEDIAKIT_CONFIG_FILE: Path to custom configuration file
//	MEDIAKIT_SERVER_PORT: Override server port
//	MEDIAKIT_STORAGE_DRIVER: memory, file, sqlite, postgres, mysql or mongo
//	And every other key following the MEDIAKIT_<SECTION>_<KEY> pattern
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/mediakit/internal/config"
	"github.com/conneroisu/mediakit/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mediakit",
	Short: "Build media kits from sections and components",
	Long: `mediakit is a headless media kit builder. A kit is a document of sections
laid out in columns, each holding components such as a hero, a biography,
a gallery or a list of speaking topics.

Key Features:
  • Browser editor with live updates over WebSocket
  • Undo and redo, autosave and a dirty-state toolbar
  • Templates loaded from YAML or JSON and reloaded on change
  • Storage in files, SQLite, PostgreSQL, MySQL or MongoDB
  • Export to HTML, JSON or YAML
  • MCP tools so an assistant can edit a kit

Quick Start:
  mediakit init                   Create .mediakit.yml and directories
  mediakit serve                  Start the editor
  mediakit components             List component types
  mediakit export --kit <id>      Export a saved kit

Documentation: https://github.com/conneroisu/mediakit`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .mediakit.yml, can also use MEDIAKIT_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig resolves the config file in priority order: the --config flag,
// then MEDIAKIT_CONFIG_FILE, then .mediakit.yml in the working directory.
// A missing file is not an error; defaults and the environment still apply.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mediakit")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the logger described by the logging section. Logs go to
// out and, when a directory is configured, to a dated file as well. The
// returned func closes the file.
func newLogger(cfg config.LoggingConfig, out io.Writer) (logging.Logger, func() error, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	lc := &logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Format,
		Output:    out,
		Component: "mediakit",
	}
	console := logging.NewLogger(lc)
	if cfg.Dir == "" {
		return console, func() error { return nil }, nil
	}

	file, err := logging.NewFileLogger(lc, cfg.Dir)
	if err != nil {
		return nil, nil, err
	}
	return logging.NewMultiLogger(console, file), file.Close, nil
}

// loadSession reads the configuration and the logger every command shares.
// Logs always go to stderr so stdout stays free for command output.
func loadSession() (*config.Config, logging.Logger, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closeLog, err := newLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closeLog, nil
}
