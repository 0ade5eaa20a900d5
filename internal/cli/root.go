// Package cli provides the command-line interface for rikkaview.
package cli

import (
	"log/slog"

	"github.com/raphaelgruber/rikkaview/internal/config"
	"github.com/raphaelgruber/rikkaview/internal/service"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string

	// Set up per invocation in PersistentPreRunE
	cfg         config.Config
	logger      *slog.Logger
	closeLogger func() error
	pipeline    *service.Pipeline
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rikkaview",
	Short: "Browse and export RikkaHub chat backups",
	Long: `rikkaview reads a RikkaHub backup zip and lets you list, search and
export the conversations inside it without touching the app.

Exports are a single self-contained HTML page, a JSON document or plain
text.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg = config.Load()
			err = cfg.Validate()
		}
		if err != nil {
			return err
		}

		stderrLevel := slog.LevelWarn
		if verbose {
			stderrLevel = slog.LevelDebug
		}
		logger, closeLogger = config.SetupLogger(cfg.LogFile, stderrLevel, cfg.LogLevel)

		pipeline = service.NewPipeline(cfg, logger, Version)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if verbose && pipeline != nil {
			printStats(cmd.ErrOrStderr(), pipeline.Metrics.Snapshot())
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() {
		if closeLogger != nil {
			_ = closeLogger()
			closeLogger = nil
		}
	}()
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging and stage timings on stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (environment variables take precedence)")

	// Add subcommands
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(memoriesCmd)
}

// load runs the load stage for a command's archive argument and applies the
// shared filter flags.
func load(cmd *cobra.Command, path string) (*backupView, error) {
	opts, err := filterOptions()
	if err != nil {
		return nil, err
	}

	b, err := pipeline.Load(cmd.Context(), path)
	if err != nil {
		return nil, err
	}
	return &backupView{full: b, filtered: pipeline.Filter(b, opts)}, nil
}
