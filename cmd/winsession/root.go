// Package main provides the CLI entrypoint for winsession.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/winsession/internal/config"
	"github.com/jmylchreest/winsession/internal/store"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg       *config.Config
	daemonCfg *config.DaemonConfig

	globalOpts struct {
		verbose          bool
		layoutFile       string
		configPath       string
		daemonConfigPath string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "winsession",
	Short: "Inspect and drive a winsessiond window session",
	Long: `winsession inspects the window layout saved by winsessiond and talks to
a running session over D-Bus.

Running winsession without a subcommand launches the live layout viewer.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// The daemon config decides where the layout lives and which
		// workspace is current. A broken one is not fatal for reading.
		daemonCfg, err = config.LoadDaemonConfig(globalOpts.daemonConfigPath)
		if err != nil {
			logger.Warn("failed to load daemon config, using defaults", "error", err)
			daemonCfg = config.DefaultDaemonConfig()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.layoutFile, "layout-file", "",
		"Path to layout file (default: ~/.local/share/winsession/window-state.json)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to CLI config file (default: ~/.config/winsession/cli.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.daemonConfigPath, "daemon-config", "",
		"Path to daemon config file (default: ~/.config/winsession/winsession.toml)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// layoutPath resolves the layout file: flag, then daemon config, then the
// XDG default.
func layoutPath() (string, error) {
	if globalOpts.layoutFile != "" {
		return globalOpts.layoutFile, nil
	}
	if p := daemonCfg.LayoutPath(); p != "" {
		return p, nil
	}
	p, err := store.DefaultLayoutPath()
	if err != nil {
		return "", fmt.Errorf("failed to get layout path: %w", err)
	}
	return p, nil
}
