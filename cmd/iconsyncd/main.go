package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/icontools/iconsyncd/internal/config"
	"github.com/icontools/iconsyncd/internal/imaging"
	"github.com/icontools/iconsyncd/internal/ledger"
	"github.com/icontools/iconsyncd/internal/pipeline"
	"github.com/icontools/iconsyncd/internal/schema"
	"github.com/icontools/iconsyncd/internal/watch"
	"github.com/icontools/iconsyncd/internal/webhook"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	dryRun    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "iconsyncd",
	Short: "Incrementally process coin icon assets",
	Long: `iconsyncd mirrors a tree of original icon images into a processed tree,
normalizing geometry and losslessly optimizing each image with external tools.

A checksum ledger makes runs incremental and idempotent: only new, changed or
tampered assets are reprocessed, and removed originals are pruned together
with their processed artifacts.`,
	SilenceUsage: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Perform a one-time sync of the original tree",
	Long: `Sync enumerates the original icon tree, compares checksums with the ledger,
and processes every asset that is new, changed, or whose processed artifact
is missing or was modified out of band.

Ledger entries whose original no longer exists are pruned along with their
processed artifacts.`,
	RunE: runSync,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously sync on original-tree changes",
	Long: `Watch performs an initial sync, then monitors the original tree for
filesystem changes and re-runs the sync after a configurable debounce window.`,
	RunE: runWatch,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long: `Serve starts a long-running HTTP server that listens for GitHub webhook
events and triggers syncs when the icon repository is updated.

This mode requires additional configuration for webhook secrets and allowed refs.`,
	RunE: runServe,
}

var validateCmd = &cobra.Command{
	Use:   "validate <seed-nodes.json>",
	Short: "Validate a seed-nodes registry file",
	Long: `Validate checks a seed-nodes JSON file against the embedded registry schema
and reports the number of entries it contains.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("iconsyncd %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/iconsyncd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Sync command flags
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")

	// Add commands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := ledger.NewStore(cfg.LedgerFilePath(), logger)
	engine := pipeline.NewEngine(cfg, store, imaging.NewShellPipeline(), logger, dryRun)

	logger.Info("starting sync operation")
	report, err := engine.Run(ctx)
	if err != nil {
		logger.Error("sync failed", "error", err)
		return err
	}

	logger.Info("sync finished",
		"orphans_removed", len(report.OrphansRemoved),
		"flagged", len(report.Flagged),
		"committed", len(report.Committed),
		"up_to_date", report.UpToDate)

	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := ledger.NewStore(cfg.LedgerFilePath(), logger)
	watcher := watch.NewWatcher(cfg, store, imaging.NewShellPipeline(), logger)

	return watcher.Run(ctx)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.Serve.Enabled {
		return fmt.Errorf("serve mode is not enabled in configuration")
	}

	store := ledger.NewStore(cfg.LedgerFilePath(), logger)
	server, err := webhook.NewServer(cfg, store, imaging.NewShellPipeline(), logger)
	if err != nil {
		return fmt.Errorf("failed to create webhook server: %w", err)
	}

	return server.Start(ctx)
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	validator, err := schema.NewSeedNodeValidator()
	if err != nil {
		return err
	}

	count, err := validator.ValidateFile(args[0])
	if err != nil {
		logger.Error("validation failed", "file", args[0], "error", err)
		return err
	}

	logger.Info("validation passed", "file", args[0], "seed_nodes", count)
	return nil
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	// Determine config file path
	configPath := cfgFile
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configPath = fmt.Sprintf("%s/.config/iconsyncd/config.yaml", home)
	}

	logger.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"original_dir", cfg.Paths.OriginalDir,
		"processed_dir", cfg.Paths.ProcessedDir,
		"state_dir", cfg.Paths.StateDir,
		"extension", cfg.Image.Extension)

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
