// Package cmd implements the autoaccept command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/autoaccept/internal/config"
	"github.com/zjrosen/autoaccept/internal/infrastructure/sqlite"
	"github.com/zjrosen/autoaccept/internal/log"
	"github.com/zjrosen/autoaccept/internal/paths"
	"github.com/zjrosen/autoaccept/internal/tracing"
)

var (
	cfgFile  string
	logLevel string
	cfg      config.Config
	v        = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "autoaccept",
	Short: "Automatically accept AI agent prompts in your editor",
	Long: `autoaccept connects to an editor started with a remote debugging port,
clicks accept-style buttons as they appear, never accepts banned commands,
and retries when the agent looks stuck.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+paths.ConfigFile()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath() string {
	return paths.Expand(cfgFile, paths.ConfigFile())
}

func setup(cmd *cobra.Command, _ []string) error {
	v = viper.New()
	loaded, err := config.Load(v, configPath())
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	cfg = loaded

	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	if err := tracing.Init(cmd.Context(), tracing.Config{
		Exporter: cfg.Tracing.Exporter,
		Endpoint: cfg.Tracing.Endpoint,
	}); err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	log.Debug(log.CatConfig, "Configuration loaded", "path", configPath(), "editor", cfg.Editor)
	return nil
}

func teardown(*cobra.Command, []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.Shutdown(ctx); err != nil {
		log.ErrorErr(log.CatConfig, "Tracing shutdown failed", err)
	}
	log.Close()
}

// openStore opens the state database named by the configuration.
func openStore() (*sqlite.DB, error) {
	return sqlite.NewDB(paths.Expand(cfg.State.Path, paths.StateDB()))
}
