// Package main is the CLI entry point for the CyberSentinel demo engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cybersentinel/config"
	"cybersentinel/internal/logger"
)

const defaultConfigName = "cybersentinel.yml"

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "cybersentinel",
		Short: "SOC demo dashboard engine",
		Long: `cybersentinel serves a synthetic SOC dashboard: threat intel, SSH and
Apache log analytics and correlation alerts, mutated by workflow steps.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")
	rootCmd.Version = version

	rootCmd.AddCommand(
		newServeCmd(),
		newSimulateCmd(),
		newValidateCmd(),
		newEnqueueCmd(),
		newSeedCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func findConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		fmt.Fprintf(os.Stderr, "Warning: config file not found at %s, trying default locations\n", configArg)
	}

	if _, err := os.Stat(defaultConfigName); err == nil {
		return defaultConfigName
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), defaultConfigName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadConfig reads the config named by the --config flag or found in the
// default locations, applies defaults and initializes logging. Without a
// config file the defaults alone are used.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	configArg, _ := cmd.Flags().GetString("config")
	path := findConfigFile(configArg)

	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, "", fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg.CyberSentinel.Logging.Enabled = true
		cfg.CyberSentinel.Logging.Console = true
	}
	applyDefaults(cfg)

	lc := cfg.CyberSentinel.Logging
	if err := logger.Init(lc.Enabled, lc.Level, lc.File, lc.Console); err != nil {
		return nil, "", fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, path, nil
}

func applyDefaults(cfg *config.Config) {
	c := &cfg.CyberSentinel

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}

	if c.Bootstrap.APITimeout <= 0 {
		c.Bootstrap.APITimeout = 5 * time.Second
	}
	if c.Bootstrap.Redis.Addr == "" {
		c.Bootstrap.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Bootstrap.Redis.Key == "" {
		c.Bootstrap.Redis.Key = "cybersentinel:dataset"
	}
	if c.Bootstrap.Redis.Timeout <= 0 {
		c.Bootstrap.Redis.Timeout = 2 * time.Second
	}

	if c.Commands.Redis.Addr == "" {
		c.Commands.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Commands.Redis.Key == "" {
		c.Commands.Redis.Key = "cybersentinel:commands"
	}
	if c.Commands.Redis.BlockTimeout == 0 {
		c.Commands.Redis.BlockTimeout = 5 * time.Second
	}
	if c.Commands.DedupeSize <= 0 {
		c.Commands.DedupeSize = 1024
	}

	if c.Alerts.BatchSize <= 0 {
		c.Alerts.BatchSize = 100
	}
	if c.Alerts.FlushInterval <= 0 {
		c.Alerts.FlushInterval = 2 * time.Second
	}
	if c.Alerts.Output.Mode == "" {
		c.Alerts.Output.Mode = "file"
	}
	if c.Alerts.Output.File.Path == "" {
		c.Alerts.Output.File.Path = "output/alerts.jsonl"
	}

	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "cybersentinel.view"
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "cybersentinel"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
