// Command lakegate runs the identity augmentation and metering gate in
// front of a multi-tenant data catalog.
//
// Usage:
//
//	lakegate serve [--config path]
//	lakegate check-balance --principal alice@example.com
//	lakegate config show [--output yaml|json]
//	lakegate realms list
//	lakegate realms add <realm>
//
// Configuration is read from the file given by --config, LAKEGATE_CONFIG,
// ./config.yaml, or /etc/lakegate/config.yaml, then overridden by
// LAKEGATE_* environment variables.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rhuss/lakegate/pkg/config"
	"github.com/rhuss/lakegate/pkg/debug"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lakegate",
	Short: "Identity augmentation and metering gate for a data catalog",
	Long: `lakegate authenticates catalog requests, turns the transport identity
into a fully authorized principal, and checks the principal's token balance
with the metering service before the request reaches the catalog.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file")
}

// loadConfig loads the configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}
