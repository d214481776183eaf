package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rhuss/lakegate/pkg/config"
)

const redacted = "<redacted>"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration after defaults, the config file,
environment overrides, and file references were applied. Secrets are
redacted.

Example:
  lakegate config show
  lakegate config show --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		shown := redact(cfg)

		var data []byte
		switch output {
		case "yaml":
			data, err = yaml.Marshal(shown)
		case "json":
			data, err = json.MarshalIndent(shown, "", "  ")
			data = append(data, '\n')
		default:
			return fmt.Errorf("unknown output format %q (want yaml or json)", output)
		}
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configShowCmd.Flags().StringP("output", "o", "yaml", "output format (yaml or json)")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// redact returns a copy of cfg with every secret value replaced.
func redact(cfg *config.Config) config.Config {
	out := *cfg
	if out.Metering.APIKey != "" {
		out.Metering.APIKey = redacted
	}
	if out.Storage.Postgres.DSN != "" {
		out.Storage.Postgres.DSN = redacted
	}
	out.Auth.APIKeys = make([]config.APIKeyConfig, len(cfg.Auth.APIKeys))
	for i, k := range cfg.Auth.APIKeys {
		if k.Key != "" {
			k.Key = redacted
		}
		out.Auth.APIKeys[i] = k
	}
	return out
}
