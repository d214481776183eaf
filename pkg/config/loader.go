package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/lakegate/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, LAKEGATE_CONFIG env, ./config.yaml, /etc/lakegate/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	applyDerivedDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. LAKEGATE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/lakegate/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("LAKEGATE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/lakegate/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps LAKEGATE_* environment variables to config
// fields. Malformed numeric or boolean values are reported, not ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []string

	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
				return
			}
			*dst = b
		}
	}

	integer("LAKEGATE_PORT", &cfg.Server.Port)
	str("LAKEGATE_UPSTREAM_URL", &cfg.Upstream.URL)
	str("LAKEGATE_REALM_HEADER", &cfg.Realm.Header)
	str("LAKEGATE_DEFAULT_REALM", &cfg.Realm.Default)
	str("LAKEGATE_AUTH_TYPE", &cfg.Auth.Type)
	str("LAKEGATE_JWKS_URL", &cfg.Auth.JWT.JWKSURL)
	str("LAKEGATE_STORAGE", &cfg.Storage.Type)
	str("LAKEGATE_POSTGRES_DSN", &cfg.Storage.Postgres.DSN)
	integer("LAKEGATE_WORKERS", &cfg.Workers.Size)
	str("LAKEGATE_LOG_FORMAT", &cfg.Logging.Format)

	boolean("LAKEGATE_METERING_ENABLED", &cfg.Metering.Enabled)
	str("LAKEGATE_METERING_API_BASE_URL", &cfg.Metering.APIBaseURL)
	str("LAKEGATE_METERING_API_KEY", &cfg.Metering.APIKey)
	integer("LAKEGATE_METERING_TIMEOUT_MS", &cfg.Metering.TimeoutMS)
	integer("LAKEGATE_METERING_MAX_RETRIES", &cfg.Metering.MaxRetries)
	str("LAKEGATE_METERING_SYSTEM_PRINCIPAL", &cfg.Metering.SystemPrincipal)
	if v := os.Getenv("LAKEGATE_METERING_MINIMUM_TOKENS_REQUIRED"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("LAKEGATE_METERING_MINIMUM_TOKENS_REQUIRED: %v", err))
		} else {
			cfg.Metering.MinimumTokensRequired = f
		}
	}

	// LAKEGATE_REALMS: comma-separated list of known realms.
	if v := os.Getenv("LAKEGATE_REALMS"); v != "" {
		cfg.Realm.Known = splitList(v)
	}

	// LAKEGATE_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("LAKEGATE_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("LAKEGATE_API_KEYS: %v", err))
		} else if len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// metering.api_key_file -> metering.api_key
	if cfg.Metering.APIKeyFile != "" && cfg.Metering.APIKey == "" {
		val, err := readSecretFile(cfg.Metering.APIKeyFile)
		if err != nil {
			return fmt.Errorf("metering.api_key_file: %w", err)
		}
		cfg.Metering.APIKey = val
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// auth.api_keys[*].key_file -> auth.api_keys[*].key
	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// applyDerivedDefaults fills fields whose default depends on other fields.
func applyDerivedDefaults(cfg *Config) {
	if cfg.Realm.Default != "" && !slices.Contains(cfg.Realm.Known, cfg.Realm.Default) {
		cfg.Realm.Known = append(cfg.Realm.Known, cfg.Realm.Default)
	}
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
