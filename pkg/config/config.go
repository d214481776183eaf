// Package config provides unified configuration for the lakegate gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (LAKEGATE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
//
// A loaded Config is a read-only snapshot shared by every request.
package config

import "time"

// Config holds all configuration for the lakegate gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Realm         RealmConfig         `yaml:"realm"`
	Auth          AuthConfig          `yaml:"auth"`
	Metering      MeteringConfig      `yaml:"metering"`
	Storage       StorageConfig       `yaml:"storage"`
	Workers       WorkersConfig       `yaml:"workers"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8181
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 120s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 15s
}

// UpstreamConfig describes the catalog service gated requests are proxied to.
type UpstreamConfig struct {
	URL string `yaml:"url"` // optional; without it /api/catalog/ is not served
}

// RealmConfig controls how the realm of a request is resolved.
type RealmConfig struct {
	Header  string   `yaml:"header"`  // default: "Polaris-Realm"
	Default string   `yaml:"default"` // default: "default-realm"
	Known   []string `yaml:"known"`   // registered at startup, default: [default]
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// Type is "none", "apikey", "jwt", or "chain" (jwt, then apikey). Default: "none".
	Type         string         `yaml:"type"`
	DevPrincipal string         `yaml:"dev_principal"` // principal for type=none, default: "developer"
	APIKeys      []APIKeyConfig `yaml:"api_keys"`
	JWT          JWTConfig      `yaml:"jwt"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key        string            `yaml:"key" json:"key"`
	KeyFile    string            `yaml:"key_file" json:"key_file"` // _file variant for key
	Principal  string            `yaml:"principal" json:"principal"`
	Roles      []string          `yaml:"roles" json:"roles"`
	Properties map[string]string `yaml:"properties" json:"properties"`
}

// JWTConfig holds settings for JWKS-backed bearer token validation.
type JWTConfig struct {
	Issuer         string        `yaml:"issuer"`
	Audience       string        `yaml:"audience"`
	JWKSURL        string        `yaml:"jwks_url"`
	UserClaim      string        `yaml:"user_claim"`      // default: "sub"
	RolesClaim     string        `yaml:"roles_claim"`     // default: "roles"
	PropertyClaims []string      `yaml:"property_claims"` // copied into principal properties
	CacheTTL       time.Duration `yaml:"cache_ttl"`       // default: 1h

	// MinRefreshInterval rate-limits JWKS refreshes caused by unknown kids.
	MinRefreshInterval time.Duration `yaml:"min_refresh_interval"` // default: 30s
}

// MeteringConfig holds the token-balance gate settings.
type MeteringConfig struct {
	Enabled               bool     `yaml:"enabled"`                 // default: false
	APIBaseURL            string   `yaml:"api_base_url"`            // required when enabled
	APIKey                string   `yaml:"api_key"`                 // optional
	APIKeyFile            string   `yaml:"api_key_file"`            // _file variant for api_key
	TimeoutMS             int      `yaml:"timeout_ms"`              // default: 5000
	MaxRetries            int      `yaml:"max_retries"`             // default: 3
	MinimumTokensRequired float64  `yaml:"minimum_tokens_required"` // default: 1.0
	SystemPrincipal       string   `yaml:"system_principal"`        // default: "root"
	EnforcedPathPrefixes  []string `yaml:"enforced_path_prefixes"`  // default: all gated paths
}

// Timeout returns the per-attempt timeout as a duration.
func (m MeteringConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMS) * time.Millisecond
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// WorkersConfig sizes the pool that runs augmentation and balance checks.
type WorkersConfig struct {
	Size int `yaml:"size"` // default: 64
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log output settings. LAKEGATE_DEBUG and
// LAKEGATE_LOG_LEVEL take precedence.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: "INFO"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8181,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Realm: RealmConfig{
			Header:  "Polaris-Realm",
			Default: "default-realm",
		},
		Auth: AuthConfig{
			Type:         "none",
			DevPrincipal: "developer",
			JWT: JWTConfig{
				UserClaim:          "sub",
				RolesClaim:         "roles",
				CacheTTL:           time.Hour,
				MinRefreshInterval: 30 * time.Second,
			},
		},
		Metering: MeteringConfig{
			Enabled:               false,
			TimeoutMS:             5000,
			MaxRetries:            3,
			MinimumTokensRequired: 1.0,
			SystemPrincipal:       "root",
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Workers: WorkersConfig{
			Size: 64,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
