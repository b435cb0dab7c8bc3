// Package config provides configuration loading, defaults, and validation
// for the PropSignal platform.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all platform settings.
const envPrefix = "PROPSIGNAL"

// configKeys lists every settable key.  Viper's Unmarshal only sees keys it
// knows about, so env-only keys must be bound explicitly or LoadFromEnv
// would silently ignore them.
var configKeys = []string{
	"server.port", "server.mode", "server.read_timeout", "server.write_timeout",
	"server.max_body_size", "server.shutdown_timeout", "server.api_tokens",
	"server.rate_limit_per_minute",

	"database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns",
	"database.max_idle_conns", "database.conn_max_lifetime",
	"database.conn_max_idle_time", "database.migration_path",

	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout",
	"redis.write_timeout", "redis.default_ttl", "redis.key_prefix",

	"kafka.brokers", "kafka.group_id", "kafka.auto_offset_reset",
	"kafka.batch_timeout", "kafka.producer_retries", "kafka.max_retries",
	"kafka.retry_backoff", "kafka.concurrency",

	"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket",
	"minio.use_ssl", "minio.presign_expiry",

	"log.level", "log.format", "log.output",

	"valuation.per_bedroom", "valuation.per_full_bath", "valuation.per_hundred_sqft",
	"valuation.per_thousand_lot_sqft", "valuation.per_year_built",
	"valuation.per_garage_space", "valuation.max_dimension_pct",
	"valuation.radius_steps_miles", "valuation.min_comparables",
	"valuation.max_comparables", "valuation.comp_window_months",

	"flip.sale_cost_pct", "flip.purchase_closing_pct", "flip.monthly_holding_cost",
	"flip.target_profit_pct", "flip.down_payment_pct", "flip.annual_interest_pct",
}

// newViper builds a pre-configured Viper instance: YAML file type,
// PROPSIGNAL_ env prefix, automatic env binding, and a key replacer mapping
// "." to "_" so nested keys like "database.host" resolve to
// PROPSIGNAL_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range configKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at configPath, merges any PROPSIGNAL_*
// environment overrides, applies defaults for unset fields, and validates
// the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from PROPSIGNAL_* environment
// variables, no config file required.  Preferred for containerised
// deployments.
//
// Naming convention:
//
//	PROPSIGNAL_<SECTION>_<FIELD>   e.g.  PROPSIGNAL_DATABASE_HOST
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed
// Config whenever the file changes on disk.  Intended for hot-reloading
// non-critical settings such as log level and policy rates; callers decide
// which subset is safe to apply at runtime.  A change that fails to parse or
// validate is dropped without invoking the callback.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; callers should have called Load first, so errors here
	// only mean the watcher starts from an empty state.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad wraps Load and panics on any error.  For use in main() where a
// config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
