// Package config defines all configuration structures for the PropSignal
// platform.  No I/O or parsing logic lives here — only plain data types and
// validation.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/internal/domain/flip"
	"github.com/propsignal/propsignal/internal/domain/valuation"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// APITokens are the accepted bearer tokens for the write endpoints.
	// Empty disables token auth (development only).
	APITokens []string `mapstructure:"api_tokens"`
	// RateLimitPerMinute caps requests per client IP; 0 disables limiting.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka producer/consumer parameters.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	ProducerRetries int           `mapstructure:"producer_retries"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	Concurrency     int           `mapstructure:"concurrency"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters.
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "text"
	Output string `mapstructure:"output"`
}

// ValuationConfig exposes the tunable valuation policy.  Dollar rates are
// plain floats here so they round-trip through YAML and env vars; the
// conversion to decimal happens once in ValuationPolicy().
type ValuationConfig struct {
	PerBedroom         float64 `mapstructure:"per_bedroom"`
	PerFullBath        float64 `mapstructure:"per_full_bath"`
	PerHundredSqFt     float64 `mapstructure:"per_hundred_sqft"`
	PerThousandLotSqFt float64 `mapstructure:"per_thousand_lot_sqft"`
	PerYearBuilt       float64 `mapstructure:"per_year_built"`
	PerGarageSpace     float64 `mapstructure:"per_garage_space"`
	MaxDimensionPct    float64 `mapstructure:"max_dimension_pct"`

	RadiusStepsMiles []float64 `mapstructure:"radius_steps_miles"`
	MinComparables   int       `mapstructure:"min_comparables"`
	MaxComparables   int       `mapstructure:"max_comparables"`
	// CompWindowMonths bounds how far back the candidate pool query reaches.
	CompWindowMonths int `mapstructure:"comp_window_months"`
}

// FlipConfig exposes the tunable flip cost structure.
type FlipConfig struct {
	SaleCostPct        float64 `mapstructure:"sale_cost_pct"`
	PurchaseClosingPct float64 `mapstructure:"purchase_closing_pct"`
	MonthlyHoldingCost float64 `mapstructure:"monthly_holding_cost"`
	TargetProfitPct    float64 `mapstructure:"target_profit_pct"`
	DownPaymentPct     float64 `mapstructure:"down_payment_pct"`
	AnnualInterestPct  float64 `mapstructure:"annual_interest_pct"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the whole platform.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Log       LogConfig       `mapstructure:"log"`
	Valuation ValuationConfig `mapstructure:"valuation"`
	Flip      FlipConfig      `mapstructure:"flip"`
}

// DSN renders the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// ValuationPolicy builds the engine policy from configuration, starting from
// the engine defaults and overriding only what the operator set.
func (c *Config) ValuationPolicy() valuation.Policy {
	p := valuation.DefaultPolicy()
	v := c.Valuation
	if v.PerBedroom > 0 {
		p.Rates.PerBedroom = decimal.NewFromFloat(v.PerBedroom)
	}
	if v.PerFullBath > 0 {
		p.Rates.PerFullBath = decimal.NewFromFloat(v.PerFullBath)
	}
	if v.PerHundredSqFt > 0 {
		p.Rates.PerHundredSqFt = decimal.NewFromFloat(v.PerHundredSqFt)
	}
	if v.PerThousandLotSqFt > 0 {
		p.Rates.PerThousandLotSqFt = decimal.NewFromFloat(v.PerThousandLotSqFt)
	}
	if v.PerYearBuilt > 0 {
		p.Rates.PerYearBuilt = decimal.NewFromFloat(v.PerYearBuilt)
	}
	if v.PerGarageSpace > 0 {
		p.Rates.PerGarageSpace = decimal.NewFromFloat(v.PerGarageSpace)
	}
	if v.MaxDimensionPct > 0 {
		p.Rates.MaxDimensionPct = decimal.NewFromFloat(v.MaxDimensionPct)
	}
	if len(v.RadiusStepsMiles) > 0 {
		p.Selection.RadiusStepsMiles = v.RadiusStepsMiles
	}
	if v.MinComparables > 0 {
		p.Selection.MinComparables = v.MinComparables
	}
	if v.MaxComparables > 0 {
		p.Selection.MaxComparables = v.MaxComparables
	}
	return p
}

// FlipPolicy builds the flip policy from configuration, same override rules
// as ValuationPolicy.
func (c *Config) FlipPolicy() flip.Policy {
	p := flip.DefaultPolicy()
	f := c.Flip
	if f.SaleCostPct > 0 {
		p.Costs.SaleCostPct = decimal.NewFromFloat(f.SaleCostPct)
	}
	if f.PurchaseClosingPct > 0 {
		p.Costs.PurchaseClosingPct = decimal.NewFromFloat(f.PurchaseClosingPct)
	}
	if f.MonthlyHoldingCost > 0 {
		p.Costs.MonthlyHoldingCost = decimal.NewFromFloat(f.MonthlyHoldingCost)
	}
	if f.TargetProfitPct > 0 {
		p.Costs.TargetProfitPct = decimal.NewFromFloat(f.TargetProfitPct)
	}
	if f.DownPaymentPct > 0 {
		p.Costs.DownPaymentPct = decimal.NewFromFloat(f.DownPaymentPct)
	}
	if f.AnnualInterestPct > 0 {
		p.Costs.AnnualInterestPct = decimal.NewFromFloat(f.AnnualInterestPct)
	}
	return p
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|text", c.Log.Format)
	}

	// The policy overrides must produce engine-acceptable policies; catching
	// a bad rate table at startup beats catching it on the first request.
	if err := c.ValuationPolicy().Validate(); err != nil {
		return fmt.Errorf("config: valuation policy: %w", err)
	}
	if err := c.FlipPolicy().Validate(); err != nil {
		return fmt.Errorf("config: flip policy: %w", err)
	}
	return nil
}
