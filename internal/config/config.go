package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Environment    string               `mapstructure:"environment"`
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
	Venues         VenuesConfig         `mapstructure:"venues"`
	Fees           FeesConfig           `mapstructure:"fees"`
	Arbitrage      ArbitrageConfig      `mapstructure:"arbitrage"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Telegram       TelegramConfig       `mapstructure:"telegram"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level        string `mapstructure:"level"`
	Format       string `mapstructure:"format"`
	Output       string `mapstructure:"output"`
	MaxSizeMB    int    `mapstructure:"max_size_mb"`
	MaxAgeDays   int    `mapstructure:"max_age_days"`
	MaxBackups   int    `mapstructure:"max_backups"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type VenuesConfig struct {
	Nobitex VenueConfig `mapstructure:"nobitex"`
	Wallex  VenueConfig `mapstructure:"wallex"`
}

// VenueConfig holds the transport and unit settings of one venue.
// ScaleFactors is keyed by quote asset, PriceDivisors by base asset.
type VenueConfig struct {
	BaseURL           string             `mapstructure:"base_url"`
	Timeout           time.Duration      `mapstructure:"timeout"`
	RequestsPerSecond float64            `mapstructure:"requests_per_second"`
	Burst             int                `mapstructure:"burst"`
	TakerFee          float64            `mapstructure:"taker_fee"`
	MakerFee          float64            `mapstructure:"maker_fee"`
	ScaleFactors      map[string]float64 `mapstructure:"scale_factors"`
	PriceDivisors     map[string]float64 `mapstructure:"price_divisors"`
}

type FeesConfig struct {
	WithdrawalTablePath string `mapstructure:"withdrawal_table_path"`
}

type ArbitrageConfig struct {
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	CycleTimeout      time.Duration `mapstructure:"cycle_timeout"`
	DefaultInvestment string        `mapstructure:"default_investment"`
	RetentionWindow   time.Duration `mapstructure:"retention_window"`
	SortField         string        `mapstructure:"sort_field"`
	SortOrder         string        `mapstructure:"sort_order"`

	// Investment is DefaultInvestment parsed during Load.
	Investment decimal.Decimal `mapstructure:"-"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRequests      int           `mapstructure:"max_requests"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	DatabaseURL     string        `mapstructure:"database_url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type TelegramConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	BotToken        string        `mapstructure:"bot_token" json:"-" yaml:"-"`
	ChatID          int64         `mapstructure:"chat_id"`
	ProfitThreshold string        `mapstructure:"profit_threshold"`
	DiffThreshold   string        `mapstructure:"diff_threshold"`
	AlertWindow     time.Duration `mapstructure:"alert_window"`

	// MinNetProfit and MinDifference are the parsed thresholds.
	MinNetProfit  decimal.Decimal `mapstructure:"-"`
	MinDifference decimal.Decimal `mapstructure:"-"`
}

// AlertsEnabled reports whether the Telegram collaborator can be built.
func (t TelegramConfig) AlertsEnabled() bool {
	return t.Enabled && t.BotToken != "" && t.ChatID != 0
}

// DSN returns DatabaseURL when set, otherwise a key/value connection string.
func (d DatabaseConfig) DSN() string {
	if d.DatabaseURL != "" {
		return d.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Addr returns the host:port of the Redis server.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads config.yaml from ./configs or the working directory, applies
// defaults and environment overrides, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	return load(v, true)
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v, false)
}

func load(v *viper.Viper, optional bool) (*Config, error) {
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !optional || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config.Environment = strings.ToLower(config.Environment)
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	if c.Arbitrage.RefreshInterval <= 0 {
		return fmt.Errorf("arbitrage.refresh_interval must be positive, got %s", c.Arbitrage.RefreshInterval)
	}
	if c.Arbitrage.CycleTimeout < 0 {
		return fmt.Errorf("arbitrage.cycle_timeout must not be negative, got %s", c.Arbitrage.CycleTimeout)
	}
	if c.Arbitrage.RetentionWindow <= 0 {
		return fmt.Errorf("arbitrage.retention_window must be positive, got %s", c.Arbitrage.RetentionWindow)
	}

	investment, err := decimal.NewFromString(c.Arbitrage.DefaultInvestment)
	if err != nil {
		return fmt.Errorf("invalid arbitrage.default_investment %q: %w", c.Arbitrage.DefaultInvestment, err)
	}
	if !investment.IsPositive() {
		return fmt.Errorf("arbitrage.default_investment must be positive, got %s", investment)
	}
	c.Arbitrage.Investment = investment

	for name, venue := range map[string]VenueConfig{"nobitex": c.Venues.Nobitex, "wallex": c.Venues.Wallex} {
		if err := venue.validate(); err != nil {
			return fmt.Errorf("venues.%s: %w", name, err)
		}
	}

	if c.Telegram.MinNetProfit, err = parseThreshold(c.Telegram.ProfitThreshold); err != nil {
		return fmt.Errorf("invalid telegram.profit_threshold: %w", err)
	}
	if c.Telegram.MinDifference, err = parseThreshold(c.Telegram.DiffThreshold); err != nil {
		return fmt.Errorf("invalid telegram.diff_threshold: %w", err)
	}
	if c.Telegram.AlertWindow <= 0 {
		return fmt.Errorf("telegram.alert_window must be positive, got %s", c.Telegram.AlertWindow)
	}

	if c.CircuitBreaker.FailureThreshold <= 0 {
		return fmt.Errorf("circuit_breaker.failure_threshold must be positive, got %d", c.CircuitBreaker.FailureThreshold)
	}
	return nil
}

func (v VenueConfig) validate() error {
	if v.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if v.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", v.Timeout)
	}
	if v.TakerFee < 0 || v.MakerFee < 0 {
		return fmt.Errorf("fees must not be negative, got taker=%v maker=%v", v.TakerFee, v.MakerFee)
	}
	for asset, f := range v.ScaleFactors {
		if f <= 0 {
			return fmt.Errorf("scale factor for %s must be positive, got %v", asset, f)
		}
	}
	for asset, d := range v.PriceDivisors {
		if d <= 0 {
			return fmt.Errorf("price divisor for %s must be positive, got %v", asset, d)
		}
	}
	return nil
}

func parseThreshold(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

func setDefaults(v *viper.Viper) {
	// Environment
	v.SetDefault("environment", "development")

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_age_days", 7)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.otlp_endpoint", "")

	// Telemetry
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "rial-arbitrage")
	v.SetDefault("telemetry.sample_ratio", 1.0)

	// Venues
	v.SetDefault("venues.nobitex.base_url", "https://api.nobitex.ir")
	v.SetDefault("venues.nobitex.timeout", "10s")
	v.SetDefault("venues.nobitex.requests_per_second", 1.0)
	v.SetDefault("venues.nobitex.burst", 2)
	v.SetDefault("venues.nobitex.taker_fee", 0.0025)
	v.SetDefault("venues.nobitex.maker_fee", 0.0015)
	v.SetDefault("venues.nobitex.scale_factors", map[string]float64{})
	v.SetDefault("venues.nobitex.price_divisors", map[string]float64{"shib": 1000})

	v.SetDefault("venues.wallex.base_url", "https://api.wallex.ir")
	v.SetDefault("venues.wallex.timeout", "10s")
	v.SetDefault("venues.wallex.requests_per_second", 1.0)
	v.SetDefault("venues.wallex.burst", 2)
	v.SetDefault("venues.wallex.taker_fee", 0.0025)
	v.SetDefault("venues.wallex.maker_fee", 0.0020)
	v.SetDefault("venues.wallex.scale_factors", map[string]float64{"rls": 10})
	v.SetDefault("venues.wallex.price_divisors", map[string]float64{})

	// Fees
	v.SetDefault("fees.withdrawal_table_path", "configs/withdrawal_fees.yaml")

	// Arbitrage
	v.SetDefault("arbitrage.refresh_interval", "30s")
	v.SetDefault("arbitrage.cycle_timeout", "0s")
	v.SetDefault("arbitrage.default_investment", "100000000")
	v.SetDefault("arbitrage.retention_window", "1h")
	v.SetDefault("arbitrage.sort_field", "gross_percent")
	v.SetDefault("arbitrage.sort_order", "desc")

	// Circuit breaker
	v.SetDefault("circuit_breaker.failure_threshold", 5)
	v.SetDefault("circuit_breaker.success_threshold", 1)
	v.SetDefault("circuit_breaker.timeout", "60s")
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.reset_timeout", "300s")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Database
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "rial_arbitrage")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.database_url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "300s")
	v.SetDefault("database.conn_max_idle_time", "60s")

	// Telegram
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.profit_threshold", "0")
	v.SetDefault("telegram.diff_threshold", "15000")
	v.SetDefault("telegram.alert_window", "10m")
}
