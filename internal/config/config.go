package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfiguration wraps every configuration error
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Supported values
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"

	CartBackendMemory = "memory"
	CartBackendRedis  = "redis"

	TracingNone   = "none"
	TracingStdout = "stdout"
)

// Config holds all configuration of the bookstore server.
// Layers are applied in order, later layers winning:
//  1. Defaults
//  2. YAML or JSON file named by BOOKSTORE_CONFIG
//  3. Environment variables (BOOKSTORE_*)
//  4. Functional options
type Config struct {
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Cart      CartConfig      `yaml:"cart" json:"cart"`
	Catalog   CatalogConfig   `yaml:"catalog" json:"catalog"`
	Accounts  AccountsConfig  `yaml:"accounts" json:"accounts"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// DatabaseConfig selects the relational store
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"` // sqlite, postgres or pgx
	DSN    string `yaml:"dsn" json:"dsn"`       // Connection string for server databases
	Path   string `yaml:"path" json:"path"`     // SQLite file, used when DSN is empty
}

// DataSource returns the dsn handed to the driver
func (d DatabaseConfig) DataSource() string {
	if d.DSN != "" {
		return d.DSN
	}
	return d.Path
}

// CartConfig selects where session carts live
type CartConfig struct {
	Backend     string        `yaml:"backend" json:"backend"` // memory or redis
	RedisURL    string        `yaml:"redis_url" json:"redis_url"`
	RedisPrefix string        `yaml:"redis_prefix" json:"redis_prefix"`
	TTL         time.Duration `yaml:"ttl" json:"ttl"`
	MaxSessions int           `yaml:"max_sessions" json:"max_sessions"`
}

// CatalogConfig controls catalog seeding
type CatalogConfig struct {
	SeedFile      string `yaml:"seed_file" json:"seed_file"` // Imported at startup when set
	ImportWorkers int    `yaml:"import_workers" json:"import_workers"`
}

// AccountsConfig controls password hashing
type AccountsConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" json:"bcrypt_cost"`
}

// LoggingConfig controls the slog handler
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // text or json
}

// TelemetryConfig controls tracing
type TelemetryConfig struct {
	Tracing     string `yaml:"tracing" json:"tracing"` // none or stdout
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// Option is a functional option applied after file and environment layers
type Option func(*Config) error

// DefaultConfig returns a configuration that runs a local SQLite store with
// in-memory carts.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "bookstore.db",
		},
		Cart: CartConfig{
			Backend:     CartBackendMemory,
			RedisPrefix: "bookstore:cart:",
			TTL:         24 * time.Hour,
			MaxSessions: 10000,
		},
		Catalog: CatalogConfig{
			ImportWorkers: 4,
		},
		Accounts: AccountsConfig{
			BcryptCost: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Tracing:     TracingNone,
			ServiceName: "bookstore-mcp",
		},
	}
}

// LoadFromEnv overrides fields from BOOKSTORE_* variables. REDIS_URL is
// honored when BOOKSTORE_REDIS_URL is not set.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("BOOKSTORE_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("BOOKSTORE_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("BOOKSTORE_DB_PATH"); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv("BOOKSTORE_CART_BACKEND"); v != "" {
		c.Cart.Backend = v
	}
	if v := os.Getenv("BOOKSTORE_REDIS_URL"); v != "" {
		c.Cart.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cart.RedisURL = v
	}
	if v := os.Getenv("BOOKSTORE_CART_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BOOKSTORE_CART_TTL: %w", ErrInvalidConfiguration)
		}
		c.Cart.TTL = d
	}
	if v := os.Getenv("BOOKSTORE_CART_MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOOKSTORE_CART_MAX_SESSIONS: %w", ErrInvalidConfiguration)
		}
		c.Cart.MaxSessions = n
	}

	if v := os.Getenv("BOOKSTORE_CATALOG_SEED"); v != "" {
		c.Catalog.SeedFile = v
	}
	if v := os.Getenv("BOOKSTORE_IMPORT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Catalog.ImportWorkers = n
		}
	}
	if v := os.Getenv("BOOKSTORE_BCRYPT_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Accounts.BcryptCost = n
		}
	}

	if v := os.Getenv("BOOKSTORE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BOOKSTORE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("BOOKSTORE_TRACING"); v != "" {
		c.Telemetry.Tracing = v
	}

	return nil
}

// LoadFromFile reads a YAML (.yaml, .yml) or JSON (.json) file over c.
// Fields absent from the file keep their current values.
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %v: %w", err, ErrInvalidConfiguration)
		}
	case ".json":
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %v: %w", err, ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}
	return nil
}

// Validate checks the final configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.DataSource() == "" {
			return fmt.Errorf("sqlite needs a path or dsn: %w", ErrInvalidConfiguration)
		}
	case DriverPostgres, DriverPgx:
		if c.Database.DSN == "" {
			return fmt.Errorf("%s driver needs a dsn: %w", c.Database.Driver, ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("unsupported database driver %q: %w", c.Database.Driver, ErrInvalidConfiguration)
	}

	switch c.Cart.Backend {
	case CartBackendMemory:
		if c.Cart.MaxSessions <= 0 {
			return fmt.Errorf("cart max sessions must be positive: %w", ErrInvalidConfiguration)
		}
	case CartBackendRedis:
		if c.Cart.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis cart backend: %w", ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("unsupported cart backend %q: %w", c.Cart.Backend, ErrInvalidConfiguration)
	}
	if c.Cart.TTL < 0 {
		return fmt.Errorf("cart TTL cannot be negative: %w", ErrInvalidConfiguration)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q: %w", c.Logging.Format, ErrInvalidConfiguration)
	}

	switch c.Telemetry.Tracing {
	case TracingNone, TracingStdout, "":
	default:
		return fmt.Errorf("unsupported tracing exporter %q: %w", c.Telemetry.Tracing, ErrInvalidConfiguration)
	}

	if c.Accounts.BcryptCost < 4 || c.Accounts.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost %d out of range: %w", c.Accounts.BcryptCost, ErrInvalidConfiguration)
	}
	return nil
}

// WithDatabase sets the driver and dsn
func WithDatabase(driver, dsn string) Option {
	return func(c *Config) error {
		c.Database.Driver = driver
		c.Database.DSN = dsn
		return nil
	}
}

// WithDatabasePath sets the SQLite file path
func WithDatabasePath(path string) Option {
	return func(c *Config) error {
		c.Database.Path = path
		return nil
	}
}

// WithRedisCart stores carts in Redis at url
func WithRedisCart(url string) Option {
	return func(c *Config) error {
		if url == "" {
			return fmt.Errorf("redis URL cannot be empty: %w", ErrInvalidConfiguration)
		}
		c.Cart.Backend = CartBackendRedis
		c.Cart.RedisURL = url
		return nil
	}
}

// WithCartTTL sets how long idle carts live
func WithCartTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		c.Cart.TTL = ttl
		return nil
	}
}

// WithLogLevel sets the minimum log level (debug, info, warn, error)
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogFormat sets the log format (text or json)
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = format
		return nil
	}
}

// WithTracing sets the tracing exporter
func WithTracing(exporter string) Option {
	return func(c *Config) error {
		c.Telemetry.Tracing = exporter
		return nil
	}
}

// WithCatalogSeed imports path at startup
func WithCatalogSeed(path string) Option {
	return func(c *Config) error {
		c.Catalog.SeedFile = path
		return nil
	}
}

// WithConfigFile layers the file at path before the remaining options
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// New builds a configuration from defaults, the BOOKSTORE_CONFIG file,
// the environment and opts, then validates it.
func New(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("BOOKSTORE_CONFIG"); path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
