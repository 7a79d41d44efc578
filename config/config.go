/*
Package config resolves server configuration.

PRECEDENCE (lowest to highest):
  1. Defaults
  2. .env file in the working directory (if present)
  3. Environment variables (REVENUE_*)
  4. Command-line flags

ENVIRONMENT:
  REVENUE_HTTP_PORT        HTTP port (8080)
  REVENUE_DB_DRIVER        sqlite | postgres (sqlite)
  REVENUE_DB_DSN           SQLite path or PostgreSQL URL (revenue.db)
  REVENUE_LOG_LEVEL        debug | info | warn | error (info)
  REVENUE_LOG_FORMAT       json | console (json)
  REVENUE_ENVIRONMENT      development | production (development)
  REVENUE_CURRENCY         ISO-4217 code for all amounts (USD)
  REVENUE_DO_TOLERANCE     Division-order unity tolerance (0.000001)
  REVENUE_PRICING_CONFIG   YAML file with thresholds and region premiums
  REVENUE_AUDIT_INTERVAL   Division-order audit period, 0 disables (1h)

FLAGS:
  -port    Overrides REVENUE_HTTP_PORT
  -db      Overrides REVENUE_DB_DSN
  -driver  Overrides REVENUE_DB_DRIVER
  -pricing Overrides REVENUE_PRICING_CONFIG
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/observability/logger"
	"github.com/warp/revenue-engine/pricing"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPPort        int
	ShutdownTimeout time.Duration

	DBDriver string
	DBDSN    string

	LogLevel  string
	LogFormat string

	Currency          generic.Currency
	DOTolerance       decimal.Decimal
	PricingConfigPath string
	AuditInterval     time.Duration
}

// Load resolves configuration. args excludes the program name.
func Load(args []string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("REVENUE_SERVICE", "revenue-engine"),
		AppVersion:        getenv("REVENUE_VERSION", "0.1.0"),
		Environment:       getenv("REVENUE_ENVIRONMENT", "development"),
		HTTPPort:          getenvInt("REVENUE_HTTP_PORT", 8080),
		ShutdownTimeout:   30 * time.Second,
		DBDriver:          strings.ToLower(getenv("REVENUE_DB_DRIVER", DriverSQLite)),
		DBDSN:             getenv("REVENUE_DB_DSN", "revenue.db"),
		LogLevel:          getenv("REVENUE_LOG_LEVEL", "info"),
		LogFormat:         getenv("REVENUE_LOG_FORMAT", "json"),
		Currency:          generic.Currency(strings.ToUpper(getenv("REVENUE_CURRENCY", string(generic.CurrencyUSD)))),
		PricingConfigPath: getenv("REVENUE_PRICING_CONFIG", ""),
		AuditInterval:     getenvDuration("REVENUE_AUDIT_INTERVAL", time.Hour),
	}

	tolerance := getenv("REVENUE_DO_TOLERANCE", "0.000001")
	var err error
	if cfg.DOTolerance, err = decimal.NewFromString(tolerance); err != nil {
		return Config{}, fmt.Errorf("REVENUE_DO_TOLERANCE: %w", err)
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.IntVar(&cfg.HTTPPort, "port", cfg.HTTPPort, "HTTP server port")
	fs.StringVar(&cfg.DBDSN, "db", cfg.DBDSN, "Database DSN (SQLite path or PostgreSQL URL)")
	fs.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "Database driver: sqlite or postgres")
	fs.StringVar(&cfg.PricingConfigPath, "pricing", cfg.PricingConfigPath, "Pricing YAML file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http port %d out of range", c.HTTPPort))
	}
	if c.DBDriver != DriverSQLite && c.DBDriver != DriverPostgres {
		errs = append(errs, fmt.Errorf("unknown db driver %q", c.DBDriver))
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		errs = append(errs, errors.New("db dsn is required"))
	}
	if !c.DOTolerance.IsPositive() {
		errs = append(errs, fmt.Errorf("division order tolerance must be positive, got %s", c.DOTolerance))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("currency %q is not an ISO-4217 code", c.Currency))
	}
	return errors.Join(errs...)
}

// Logger maps to the logger package's config.
func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName:         c.AppName,
		Environment:         c.Environment,
		Version:             c.AppVersion,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		IncludeCaller:       true,
		IncludeStackOnError: c.Environment != "production",
	}
}

// Pricing loads the YAML file when one is configured.
func (c Config) Pricing() (pricing.Config, error) {
	if c.PricingConfigPath == "" {
		return pricing.DefaultConfig(), nil
	}
	return pricing.LoadConfig(c.PricingConfigPath)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
