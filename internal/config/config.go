package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix of every environment variable read by Load
const Prefix = "NAVQC"

// Config holds the application configuration
type Config struct {
	OutputDir string `envconfig:"OUTPUT_DIR" default:"./out"`
	Compress  bool   `envconfig:"COMPRESS" default:"false"`
	Workers   int    `envconfig:"WORKERS" default:"4"`
	// Abort on the first undecodable record instead of skipping it
	Strict bool `envconfig:"STRICT" default:"false"`

	SpacingMeters float64 `envconfig:"SPACING_METERS" default:"16.666666666667"`
	UTMZone       int     `envconfig:"UTM_ZONE" default:"15"`
	Southern      bool    `envconfig:"SOUTHERN" default:"false"`
	Datum         string  `envconfig:"DATUM" default:"WGS84"`
	FillValue     string  `envconfig:"FILL_VALUE" default:"0"`

	// Optional sinks, empty disables
	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisAddr   string `envconfig:"REDIS_ADDR"`
	NATSURL     string `envconfig:"NATS_URL"`

	// How long the ledger remembers a processed file, 0 keeps it forever
	LedgerTTL time.Duration `envconfig:"LEDGER_TTL" default:"720h"`
	// Drop inputs from the ledger and process them again
	Reprocess bool `envconfig:"REPROCESS" default:"false"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load loads the configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%s_WORKERS must be at least 1, got %d", Prefix, c.Workers)
	}
	if c.SpacingMeters <= 0 {
		return fmt.Errorf("%s_SPACING_METERS must be positive, got %v", Prefix, c.SpacingMeters)
	}
	if c.UTMZone < 1 || c.UTMZone > 60 {
		return fmt.Errorf("%s_UTM_ZONE must be between 1 and 60, got %d", Prefix, c.UTMZone)
	}
	if c.LedgerTTL < 0 {
		return fmt.Errorf("%s_LEDGER_TTL must not be negative, got %s", Prefix, c.LedgerTTL)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("%s_LOG_FORMAT must be json or text, got %q", Prefix, c.LogFormat)
	}
	return nil
}
