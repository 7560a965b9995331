package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YuTeChang/VibeBadminton-sub000/internal/observability"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	Recalculation RecalculationConfig `yaml:"recalculation"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	DurablePrefix string `yaml:"durable_prefix"`
}

// HTTPConfig holds the ops server settings (/healthz, /readyz, /ws).
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// RecalculationConfig tunes the background replay queue.
type RecalculationConfig struct {
	QueueWorkers  int           `yaml:"queue_workers"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	RatePerMinute int           `yaml:"rate_per_minute"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	JSONLogs       bool   `yaml:"json_logs"`
	Debug          bool   `yaml:"debug"`
}

// LoadConfig loads the configuration from a YAML file, then applies environment
// overrides. A missing file falls back to environment-only loading.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS_URL environment variable not set")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.Observability.JSONLogs = v == "true"
	}
	if v := os.Getenv("RECALC_QUEUE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RECALC_QUEUE_WORKERS value: %w", err)
		}
		cfg.Recalculation.QueueWorkers = n
	}
	if v := os.Getenv("RECALC_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RECALC_SWEEP_INTERVAL value: %w", err)
		}
		cfg.Recalculation.SweepInterval = d
	}
	if v := os.Getenv("RECALC_RATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RECALC_RATE_PER_MINUTE value: %w", err)
		}
		cfg.Recalculation.RatePerMinute = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.NATS.StreamName == "" {
		c.NATS.StreamName = "STATS"
	}
	if c.NATS.DurablePrefix == "" {
		c.NATS.DurablePrefix = "statsd"
	}
	if c.Recalculation.QueueWorkers == 0 {
		c.Recalculation.QueueWorkers = 4
	}
	if c.Recalculation.RatePerMinute == 0 {
		c.Recalculation.RatePerMinute = 2
	}
	if c.Recalculation.JobTimeout == 0 {
		c.Recalculation.JobTimeout = 5 * time.Minute
	}
}

// ToObsConfig maps the application config onto the observability package.
func ToObsConfig(appCfg *Config) observability.Config {
	return observability.Config{
		ServiceName: "statsd",
		Environment: appCfg.Observability.Environment,
		JSONLogs:    appCfg.Observability.JSONLogs,
		Debug:       appCfg.Observability.Debug,
	}
}
