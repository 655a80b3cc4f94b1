// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
	// Milliseconds to wait on a locked database before giving up.
	BusyTimeoutMS int `yaml:"busy_timeout_ms"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	TrustProxy        bool    `yaml:"trust_proxy"`
}

type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"ttl_seconds"`
}

type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"-"` // Loaded from environment
}

type EmailConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region"`
	Sender          string `yaml:"sender"`
	AccessKeyID     string `yaml:"-"` // Loaded from environment
	SecretAccessKey string `yaml:"-"` // Loaded from environment
}

type SchedulerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	NoShowCron string `yaml:"no_show_cron"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Cache     CacheConfig     `yaml:"cache"`
	Events    EventsConfig    `yaml:"events"`
	Email     EmailConfig     `yaml:"email"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// Default returns a configuration suitable for local development when no
// config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.App.Name = "leaguehq"
	cfg.App.Environment = "development"
	cfg.App.Port = 8080
	cfg.Database.Driver = "sqlite"
	cfg.Database.Filename = "build/data/leaguehq.db"
	cfg.Database.BusyTimeoutMS = 5000
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 10
	cfg.RateLimit.Burst = 30
	cfg.Cache.TTLSeconds = 30
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.NoShowCron = "*/10 * * * *"
	cfg.loadEnv()
	return cfg
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.loadEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnv fills in sensitive values from the environment.
func (c *Config) loadEnv() {
	c.Events.URL = os.Getenv("AMQP_URL")
	c.Email.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	c.Email.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.Filename == "" {
		return fmt.Errorf("database filename is required for sqlite")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("ratelimit requests_per_second must be positive")
	}
	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("AMQP_URL is required when events are enabled")
	}
	if c.Email.Enabled {
		if c.Email.Region == "" || c.Email.Sender == "" {
			return fmt.Errorf("email region and sender are required")
		}
		if c.Email.AccessKeyID == "" || c.Email.SecretAccessKey == "" {
			return fmt.Errorf("email credentials are required")
		}
	}
	if c.Scheduler.Enabled && c.Scheduler.NoShowCron == "" {
		return fmt.Errorf("scheduler no_show_cron is required")
	}
	return nil
}
