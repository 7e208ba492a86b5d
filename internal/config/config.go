package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Bucknalla/go-vehicle-tracker/track"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Common errors returned by configuration loading
var (
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrInvalidInterval        = errors.New("default interval must be between 50ms and 1m")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
)

// Config holds the tracker server configuration. The YAML file is optional;
// environment variables override it and PORT must always be set.
type Config struct {
	Port            int           `yaml:"-" env:"PORT,required" validate:"gt=0,lte=65535"`
	DataFile        string        `yaml:"data_file" env:"TRACKER_DATA_FILE" validate:"required"`
	WatchData       bool          `yaml:"watch_data" env:"TRACKER_WATCH_DATA"`
	StaticDir       string        `yaml:"static_dir" env:"TRACKER_STATIC_DIR"`
	DefaultInterval time.Duration `yaml:"default_interval" env:"TRACKER_DEFAULT_INTERVAL"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"TRACKER_ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"TRACKER_SHUTDOWN_TIMEOUT"`
	Log             LogConfig     `yaml:"log" envPrefix:"TRACKER_LOG_"`
}

// LogConfig controls the root logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" validate:"oneof=trace debug info warn error"`
	Pretty bool   `yaml:"pretty" env:"PRETTY"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		DataFile:        "data/route.json",
		WatchData:       true,
		DefaultInterval: track.DefaultInterval,
		ShutdownTimeout: 10 * time.Second,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped when
// path is empty) and the environment, in that order, then validates it.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid and returns an error if not
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.DefaultInterval < track.MinInterval || c.DefaultInterval > track.MaxInterval {
		return ErrInvalidInterval
	}
	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}
	return nil
}

// Addr returns the listen address for Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
