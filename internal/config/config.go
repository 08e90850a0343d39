// Package config loads and validates the application configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig represents the complete application configuration.
type AppConfig struct {
	// Logger — logging configuration
	Logger LoggerConfig `mapstructure:"logger"`
	// Source — inventory listing endpoint
	Source SourceConfig `mapstructure:"source"`
	// Postgres — history database
	Postgres PostgresConfig `mapstructure:"postgres"`
	// Clickhouse — raw snapshot archive (optional)
	Clickhouse ClickhouseConfig `mapstructure:"clickhouse"`
	// Kafka — change event publishing (optional)
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Scheduler — daily run loop
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	// Server — HTTP API
	Server ServerConfig `mapstructure:"server"`
	// Preferences — scoring preference profile
	Preferences PreferencesConfig `mapstructure:"preferences"`
	// Export — report output
	Export ExportConfig `mapstructure:"export"`
	// Notify — run summary webhook (optional)
	Notify NotifyConfig `mapstructure:"notify"`
}

// LoggerConfig defines logging settings.
type LoggerConfig struct {
	// Level — log level: debug, info, warn, warning, error.
	Level string `mapstructure:"level"`
	// File — log file path. Empty means stdout only.
	File string `mapstructure:"file"`
	// MaxSizeMB — maximum log file size in MB before rotation.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups — number of rotated files to keep.
	MaxBackups int `mapstructure:"max_backups"`
}

// SourceConfig points at the inventory listing endpoint.
type SourceConfig struct {
	// BaseURL — inventory API base, e.g. "https://inventory.example.com/api".
	BaseURL string `mapstructure:"base_url"`
}

// PostgresConfig contains history database parameters.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ClickhouseConfig contains snapshot archive parameters. An empty DSN
// disables archiving.
type ClickhouseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// KafkaConfig contains change event publishing parameters. Empty brokers
// disable publishing.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// SchedulerConfig defines the daily run loop.
type SchedulerConfig struct {
	// CheckInterval — how often the loop wakes up to see whether a run is
	// due. Example: "10m".
	CheckInterval time.Duration `mapstructure:"check_interval"`
	// RunAfter — earliest local time of day a run may start, "HH:MM".
	RunAfter string `mapstructure:"run_after"`
}

// ServerConfig contains HTTP server parameters.
type ServerConfig struct {
	// Address — address and port where the server will listen (e.g., ":8080").
	Address string `mapstructure:"address"`
}

// PreferencesConfig points at the scoring preference profile.
type PreferencesConfig struct {
	// Profile — path to a JSON file with the desired equipment list.
	Profile string `mapstructure:"profile"`
}

// ExportConfig defines report output.
type ExportConfig struct {
	// Dir — directory the CSV and JSON exports are written to.
	Dir string `mapstructure:"dir"`
}

// NotifyConfig defines the run summary webhook. An empty URL disables it.
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// Validate checks the correctness of the entire application configuration.
// Returns nil if the configuration is valid.
func (c *AppConfig) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Postgres.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks the logger configuration. Supported levels: debug, info,
// warn, warning, error (case-insensitive).
func (l *LoggerConfig) Validate() error {
	if l.Level == "" {
		return errors.New("logger.level: must be specified")
	}

	valid := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !valid[strings.ToLower(l.Level)] {
		return fmt.Errorf("logger.level: unsupported level '%s'", l.Level)
	}

	if l.File != "" {
		if l.MaxSizeMB == 0 {
			l.MaxSizeMB = 50
		}
		if l.MaxBackups == 0 {
			l.MaxBackups = 10
		}
	}
	return nil
}

// Validate checks the source configuration.
func (s *SourceConfig) Validate() error {
	if s.BaseURL == "" {
		return errors.New("source.base_url: must be specified")
	}
	return nil
}

// Validate checks the history database configuration.
func (p *PostgresConfig) Validate() error {
	if p.DSN == "" {
		return errors.New("postgres.dsn: must be specified")
	}
	return nil
}

// Validate checks the scheduler configuration and applies defaults.
func (s *SchedulerConfig) Validate() error {
	if s.CheckInterval == 0 {
		s.CheckInterval = 10 * time.Minute
	}
	if s.RunAfter == "" {
		s.RunAfter = "06:00"
	}
	if _, err := time.Parse("15:04", s.RunAfter); err != nil {
		return fmt.Errorf("scheduler.run_after: want HH:MM, got '%s'", s.RunAfter)
	}
	return nil
}

// Validate checks the server configuration.
func (n *ServerConfig) Validate() error {
	if n.Address == "" {
		return errors.New("server.address: must be specified")
	}
	return nil
}

// LoadConfig loads configuration from the specified file using Viper.
// Supports YAML format. Environment variables (AutomaticEnv) can override
// values from the file.
func LoadConfig(configPath string) (*AppConfig, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config AppConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
