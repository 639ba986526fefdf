package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"` // Bound on one aggregation pass
	RateLimit       float64       `mapstructure:"rate_limit"`      // Requests per second, 0 = unlimited
	RateBurst       int           `mapstructure:"rate_burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AnalyticsConfig holds defaults for aggregation passes
type AnalyticsConfig struct {
	WindowDays int `mapstructure:"window_days"`
	TopN       int `mapstructure:"top_n"`
}

// AlertsConfig holds alert thresholds
type AlertsConfig struct {
	BudgetThreshold  float64 `mapstructure:"budget_threshold"`  // Per client per calendar month
	ApproachRatio    float64 `mapstructure:"approach_ratio"`    // 0 disables approaching-budget alerts
	QualityThreshold float64 `mapstructure:"quality_threshold"` // Minimum overall QA score
}

// MonitorConfig holds background evaluation configuration
type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"` // 0 disables the monitor
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	return unmarshal(v)
}

// LoadFromEnv loads configuration primarily from environment variables
func LoadFromEnv() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from .env file if it exists
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	// Database defaults
	v.SetDefault("database.path", "./data/voicemon.db")

	// Analytics defaults
	v.SetDefault("analytics.window_days", 7)
	v.SetDefault("analytics.top_n", 5)

	// Alert defaults
	v.SetDefault("alerts.budget_threshold", 100.0)
	v.SetDefault("alerts.approach_ratio", 0.8)
	v.SetDefault("alerts.quality_threshold", 70.0)

	// Monitor defaults
	v.SetDefault("monitor.interval", time.Minute)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// BindEnv errors are non-fatal but should be logged
	bindEnv := func(key string, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			slog.Warn("failed to bind environment variable",
				slog.String("key", key),
				slog.String("env_var", envVar),
				slog.String("error", err.Error()))
		}
	}

	bindEnv("database.path", "DATABASE_PATH")

	bindEnv("server.host", "SERVER_HOST")
	bindEnv("server.port", "SERVER_PORT")
	bindEnv("server.request_timeout", "SERVER_REQUEST_TIMEOUT")
	bindEnv("server.rate_limit", "SERVER_RATE_LIMIT")

	bindEnv("analytics.window_days", "ANALYTICS_WINDOW_DAYS")
	bindEnv("analytics.top_n", "ANALYTICS_TOP_N")

	bindEnv("alerts.budget_threshold", "ALERT_BUDGET_THRESHOLD")
	bindEnv("alerts.approach_ratio", "ALERT_APPROACH_RATIO")
	bindEnv("alerts.quality_threshold", "ALERT_QUALITY_THRESHOLD")

	bindEnv("monitor.interval", "MONITOR_INTERVAL")

	bindEnv("logging.level", "LOG_LEVEL")
	bindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", c.Server.Port)
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}

	if c.Analytics.WindowDays <= 0 {
		return fmt.Errorf("analytics window_days must be positive, got %d", c.Analytics.WindowDays)
	}

	if c.Analytics.TopN <= 0 {
		return fmt.Errorf("analytics top_n must be positive, got %d", c.Analytics.TopN)
	}

	if c.Alerts.BudgetThreshold <= 0 {
		return fmt.Errorf("alert budget_threshold must be positive")
	}

	if c.Alerts.ApproachRatio < 0 || c.Alerts.ApproachRatio >= 1 {
		return fmt.Errorf("alert approach_ratio must be in [0, 1), got %g", c.Alerts.ApproachRatio)
	}

	if c.Alerts.QualityThreshold < 0 || c.Alerts.QualityThreshold > 100 {
		return fmt.Errorf("alert quality_threshold must be between 0 and 100, got %g", c.Alerts.QualityThreshold)
	}

	if c.Monitor.Interval < 0 {
		return fmt.Errorf("monitor interval must not be negative")
	}

	return nil
}
