package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080, RateLimit: 10},
		Database:  DatabaseConfig{Path: "./data/voicemon.db"},
		Analytics: AnalyticsConfig{WindowDays: 7, TopN: 5},
		Alerts:    AlertsConfig{BudgetThreshold: 100, ApproachRatio: 0.8, QualityThreshold: 70},
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "./data/voicemon.db", cfg.Database.Path)
	assert.Equal(t, 7, cfg.Analytics.WindowDays)
	assert.Equal(t, 5, cfg.Analytics.TopN)
	assert.Equal(t, 100.0, cfg.Alerts.BudgetThreshold)
	assert.Equal(t, 0.8, cfg.Alerts.ApproachRatio)
	assert.Equal(t, 70.0, cfg.Alerts.QualityThreshold)
	assert.Equal(t, time.Minute, cfg.Monitor.Interval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_WithEnvVars(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_PATH", "/tmp/voice.db")
	t.Setenv("ALERT_BUDGET_THRESHOLD", "250")
	t.Setenv("ALERT_QUALITY_THRESHOLD", "75")
	t.Setenv("ANALYTICS_WINDOW_DAYS", "14")
	t.Setenv("MONITOR_INTERVAL", "30s")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/voice.db", cfg.Database.Path)
	assert.Equal(t, 250.0, cfg.Alerts.BudgetThreshold)
	assert.Equal(t, 75.0, cfg.Alerts.QualityThreshold)
	assert.Equal(t, 14, cfg.Analytics.WindowDays)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voicemon.yaml")
	content := `
server:
  port: 7070
alerts:
  budget_threshold: 500
  approach_ratio: 0
logging:
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 500.0, cfg.Alerts.BudgetThreshold)
	assert.Equal(t, 0.0, cfg.Alerts.ApproachRatio)
	assert.Equal(t, "text", cfg.Logging.Format)
	// Untouched keys keep defaults
	assert.Equal(t, 70.0, cfg.Alerts.QualityThreshold)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no database", func(c *Config) { c.Database.Path = "" }, "DATABASE_PATH"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "out of range"},
		{"negative rate", func(c *Config) { c.Server.RateLimit = -1 }, "rate limit"},
		{"zero window", func(c *Config) { c.Analytics.WindowDays = 0 }, "window_days"},
		{"zero top n", func(c *Config) { c.Analytics.TopN = 0 }, "top_n"},
		{"zero budget", func(c *Config) { c.Alerts.BudgetThreshold = 0 }, "budget_threshold"},
		{"ratio too high", func(c *Config) { c.Alerts.ApproachRatio = 1 }, "approach_ratio"},
		{"negative monitor interval", func(c *Config) { c.Monitor.Interval = -time.Second }, "monitor interval"},
		{"quality above 100", func(c *Config) { c.Alerts.QualityThreshold = 101 }, "quality_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
