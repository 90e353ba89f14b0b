package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/report"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Upload  UploadConfig  `yaml:"upload"`
	Report  ReportConfig  `yaml:"report"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// SessionConfig selects where dashboard sessions live.
type SessionConfig struct {
	Store      string `yaml:"store"` // "memory" or "redis"
	TTLMinutes int    `yaml:"ttl_minutes"`
	RedisURL   string `yaml:"redis_url"`
	CookieName string `yaml:"cookie_name"`
}

// TTL returns the session lifetime as a duration
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// UploadConfig bounds uploaded spreadsheets.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// ReportConfig holds presentation settings
type ReportConfig struct {
	Brand         string  `yaml:"brand"`
	Currency      string  `yaml:"currency"`
	AIAssistURL   string  `yaml:"ai_assist_url"`
	ExcellentRate float64 `yaml:"excellent_rate"` // percent
	GoodRate      float64 `yaml:"good_rate"`      // percent
	PreviewRows   int     `yaml:"preview_rows"`
	DateFormat    string  `yaml:"date_format"`
}

// Options converts the config section into report options.
func (c ReportConfig) Options() report.Options {
	return report.Options{
		Brand:         c.Brand,
		Currency:      c.Currency,
		AIAssistURL:   c.AIAssistURL,
		ExcellentRate: c.ExcellentRate,
		GoodRate:      c.GoodRate,
		PreviewRows:   c.PreviewRows,
		DateFormat:    c.DateFormat,
	}
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	defaults := report.DefaultOptions()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:8080"}
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = "memory"
	}
	if cfg.Session.TTLMinutes == 0 {
		cfg.Session.TTLMinutes = 120
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "convdash_session"
	}
	if cfg.Upload.MaxBytes == 0 {
		cfg.Upload.MaxBytes = 32 << 20
	}
	if cfg.Report.Brand == "" {
		cfg.Report.Brand = defaults.Brand
	}
	if cfg.Report.Currency == "" {
		cfg.Report.Currency = defaults.Currency
	}
	if cfg.Report.AIAssistURL == "" {
		cfg.Report.AIAssistURL = defaults.AIAssistURL
	}
	if cfg.Report.ExcellentRate == 0 {
		cfg.Report.ExcellentRate = defaults.ExcellentRate
	}
	if cfg.Report.GoodRate == 0 {
		cfg.Report.GoodRate = defaults.GoodRate
	}
	if cfg.Report.PreviewRows == 0 {
		cfg.Report.PreviewRows = defaults.PreviewRows
	}
	if cfg.Report.DateFormat == "" {
		cfg.Report.DateFormat = defaults.DateFormat
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars.
// A missing config file is not an error; defaults are used instead.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SESSION_STORE"); v != "" {
		cfg.Session.Store = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Session.RedisURL = v
		if os.Getenv("SESSION_STORE") == "" {
			cfg.Session.Store = "redis"
		}
	}
	if v := os.Getenv("AI_ASSIST_URL"); v != "" {
		cfg.Report.AIAssistURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}
