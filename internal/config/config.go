// Package config provides configuration management for the portfolio tracker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "portfolio-tracker/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig    `mapstructure:"server"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Refresh     RefreshConfig   `mapstructure:"refresh"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Log         LogFileConfig   `mapstructure:"log"`
	Credentials Credentials     `mapstructure:"-"` // Loaded separately
}

// ServerConfig holds HTTP and WebSocket server configuration.
type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	WSPort int    `mapstructure:"ws_port"`
	DBPath string `mapstructure:"db_path"`
}

// CacheConfig holds cache TTL configuration.
type CacheConfig struct {
	QuoteTTL   time.Duration `mapstructure:"quote_ttl"`
	CompanyTTL time.Duration `mapstructure:"company_ttl"`
	Sweep      time.Duration `mapstructure:"sweep"`
}

// RefreshConfig holds the scheduled refresh configuration.
type RefreshConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	BatchDelay time.Duration `mapstructure:"batch_delay"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	Window time.Duration `mapstructure:"window"`
	Max    int           `mapstructure:"max"`
}

// LogFileConfig holds logging configuration from the config file.
type LogFileConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// Credentials holds upstream API credentials.
type Credentials struct {
	Polygon      PolygonCredentials      `mapstructure:"polygon"`
	AlphaVantage AlphaVantageCredentials `mapstructure:"alphavantage"`
	OpenAI       OpenAICredentials       `mapstructure:"openai"`
}

// PolygonCredentials holds the Polygon API key.
type PolygonCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// AlphaVantageCredentials holds the Alpha Vantage API key.
type AlphaVantageCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// OpenAICredentials holds the OpenAI API key.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// DefaultConfigDir returns the configuration directory.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "portfolio-tracker")
}

// Load loads configuration from the default directory.
func Load() (*Config, error) {
	return LoadFromDir(DefaultConfigDir())
}

// LoadFromDir loads configuration from the given directory. Missing
// config files are created as templates and defaults are used.
func LoadFromDir(configDir string) (*Config, error) {
	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir); err != nil {
				return err
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.ws_port", 3002)
	v.SetDefault("cache.quote_ttl", "300s")
	v.SetDefault("cache.company_ttl", "1h")
	v.SetDefault("cache.sweep", "1m")
	v.SetDefault("refresh.interval", "5m")
	v.SetDefault("refresh.batch_delay", "100ms")
	v.SetDefault("rate_limit.window", "15m")
	v.SetDefault("rate_limit.max", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", true)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Credentials.Polygon.APIKey = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_KEY"); v != "" {
		cfg.Credentials.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WS_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.WSPort = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = filepath.Join(DefaultConfigDir(), "cache.db")
	}
	if cfg.Credentials.OpenAI.Model == "" {
		cfg.Credentials.OpenAI.Model = "gpt-3.5-turbo"
	}
}

// Validate validates the configuration. Every failure wraps
// ErrConfigInvalid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port must be between 1 and 65535", apperrors.ErrConfigInvalid)
	}
	if c.Server.WSPort <= 0 || c.Server.WSPort > 65535 {
		return fmt.Errorf("%w: websocket port must be between 1 and 65535", apperrors.ErrConfigInvalid)
	}
	if c.Server.Port == c.Server.WSPort {
		return fmt.Errorf("%w: server and websocket ports must differ", apperrors.ErrConfigInvalid)
	}
	if c.Cache.QuoteTTL <= 0 {
		return fmt.Errorf("%w: quote_ttl must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Cache.CompanyTTL <= 0 {
		return fmt.Errorf("%w: company_ttl must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("%w: refresh interval must be positive", apperrors.ErrConfigInvalid)
	}
	if c.RateLimit.Max <= 0 {
		return fmt.Errorf("%w: rate_limit max must be positive", apperrors.ErrConfigInvalid)
	}
	return nil
}
