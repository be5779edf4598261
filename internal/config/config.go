// Package config loads application configuration from file and environment
// and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	InputPath      string         `yaml:"input_path" mapstructure:"input_path"`
	OutputPath     string         `yaml:"output_path" mapstructure:"output_path"`
	MatchThreshold float64        `yaml:"match_threshold" mapstructure:"match_threshold"`
	Clean          CleanConfig    `yaml:"clean" mapstructure:"clean"`
	CrossRef       CrossRefConfig `yaml:"crossref" mapstructure:"crossref"`
	Cache          CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Server         ServerConfig   `yaml:"server" mapstructure:"server"`
	Log            LogConfig      `yaml:"log" mapstructure:"log"`
}

// CleanConfig configures the clean run.
type CleanConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// CrossRefConfig configures the metadata client.
type CrossRefConfig struct {
	BaseURL     string      `yaml:"base_url" mapstructure:"base_url"`
	Mailto      string      `yaml:"mailto" mapstructure:"mailto"`
	TimeoutSecs int         `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Rows        int         `yaml:"rows" mapstructure:"rows"`
	RateRPS     float64     `yaml:"rate_rps" mapstructure:"rate_rps"`
	RateBurst   int         `yaml:"rate_burst" mapstructure:"rate_burst"`
	Retry       RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig configures lookup retries.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
}

// CacheConfig configures the lookup cache backend.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, off
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	TTLHours    int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// ServerConfig configures serve mode.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLEANBIB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("input_path", "input.bib")
	v.SetDefault("output_path", "cleaned.bib")
	v.SetDefault("match_threshold", 0.80)
	v.SetDefault("clean.concurrency", 4)
	v.SetDefault("crossref.base_url", "https://api.crossref.org")
	v.SetDefault("crossref.timeout_secs", 30)
	v.SetDefault("crossref.rows", 5)
	v.SetDefault("crossref.rate_rps", 2.0)
	v.SetDefault("crossref.rate_burst", 2)
	v.SetDefault("crossref.retry.max_attempts", 3)
	v.SetDefault("crossref.retry.initial_backoff_ms", 500)
	v.SetDefault("crossref.retry.max_backoff_ms", 15000)
	v.SetDefault("crossref.retry.multiplier", 2.0)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "lookup-cache.db")
	v.SetDefault("cache.ttl_hours", 720)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.MatchThreshold < 0 || cfg.MatchThreshold > 1 {
		return nil, eris.Errorf("config: match_threshold %v outside [0,1]", cfg.MatchThreshold)
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
