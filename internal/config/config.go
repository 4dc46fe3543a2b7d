package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig    `yaml:"store" mapstructure:"store"`
	Anthropic  ProviderConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     ProviderConfig `yaml:"openai" mapstructure:"openai"`
	Gemini     ProviderConfig `yaml:"gemini" mapstructure:"gemini"`
	Perplexity ProviderConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Fetch      FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Batch      BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig   `yaml:"server" mapstructure:"server"`
	Log        LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ProviderConfig holds one LLM provider's API settings. A provider with an
// empty key is not queried.
type ProviderConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// FetchConfig tunes the provider fan-out.
type FetchConfig struct {
	TimeoutSecs             int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	StaggerMs               int `yaml:"stagger_ms" mapstructure:"stagger_ms"`
	MaxAttempts             int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs        int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	CacheTTLSecs            int `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	RequestsPerMinute       int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	CircuitFailureThreshold int `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// BatchConfig configures the batch command.
type BatchConfig struct {
	MaxConcurrentQueries int `yaml:"max_concurrent_queries" mapstructure:"max_concurrent_queries"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "geosight.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent_queries", 2)

	// Keys are bound so AutomaticEnv can fill them even without a file.
	for _, p := range []string{"anthropic", "openai", "gemini", "perplexity"} {
		v.SetDefault(p+".key", "")
		v.SetDefault(p+".base_url", "")
	}
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("perplexity.model", "sonar-pro")

	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.stagger_ms", 100)
	v.SetDefault("fetch.max_attempts", 2)
	v.SetDefault("fetch.initial_backoff_ms", 1000)
	v.SetDefault("fetch.cache_ttl_secs", 300)
	v.SetDefault("fetch.requests_per_minute", 60)
	v.SetDefault("fetch.circuit_failure_threshold", 5)
	v.SetDefault("fetch.circuit_reset_secs", 60)
}

// Validate checks the settings a command needs. mode is one of "serve",
// "search", "batch" or "store" (commands that only touch the database).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "store":
	case "serve", "search", "batch":
		if !c.HasProvider() {
			errs = append(errs, "at least one of anthropic.key, openai.key, gemini.key, perplexity.key is required")
		}
		errs = append(errs, c.Fetch.problems()...)
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if mode == "batch" && (c.Batch.MaxConcurrentQueries < 1 || c.Batch.MaxConcurrentQueries > 20) {
			errs = append(errs, "batch.max_concurrent_queries must be between 1 and 20")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// HasProvider reports whether any provider has an API key.
func (c *Config) HasProvider() bool {
	return c.Anthropic.Key != "" || c.OpenAI.Key != "" || c.Gemini.Key != "" || c.Perplexity.Key != ""
}

// maxFetchAttempts is one provider call plus at most one retry.
const maxFetchAttempts = 2

func (f FetchConfig) problems() []string {
	var errs []string
	if f.TimeoutSecs <= 0 {
		errs = append(errs, "fetch.timeout_secs must be > 0")
	}
	if f.MaxAttempts < 1 || f.MaxAttempts > maxFetchAttempts {
		errs = append(errs, fmt.Sprintf("fetch.max_attempts must be between 1 and %d", maxFetchAttempts))
	}
	if f.StaggerMs < 0 {
		errs = append(errs, "fetch.stagger_ms must be >= 0")
	}
	if f.CacheTTLSecs < 0 {
		errs = append(errs, "fetch.cache_ttl_secs must be >= 0")
	}
	if f.RequestsPerMinute < 0 {
		errs = append(errs, "fetch.requests_per_minute must be >= 0")
	}
	return errs
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
