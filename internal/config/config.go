// Package config loads the matcher configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jonathan/candidate-matcher/internal/embedding"
	"github.com/jonathan/candidate-matcher/internal/llm"
)

// AppName is used for the config file name and the environment prefix.
const (
	AppName   = "candidate-matcher"
	EnvPrefix = "CM"
)

// Config is the complete application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Server    ServerConfig    `mapstructure:"server"`
	Auth      JWTConfig       `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// RedisConfig enables the embedding cache when URL is set. URL may also be a
// bare host:port.
type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

type LLMConfig struct {
	Provider    string       `mapstructure:"provider" validate:"oneof=gemini"`
	APIKey      string       `mapstructure:"api-key"`
	Models      ModelsConfig `mapstructure:"models"`
	MaxRetries  int          `mapstructure:"max-retries" validate:"min=0,max=10"`
	Temperature float32      `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens   int32        `mapstructure:"max-tokens" validate:"min=1"`
}

type ModelsConfig struct {
	Lite     string `mapstructure:"lite" validate:"required"`
	Standard string `mapstructure:"standard" validate:"required"`
	Advanced string `mapstructure:"advanced" validate:"required"`
}

type EmbeddingConfig struct {
	Model     string `mapstructure:"model" validate:"required"`
	Dimension int    `mapstructure:"dimension" validate:"min=1,max=16000"`
}

type PipelineConfig struct {
	TopK          int `mapstructure:"top-k" validate:"min=1,max=100"`
	Concurrency   int `mapstructure:"concurrency" validate:"min=1,max=32"`
	MaxInputChars int `mapstructure:"max-input-chars" validate:"min=100"`
}

// FetchConfig controls downloading job postings by URL. Browser enables
// headless Chrome for pages that render client-side.
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user-agent"`
	Browser   bool          `mapstructure:"browser"`
	CacheTTL  time.Duration `mapstructure:"cache-ttl"`
}

type ServerConfig struct {
	Port      int             `mapstructure:"port" validate:"min=1,max=65535"`
	RateLimit RateLimitConfig `mapstructure:"rate-limit"`
}

// RateLimitConfig is a per-client token bucket.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"min=1"`
	// Comma-separated client addresses.
	Whitelist string `mapstructure:"whitelist"`
	Blacklist string `mapstructure:"blacklist"`
}

type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	llmDefaults := llm.DefaultConfig()

	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("llm.provider", string(llmDefaults.Provider))
	v.SetDefault("llm.models.lite", llmDefaults.Models[llm.TierLite])
	v.SetDefault("llm.models.standard", llmDefaults.Models[llm.TierStandard])
	v.SetDefault("llm.models.advanced", llmDefaults.Models[llm.TierAdvanced])
	v.SetDefault("llm.max-retries", llmDefaults.MaxRetries)
	v.SetDefault("llm.temperature", llmDefaults.Temperature)
	v.SetDefault("llm.max-tokens", llmDefaults.MaxTokens)
	v.SetDefault("embedding.model", embedding.DefaultGeminiModel)
	v.SetDefault("embedding.dimension", 768)
	v.SetDefault("pipeline.top-k", 10)
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("pipeline.max-input-chars", 12000)
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.browser", false)
	v.SetDefault("fetch.cache-ttl", 24*time.Hour)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate-limit.enabled", true)
	v.SetDefault("server.rate-limit.requests-per-second", 5.0)
	v.SetDefault("server.rate-limit.burst", 20)
	v.SetDefault("server.rate-limit.whitelist", "")
	v.SetDefault("server.rate-limit.blacklist", "")
	v.SetDefault("auth.expiration-hours", 24)
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// NewViper returns a viper instance with defaults and environment bindings.
// Keys map to CM_ variables (llm.api-key -> CM_LLM_API_KEY); the common
// unprefixed variables are bound as well.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bind := map[string][]string{
		"database.url":    {"CM_DATABASE_URL", "DATABASE_URL"},
		"redis.url":       {"CM_REDIS_URL", "REDIS_URL"},
		"llm.api-key":     {"CM_LLM_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"auth.jwt-secret": {"CM_AUTH_JWT_SECRET", "JWT_SECRET"},
		"server.port":     {"CM_SERVER_PORT", "PORT"},
	}
	for key, envs := range bind {
		// BindEnv only fails when called without a key.
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	return v
}

// ReadFile loads path, or candidate-matcher.yaml from the working directory
// when path is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config error: %w", err)
	}
	return c.Auth.normalize()
}

// LLMClientConfig converts the llm section for llm.NewClient.
func (c *Config) LLMClientConfig() *llm.Config {
	return &llm.Config{
		Provider: llm.Provider(c.LLM.Provider),
		Models: map[llm.ModelTier]string{
			llm.TierLite:     c.LLM.Models.Lite,
			llm.TierStandard: c.LLM.Models.Standard,
			llm.TierAdvanced: c.LLM.Models.Advanced,
		},
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
		MaxRetries:  c.LLM.MaxRetries,
	}
}

// RequireAPIKey fails when no LLM API key is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("an LLM API key is required: set GEMINI_API_KEY or llm.api-key")
	}
	return nil
}

// RequireDatabase fails when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("a database URL is required: set DATABASE_URL or database.url")
	}
	return nil
}
