// Package config loads the game settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Supported provider names.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// DefaultEnvFile is read when Load is given no path.
const DefaultEnvFile = ".env"

// ErrMissingCredential is returned when the API key for the selected
// provider is not set.
var ErrMissingCredential = errors.New("missing API credential")

// Config stores all configuration of the application.
// Keys match the environment variable names, lowercased.
type Config struct {
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	Provider        string        `mapstructure:"guessgame_provider"`
	Model           string        `mapstructure:"guessgame_model"` // empty selects the provider default
	MaxTries        int           `mapstructure:"guessgame_max_tries"`
	BaseURL         string        `mapstructure:"guessgame_base_url"`
	Timeout         time.Duration `mapstructure:"guessgame_timeout"`
	LogLevel        string        `mapstructure:"guessgame_log_level"`
}

// Load reads configuration from the given env file (DefaultEnvFile when
// empty), then the process environment, which takes precedence. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = DefaultEnvFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")

	v.SetDefault("openai_api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("guessgame_provider", ProviderOpenAI)
	v.SetDefault("guessgame_model", "")
	v.SetDefault("guessgame_max_tries", 5)
	v.SetDefault("guessgame_base_url", "")
	v.SetDefault("guessgame_timeout", 60*time.Second)
	v.SetDefault("guessgame_log_level", "warn")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later in a less obvious way.
// Credentials are checked separately by APIKey.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderClaude:
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}
	if c.MaxTries < 1 {
		return fmt.Errorf("config: max tries must be at least 1, got %d", c.MaxTries)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// CredentialEnv names the environment variable holding the selected provider's key.
func (c *Config) CredentialEnv() string {
	if c.Provider == ProviderClaude {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// APIKey returns the key for the selected provider.
func (c *Config) APIKey() (string, error) {
	key := c.OpenAIAPIKey
	if c.Provider == ProviderClaude {
		key = c.AnthropicAPIKey
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: %s environment variable not set", ErrMissingCredential, c.CredentialEnv())
	}
	return key, nil
}
