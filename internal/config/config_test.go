package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var envKeys = []string{
	"OPENAI_API_KEY",
	"ANTHROPIC_API_KEY",
	"GUESSGAME_PROVIDER",
	"GUESSGAME_MODEL",
	"GUESSGAME_MAX_TRIES",
	"GUESSGAME_BASE_URL",
	"GUESSGAME_TIMEOUT",
	"GUESSGAME_LOG_LEVEL",
}

// ConfigTestSuite tests loading from env files and the environment.
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()

	// Empty values are treated as unset.
	for _, key := range envKeys {
		suite.T().Setenv(key, "")
	}
}

func (suite *ConfigTestSuite) writeEnvFile(content string) string {
	path := filepath.Join(suite.tempDir, ".env")
	require.NoError(suite.T(), os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (suite *ConfigTestSuite) TestLoadDefaultsWithoutFile() {
	cfg, err := Load(filepath.Join(suite.tempDir, "missing.env"))

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), ProviderOpenAI, cfg.Provider)
	assert.Equal(suite.T(), 5, cfg.MaxTries)
	assert.Equal(suite.T(), 60*time.Second, cfg.Timeout)
	assert.Equal(suite.T(), "warn", cfg.LogLevel)
	assert.Empty(suite.T(), cfg.Model)
	assert.Empty(suite.T(), cfg.OpenAIAPIKey)
}

func (suite *ConfigTestSuite) TestLoadFromEnvFile() {
	path := suite.writeEnvFile(`OPENAI_API_KEY=sk-from-file
GUESSGAME_MAX_TRIES=3
GUESSGAME_TIMEOUT=15s
GUESSGAME_MODEL=gpt-4o-mini
`)

	cfg, err := Load(path)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "sk-from-file", cfg.OpenAIAPIKey)
	assert.Equal(suite.T(), 3, cfg.MaxTries)
	assert.Equal(suite.T(), 15*time.Second, cfg.Timeout)
	assert.Equal(suite.T(), "gpt-4o-mini", cfg.Model)
}

func (suite *ConfigTestSuite) TestEnvironmentOverridesFile() {
	path := suite.writeEnvFile("OPENAI_API_KEY=sk-from-file\nGUESSGAME_MAX_TRIES=3\n")
	suite.T().Setenv("OPENAI_API_KEY", "sk-from-env")
	suite.T().Setenv("GUESSGAME_MAX_TRIES", "8")

	cfg, err := Load(path)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "sk-from-env", cfg.OpenAIAPIKey)
	assert.Equal(suite.T(), 8, cfg.MaxTries)
}

func (suite *ConfigTestSuite) TestProviderIsNormalized() {
	suite.T().Setenv("GUESSGAME_PROVIDER", " Claude ")

	cfg, err := Load(filepath.Join(suite.tempDir, "missing.env"))

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), ProviderClaude, cfg.Provider)
	assert.Equal(suite.T(), "ANTHROPIC_API_KEY", cfg.CredentialEnv())
}

func (suite *ConfigTestSuite) TestInvalidValues() {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown provider", key: "GUESSGAME_PROVIDER", value: "gemini"},
		{name: "zero tries", key: "GUESSGAME_MAX_TRIES", value: "0"},
		{name: "negative timeout", key: "GUESSGAME_TIMEOUT", value: "-1s"},
		{name: "bad log level", key: "GUESSGAME_LOG_LEVEL", value: "loud"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.T().Setenv(tt.key, tt.value)

			_, err := Load(filepath.Join(suite.tempDir, "missing.env"))

			assert.Error(suite.T(), err)
		})
	}
}

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantEnv string
	}{
		{
			name: "openai key",
			cfg:  Config{Provider: ProviderOpenAI, OpenAIAPIKey: "sk-1", AnthropicAPIKey: "sk-ant"},
			want: "sk-1",
		},
		{
			name: "claude key",
			cfg:  Config{Provider: ProviderClaude, OpenAIAPIKey: "sk-1", AnthropicAPIKey: "sk-ant"},
			want: "sk-ant",
		},
		{
			name:    "openai missing",
			cfg:     Config{Provider: ProviderOpenAI, AnthropicAPIKey: "sk-ant"},
			wantEnv: "OPENAI_API_KEY",
		},
		{
			name:    "claude blank",
			cfg:     Config{Provider: ProviderClaude, AnthropicAPIKey: "   "},
			wantEnv: "ANTHROPIC_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := tt.cfg.APIKey()
			if tt.wantEnv != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMissingCredential))
				assert.Contains(t, err.Error(), tt.wantEnv)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}
