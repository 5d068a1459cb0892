// Package cli wires configuration, the LLM provider and one guessing game
// together for the command-line entry point.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"guessgame/internal/config"
	"guessgame/internal/game"
	"guessgame/internal/provider"
)

// ProviderFactory builds the LLM provider for the configured backend.
type ProviderFactory func(cfg *config.Config, apiKey string) (provider.LLMProvider, error)

// CLI runs a single game from the command line.
type CLI struct {
	cfg         *config.Config
	output      io.Writer
	logger      zerolog.Logger
	newProvider ProviderFactory
}

// NewCLI creates a CLI that prints to os.Stdout and talks to the real provider.
func NewCLI(cfg *config.Config, logger zerolog.Logger) *CLI {
	return &CLI{
		cfg:         cfg,
		output:      os.Stdout,
		logger:      logger,
		newProvider: NewProvider,
	}
}

// NewCLIWithIO creates a CLI with a custom output stream and provider factory.
// This is useful for testing.
func NewCLIWithIO(cfg *config.Config, logger zerolog.Logger, output io.Writer, factory ProviderFactory) *CLI {
	if factory == nil {
		factory = NewProvider
	}
	return &CLI{
		cfg:         cfg,
		output:      output,
		logger:      logger,
		newProvider: factory,
	}
}

// NewProvider is the default ProviderFactory.
func NewProvider(cfg *config.Config, apiKey string) (provider.LLMProvider, error) {
	opts := []provider.Option{
		provider.WithModel(cfg.Model),
		provider.WithBaseURL(cfg.BaseURL),
		provider.WithTimeout(cfg.Timeout),
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return provider.NewOpenAIProviderWithKey(apiKey, opts...)
	case config.ProviderClaude:
		return provider.NewClaudeProviderWithKey(apiKey, opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Run checks the credential and connectivity, then plays one game.
//
// A missing credential or an unreachable provider is reported on the output
// and returned wrapped in config.ErrMissingCredential or
// provider.ErrNotConnected; no game is created in either case.
func (c *CLI) Run(ctx context.Context) (*game.Outcome, error) {
	apiKey, err := c.cfg.APIKey()
	if err != nil {
		c.println(c.cfg.CredentialEnv() + " environment variable not set.")
		return nil, err
	}

	llm, err := c.newProvider(c.cfg, apiKey)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	err = llm.Ping(pingCtx)
	cancel()
	if err != nil {
		c.printf("Not connected to %s: %v\n", displayName(c.cfg.Provider), err)
		if !errors.Is(err, provider.ErrNotConnected) {
			err = fmt.Errorf("%w: %v", provider.ErrNotConnected, err)
		}
		return nil, err
	}
	c.logger.Debug().Str("provider", llm.Name()).Msg("provider reachable")

	agent, err := game.New(game.Config{
		Provider: llm,
		MaxTries: c.cfg.MaxTries,
		Output:   c.output,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	outcome, err := agent.Play(ctx)
	if err != nil {
		return nil, err
	}

	event := c.logger.Info()
	if outcome.Err != nil {
		event = c.logger.Warn().Err(outcome.Err)
	}
	event.Str("game_id", agent.ID()).
		Stringer("result", outcome.Result).
		Int("attempts", outcome.Attempts).
		Msg("game finished")

	return outcome, nil
}

func displayName(name string) string {
	switch name {
	case config.ProviderOpenAI:
		return "OpenAI"
	case config.ProviderClaude:
		return "Claude"
	default:
		return name
	}
}

// printf is a helper to write formatted output.
func (c *CLI) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.output, format, args...)
}

// println is a helper to write a line of output.
func (c *CLI) println(args ...interface{}) {
	fmt.Fprintln(c.output, args...)
}
