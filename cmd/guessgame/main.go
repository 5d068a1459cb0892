// Package main runs one number guessing game against an LLM.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"guessgame/internal/cli"
	"guessgame/internal/config"
	"guessgame/internal/logging"
	"guessgame/internal/provider"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Setup context with cancellation on signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	_, err = cli.NewCLI(cfg, logger).Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, config.ErrMissingCredential), errors.Is(err, provider.ErrNotConnected):
		// Already reported to the user.
		logger.Debug().Err(err).Msg("game not started")
	default:
		logger.Error().Err(err).Msg("game not started")
	}
}
