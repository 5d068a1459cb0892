// Package main serves the evaluate_your_try tool over MCP on stdio, bound to
// a random secret for the lifetime of the process.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"guessgame/internal/config"
	"guessgame/internal/game"
	"guessgame/internal/logging"
	"guessgame/internal/mcp"
	"guessgame/internal/tool"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so they do not interfere with JSON-RPC on stdout.
	logger, err := logging.NewJSON(cfg.LogLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	secret := game.NewSecret()
	logger.Debug().Int("secret", secret).Msg("secret drawn")

	server := mcp.NewServer("guessgame", version, []tool.Tool{
		tool.NewEvaluateTool(secret, logger),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}
