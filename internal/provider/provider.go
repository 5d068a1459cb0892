package provider

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by Ping when the provider cannot be reached or
// rejects the credentials.
var ErrNotConnected = errors.New("provider not reachable")

// LLMProvider defines the interface for LLM communication.
// Any LLM service (OpenAI, Claude, etc.) can be used by implementing this interface.
type LLMProvider interface {
	// Generate sends a request to the LLM and returns the response.
	// Returns an LLMResponse containing either text or tool calls.
	Generate(ctx context.Context, req GenerateRequest) (*LLMResponse, error)

	// Ping performs a cheap authenticated request to verify connectivity.
	Ping(ctx context.Context) error

	// Name returns the name of the provider (e.g., "openai", "claude").
	Name() string
}
