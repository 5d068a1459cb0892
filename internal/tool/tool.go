// Package tool defines the Tool interface and the guessing game's evaluator tool.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"guessgame/internal/provider"
)

// ErrInvalidArguments is returned when a tool call's payload does not match
// the tool's parameter schema or cannot be interpreted.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// Tool defines the interface for tools that can be offered to the LLM.
// Each tool has a name, description, parameter schema, and an Execute method.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	Description() string

	// Parameters returns a JSON Schema object describing the tool's input parameters.
	Parameters() map[string]interface{}

	// Execute runs the tool with the raw JSON arguments and returns the result.
	Execute(ctx context.Context, args json.RawMessage) (*provider.ToolResult, error)
}

// ToDefinition converts a Tool to a ToolDefinition for use in LLM requests.
func ToDefinition(t Tool) provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
}

// ToDefinitions converts a slice of Tools to ToolDefinitions.
func ToDefinitions(tools []Tool) []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = ToDefinition(t)
	}
	return defs
}

// ValidateArguments checks a raw JSON payload against a JSON Schema.
// An empty payload is treated as an empty object.
func ValidateArguments(schema map[string]interface{}, args json.RawMessage) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewBytesLoader(args))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(msgs, "; "))
	}
	return nil
}
