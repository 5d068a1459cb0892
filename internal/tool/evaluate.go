package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"guessgame/internal/provider"
)

// EvaluateToolName is the function name the model calls to submit a guess.
const EvaluateToolName = "evaluate_your_try"

// Verdict is the outcome of comparing a guess with the secret number.
type Verdict int

// Verdicts, ordered by how the guess relates to the secret.
const (
	TooLow Verdict = iota
	TooHigh
	Correct
)

// Literal verdict messages returned to the model.
const (
	TooHighMessage = "Too high!"
	TooLowMessage  = "Too low!"
	CorrectMessage = "That's right!"
)

// String returns the message sent back to the model for the verdict.
func (v Verdict) String() string {
	switch v {
	case TooHigh:
		return TooHighMessage
	case TooLow:
		return TooLowMessage
	case Correct:
		return CorrectMessage
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Evaluate compares guess with secret.
func Evaluate(guess, secret int) Verdict {
	switch {
	case guess > secret:
		return TooHigh
	case guess < secret:
		return TooLow
	default:
		return Correct
	}
}

// EvaluateTool exposes Evaluate to the model for one secret number.
type EvaluateTool struct {
	secret int
	logger zerolog.Logger
}

// NewEvaluateTool creates an evaluator bound to secret. Every evaluation is
// recorded on logger.
func NewEvaluateTool(secret int, logger zerolog.Logger) *EvaluateTool {
	return &EvaluateTool{
		secret: secret,
		logger: logger.With().Str("tool", EvaluateToolName).Logger(),
	}
}

// Name returns the tool's identifier.
func (e *EvaluateTool) Name() string {
	return EvaluateToolName
}

// Description returns what the tool does.
func (e *EvaluateTool) Description() string {
	return "Use this function to evaluate your guessed number. Returns a message indicating whether your guess was too high, too low, or correct."
}

// Parameters returns the JSON Schema for the tool's input.
func (e *EvaluateTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"guess": map[string]interface{}{
				"type":        "number",
				"description": "Your guess number.",
			},
		},
		"required": []string{"guess"},
	}
}

// Check parses the guess from args and evaluates it.
func (e *EvaluateTool) Check(args json.RawMessage) (int, Verdict, error) {
	guess, err := e.ParseGuess(args)
	if err != nil {
		return 0, 0, err
	}
	return guess, e.Judge(guess), nil
}

// Judge evaluates an already parsed guess and records it in the audit log.
func (e *EvaluateTool) Judge(guess int) Verdict {
	verdict := Evaluate(guess, e.secret)
	e.logger.Info().
		Int("guess", guess).
		Str("verdict", verdict.String()).
		Msg("guess evaluated")
	return verdict
}

// ParseGuess validates args against the tool schema and extracts the guess.
// Fractional guesses are rejected; range is not checked.
func (e *EvaluateTool) ParseGuess(args json.RawMessage) (int, error) {
	if err := ValidateArguments(e.Parameters(), args); err != nil {
		return 0, err
	}

	var payload struct {
		Guess float64 `json:"guess"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	if payload.Guess != math.Trunc(payload.Guess) || math.Abs(payload.Guess) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: guess %v is not a whole number", ErrInvalidArguments, payload.Guess)
	}
	return int(payload.Guess), nil
}

// Execute evaluates the guess and returns the verdict message.
// Malformed arguments are reported as an unsuccessful result.
func (e *EvaluateTool) Execute(ctx context.Context, args json.RawMessage) (*provider.ToolResult, error) {
	_, verdict, err := e.Check(args)
	if err != nil {
		return &provider.ToolResult{
			Success: false,
			Error:   err.Error(),
		}, nil
	}

	return &provider.ToolResult{
		Success: true,
		Output:  verdict.String(),
	}, nil
}
