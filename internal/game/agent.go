// Package game implements the number guessing game played by an LLM agent.
//
// The agent seeds a conversation, then asks the model for one guess per
// round through the evaluate_your_try tool. The game ends when the model
// guesses the secret, runs out of tries, or breaks protocol by answering
// in plain text while a guess is expected.
package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"guessgame/internal/memory"
	"guessgame/internal/provider"
	"guessgame/internal/tool"
)

// Game limits.
const (
	MinNumber       = 1
	MaxNumber       = 100
	DefaultMaxTries = 5
)

const systemPrompt = "You are a fortune teller"

var (
	// ErrProtocolViolation is returned for a round in which the model replied
	// in plain text instead of calling the evaluation tool.
	ErrProtocolViolation = errors.New("model replied without using the tool")

	// ErrUnknownTool is returned when the model calls a tool the game does not offer.
	ErrUnknownTool = errors.New("unknown tool")
)

// Result summarizes how a game finished.
type Result int

const (
	// ResultWon means the model guessed the secret.
	ResultWon Result = iota
	// ResultLost means the model used every try without guessing the secret.
	ResultLost
	// ResultAborted means a round failed and the game stopped early.
	ResultAborted
)

func (r Result) String() string {
	switch r {
	case ResultWon:
		return "won"
	case ResultLost:
		return "lost"
	case ResultAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Outcome is returned by Play once the game has ended.
type Outcome struct {
	Result   Result
	Attempts int
	Secret   int
	// Err is the reason an aborted game stopped.
	Err error
}

// Config holds configuration for creating a new Agent.
type Config struct {
	Provider provider.LLMProvider
	// Secret is the number to guess. Zero draws one with NewSecret.
	Secret int
	// MaxTries defaults to DefaultMaxTries when zero.
	MaxTries int
	// Output receives the human readable transcript. Defaults to os.Stdout.
	Output io.Writer
	Logger zerolog.Logger
	// ID tags log entries. A random UUID is used when empty.
	ID string
}

// Agent plays one guessing game against an LLM.
type Agent struct {
	id         string
	provider   provider.LLMProvider
	evaluator  *tool.EvaluateTool
	transcript *memory.Transcript
	secret     int
	maxTries   int
	attempts   int
	state      State
	out        io.Writer
	logger     zerolog.Logger
}

// NewSecret draws a secret number in [MinNumber, MaxNumber].
func NewSecret() int {
	return rand.Intn(MaxNumber-MinNumber+1) + MinNumber
}

// New creates an Agent and seeds its transcript.
func New(cfg Config) (*Agent, error) {
	if cfg.Provider == nil {
		return nil, errors.New("game: provider is required")
	}

	secret := cfg.Secret
	if secret == 0 {
		secret = NewSecret()
	}
	if secret < MinNumber || secret > MaxNumber {
		return nil, fmt.Errorf("game: secret %d outside [%d, %d]", secret, MinNumber, MaxNumber)
	}

	maxTries := cfg.MaxTries
	if maxTries == 0 {
		maxTries = DefaultMaxTries
	}
	if maxTries < 0 {
		return nil, fmt.Errorf("game: max tries must be positive, got %d", maxTries)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	logger := cfg.Logger.With().
		Str("game_id", id).
		Str("provider", cfg.Provider.Name()).
		Logger()

	a := &Agent{
		id:        id,
		provider:  cfg.Provider,
		evaluator: tool.NewEvaluateTool(secret, logger),
		secret:    secret,
		maxTries:  maxTries,
		out:       out,
		logger:    logger,
	}
	a.initialize()
	return a, nil
}

// initialize seeds the transcript with the persona and the rules.
func (a *Agent) initialize() {
	a.state = StateInit
	a.attempts = 0
	a.transcript = memory.NewTranscript()

	start := fmt.Sprintf("ME: I am thinking of a number between %d and %d and you will try to guess it. You have %d tries to guess.",
		MinNumber, MaxNumber, a.maxTries)
	a.println(start)

	a.transcript.AddMessage(provider.RoleSystem, systemPrompt)
	a.transcript.AddMessage(provider.RoleUser, start)
}

// ID returns the identifier used in log entries.
func (a *Agent) ID() string { return a.id }

// State returns the current game state.
func (a *Agent) State() State { return a.state }

// Attempts returns the number of rounds played so far.
func (a *Agent) Attempts() int { return a.attempts }

// Secret returns the number the model has to guess.
func (a *Agent) Secret() int { return a.secret }

// Transcript returns a copy of the conversation so far.
func (a *Agent) Transcript() []provider.Message { return a.transcript.Messages() }

// Play runs the game to completion. Round failures do not surface as an
// error: they end the game and are reported in the Outcome. The returned
// error is non-nil only when the game has already been played.
func (a *Agent) Play(ctx context.Context) (*Outcome, error) {
	if err := a.transition(StatePlaying); err != nil {
		return nil, err
	}
	a.logger.Info().Int("max_tries", a.maxTries).Msg("game started")

	for a.attempts < a.maxTries && a.state != StateEnded {
		a.attempts++
		if err := a.callModel(ctx, true); err != nil {
			a.logger.Error().Err(err).Int("round", a.attempts).Msg("round failed, ending game")
			a.println("Error: " + err.Error())
			a.end()
			return a.finish(&Outcome{Result: ResultAborted, Attempts: a.attempts, Secret: a.secret, Err: err}), nil
		}
	}

	if a.state == StateEnded {
		a.logger.Info().Int("attempts", a.attempts).Msg("secret guessed")
		return a.finish(&Outcome{Result: ResultWon, Attempts: a.attempts, Secret: a.secret}), nil
	}

	a.end()
	a.logger.Info().Int("attempts", a.attempts).Msg("tries exhausted")

	lost := fmt.Sprintf("ME: You lost! My number was %d. How is it possible when you are the fortune teller?", a.secret)
	a.println(lost)
	a.transcript.AddMessage(provider.RoleUser, lost)

	if err := a.callModel(ctx, false); err != nil {
		a.logger.Warn().Err(err).Msg("final reaction failed")
	}

	return a.finish(&Outcome{Result: ResultLost, Attempts: a.attempts, Secret: a.secret}), nil
}

// finish checks the transcript pairing before handing out the outcome.
func (a *Agent) finish(o *Outcome) *Outcome {
	if err := a.transcript.Validate(); err != nil {
		a.logger.Error().Err(err).Msg("transcript is inconsistent")
	}
	return o
}

// callModel sends the transcript to the provider and routes the reply.
func (a *Agent) callModel(ctx context.Context, toolsEnabled bool) error {
	req := provider.GenerateRequest{
		Messages: a.transcript.Messages(),
	}
	if toolsEnabled {
		req.Tools = []provider.ToolDefinition{tool.ToDefinition(a.evaluator)}
	}

	resp, err := a.provider.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("model call failed: %w", err)
	}

	if resp.HasToolCalls() {
		return a.handleToolResponse(resp)
	}
	return a.handlePlainMessage(resp)
}

// handleToolResponse records the model's tool calls and answers each one in
// order. Every call is checked before anything is appended so the transcript
// never holds a call without its result.
func (a *Agent) handleToolResponse(resp *provider.LLMResponse) error {
	if a.state != StatePlaying {
		a.logger.Warn().Int("calls", len(resp.ToolCalls)).Msg("ignoring tool calls after game end")
		return nil
	}

	guesses := make([]int, len(resp.ToolCalls))
	for i, call := range resp.ToolCalls {
		guess, err := a.resolve(call)
		if err != nil {
			return fmt.Errorf("tool call %q: %w", call.ID, err)
		}
		guesses[i] = guess
	}

	if resp.Text != "" {
		a.println("LLM: " + resp.Text)
	}
	a.transcript.AddAssistantToolCalls(resp.Text, resp.ToolCalls)

	for i, call := range resp.ToolCalls {
		a.println(fmt.Sprintf("LLM: %d", guesses[i]))

		verdict := a.evaluator.Judge(guesses[i])
		if verdict == tool.Correct {
			a.end()
		}
		a.println("ME: " + verdict.String())

		content, err := json.Marshal(verdict.String())
		if err != nil {
			return fmt.Errorf("encode verdict: %w", err)
		}
		a.transcript.AddToolResult(call.ID, call.Name, string(content))
	}
	return nil
}

// resolve maps a tool call onto the guess it submits.
func (a *Agent) resolve(call provider.ToolCall) (int, error) {
	switch call.Name {
	case tool.EvaluateToolName:
		return a.evaluator.ParseGuess(call.Arguments)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
	}
}

// handlePlainMessage prints a text reply. While a guess is expected a text
// reply breaks protocol; after the game has ended it is accepted.
func (a *Agent) handlePlainMessage(resp *provider.LLMResponse) error {
	a.println("LLM: " + resp.Text)

	if a.state == StatePlaying {
		return ErrProtocolViolation
	}
	return nil
}

func (a *Agent) transition(to State) error {
	from := a.state
	s, err := advance(from, to)
	if err != nil {
		return err
	}
	a.state = s
	a.logger.Debug().Stringer("from", from).Stringer("to", s).Msg("state changed")
	return nil
}

// end moves a playing game to StateEnded. Ending twice is a no-op.
func (a *Agent) end() {
	if a.state == StateEnded {
		return
	}
	if err := a.transition(StateEnded); err != nil {
		a.logger.Error().Err(err).Msg("cannot end game")
	}
}

func (a *Agent) println(line string) {
	fmt.Fprintln(a.out, line)
}
