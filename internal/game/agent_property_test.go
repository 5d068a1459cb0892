package game

import (
	"bytes"
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"guessgame/internal/provider"
)

func playWith(responses []provider.LLMResponse, secret, maxTries int) (*Agent, *mockLLMProvider, *Outcome, error) {
	mock := &mockLLMProvider{responses: responses}
	a, err := New(Config{
		Provider: mock,
		Secret:   secret,
		MaxTries: maxTries,
		Output:   &bytes.Buffer{},
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	outcome, err := a.Play(context.Background())
	return a, mock, outcome, err
}

// For any run of wrong guesses the game plays exactly maxTries guessing
// rounds followed by one final reaction round.
func TestAgentProperty_NeverExceedsMaxTries(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	const secret = 50

	properties.Property("guessing rounds are bounded by max tries", prop.ForAll(
		func(maxTries int, wrong []int) bool {
			if len(wrong) == 0 {
				wrong = []int{1}
			}
			responses := make([]provider.LLMResponse, maxTries)
			for i := range responses {
				responses[i] = guessResponse(i+1, wrong[i%len(wrong)])
			}

			a, mock, outcome, err := playWith(responses, secret, maxTries)
			if err != nil {
				return false
			}
			if outcome.Result != ResultLost || outcome.Attempts != maxTries {
				return false
			}
			if mock.callCount != maxTries+1 {
				return false
			}
			return a.State() == StateEnded
		},
		gen.IntRange(1, 10),
		gen.SliceOf(gen.IntRange(51, 100)),
	))

	properties.TestingRun(t)
}

// A correct guess on attempt k ends the game within that round.
func TestAgentProperty_CorrectGuessStopsImmediately(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("no round follows the correct guess", prop.ForAll(
		func(secret, maxTries, k int) bool {
			if k > maxTries {
				k = maxTries
			}
			responses := make([]provider.LLMResponse, 0, maxTries+1)
			for i := 1; i < k; i++ {
				wrong := secret%100 + 1
				responses = append(responses, guessResponse(i, wrong))
			}
			responses = append(responses, guessResponse(k, secret))
			// Extra scripted guesses must never be consumed.
			responses = append(responses, guessResponse(k+1, secret))

			a, mock, outcome, err := playWith(responses, secret, maxTries)
			if err != nil {
				return false
			}
			return outcome.Result == ResultWon &&
				outcome.Attempts == k &&
				mock.callCount == k &&
				a.State() == StateEnded
		},
		gen.IntRange(1, 100),
		gen.IntRange(1, 10),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

// A plain reply ends the game on the first round whatever the budget.
func TestAgentProperty_PlainReplyAbortsFirstRound(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("protocol violation on round one", prop.ForAll(
		func(maxTries int, text string) bool {
			responses := []provider.LLMResponse{{Text: text}}
			_, mock, outcome, err := playWith(responses, 42, maxTries)
			if err != nil {
				return false
			}
			return outcome.Result == ResultAborted && outcome.Attempts == 1 && mock.callCount == 1
		},
		gen.IntRange(1, 20),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
