package game

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when the game is asked to move to a state
// that does not directly follow its current one.
var ErrIllegalTransition = errors.New("illegal game state transition")

// State is the lifecycle stage of a game.
type State int

const (
	// StateInit is the state before the first model call.
	StateInit State = iota
	// StatePlaying is the state while guesses are expected.
	StatePlaying
	// StateEnded is terminal.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StatePlaying:
		return "playing"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// next lists the single legal successor of every non-terminal state.
var next = map[State]State{
	StateInit:    StatePlaying,
	StatePlaying: StateEnded,
}

// advance returns to if it is the immediate successor of from. Otherwise it
// returns from unchanged together with ErrIllegalTransition.
func advance(from, to State) (State, error) {
	succ, ok := next[from]
	if !ok || succ != to {
		return from, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return succ, nil
}
