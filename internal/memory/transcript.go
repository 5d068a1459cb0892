// Package memory holds the conversation transcript exchanged with the LLM.
package memory

import (
	"errors"
	"fmt"

	"guessgame/internal/provider"
)

// ErrUnpairedToolCall is returned by Validate when the tool-call and
// tool-result turns of the transcript do not line up.
var ErrUnpairedToolCall = errors.New("tool call without matching tool result")

// Transcript maintains the ordered list of conversation turns for one game.
// It is append-only: turns are never reordered, edited or removed.
// A Transcript is owned by a single agent and is not safe for concurrent use.
type Transcript struct {
	messages []provider.Message
}

// NewTranscript creates a new empty Transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		messages: make([]provider.Message, 0),
	}
}

// AddMessage appends a plain text turn with the given role.
func (t *Transcript) AddMessage(role, content string) {
	t.messages = append(t.messages, provider.Message{
		Role:    role,
		Content: content,
	})
}

// AddAssistantToolCalls appends an assistant turn that carries tool calls.
// The calls are stored as received so IDs and argument payloads round-trip
// unchanged to the provider.
func (t *Transcript) AddAssistantToolCalls(content string, toolCalls []provider.ToolCall) {
	t.messages = append(t.messages, provider.Message{
		Role:      provider.RoleAssistant,
		Content:   content,
		ToolCalls: cloneToolCalls(toolCalls),
	})
}

// AddToolResult appends a tool result turn correlated with a tool call ID.
func (t *Transcript) AddToolResult(toolCallID, toolName, result string) {
	t.messages = append(t.messages, provider.Message{
		Role:       provider.RoleTool,
		Content:    result,
		ToolCallID: toolCallID,
		ToolName:   toolName,
	})
}

// Messages returns a copy of all turns in order.
func (t *Transcript) Messages() []provider.Message {
	result := make([]provider.Message, len(t.messages))
	for i, m := range t.messages {
		m.ToolCalls = cloneToolCalls(m.ToolCalls)
		result[i] = m
	}
	return result
}

// Len returns the number of turns in the transcript.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Validate checks that every assistant tool-call turn is immediately followed
// by one tool result per call, in call order, and that no tool result
// appears anywhere else.
func (t *Transcript) Validate() error {
	for i := 0; i < len(t.messages); i++ {
		msg := t.messages[i]
		if msg.Role == provider.RoleTool {
			return fmt.Errorf("%w: tool result %q at index %d has no preceding call", ErrUnpairedToolCall, msg.ToolCallID, i)
		}
		if len(msg.ToolCalls) == 0 {
			continue
		}
		for j, call := range msg.ToolCalls {
			k := i + 1 + j
			if k >= len(t.messages) {
				return fmt.Errorf("%w: call %q at index %d has no result", ErrUnpairedToolCall, call.ID, i)
			}
			res := t.messages[k]
			if res.Role != provider.RoleTool || res.ToolCallID != call.ID {
				return fmt.Errorf("%w: expected result for %q at index %d, got role=%s id=%q",
					ErrUnpairedToolCall, call.ID, k, res.Role, res.ToolCallID)
			}
		}
		i += len(msg.ToolCalls)
	}
	return nil
}

func cloneToolCalls(calls []provider.ToolCall) []provider.ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]provider.ToolCall, len(calls))
	for i, c := range calls {
		c.Arguments = append([]byte(nil), c.Arguments...)
		out[i] = c
	}
	return out
}
