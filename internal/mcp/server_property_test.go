package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"guessgame/internal/tool"
)

// TestServerProperty_VerdictForwarding checks that a tools/call answer is
// exactly the evaluator's verdict and echoes the request ID.
func TestServerProperty_VerdictForwarding(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("tools/call returns the evaluator verdict", prop.ForAll(
		func(secret, guess, id int) bool {
			server := NewServer("guessgame", "test", []tool.Tool{tool.NewEvaluateTool(secret, zerolog.Nop())}, zerolog.Nop())

			line := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":%q,"arguments":{"guess":%d}}}`,
				id, tool.EvaluateToolName, guess)
			var output bytes.Buffer
			if err := server.Serve(context.Background(), strings.NewReader(line+"\n"), &output); err != nil {
				return false
			}

			var resp struct {
				ID     int            `json:"id"`
				Result ToolCallResult `json:"result"`
			}
			if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
				return false
			}
			if resp.ID != id || resp.Result.IsError || len(resp.Result.Content) != 1 {
				return false
			}
			return resp.Result.Content[0].Text == tool.Evaluate(guess, secret).String()
		},
		gen.IntRange(1, 100),
		gen.IntRange(-1000, 1000),
		gen.IntRange(0, 1<<20),
	))

	properties.TestingRun(t)
}
