package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const (
	// DefaultClaudeModel is the default Claude model to use.
	DefaultClaudeModel = "claude-sonnet-4-20250514"
	// DefaultClaudeBaseURL is the default Anthropic API base URL.
	DefaultClaudeBaseURL = "https://api.anthropic.com/v1"
	// AnthropicAPIVersion is the required API version header.
	AnthropicAPIVersion = "2023-06-01"
	// AnthropicAPIKeyEnv is the environment variable holding the Anthropic API key.
	AnthropicAPIKeyEnv = "ANTHROPIC_API_KEY"

	claudeMaxTokens = 1024
)

// ClaudeProvider implements LLMProvider for Anthropic's Claude API.
type ClaudeProvider struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

// NewClaudeProvider creates a new ClaudeProvider.
// It reads the API key from the ANTHROPIC_API_KEY environment variable.
func NewClaudeProvider(opts ...Option) (*ClaudeProvider, error) {
	apiKey := os.Getenv(AnthropicAPIKeyEnv)
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}
	return NewClaudeProviderWithKey(apiKey, opts...)
}

// NewClaudeProviderWithKey creates a new ClaudeProvider with an explicit API key.
// This is useful for testing or when the key is provided through other means.
func NewClaudeProviderWithKey(apiKey string, opts ...Option) (*ClaudeProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("API key cannot be empty")
	}

	o := applyOptions(DefaultClaudeModel, DefaultClaudeBaseURL, opts)
	return &ClaudeProvider{
		apiKey:  apiKey,
		model:   o.model,
		client:  o.client,
		baseURL: strings.TrimRight(o.baseURL, "/"),
	}, nil
}

// Name returns the provider name.
func (c *ClaudeProvider) Name() string {
	return "claude"
}

// Ping lists the available models to check that the key is accepted.
func (c *ClaudeProvider) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("claude: failed to create HTTP request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: claude returned status %d", ErrNotConnected, resp.StatusCode)
	}
	return nil
}

// Generate sends a request to Claude and returns the response.
func (c *ClaudeProvider) Generate(ctx context.Context, req GenerateRequest) (*LLMResponse, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("claude: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("claude: failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("claude: failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("claude: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	return c.parseResponse(respBody)
}

func (c *ClaudeProvider) setHeaders(r *http.Request) {
	r.Header.Set("x-api-key", c.apiKey)
	r.Header.Set("anthropic-version", AnthropicAPIVersion)
}

// claudeRequest represents the request body for Claude API.
type claudeRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []claudeMsg  `json:"messages"`
	Tools     []claudeTool `json:"tools,omitempty"`
}

// claudeMsg represents a message in Claude's format.
type claudeMsg struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

// contentPart represents a content part in Claude's message format.
type contentPart struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
}

// claudeTool represents a tool definition in Claude's format.
type claudeTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// claudeResponse represents the response from Claude API.
type claudeResponse struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Role       string               `json:"role"`
	Content    []claudeContentBlock `json:"content"`
	Model      string               `json:"model"`
	StopReason string               `json:"stop_reason"`
}

// claudeContentBlock represents a content block in Claude's response.
type claudeContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// claudeErrorResponse represents an error response from Claude API.
type claudeErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// buildRequest converts a GenerateRequest to Claude's API format.
// System turns are joined into the top-level system prompt and consecutive
// tool results are folded into a single user message, as the API requires.
func (c *ClaudeProvider) buildRequest(req GenerateRequest) *claudeRequest {
	claudeReq := &claudeRequest{
		Model:     c.model,
		MaxTokens: claudeMaxTokens,
		Messages:  make([]claudeMsg, 0, len(req.Messages)),
	}

	var system []string
	for _, msg := range req.Messages {
		switch {
		case msg.Role == RoleSystem:
			system = append(system, msg.Content)
		case msg.ToolCallID != "":
			part := contentPart{
				Type:      "tool_result",
				ToolUseID: msg.ToolCallID,
				Content:   msg.Content,
			}
			last := len(claudeReq.Messages) - 1
			if last >= 0 && isToolResultMsg(claudeReq.Messages[last]) {
				claudeReq.Messages[last].Content = append(claudeReq.Messages[last].Content, part)
				continue
			}
			claudeReq.Messages = append(claudeReq.Messages, claudeMsg{Role: RoleUser, Content: []contentPart{part}})
		default:
			claudeReq.Messages = append(claudeReq.Messages, convertClaudeMessage(msg))
		}
	}
	claudeReq.System = strings.Join(system, "\n\n")

	for _, tool := range req.Tools {
		claudeReq.Tools = append(claudeReq.Tools, claudeTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Parameters,
		})
	}

	return claudeReq
}

func isToolResultMsg(m claudeMsg) bool {
	return m.Role == RoleUser && len(m.Content) > 0 && m.Content[0].Type == "tool_result"
}

// convertClaudeMessage converts a user or assistant Message to Claude's format.
func convertClaudeMessage(msg Message) claudeMsg {
	cm := claudeMsg{
		Role:    msg.Role,
		Content: []contentPart{},
	}

	if msg.Content != "" || len(msg.ToolCalls) == 0 {
		cm.Content = append(cm.Content, contentPart{
			Type: "text",
			Text: msg.Content,
		})
	}

	for _, tc := range msg.ToolCalls {
		input := tc.Arguments
		if len(input) == 0 {
			input = json.RawMessage("{}")
		}
		cm.Content = append(cm.Content, contentPart{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Name,
			Input: input,
		})
	}

	return cm
}

// parseResponse parses Claude's response into an LLMResponse.
func (c *ClaudeProvider) parseResponse(body []byte) (*LLMResponse, error) {
	var resp claudeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("claude: failed to parse response: %w", err)
	}

	llmResp := &LLMResponse{
		ToolCalls: make([]ToolCall, 0),
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			llmResp.Text += block.Text
		case "tool_use":
			llmResp.ToolCalls = append(llmResp.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}

	return llmResp, nil
}

// handleErrorResponse creates an appropriate error for non-200 responses.
func (c *ClaudeProvider) handleErrorResponse(statusCode int, body []byte) error {
	var errResp claudeErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("claude: API error (status %d): %s", statusCode, string(body))
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("claude: authentication failed: %s", errResp.Error.Message)
	case http.StatusForbidden:
		return fmt.Errorf("claude: access forbidden: %s", errResp.Error.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("claude: rate limit exceeded: %s", errResp.Error.Message)
	case http.StatusBadRequest:
		return fmt.Errorf("claude: bad request: %s", errResp.Error.Message)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("claude: server error (status %d): %s", statusCode, errResp.Error.Message)
	default:
		return fmt.Errorf("claude: API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}
