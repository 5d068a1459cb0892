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
	// DefaultOpenAIModel is the default OpenAI model to use.
	DefaultOpenAIModel = "gpt-5-nano"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// OpenAIAPIKeyEnv is the environment variable holding the OpenAI API key.
	OpenAIAPIKeyEnv = "OPENAI_API_KEY"

	maxResponseBytes = 2 << 20
)

// OpenAIProvider implements LLMProvider for the OpenAI chat completions API.
type OpenAIProvider struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

// NewOpenAIProvider creates a new OpenAIProvider.
// It reads the API key from the OPENAI_API_KEY environment variable.
func NewOpenAIProvider(opts ...Option) (*OpenAIProvider, error) {
	apiKey := os.Getenv(OpenAIAPIKeyEnv)
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	return NewOpenAIProviderWithKey(apiKey, opts...)
}

// NewOpenAIProviderWithKey creates a new OpenAIProvider with an explicit API key.
func NewOpenAIProviderWithKey(apiKey string, opts ...Option) (*OpenAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("API key cannot be empty")
	}

	o := applyOptions(DefaultOpenAIModel, DefaultOpenAIBaseURL, opts)
	return &OpenAIProvider{
		apiKey:  apiKey,
		model:   o.model,
		client:  o.client,
		baseURL: strings.TrimRight(o.baseURL, "/"),
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Ping lists the available models to check that the key is accepted.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("openai: failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: openai returned status %d", ErrNotConnected, resp.StatusCode)
	}
	return nil
}

// Generate sends a request to OpenAI and returns the response.
func (p *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (*LLMResponse, error) {
	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.handleErrorResponse(resp.StatusCode, respBody)
	}

	return p.parseResponse(respBody)
}

type openAIRequest struct {
	Model    string       `json:"model"`
	Messages []openAIMsg  `json:"messages"`
	Tools    []openAITool `json:"tools,omitempty"`
}

type openAIMsg struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content"`
	Name       string           `json:"name,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
}

type openAIChoice struct {
	Index        int       `json:"index"`
	Message      openAIMsg `json:"message"`
	FinishReason string    `json:"finish_reason"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// buildRequest converts a GenerateRequest to the chat completions format.
func (p *OpenAIProvider) buildRequest(req GenerateRequest) *openAIRequest {
	out := &openAIRequest{
		Model:    p.model,
		Messages: make([]openAIMsg, 0, len(req.Messages)),
	}

	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, convertOpenAIMessage(msg))
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	return out
}

// convertOpenAIMessage maps a transcript message onto the wire format.
// Assistant turns with tool calls may carry no text, which the API expects as null.
func convertOpenAIMessage(msg Message) openAIMsg {
	om := openAIMsg{
		Role:       msg.Role,
		ToolCallID: msg.ToolCallID,
		Name:       msg.ToolName,
	}

	if msg.Content != "" || len(msg.ToolCalls) == 0 {
		content := msg.Content
		om.Content = &content
	}

	for _, tc := range msg.ToolCalls {
		args := string(tc.Arguments)
		if args == "" {
			args = "{}"
		}
		om.ToolCalls = append(om.ToolCalls, openAIToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: openAIFunctionCall{
				Name:      tc.Name,
				Arguments: args,
			},
		})
	}

	return om
}

// parseResponse parses the first choice of a chat completion into an LLMResponse.
func (p *OpenAIProvider) parseResponse(body []byte) (*LLMResponse, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("openai: failed to parse response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: response has no choices")
	}

	msg := resp.Choices[0].Message
	llmResp := &LLMResponse{
		ToolCalls: make([]ToolCall, 0, len(msg.ToolCalls)),
	}
	if msg.Content != nil {
		llmResp.Text = *msg.Content
	}

	for _, tc := range msg.ToolCalls {
		llmResp.ToolCalls = append(llmResp.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}

	return llmResp, nil
}

// handleErrorResponse creates an appropriate error for non-200 responses.
func (p *OpenAIProvider) handleErrorResponse(statusCode int, body []byte) error {
	var errResp openAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return fmt.Errorf("openai: API error (status %d): %s", statusCode, string(body))
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("openai: authentication failed: %s", errResp.Error.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("openai: rate limit exceeded: %s", errResp.Error.Message)
	case http.StatusBadRequest:
		return fmt.Errorf("openai: bad request: %s", errResp.Error.Message)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("openai: server error (status %d): %s", statusCode, errResp.Error.Message)
	default:
		return fmt.Errorf("openai: API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}
