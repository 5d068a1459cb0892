// Package mcp exposes the game's tools over the Model Context Protocol:
// JSON-RPC 2.0, one message per line, on stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"guessgame/internal/tool"
)

const maxMessageBytes = 1 << 20

// ErrAlreadyRunning is returned by Serve when the server is already serving.
var ErrAlreadyRunning = errors.New("mcp: server already running")

// Server handles incoming JSON-RPC requests and exposes tools via MCP.
type Server struct {
	tools   map[string]tool.Tool
	output  io.Writer
	logger  zerolog.Logger
	mu      sync.Mutex
	running bool

	// Server info
	name    string
	version string
}

// NewServer creates a new MCP server with the given tools. Each server gets a
// session ID that tags its log entries.
func NewServer(name, version string, tools []tool.Tool, logger zerolog.Logger) *Server {
	toolMap := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		toolMap[t.Name()] = t
	}
	return &Server{
		tools:   toolMap,
		name:    name,
		version: version,
		logger: logger.With().
			Str("component", "mcp").
			Str("session", uuid.NewString()).
			Logger(),
	}
}

// Serve reads requests from input and writes responses to output.
// It blocks until input is exhausted, the context is cancelled or reading fails.
func (s *Server) Serve(ctx context.Context, input io.Reader, output io.Writer) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.output = output
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Str("server", s.name).Int("tools", len(s.tools)).Msg("serving")

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn().Err(err).Msg("unparseable message")
			s.sendError(nil, CodeParseError, "Parse error")
			continue
		}

		s.handleRequest(ctx, &req)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("mcp: read input: %w", err)
	}
	return nil
}

// handleRequest processes a single JSON-RPC request.
func (s *Server) handleRequest(ctx context.Context, req *JSONRPCRequest) {
	s.logger.Debug().Str("method", req.Method).RawJSON("id", idOrNull(req.ID)).Msg("request received")

	if req.JSONRPC != "2.0" {
		if !req.IsNotification() {
			s.sendError(req.ID, CodeInvalidRequest, "Invalid request: jsonrpc must be \"2.0\"")
		}
		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "notifications/initialized":
		s.logger.Info().Msg("client initialized")
	case "ping":
		s.sendResult(req.ID, map[string]interface{}{})
	case "tools/list":
		s.handleToolsList(req)
	case "tools/call":
		s.handleToolsCall(ctx, req)
	default:
		if req.IsNotification() {
			return
		}
		s.logger.Warn().Str("method", req.Method).Msg("unknown method")
		s.sendError(req.ID, CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req *JSONRPCRequest) {
	s.sendResult(req.ID, map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    s.name,
			"version": s.version,
		},
	})
}

func (s *Server) handleToolsList(req *JSONRPCRequest) {
	tools := make([]ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		tools = append(tools, ToolInfo{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Parameters(),
		})
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	s.sendResult(req.ID, map[string]interface{}{"tools": tools})
}

// handleToolsCall runs a tool. Tool failures are reported inside the result
// with isError set; only malformed requests get a JSON-RPC error.
func (s *Server) handleToolsCall(ctx context.Context, req *JSONRPCRequest) {
	var params ToolCallParams
	if len(req.Params) == 0 || json.Unmarshal(req.Params, &params) != nil {
		s.sendError(req.ID, CodeInvalidParams, "Invalid params")
		return
	}
	if params.Name == "" {
		s.sendError(req.ID, CodeInvalidParams, "Missing tool name")
		return
	}

	logger := s.logger.With().Str("tool", params.Name).Logger()

	t, exists := s.tools[params.Name]
	if !exists {
		logger.Warn().Msg("unknown tool requested")
		s.sendToolResult(req.ID, fmt.Sprintf("Unknown tool: %s", params.Name), true)
		return
	}

	result, err := t.Execute(ctx, params.Arguments)
	if err != nil {
		logger.Error().Err(err).Msg("tool execution failed")
		s.sendToolResult(req.ID, fmt.Sprintf("Tool execution error: %v", err), true)
		return
	}
	if !result.Success {
		logger.Warn().Str("error", result.Error).Msg("tool returned error")
		s.sendToolResult(req.ID, result.Error, true)
		return
	}

	logger.Debug().Str("output", result.Output).Msg("tool succeeded")
	s.sendToolResult(req.ID, result.Output, false)
}

func (s *Server) sendResult(id json.RawMessage, result interface{}) {
	s.writeResponse(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      idOrNull(id),
		Result:  result,
	})
}

func (s *Server) sendError(id json.RawMessage, code int, message string) {
	s.writeResponse(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      idOrNull(id),
		Error:   &JSONRPCError{Code: code, Message: message},
	})
}

func (s *Server) sendToolResult(id json.RawMessage, text string, isError bool) {
	s.sendResult(id, ToolCallResult{
		Content: []Content{{Type: "text", Text: text}},
		IsError: isError,
	})
}

func (s *Server) writeResponse(resp JSONRPCResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode response")
		return
	}
	if _, err := s.output.Write(append(data, '\n')); err != nil {
		s.logger.Error().Err(err).Msg("write response")
	}
}

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
