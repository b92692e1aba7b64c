package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/blackwell-systems/sessionlens/internal/config"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// protocolVersions are the MCP revisions the server speaks, newest first.
// initialize echoes the client's version when it is listed here.
var protocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// maxLineBytes bounds a single request line; classify_session arguments
// carry whole raw records.
const maxLineBytes = 4 << 20

// Server is an MCP stdio server exposing session classification and
// reporting as tools. Requests and responses are newline-delimited
// JSON-RPC 2.0 messages.
type Server struct {
	tools     []toolDef
	toolIndex map[string]int
	cfg       *config.Config
	logger    *slog.Logger
	version   string
	now       func() time.Time
}

type toolDef struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     toolHandler
}

type toolHandler func(ctx context.Context, args json.RawMessage) (any, error)

type jsonrpcRequest struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Result  any              `json:"result,omitempty"`
	Error   *jsonrpcError    `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}


type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// toolsCallResult wraps a tool result as MCP text content. Tool failures
// are reported in-band with IsError rather than as JSON-RPC errors.
type toolsCallResult struct {
	Content []mcpContent `json:"content"`
	IsError bool         `json:"isError"`
}

type mcpContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func textResult(text string, isError bool) toolsCallResult {
	return toolsCallResult{Content: []mcpContent{{Type: "text", Text: text}}, IsError: isError}
}

type toolListEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// NewServer constructs a Server with every session tool registered. cfg
// provides the Claude home and analysis thresholds; a nil logger discards
// log output.
func NewServer(cfg *config.Config, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		toolIndex: make(map[string]int),
		cfg:       cfg,
		logger:    logger,
		version:   version,
		now:       time.Now,
	}
	addTools(s)
	return s
}

// registerTool adds def, replacing any tool already registered under the
// same name.
func (s *Server) registerTool(def toolDef) {
	if i, ok := s.toolIndex[def.Name]; ok {
		s.tools[i] = def
		return
	}
	s.toolIndex[def.Name] = len(s.tools)
	s.tools = append(s.tools, def)
}

// Run serves requests from r until ctx is cancelled or r reaches EOF.
// It returns nil on either, and an error only for read or write failures.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineCh := make(chan []byte)
	errCh := make(chan error, 1)

	go func() {
		defer close(lineCh)
		for scanner.Scan() {
			line := slices.Clone(scanner.Bytes())
			select {
			case lineCh <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- fmt.Errorf("reading request: %w", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lineCh:
			if !ok {
				select {
				case err := <-errCh:
					return err
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}
			if err := s.handleLine(ctx, line, bw); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
		}
	}
}

// handleLine dispatches one request and writes its response. Notifications
// get no response.
func (s *Server) handleLine(ctx context.Context, line []byte, bw *bufio.Writer) error {
	var req jsonrpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Debug("malformed request", "error", err)
		return writeResponse(bw, jsonrpcResponse{
			JSONRPC: "2.0",
			Error:   &jsonrpcError{Code: codeParseError, Message: "Parse error"},
		})
	}
	if req.ID == nil {
		s.logger.Debug("notification", "method", req.Method)
		return nil
	}

	resp := jsonrpcResponse{JSONRPC: "2.0", ID: req.ID}
	var err *jsonrpcError
	switch req.Method {
	case "initialize":
		resp.Result = s.initialize(req.Params)
	case "ping":
		resp.Result = struct{}{}
	case "tools/list":
		resp.Result = s.listTools()
	case "tools/call":
		resp.Result, err = s.callTool(ctx, req.Params)
	default:
		err = &jsonrpcError{Code: codeMethodNotFound, Message: "Method not found"}
	}
	if err != nil {
		resp.Result = nil
		resp.Error = err
	}
	return writeResponse(bw, resp)
}

func (s *Server) initialize(params json.RawMessage) map[string]any {
	var p struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	_ = json.Unmarshal(params, &p)
	version := protocolVersions[0]
	if slices.Contains(protocolVersions, p.ProtocolVersion) {
		version = p.ProtocolVersion
	}
	return map[string]any{
		"protocolVersion": version,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    "sessionlens",
			"version": s.version,
		},
	}
}

func (s *Server) listTools() map[string]any {
	entries := make([]toolListEntry, 0, len(s.tools))
	for _, t := range s.tools {
		entries = append(entries, toolListEntry{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return map[string]any{"tools": entries}
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, *jsonrpcError) {
	var params toolsCallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &jsonrpcError{Code: codeInvalidParams, Message: "Invalid params"}
	}

	i, ok := s.toolIndex[params.Name]
	if !ok {
		return textResult(fmt.Sprintf("unknown tool: %s", params.Name), true), nil
	}
	tool := s.tools[i]

	args := params.Arguments
	if args == nil {
		args = json.RawMessage(`{}`)
	}

	start := s.now()
	result, err := tool.Handler(ctx, args)
	if err != nil {
		s.logger.Debug("tool call failed", "tool", tool.Name, "error", err)
		return textResult(err.Error(), true), nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return textResult(fmt.Sprintf("encoding result: %v", err), true), nil
	}
	s.logger.Debug("tool call", "tool", tool.Name, "elapsed", s.now().Sub(start), "bytes", len(data))
	return textResult(string(data), false), nil
}

// writeResponse writes resp as a single JSON line and flushes.
func writeResponse(bw *bufio.Writer, resp jsonrpcResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := bw.Write(data); err != nil {
		return err
	}
	return bw.Flush()
}
