package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"

	"github.com/wassette-dev/wassette/internal/application/lifecycle"
	"github.com/wassette-dev/wassette/internal/application/registry"
	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

const serverName = "wassette"
const serverVersion = "0.1.0"

// Server is an MCP server that exposes every loaded component's
// exports, plus this runtime's own built-in tools, over JSON-RPC 2.0
// on newline-delimited stdio. Grounded on bureau's
// cmd/bureau/mcp/server.go dispatch loop, generalized to route a
// tools/call either to a fixed built-in handler or to
// lifecycle.Manager.InvokeByToolName for a component export.
type Server struct {
	manager     *lifecycle.Manager
	registry    *registry.Registry
	builtins    map[string]builtinTool
	initialized atomic.Bool

	// toolsChangedMu guards delivery of a listChanged notification;
	// held only for the instant it takes to write the line.
	toolsChangedMu sync.Mutex
	notifyOut      *json.Encoder
}

// NewServer builds a Server over manager and an optional registry (nil
// disables search-registry).
func NewServer(manager *lifecycle.Manager, reg *registry.Registry) *Server {
	s := &Server{manager: manager, registry: reg}
	s.builtins = make(map[string]builtinTool)
	for _, b := range builtinTools() {
		s.builtins[b.name] = b
	}
	return s
}

// Run processes JSON-RPC 2.0 requests from input and writes responses
// to output until input reaches EOF. Each request occupies one line
// (newline-delimited JSON-RPC, not Content-Length framed).
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	encoder := json.NewEncoder(output)
	s.toolsChangedMu.Lock()
	s.notifyOut = encoder
	s.toolsChangedMu.Unlock()

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if writeErr := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); writeErr != nil {
				return writeErr
			}
			continue
		}

		if req.JSONRPC != "2.0" {
			if !req.isNotification() {
				if writeErr := writeError(encoder, req.ID, codeInvalidRequest, "unsupported JSON-RPC version"); writeErr != nil {
					return writeErr
				}
			}
			continue
		}

		if req.isNotification() {
			continue
		}

		if err := s.dispatch(ctx, encoder, &req); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// HandleMessage dispatches a single JSON-RPC request or notification
// given as a raw line, returning the raw JSON-RPC response to send
// back (nil for a notification, which receives no response). This is
// the entry point transports that don't frame as a persistent
// newline-delimited stream (e.g. one message per SSE POST) use instead
// of Run.
func (s *Server) HandleMessage(ctx context.Context, line []byte) ([]byte, error) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return encodeOne(response{JSONRPC: "2.0", ID: json.RawMessage("null"), Error: &rpcError{Code: codeParseError, Message: "parse error: " + err.Error()}})
	}
	if req.JSONRPC != "2.0" {
		if req.isNotification() {
			return nil, nil
		}
		return encodeOne(response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidRequest, Message: "unsupported JSON-RPC version"}})
	}
	if req.isNotification() {
		return nil, nil
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := s.dispatch(ctx, encoder, &req); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeOne(r response) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) dispatch(ctx context.Context, encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return writeResult(encoder, req.ID, map[string]any{})
	case "tools/list":
		if !s.initialized.Load() {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized.Load() {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(ctx, encoder, req)
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for initialize")
	}
	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}

	s.initialized.Store(true)

	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    serverCapabilities{Tools: &toolCapability{ListChanged: true}},
		ServerInfo:      serverInfo{Name: serverName, Version: serverVersion},
	})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, 0, len(s.builtins))
	for _, b := range s.builtins {
		descriptions = append(descriptions, toolDescription{
			Name:        b.name,
			Description: b.description,
			InputSchema: json.RawMessage(b.inputSchema),
		})
	}
	if s.manager != nil {
		for _, t := range s.manager.ListTools() {
			descriptions = append(descriptions, toolDescription{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: json.RawMessage(t.InputSchema),
			})
		}
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(ctx context.Context, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	if b, ok := s.builtins[params.Name]; ok {
		result, err := b.handler(ctx, s, params.Arguments)
		return writeResult(encoder, req.ID, buildToolResult(result, err))
	}

	if s.manager == nil {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	result, err := s.manager.InvokeByToolName(ctx, params.Name, params.Arguments)
	if err != nil && wassetteerr.KindOf(err) == wassetteerr.NotFound {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}
	var decoded any
	if err == nil {
		decoded = json.RawMessage(result)
	}
	return writeResult(encoder, req.ID, buildToolResult(decoded, err))
}

// buildToolResult shapes a handler's (result, error) pair into the
// MCP tools/call content-block result, surfacing a failed call as
// isError: true rather than a JSON-RPC-level error, per the MCP
// convention of letting the model see and react to tool failures.
func buildToolResult(result any, err error) toolsCallResult {
	if err != nil {
		return toolsCallResult{
			Content: []contentBlock{{Type: "text", Text: err.Error()}},
			IsError: true,
		}
	}
	text, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return toolsCallResult{
			Content: []contentBlock{{Type: "text", Text: marshalErr.Error()}},
			IsError: true,
		}
	}
	return toolsCallResult{Content: []contentBlock{{Type: "text", Text: string(text)}}}
}

// notifyToolsChanged emits a notifications/tools/list_changed message
// after a built-in handler adds or removes a component's tools.
func (s *Server) notifyToolsChanged() {
	s.toolsChangedMu.Lock()
	defer s.toolsChangedMu.Unlock()
	if s.notifyOut == nil {
		return
	}
	_ = s.notifyOut.Encode(notification{JSONRPC: "2.0", Method: "notifications/tools/list_changed"})
}

func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Result: result})
}

func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}
