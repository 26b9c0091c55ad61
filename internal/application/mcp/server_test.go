package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wassette-dev/wassette/internal/application/registry"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg, err := registry.Parse([]byte(`[{"name":"Weather","description":"weather component","uri":"oci://example.com/weather"}]`))
	require.NoError(t, err)
	return NewServer(nil, reg)
}

func runLines(t *testing.T, s *Server, lines ...string) []response {
	t.Helper()
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	err := s.Run(context.Background(), in, &out)
	require.NoError(t, err)

	dec := json.NewDecoder(&out)
	var responses []response
	for {
		var r response
		if err := dec.Decode(&r); err != nil {
			break
		}
		responses = append(responses, r)
	}
	return responses
}

func TestInitializeThenToolsList(t *testing.T) {
	s := newTestServer(t)
	responses := runLines(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	require.Len(t, responses, 2)
	require.Nil(t, responses[0].Error)
	require.Nil(t, responses[1].Error)

	raw, err := json.Marshal(responses[1].Result)
	require.NoError(t, err)
	var list toolsListResult
	require.NoError(t, json.Unmarshal(raw, &list))

	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	require.Contains(t, names, "search-registry")
	require.Contains(t, names, "load-component")
}

func TestToolsListBeforeInitializeIsRejected(t *testing.T) {
	s := newTestServer(t)
	responses := runLines(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	require.Equal(t, codeInvalidRequest, responses[0].Error.Code)
}

func TestSearchRegistryToolCall(t *testing.T) {
	s := newTestServer(t)
	responses := runLines(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"search-registry","arguments":{"query":"weather"}}}`,
	)
	require.Len(t, responses, 2)

	raw, err := json.Marshal(responses[1].Result)
	require.NoError(t, err)
	var result toolsCallResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	require.Contains(t, result.Content[0].Text, "Weather")
}

func TestUnknownToolCallIsError(t *testing.T) {
	s := newTestServer(t)
	responses := runLines(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"does-not-exist","arguments":{}}}`,
	)
	require.Len(t, responses, 2)
	require.NotNil(t, responses[1].Error)
	require.Equal(t, codeInvalidParams, responses[1].Error.Code)
}

func TestNotificationsReceiveNoResponse(t *testing.T) {
	s := newTestServer(t)
	responses := runLines(t, s, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	require.Empty(t, responses)
}
