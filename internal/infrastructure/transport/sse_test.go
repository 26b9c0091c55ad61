package transport

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wassette-dev/wassette/internal/application/mcp"
	"github.com/wassette-dev/wassette/internal/application/registry"
)

func newTestSSEServer(t *testing.T) *SSEServer {
	t.Helper()
	reg, err := registry.Parse([]byte(`[]`))
	require.NoError(t, err)
	return NewSSEServer(mcp.NewServer(nil, reg))
}

func TestSSEEndpointAdvertisesSessionID(t *testing.T) {
	s := newTestSSEServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sse", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	buf := make([]byte, 256)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(buf[:n]), "event: endpoint"))
	require.True(t, strings.Contains(string(buf[:n]), "sessionId="))
}

func TestMessageEndpointRejectsUnknownSession(t *testing.T) {
	s := newTestSSEServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/message?sessionId=does-not-exist", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
