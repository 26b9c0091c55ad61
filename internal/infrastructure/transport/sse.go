package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/wassette-dev/wassette/internal/application/mcp"
)

// sseSession is one connected SSE client: an open GET /sse stream plus
// the POST endpoint it advertised for the client to send requests to.
type sseSession struct {
	id       string
	messages chan []byte
	closed   chan struct{}
	closeOnce sync.Once
}

func newSSESession() *sseSession {
	return &sseSession{
		id:       uuid.NewString(),
		messages: make(chan []byte, 64),
		closed:   make(chan struct{}),
	}
}

func (s *sseSession) close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// SSEServer exposes an MCP server over HTTP using the Server-Sent
// Events transport: a GET /sse stream the client keeps open to
// receive responses, and a POST /message?sessionId=... endpoint the
// client sends JSON-RPC requests to.
type SSEServer struct {
	mcp *mcp.Server

	mu       sync.Mutex
	sessions map[string]*sseSession
}

// NewSSEServer wraps srv for HTTP/SSE serving.
func NewSSEServer(srv *mcp.Server) *SSEServer {
	return &SSEServer{mcp: srv, sessions: make(map[string]*sseSession)}
}

// Handler builds the HTTP handler exposing the /sse and /message
// endpoints.
func (s *SSEServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", s.handleSSE)
	mux.HandleFunc("/message", s.handleMessage)
	return mux
}

func (s *SSEServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	session := newSSESession()
	s.mu.Lock()
	s.sessions[session.id] = session
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, session.id)
		s.mu.Unlock()
		session.close()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: endpoint\ndata: /message?sessionId=%s\n\n", session.id)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-session.messages:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *SSEServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "invalid JSON-RPC payload", http.StatusBadRequest)
		return
	}

	response, err := s.mcp.HandleMessage(r.Context(), raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)

	if response == nil {
		return
	}
	select {
	case session.messages <- response:
	case <-session.closed:
	}
}

// Serve listens on addr and serves the SSE transport until ctx is
// canceled.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
