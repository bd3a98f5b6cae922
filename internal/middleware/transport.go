package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"sfdatacloud/server/internal/jsonrpc"
)

// maxRequestBody bounds inbound JSON-RPC payloads (ingest tool records can
// be large, protocol messages cannot).
const maxRequestBody = 8 << 20

// Processor handles one JSON-RPC request. A nil response means the request
// was a notification.
type Processor func(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response

// session represents one SSE connection.
type session struct {
	id       string
	messages chan []byte
}

// transport serves MCP over both SSE sessions and inline POST round trips.
type transport struct {
	process  Processor
	sessions map[string]*session
	mu       sync.RWMutex
	endpoint string
}

// Transport creates the MCP transport handler. endpoint is the POST path
// advertised to SSE clients.
func Transport(endpoint string, process Processor) http.Handler {
	return &transport{
		process:  process,
		sessions: make(map[string]*session),
		endpoint: endpoint,
	}
}

func (t *transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		t.handleSSE(w, r)
	case http.MethodPost:
		t.handleMessage(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (t *transport) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		http.Error(w, "failed to generate session id", http.StatusInternalServerError)
		return
	}
	sessionID := hex.EncodeToString(idBytes)

	s := &session{id: sessionID, messages: make(chan []byte, 100)}

	t.mu.Lock()
	t.sessions[sessionID] = s
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.sessions, sessionID)
		t.mu.Unlock()
	}()

	fmt.Fprintf(w, "event: endpoint\ndata: %s?sessionId=%s\n\n", t.endpoint, sessionID)
	flusher.Flush()
	log.Printf("[transport] SSE session opened, session=%s", sessionID)

	for {
		select {
		case msg := <-s.messages:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			log.Printf("[transport] SSE session closed, session=%s", sessionID)
			return
		}
	}
}

func (t *transport) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		t.handleInline(w, r)
		return
	}

	t.mu.RLock()
	s, ok := t.sessions[sessionID]
	t.mu.RUnlock()
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		t.send(s, jsonrpc.NewError(nil, jsonrpc.ErrParse, "parse error", nil))
		w.WriteHeader(http.StatusAccepted)
		return
	}

	log.Printf("[transport] request %s method=%s session=%s", GetRequestID(r.Context()), req.Method, sessionID)

	if resp := t.process(r.Context(), &req); resp != nil {
		t.send(s, resp)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (t *transport) handleInline(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		json.NewEncoder(w).Encode(jsonrpc.NewError(nil, jsonrpc.ErrParse, "parse error", nil))
		return
	}

	log.Printf("[transport] inline request %s method=%s", GetRequestID(r.Context()), req.Method)

	resp := t.process(r.Context(), &req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	json.NewEncoder(w).Encode(resp)
}

func (t *transport) send(s *session, resp *jsonrpc.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[transport] marshal response failed: %v", err)
		return
	}
	select {
	case s.messages <- data:
	default:
		log.Printf("[transport] session %s message buffer full, dropping", s.id)
	}
}
