// Package http carries bridge messages over HTTP: a server transport that
// answers each posted call with its terminal response, a client transport
// for the page side, and bearer-token session auth for the endpoint.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	lnbridge "github.com/lightvault/lnbridge-go"
	"github.com/lightvault/lnbridge-go/bridge"
)

// DefaultResponseTimeout bounds how long a posted call may wait for its
// terminal response. Interactive confirmations can take a while; requests
// should carry their own deadline when they want less.
const DefaultResponseTimeout = 5 * time.Minute

// ServerTransport is the wallet-side bridge.Transport served over HTTP.
// Each POST carries one call message; the connection is held open until the
// wallet produces the matching terminal response, which becomes the HTTP
// response body.
type ServerTransport struct {
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	recv    func(*bridge.Message)
	closeFn func(error)
	waiters map[string]chan *bridge.Message
	closed  bool
}

// NewServerTransport creates an HTTP server transport.
func NewServerTransport(logger *slog.Logger) *ServerTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServerTransport{
		logger:  logger,
		timeout: DefaultResponseTimeout,
		waiters: make(map[string]chan *bridge.Message),
	}
}

// Send routes a terminal response back to the HTTP request waiting on its
// correlation id. Responses for ids with no waiter are dropped; the waiter
// already gave up.
func (t *ServerTransport) Send(ctx context.Context, msg *bridge.Message) error {
	t.mu.Lock()
	ch, ok := t.waiters[msg.ID]
	if ok {
		delete(t.waiters, msg.ID)
	}
	closed := t.closed
	t.mu.Unlock()

	if closed {
		return lnbridge.ErrConnectionClosed
	}
	if !ok {
		t.logger.Warn("no waiter for response", "id", msg.ID)
		return nil
	}
	ch <- msg
	return nil
}

// SetReceiveHandler registers the inbound message callback.
func (t *ServerTransport) SetReceiveHandler(fn func(*bridge.Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recv = fn
}

// SetCloseHandler registers the close callback.
func (t *ServerTransport) SetCloseHandler(fn func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeFn = fn
}

// Close shuts the transport down and releases all waiting requests.
func (t *ServerTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	waiters := t.waiters
	t.waiters = make(map[string]chan *bridge.Message)
	closeFn := t.closeFn
	t.mu.Unlock()

	for id, ch := range waiters {
		ch <- &bridge.Message{
			ID:   id,
			Type: bridge.MessageTypeError,
			Error: &lnbridge.BridgeError{
				Code:    lnbridge.CodeConnection,
				Message: "bridge closed",
			},
		}
	}
	if closeFn != nil {
		closeFn(nil)
	}
	return nil
}

// ServeHTTP accepts one call message per request and answers with its
// terminal response.
func (t *ServerTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var msg bridge.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid message: %v", err))
		return
	}
	if msg.ID == "" || msg.Type != bridge.MessageTypeCall {
		writeError(w, http.StatusBadRequest, "expected a call message with an id")
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		writeError(w, http.StatusServiceUnavailable, "bridge closed")
		return
	}
	if _, dup := t.waiters[msg.ID]; dup {
		t.mu.Unlock()
		writeError(w, http.StatusConflict, "duplicate correlation id")
		return
	}
	ch := make(chan *bridge.Message, 1)
	t.waiters[msg.ID] = ch
	recv := t.recv
	t.mu.Unlock()

	if recv == nil {
		t.abandon(msg.ID)
		writeError(w, http.StatusServiceUnavailable, "bridge not ready")
		return
	}
	recv(&msg)

	ctx := r.Context()
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	select {
	case resp := <-ch:
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.logger.Warn("failed to write response", "id", msg.ID, "error", err)
		}
	case <-ctx.Done():
		t.abandon(msg.ID)
		t.logger.Warn("request gave up waiting for response", "id", msg.ID)
		writeError(w, http.StatusGatewayTimeout, "no response before deadline")
	}
}

func (t *ServerTransport) abandon(id string) {
	t.mu.Lock()
	delete(t.waiters, id)
	t.mu.Unlock()
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

var _ bridge.Transport = (*ServerTransport)(nil)
