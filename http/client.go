package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	lnbridge "github.com/lightvault/lnbridge-go"
	"github.com/lightvault/lnbridge-go/bridge"
)

// ClientTransport is the page-side bridge.Transport. Each outbound call is
// one POST; the HTTP response carries the terminal bridge message, which is
// delivered back through the receive handler so correlation stays with the
// bridge.
type ClientTransport struct {
	// Endpoint is the wallet bridge URL.
	Endpoint string

	// Token is the session bearer token, minted by a TokenIssuer. Empty
	// disables the Authorization header.
	Token string

	// Client is the underlying HTTP client. Defaults to
	// http.DefaultClient.
	Client *http.Client

	mu      sync.Mutex
	recv    func(*bridge.Message)
	closeFn func(error)
	closed  bool
}

// NewClientTransport creates a page-side transport for the given endpoint.
func NewClientTransport(endpoint, token string) *ClientTransport {
	return &ClientTransport{
		Endpoint: endpoint,
		Token:    token,
		Client:   http.DefaultClient,
	}
}

// Send posts the call and feeds the response message back to the bridge.
func (t *ClientTransport) Send(ctx context.Context, msg *bridge.Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return lnbridge.ErrConnectionClosed
	}
	recv := t.recv
	t.mu.Unlock()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", lnbridge.ErrConnectionClosed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bridge endpoint returned status %d: %s", resp.StatusCode, payload)
	}

	var reply bridge.Message
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if recv != nil {
		go recv(&reply)
	}
	return nil
}

// SetReceiveHandler registers the inbound message callback.
func (t *ClientTransport) SetReceiveHandler(fn func(*bridge.Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recv = fn
}

// SetCloseHandler registers the close callback.
func (t *ClientTransport) SetCloseHandler(fn func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeFn = fn
}

// Close marks the transport closed and notifies the bridge.
func (t *ClientTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	closeFn := t.closeFn
	t.mu.Unlock()

	if closeFn != nil {
		closeFn(nil)
	}
	return nil
}

var _ bridge.Transport = (*ClientTransport)(nil)
