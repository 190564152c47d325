package bridge

import (
	"context"
	"fmt"
	"sync"

	lnbridge "github.com/lightvault/lnbridge-go"
)

// Transport moves messages between the page context and the privileged
// context. Implementations must deliver inbound messages to the receive
// handler and signal channel closure exactly once via the close handler.
type Transport interface {
	// Send delivers a message to the peer context.
	Send(ctx context.Context, msg *Message) error

	// SetReceiveHandler registers the callback for inbound messages.
	SetReceiveHandler(fn func(*Message))

	// SetCloseHandler registers the callback invoked when the channel
	// closes. A nil error means an orderly close.
	SetCloseHandler(fn func(error))

	// Close tears the channel down. Safe to call more than once.
	Close() error
}

// PipeTransport is an in-process Transport connecting two bridges directly.
// It is used by overlay (same-process) deployments and tests. Messages are
// serialized through JSON on the way across so both ends stay as isolated as
// they would be over a real channel.
type PipeTransport struct {
	mu      sync.Mutex
	peer    *PipeTransport
	recv    func(*Message)
	closeFn func(error)
	closed  bool
}

// Pipe returns a connected pair of in-process transports. Closing either end
// closes both.
func Pipe() (*PipeTransport, *PipeTransport) {
	a := &PipeTransport{}
	b := &PipeTransport{}
	a.peer = b
	b.peer = a
	return a, b
}

// Send serializes the message and delivers it to the peer's receive handler.
func (t *PipeTransport) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: pipe closed", lnbridge.ErrConnectionClosed)
	}

	copied, err := roundTrip(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	t.peer.mu.Lock()
	recv := t.peer.recv
	peerClosed := t.peer.closed
	t.peer.mu.Unlock()
	if peerClosed || recv == nil {
		return fmt.Errorf("%w: peer closed", lnbridge.ErrConnectionClosed)
	}

	go recv(copied)
	return nil
}

// SetReceiveHandler implements Transport.
func (t *PipeTransport) SetReceiveHandler(fn func(*Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recv = fn
}

// SetCloseHandler implements Transport.
func (t *PipeTransport) SetCloseHandler(fn func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeFn = fn
}

// Close closes both ends of the pipe.
func (t *PipeTransport) Close() error {
	t.closeEnd()
	t.peer.closeEnd()
	return nil
}

func (t *PipeTransport) closeEnd() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	closeFn := t.closeFn
	t.mu.Unlock()

	if closeFn != nil {
		closeFn(nil)
	}
}
