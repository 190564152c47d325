// Package bridge implements the correlation-addressed RPC primitive
// connecting an untrusted page context to the privileged wallet context.
//
// Each outbound call is bound to a correlation id and resolves when a
// terminal response (reply or error) arrives for that id. The contract is
// exactly-once: a correlation id receives one terminal response, never both
// and never more than once; later attempts are rejected rather than
// double-delivered. If the channel closes first, every pending call fails
// with lnbridge.ErrConnectionClosed. There is no retry or reconnection at
// this layer.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	lnbridge "github.com/lightvault/lnbridge-go"
)

// CallContext attaches page identity and caller metadata to a call made on
// behalf of untrusted content.
type CallContext struct {
	Origin   *lnbridge.Origin
	Metadata json.RawMessage
}

// Inbound is a received method invocation. The attached Responder must be
// completed exactly once.
type Inbound struct {
	Method    string
	Params    json.RawMessage
	Origin    *lnbridge.Origin
	Metadata  json.RawMessage
	Responder *Responder
}

// Handler processes an inbound call. Implementations complete the responder
// themselves; long-running flows (an open confirmation window) may hold it
// and complete later.
type Handler func(ctx context.Context, in *Inbound)

type pendingCall struct {
	ch        chan outcome
	completed bool
}

type outcome struct {
	result json.RawMessage
	err    error
}

// Bridge is one end of the cross-context channel.
type Bridge struct {
	transport Transport
	logger    *slog.Logger

	mu       sync.Mutex
	pending  map[string]*pendingCall
	handlers map[string]Handler
	inbound  map[string]struct{}
	closed   bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithHandler registers a method handler for inbound calls.
func WithHandler(method string, h Handler) Option {
	return func(b *Bridge) {
		b.handlers[method] = h
	}
}

// New wires a bridge onto the given transport.
func New(t Transport, opts ...Option) *Bridge {
	b := &Bridge{
		transport: t,
		logger:    slog.Default(),
		pending:   make(map[string]*pendingCall),
		handlers:  make(map[string]Handler),
		inbound:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	t.SetReceiveHandler(b.receive)
	t.SetCloseHandler(b.handleClose)
	return b
}

// Handle registers a method handler for inbound calls after construction.
func (b *Bridge) Handle(method string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[method] = h
}

// Call sends a method invocation with attached page context and waits for
// its terminal response.
func (b *Bridge) Call(ctx context.Context, method string, params any, cc *CallContext) (json.RawMessage, error) {
	msg := &Message{
		ID:     uuid.NewString(),
		Type:   MessageTypeCall,
		Method: method,
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		msg.Params = data
	}
	if cc != nil {
		msg.Origin = cc.Origin
		msg.Metadata = cc.Metadata
	}
	return b.roundTripCall(ctx, msg)
}

// Request sends a privileged-only invocation that carries no page context.
func (b *Bridge) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return b.Call(ctx, method, params, nil)
}

func (b *Bridge) roundTripCall(ctx context.Context, msg *Message) (json.RawMessage, error) {
	pc := &pendingCall{ch: make(chan outcome, 1)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, lnbridge.ErrConnectionClosed
	}
	b.pending[msg.ID] = pc
	b.mu.Unlock()

	if err := b.transport.Send(ctx, msg); err != nil {
		b.mu.Lock()
		delete(b.pending, msg.ID)
		b.mu.Unlock()
		return nil, err
	}

	select {
	case out := <-pc.ch:
		return out.result, out.err
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pending, msg.ID)
		b.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Reply sends the success completion for a previously received call. It
// fails with lnbridge.ErrAlreadyCompleted if the id already received its
// terminal response (or was never open).
func (b *Bridge) Reply(id string, value any) error {
	if err := b.consumeInbound(id); err != nil {
		return err
	}
	msg := &Message{ID: id, Type: MessageTypeReply}
	if value != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal reply: %w", err)
		}
		msg.Result = data
	}
	return b.transport.Send(context.Background(), msg)
}

// Error sends the failure completion for a previously received call, with
// the same exactly-once contract as Reply.
func (b *Bridge) Error(id string, cause error) error {
	if err := b.consumeInbound(id); err != nil {
		return err
	}
	msg := &Message{
		ID:    id,
		Type:  MessageTypeError,
		Error: lnbridge.NewBridgeError(cause),
	}
	return b.transport.Send(context.Background(), msg)
}

// Close tears down the transport and fails every pending call.
func (b *Bridge) Close() error {
	return b.transport.Close()
}

func (b *Bridge) consumeInbound(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, open := b.inbound[id]; !open {
		return lnbridge.ErrAlreadyCompleted
	}
	delete(b.inbound, id)
	return nil
}

func (b *Bridge) receive(msg *Message) {
	switch msg.Type {
	case MessageTypeCall:
		b.dispatch(msg)
	case MessageTypeReply, MessageTypeError:
		b.complete(msg)
	default:
		b.logger.Warn("dropping message with unknown type", "type", msg.Type, "id", msg.ID)
	}
}

func (b *Bridge) dispatch(msg *Message) {
	b.mu.Lock()
	handler, ok := b.handlers[msg.Method]
	if ok {
		b.inbound[msg.ID] = struct{}{}
	}
	b.mu.Unlock()

	in := &Inbound{
		Method:   msg.Method,
		Params:   msg.Params,
		Origin:   msg.Origin,
		Metadata: msg.Metadata,
	}
	in.Responder = &Responder{bridge: b, id: msg.ID}

	if !ok {
		b.logger.Warn("no handler for method", "method", msg.Method, "id", msg.ID)
		errMsg := &Message{
			ID:   msg.ID,
			Type: MessageTypeError,
			Error: &lnbridge.BridgeError{
				Code:    lnbridge.CodeInternal,
				Message: fmt.Sprintf("no handler for method %q", msg.Method),
			},
		}
		if err := b.transport.Send(context.Background(), errMsg); err != nil {
			b.logger.Warn("failed to send method-not-found error", "id", msg.ID, "err", err)
		}
		return
	}

	go handler(context.Background(), in)
}

func (b *Bridge) complete(msg *Message) {
	b.mu.Lock()
	pc, ok := b.pending[msg.ID]
	if !ok || pc.completed {
		b.mu.Unlock()
		// Protocol violation: duplicate or unknown terminal response.
		// Rejected rather than double-delivered.
		b.logger.Warn("ignoring terminal response for unknown or completed id", "id", msg.ID, "type", msg.Type)
		return
	}
	pc.completed = true
	delete(b.pending, msg.ID)
	b.mu.Unlock()

	if msg.Type == MessageTypeError {
		var err error = msg.Error
		if msg.Error == nil {
			err = fmt.Errorf("error response without error body")
		}
		pc.ch <- outcome{err: err}
		return
	}
	pc.ch <- outcome{result: msg.Result}
}

func (b *Bridge) handleClose(cause error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	pending := b.pending
	b.pending = make(map[string]*pendingCall)
	b.mu.Unlock()

	err := lnbridge.ErrConnectionClosed
	if cause != nil {
		err = fmt.Errorf("%w: %v", lnbridge.ErrConnectionClosed, cause)
	}
	for _, pc := range pending {
		if !pc.completed {
			pc.completed = true
			pc.ch <- outcome{err: err}
		}
	}
}

// Responder is the one-shot completion handle for an inbound call. It is
// consumed exactly once; a second completion attempt returns
// lnbridge.ErrAlreadyCompleted without sending anything.
type Responder struct {
	bridge *Bridge
	id     string
	done   atomic.Bool
}

// ID returns the correlation id this responder completes.
func (r *Responder) ID() string {
	return r.id
}

// Reply sends the success completion.
func (r *Responder) Reply(value any) error {
	if !r.done.CompareAndSwap(false, true) {
		return lnbridge.ErrAlreadyCompleted
	}
	return r.bridge.Reply(r.id, value)
}

// Error sends the failure completion.
func (r *Responder) Error(cause error) error {
	if !r.done.CompareAndSwap(false, true) {
		return lnbridge.ErrAlreadyCompleted
	}
	return r.bridge.Error(r.id, cause)
}
