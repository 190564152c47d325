package allowance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lnbridge "github.com/lightvault/lnbridge-go"
)

// Gate fronts the payment executor with the allowance check. A payment from
// a remembered origin whose amount fits the remaining budget is debited and
// executed without interactive confirmation; everything else is referred to
// the confirmation flow with ErrConfirmationRequired.
//
// The debit happens before execution so that two concurrent payments cannot
// jointly overspend the budget. A debit is not refunded when the executor
// fails afterwards; failed attempts count against the budget.
type Gate struct {
	store    Store
	decoder  lnbridge.InvoiceDecoder
	executor lnbridge.Executor
	logger   *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the gate logger.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate wires the allowance check in front of the executor.
func NewGate(store Store, decoder lnbridge.InvoiceDecoder, executor lnbridge.Executor, opts ...GateOption) *Gate {
	g := &Gate{
		store:    store,
		decoder:  decoder,
		executor: executor,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SendPayment authorizes and executes the envelope if the origin has a
// sufficient remembered allowance. It returns ErrConfirmationRequired when
// the payment needs the interactive flow instead.
func (g *Gate) SendPayment(ctx context.Context, env *lnbridge.PaymentEnvelope) (*lnbridge.PaymentResult, error) {
	if env.Origin == nil {
		return nil, ErrConfirmationRequired
	}

	invoice, err := g.decoder.Decode(env.PaymentRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lnbridge.ErrUndecodableRequest, err)
	}

	rec, err := g.store.Get(ctx, env.Origin.Host)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.Remembered {
		return nil, ErrConfirmationRequired
	}

	if err := g.store.Debit(ctx, env.Origin.Host, invoice.AmountSat); err != nil {
		if errors.Is(err, lnbridge.ErrBudgetExceeded) {
			g.logger.Info("allowance exhausted, falling back to confirmation",
				"host", env.Origin.Host, "amount", invoice.AmountSat)
			return nil, ErrConfirmationRequired
		}
		return nil, err
	}

	result, err := g.executor.SendPayment(ctx, env)
	if err != nil {
		return nil, lnbridge.NewUpstreamError("executor", err)
	}

	g.logger.Info("payment auto-approved from allowance",
		"host", env.Origin.Host, "amount", invoice.AmountSat)
	return result, nil
}

var _ lnbridge.Executor = (*Gate)(nil)
