// Package confirm drives the interactive payment approval flow: decode the
// request, present an editable budget proposal, persist an allowance when
// the user opts to remember the origin, and settle the originating bridge
// call with exactly one terminal response.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	lnbridge "github.com/lightvault/lnbridge-go"
	"github.com/lightvault/lnbridge-go/allowance"
	"github.com/lightvault/lnbridge-go/fx"
	"github.com/lightvault/lnbridge-go/metadata"
)

// DefaultBudgetFactor scales the decoded invoice amount into the proposed
// recurring budget shown to the user.
const DefaultBudgetFactor = 10

// ErrBadState is returned when a decision method is called on a session
// that is not at a decision point.
var ErrBadState = errors.New("confirm: session is not awaiting a decision")

// Responder settles the originating call. *bridge.Responder satisfies it.
type Responder interface {
	Reply(value any) error
	Error(cause error) error
}

// Controller executes confirmation sessions against the wallet's stores and
// executor. It is safe for concurrent use across sessions; each session
// serialises its own transitions.
type Controller struct {
	store    allowance.Store
	decoder  lnbridge.InvoiceDecoder
	executor lnbridge.Executor
	accounts lnbridge.AccountRefresher
	quotes   fx.QuoteClient
	navigate func()
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithQuotes enables fiat display values for proposed budgets.
func WithQuotes(quotes fx.QuoteClient) Option {
	return func(c *Controller) { c.quotes = quotes }
}

// WithAccountRefresher refreshes wallet account info after a successful
// payment.
func WithAccountRefresher(accounts lnbridge.AccountRefresher) Option {
	return func(c *Controller) { c.accounts = accounts }
}

// WithNavigator sets the callback invoked when a locally initiated session
// is rejected and the UI should return to where it came from.
func WithNavigator(navigate func()) Option {
	return func(c *Controller) { c.navigate = navigate }
}

// NewController wires a confirmation controller. Store, decoder and executor
// are required; the rest are optional collaborators.
func NewController(store allowance.Store, decoder lnbridge.InvoiceDecoder, executor lnbridge.Executor, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		decoder:  decoder,
		executor: executor,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start decodes the envelope's payment request and opens a session at the
// decision point. A responder may be nil for locally initiated flows; when
// the envelope is externally initiated a decode failure is signalled back
// across the bridge before returning.
func (c *Controller) Start(ctx context.Context, env *lnbridge.PaymentEnvelope, responder Responder) (*Session, error) {
	invoice, err := c.decoder.Decode(env.PaymentRequest)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", lnbridge.ErrUndecodableRequest, err)
		if env.ExternallyInitiated() && responder != nil {
			if rerr := responder.Error(wrapped); rerr != nil {
				c.logger.Warn("failed to report decode error", "error", rerr)
			}
		}
		return nil, wrapped
	}

	s := &Session{
		envelope:       env,
		invoice:        invoice,
		external:       env.ExternallyInitiated() && responder != nil,
		responder:      responder,
		state:          StateAwaitingDecision,
		proposedBudget: invoice.AmountSat * DefaultBudgetFactor,
	}

	c.RefreshFiat(ctx, s)
	return s, nil
}

// RefreshFiat recomputes the display fiat value for the current proposed
// budget. Lookup failures leave the value blank; they are logged, not
// surfaced.
func (c *Controller) RefreshFiat(ctx context.Context, s *Session) {
	if c.quotes == nil {
		return
	}
	budget := s.ProposedBudget()
	value, err := c.quotes.FiatValue(ctx, budget)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		c.logger.Warn("fiat quote unavailable", "error", err)
		s.fiatAmount = ""
		return
	}
	s.fiatAmount = value
}

// SetBudget updates the proposed budget. Zero disables remembering even if
// the toggle is on.
func (c *Controller) SetBudget(s *Session, amountSat int64) error {
	if amountSat < 0 {
		return fmt.Errorf("budget must not be negative, got %d", amountSat)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canDecide() {
		return ErrBadState
	}
	s.proposedBudget = amountSat
	return nil
}

// SetRemember toggles persisting an allowance for the origin on confirm.
func (c *Controller) SetRemember(s *Session, remember bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canDecide() {
		return ErrBadState
	}
	s.remember = remember
	return nil
}

// Confirm runs the approval: persist the allowance first when remembering,
// validate attached metadata, then submit to the executor. The submission
// slot is claimed under the same lock as the decision check, so a second
// concurrent Confirm gets ErrBadState instead of a second payment.
// Validation failures return the session to the decision point with the
// executor untouched; executor failures are retryable.
func (c *Controller) Confirm(ctx context.Context, s *Session) error {
	s.mu.Lock()
	if !s.canDecide() {
		s.mu.Unlock()
		return ErrBadState
	}
	s.state = StateSubmitting
	s.lastErr = nil
	remember := s.remember
	budget := s.proposedBudget
	env := s.envelope
	s.mu.Unlock()

	if remember && budget > 0 && env.Origin != nil {
		err := c.store.Create(ctx, env.Origin.Host, budget, env.Origin.Name, env.Origin.Icon)
		if err != nil {
			c.backToDecision(s, fmt.Errorf("save allowance: %w", err))
			return err
		}
		c.logger.Info("allowance remembered", "host", env.Origin.Host, "budget_sat", budget)
	}

	if err := metadata.Validate(env.Metadata); err != nil {
		c.backToDecision(s, err)
		return err
	}

	result, err := c.executor.SendPayment(ctx, env)
	if err != nil {
		wrapped := lnbridge.NewUpstreamError("executor", err)
		c.logger.Error("payment failed", "error", wrapped)
		s.mu.Lock()
		s.state = StateFailed
		s.lastErr = wrapped
		s.mu.Unlock()
		return wrapped
	}

	if c.accounts != nil {
		if _, err := c.accounts.FetchAccountInfo(ctx); err != nil {
			c.logger.Warn("account refresh failed after payment", "error", err)
		}
	}

	s.mu.Lock()
	external := s.external
	responder := s.responder
	s.state = StateSucceeded
	s.successMessage = "Success, payment sent!"
	s.mu.Unlock()

	if external && responder != nil {
		if rerr := responder.Reply(result); rerr != nil {
			c.logger.Warn("failed to deliver payment result", "error", rerr)
		}
	}

	c.logger.Info("payment sent",
		"payment_hash", result.PaymentHash,
		"fee_sat", result.FeeSat,
	)
	return nil
}

// Reject declines the payment. Externally initiated sessions signal exactly
// one rejection across the bridge; locally initiated ones navigate back
// silently.
func (c *Controller) Reject(s *Session) error {
	s.mu.Lock()
	if !s.canDecide() {
		s.mu.Unlock()
		return ErrBadState
	}
	external := s.external
	responder := s.responder
	s.state = StateRejected
	s.mu.Unlock()

	if external && responder != nil {
		if err := responder.Error(lnbridge.ErrUserRejected); err != nil {
			c.logger.Warn("failed to deliver rejection", "error", err)
		}
		return nil
	}
	if c.navigate != nil {
		c.navigate()
	}
	return nil
}

// backToDecision releases a claimed submission slot, recording the error
// inline and returning the session to the decision point.
func (c *Controller) backToDecision(s *Session, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAwaitingDecision
	s.lastErr = err
}

// ParseStandaloneRequest extracts a payment envelope from a standalone
// prompt URL's query string, used when the approval runs in its own window
// instead of receiving the envelope in memory.
func ParseStandaloneRequest(query url.Values) (*lnbridge.PaymentEnvelope, error) {
	paymentRequest := query.Get("paymentRequest")
	if paymentRequest == "" {
		return nil, fmt.Errorf("%w: missing paymentRequest parameter", lnbridge.ErrUndecodableRequest)
	}
	env := &lnbridge.PaymentEnvelope{
		PaymentRequest: paymentRequest,
	}
	if host := query.Get("host"); host != "" {
		env.Origin = &lnbridge.Origin{
			Host: host,
			Name: query.Get("name"),
			Icon: query.Get("icon"),
		}
	}
	if meta := query.Get("metadata"); meta != "" {
		env.Metadata = []byte(meta)
	}
	return env, nil
}
