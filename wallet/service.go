// Package wallet assembles the privileged side of the bridge: it exposes the
// wallet methods (sendPayment, addAllowance, fetchAccountInfo) to the
// untrusted page context, auto-approving payments within a remembered
// origin's budget and escalating everything else to interactive
// confirmation.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	lnbridge "github.com/lightvault/lnbridge-go"
	"github.com/lightvault/lnbridge-go/allowance"
	"github.com/lightvault/lnbridge-go/bridge"
)

var validate = validator.New()

// PromptOpener opens the interactive confirmation flow for a payment the
// gate refused to auto-approve. The opener owns the responder from that
// point: exactly one terminal response must eventually flow through it.
type PromptOpener func(ctx context.Context, env *lnbridge.PaymentEnvelope, responder *bridge.Responder)

// Service handles wallet methods arriving over the bridge.
type Service struct {
	store    allowance.Store
	gate     *allowance.Gate
	accounts lnbridge.AccountRefresher
	prompt   PromptOpener
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAccountRefresher enables the fetchAccountInfo method.
func WithAccountRefresher(accounts lnbridge.AccountRefresher) Option {
	return func(s *Service) { s.accounts = accounts }
}

// NewService creates the wallet-side bridge service. The prompt opener is
// required: it is where non-auto-approved payments go.
func NewService(store allowance.Store, gate *allowance.Gate, prompt PromptOpener, opts ...Option) *Service {
	s := &Service{
		store:  store,
		gate:   gate,
		prompt: prompt,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterHandlers binds the wallet methods on a bridge.
func (s *Service) RegisterHandlers(b *bridge.Bridge) {
	b.Handle("sendPayment", s.handleSendPayment)
	b.Handle("addAllowance", s.handleAddAllowance)
	b.Handle("fetchAccountInfo", s.handleFetchAccountInfo)
	b.Handle("getAllowance", s.handleGetAllowance)
}

type sendPaymentParams struct {
	PaymentRequest string `json:"paymentRequest"`
}

func (s *Service) handleSendPayment(ctx context.Context, in *bridge.Inbound) {
	var params sendPaymentParams
	if err := json.Unmarshal(in.Params, &params); err != nil {
		s.respondError(in, fmt.Errorf("%w: %v", lnbridge.ErrUndecodableRequest, err))
		return
	}
	if params.PaymentRequest == "" {
		s.respondError(in, fmt.Errorf("%w: missing paymentRequest", lnbridge.ErrUndecodableRequest))
		return
	}

	env := &lnbridge.PaymentEnvelope{
		PaymentRequest: params.PaymentRequest,
		Origin:         in.Origin,
		Metadata:       in.Metadata,
		CorrelationID:  in.Responder.ID(),
	}

	result, err := s.gate.SendPayment(ctx, env)
	switch {
	case err == nil:
		s.logger.Info("payment auto-approved", "id", in.Responder.ID())
		if rerr := in.Responder.Reply(result); rerr != nil {
			s.logger.Warn("failed to deliver auto-approved result", "error", rerr)
		}
	case errors.Is(err, allowance.ErrConfirmationRequired):
		s.logger.Info("payment escalated to confirmation", "id", in.Responder.ID())
		s.prompt(ctx, env, in.Responder)
	default:
		s.respondError(in, err)
	}
}

func (s *Service) handleAddAllowance(ctx context.Context, in *bridge.Inbound) {
	var params lnbridge.AddAllowanceParams
	if err := json.Unmarshal(in.Params, &params); err != nil {
		s.respondError(in, fmt.Errorf("%w: %v", lnbridge.ErrUndecodableRequest, err))
		return
	}
	if err := validate.Struct(params); err != nil {
		s.respondError(in, fmt.Errorf("%w: %v", lnbridge.ErrUndecodableRequest, err))
		return
	}

	// Prefer the caller-asserted host only when no trusted origin rode in
	// with the message.
	host := params.Host
	name, icon := params.Name, params.ImageURL
	if in.Origin != nil {
		host = in.Origin.Host
		if name == "" {
			name = in.Origin.Name
		}
		if icon == "" {
			icon = in.Origin.Icon
		}
	}

	if err := s.store.Create(ctx, host, params.TotalBudget, name, icon); err != nil {
		s.respondError(in, err)
		return
	}
	s.logger.Info("allowance created", "host", host, "budget_sat", params.TotalBudget)
	if err := in.Responder.Reply(map[string]bool{"ok": true}); err != nil {
		s.logger.Warn("failed to acknowledge allowance", "error", err)
	}
}

func (s *Service) handleGetAllowance(ctx context.Context, in *bridge.Inbound) {
	if in.Origin == nil {
		s.respondError(in, fmt.Errorf("%w: no origin on getAllowance", lnbridge.ErrUndecodableRequest))
		return
	}
	rec, err := s.store.Get(ctx, in.Origin.Host)
	if err != nil {
		s.respondError(in, err)
		return
	}
	if rec == nil {
		rec = &lnbridge.AllowanceRecord{Host: in.Origin.Host}
	}
	if err := in.Responder.Reply(rec); err != nil {
		s.logger.Warn("failed to deliver allowance", "error", err)
	}
}

func (s *Service) handleFetchAccountInfo(ctx context.Context, in *bridge.Inbound) {
	if s.accounts == nil {
		s.respondError(in, fmt.Errorf("account backend not configured"))
		return
	}
	info, err := s.accounts.FetchAccountInfo(ctx)
	if err != nil {
		s.respondError(in, err)
		return
	}
	if err := in.Responder.Reply(info); err != nil {
		s.logger.Warn("failed to deliver account info", "error", err)
	}
}

func (s *Service) respondError(in *bridge.Inbound, cause error) {
	s.logger.Warn("wallet method failed", "method", in.Method, "error", cause)
	if err := in.Responder.Error(cause); err != nil {
		s.logger.Warn("failed to deliver error", "error", err)
	}
}
