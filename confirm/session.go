package confirm

import (
	"sync"

	lnbridge "github.com/lightvault/lnbridge-go"
)

// State is the position of a confirmation session in its approval state
// machine. Sessions move strictly forward except for the retryable
// Failed -> AwaitingDecision loop.
type State int

const (
	// StateInit is the moment between decoding the request and
	// presenting the decision.
	StateInit State = iota

	// StateAwaitingDecision waits for the user to edit the budget,
	// toggle remember, confirm or reject.
	StateAwaitingDecision

	// StateSubmitting covers the in-flight executor call. The submission
	// is not retracted if the UI closes during this state.
	StateSubmitting

	// StateSucceeded is terminal: the executor confirmed the payment.
	StateSucceeded

	// StateFailed records an executor failure; the session may be
	// retried or rejected from here.
	StateFailed

	// StateRejected is terminal: the user declined.
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAwaitingDecision:
		return "awaiting_decision"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// Session is one in-flight payment approval. All mutation goes through the
// Controller's transition methods; direct field writes are not possible from
// outside the package, which keeps the state invariants checkable in one
// place.
type Session struct {
	mu sync.Mutex

	envelope  *lnbridge.PaymentEnvelope
	invoice   *lnbridge.Invoice
	external  bool
	responder Responder

	state          State
	proposedBudget int64
	remember       bool
	fiatAmount     string
	lastErr        error
	successMessage string
}

// State returns the current machine state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Envelope returns the payment envelope under approval.
func (s *Session) Envelope() *lnbridge.PaymentEnvelope {
	return s.envelope
}

// Invoice returns the decoded payment request.
func (s *Session) Invoice() *lnbridge.Invoice {
	return s.invoice
}

// ExternallyInitiated reports whether a rejection must be signalled across
// the bridge.
func (s *Session) ExternallyInitiated() bool {
	return s.external
}

// ProposedBudget returns the editable budget suggestion. It is advisory and
// not persisted until the user confirms with remember set.
func (s *Session) ProposedBudget() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proposedBudget
}

// Remember reports whether the origin will be remembered on confirm.
func (s *Session) Remember() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remember
}

// FiatAmount returns the display-only fiat value of the proposed budget.
// Blank when the FX lookup failed or never ran.
func (s *Session) FiatAmount() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fiatAmount
}

// LastError returns the most recent inline error (validation or executor
// failure), if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// SuccessMessage returns the terminal success text, set once the session
// reaches StateSucceeded.
func (s *Session) SuccessMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successMessage
}

// canDecide reports whether the session accepts user decisions. Failed
// counts: an executor failure returns the session to the decision point.
func (s *Session) canDecide() bool {
	return s.state == StateAwaitingDecision || s.state == StateFailed
}
