// Package lnbridge mediates Lightning payment requests between untrusted web
// content and a privileged wallet context. It provides the cross-context
// message bridge, the per-origin allowance engine and the payment confirmation
// state machine; invoice decoding, LNURL resolution and payment execution are
// external collaborators reached through the interfaces in this package.
package lnbridge

import "encoding/json"

// RecipientMethod identifies how a page-declared recipient is paid.
type RecipientMethod string

const (
	// RecipientMethodLNURL resolves a human-readable address via LNURL-pay.
	RecipientMethodLNURL RecipientMethod = "lnurl"

	// RecipientMethodKeysend pays a node pubkey directly without an invoice.
	RecipientMethodKeysend RecipientMethod = "keysend"
)

// Origin identifies the page that initiated a payment request.
// It is captured once per page load and read-only thereafter.
type Origin struct {
	// Host uniquely identifies the origin (also the allowance key).
	Host string `json:"host" validate:"required"`

	// Name is the display name of the page (site name or title).
	Name string `json:"name"`

	// Icon is the resolved URL of the page icon, if any.
	Icon string `json:"icon"`
}

// Recipient is a page-declared payment target parsed from the lightning
// meta tag. Unknown keys from the key=value form are preserved in Extra.
type Recipient struct {
	Method  RecipientMethod `json:"method" validate:"required,oneof=lnurl keysend"`
	Address string          `json:"address" validate:"required"`

	// CustomKey and CustomValue carry a single keysend custom record
	// (e.g. 700001=hello). Both must be set or both empty.
	CustomKey   string `json:"customKey,omitempty"`
	CustomValue string `json:"customValue,omitempty"`

	// Extra holds unrecognized keys from the declarative tag, passed
	// through unchanged.
	Extra map[string]string `json:"-"`
}

// CustomRecords returns the keysend custom records declared by the page.
// The map is empty unless both CustomKey and CustomValue are present.
func (r *Recipient) CustomRecords() map[string]string {
	if r.CustomKey == "" || r.CustomValue == "" {
		return map[string]string{}
	}
	return map[string]string{r.CustomKey: r.CustomValue}
}

// PaymentEnvelope is the unit of work flowing through the bridge: a payment
// request (or recipient), the identity of the requesting origin and optional
// caller-supplied metadata.
type PaymentEnvelope struct {
	// PaymentRequest is the invoice to pay. Empty when Recipient is set.
	PaymentRequest string `json:"paymentRequest,omitempty"`

	// Recipient is a declarative payment target, set when no invoice has
	// been negotiated yet.
	Recipient *Recipient `json:"recipient,omitempty"`

	// Origin is nil for payments initiated inside the wallet itself.
	Origin *Origin `json:"origin,omitempty"`

	// Metadata is opaque caller-supplied context. It is schema-validated
	// before submission and never editable by the user.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	// CorrelationID binds the envelope to its bridge response.
	CorrelationID string `json:"correlationId,omitempty"`
}

// ExternallyInitiated reports whether both the origin and the payment request
// were supplied by a page rather than typed by the wallet holder. Only such
// requests receive an explicit rejection signal across the bridge.
func (e *PaymentEnvelope) ExternallyInitiated() bool {
	return e != nil && e.Origin != nil && e.PaymentRequest != ""
}

// AllowanceRecord is the durable per-origin spending budget.
// Invariant: 0 <= UsedAmount <= TotalBudget.
type AllowanceRecord struct {
	Host        string `json:"host"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	TotalBudget int64  `json:"totalBudget"`
	UsedAmount  int64  `json:"usedAmount"`
	Remembered  bool   `json:"remembered"`
}

// Remaining returns the unspent part of the budget.
func (r *AllowanceRecord) Remaining() int64 {
	return r.TotalBudget - r.UsedAmount
}

// Invoice is the decoded form of a payment request, produced by an external
// InvoiceDecoder.
type Invoice struct {
	PaymentRequest string `json:"paymentRequest"`
	AmountSat      int64  `json:"amountSat"`
	Description    string `json:"description,omitempty"`
	PaymentHash    string `json:"paymentHash,omitempty"`
}

// PaymentResult is returned by the external payment executor on success.
type PaymentResult struct {
	Preimage    string `json:"preimage"`
	PaymentHash string `json:"paymentHash"`
	FeeSat      int64  `json:"feeSat,omitempty"`
}

// AccountInfo describes the active wallet account.
type AccountInfo struct {
	Alias      string `json:"alias"`
	BalanceSat int64  `json:"balanceSat"`
}

// AddAllowanceParams is the payload of the addAllowance bridge method.
type AddAllowanceParams struct {
	TotalBudget int64  `json:"totalBudget" validate:"required,gt=0"`
	Host        string `json:"host" validate:"required"`
	Name        string `json:"name"`
	ImageURL    string `json:"imageURL"`
}
