package lnbridge

import "context"

// InvoiceDecoder decodes a raw payment request into its amount and
// description. Wire-format decoding is an external concern; implementations
// typically wrap a BOLT11 library or a node RPC.
type InvoiceDecoder interface {
	Decode(paymentRequest string) (*Invoice, error)
}

// Executor performs an authorized payment. It is an opaque external
// collaborator: routing, signing and ledger updates happen behind it, and it
// runs to completion independently once invoked.
type Executor interface {
	SendPayment(ctx context.Context, envelope *PaymentEnvelope) (*PaymentResult, error)
}

// AccountRefresher fetches the active account state. The confirmation flow
// refreshes the balance after a successful payment.
type AccountRefresher interface {
	FetchAccountInfo(ctx context.Context) (*AccountInfo, error)
}
