// Package allowance owns the per-origin spending budgets that let a
// remembered site spend without interactive confirmation until its budget is
// exhausted.
package allowance

import (
	"context"
	"errors"

	lnbridge "github.com/lightvault/lnbridge-go"
)

// ErrConfirmationRequired is returned by the Gate when a payment cannot be
// auto-approved and must go through the interactive confirmation flow.
var ErrConfirmationRequired = errors.New("interactive confirmation required")

// Store is the durable record of per-origin budgets. Implementations must be
// safe for concurrent use and must serialize debits per host so the budget
// invariant (0 <= used <= total) holds under concurrent payments.
type Store interface {
	// Get returns the record for host, or nil when absent.
	Get(ctx context.Context, host string) (*lnbridge.AllowanceRecord, error)

	// Create initializes a record with usedAmount = 0 and remembered =
	// true, overwriting any prior record for the host. Re-remembering a
	// site resets its budget window.
	Create(ctx context.Context, host string, totalBudget int64, name, icon string) error

	// Debit atomically checks used + amount <= total and increments used.
	// On lnbridge.ErrBudgetExceeded the record is left unchanged.
	Debit(ctx context.Context, host string, amount int64) error
}
