package allowance

import (
	"context"
	"fmt"
	"sync"

	lnbridge "github.com/lightvault/lnbridge-go"
)

// MemoryStore is an in-memory Store for single-process deployments. A single
// mutex covers the check-and-increment in Debit, which is what serializes
// concurrent debits for the same host.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*lnbridge.AllowanceRecord
}

// NewMemoryStore creates an empty in-memory allowance store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*lnbridge.AllowanceRecord),
	}
}

// Get returns a copy of the record for host, or nil when absent.
func (s *MemoryStore) Get(ctx context.Context, host string) (*lnbridge.AllowanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[host]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

// Create overwrites the record for host with a fresh budget window.
func (s *MemoryStore) Create(ctx context.Context, host string, totalBudget int64, name, icon string) error {
	if host == "" {
		return fmt.Errorf("allowance host cannot be empty")
	}
	if totalBudget <= 0 {
		return fmt.Errorf("allowance budget must be positive, got %d", totalBudget)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[host] = &lnbridge.AllowanceRecord{
		Host:        host,
		Name:        name,
		Icon:        icon,
		TotalBudget: totalBudget,
		UsedAmount:  0,
		Remembered:  true,
	}
	return nil
}

// Debit spends amount from the host's budget, or fails with
// lnbridge.ErrBudgetExceeded leaving the record unchanged.
func (s *MemoryStore) Debit(ctx context.Context, host string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[host]
	if !ok {
		return fmt.Errorf("%w: no allowance for host %s", lnbridge.ErrBudgetExceeded, host)
	}
	if rec.UsedAmount+amount > rec.TotalBudget {
		return fmt.Errorf("%w: %d requested, %d remaining", lnbridge.ErrBudgetExceeded, amount, rec.Remaining())
	}
	rec.UsedAmount += amount
	return nil
}

var _ Store = (*MemoryStore)(nil)
