package account

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	lnbridge "github.com/lightvault/lnbridge-go"
	"github.com/lightvault/lnbridge-go/bridge"
)

// Service fetches account state from the wallet backend over the bridge and
// caches the last known snapshot for synchronous reads.
type Service struct {
	bridge *bridge.Bridge
	logger *slog.Logger

	mu   sync.Mutex
	last *lnbridge.AccountInfo
}

// NewService creates an account service over an established bridge.
func NewService(b *bridge.Bridge, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{bridge: b, logger: logger}
}

// FetchAccountInfo asks the wallet backend for the current alias and balance
// and updates the cached snapshot.
func (s *Service) FetchAccountInfo(ctx context.Context) (*lnbridge.AccountInfo, error) {
	raw, err := s.bridge.Request(ctx, "fetchAccountInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch account info: %w", err)
	}

	var info lnbridge.AccountInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decode account info: %w", err)
	}

	s.mu.Lock()
	s.last = &info
	s.mu.Unlock()

	s.logger.Debug("account info refreshed", "alias", info.Alias, "balance_sat", info.BalanceSat)
	return &info, nil
}

// Cached returns the last fetched snapshot, or nil before the first
// successful fetch.
func (s *Service) Cached() *lnbridge.AccountInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	copied := *s.last
	return &copied
}

var _ lnbridge.AccountRefresher = (*Service)(nil)
