package http

import (
	"log/slog"
	"net/http"

	"github.com/lightvault/lnbridge-go/bridge"
	"github.com/lightvault/lnbridge-go/wallet"
)

// Config assembles the HTTP-served wallet bridge.
type Config struct {
	// Service handles the wallet methods.
	Service *wallet.Service

	// Issuer guards the endpoint with session tokens. Nil disables auth;
	// only do that behind another authentication layer.
	Issuer *TokenIssuer

	// Logger is the structured logger. Nil uses slog.Default.
	Logger *slog.Logger
}

// NewHandler builds the wallet bridge endpoint: an http.Handler that accepts
// bridge call messages and answers each with its terminal response. The
// returned bridge is the wallet-side endpoint; close it to release waiting
// requests.
func NewHandler(config *Config) (http.Handler, *bridge.Bridge) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := NewServerTransport(logger)
	b := bridge.New(transport, bridge.WithLogger(logger))
	config.Service.RegisterHandlers(b)

	var handler http.Handler = transport
	if config.Issuer != nil {
		handler = RequireSession(config.Issuer, handler)
	}
	return handler, b
}
