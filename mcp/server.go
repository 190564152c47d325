// Package mcp exposes the wallet to AI agents as MCP tools. Tool calls flow
// through the same allowance gate as bridge calls: an agent within a
// remembered origin's budget pays without friction, everything beyond it is
// refused rather than escalated, since there is no user at the other end to
// confirm.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	lnbridge "github.com/lightvault/lnbridge-go"
	"github.com/lightvault/lnbridge-go/allowance"
)

// WalletServer wraps an MCP server exposing wallet tools.
type WalletServer struct {
	mcpServer *mcpserver.MCPServer
	store     allowance.Store
	gate      *allowance.Gate
	accounts  lnbridge.AccountRefresher
	logger    *slog.Logger
}

// Option configures a WalletServer.
type Option func(*WalletServer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *WalletServer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAccountRefresher enables the fetch_account_info tool.
func WithAccountRefresher(accounts lnbridge.AccountRefresher) Option {
	return func(s *WalletServer) { s.accounts = accounts }
}

// NewWalletServer creates an MCP server named name exposing the wallet
// tools backed by the given store and gate.
func NewWalletServer(name, version string, store allowance.Store, gate *allowance.Gate, opts ...Option) *WalletServer {
	s := &WalletServer{
		mcpServer: mcpserver.NewMCPServer(name, version),
		store:     store,
		gate:      gate,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

func (s *WalletServer) registerTools() {
	sendPayment := mcpproto.NewTool(
		"send_payment",
		mcpproto.WithDescription("Pay a lightning invoice from the caller's remembered allowance. Fails when the origin has no allowance or the amount exceeds the remaining budget."),
		mcpproto.WithString("payment_request", mcpproto.Required(), mcpproto.Description("BOLT11 payment request to pay")),
		mcpproto.WithString("host", mcpproto.Required(), mcpproto.Description("Origin host whose allowance funds the payment")),
	)
	s.mcpServer.AddTool(sendPayment, s.handleSendPayment)

	addAllowance := mcpproto.NewTool(
		"add_allowance",
		mcpproto.WithDescription("Create or reset a spending allowance for an origin host."),
		mcpproto.WithString("host", mcpproto.Required(), mcpproto.Description("Origin host the allowance belongs to")),
		mcpproto.WithNumber("total_budget_sat", mcpproto.Required(), mcpproto.Description("Total budget in satoshis")),
		mcpproto.WithString("name", mcpproto.Description("Display name for the origin")),
	)
	s.mcpServer.AddTool(addAllowance, s.handleAddAllowance)

	getAllowance := mcpproto.NewTool(
		"get_allowance",
		mcpproto.WithDescription("Look up the allowance for an origin host."),
		mcpproto.WithString("host", mcpproto.Required(), mcpproto.Description("Origin host to look up")),
	)
	s.mcpServer.AddTool(getAllowance, s.handleGetAllowance)

	if s.accounts != nil {
		accountInfo := mcpproto.NewTool(
			"fetch_account_info",
			mcpproto.WithDescription("Fetch the wallet's alias and balance."),
		)
		s.mcpServer.AddTool(accountInfo, s.handleFetchAccountInfo)
	}
}

func (s *WalletServer) handleSendPayment(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	args := req.GetArguments()
	paymentRequest, _ := args["payment_request"].(string)
	host, _ := args["host"].(string)
	if paymentRequest == "" || host == "" {
		return toolError("payment_request and host are required"), nil
	}

	env := &lnbridge.PaymentEnvelope{
		PaymentRequest: paymentRequest,
		Origin:         &lnbridge.Origin{Host: host},
	}

	result, err := s.gate.SendPayment(ctx, env)
	if err != nil {
		// No user to ask: a confirmation-required payment is a refusal.
		if errors.Is(err, allowance.ErrConfirmationRequired) {
			s.logger.Info("mcp payment refused, no allowance", "host", host)
			return toolError(fmt.Sprintf("no remembered allowance covers this payment for %s", host)), nil
		}
		s.logger.Warn("mcp payment failed", "host", host, "error", err)
		return toolError(err.Error()), nil
	}

	s.logger.Info("mcp payment sent", "host", host, "payment_hash", result.PaymentHash)
	return toolJSON(result)
}

func (s *WalletServer) handleAddAllowance(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	args := req.GetArguments()
	host, _ := args["host"].(string)
	budget, _ := args["total_budget_sat"].(float64)
	name, _ := args["name"].(string)

	if host == "" || budget <= 0 {
		return toolError("host and a positive total_budget_sat are required"), nil
	}
	if err := s.store.Create(ctx, host, int64(budget), name, ""); err != nil {
		return toolError(err.Error()), nil
	}

	s.logger.Info("mcp allowance created", "host", host, "budget_sat", int64(budget))
	return &mcpproto.CallToolResult{
		Content: []mcpproto.Content{
			mcpproto.NewTextContent(fmt.Sprintf("allowance of %d sat created for %s", int64(budget), host)),
		},
	}, nil
}

func (s *WalletServer) handleGetAllowance(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	host, _ := req.GetArguments()["host"].(string)
	if host == "" {
		return toolError("host is required"), nil
	}

	rec, err := s.store.Get(ctx, host)
	if err != nil {
		return toolError(err.Error()), nil
	}
	if rec == nil {
		return toolError(fmt.Sprintf("no allowance for %s", host)), nil
	}
	return toolJSON(rec)
}

func (s *WalletServer) handleFetchAccountInfo(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	info, err := s.accounts.FetchAccountInfo(ctx)
	if err != nil {
		return toolError(err.Error()), nil
	}
	return toolJSON(info)
}

// Handler returns the MCP server as an HTTP handler.
func (s *WalletServer) Handler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcpServer)
}

// Start serves the MCP endpoint on addr.
func (s *WalletServer) Start(addr string) error {
	return http.ListenAndServe(addr, s.Handler())
}

func toolError(message string) *mcpproto.CallToolResult {
	return &mcpproto.CallToolResult{
		IsError: true,
		Content: []mcpproto.Content{mcpproto.NewTextContent(message)},
	}
}

func toolJSON(v any) (*mcpproto.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &mcpproto.CallToolResult{
		Content: []mcpproto.Content{mcpproto.NewTextContent(string(payload))},
	}, nil
}
