// Package fx fetches fiat quotes for satoshi amounts. Quotes are advisory
// display data: a failed lookup leaves the fiat field blank and never blocks
// a payment.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	lnbridge "github.com/lightvault/lnbridge-go"
	"github.com/lightvault/lnbridge-go/retry"
)

// QuoteClient converts a satoshi amount into a display string in the user's
// fiat currency.
type QuoteClient interface {
	FiatValue(ctx context.Context, amountSat int64) (string, error)
}

const satsPerBTC = 100_000_000

// Client fetches exchange rates from a rate service over HTTP.
type Client struct {
	BaseURL  string
	Currency string
	Client   *http.Client
	Timeout  time.Duration
	Policy   retry.Policy
}

// NewClient creates a quote client for the given rate service and currency.
func NewClient(baseURL, currency string) *Client {
	return &Client{
		BaseURL:  baseURL,
		Currency: currency,
		Client:   &http.Client{},
		Timeout:  5 * time.Second,
		Policy:   retry.DefaultPolicy,
	}
}

type rateResponse struct {
	Rate float64 `json:"rate"`
}

// FiatValue converts amountSat at the current rate, e.g. "1.23 USD".
func (c *Client) FiatValue(ctx context.Context, amountSat int64) (string, error) {
	rate, err := retry.Do(ctx, c.Policy, retry.Always, c.fetchRate)
	if err != nil {
		return "", lnbridge.NewUpstreamError("fx", err)
	}
	value := float64(amountSat) / satsPerBTC * rate
	return fmt.Sprintf("%.2f %s", value, c.Currency), nil
}

// fetchRate returns the fiat price of one BTC.
func (c *Client) fetchRate(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/rates/%s", c.BaseURL, c.Currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate service returned status %d", resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode rate response: %w", err)
	}
	if body.Rate <= 0 {
		return 0, fmt.Errorf("rate service returned non-positive rate %f", body.Rate)
	}
	return body.Rate, nil
}

var _ QuoteClient = (*Client)(nil)
