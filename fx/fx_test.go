package fx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	lnbridge "github.com/lightvault/lnbridge-go"
	"github.com/lightvault/lnbridge-go/retry"
)

func fastClient(baseURL string) *Client {
	c := NewClient(baseURL, "USD")
	c.Policy = retry.Policy{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}
	return c
}

func TestFiatValue_ConvertsAtRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rates/USD" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"rate": 50000}`))
	}))
	defer server.Close()

	client := fastClient(server.URL)
	got, err := client.FiatValue(context.Background(), 100_000) // 0.001 BTC
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if got != "50.00 USD" {
		t.Errorf("expected 50.00 USD, got %s", got)
	}
}

func TestFiatValue_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"rate": 40000}`))
	}))
	defer server.Close()

	client := fastClient(server.URL)
	got, err := client.FiatValue(context.Background(), 100_000)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if got != "40.00 USD" {
		t.Errorf("expected 40.00 USD, got %s", got)
	}
}

func TestFiatValue_FailureIsUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	_, err := client.FiatValue(context.Background(), 1000)

	var up *lnbridge.UpstreamError
	if !errors.As(err, &up) || up.Source != "fx" {
		t.Errorf("expected fx upstream error, got %v", err)
	}
}

func TestFiatValue_RejectsBadRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rate": 0}`))
	}))
	defer server.Close()

	client := fastClient(server.URL)
	if _, err := client.FiatValue(context.Background(), 1000); err == nil {
		t.Error("expected error for non-positive rate")
	}
}
