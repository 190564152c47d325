package detector

import (
	"errors"
	"strings"
	"testing"

	lnbridge "github.com/lightvault/lnbridge-go"
)

func TestDetect_LnurlMetaTag(t *testing.T) {
	page := `<!doctype html><html><head>
		<title>My Blog</title>
		<meta name="lightning" content="lnurlp:sats@blog.example">
		<link rel="icon" href="/favicon.ico">
	</head><body></body></html>`

	data, err := Detect("https://blog.example/posts/1", strings.NewReader(page))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	if data.Origin.Host != "blog.example" {
		t.Errorf("expected host blog.example, got %s", data.Origin.Host)
	}
	if data.Origin.Name != "My Blog" {
		t.Errorf("expected name from title, got %q", data.Origin.Name)
	}
	if data.Origin.Icon != "https://blog.example/favicon.ico" {
		t.Errorf("expected resolved icon URL, got %q", data.Origin.Icon)
	}

	if data.Recipient == nil {
		t.Fatal("expected a recipient")
	}
	if data.Recipient.Method != lnbridge.RecipientMethodLNURL || data.Recipient.Address != "sats@blog.example" {
		t.Errorf("unexpected recipient: %+v", data.Recipient)
	}
}

func TestDetect_KeysendMetaTag(t *testing.T) {
	page := `<html><head>
		<meta property="og:site_name" content="Podcast Index">
		<meta name="lightning" content="method=keysend;address=03ab;customkey=700001;customvalue=hello">
	</head></html>`

	data, err := Detect("https://pod.example/", strings.NewReader(page))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	if data.Origin.Name != "Podcast Index" {
		t.Errorf("expected og:site_name to win, got %q", data.Origin.Name)
	}
	if data.Recipient.Method != lnbridge.RecipientMethodKeysend {
		t.Errorf("expected keysend, got %s", data.Recipient.Method)
	}
	if got := data.Recipient.CustomRecords()["700001"]; got != "hello" {
		t.Errorf("expected custom record, got %q", got)
	}
}

func TestDetect_AbsentTagIsNoOp(t *testing.T) {
	page := `<html><head><title>No payments here</title></head></html>`

	data, err := Detect("https://plain.example/", strings.NewReader(page))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if data.Recipient != nil {
		t.Errorf("expected no recipient, got %+v", data.Recipient)
	}
	if data.Origin.Host != "plain.example" {
		t.Errorf("expected origin anyway, got %+v", data.Origin)
	}
}

func TestDetect_MalformedRecipientFailsClosed(t *testing.T) {
	page := `<html><head>
		<meta name="lightning" content="method=keysend;customkey=700001">
	</head></html>`

	_, err := Detect("https://bad.example/", strings.NewReader(page))
	if !errors.Is(err, lnbridge.ErrInvalidRecipient) {
		t.Errorf("expected ErrInvalidRecipient, got %v", err)
	}
}

func TestDetect_FirstTagWins(t *testing.T) {
	page := `<html><head>
		<meta name="lightning" content="first@site.example">
		<meta name="lightning" content="second@site.example">
	</head></html>`

	data, err := Detect("https://site.example/", strings.NewReader(page))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if data.Recipient.Address != "first@site.example" {
		t.Errorf("expected first tag to win, got %s", data.Recipient.Address)
	}
}

func TestDetect_NameFallsBackToHost(t *testing.T) {
	data, err := Detect("https://bare.example/", strings.NewReader("<html></html>"))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if data.Origin.Name != "bare.example" {
		t.Errorf("expected host fallback, got %q", data.Origin.Name)
	}
}

func TestDetect_RejectsURLWithoutHost(t *testing.T) {
	if _, err := Detect("not-a-url", strings.NewReader("<html></html>")); err == nil {
		t.Error("expected error for url without host")
	}
}
