package account

import (
	"context"
	"testing"

	lnbridge "github.com/lightvault/lnbridge-go"
	"github.com/lightvault/lnbridge-go/bridge"
)

// Fixed vector so derivation stays deterministic across releases.
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestDeriveNodeKey_Deterministic(t *testing.T) {
	a, err := DeriveNodeKey(testMnemonic, "")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	b, err := DeriveNodeKey(testMnemonic, "")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if a.NodeID() != b.NodeID() {
		t.Errorf("same mnemonic produced different node ids: %s vs %s", a.NodeID(), b.NodeID())
	}
	if len(a.NodeID()) != 66 { // 33-byte compressed pubkey, hex encoded
		t.Errorf("unexpected node id length %d", len(a.NodeID()))
	}
}

func TestDeriveNodeKey_PassphraseChangesKey(t *testing.T) {
	plain, err := DeriveNodeKey(testMnemonic, "")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	protected, err := DeriveNodeKey(testMnemonic, "hunter2")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if plain.NodeID() == protected.NodeID() {
		t.Error("passphrase must change the derived key")
	}
}

func TestDeriveNodeKey_RejectsInvalidMnemonic(t *testing.T) {
	if _, err := DeriveNodeKey("not a mnemonic", ""); err == nil {
		t.Error("expected error for invalid mnemonic")
	}
}

func TestNewMnemonic_RoundTrips(t *testing.T) {
	mnemonic, err := NewMnemonic()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := DeriveNodeKey(mnemonic, ""); err != nil {
		t.Errorf("generated mnemonic failed derivation: %v", err)
	}
}

func TestFetchAccountInfo_OverBridge(t *testing.T) {
	left, right := bridge.Pipe()

	// Wallet side answers fetchAccountInfo.
	backend := bridge.New(right, bridge.WithHandler("fetchAccountInfo", func(ctx context.Context, in *bridge.Inbound) {
		in.Responder.Reply(&lnbridge.AccountInfo{Alias: "vault", BalanceSat: 42_000})
	}))
	defer backend.Close()

	svc := NewService(bridge.New(left), nil)

	info, err := svc.FetchAccountInfo(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if info.Alias != "vault" || info.BalanceSat != 42_000 {
		t.Errorf("unexpected account info %+v", info)
	}

	cached := svc.Cached()
	if cached == nil || cached.Alias != "vault" {
		t.Errorf("expected cached snapshot, got %+v", cached)
	}
}

func TestCached_NilBeforeFirstFetch(t *testing.T) {
	left, _ := bridge.Pipe()
	svc := NewService(bridge.New(left), nil)
	if svc.Cached() != nil {
		t.Error("expected nil cache before first fetch")
	}
}
