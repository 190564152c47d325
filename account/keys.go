// Package account manages wallet identity: deterministic node keys derived
// from a mnemonic seed, and account state refreshed from the wallet backend
// over the bridge.
package account

import (
	"encoding/hex"
	"fmt"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// Hardened child indexes for the node identity path m/138'/0'.
const (
	purposeIndex = bip32.FirstHardenedChild + 138
	nodeIndex    = bip32.FirstHardenedChild
)

// NewMnemonic generates a fresh 12-word seed phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("encode mnemonic: %w", err)
	}
	return mnemonic, nil
}

// NodeKey is the derived identity key for a wallet account.
type NodeKey struct {
	key *bip32.Key
}

// DeriveNodeKey derives the account's node key from a mnemonic at the fixed
// hardened path. The same mnemonic always yields the same key.
func DeriveNodeKey(mnemonic, passphrase string) (*NodeKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}
	purpose, err := master.NewChildKey(purposeIndex)
	if err != nil {
		return nil, fmt.Errorf("derive purpose key: %w", err)
	}
	node, err := purpose.NewChildKey(nodeIndex)
	if err != nil {
		return nil, fmt.Errorf("derive node key: %w", err)
	}
	return &NodeKey{key: node}, nil
}

// NodeID returns the hex-encoded compressed public key identifying this
// account to its peers.
func (k *NodeKey) NodeID() string {
	return hex.EncodeToString(k.key.PublicKey().Key)
}
