package solana

import (
	"fmt"

	sollib "github.com/gagliardetto/solana-go"

	"github.com/pantos-io/client-library/chain"
)

// ParseAddress converts a Solana address string to a public key.
// Solana addresses are base58-encoded public keys (32 bytes).
func ParseAddress(address string) (sollib.PublicKey, error) {
	pubkey, err := sollib.PublicKeyFromBase58(address)
	if err != nil {
		return sollib.PublicKey{}, fmt.Errorf("invalid Solana address format: %s, error: %w", address, err)
	}

	return pubkey, nil
}

// IsValidRecipientAddress reports whether address is a base58 encoded, non-zero public key.
func IsValidRecipientAddress(address string) bool {
	pubkey, err := sollib.PublicKeyFromBase58(address)
	if err != nil {
		return false
	}

	return !pubkey.IsZero()
}

// ParsePrivateKey parses a base58 encoded 64 byte Solana secret key.
func ParsePrivateKey(key chain.PrivateKey) (sollib.PrivateKey, error) {
	privateKey, err := sollib.PrivateKeyFromBase58(key.Reveal())
	if err != nil || len(privateKey) != 64 {
		// the cause may echo key material
		return nil, fmt.Errorf("invalid private key")
	}

	return privateKey, nil
}

// AddressFromPrivateKey derives the base58 address of a private key.
func AddressFromPrivateKey(key chain.PrivateKey) (chain.Address, error) {
	privateKey, err := ParsePrivateKey(key)
	if err != nil {
		return "", err
	}

	return chain.Address(privateKey.PublicKey().String()), nil
}
