package evm

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pantos-io/client-library/chain"
)

// ParseAddress converts an EVM address string to a common.Address.
// EVM addresses are hex strings (with or without 0x prefix) representing 20 bytes.
func ParseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid EVM address format: %s", address)
	}

	return common.HexToAddress(address), nil
}

// IsValidRecipientAddress reports whether address is a 0x prefixed, EIP-55 checksummed and
// non-zero EVM address.
func IsValidRecipientAddress(address string) bool {
	if !common.IsHexAddress(address) {
		return false
	}
	addr := common.HexToAddress(address)
	if addr == (common.Address{}) {
		return false
	}

	return addr.Hex() == address
}

// ParsePrivateKey parses a hex encoded secp256k1 private key and returns it together with
// its checksummed address.
func ParsePrivateKey(key chain.PrivateKey) (*ecdsa.PrivateKey, common.Address, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(key.Reveal(), "0x"))
	if err != nil {
		// the cause may echo key material
		return nil, common.Address{}, fmt.Errorf("invalid private key")
	}

	return privateKey, crypto.PubkeyToAddress(privateKey.PublicKey), nil
}

// AddressFromPrivateKey derives the checksummed address of a private key.
func AddressFromPrivateKey(key chain.PrivateKey) (chain.Address, error) {
	_, address, err := ParsePrivateKey(key)
	if err != nil {
		return "", err
	}

	return chain.Address(address.Hex()), nil
}
