package evm

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/pantos-io/client-library/protocol"
)

// eip712DomainName is the name of the EIP-712 domain of the Pantos forwarder.
const eip712DomainName = "Pantos"

// signingDomain binds a transfer authorization to a blockchain and its Pantos contracts.
type signingDomain struct {
	Version      *semver.Version
	ChainID      *big.Int
	BlockchainID uint64
	Hub          common.Address
	Forwarder    common.Address
	PanToken     common.Address
}

type transferMessage struct {
	Sender      common.Address
	Recipient   common.Address
	Token       common.Address
	Amount      *big.Int
	ServiceNode common.Address
	Fee         *big.Int
	Nonce       *big.Int
	ValidUntil  uint64
}

type transferFromMessage struct {
	DestinationBlockchainID uint64
	Sender                  common.Address
	Recipient               string
	SourceToken             common.Address
	DestinationToken        string
	Amount                  *big.Int
	ServiceNode             common.Address
	Fee                     *big.Int
	Nonce                   *big.Int
	ValidUntil              uint64
}

var eip712DomainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

var transferTypes = apitypes.Types{
	"EIP712Domain": eip712DomainType,
	"TransferRequest": {
		{Name: "sender", Type: "address"},
		{Name: "recipient", Type: "address"},
		{Name: "token", Type: "address"},
		{Name: "amount", Type: "uint256"},
		{Name: "serviceNode", Type: "address"},
		{Name: "fee", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "validUntil", Type: "uint256"},
	},
	"Transfer": {
		{Name: "request", Type: "TransferRequest"},
		{Name: "blockchainId", Type: "uint256"},
		{Name: "pantosHub", Type: "address"},
		{Name: "pantosForwarder", Type: "address"},
		{Name: "pantosToken", Type: "address"},
	},
}

var transferFromTypes = apitypes.Types{
	"EIP712Domain": eip712DomainType,
	"TransferFromRequest": {
		{Name: "destinationBlockchainId", Type: "uint256"},
		{Name: "sender", Type: "address"},
		{Name: "recipient", Type: "string"},
		{Name: "sourceToken", Type: "address"},
		{Name: "destinationToken", Type: "string"},
		{Name: "amount", Type: "uint256"},
		{Name: "serviceNode", Type: "address"},
		{Name: "fee", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "validUntil", Type: "uint256"},
	},
	"TransferFrom": {
		{Name: "request", Type: "TransferFromRequest"},
		{Name: "sourceBlockchainId", Type: "uint256"},
		{Name: "pantosHub", Type: "address"},
		{Name: "pantosForwarder", Type: "address"},
		{Name: "pantosToken", Type: "address"},
	},
}

func (d signingDomain) typedDataDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              eip712DomainName,
		Version:           protocol.DomainVersion(d.Version),
		ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(d.ChainID)),
		VerifyingContract: d.Forwarder.Hex(),
	}
}

func uintString(v uint64) string {
	return new(big.Int).SetUint64(v).String()
}

// transferDigest returns the digest a sender signs to authorize a single-chain transfer.
func transferDigest(d signingDomain, m transferMessage) ([]byte, error) {
	if protocol.Scheme(d.Version) == protocol.SchemeLegacyKeccak {
		packed := concat(
			uint256Bytes(new(big.Int).SetUint64(d.BlockchainID)),
			m.Sender.Bytes(), m.Recipient.Bytes(), m.Token.Bytes(),
			uint256Bytes(m.Amount), m.ServiceNode.Bytes(), uint256Bytes(m.Fee),
			uint256Bytes(m.Nonce), uint256Bytes(new(big.Int).SetUint64(m.ValidUntil)),
			d.Hub.Bytes(), d.Forwarder.Bytes(), d.PanToken.Bytes(),
		)

		return accounts.TextHash(crypto.Keccak256(packed)), nil
	}

	typedData := apitypes.TypedData{
		Types:       transferTypes,
		PrimaryType: "Transfer",
		Domain:      d.typedDataDomain(),
		Message: apitypes.TypedDataMessage{
			"request": map[string]interface{}{
				"sender":      m.Sender.Hex(),
				"recipient":   m.Recipient.Hex(),
				"token":       m.Token.Hex(),
				"amount":      m.Amount.String(),
				"serviceNode": m.ServiceNode.Hex(),
				"fee":         m.Fee.String(),
				"nonce":       m.Nonce.String(),
				"validUntil":  uintString(m.ValidUntil),
			},
			"blockchainId":    uintString(d.BlockchainID),
			"pantosHub":       d.Hub.Hex(),
			"pantosForwarder": d.Forwarder.Hex(),
			"pantosToken":     d.PanToken.Hex(),
		},
	}
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash transfer typed data: %w", err)
	}

	return digest, nil
}

// transferFromDigest returns the digest a sender signs to authorize a cross-chain transfer.
// The domain is the one of the source blockchain.
func transferFromDigest(d signingDomain, m transferFromMessage) ([]byte, error) {
	if protocol.Scheme(d.Version) == protocol.SchemeLegacyKeccak {
		packed := concat(
			uint256Bytes(new(big.Int).SetUint64(d.BlockchainID)),
			uint256Bytes(new(big.Int).SetUint64(m.DestinationBlockchainID)),
			m.Sender.Bytes(), []byte(m.Recipient), m.SourceToken.Bytes(), []byte(m.DestinationToken),
			uint256Bytes(m.Amount), m.ServiceNode.Bytes(), uint256Bytes(m.Fee),
			uint256Bytes(m.Nonce), uint256Bytes(new(big.Int).SetUint64(m.ValidUntil)),
			d.Hub.Bytes(), d.Forwarder.Bytes(), d.PanToken.Bytes(),
		)

		return accounts.TextHash(crypto.Keccak256(packed)), nil
	}

	typedData := apitypes.TypedData{
		Types:       transferFromTypes,
		PrimaryType: "TransferFrom",
		Domain:      d.typedDataDomain(),
		Message: apitypes.TypedDataMessage{
			"request": map[string]interface{}{
				"destinationBlockchainId": uintString(m.DestinationBlockchainID),
				"sender":                  m.Sender.Hex(),
				"recipient":               m.Recipient,
				"sourceToken":             m.SourceToken.Hex(),
				"destinationToken":        m.DestinationToken,
				"amount":                  m.Amount.String(),
				"serviceNode":             m.ServiceNode.Hex(),
				"fee":                     m.Fee.String(),
				"nonce":                   m.Nonce.String(),
				"validUntil":              uintString(m.ValidUntil),
			},
			"sourceBlockchainId": uintString(d.BlockchainID),
			"pantosHub":          d.Hub.Hex(),
			"pantosForwarder":    d.Forwarder.Hex(),
			"pantosToken":        d.PanToken.Hex(),
		},
	}
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash transfer from typed data: %w", err)
	}

	return digest, nil
}

// signDigest signs a 32 byte digest and returns the 0x prefixed signature with v in {27, 28}.
func signDigest(key *ecdsa.PrivateKey, digest []byte) (string, error) {
	signature, err := crypto.Sign(digest, key)
	if err != nil {
		return "", fmt.Errorf("failed to sign digest: %w", err)
	}
	signature[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(signature), nil
}

// uint256Bytes returns v as a 32 byte big-endian word as in Solidity's abi.encodePacked.
func uint256Bytes(v *big.Int) []byte {
	return math.U256Bytes(new(big.Int).Set(v))
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, part := range parts {
		out = append(out, part...)
	}

	return out
}
