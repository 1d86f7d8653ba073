package chain

import (
	"context"
	"math/big"

	"github.com/Masterminds/semver/v3"
)

// BlockchainClient is the capability set every supported blockchain implements for a given
// Pantos protocol version. Implementations are safe for concurrent use and never submit
// transactions; they only read chain state and sign off-chain authorizations.
type BlockchainClient interface {
	// Blockchain returns the blockchain served by the client.
	Blockchain() Blockchain
	// ProtocolVersion returns the Pantos protocol version the client speaks.
	ProtocolVersion() *semver.Version

	// ComputeTransferSignature signs a single-chain transfer authorization.
	ComputeTransferSignature(ctx context.Context, req TransferSignatureRequest) (SignatureResponse, error)
	// ComputeTransferFromSignature signs a cross-chain transfer authorization.
	ComputeTransferFromSignature(ctx context.Context, req TransferFromSignatureRequest) (SignatureResponse, error)

	// IsValidRecipientAddress reports whether address can receive tokens on the blockchain.
	IsValidRecipientAddress(address string) bool
	// ResolveAccount returns the address of an account, deriving it from a private key if needed.
	ResolveAccount(account AccountID) (Address, error)
	// DecryptPrivateKey decrypts an encrypted keystore with password.
	DecryptPrivateKey(keystore string, password string) (PrivateKey, error)

	// ReadTokenBalance returns the account's balance of token in subunits.
	ReadTokenBalance(ctx context.Context, token Address, account AccountID) (*big.Int, error)
	// ReadTokenDecimals returns the number of decimals of token.
	ReadTokenDecimals(ctx context.Context, token Address) (uint8, error)
	// ReadExternalTokenAddress returns the address of token's counterpart on destination. It
	// fails with ErrInactiveRecord if the registration is not active.
	ReadExternalTokenAddress(ctx context.Context, token Address, destination Blockchain) (Address, error)
	// ReadServiceNodeAddresses returns the addresses of all active service nodes sorted
	// in ascending order.
	ReadServiceNodeAddresses(ctx context.Context) ([]Address, error)
	// ReadServiceNodeURL returns the URL a service node registered. It fails with
	// ErrInactiveRecord if the service node is not active.
	ReadServiceNodeURL(ctx context.Context, serviceNode Address) (string, error)
	// ReadDestinationTransfer searches the blockchain history for an executed transfer. It
	// fails with ErrUnknownTransfer if no matching transfer is found.
	ReadDestinationTransfer(ctx context.Context, req DestinationTransferRequest) (DestinationTransfer, error)
}

// TransferSignatureRequest holds the data of a single-chain transfer authorization.
type TransferSignatureRequest struct {
	SenderPrivateKey   PrivateKey
	RecipientAddress   Address
	TokenAddress       Address
	Amount             *big.Int
	ServiceNodeAddress Address
	Bid                ServiceNodeBid
	ValidUntil         uint64
}

// TransferFromSignatureRequest holds the data of a cross-chain transfer authorization. The
// destination token address is kept as an opaque string since it may belong to a chain with
// a different address format.
type TransferFromSignatureRequest struct {
	DestinationBlockchain   Blockchain
	SenderPrivateKey        PrivateKey
	RecipientAddress        Address
	SourceTokenAddress      Address
	DestinationTokenAddress Address
	Amount                  *big.Int
	ServiceNodeAddress      Address
	Bid                     ServiceNodeBid
	ValidUntil              uint64
}

// SignatureResponse is the result of signing a transfer authorization.
type SignatureResponse struct {
	SenderAddress Address
	SenderNonce   *big.Int
	// Signature is the 0x prefixed hex encoded signature.
	Signature string
}

// DestinationTransferRequest identifies a transfer by its source blockchain and source
// transaction. BlocksToSearch bounds the search to the most recent blocks; zero searches the
// whole history.
type DestinationTransferRequest struct {
	SourceBlockchain    Blockchain
	SourceTransactionID string
	BlocksToSearch      uint64
}

// DestinationTransfer is a transfer executed on the destination blockchain.
type DestinationTransfer struct {
	LatestBlockNumber        uint64
	TransactionBlockNumber   uint64
	DestinationTransactionID string
	SourceTransferID         *big.Int
	DestinationTransferID    *big.Int
	SenderAddress            Address
	RecipientAddress         Address
	SourceTokenAddress       Address
	DestinationTokenAddress  Address
	Amount                   *big.Int
	ValidatorNonce           *big.Int
	SignerAddresses          []Address
	Signatures               []string
}
