package transfers

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/servicenode"
)

// DestinationStatus is the state of a transfer on its destination blockchain.
type DestinationStatus int

const (
	// DestinationStatusUnknown means the transfer was not found on the destination blockchain.
	DestinationStatusUnknown DestinationStatus = iota
	// DestinationStatusSubmitted means the transfer was executed but lacks confirmations.
	DestinationStatusSubmitted
	// DestinationStatusConfirmed means the transfer has the required confirmations.
	DestinationStatusConfirmed
)

func (s DestinationStatus) String() string {
	switch s {
	case DestinationStatusUnknown:
		return "unknown"
	case DestinationStatusSubmitted:
		return "submitted"
	case DestinationStatusConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("DestinationStatus(%d)", int(s))
	}
}

// StatusRequest identifies a transfer by the service node processing it.
type StatusRequest struct {
	SourceBlockchain chain.Blockchain
	ServiceNode      chain.Address
	TaskID           uuid.UUID
	// BlocksToSearch bounds the destination blockchain search to the most recent blocks. Zero
	// searches the whole history.
	BlocksToSearch uint64
}

// TokenTransferStatus is the combined view of a transfer from its service node and from its
// destination blockchain. The destination fields are set once the transfer was found on the
// destination blockchain.
type TokenTransferStatus struct {
	DestinationBlockchain   chain.Blockchain
	SourceStatus            servicenode.TransferStatus
	DestinationStatus       DestinationStatus
	SenderAddress           chain.Address
	RecipientAddress        chain.Address
	SourceTokenAddress      chain.Address
	DestinationTokenAddress chain.Address
	Amount                  *big.Int

	SourceTransactionID string
	SourceTransferID    *big.Int

	DestinationTransactionID string
	DestinationTransferID    *big.Int
	ValidatorNonce           *big.Int
	SignerAddresses          []chain.Address
	Signatures               []string
}

func newTokenTransferStatus(resp servicenode.TransferStatusResponse) *TokenTransferStatus {
	return &TokenTransferStatus{
		DestinationBlockchain:   resp.DestinationBlockchain,
		SourceStatus:            resp.Status,
		DestinationStatus:       DestinationStatusUnknown,
		SenderAddress:           resp.SenderAddress,
		RecipientAddress:        resp.RecipientAddress,
		SourceTokenAddress:      resp.SourceTokenAddress,
		DestinationTokenAddress: resp.DestinationTokenAddress,
		Amount:                  resp.Amount,
	}
}

// destinationStatus derives the destination status from the confirmation depth of the block
// holding the transfer.
func destinationStatus(latestBlock, transactionBlock, confirmations uint64) DestinationStatus {
	if latestBlock < transactionBlock || latestBlock-transactionBlock < confirmations {
		return DestinationStatusSubmitted
	}

	return DestinationStatusConfirmed
}
