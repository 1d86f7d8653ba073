package servicenode

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/pantos-io/client-library/chain"
)

// TransferStatus is the status of a transfer as reported by a service node.
type TransferStatus int

const (
	TransferStatusAccepted TransferStatus = iota
	TransferStatusFailed
	TransferStatusSubmitted
	TransferStatusReverted
	TransferStatusConfirmed
)

var transferStatusNames = map[TransferStatus]string{
	TransferStatusAccepted:  "accepted",
	TransferStatusFailed:    "failed",
	TransferStatusSubmitted: "submitted",
	TransferStatusReverted:  "reverted",
	TransferStatusConfirmed: "confirmed",
}

func (s TransferStatus) String() string {
	if name, ok := transferStatusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("TransferStatus(%d)", int(s))
}

// ParseTransferStatus parses the lowercase status name used by the service node API.
func ParseTransferStatus(s string) (TransferStatus, error) {
	for status, name := range transferStatusNames {
		if name == s {
			return status, nil
		}
	}

	return 0, fmt.Errorf("unknown transfer status %q", s)
}

// TransferStatusResponse is a service node's report on a submitted transfer. TransferID and
// TransactionID are set once the transfer was submitted on the source blockchain.
type TransferStatusResponse struct {
	TaskID                  uuid.UUID
	SourceBlockchain        chain.Blockchain
	DestinationBlockchain   chain.Blockchain
	SenderAddress           chain.Address
	RecipientAddress        chain.Address
	SourceTokenAddress      chain.Address
	DestinationTokenAddress chain.Address
	Amount                  *big.Int
	Fee                     *big.Int
	Status                  TransferStatus
	TransferID              *big.Int
	TransactionID           string
}

type transferStatusPayload struct {
	TaskID                  string   `json:"task_id"`
	SourceBlockchainID      *int     `json:"source_blockchain_id"`
	DestinationBlockchainID *int     `json:"destination_blockchain_id"`
	SenderAddress           string   `json:"sender_address"`
	RecipientAddress        string   `json:"recipient_address"`
	SourceTokenAddress      string   `json:"source_token_address"`
	DestinationTokenAddress string   `json:"destination_token_address"`
	Amount                  *big.Int `json:"amount"`
	Fee                     *big.Int `json:"fee"`
	Status                  string   `json:"status"`
	TransferID              *big.Int `json:"transfer_id"`
	TransactionID           string   `json:"transaction_id"`
}

func (p transferStatusPayload) toResponse() (TransferStatusResponse, error) {
	taskID, err := uuid.Parse(p.TaskID)
	if err != nil {
		return TransferStatusResponse{}, fmt.Errorf("%w: invalid task ID %q", ErrMalformedResponse, p.TaskID)
	}
	source, err := parseBlockchainID(p.SourceBlockchainID)
	if err != nil {
		return TransferStatusResponse{}, fmt.Errorf("%w: source blockchain: %w", ErrMalformedResponse, err)
	}
	destination, err := parseBlockchainID(p.DestinationBlockchainID)
	if err != nil {
		return TransferStatusResponse{}, fmt.Errorf("%w: destination blockchain: %w", ErrMalformedResponse, err)
	}
	status, err := ParseTransferStatus(p.Status)
	if err != nil {
		return TransferStatusResponse{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return TransferStatusResponse{
		TaskID:                  taskID,
		SourceBlockchain:        source,
		DestinationBlockchain:   destination,
		SenderAddress:           chain.Address(p.SenderAddress),
		RecipientAddress:        chain.Address(p.RecipientAddress),
		SourceTokenAddress:      chain.Address(p.SourceTokenAddress),
		DestinationTokenAddress: chain.Address(p.DestinationTokenAddress),
		Amount:                  p.Amount,
		Fee:                     p.Fee,
		Status:                  status,
		TransferID:              p.TransferID,
		TransactionID:           p.TransactionID,
	}, nil
}

func parseBlockchainID(id *int) (chain.Blockchain, error) {
	if id == nil {
		return 0, fmt.Errorf("missing blockchain ID")
	}
	blockchain := chain.Blockchain(*id)
	if !blockchain.IsValid() {
		return 0, fmt.Errorf("unknown blockchain ID %d", *id)
	}

	return blockchain, nil
}
