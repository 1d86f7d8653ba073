package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTransfer is returned when a transfer cannot be found on the destination
	// blockchain. It is expected while the transfer is not yet executed.
	ErrUnknownTransfer = errors.New("unknown transfer")
	// ErrNotSupported is returned for operations a blockchain client does not implement.
	ErrNotSupported = errors.New("operation not supported")
	// ErrBlockchainNotFound is returned when no client can be created for a blockchain.
	ErrBlockchainNotFound = errors.New("blockchain not found")
	// ErrBlockchainInactive is returned when a blockchain is configured as inactive.
	ErrBlockchainInactive = errors.New("blockchain is inactive")
	// ErrInactiveRecord is returned when an on-chain service node or external token record
	// exists but is not active.
	ErrInactiveRecord = errors.New("record is not active")
)

// ClientError is returned by every BlockchainClient operation and wraps the underlying cause.
type ClientError struct {
	Blockchain Blockchain
	Op         string
	Err        error
}

// NewClientError wraps err as a ClientError of the blockchain for the operation op.
func NewClientError(blockchain Blockchain, op string, err error) *ClientError {
	return &ClientError{Blockchain: blockchain, Op: op, Err: err}
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s client: %s: %v", e.Blockchain.Name(), e.Op, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// IsUnknownTransfer reports whether err signals a transfer not (yet) found on the
// destination blockchain.
func IsUnknownTransfer(err error) bool {
	return errors.Is(err, ErrUnknownTransfer)
}
