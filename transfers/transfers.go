// Package transfers executes token transfers through service nodes and reconciles their status
// with the destination blockchain.
package transfers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/pkg/logger"
	"github.com/pantos-io/client-library/servicenode"
	"github.com/pantos-io/client-library/tokens"
)

// DefaultValidUntilBuffer is added to a bid's execution time when no buffer is requested.
const DefaultValidUntilBuffer = 120 * time.Second

// Error is returned by every failed transfer operation. It carries the request for
// diagnostics; private keys in the request are redacted when formatted.
type Error struct {
	Op      string
	Request any
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("unable to %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrInvalidRecipient is returned when the recipient address is not valid.
var ErrInvalidRecipient = errors.New("invalid recipient address")

// ErrNegativeValidUntilBuffer is returned when a negative validity buffer is requested.
var ErrNegativeValidUntilBuffer = errors.New(`"valid until" buffer must not be negative`)

// BidFinder selects a service node bid for a blockchain pair.
type BidFinder interface {
	FindCheapestServiceNodeBid(ctx context.Context, source, destination chain.Blockchain) (chain.Address, chain.ServiceNodeBid, error)
}

// ServiceNodeAPI submits transfers to service nodes and queries their status.
type ServiceNodeAPI interface {
	SubmitTransfer(ctx context.Context, url string, req servicenode.SubmitTransferRequest) (uuid.UUID, error)
	Status(ctx context.Context, url string, taskID uuid.UUID) (servicenode.TransferStatusResponse, error)
}

// ChosenBid is a service node bid selected by the caller.
type ChosenBid struct {
	ServiceNode chain.Address
	Bid         chain.ServiceNodeBid
}

// TransferRequest asks for a transfer of tokens from the sender's account on the source
// blockchain to the recipient on the destination blockchain.
type TransferRequest struct {
	SourceBlockchain      chain.Blockchain
	DestinationBlockchain chain.Blockchain
	SenderPrivateKey      chain.PrivateKey
	RecipientAddress      chain.Address
	SourceToken           chain.TokenID
	Amount                chain.Amount
	// Bid is the service node bid to use. The cheapest bid is used if nil.
	Bid *ChosenBid
	// ValidUntilBuffer is added to the current time and the bid's execution time to compute
	// the transfer deadline. DefaultValidUntilBuffer is used if nil.
	ValidUntilBuffer *time.Duration
}

// TaskInfo identifies a transfer submitted to a service node.
type TaskInfo struct {
	TaskID      uuid.UUID
	ServiceNode chain.Address
}

// Interactor orchestrates token transfers.
type Interactor struct {
	clients chain.ClientProvider
	cfg     *config.Config
	tokens  *tokens.Interactor
	bids    BidFinder
	nodes   ServiceNodeAPI
	now     func() time.Time
	lggr    logger.Logger
}

// Option configures an Interactor.
type Option func(*Interactor)

// WithClock replaces the clock used to compute transfer deadlines.
func WithClock(now func() time.Time) Option {
	return func(i *Interactor) {
		i.now = now
	}
}

// NewInteractor creates a transfer Interactor.
func NewInteractor(
	clients chain.ClientProvider,
	cfg *config.Config,
	tokenInteractor *tokens.Interactor,
	bidFinder BidFinder,
	nodes ServiceNodeAPI,
	lggr logger.Logger,
	opts ...Option,
) *Interactor {
	i := &Interactor{
		clients: clients,
		cfg:     cfg,
		tokens:  tokenInteractor,
		bids:    bidFinder,
		nodes:   nodes,
		now:     time.Now,
		lggr:    lggr.Named("transfers"),
	}
	for _, opt := range opts {
		opt(i)
	}

	return i
}

// TransferTokens signs a transfer and submits it to a service node. Nothing is retried; a
// failed transfer can be requested again.
func (i *Interactor) TransferTokens(ctx context.Context, req TransferRequest) (TaskInfo, error) {
	info, err := i.transferTokens(ctx, req)
	if err != nil {
		return TaskInfo{}, &Error{Op: "execute a token transfer", Request: req, Err: err}
	}

	return info, nil
}

func (i *Interactor) transferTokens(ctx context.Context, req TransferRequest) (TaskInfo, error) {
	buffer, err := BufferSeconds(req.ValidUntilBuffer, DefaultValidUntilBuffer)
	if err != nil {
		return TaskInfo{}, err
	}

	sourceToken, destinationToken, err := i.tokens.FindTokenAddresses(ctx, req.SourceBlockchain, req.DestinationBlockchain, req.SourceToken)
	if err != nil {
		return TaskInfo{}, err
	}
	amount, err := i.tokens.ConvertAmountToSubunit(ctx, req.SourceBlockchain, chain.TokenByAddress(sourceToken), req.Amount)
	if err != nil {
		return TaskInfo{}, err
	}

	serviceNode, bid, err := i.serviceNodeBid(ctx, req)
	if err != nil {
		return TaskInfo{}, err
	}
	validUntil := ValidUntil(i.now(), bid.ExecutionTime, buffer)

	client, err := i.clients.Client(ctx, req.SourceBlockchain, nil)
	if err != nil {
		return TaskInfo{}, err
	}
	if !client.IsValidRecipientAddress(req.RecipientAddress.String()) {
		return TaskInfo{}, fmt.Errorf("%w: %s", ErrInvalidRecipient, req.RecipientAddress)
	}

	var signature chain.SignatureResponse
	if req.SourceBlockchain == req.DestinationBlockchain {
		signature, err = client.ComputeTransferSignature(ctx, chain.TransferSignatureRequest{
			SenderPrivateKey:   req.SenderPrivateKey,
			RecipientAddress:   req.RecipientAddress,
			TokenAddress:       sourceToken,
			Amount:             amount,
			ServiceNodeAddress: serviceNode,
			Bid:                bid,
			ValidUntil:         validUntil,
		})
	} else {
		signature, err = client.ComputeTransferFromSignature(ctx, chain.TransferFromSignatureRequest{
			DestinationBlockchain:   req.DestinationBlockchain,
			SenderPrivateKey:        req.SenderPrivateKey,
			RecipientAddress:        req.RecipientAddress,
			SourceTokenAddress:      sourceToken,
			DestinationTokenAddress: destinationToken,
			Amount:                  amount,
			ServiceNodeAddress:      serviceNode,
			Bid:                     bid,
			ValidUntil:              validUntil,
		})
	}
	if err != nil {
		return TaskInfo{}, err
	}

	url, err := client.ReadServiceNodeURL(ctx, serviceNode)
	if err != nil {
		return TaskInfo{}, err
	}
	taskID, err := i.nodes.SubmitTransfer(ctx, url, servicenode.SubmitTransferRequest{
		SourceBlockchain:        req.SourceBlockchain,
		DestinationBlockchain:   req.DestinationBlockchain,
		SenderAddress:           signature.SenderAddress,
		RecipientAddress:        req.RecipientAddress,
		SourceTokenAddress:      sourceToken,
		DestinationTokenAddress: destinationToken,
		Amount:                  amount,
		Bid:                     bid,
		Nonce:                   signature.SenderNonce,
		ValidUntil:              validUntil,
		Signature:               signature.Signature,
	})
	if err != nil {
		return TaskInfo{}, err
	}
	i.lggr.Infow("Submitted token transfer", "source", req.SourceBlockchain.Name(),
		"destination", req.DestinationBlockchain.Name(), "serviceNode", serviceNode.String(), "taskID", taskID.String())

	return TaskInfo{TaskID: taskID, ServiceNode: serviceNode}, nil
}

func (i *Interactor) serviceNodeBid(ctx context.Context, req TransferRequest) (chain.Address, chain.ServiceNodeBid, error) {
	if req.Bid != nil {
		return req.Bid.ServiceNode, req.Bid.Bid, nil
	}

	return i.bids.FindCheapestServiceNodeBid(ctx, req.SourceBlockchain, req.DestinationBlockchain)
}

// GetTokenTransferStatus combines the service node's report on a transfer with the transfer
// found on the destination blockchain. A transfer not yet found on the destination blockchain
// has the destination status DestinationStatusUnknown.
func (i *Interactor) GetTokenTransferStatus(ctx context.Context, req StatusRequest) (*TokenTransferStatus, error) {
	status, err := i.getTokenTransferStatus(ctx, req)
	if err != nil {
		return nil, &Error{Op: "get the token transfer status", Request: req, Err: err}
	}

	return status, nil
}

func (i *Interactor) getTokenTransferStatus(ctx context.Context, req StatusRequest) (*TokenTransferStatus, error) {
	source, err := i.clients.Client(ctx, req.SourceBlockchain, nil)
	if err != nil {
		return nil, err
	}
	url, err := source.ReadServiceNodeURL(ctx, req.ServiceNode)
	if err != nil {
		return nil, err
	}
	resp, err := i.nodes.Status(ctx, url, req.TaskID)
	if err != nil {
		return nil, err
	}

	status := newTokenTransferStatus(resp)
	if resp.Status != servicenode.TransferStatusConfirmed {
		return status, nil
	}
	status.SourceTransactionID = resp.TransactionID
	status.SourceTransferID = resp.TransferID

	destination, err := i.clients.Client(ctx, resp.DestinationBlockchain, nil)
	if err != nil {
		return nil, err
	}
	transfer, err := destination.ReadDestinationTransfer(ctx, chain.DestinationTransferRequest{
		SourceBlockchain:    req.SourceBlockchain,
		SourceTransactionID: resp.TransactionID,
		BlocksToSearch:      req.BlocksToSearch,
	})
	if chain.IsUnknownTransfer(err) {
		i.lggr.Debugw("Transfer not yet found on destination blockchain", "taskID", req.TaskID.String(),
			"destination", resp.DestinationBlockchain.Name())
		return status, nil
	}
	if err != nil {
		return nil, err
	}

	bc, err := i.cfg.Blockchain(resp.DestinationBlockchain)
	if err != nil {
		return nil, err
	}
	status.DestinationStatus = destinationStatus(transfer.LatestBlockNumber, transfer.TransactionBlockNumber, bc.Confirmations)
	status.DestinationTransactionID = transfer.DestinationTransactionID
	status.DestinationTransferID = transfer.DestinationTransferID
	status.ValidatorNonce = transfer.ValidatorNonce
	status.SignerAddresses = transfer.SignerAddresses
	status.Signatures = transfer.Signatures

	return status, nil
}

// ValidUntil returns the deadline of a transfer: the current time rounded up to the next
// second, plus the bid's execution time and the buffer in seconds.
func ValidUntil(now time.Time, executionTime uint64, buffer uint64) uint64 {
	seconds := uint64(now.Unix())
	if now.Nanosecond() > 0 {
		seconds++
	}

	return seconds + executionTime + buffer
}

// BufferSeconds returns buffer in whole seconds, rounding up. A nil buffer selects def.
func BufferSeconds(buffer *time.Duration, def time.Duration) (uint64, error) {
	if buffer == nil {
		buffer = &def
	}
	if *buffer < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNegativeValidUntilBuffer, *buffer)
	}
	seconds := uint64(*buffer / time.Second)
	if *buffer%time.Second != 0 {
		seconds++
	}

	return seconds, nil
}
