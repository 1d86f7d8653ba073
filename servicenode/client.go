// Package servicenode is the HTTP client of the Pantos service node (relay) API: bids for a
// blockchain pair, transfer submission and transfer status.
package servicenode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/pkg/logger"
)

const (
	bidsResource     = "bids"
	transferResource = "transfer"
	statusResource   = "status"
)

// ErrMalformedResponse is returned when a service node answers with a body that cannot be
// decoded or lacks required fields.
var ErrMalformedResponse = errors.New("malformed service node response")

// ResponseError is returned when a service node answers with a non-success HTTP status.
type ResponseError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("service node %s responded with status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client talks to service nodes. The service node URL is passed per call since every node
// registers its own URL on-chain.
type Client struct {
	http *resty.Client
	lggr logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request of the client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

// NewClient creates a service node client.
func NewClient(lggr logger.Logger, opts ...Option) *Client {
	c := &Client{
		http: resty.New(),
		lggr: lggr,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetHeader("Accept", "application/json")

	return c
}

type bidResponse struct {
	Fee           *big.Int `json:"fee"`
	ExecutionTime *uint64  `json:"execution_time"`
	ValidUntil    *uint64  `json:"valid_until"`
	Signature     string   `json:"signature"`
}

// Bids retrieves the bids of the service node at url for transfers from source to
// destination. Fees are given in subunits of the pan token.
func (c *Client) Bids(ctx context.Context, url string, source, destination chain.Blockchain) ([]chain.ServiceNodeBid, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"source_blockchain":      strconv.FormatUint(source.ID(), 10),
			"destination_blockchain": strconv.FormatUint(destination.ID(), 10),
		}).
		Get(resourceURL(url, bidsResource))
	if err != nil {
		return nil, fmt.Errorf("failed to request bids from %s: %w", url, err)
	}

	var decoded []bidResponse
	if err := decode(resp, &decoded); err != nil {
		return nil, err
	}

	bids := make([]chain.ServiceNodeBid, 0, len(decoded))
	for i, b := range decoded {
		if b.Fee == nil || b.ExecutionTime == nil || b.ValidUntil == nil || b.Signature == "" {
			return nil, fmt.Errorf("%w: bid %d lacks required fields", ErrMalformedResponse, i)
		}
		if b.Fee.Sign() < 0 {
			return nil, fmt.Errorf("%w: bid %d has a negative fee", ErrMalformedResponse, i)
		}
		bids = append(bids, chain.ServiceNodeBid{
			SourceBlockchain:      source,
			DestinationBlockchain: destination,
			Fee:                   chain.SubunitAmount(b.Fee),
			ExecutionTime:         *b.ExecutionTime,
			ValidUntil:            *b.ValidUntil,
			Signature:             b.Signature,
		})
	}

	return bids, nil
}

// SubmitTransferRequest is a signed transfer authorization submitted to a service node.
type SubmitTransferRequest struct {
	SourceBlockchain        chain.Blockchain
	DestinationBlockchain   chain.Blockchain
	SenderAddress           chain.Address
	RecipientAddress        chain.Address
	SourceTokenAddress      chain.Address
	DestinationTokenAddress chain.Address
	Amount                  *big.Int
	Bid                     chain.ServiceNodeBid
	Nonce                   *big.Int
	ValidUntil              uint64
	Signature               string
}

type submitBid struct {
	Fee           *big.Int `json:"fee"`
	ExecutionTime uint64   `json:"execution_time"`
	ValidUntil    uint64   `json:"valid_until"`
	Signature     string   `json:"signature"`
}

type submitTransferPayload struct {
	SourceBlockchainID      uint64    `json:"source_blockchain_id"`
	DestinationBlockchainID uint64    `json:"destination_blockchain_id"`
	SenderAddress           string    `json:"sender_address"`
	RecipientAddress        string    `json:"recipient_address"`
	SourceTokenAddress      string    `json:"source_token_address"`
	DestinationTokenAddress string    `json:"destination_token_address"`
	Amount                  *big.Int  `json:"amount"`
	Bid                     submitBid `json:"bid"`
	Nonce                   *big.Int  `json:"nonce"`
	ValidUntil              uint64    `json:"valid_until"`
	Signature               string    `json:"signature"`
}

type taskResponse struct {
	TaskID string `json:"task_id"`
}

// SubmitTransfer submits a signed transfer to the service node at url and returns the task
// ID the node assigned.
func (c *Client) SubmitTransfer(ctx context.Context, url string, req SubmitTransferRequest) (uuid.UUID, error) {
	fee, err := req.Bid.SubunitFee()
	if err != nil {
		return uuid.Nil, err
	}
	payload := submitTransferPayload{
		SourceBlockchainID:      req.SourceBlockchain.ID(),
		DestinationBlockchainID: req.DestinationBlockchain.ID(),
		SenderAddress:           req.SenderAddress.String(),
		RecipientAddress:        req.RecipientAddress.String(),
		SourceTokenAddress:      req.SourceTokenAddress.String(),
		DestinationTokenAddress: req.DestinationTokenAddress.String(),
		Amount:                  req.Amount,
		Bid: submitBid{
			Fee:           fee,
			ExecutionTime: req.Bid.ExecutionTime,
			ValidUntil:    req.Bid.ValidUntil,
			Signature:     req.Bid.Signature,
		},
		Nonce:      req.Nonce,
		ValidUntil: req.ValidUntil,
		Signature:  req.Signature,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(resourceURL(url, transferResource))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to submit transfer to %s: %w", url, err)
	}

	var decoded taskResponse
	if err := decode(resp, &decoded); err != nil {
		return uuid.Nil, err
	}
	taskID, err := uuid.Parse(decoded.TaskID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid task ID %q", ErrMalformedResponse, decoded.TaskID)
	}
	c.lggr.Debugw("Submitted transfer", "url", url, "taskID", taskID.String())

	return taskID, nil
}

// Status retrieves the status of the transfer task taskID from the service node at url.
func (c *Client) Status(ctx context.Context, url string, taskID uuid.UUID) (TransferStatusResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(resourceURL(url, transferResource, taskID.String(), statusResource))
	if err != nil {
		return TransferStatusResponse{}, fmt.Errorf("failed to request transfer status from %s: %w", url, err)
	}

	var decoded transferStatusPayload
	if err := decode(resp, &decoded); err != nil {
		return TransferStatusResponse{}, err
	}

	return decoded.toResponse()
}

// decode fails with a ResponseError on non-success statuses and with ErrMalformedResponse
// if the body is not the expected JSON document.
func decode(resp *resty.Response, v any) error {
	if resp.IsError() {
		return &ResponseError{
			URL:        resp.Request.URL,
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(resp.String()),
		}
	}
	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return nil
}

func resourceURL(base string, elems ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(elems, "/")
}
