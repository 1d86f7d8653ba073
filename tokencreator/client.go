// Package tokencreator is the HTTP client of the Pantos token creator service, which deploys
// Pantos compatible tokens on behalf of a payer.
package tokencreator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/pkg/logger"
)

const (
	cheapestBidResource = "bids/cheapest"
	paymentResource     = "payment"
	deploymentResource  = "deployment"
)

// ErrMalformedResponse is returned when the token creator answers with a body that cannot be
// decoded or lacks required fields.
var ErrMalformedResponse = errors.New("malformed token creator response")

// ResponseError is returned when the token creator answers with a non-success HTTP status.
type ResponseError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("token creator %s responded with status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client talks to the token creator service at a fixed base URL.
type Client struct {
	http *resty.Client
	lggr logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

// NewClient creates a token creator client for the service at baseURL.
func NewClient(baseURL string, lggr logger.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("token creator URL is required")
	}

	c := &Client{
		http: resty.New(),
		lggr: lggr,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")

	return c, nil
}

type cheapestBidResponse struct {
	ServiceNodeAddress string   `json:"service_node_address"`
	Fee                *big.Int `json:"fee"`
	ExecutionTime      *uint64  `json:"execution_time"`
	ValidUntil         *uint64  `json:"valid_until"`
	Signature          string   `json:"signature"`
}

// CheapestBid returns the service node and its bid the token creator selected for a payment
// on the payment blockchain. The bid's source and destination are the payment blockchain.
func (c *Client) CheapestBid(ctx context.Context, payment chain.Blockchain) (chain.Address, chain.ServiceNodeBid, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("payment_blockchain_id", strconv.FormatUint(payment.ID(), 10)).
		Get(cheapestBidResource)
	if err != nil {
		return "", chain.ServiceNodeBid{}, fmt.Errorf("failed to request the cheapest bid: %w", err)
	}

	var decoded cheapestBidResponse
	if err := decode(resp, &decoded); err != nil {
		return "", chain.ServiceNodeBid{}, err
	}
	if decoded.ServiceNodeAddress == "" || decoded.Fee == nil || decoded.ExecutionTime == nil ||
		decoded.ValidUntil == nil || decoded.Signature == "" {
		return "", chain.ServiceNodeBid{}, fmt.Errorf("%w: cheapest bid lacks required fields", ErrMalformedResponse)
	}

	return chain.Address(decoded.ServiceNodeAddress), chain.ServiceNodeBid{
		SourceBlockchain:      payment,
		DestinationBlockchain: payment,
		Fee:                   chain.SubunitAmount(decoded.Fee),
		ExecutionTime:         *decoded.ExecutionTime,
		ValidUntil:            *decoded.ValidUntil,
		Signature:             decoded.Signature,
	}, nil
}

// PaymentQuote is the token creator's deployment fee quote. The fee must be paid to
// ReceiverAddress before ValidUntil.
type PaymentQuote struct {
	ReceiverAddress chain.Address
	ValidUntil      uint64
	Signature       string
	Fee             *big.Int
	FeeSymbol       string
}

type paymentRequest struct {
	PaymentBlockchainID     uint64   `json:"payment_blockchain_id"`
	DeploymentBlockchainIDs []uint64 `json:"deployment_blockchain_ids"`
}

type paymentResponse struct {
	ReceiverAddress string  `json:"receiver_address"`
	ValidUntil      *uint64 `json:"valid_until"`
	Signature       string  `json:"signature"`
	Fee             *struct {
		Amount json.RawMessage `json:"amount"`
		Symbol string          `json:"symbol"`
	} `json:"fee"`
}

// parseAmount accepts an integer given either as a JSON number or as a JSON string.
func parseAmount(raw json.RawMessage) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(strings.Trim(string(raw), `"`), 10)
	if !ok || amount.Sign() < 0 {
		return nil, false
	}

	return amount, true
}

// Payment requests a quote for deploying a token on the deployment blockchains, paid on the
// payment blockchain.
func (c *Client) Payment(ctx context.Context, payment chain.Blockchain, deployments []chain.Blockchain) (PaymentQuote, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(paymentRequest{
			PaymentBlockchainID:     payment.ID(),
			DeploymentBlockchainIDs: blockchainIDs(deployments),
		}).
		Post(paymentResource)
	if err != nil {
		return PaymentQuote{}, fmt.Errorf("failed to request a payment quote: %w", err)
	}

	var decoded paymentResponse
	if err := decode(resp, &decoded); err != nil {
		return PaymentQuote{}, err
	}
	if decoded.ReceiverAddress == "" || decoded.ValidUntil == nil || decoded.Signature == "" ||
		decoded.Fee == nil {
		return PaymentQuote{}, fmt.Errorf("%w: payment quote lacks required fields", ErrMalformedResponse)
	}
	fee, ok := parseAmount(decoded.Fee.Amount)
	if !ok {
		return PaymentQuote{}, fmt.Errorf("%w: invalid fee amount %s", ErrMalformedResponse, decoded.Fee.Amount)
	}

	return PaymentQuote{
		ReceiverAddress: chain.Address(decoded.ReceiverAddress),
		ValidUntil:      *decoded.ValidUntil,
		Signature:       decoded.Signature,
		Fee:             fee,
		FeeSymbol:       decoded.Fee.Symbol,
	}, nil
}

// DeploymentRequest bundles the token parameters with the payment and bid attestations.
type DeploymentRequest struct {
	DeploymentBlockchains   []chain.Blockchain
	TokenName               string
	TokenSymbol             string
	TokenDecimals           uint8
	TokenPausable           bool
	TokenBurnable           bool
	TokenSupply             *big.Int
	PaymentBlockchain       chain.Blockchain
	PayerAddress            chain.Address
	DeploymentFee           *big.Int
	DeploymentFeeValidUntil uint64
	DeploymentFeeSignature  string
	Bid                     chain.ServiceNodeBid
	PaymentNonce            *big.Int
	PaymentValidUntil       uint64
	PaymentSignature        string
}

type deploymentBid struct {
	Fee           *big.Int `json:"fee"`
	ExecutionTime uint64   `json:"execution_time"`
	ValidUntil    uint64   `json:"valid_until"`
	Signature     string   `json:"signature"`
}

type deploymentPayload struct {
	DeploymentBlockchainIDs []uint64      `json:"deployment_blockchain_ids"`
	TokenName               string        `json:"token_name"`
	TokenSymbol             string        `json:"token_symbol"`
	TokenDecimals           uint8         `json:"token_decimals"`
	TokenPausable           bool          `json:"token_pausable"`
	TokenBurnable           bool          `json:"token_burnable"`
	TokenSupply             *big.Int      `json:"token_supply"`
	PaymentBlockchainID     uint64        `json:"payment_blockchain_id"`
	PayerAddress            string        `json:"payer_address"`
	DeploymentFee           *big.Int      `json:"deployment_fee"`
	DeploymentFeeValidUntil uint64        `json:"deployment_fee_valid_until"`
	DeploymentFeeSignature  string        `json:"deployment_fee_signature"`
	Bid                     deploymentBid `json:"bid"`
	PaymentNonce            *big.Int      `json:"payment_nonce"`
	PaymentValidUntil       uint64        `json:"payment_valid_until"`
	PaymentSignature        string        `json:"payment_signature"`
}

type taskResponse struct {
	TaskID string `json:"task_id"`
}

// SubmitDeployment submits a deployment request and returns the token creator's task ID.
func (c *Client) SubmitDeployment(ctx context.Context, req DeploymentRequest) (uuid.UUID, error) {
	fee, err := req.Bid.SubunitFee()
	if err != nil {
		return uuid.Nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(deploymentPayload{
			DeploymentBlockchainIDs: blockchainIDs(req.DeploymentBlockchains),
			TokenName:               req.TokenName,
			TokenSymbol:             req.TokenSymbol,
			TokenDecimals:           req.TokenDecimals,
			TokenPausable:           req.TokenPausable,
			TokenBurnable:           req.TokenBurnable,
			TokenSupply:             req.TokenSupply,
			PaymentBlockchainID:     req.PaymentBlockchain.ID(),
			PayerAddress:            req.PayerAddress.String(),
			DeploymentFee:           req.DeploymentFee,
			DeploymentFeeValidUntil: req.DeploymentFeeValidUntil,
			DeploymentFeeSignature:  req.DeploymentFeeSignature,
			Bid: deploymentBid{
				Fee:           fee,
				ExecutionTime: req.Bid.ExecutionTime,
				ValidUntil:    req.Bid.ValidUntil,
				Signature:     req.Bid.Signature,
			},
			PaymentNonce:      req.PaymentNonce,
			PaymentValidUntil: req.PaymentValidUntil,
			PaymentSignature:  req.PaymentSignature,
		}).
		Post(deploymentResource)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to submit the deployment request: %w", err)
	}

	var decoded taskResponse
	if err := decode(resp, &decoded); err != nil {
		return uuid.Nil, err
	}
	taskID, err := uuid.Parse(decoded.TaskID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid task ID %q", ErrMalformedResponse, decoded.TaskID)
	}
	c.lggr.Debugw("Submitted deployment", "taskID", taskID.String(), "token", req.TokenSymbol)

	return taskID, nil
}

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

func blockchainIDs(blockchains []chain.Blockchain) []uint64 {
	ids := make([]uint64, 0, len(blockchains))
	for _, b := range blockchains {
		ids = append(ids, b.ID())
	}

	return ids
}
