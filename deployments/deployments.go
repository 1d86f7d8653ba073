// Package deployments requests deployments of Pantos compatible tokens from the token creator
// service, paying the deployment fee with a signed pan token transfer.
package deployments

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/pkg/logger"
	"github.com/pantos-io/client-library/tokencreator"
	"github.com/pantos-io/client-library/tokens"
	"github.com/pantos-io/client-library/transfers"
)

// DefaultValidUntilBuffer is added to the bid's execution time when no buffer is requested.
const DefaultValidUntilBuffer = 10_000_000 * time.Second

// Error is returned by every failed deployment operation and carries the request.
type Error struct {
	Request DeploymentRequest
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("unable to deploy token %q: %v", e.Request.TokenSymbol, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TokenCreator is the token creator service API.
type TokenCreator interface {
	CheapestBid(ctx context.Context, payment chain.Blockchain) (chain.Address, chain.ServiceNodeBid, error)
	Payment(ctx context.Context, payment chain.Blockchain, deployments []chain.Blockchain) (tokencreator.PaymentQuote, error)
	SubmitDeployment(ctx context.Context, req tokencreator.DeploymentRequest) (uuid.UUID, error)
}

// DeploymentRequest asks for a token to be deployed on the deployment blockchains. The fee is
// paid by the payer on the payment blockchain.
type DeploymentRequest struct {
	TokenName             string
	TokenSymbol           string
	TokenDecimals         uint8
	TokenPausable         bool
	TokenBurnable         bool
	TokenSupply           *big.Int
	DeploymentBlockchains []chain.Blockchain
	PaymentBlockchain     chain.Blockchain
	PayerPrivateKey       chain.PrivateKey
	// ValidUntilBuffer defaults to DefaultValidUntilBuffer if nil.
	ValidUntilBuffer *time.Duration
}

// Interactor orchestrates token deployments.
type Interactor struct {
	clients chain.ClientProvider
	tokens  *tokens.Interactor
	creator TokenCreator
	now     func() time.Time
	lggr    logger.Logger
}

// Option configures an Interactor.
type Option func(*Interactor)

// WithClock replaces the clock used to compute payment deadlines.
func WithClock(now func() time.Time) Option {
	return func(i *Interactor) {
		i.now = now
	}
}

// NewInteractor creates a deployment Interactor.
func NewInteractor(
	clients chain.ClientProvider,
	tokenInteractor *tokens.Interactor,
	creator TokenCreator,
	lggr logger.Logger,
	opts ...Option,
) *Interactor {
	i := &Interactor{
		clients: clients,
		tokens:  tokenInteractor,
		creator: creator,
		now:     time.Now,
		lggr:    lggr.Named("deployments"),
	}
	for _, opt := range opts {
		opt(i)
	}

	return i
}

// DeployToken pays the deployment fee and requests the deployment, returning the token
// creator's task ID.
func (i *Interactor) DeployToken(ctx context.Context, req DeploymentRequest) (uuid.UUID, error) {
	taskID, err := i.deployToken(ctx, req)
	if err != nil {
		return uuid.Nil, &Error{Request: req, Err: err}
	}

	return taskID, nil
}

func (i *Interactor) deployToken(ctx context.Context, req DeploymentRequest) (uuid.UUID, error) {
	buffer, err := transfers.BufferSeconds(req.ValidUntilBuffer, DefaultValidUntilBuffer)
	if err != nil {
		return uuid.Nil, err
	}
	if len(req.DeploymentBlockchains) == 0 {
		return uuid.Nil, errors.New("at least one deployment blockchain is required")
	}

	serviceNode, bid, err := i.creator.CheapestBid(ctx, req.PaymentBlockchain)
	if err != nil {
		return uuid.Nil, err
	}
	validUntil := transfers.ValidUntil(i.now(), bid.ExecutionTime, buffer)

	panToken, err := i.tokens.FindTokenAddress(req.PaymentBlockchain, config.FeeTokenSymbol)
	if err != nil {
		return uuid.Nil, err
	}
	client, err := i.clients.Client(ctx, req.PaymentBlockchain, nil)
	if err != nil {
		return uuid.Nil, err
	}

	quote, err := i.creator.Payment(ctx, req.PaymentBlockchain, req.DeploymentBlockchains)
	if err != nil {
		return uuid.Nil, err
	}
	payment, err := client.ComputeTransferSignature(ctx, chain.TransferSignatureRequest{
		SenderPrivateKey:   req.PayerPrivateKey,
		RecipientAddress:   quote.ReceiverAddress,
		TokenAddress:       panToken,
		Amount:             quote.Fee,
		ServiceNodeAddress: serviceNode,
		Bid:                bid,
		ValidUntil:         validUntil,
	})
	if err != nil {
		return uuid.Nil, err
	}

	taskID, err := i.creator.SubmitDeployment(ctx, tokencreator.DeploymentRequest{
		DeploymentBlockchains:   req.DeploymentBlockchains,
		TokenName:               req.TokenName,
		TokenSymbol:             req.TokenSymbol,
		TokenDecimals:           req.TokenDecimals,
		TokenPausable:           req.TokenPausable,
		TokenBurnable:           req.TokenBurnable,
		TokenSupply:             req.TokenSupply,
		PaymentBlockchain:       req.PaymentBlockchain,
		PayerAddress:            payment.SenderAddress,
		DeploymentFee:           quote.Fee,
		DeploymentFeeValidUntil: quote.ValidUntil,
		DeploymentFeeSignature:  quote.Signature,
		Bid:                     bid,
		PaymentNonce:            payment.SenderNonce,
		PaymentValidUntil:       validUntil,
		PaymentSignature:        payment.Signature,
	})
	if err != nil {
		return uuid.Nil, err
	}
	i.lggr.Infow("Requested token deployment", "token", req.TokenSymbol, "payment", req.PaymentBlockchain.Name(),
		"taskID", taskID.String())

	return taskID, nil
}
