// Package client is the entry point of the Pantos client library. A Client wires the
// configuration into the blockchain client registry and the token, bid, transfer and
// deployment interactors.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/pantos-io/client-library/bids"
	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/chain/evm"
	"github.com/pantos-io/client-library/chain/solana"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/deployments"
	"github.com/pantos-io/client-library/pkg/logger"
	"github.com/pantos-io/client-library/servicenode"
	"github.com/pantos-io/client-library/tokencreator"
	"github.com/pantos-io/client-library/tokens"
	"github.com/pantos-io/client-library/transfers"
)

// ErrDeploymentsUnavailable is returned by DeployToken when no token creator URL is configured.
var ErrDeploymentsUnavailable = errors.New("token deployments are unavailable: no token creator configured")

// Client exposes the operations of the Pantos client library. It is safe for concurrent use.
type Client struct {
	cfg      *config.Config
	network  config.NetworkType
	version  *semver.Version
	registry *chain.Registry

	tokens      *tokens.Interactor
	bids        *bids.Interactor
	transfers   *transfers.Interactor
	deployments *deployments.Interactor // nil without a token creator

	lggr logger.Logger
}

// Load reads the configuration file at filePath, applying environment overrides, and creates
// a Client from it.
func Load(filePath string, opts ...Option) (*Client, error) {
	cfg, err := config.Load(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return New(cfg, opts...)
}

// New creates a Client from a validated configuration. Blockchain clients are created lazily
// on first use.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	lc, err := newLoadConfig(opts)
	if err != nil {
		return nil, err
	}
	lggr := lc.lggr

	version, err := cfg.ProtocolVersion(lc.network)
	if err != nil {
		return nil, fmt.Errorf("failed to select protocol version: %w", err)
	}

	loaders := map[string]chain.ClientLoader{
		chainsel.FamilyEVM:    evm.NewLoader(cfg, lggr.Named("evm"), lc.evmOpts...),
		chainsel.FamilySolana: solana.NewLoader(cfg, lggr.Named("solana"), lc.solanaOpts...),
	}
	for family, loader := range lc.loaders {
		loaders[family] = loader
	}
	registry := chain.NewRegistry(cfg.ActiveBlockchains(), loaders, lggr.Named("registry"),
		chain.WithDefaultVersion(version))

	timeout := cfg.ServiceNodes.TimeoutDuration()
	nodes := servicenode.NewClient(lggr, append([]servicenode.Option{servicenode.WithTimeout(timeout)}, lc.serviceNodeOpts...)...)

	var bidOpts []bids.Option
	if lc.bidConcurrency > 0 {
		bidOpts = append(bidOpts, bids.WithConcurrency(lc.bidConcurrency))
	}
	var transferOpts []transfers.Option
	var deploymentOpts []deployments.Option
	if lc.now != nil {
		transferOpts = append(transferOpts, transfers.WithClock(lc.now))
		deploymentOpts = append(deploymentOpts, deployments.WithClock(lc.now))
	}

	tokenInteractor := tokens.NewInteractor(registry, cfg, lggr)
	bidInteractor := bids.NewInteractor(registry, tokenInteractor, nodes, timeout, lggr, bidOpts...)
	c := &Client{
		cfg:       cfg,
		network:   lc.network,
		version:   version,
		registry:  registry,
		tokens:    tokenInteractor,
		bids:      bidInteractor,
		transfers: transfers.NewInteractor(registry, cfg, tokenInteractor, bidInteractor, nodes, lggr, transferOpts...),
		lggr:      lggr.Named("client"),
	}

	creator := lc.tokenCreator
	if creator == nil && cfg.TokenCreator.URL != "" {
		tc, err := tokencreator.NewClient(cfg.TokenCreator.URL, lggr, lc.tokenCreatorOpts...)
		if err != nil {
			return nil, err
		}
		creator = tc
	}
	if creator != nil {
		c.deployments = deployments.NewInteractor(registry, tokenInteractor, creator, lggr, deploymentOpts...)
	}

	c.lggr.Infow("Initialized client library", "network", string(lc.network), "protocolVersion", version.String(),
		"blockchains", len(cfg.Blockchains))

	return c, nil
}

// Config returns the configuration the Client was created from.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// Network returns the network the Client was created for.
func (c *Client) Network() config.NetworkType {
	return c.network
}

// ProtocolVersion returns the protocol version the Client speaks.
func (c *Client) ProtocolVersion() *semver.Version {
	return c.version
}

// Registry returns the blockchain client registry.
func (c *Client) Registry() *chain.Registry {
	return c.registry
}

// DecryptPrivateKey decrypts the private key of an account on blockchain from a password
// encrypted keystore.
func (c *Client) DecryptPrivateKey(ctx context.Context, blockchain chain.Blockchain, keystore string, password string) (chain.PrivateKey, error) {
	client, err := c.registry.Client(ctx, blockchain, nil)
	if err != nil {
		return "", err
	}

	return client.DecryptPrivateKey(keystore, password)
}

// ResolveAccount returns the address of an account on blockchain.
func (c *Client) ResolveAccount(ctx context.Context, blockchain chain.Blockchain, account chain.AccountID) (chain.Address, error) {
	client, err := c.registry.Client(ctx, blockchain, nil)
	if err != nil {
		return "", err
	}

	return client.ResolveAccount(account)
}

// RetrieveTokenBalance returns the token balance of an account.
func (c *Client) RetrieveTokenBalance(ctx context.Context, req tokens.BalanceRequest) (chain.Amount, error) {
	return c.tokens.RetrieveTokenBalance(ctx, req)
}

// RetrieveServiceNodeBids returns the bids of every reachable service node for transfers from
// source to destination, keyed by service node address.
func (c *Client) RetrieveServiceNodeBids(ctx context.Context, source, destination chain.Blockchain, feeInMainUnit bool) (map[chain.Address][]chain.ServiceNodeBid, error) {
	return c.bids.RetrieveServiceNodeBids(ctx, source, destination, feeInMainUnit)
}

// FindCheapestServiceNodeBid returns the cheapest bid for transfers from source to destination.
func (c *Client) FindCheapestServiceNodeBid(ctx context.Context, source, destination chain.Blockchain) (chain.Address, chain.ServiceNodeBid, error) {
	return c.bids.FindCheapestServiceNodeBid(ctx, source, destination)
}

// TransferTokens submits a token transfer to a service node.
func (c *Client) TransferTokens(ctx context.Context, req transfers.TransferRequest) (transfers.TaskInfo, error) {
	return c.transfers.TransferTokens(ctx, req)
}

// GetTokenTransferStatus returns the status of a submitted token transfer.
func (c *Client) GetTokenTransferStatus(ctx context.Context, req transfers.StatusRequest) (*transfers.TokenTransferStatus, error) {
	return c.transfers.GetTokenTransferStatus(ctx, req)
}

// DeployToken requests the deployment of a Pantos compatible token.
func (c *Client) DeployToken(ctx context.Context, req deployments.DeploymentRequest) (uuid.UUID, error) {
	if c.deployments == nil {
		return uuid.Nil, ErrDeploymentsUnavailable
	}

	return c.deployments.DeployToken(ctx, req)
}
