package evm

import (
	"context"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/pkg/logger"
)

// DialFunc connects to the RPC endpoints of a blockchain.
type DialFunc func(ctx context.Context, lggr logger.Logger, cfg RPCConfig) (OnchainClient, error)

// Loader creates EVM blockchain clients from the library configuration. The connection to a
// blockchain is shared by the clients of all protocol versions.
type Loader struct {
	cfg  *config.Config
	lggr logger.Logger
	dial DialFunc

	mu      sync.Mutex
	onchain map[chain.Blockchain]OnchainClient
}

// Loader should comply with the ClientLoader interface
var _ chain.ClientLoader = &Loader{}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithDialFunc replaces the dialer of a Loader.
func WithDialFunc(dial DialFunc) LoaderOption {
	return func(l *Loader) {
		l.dial = dial
	}
}

// WithMultiClientOptions passes options to the MultiClient of every blockchain.
func WithMultiClientOptions(opts ...func(*MultiClient)) LoaderOption {
	return func(l *Loader) {
		l.dial = func(ctx context.Context, lggr logger.Logger, cfg RPCConfig) (OnchainClient, error) {
			return NewMultiClient(ctx, lggr, cfg, opts...)
		}
	}
}

// NewLoader creates a Loader reading blockchain settings from cfg.
func NewLoader(cfg *config.Config, lggr logger.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		cfg:     cfg,
		lggr:    lggr,
		onchain: make(map[chain.Blockchain]OnchainClient),
		dial: func(ctx context.Context, lggr logger.Logger, cfg RPCConfig) (OnchainClient, error) {
			return NewMultiClient(ctx, lggr, cfg)
		},
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load creates the client of an EVM blockchain for a protocol version.
func (l *Loader) Load(ctx context.Context, blockchain chain.Blockchain, version *semver.Version) (chain.BlockchainClient, error) {
	traits, ok := TraitsFor(blockchain)
	if !ok {
		return nil, fmt.Errorf("%s is not an EVM blockchain: %w", blockchain.Name(), chain.ErrBlockchainNotFound)
	}
	bcfg, err := l.cfg.Blockchain(blockchain)
	if err != nil {
		return nil, err
	}

	onchain, err := l.onchainClient(ctx, blockchain, bcfg)
	if err != nil {
		return nil, err
	}

	return NewClient(traits, version, bcfg, onchain, l.lggr.Named(blockchain.Key()))
}

// onchainClient returns the cached connection of a blockchain, dialing it and checking its
// chain ID on first use.
func (l *Loader) onchainClient(ctx context.Context, blockchain chain.Blockchain, bcfg config.BlockchainConfig) (OnchainClient, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if onchain, ok := l.onchain[blockchain]; ok {
		return onchain, nil
	}

	onchain, err := l.dial(ctx, l.lggr.Named(blockchain.Key()), RPCConfig{
		Blockchain: blockchain,
		ChainID:    bcfg.ChainID,
		Endpoints:  bcfg.Providers(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", blockchain.Name(), err)
	}

	chainID, err := onchain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain ID of %s: %w", blockchain.Name(), err)
	}
	if !chainID.IsUint64() || chainID.Uint64() != bcfg.ChainID {
		return nil, fmt.Errorf("%s provider serves chain ID %s, configured %d", blockchain.Name(), chainID, bcfg.ChainID)
	}

	l.onchain[blockchain] = onchain
	l.lggr.Infow("Connected to blockchain", "blockchain", blockchain.Name(), "chainID", bcfg.ChainID)

	return onchain, nil
}
