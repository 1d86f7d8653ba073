package solana

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	solrpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/pkg/logger"
)

// Loader creates the Solana client from the library configuration.
type Loader struct {
	cfg  *config.Config
	lggr logger.Logger
	opts []ClientOption
}

// Loader should comply with the ClientLoader interface
var _ chain.ClientLoader = &Loader{}

// NewLoader creates a Loader reading the Solana settings from cfg.
func NewLoader(cfg *config.Config, lggr logger.Logger, opts ...ClientOption) *Loader {
	return &Loader{cfg: cfg, lggr: lggr, opts: opts}
}

// Load creates the Solana client for a protocol version.
func (l *Loader) Load(_ context.Context, blockchain chain.Blockchain, version *semver.Version) (chain.BlockchainClient, error) {
	if blockchain != chain.Solana {
		return nil, fmt.Errorf("%s is not Solana: %w", blockchain.Name(), chain.ErrBlockchainNotFound)
	}
	bcfg, err := l.cfg.Blockchain(blockchain)
	if err != nil {
		return nil, err
	}

	providers := bcfg.Providers()
	rpcs := make([]RPCClient, 0, len(providers))
	for _, provider := range providers {
		rpcs = append(rpcs, solrpc.New(provider))
	}

	return NewClient(version, rpcs, l.lggr.Named(blockchain.Key()), l.opts...)
}
