package client

import (
	"time"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/chain/evm"
	"github.com/pantos-io/client-library/chain/solana"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/deployments"
	"github.com/pantos-io/client-library/pkg/logger"
	"github.com/pantos-io/client-library/servicenode"
	"github.com/pantos-io/client-library/tokencreator"
)

// loadConfig holds the settings a Client is built with.
type loadConfig struct {
	// network selects the protocol version configured for mainnet or testnet.
	// Defaults to testnet.
	network config.NetworkType

	// lggr is used by every component of the Client. Defaults to a new production logger.
	lggr logger.Logger

	// loaders replace the client loaders of the given chain families.
	loaders map[string]chain.ClientLoader

	evmOpts          []evm.LoaderOption
	solanaOpts       []solana.ClientOption
	serviceNodeOpts  []servicenode.Option
	tokenCreatorOpts []tokencreator.Option

	// tokenCreator replaces the token creator service client built from the configured URL.
	tokenCreator deployments.TokenCreator

	bidConcurrency int64
	now            func() time.Time
}

// Option is a functional option for configuring a Client.
type Option func(*loadConfig)

// WithNetwork selects the network whose configured protocol version the Client speaks.
func WithNetwork(network config.NetworkType) Option {
	return func(c *loadConfig) {
		c.network = network
	}
}

// WithMainnet is shorthand for WithNetwork(config.NetworkTypeMainnet).
func WithMainnet() Option {
	return WithNetwork(config.NetworkTypeMainnet)
}

// WithLogger sets the logger of the Client.
func WithLogger(lggr logger.Logger) Option {
	return func(c *loadConfig) {
		c.lggr = lggr
	}
}

// WithClientLoader replaces the loader creating the blockchain clients of a chain family,
// e.g. chainsel.FamilyEVM.
func WithClientLoader(family string, loader chain.ClientLoader) Option {
	return func(c *loadConfig) {
		if c.loaders == nil {
			c.loaders = make(map[string]chain.ClientLoader)
		}
		c.loaders[family] = loader
	}
}

// WithEVMLoaderOptions passes options to the EVM client loader.
func WithEVMLoaderOptions(opts ...evm.LoaderOption) Option {
	return func(c *loadConfig) {
		c.evmOpts = append(c.evmOpts, opts...)
	}
}

// WithSolanaClientOptions passes options to every Solana client.
func WithSolanaClientOptions(opts ...solana.ClientOption) Option {
	return func(c *loadConfig) {
		c.solanaOpts = append(c.solanaOpts, opts...)
	}
}

// WithServiceNodeOptions passes options to the service node API client. The configured
// service node timeout is applied first.
func WithServiceNodeOptions(opts ...servicenode.Option) Option {
	return func(c *loadConfig) {
		c.serviceNodeOpts = append(c.serviceNodeOpts, opts...)
	}
}

// WithTokenCreatorOptions passes options to the token creator service client.
func WithTokenCreatorOptions(opts ...tokencreator.Option) Option {
	return func(c *loadConfig) {
		c.tokenCreatorOpts = append(c.tokenCreatorOpts, opts...)
	}
}

// WithTokenCreator replaces the token creator service client.
func WithTokenCreator(creator deployments.TokenCreator) Option {
	return func(c *loadConfig) {
		c.tokenCreator = creator
	}
}

// WithBidConcurrency bounds the number of service nodes asked for bids at the same time.
func WithBidConcurrency(n int64) Option {
	return func(c *loadConfig) {
		c.bidConcurrency = n
	}
}

// WithClock replaces the clock used to compute transfer and payment deadlines.
func WithClock(now func() time.Time) Option {
	return func(c *loadConfig) {
		c.now = now
	}
}

func newLoadConfig(opts []Option) (*loadConfig, error) {
	c := &loadConfig{network: config.NetworkTypeTestnet}
	for _, opt := range opts {
		opt(c)
	}
	if c.lggr == nil {
		lggr, err := logger.New()
		if err != nil {
			return nil, err
		}
		c.lggr = lggr
	}

	return c, nil
}
