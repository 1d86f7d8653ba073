package chain

import (
	"context"

	"github.com/Masterminds/semver/v3"
)

// ClientLoader creates the BlockchainClient of a blockchain for a protocol version. Loaders
// are registered per chain family and invoked lazily by a Registry.
type ClientLoader interface {
	Load(ctx context.Context, blockchain Blockchain, version *semver.Version) (BlockchainClient, error)
}

// ClientLoaderFunc adapts a function to the ClientLoader interface.
type ClientLoaderFunc func(ctx context.Context, blockchain Blockchain, version *semver.Version) (BlockchainClient, error)

func (f ClientLoaderFunc) Load(ctx context.Context, blockchain Blockchain, version *semver.Version) (BlockchainClient, error) {
	return f(ctx, blockchain, version)
}

// ClientProvider hands out blockchain clients. A nil version selects the provider's default
// protocol version.
type ClientProvider interface {
	Client(ctx context.Context, blockchain Blockchain, version *semver.Version) (BlockchainClient, error)
}

// Registry should comply with the ClientProvider interface
var _ ClientProvider = &Registry{}
