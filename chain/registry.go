package chain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/pantos-io/client-library/pkg/logger"
	"github.com/pantos-io/client-library/protocol"
)

type registryKey struct {
	blockchain Blockchain
	version    string
}

// Registry is a thread-safe cache of blockchain clients keyed by blockchain and protocol
// version. Clients are created on first access by the ClientLoader registered for the
// blockchain's family, and each key is loaded exactly once.
type Registry struct {
	mu             sync.RWMutex
	loadedClients  map[registryKey]BlockchainClient
	loaders        map[string]ClientLoader // keyed by chain family
	blockchains    map[Blockchain]bool     // maps blockchain to its active flag
	defaultVersion *semver.Version
	lggr           logger.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDefaultVersion sets the protocol version used when a caller does not ask for one.
// It defaults to protocol.LatestVersion.
func WithDefaultVersion(v *semver.Version) RegistryOption {
	return func(r *Registry) {
		r.defaultVersion = v
	}
}

// NewRegistry creates a new Registry.
// blockchains maps every configured blockchain to its active flag; inactive blockchains are
// known but refuse to create clients. loaders provides the ClientLoader for each family.
func NewRegistry(
	blockchains map[Blockchain]bool,
	loaders map[string]ClientLoader,
	lggr logger.Logger,
	opts ...RegistryOption,
) *Registry {
	r := &Registry{
		loadedClients:  make(map[registryKey]BlockchainClient),
		loaders:        loaders,
		blockchains:    blockchains,
		defaultVersion: protocol.LatestVersion(),
		lggr:           lggr,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// DefaultVersion returns the protocol version used when none is requested.
func (r *Registry) DefaultVersion() *semver.Version {
	return r.defaultVersion
}

// Client returns the client of a blockchain for a protocol version, loading it if not already
// loaded. A nil version selects the registry's default version.
func (r *Registry) Client(ctx context.Context, blockchain Blockchain, version *semver.Version) (BlockchainClient, error) {
	if version == nil {
		version = r.defaultVersion
	}
	if !protocol.IsSupported(version) {
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnsupportedVersion, version)
	}
	key := registryKey{blockchain: blockchain, version: version.String()}

	// Fast path: check if already loaded
	r.mu.RLock()
	if client, ok := r.loadedClients[key]; ok {
		r.mu.RUnlock()
		return client, nil
	}
	r.mu.RUnlock()

	// Slow path: need to load the client
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if client, ok := r.loadedClients[key]; ok {
		return client, nil
	}

	active, ok := r.blockchains[blockchain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlockchainNotFound, blockchain)
	}
	if !active {
		return nil, fmt.Errorf("%w: %s", ErrBlockchainInactive, blockchain)
	}

	loader, ok := r.loaders[blockchain.Family()]
	if !ok {
		return nil, fmt.Errorf("%w: no loader for family %q of %s", ErrBlockchainNotFound, blockchain.Family(), blockchain)
	}

	client, err := loader.Load(ctx, blockchain, version)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s client for protocol version %s: %w", blockchain, version, err)
	}
	r.lggr.Debugw("Loaded blockchain client", "blockchain", blockchain.Name(), "protocolVersion", version.String())

	r.loadedClients[key] = client

	return client, nil
}

// Exists checks if a blockchain is configured and active (not necessarily loaded).
func (r *Registry) Exists(blockchain Blockchain) bool {
	return r.blockchains[blockchain]
}

// Blockchains returns all configured and active blockchains ordered by ID.
func (r *Registry) Blockchains() []Blockchain {
	blockchains := make([]Blockchain, 0, len(r.blockchains))
	for blockchain, active := range r.blockchains {
		if active {
			blockchains = append(blockchains, blockchain)
		}
	}
	slices.Sort(blockchains)

	return blockchains
}

// LoadAll eagerly loads the clients of all active blockchains in parallel for the default
// protocol version. Successfully loaded clients are returned together with an error joining
// all load failures.
func (r *Registry) LoadAll(ctx context.Context) (map[Blockchain]BlockchainClient, error) {
	clients := make(map[Blockchain]BlockchainClient)
	var errs []error
	for res := range r.loadClientsParallel(ctx, r.Blockchains()) {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		clients[res.blockchain] = res.client
	}

	return clients, errors.Join(errs...)
}

// clientLoadResult represents the result of loading a single client.
type clientLoadResult struct {
	blockchain Blockchain
	client     BlockchainClient
	err        error
}

// loadClientsParallel loads multiple clients in parallel and returns a channel of results.
// The channel is closed when all clients have been loaded.
func (r *Registry) loadClientsParallel(ctx context.Context, blockchains []Blockchain) <-chan clientLoadResult {
	results := make(chan clientLoadResult, len(blockchains))
	var wg sync.WaitGroup

	for _, blockchain := range blockchains {
		wg.Add(1)
		go func(b Blockchain) {
			defer wg.Done()
			client, err := r.Client(ctx, b, nil)
			results <- clientLoadResult{
				blockchain: b,
				client:     client,
				err:        err,
			}
		}(blockchain)
	}

	// Close results channel when all goroutines are done
	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}
