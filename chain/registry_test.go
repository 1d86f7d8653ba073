package chain_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/chain/mocks"
	"github.com/pantos-io/client-library/pkg/logger"
	"github.com/pantos-io/client-library/protocol"
)

// countingLoader counts Load calls and returns a fresh mock per call.
type countingLoader struct {
	t     *testing.T
	calls atomic.Int32
	err   error
}

func (l *countingLoader) Load(_ context.Context, b chain.Blockchain, v *semver.Version) (chain.BlockchainClient, error) {
	l.calls.Add(1)
	if l.err != nil {
		return nil, l.err
	}

	return mocks.NewMockBlockchainClient(l.t, b, v), nil
}

func TestRegistry_Client(t *testing.T) {
	t.Parallel()

	t.Run("loads client on first access and caches it", func(t *testing.T) {
		t.Parallel()

		loader := &countingLoader{t: t}
		registry := chain.NewRegistry(
			map[chain.Blockchain]bool{chain.Ethereum: true},
			map[string]chain.ClientLoader{chainsel.FamilyEVM: loader},
			logger.Test(t),
		)

		got, err := registry.Client(t.Context(), chain.Ethereum, nil)
		require.NoError(t, err)
		assert.Equal(t, chain.Ethereum, got.Blockchain())
		assert.True(t, got.ProtocolVersion().Equal(protocol.LatestVersion()))

		again, err := registry.Client(t.Context(), chain.Ethereum, protocol.LatestVersion())
		require.NoError(t, err)
		assert.Same(t, got, again)
		assert.Equal(t, int32(1), loader.calls.Load(), "client should be loaded once")
	})

	t.Run("loads one client per protocol version", func(t *testing.T) {
		t.Parallel()

		loader := &countingLoader{t: t}
		registry := chain.NewRegistry(
			map[chain.Blockchain]bool{chain.Ethereum: true},
			map[string]chain.ClientLoader{chainsel.FamilyEVM: loader},
			logger.Nop(),
		)

		v1, err := registry.Client(t.Context(), chain.Ethereum, protocol.V0_1_0)
		require.NoError(t, err)
		v2, err := registry.Client(t.Context(), chain.Ethereum, protocol.V0_2_0)
		require.NoError(t, err)

		assert.NotSame(t, v1, v2)
		assert.Equal(t, int32(2), loader.calls.Load())
	})

	t.Run("creates each client exactly once under concurrent access", func(t *testing.T) {
		t.Parallel()

		loader := &countingLoader{t: t}
		registry := chain.NewRegistry(
			map[chain.Blockchain]bool{chain.Polygon: true},
			map[string]chain.ClientLoader{chainsel.FamilyEVM: loader},
			logger.Nop(),
		)

		const workers = 32
		var wg sync.WaitGroup
		clients := make([]chain.BlockchainClient, workers)
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c, err := registry.Client(context.Background(), chain.Polygon, nil)
				assert.NoError(t, err)
				clients[i] = c
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), loader.calls.Load())
		for _, c := range clients {
			assert.Same(t, clients[0], c)
		}
	})

	t.Run("uses the configured default version", func(t *testing.T) {
		t.Parallel()

		registry := chain.NewRegistry(
			map[chain.Blockchain]bool{chain.Ethereum: true},
			map[string]chain.ClientLoader{chainsel.FamilyEVM: &countingLoader{t: t}},
			logger.Nop(),
			chain.WithDefaultVersion(protocol.V0_1_0),
		)

		got, err := registry.Client(t.Context(), chain.Ethereum, nil)
		require.NoError(t, err)
		assert.True(t, got.ProtocolVersion().Equal(protocol.V0_1_0))
	})

	t.Run("rejects unsupported versions", func(t *testing.T) {
		t.Parallel()

		loader := &countingLoader{t: t}
		registry := chain.NewRegistry(
			map[chain.Blockchain]bool{chain.Ethereum: true},
			map[string]chain.ClientLoader{chainsel.FamilyEVM: loader},
			logger.Nop(),
		)

		_, err := registry.Client(t.Context(), chain.Ethereum, semver.MustParse("3.0.0"))
		require.ErrorIs(t, err, protocol.ErrUnsupportedVersion)
		assert.Zero(t, loader.calls.Load())
	})

	t.Run("rejects unknown and inactive blockchains", func(t *testing.T) {
		t.Parallel()

		registry := chain.NewRegistry(
			map[chain.Blockchain]bool{chain.Ethereum: true, chain.Celo: false},
			map[string]chain.ClientLoader{chainsel.FamilyEVM: &countingLoader{t: t}},
			logger.Nop(),
		)

		_, err := registry.Client(t.Context(), chain.Cronos, nil)
		require.ErrorIs(t, err, chain.ErrBlockchainNotFound)

		_, err = registry.Client(t.Context(), chain.Celo, nil)
		require.ErrorIs(t, err, chain.ErrBlockchainInactive)
	})

	t.Run("fails without a loader for the family", func(t *testing.T) {
		t.Parallel()

		registry := chain.NewRegistry(
			map[chain.Blockchain]bool{chain.Solana: true},
			map[string]chain.ClientLoader{chainsel.FamilyEVM: &countingLoader{t: t}},
			logger.Nop(),
		)

		_, err := registry.Client(t.Context(), chain.Solana, nil)
		require.ErrorIs(t, err, chain.ErrBlockchainNotFound)
	})

	t.Run("does not cache load failures", func(t *testing.T) {
		t.Parallel()

		loader := &countingLoader{t: t, err: errors.New("dial failed")}
		registry := chain.NewRegistry(
			map[chain.Blockchain]bool{chain.Ethereum: true},
			map[string]chain.ClientLoader{chainsel.FamilyEVM: loader},
			logger.Nop(),
		)

		_, err := registry.Client(t.Context(), chain.Ethereum, nil)
		require.ErrorContains(t, err, "dial failed")
		_, err = registry.Client(t.Context(), chain.Ethereum, nil)
		require.Error(t, err)
		assert.Equal(t, int32(2), loader.calls.Load())
	})
}

func TestRegistry_LoadAll(t *testing.T) {
	t.Parallel()

	evmLoader := &countingLoader{t: t}
	solanaLoader := &countingLoader{t: t, err: errors.New("rpc unreachable")}
	registry := chain.NewRegistry(
		map[chain.Blockchain]bool{chain.Ethereum: true, chain.BNBChain: true, chain.Solana: true, chain.Celo: false},
		map[string]chain.ClientLoader{
			chainsel.FamilyEVM:    evmLoader,
			chainsel.FamilySolana: solanaLoader,
		},
		logger.Nop(),
	)

	assert.Equal(t, []chain.Blockchain{chain.Ethereum, chain.BNBChain, chain.Solana}, registry.Blockchains())
	assert.True(t, registry.Exists(chain.BNBChain))
	assert.False(t, registry.Exists(chain.Celo))

	clients, err := registry.LoadAll(t.Context())
	require.ErrorContains(t, err, "rpc unreachable")
	assert.Len(t, clients, 2)
	assert.Contains(t, clients, chain.Ethereum)
	assert.Contains(t, clients, chain.BNBChain)
}
