// Package mocks provides testify mocks of the chain interfaces.
package mocks

import (
	"context"
	"math/big"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/mock"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/pkg/logger"
)

var _ chain.BlockchainClient = &MockBlockchainClient{}

// MockBlockchainClient is a mock of chain.BlockchainClient.
type MockBlockchainClient struct {
	mock.Mock

	blockchain chain.Blockchain
	version    *semver.Version
}

// NewMockBlockchainClient creates a mock for blockchain and protocol version whose
// expectations are asserted when the test finishes.
func NewMockBlockchainClient(t *testing.T, blockchain chain.Blockchain, version *semver.Version) *MockBlockchainClient {
	t.Helper()

	m := &MockBlockchainClient{blockchain: blockchain, version: version}
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockBlockchainClient) Blockchain() chain.Blockchain {
	return m.blockchain
}

func (m *MockBlockchainClient) ProtocolVersion() *semver.Version {
	return m.version
}

func (m *MockBlockchainClient) ComputeTransferSignature(ctx context.Context, req chain.TransferSignatureRequest) (chain.SignatureResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(chain.SignatureResponse), args.Error(1)
}

func (m *MockBlockchainClient) ComputeTransferFromSignature(ctx context.Context, req chain.TransferFromSignatureRequest) (chain.SignatureResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(chain.SignatureResponse), args.Error(1)
}

func (m *MockBlockchainClient) IsValidRecipientAddress(address string) bool {
	args := m.Called(address)
	return args.Bool(0)
}

func (m *MockBlockchainClient) ResolveAccount(account chain.AccountID) (chain.Address, error) {
	args := m.Called(account)
	return args.Get(0).(chain.Address), args.Error(1)
}

func (m *MockBlockchainClient) DecryptPrivateKey(keystore string, password string) (chain.PrivateKey, error) {
	args := m.Called(keystore, password)
	return args.Get(0).(chain.PrivateKey), args.Error(1)
}

func (m *MockBlockchainClient) ReadTokenBalance(ctx context.Context, token chain.Address, account chain.AccountID) (*big.Int, error) {
	args := m.Called(ctx, token, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockBlockchainClient) ReadTokenDecimals(ctx context.Context, token chain.Address) (uint8, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uint8), args.Error(1)
}

func (m *MockBlockchainClient) ReadExternalTokenAddress(ctx context.Context, token chain.Address, destination chain.Blockchain) (chain.Address, error) {
	args := m.Called(ctx, token, destination)
	return args.Get(0).(chain.Address), args.Error(1)
}

func (m *MockBlockchainClient) ReadServiceNodeAddresses(ctx context.Context) ([]chain.Address, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]chain.Address), args.Error(1)
}

func (m *MockBlockchainClient) ReadServiceNodeURL(ctx context.Context, serviceNode chain.Address) (string, error) {
	args := m.Called(ctx, serviceNode)
	return args.String(0), args.Error(1)
}

func (m *MockBlockchainClient) ReadDestinationTransfer(ctx context.Context, req chain.DestinationTransferRequest) (chain.DestinationTransfer, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(chain.DestinationTransfer), args.Error(1)
}

// Registry returns a chain.Registry serving the given mocks for any protocol version.
func Registry(clients ...*MockBlockchainClient) *chain.Registry {
	byBlockchain := make(map[chain.Blockchain]chain.BlockchainClient, len(clients))
	active := make(map[chain.Blockchain]bool, len(clients))
	for _, c := range clients {
		byBlockchain[c.blockchain] = c
		active[c.blockchain] = true
	}
	loader := chain.ClientLoaderFunc(func(_ context.Context, b chain.Blockchain, _ *semver.Version) (chain.BlockchainClient, error) {
		c, ok := byBlockchain[b]
		if !ok {
			return nil, chain.ErrBlockchainNotFound
		}

		return c, nil
	})

	return chain.NewRegistry(active, map[string]chain.ClientLoader{
		chainsel.FamilyEVM:    loader,
		chainsel.FamilySolana: loader,
	}, logger.Nop())
}
