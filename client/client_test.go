package client

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/chain/mocks"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/deployments"
	"github.com/pantos-io/client-library/internal/pointer"
	"github.com/pantos-io/client-library/pkg/logger"
	"github.com/pantos-io/client-library/protocol"
	"github.com/pantos-io/client-library/tokens"
)

const panAddress = chain.Address("0xPan")

func testConfig() *config.Config {
	return &config.Config{
		Protocol: config.ProtocolConfig{Mainnet: "0.1.0", Testnet: "0.2.0"},
		Blockchains: map[string]config.BlockchainConfig{
			chain.Ethereum.Key(): {Tokens: map[string]string{config.FeeTokenSymbol: panAddress.String()}},
			chain.BNBChain.Key(): {Tokens: map[string]string{config.FeeTokenSymbol: "0xBnbPan"}},
			chain.Solana.Key():   {Active: pointer.To(false)},
		},
	}
}

// loaderFor serves the mocks and fails the test if a client is requested for any other
// protocol version than want.
func loaderFor(t *testing.T, want *semver.Version, clients ...*mocks.MockBlockchainClient) chain.ClientLoader {
	t.Helper()

	byBlockchain := make(map[chain.Blockchain]chain.BlockchainClient, len(clients))
	for _, c := range clients {
		byBlockchain[c.Blockchain()] = c
	}

	return chain.ClientLoaderFunc(func(_ context.Context, b chain.Blockchain, v *semver.Version) (chain.BlockchainClient, error) {
		assert.True(t, want.Equal(v), "protocol version %s, want %s", v, want)
		c, ok := byBlockchain[b]
		if !ok {
			return nil, chain.ErrBlockchainNotFound
		}

		return c, nil
	})
}

func newTestClient(t *testing.T, cfg *config.Config, opts ...Option) *Client {
	t.Helper()

	c, err := New(cfg, append([]Option{WithLogger(logger.Test(t))}, opts...)...)
	require.NoError(t, err)

	return c
}

func TestNew_protocolVersionByNetwork(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		network config.NetworkType
		want    *semver.Version
	}{
		{name: "testnet by default", network: config.NetworkTypeTestnet, want: protocol.V0_2_0},
		{name: "mainnet", opts: []Option{WithMainnet()}, network: config.NetworkTypeMainnet, want: protocol.V0_1_0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, testConfig(), tt.opts...)
			assert.Equal(t, tt.network, c.Network())
			assert.True(t, tt.want.Equal(c.ProtocolVersion()))
			assert.True(t, tt.want.Equal(c.Registry().DefaultVersion()))
		})
	}
}

func TestNew_invalidNetwork(t *testing.T) {
	t.Parallel()

	_, err := New(testConfig(), WithLogger(logger.Test(t)), WithNetwork("devnet"))
	require.ErrorContains(t, err, "unknown network type")
}

func TestNew_unsupportedProtocolVersion(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Protocol.Testnet = "9.9.9"

	_, err := New(cfg, WithLogger(logger.Test(t)))
	require.ErrorIs(t, err, protocol.ErrUnsupportedVersion)
}

func TestClient_DecryptPrivateKey(t *testing.T) {
	t.Parallel()

	eth := mocks.NewMockBlockchainClient(t, chain.Ethereum, protocol.V0_1_0)
	eth.On("DecryptPrivateKey", `{"crypto":{}}`, "password").Return(chain.PrivateKey("0xkey"), nil).Once()
	c := newTestClient(t, testConfig(), WithMainnet(), WithClientLoader(chainsel.FamilyEVM, loaderFor(t, protocol.V0_1_0, eth)))

	key, err := c.DecryptPrivateKey(t.Context(), chain.Ethereum, `{"crypto":{}}`, "password")
	require.NoError(t, err)
	assert.Equal(t, "0xkey", key.Reveal())
}

func TestClient_ResolveAccount(t *testing.T) {
	t.Parallel()

	account := chain.AccountFromPrivateKey("0xkey")
	eth := mocks.NewMockBlockchainClient(t, chain.Ethereum, protocol.V0_2_0)
	eth.On("ResolveAccount", account).Return(chain.Address("0xAccount"), nil).Once()
	c := newTestClient(t, testConfig(), WithClientLoader(chainsel.FamilyEVM, loaderFor(t, protocol.V0_2_0, eth)))

	address, err := c.ResolveAccount(t.Context(), chain.Ethereum, account)
	require.NoError(t, err)
	assert.Equal(t, chain.Address("0xAccount"), address)
}

func TestClient_inactiveBlockchain(t *testing.T) {
	t.Parallel()

	// The loader is never asked for the inactive blockchain.
	c := newTestClient(t, testConfig(), WithClientLoader(chainsel.FamilySolana, loaderFor(t, protocol.V0_2_0)))

	_, err := c.DecryptPrivateKey(t.Context(), chain.Solana, "keypair", "")
	require.ErrorIs(t, err, chain.ErrBlockchainInactive)
}

func TestClient_RetrieveTokenBalance(t *testing.T) {
	t.Parallel()

	account := chain.AccountFromAddress("0xAccount")
	eth := mocks.NewMockBlockchainClient(t, chain.Ethereum, protocol.V0_2_0)
	eth.On("ReadTokenBalance", mock.Anything, panAddress, account).Return(big.NewInt(250), nil).Once()
	eth.On("ReadTokenDecimals", mock.Anything, panAddress).Return(uint8(2), nil).Once()
	c := newTestClient(t, testConfig(), WithClientLoader(chainsel.FamilyEVM, loaderFor(t, protocol.V0_2_0, eth)))

	balance, err := c.RetrieveTokenBalance(t.Context(), tokens.BalanceRequest{
		Blockchain: chain.Ethereum,
		Account:    account,
		Token:      chain.TokenBySymbol(config.FeeTokenSymbol),
		InMainUnit: true,
	})
	require.NoError(t, err)
	mainUnit, ok := balance.MainUnit()
	require.True(t, ok)
	assert.Equal(t, "2.5", mainUnit.String())
}

func TestClient_FindCheapestServiceNodeBid(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bids", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"fee": 30, "execution_time": 60, "valid_until": 1700000000, "signature": "0xaa"},
			{"fee": 20, "execution_time": 90, "valid_until": 1700000000, "signature": "0xbb"}
		]`))
	}))
	t.Cleanup(srv.Close)

	node := chain.Address("0xNode")
	eth := mocks.NewMockBlockchainClient(t, chain.Ethereum, protocol.V0_2_0)
	eth.On("ReadServiceNodeAddresses", mock.Anything).Return([]chain.Address{node}, nil).Once()
	eth.On("ReadServiceNodeURL", mock.Anything, node).Return(srv.URL, nil).Once()
	c := newTestClient(t, testConfig(), WithClientLoader(chainsel.FamilyEVM, loaderFor(t, protocol.V0_2_0, eth)))

	gotNode, bid, err := c.FindCheapestServiceNodeBid(t.Context(), chain.Ethereum, chain.BNBChain)
	require.NoError(t, err)
	assert.Equal(t, node, gotNode)
	assert.Equal(t, "0xbb", bid.Signature)
	assert.Equal(t, chain.BNBChain, bid.DestinationBlockchain)
}

func TestClient_DeployToken_unavailable(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, testConfig())

	_, err := c.DeployToken(t.Context(), deployments.DeploymentRequest{TokenSymbol: "EXM"})
	require.ErrorIs(t, err, ErrDeploymentsUnavailable)
}

func TestNew_tokenCreatorFromConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.TokenCreator.URL = "https://token-creator.example"

	c := newTestClient(t, cfg)
	assert.NotNil(t, c.deployments)
}
