package tokens

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/chain/mocks"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/pkg/logger"
	"github.com/pantos-io/client-library/protocol"
)

const (
	ethPan = chain.Address("0xEthPanAddress")
	bnbPan = chain.Address("0xBnbPanAddress")
	ethUsd = chain.Address("0xEthUsdAddress")
)

func testConfig() *config.Config {
	return &config.Config{Blockchains: map[string]config.BlockchainConfig{
		chain.Ethereum.Key(): {Tokens: map[string]string{"pan": ethPan.String(), "usd": ethUsd.String()}},
		chain.BNBChain.Key(): {Tokens: map[string]string{"pan": bnbPan.String()}},
	}}
}

func newTestInteractor(t *testing.T, clients ...*mocks.MockBlockchainClient) *Interactor {
	t.Helper()

	return NewInteractor(mocks.Registry(clients...), testConfig(), logger.Test(t))
}

func TestInteractor_ConvertToMainUnit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		amount   *big.Int
		decimals uint8
		want     string
	}{
		{name: "whole tokens", amount: big.NewInt(5_000_000), decimals: 6, want: "5"},
		{name: "fraction", amount: big.NewInt(1), decimals: 8, want: "0.00000001"},
		{name: "no decimals", amount: big.NewInt(12), decimals: 0, want: "12"},
		{
			name:     "large amount",
			amount:   new(big.Int).Mul(big.NewInt(123456789), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)),
			decimals: 18,
			want:     "123456789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := mocks.NewMockBlockchainClient(t, chain.Ethereum, protocol.V0_2_0)
			client.On("ReadTokenDecimals", mock.Anything, ethPan).Return(tt.decimals, nil).Once()

			got, err := newTestInteractor(t, client).
				ConvertToMainUnit(t.Context(), chain.Ethereum, chain.TokenBySymbol("pan"), tt.amount)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestInteractor_ConvertToSubunit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		amount    string
		decimals  uint8
		want      int64
		wantErrIs error
	}{
		{name: "whole tokens", amount: "5", decimals: 6, want: 5_000_000},
		{name: "fraction", amount: "0.00000001", decimals: 8, want: 1},
		{name: "trailing zeros", amount: "1.500", decimals: 1, want: 15},
		{name: "too precise", amount: "0.000000001", decimals: 8, wantErrIs: ErrPrecisionExceeded},
		{name: "fraction without decimals", amount: "1.5", decimals: 0, wantErrIs: ErrPrecisionExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := mocks.NewMockBlockchainClient(t, chain.Ethereum, protocol.V0_2_0)
			client.On("ReadTokenDecimals", mock.Anything, ethUsd).Return(tt.decimals, nil).Once()

			got, err := newTestInteractor(t, client).
				ConvertToSubunit(t.Context(), chain.Ethereum, chain.TokenByAddress(ethUsd), decimal.RequireFromString(tt.amount))
			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestInteractor_roundTrip(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockBlockchainClient(t, chain.Ethereum, protocol.V0_2_0)
	client.On("ReadTokenDecimals", mock.Anything, ethPan).Return(uint8(8), nil)
	i := newTestInteractor(t, client)
	token := chain.TokenBySymbol("PAN")

	for _, amount := range []int64{1, 7, 99_999_999, 100_000_000, 123_456_789_012} {
		mainUnit, err := i.ConvertToMainUnit(t.Context(), chain.Ethereum, token, big.NewInt(amount))
		require.NoError(t, err)
		subunit, err := i.ConvertToSubunit(t.Context(), chain.Ethereum, token, mainUnit)
		require.NoError(t, err)
		assert.Equal(t, amount, subunit.Int64())
	}
}

func TestInteractor_zeroAndNegativeAmounts(t *testing.T) {
	t.Parallel()

	// The mock has no expectations: any chain read fails the test.
	client := mocks.NewMockBlockchainClient(t, chain.Ethereum, protocol.V0_2_0)
	i := newTestInteractor(t, client)
	token := chain.TokenBySymbol("pan")

	mainUnit, err := i.ConvertToMainUnit(t.Context(), chain.Ethereum, token, big.NewInt(0))
	require.NoError(t, err)
	assert.True(t, mainUnit.IsZero())

	subunit, err := i.ConvertToSubunit(t.Context(), chain.Ethereum, token, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, int64(0), subunit.Int64())

	_, err = i.ConvertToMainUnit(t.Context(), chain.Ethereum, token, big.NewInt(-1))
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = i.ConvertToSubunit(t.Context(), chain.Ethereum, token, decimal.NewFromFloat(-0.5))
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = i.ConvertAmountToSubunit(t.Context(), chain.Ethereum, token, chain.SubunitAmount(big.NewInt(-3)))
	require.ErrorIs(t, err, ErrNegativeAmount)
}

func TestInteractor_ConvertAmountToSubunit(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockBlockchainClient(t, chain.Ethereum, protocol.V0_2_0)
	client.On("ReadTokenDecimals", mock.Anything, ethPan).Return(uint8(2), nil).Once()
	i := newTestInteractor(t, client)
	token := chain.TokenBySymbol("pan")

	got, err := i.ConvertAmountToSubunit(t.Context(), chain.Ethereum, token, chain.SubunitAmount(big.NewInt(42)))
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Int64())

	got, err = i.ConvertAmountToSubunit(t.Context(), chain.Ethereum, token, chain.MainUnitAmount(decimal.RequireFromString("1.25")))
	require.NoError(t, err)
	assert.Equal(t, int64(125), got.Int64())
}

func TestInteractor_FindTokenAddress(t *testing.T) {
	t.Parallel()

	i := newTestInteractor(t)

	got, err := i.FindTokenAddress(chain.Ethereum, "PAN")
	require.NoError(t, err)
	assert.Equal(t, ethPan, got)

	_, err = i.FindTokenAddress(chain.BNBChain, "usd")
	require.ErrorIs(t, err, ErrUnknownTokenSymbol)

	_, err = i.FindTokenAddress(chain.Celo, "pan")
	require.ErrorIs(t, err, chain.ErrBlockchainNotFound)

	got, err = i.ResolveTokenAddress(chain.Celo, chain.TokenByAddress("0xAnything"))
	require.NoError(t, err)
	assert.Equal(t, chain.Address("0xAnything"), got)
}

func TestInteractor_FindTokenAddresses(t *testing.T) {
	t.Parallel()

	t.Run("same blockchain", func(t *testing.T) {
		t.Parallel()

		src, dst, err := newTestInteractor(t).
			FindTokenAddresses(t.Context(), chain.Ethereum, chain.Ethereum, chain.TokenByAddress(ethUsd))
		require.NoError(t, err)
		assert.Equal(t, ethUsd, src)
		assert.Equal(t, ethUsd, dst)
	})

	t.Run("symbol", func(t *testing.T) {
		t.Parallel()

		src, dst, err := newTestInteractor(t).
			FindTokenAddresses(t.Context(), chain.Ethereum, chain.BNBChain, chain.TokenBySymbol("pan"))
		require.NoError(t, err)
		assert.Equal(t, ethPan, src)
		assert.Equal(t, bnbPan, dst)
	})

	t.Run("address via external token registry", func(t *testing.T) {
		t.Parallel()

		client := mocks.NewMockBlockchainClient(t, chain.Ethereum, protocol.V0_2_0)
		client.On("ReadExternalTokenAddress", mock.Anything, ethUsd, chain.BNBChain).
			Return(chain.Address("0xBnbUsdAddress"), nil).Once()

		src, dst, err := newTestInteractor(t, client).
			FindTokenAddresses(t.Context(), chain.Ethereum, chain.BNBChain, chain.TokenByAddress(ethUsd))
		require.NoError(t, err)
		assert.Equal(t, ethUsd, src)
		assert.Equal(t, chain.Address("0xBnbUsdAddress"), dst)
	})

	t.Run("inactive external token", func(t *testing.T) {
		t.Parallel()

		client := mocks.NewMockBlockchainClient(t, chain.Ethereum, protocol.V0_2_0)
		client.On("ReadExternalTokenAddress", mock.Anything, ethUsd, chain.BNBChain).
			Return(chain.Address(""), chain.NewClientError(chain.Ethereum, "read external token", chain.ErrInactiveRecord)).Once()

		_, _, err := newTestInteractor(t, client).
			FindTokenAddresses(t.Context(), chain.Ethereum, chain.BNBChain, chain.TokenByAddress(ethUsd))
		require.ErrorIs(t, err, chain.ErrInactiveRecord)
	})

	t.Run("unknown symbol on destination", func(t *testing.T) {
		t.Parallel()

		_, _, err := newTestInteractor(t).
			FindTokenAddresses(t.Context(), chain.Ethereum, chain.BNBChain, chain.TokenBySymbol("usd"))
		require.ErrorIs(t, err, ErrUnknownTokenSymbol)
	})
}

func TestInteractor_RetrieveTokenBalance(t *testing.T) {
	t.Parallel()

	account := chain.AccountFromAddress("0xOwner")

	t.Run("subunit", func(t *testing.T) {
		t.Parallel()

		client := mocks.NewMockBlockchainClient(t, chain.BNBChain, protocol.V0_2_0)
		client.On("ReadTokenBalance", mock.Anything, bnbPan, account).Return(big.NewInt(250), nil).Once()

		got, err := newTestInteractor(t, client).RetrieveTokenBalance(t.Context(), BalanceRequest{
			Blockchain: chain.BNBChain,
			Account:    account,
			Token:      chain.TokenBySymbol("pan"),
		})
		require.NoError(t, err)
		subunit, ok := got.Subunit()
		require.True(t, ok)
		assert.Equal(t, int64(250), subunit.Int64())
	})

	t.Run("main unit", func(t *testing.T) {
		t.Parallel()

		client := mocks.NewMockBlockchainClient(t, chain.BNBChain, protocol.V0_2_0)
		client.On("ReadTokenBalance", mock.Anything, bnbPan, account).Return(big.NewInt(250), nil).Once()
		client.On("ReadTokenDecimals", mock.Anything, bnbPan).Return(uint8(2), nil).Once()

		got, err := newTestInteractor(t, client).RetrieveTokenBalance(t.Context(), BalanceRequest{
			Blockchain: chain.BNBChain,
			Account:    account,
			Token:      chain.TokenBySymbol("pan"),
			InMainUnit: true,
		})
		require.NoError(t, err)
		mainUnit, ok := got.MainUnit()
		require.True(t, ok)
		assert.Equal(t, "2.5", mainUnit.String())
	})

	t.Run("read failure", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("rpc down")
		client := mocks.NewMockBlockchainClient(t, chain.BNBChain, protocol.V0_2_0)
		client.On("ReadTokenBalance", mock.Anything, bnbPan, account).Return(nil, cause).Once()

		_, err := newTestInteractor(t, client).RetrieveTokenBalance(t.Context(), BalanceRequest{
			Blockchain: chain.BNBChain,
			Account:    account,
			Token:      chain.TokenBySymbol("pan"),
		})
		require.ErrorIs(t, err, cause)
	})
}
