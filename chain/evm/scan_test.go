package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/protocol"
)

func TestScanWindows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		blocksToSearch uint64
		latest         uint64
		size           uint64
		want           []blockWindow
	}{
		{
			name:           "two full windows",
			blocksToSearch: 10, latest: 20, size: 5,
			want: []blockWindow{{Start: 16, End: 20}, {Start: 11, End: 15}},
		},
		{
			name:           "window larger than search range",
			blocksToSearch: 10, latest: 20, size: 15,
			want: []blockWindow{{Start: 11, End: 20}},
		},
		{
			name:           "last window clamped",
			blocksToSearch: 10, latest: 20, size: 7,
			want: []blockWindow{{Start: 14, End: 20}, {Start: 11, End: 13}},
		},
		{
			name:           "single block windows",
			blocksToSearch: 5, latest: 15, size: 1,
			want: []blockWindow{
				{Start: 15, End: 15}, {Start: 14, End: 14}, {Start: 13, End: 13},
				{Start: 12, End: 12}, {Start: 11, End: 11},
			},
		},
		{
			name:           "single block search",
			blocksToSearch: 1, latest: 15, size: 5,
			want: []blockWindow{{Start: 15, End: 15}},
		},
		{
			name:           "whole history",
			blocksToSearch: 0, latest: 9, size: 4,
			want: []blockWindow{{Start: 6, End: 9}, {Start: 2, End: 5}, {Start: 0, End: 1}},
		},
		{
			name:           "search range beyond genesis",
			blocksToSearch: 50, latest: 3, size: 10,
			want: []blockWindow{{Start: 0, End: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, scanWindows(tt.blocksToSearch, tt.latest, tt.size))
		})
	}
}

func TestTraits_blocksPerQuery(t *testing.T) {
	t.Parallel()

	bnb, ok := TraitsFor(chain.BNBChain)
	require.True(t, ok)
	eth, ok := TraitsFor(chain.Ethereum)
	require.True(t, ok)
	_, ok = TraitsFor(chain.Solana)
	require.False(t, ok)

	assert.Equal(t, uint64(5000), bnb.blocksPerQuery(10000))
	assert.Equal(t, uint64(100), bnb.blocksPerQuery(100))
	assert.Equal(t, uint64(5000), bnb.blocksPerQuery(0))
	assert.Equal(t, uint64(10000), eth.blocksPerQuery(10000))
	assert.Equal(t, uint64(1), eth.blocksPerQuery(0))
}

func TestClient_ReadDestinationTransfer(t *testing.T) {
	t.Parallel()

	c, onchain := newTestClient(t, protocol.V0_2_0)
	hubABI := HubABI(protocol.V0_2_0)
	onchain.latest = 20

	request := func(sourceBlockchain chain.Blockchain, sourceTx string) transferToRequest {
		return transferToRequest{
			SourceBlockchainId:  new(big.Int).SetUint64(sourceBlockchain.ID()),
			SourceTransferId:    big.NewInt(5),
			SourceTransactionId: sourceTx,
			Sender:              "0x00000000000000000000000000000000000000a2",
			Recipient:           testRecipient,
			SourceToken:         "0x00000000000000000000000000000000000000a3",
			DestinationToken:    testToken,
			Amount:              big.NewInt(1000),
			Nonce:               big.NewInt(42),
		}
	}

	match := transferLog(t, hubABI, testHub, 12, common.HexToHash("0x01"), request(chain.BNBChain, "0xsource"))
	removed := transferLog(t, hubABI, testHub, 18, common.HexToHash("0x02"), request(chain.BNBChain, "0xsource"))
	removed.Removed = true
	otherChain := transferLog(t, hubABI, testHub, 19, common.HexToHash("0x03"), request(chain.Avalanche, "0xsource"))
	otherTx := transferLog(t, hubABI, testHub, 13, common.HexToHash("0x04"), request(chain.BNBChain, "0xother"))
	onchain.logs = append(onchain.logs, match, otherTx, removed, otherChain)

	got, err := c.ReadDestinationTransfer(t.Context(), chain.DestinationTransferRequest{
		SourceBlockchain:    chain.BNBChain,
		SourceTransactionID: "0xsource",
		BlocksToSearch:      10,
	})
	require.NoError(t, err)

	assert.Equal(t, []blockWindow{{Start: 16, End: 20}, {Start: 11, End: 15}}, onchain.windows)
	assert.Equal(t, uint64(20), got.LatestBlockNumber)
	assert.Equal(t, uint64(12), got.TransactionBlockNumber)
	assert.Equal(t, common.HexToHash("0x01").Hex(), got.DestinationTransactionID)
	assert.Equal(t, big.NewInt(5), got.SourceTransferID)
	assert.Equal(t, big.NewInt(77), got.DestinationTransferID)
	assert.Equal(t, chain.Address("0x00000000000000000000000000000000000000a2"), got.SenderAddress)
	assert.Equal(t, chain.Address(testRecipient.Hex()), got.RecipientAddress)
	assert.Equal(t, chain.Address("0x00000000000000000000000000000000000000a3"), got.SourceTokenAddress)
	assert.Equal(t, chain.Address(testToken.Hex()), got.DestinationTokenAddress)
	assert.Equal(t, big.NewInt(1000), got.Amount)
	assert.Equal(t, big.NewInt(42), got.ValidatorNonce)
	assert.Equal(t, []chain.Address{chain.Address(common.HexToAddress("0x00000000000000000000000000000000000000a1").Hex())}, got.SignerAddresses)
	assert.Equal(t, []string{"0x0102"}, got.Signatures)
}

func TestClient_ReadDestinationTransferUnknown(t *testing.T) {
	t.Parallel()

	c, onchain := newTestClient(t, protocol.V0_2_0)
	onchain.latest = 20

	_, err := c.ReadDestinationTransfer(t.Context(), chain.DestinationTransferRequest{
		SourceBlockchain:    chain.BNBChain,
		SourceTransactionID: "0xsource",
		BlocksToSearch:      7,
	})
	require.ErrorIs(t, err, chain.ErrUnknownTransfer)
	assert.True(t, chain.IsUnknownTransfer(err))

	var clientErr *chain.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, chain.Ethereum, clientErr.Blockchain)
	assert.Equal(t, []blockWindow{{Start: 16, End: 20}, {Start: 14, End: 15}}, onchain.windows)
}
