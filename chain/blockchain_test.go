package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chainsel "github.com/smartcontractkit/chain-selectors"
)

func TestBlockchain_IDsAreStable(t *testing.T) {
	t.Parallel()

	want := map[Blockchain]uint64{
		Ethereum: 0, BNBChain: 1, Avalanche: 3, Solana: 4,
		Polygon: 5, Cronos: 6, Sonic: 7, Celo: 8,
	}
	for b, id := range want {
		assert.Equal(t, id, b.ID(), b.Name())
		assert.True(t, b.IsValid())
	}
	assert.False(t, Blockchain(2).IsValid())
	assert.Len(t, Blockchains(), len(want))
}

func TestBlockchain_Family(t *testing.T) {
	t.Parallel()

	for _, b := range Blockchains() {
		if b == Solana {
			assert.Equal(t, chainsel.FamilySolana, b.Family())
			continue
		}
		assert.Equal(t, chainsel.FamilyEVM, b.Family(), b.Name())
	}
}

func TestParseBlockchain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		want    Blockchain
		wantErr bool
	}{
		{name: "config key", give: "bnb_chain", want: BNBChain},
		{name: "upper case key", give: "AVALANCHE", want: Avalanche},
		{name: "display name", give: "BNB Chain", want: BNBChain},
		{name: "unknown", give: "fantom", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseBlockchain(tt.give)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBlockchain_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Sonic (7)", Sonic.String())
	assert.Equal(t, "sonic", Sonic.Key())
	assert.Equal(t, "Blockchain(2)", Blockchain(2).Name())
}
