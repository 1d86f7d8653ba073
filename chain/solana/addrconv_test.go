package solana

import (
	"testing"

	sollib "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantos-io/client-library/chain"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		address       string
		shouldSucceed bool
		description   string
	}{
		{
			name:          "valid token program address",
			address:       "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
			shouldSucceed: true,
			description:   "should parse token program address",
		},
		{
			name:          "invalid - non-base58 string",
			address:       "invalid",
			shouldSucceed: false,
			description:   "should reject non-base58 address string",
		},
		{
			name:          "invalid - empty string",
			address:       "",
			shouldSucceed: false,
			description:   "should reject empty address string",
		},
		{
			name:          "invalid - invalid base58 characters",
			address:       "InvalidBase58Characters!",
			shouldSucceed: false,
			description:   "should reject address with invalid base58 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := ParseAddress(tt.address)
			if tt.shouldSucceed {
				require.NoError(t, err, tt.description)
				assert.Equal(t, tt.address, result.String())
			} else {
				require.Error(t, err, tt.description)
			}
		})
	}
}

func TestIsValidRecipientAddress(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidRecipientAddress("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"))
	assert.False(t, IsValidRecipientAddress("11111111111111111111111111111111"), "zero key")
	assert.False(t, IsValidRecipientAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"))
	assert.False(t, IsValidRecipientAddress(""))
}

func TestAddressFromPrivateKey(t *testing.T) {
	t.Parallel()

	key, err := sollib.NewRandomPrivateKey()
	require.NoError(t, err)

	got, err := AddressFromPrivateKey(chain.PrivateKey(key.String()))
	require.NoError(t, err)
	assert.Equal(t, chain.Address(key.PublicKey().String()), got)

	_, err = AddressFromPrivateKey("not a key")
	require.EqualError(t, err, "invalid private key")
}
