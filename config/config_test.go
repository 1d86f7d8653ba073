package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/protocol"
)

const testdataFile = "testdata/client-library.yml"

func TestLoadFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFile(testdataFile)
	require.NoError(t, err)

	assert.Equal(t, "https://token-creator.pantos.io", cfg.TokenCreator.URL)
	assert.Equal(t, 2500*time.Millisecond, cfg.ServiceNodes.TimeoutDuration())

	eth, err := cfg.Blockchain(chain.Ethereum)
	require.NoError(t, err)
	assert.True(t, eth.IsActive())
	assert.Equal(t, []string{"https://eth.example.org", "https://eth-backup.example.org"}, eth.Providers())
	assert.Equal(t, uint64(2000), eth.BlocksPerQuery)
	assert.Equal(t, uint64(12), eth.Confirmations)

	pan, ok := eth.TokenAddress("PAN")
	require.True(t, ok)
	assert.Equal(t, "0x7EFaEf62fDdCCa950418312c6C91Aef321375A00", pan)

	_, err = cfg.Blockchain(chain.Solana)
	require.ErrorIs(t, err, chain.ErrBlockchainNotFound)
}

func TestConfig_ActiveBlockchains(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFile(testdataFile)
	require.NoError(t, err)

	assert.Equal(t, map[chain.Blockchain]bool{
		chain.Ethereum: true,
		chain.BNBChain: true,
		chain.Celo:     false,
	}, cfg.ActiveBlockchains())
}

func TestConfig_ProtocolVersion(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFile(testdataFile)
	require.NoError(t, err)

	v, err := cfg.ProtocolVersion(NetworkTypeMainnet)
	require.NoError(t, err)
	assert.True(t, v.Equal(protocol.V0_2_0))

	v, err = cfg.ProtocolVersion(NetworkTypeTestnet)
	require.NoError(t, err)
	assert.True(t, v.Equal(protocol.V0_1_0))

	_, err = cfg.ProtocolVersion("devnet")
	require.Error(t, err)

	cfg.Protocol.Mainnet = "7.0.0"
	_, err = cfg.ProtocolVersion(NetworkTypeMainnet)
	require.ErrorIs(t, err, protocol.ErrUnsupportedVersion)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			Protocol: ProtocolConfig{Mainnet: "0.2.0", Testnet: "0.2.0"},
			Blockchains: map[string]BlockchainConfig{
				"polygon": {
					Provider:         "https://polygon.example.org",
					AverageBlockTime: 2,
					BlocksPerQuery:   100,
					ChainID:          137,
					Confirmations:    64,
					Hub:              "0x01",
					Forwarder:        "0x02",
					Tokens:           map[string]string{"pan": "0x03"},
				},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "malformed protocol version",
			mutate:  func(c *Config) { c.Protocol.Mainnet = "0.2" },
			wantErr: []string{"protocol.mainnet"},
		},
		{
			name:    "unknown blockchain key",
			mutate:  func(c *Config) { c.Blockchains["fantom"] = c.Blockchains["polygon"] },
			wantErr: []string{`blockchains.fantom: unknown blockchain "fantom"`},
		},
		{
			name: "missing blockchain fields are all reported",
			mutate: func(c *Config) {
				c.Blockchains["polygon"] = BlockchainConfig{Tokens: map[string]string{"PAN": "0x03"}}
			},
			wantErr: []string{
				"provider is required",
				"blocks per query must be at least 1",
				"chain ID is required",
				"hub is required",
				"forwarder is required",
				`token symbol "PAN" must be lowercase alphanumeric`,
			},
		},
		{
			name: "solana does not need a chain ID",
			mutate: func(c *Config) {
				bc := c.Blockchains["polygon"]
				bc.ChainID = 0
				c.Blockchains["solana"] = bc
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			for _, want := range tt.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("blockchains: [unterminated"))
	require.ErrorContains(t, err, "failed to parse configuration")
}

//nolint:paralleltest // Uses t.Setenv
func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PANTOS_CLIENT_LIBRARY_TOKEN_CREATOR_URL", "https://override.example.org")
	t.Setenv("PANTOS_CLIENT_LIBRARY_ETHEREUM_PROVIDER", "https://eth-override.example.org")

	cfg, err := Load(testdataFile)
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.org", cfg.TokenCreator.URL)
	eth, err := cfg.Blockchain(chain.Ethereum)
	require.NoError(t, err)
	assert.Equal(t, "https://eth-override.example.org", eth.Provider)
	assert.Equal(t, uint64(1), eth.ChainID)

	celo, err := cfg.Blockchain(chain.Celo)
	require.NoError(t, err)
	assert.False(t, celo.IsActive())
}

//nolint:paralleltest // Uses t.Setenv
func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("PANTOS_CLIENT_LIBRARY_PROTOCOL_MAINNET", "0.2.0")
	t.Setenv("PANTOS_CLIENT_LIBRARY_PROTOCOL_TESTNET", "0.2.0")
	t.Setenv("PANTOS_CLIENT_LIBRARY_TOKEN_CREATOR_URL", "https://env.example.org")

	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.org", cfg.TokenCreator.URL)
	assert.Empty(t, cfg.Blockchains)
}

func TestLoad_InvalidFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("protocol:\n  mainnet: 1\n"), 0o600))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
