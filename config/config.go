// Package config loads and validates the client library configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/protocol"
)

// DefaultFileName is the conventional name of the configuration file.
const DefaultFileName = "client-library.yml"

// FeeTokenSymbol is the symbol of the token service node fees are paid in.
const FeeTokenSymbol = "pan"

// DefaultServiceNodeTimeout is the bid request timeout used when none is configured.
const DefaultServiceNodeTimeout = 10 * time.Second

var ErrInvalidConfig = errors.New("invalid configuration")

// NetworkType represents the type of network, which can either be mainnet or testnet.
type NetworkType string

const (
	NetworkTypeMainnet NetworkType = "mainnet"
	NetworkTypeTestnet NetworkType = "testnet"
)

// ProtocolConfig holds the Pantos protocol version used per network type.
type ProtocolConfig struct {
	Mainnet string `mapstructure:"mainnet" yaml:"mainnet"`
	Testnet string `mapstructure:"testnet" yaml:"testnet"`
}

// TokenCreatorConfig is the configuration of the token creator service used for deployments.
type TokenCreatorConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// ServiceNodesConfig is the configuration for talking to service nodes.
type ServiceNodesConfig struct {
	Timeout float64 `mapstructure:"timeout" yaml:"timeout"` // Bid request timeout in seconds
}

// TimeoutDuration returns the bid request timeout, falling back to DefaultServiceNodeTimeout.
func (c ServiceNodesConfig) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return DefaultServiceNodeTimeout
	}

	return time.Duration(c.Timeout * float64(time.Second))
}

// BlockchainConfig is the configuration of a single blockchain.
type BlockchainConfig struct {
	Active            *bool             `mapstructure:"active" yaml:"active,omitempty"`                           // Defaults to true
	Provider          string            `mapstructure:"provider" yaml:"provider"`                                 // Primary RPC endpoint
	FallbackProviders []string          `mapstructure:"fallback_providers" yaml:"fallback_providers,omitempty"`   // RPC endpoints tried in order when the provider fails
	AverageBlockTime  uint64            `mapstructure:"average_block_time" yaml:"average_block_time"`             // Seconds
	BlocksPerQuery    uint64            `mapstructure:"blocks_per_query" yaml:"blocks_per_query"`                 // Window size of event log queries
	ChainID           uint64            `mapstructure:"chain_id" yaml:"chain_id"`                                 // Native chain ID, used for EIP-712 domains
	Confirmations     uint64            `mapstructure:"confirmations" yaml:"confirmations"`                       // Blocks until a transfer is final
	Hub               string            `mapstructure:"hub" yaml:"hub"`                                           // Pantos hub contract address
	Forwarder         string            `mapstructure:"forwarder" yaml:"forwarder"`                               // Pantos forwarder contract address
	Tokens            map[string]string `mapstructure:"tokens" yaml:"tokens"`                                     // Token addresses keyed by lowercase symbol
}

// IsActive reports whether the blockchain is active.
func (c BlockchainConfig) IsActive() bool {
	return c.Active == nil || *c.Active
}

// Providers returns the primary provider followed by the fallback providers.
func (c BlockchainConfig) Providers() []string {
	return append([]string{c.Provider}, c.FallbackProviders...)
}

// TokenAddress returns the configured address of the token with the given symbol.
func (c BlockchainConfig) TokenAddress(symbol string) (string, bool) {
	address, ok := c.Tokens[strings.ToLower(symbol)]
	return address, ok
}

var tokenSymbolRegex = regexp.MustCompile(`^[a-z0-9]+$`)

// Validate ensures the blockchain configuration has all required fields.
func (c BlockchainConfig) Validate(family string) error {
	var errs []error
	if c.Provider == "" {
		errs = append(errs, errors.New("provider is required"))
	}
	if c.AverageBlockTime == 0 {
		errs = append(errs, errors.New("average block time is required"))
	}
	if c.BlocksPerQuery < 1 {
		errs = append(errs, errors.New("blocks per query must be at least 1"))
	}
	if family == chainsel.FamilyEVM && c.ChainID == 0 {
		errs = append(errs, errors.New("chain ID is required"))
	}
	if c.Hub == "" {
		errs = append(errs, errors.New("hub is required"))
	}
	if c.Forwarder == "" {
		errs = append(errs, errors.New("forwarder is required"))
	}
	if len(c.Tokens) == 0 {
		errs = append(errs, errors.New("at least one token is required"))
	}
	for symbol := range c.Tokens {
		if !tokenSymbolRegex.MatchString(symbol) {
			errs = append(errs, fmt.Errorf("token symbol %q must be lowercase alphanumeric", symbol))
		}
	}

	return errors.Join(errs...)
}

// Config wraps the entire configuration of the client library.
type Config struct {
	Protocol     ProtocolConfig              `mapstructure:"protocol" yaml:"protocol"`
	TokenCreator TokenCreatorConfig          `mapstructure:"token_creator" yaml:"token_creator"`
	ServiceNodes ServiceNodesConfig          `mapstructure:"service_nodes" yaml:"service_nodes"`
	Blockchains  map[string]BlockchainConfig `mapstructure:"blockchains" yaml:"blockchains"` // Keyed by blockchain key, e.g. "bnb_chain"
}

// Validate ensures the configuration is complete. All problems are reported at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := semver.StrictNewVersion(c.Protocol.Mainnet); err != nil {
		errs = append(errs, fmt.Errorf("protocol.mainnet: %w", err))
	}
	if _, err := semver.StrictNewVersion(c.Protocol.Testnet); err != nil {
		errs = append(errs, fmt.Errorf("protocol.testnet: %w", err))
	}
	if c.ServiceNodes.Timeout < 0 {
		errs = append(errs, errors.New("service_nodes.timeout must not be negative"))
	}

	keys := make([]string, 0, len(c.Blockchains))
	for key := range c.Blockchains {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		blockchain, err := chain.ParseBlockchain(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("blockchains.%s: %w", key, err))
			continue
		}
		if err := c.Blockchains[key].Validate(blockchain.Family()); err != nil {
			errs = append(errs, fmt.Errorf("blockchains.%s: %w", key, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

// Blockchain returns the configuration of a blockchain.
func (c *Config) Blockchain(blockchain chain.Blockchain) (BlockchainConfig, error) {
	bc, ok := c.Blockchains[blockchain.Key()]
	if !ok {
		return BlockchainConfig{}, fmt.Errorf("%w: %s is not configured", chain.ErrBlockchainNotFound, blockchain.Name())
	}

	return bc, nil
}

// ActiveBlockchains maps every configured blockchain to its active flag.
func (c *Config) ActiveBlockchains() map[chain.Blockchain]bool {
	active := make(map[chain.Blockchain]bool, len(c.Blockchains))
	for key, bc := range c.Blockchains {
		blockchain, err := chain.ParseBlockchain(key)
		if err != nil {
			continue
		}
		active[blockchain] = bc.IsActive()
	}

	return active
}

// ProtocolVersion returns the supported protocol version configured for the network type.
func (c *Config) ProtocolVersion(network NetworkType) (*semver.Version, error) {
	switch network {
	case NetworkTypeMainnet:
		return protocol.Parse(c.Protocol.Mainnet)
	case NetworkTypeTestnet:
		return protocol.Parse(c.Protocol.Testnet)
	default:
		return nil, fmt.Errorf("unknown network type %q", network)
	}
}

// Load loads the config from the file path and applies environment variable overrides.
// If the file does not exist the config is built from environment variables only.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filePath)

	// Bind environment variables
	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	// If the config file exists, we continue to read it, otherwise we fallback to using
	// environment variables
	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// Parse parses a YAML configuration document and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return cfg, cfg.Validate()
}

// LoadFile reads and parses a YAML configuration file without environment overrides.
func LoadFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PANTOS_CLIENT_LIBRARY_"

// envBindings maps configuration keys to the environment variables that can provide their
// value. Per blockchain provider bindings are added by blockchainEnvBindings.
var envBindings = map[string][]string{
	"protocol.mainnet":      {EnvPrefix + "PROTOCOL_MAINNET"},
	"protocol.testnet":      {EnvPrefix + "PROTOCOL_TESTNET"},
	"token_creator.url":     {EnvPrefix + "TOKEN_CREATOR_URL"},
	"service_nodes.timeout": {EnvPrefix + "SERVICE_NODES_TIMEOUT"},
}

// blockchainEnvBindings returns the bindings of the provider and hub of every blockchain,
// e.g. PANTOS_CLIENT_LIBRARY_BNB_CHAIN_PROVIDER.
func blockchainEnvBindings() map[string][]string {
	bindings := make(map[string][]string)
	for _, b := range chain.Blockchains() {
		envKey := EnvPrefix + strings.ToUpper(b.Key())
		bindings["blockchains."+b.Key()+".provider"] = []string{envKey + "_PROVIDER"}
		bindings["blockchains."+b.Key()+".hub"] = []string{envKey + "_HUB"}
		bindings["blockchains."+b.Key()+".forwarder"] = []string{envKey + "_FORWARDER"}
	}

	return bindings
}

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	bindings := blockchainEnvBindings()
	for key, envs := range envBindings {
		bindings[key] = envs
	}

	for key, envs := range bindings {
		// Prepend the config key to the start of the arguments
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
