package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pantos-io/client-library/chain"
)

// OnchainClient is the subset of an EVM node API the Pantos client reads from.
// For EVM specifically we can use existing geth interfaces to abstract chain clients.
type OnchainClient interface {
	bind.ContractCaller

	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Traits holds what differs between the EVM blockchains served by Client.
type Traits struct {
	Blockchain chain.Blockchain
	// MaxBlocksPerQuery caps the block range of a single eth_getLogs request on blockchains
	// whose public nodes reject larger ranges. Zero means no cap.
	MaxBlocksPerQuery uint64
}

var traits = map[chain.Blockchain]Traits{
	chain.Ethereum:  {Blockchain: chain.Ethereum},
	chain.BNBChain:  {Blockchain: chain.BNBChain, MaxBlocksPerQuery: 5000},
	chain.Avalanche: {Blockchain: chain.Avalanche, MaxBlocksPerQuery: 2048},
	chain.Polygon:   {Blockchain: chain.Polygon},
	chain.Cronos:    {Blockchain: chain.Cronos, MaxBlocksPerQuery: 2000},
	chain.Sonic:     {Blockchain: chain.Sonic},
	chain.Celo:      {Blockchain: chain.Celo},
}

// TraitsFor returns the traits of an EVM blockchain.
func TraitsFor(blockchain chain.Blockchain) (Traits, bool) {
	t, ok := traits[blockchain]
	return t, ok
}

// blocksPerQuery returns the configured window size capped by the blockchain's limit.
func (t Traits) blocksPerQuery(configured uint64) uint64 {
	if t.MaxBlocksPerQuery > 0 && (configured == 0 || configured > t.MaxBlocksPerQuery) {
		return t.MaxBlocksPerQuery
	}
	if configured == 0 {
		return 1
	}

	return configured
}
