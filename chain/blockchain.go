package chain

import (
	"fmt"
	"strings"

	chainsel "github.com/smartcontractkit/chain-selectors"
)

// Blockchain identifies a blockchain supported by the Pantos protocol. The numeric value is
// the Pantos blockchain ID that is embedded in signed transfer requests and must never change.
type Blockchain int

const (
	Ethereum  Blockchain = 0
	BNBChain  Blockchain = 1
	Avalanche Blockchain = 3
	Solana    Blockchain = 4
	Polygon   Blockchain = 5
	Cronos    Blockchain = 6
	Sonic     Blockchain = 7
	Celo      Blockchain = 8
)

type blockchainInfo struct {
	name   string
	key    string
	family string
}

// ID 2 belonged to a retired blockchain and stays unassigned.
var blockchains = map[Blockchain]blockchainInfo{
	Ethereum:  {name: "Ethereum", key: "ethereum", family: chainsel.FamilyEVM},
	BNBChain:  {name: "BNB Chain", key: "bnb_chain", family: chainsel.FamilyEVM},
	Avalanche: {name: "Avalanche", key: "avalanche", family: chainsel.FamilyEVM},
	Solana:    {name: "Solana", key: "solana", family: chainsel.FamilySolana},
	Polygon:   {name: "Polygon", key: "polygon", family: chainsel.FamilyEVM},
	Cronos:    {name: "Cronos", key: "cronos", family: chainsel.FamilyEVM},
	Sonic:     {name: "Sonic", key: "sonic", family: chainsel.FamilyEVM},
	Celo:      {name: "Celo", key: "celo", family: chainsel.FamilyEVM},
}

// Blockchains returns all supported blockchains ordered by ID.
func Blockchains() []Blockchain {
	return []Blockchain{Ethereum, BNBChain, Avalanche, Solana, Polygon, Cronos, Sonic, Celo}
}

// ParseBlockchain returns the blockchain with the given configuration key or name. The lookup
// is case-insensitive, so "bnb_chain", "BNB_CHAIN" and "BNB Chain" all resolve to BNBChain.
func ParseBlockchain(s string) (Blockchain, error) {
	for b, info := range blockchains {
		if strings.EqualFold(s, info.key) || strings.EqualFold(s, info.name) {
			return b, nil
		}
	}

	return 0, fmt.Errorf("unknown blockchain %q", s)
}

// IsValid reports whether b is a supported blockchain.
func (b Blockchain) IsValid() bool {
	_, ok := blockchains[b]
	return ok
}

// ID returns the Pantos blockchain ID.
func (b Blockchain) ID() uint64 {
	return uint64(b)
}

// Name returns the human readable name of the blockchain.
func (b Blockchain) Name() string {
	if info, ok := blockchains[b]; ok {
		return info.name
	}

	return fmt.Sprintf("Blockchain(%d)", int(b))
}

// Key returns the lowercase key of the blockchain used in configuration files.
func (b Blockchain) Key() string {
	return blockchains[b].key
}

// Family returns the chain family of the blockchain, e.g. "evm" or "solana".
func (b Blockchain) Family() string {
	return blockchains[b].family
}

// String returns the blockchain name and ID "<name> (<id>)".
func (b Blockchain) String() string {
	return fmt.Sprintf("%s (%d)", b.Name(), int(b))
}
