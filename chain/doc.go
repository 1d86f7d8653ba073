/*
Package chain provides the blockchain abstraction layer of the Pantos client library.

# Overview

Every blockchain supported by the Pantos protocol is served by a BlockchainClient. A client
signs off-chain transfer authorizations and reads the on-chain state the library needs: token
balances and decimals, the external token registry, the service node registry and executed
transfers on the destination blockchain.

EVM blockchains share one implementation in package chain/evm which is parameterized per
blockchain. Solana is implemented independently in package chain/solana.

# Registry

Clients are created lazily by a Registry, one per blockchain and protocol version:

	registry := chain.NewRegistry(
		map[chain.Blockchain]bool{chain.Ethereum: true},
		map[string]chain.ClientLoader{chainsel.FamilyEVM: evm.NewLoader(cfg, lggr)},
		lggr,
	)

	client, err := registry.Client(ctx, chain.Ethereum, nil) // latest protocol version

Concurrent callers asking for the same blockchain and version share a single client, which is
created exactly once.

# Value types

Address, PrivateKey, AccountID, TokenID, Amount and ServiceNodeBid are plain values. A
PrivateKey never prints its key material; AccountID and TokenID are explicit unions instead of
loosely typed strings.

# Errors

Client operations fail with a *ClientError wrapping the cause. ErrUnknownTransfer marks a
transfer that is not (yet) visible on the destination blockchain and is an expected state
rather than a failure.
*/
package chain
