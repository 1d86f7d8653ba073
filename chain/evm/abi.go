package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/pantos-io/client-library/protocol"
)

const (
	methodGetServiceNodes        = "getServiceNodes"
	methodGetServiceNodeRecord   = "getServiceNodeRecord"
	methodGetExternalTokenRecord = "getExternalTokenRecord"
	methodIsValidSenderNonce     = "isValidSenderNonce"
	methodDecimals               = "decimals"
	methodBalanceOf              = "balanceOf"
	eventTransferToSucceeded     = "TransferToSucceeded"
)

const hubABICommon = `
  {"type":"function","name":"getServiceNodes","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"getExternalTokenRecord","stateMutability":"view",
   "inputs":[{"name":"token","type":"address"},{"name":"blockchainId","type":"uint256"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"active","type":"bool"},{"name":"externalToken","type":"string"}]}]},
  {"type":"function","name":"isValidSenderNonce","stateMutability":"view",
   "inputs":[{"name":"sender","type":"address"},{"name":"nonce","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"event","name":"TransferToSucceeded","anonymous":false,"inputs":[
   {"name":"destinationTransferId","type":"uint256","indexed":false},
   {"name":"request","type":"tuple","indexed":false,"components":[
     {"name":"sourceBlockchainId","type":"uint256"},
     {"name":"sourceTransferId","type":"uint256"},
     {"name":"sourceTransactionId","type":"string"},
     {"name":"sender","type":"string"},
     {"name":"recipient","type":"address"},
     {"name":"sourceToken","type":"string"},
     {"name":"destinationToken","type":"address"},
     {"name":"amount","type":"uint256"},
     {"name":"nonce","type":"uint256"}]},
   {"name":"signerAddresses","type":"address[]","indexed":false},
   {"name":"signatures","type":"bytes[]","indexed":false}]}`

// The 0.1 hub stores six fields per service node record, later revisions five.
const hubABIV0_1 = `[` + hubABICommon + `,
  {"type":"function","name":"getServiceNodeRecord","stateMutability":"view",
   "inputs":[{"name":"serviceNode","type":"address"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"active","type":"bool"},{"name":"url","type":"string"},
     {"name":"deposit","type":"uint256"},{"name":"withdrawalAddress","type":"address"},
     {"name":"withdrawalTime","type":"uint256"},{"name":"unbondingPeriod","type":"uint256"}]}]}]`

const hubABIV0_2 = `[` + hubABICommon + `,
  {"type":"function","name":"getServiceNodeRecord","stateMutability":"view",
   "inputs":[{"name":"serviceNode","type":"address"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"active","type":"bool"},{"name":"url","type":"string"},
     {"name":"deposit","type":"uint256"},{"name":"withdrawalAddress","type":"address"},
     {"name":"withdrawalTime","type":"uint256"}]}]}]`

const tokenABI = `[
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]}]`

var (
	parsedHubABIV0_1 = mustParseABI(hubABIV0_1)
	parsedHubABIV0_2 = mustParseABI(hubABIV0_2)
	parsedTokenABI   = mustParseABI(tokenABI)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid contract ABI: %v", err))
	}

	return parsed
}

// HubABI returns the hub contract ABI of a protocol version.
func HubABI(version *semver.Version) abi.ABI {
	if protocol.Scheme(version) == protocol.SchemeLegacyKeccak {
		return parsedHubABIV0_1
	}

	return parsedHubABIV0_2
}

// TokenABI returns the ABI of the token contract functions read by the client.
func TokenABI() abi.ABI {
	return parsedTokenABI
}

type serviceNodeRecordV0_1 struct {
	Active            bool
	Url               string //nolint:revive // Matches the ABI component name
	Deposit           *big.Int
	WithdrawalAddress common.Address
	WithdrawalTime    *big.Int
	UnbondingPeriod   *big.Int
}

type serviceNodeRecordV0_2 struct {
	Active            bool
	Url               string //nolint:revive // Matches the ABI component name
	Deposit           *big.Int
	WithdrawalAddress common.Address
	WithdrawalTime    *big.Int
}

type externalTokenRecord struct {
	Active        bool
	ExternalToken string
}

type transferToRequest struct {
	SourceBlockchainId  *big.Int //nolint:revive // Matches the ABI component name
	SourceTransferId    *big.Int //nolint:revive // Matches the ABI component name
	SourceTransactionId string   //nolint:revive // Matches the ABI component name
	Sender              string
	Recipient           common.Address
	SourceToken         string
	DestinationToken    common.Address
	Amount              *big.Int
	Nonce               *big.Int
}

type transferToSucceeded struct {
	DestinationTransferId *big.Int //nolint:revive // Matches the ABI argument name
	Request               transferToRequest
	SignerAddresses       []common.Address
	Signatures            [][]byte
}
