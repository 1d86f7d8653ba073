package chain

import (
	"fmt"
	"io"
	"math/big"

	"github.com/shopspring/decimal"
)

// Address is a chain native account or contract address. Equality is plain string equality,
// so EVM addresses are expected in their checksummed form.
type Address string

func (a Address) String() string { return string(a) }

const redacted = "<redacted>"

// PrivateKey is an unencrypted private key. It formats as "<redacted>" with every fmt verb so
// it cannot leak through logs or error messages; use Reveal to obtain the key material.
type PrivateKey string

// Reveal returns the raw key material.
func (k PrivateKey) Reveal() string { return string(k) }

func (k PrivateKey) String() string { return redacted }

func (k PrivateKey) GoString() string { return redacted }

func (k PrivateKey) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, redacted)
}

func (k PrivateKey) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

type accountKind int

const (
	accountAddress accountKind = iota + 1
	accountPrivateKey
)

// AccountID identifies a blockchain account either by its address or by its private key.
// A chain client resolves it to an address with BlockchainClient.ResolveAccount.
type AccountID struct {
	kind       accountKind
	address    Address
	privateKey PrivateKey
}

// AccountFromAddress returns an AccountID holding an address.
func AccountFromAddress(address Address) AccountID {
	return AccountID{kind: accountAddress, address: address}
}

// AccountFromPrivateKey returns an AccountID holding a private key.
func AccountFromPrivateKey(key PrivateKey) AccountID {
	return AccountID{kind: accountPrivateKey, privateKey: key}
}

// Address returns the account address if the AccountID holds one.
func (a AccountID) Address() (Address, bool) {
	return a.address, a.kind == accountAddress
}

// PrivateKey returns the private key if the AccountID holds one.
func (a AccountID) PrivateKey() (PrivateKey, bool) {
	return a.privateKey, a.kind == accountPrivateKey
}

func (a AccountID) String() string {
	switch a.kind {
	case accountAddress:
		return a.address.String()
	case accountPrivateKey:
		return "private key " + redacted
	default:
		return "<empty account>"
	}
}

// ResolveAccount returns the address held by account, deriving it with derive if the
// account is identified by a private key.
func ResolveAccount(account AccountID, derive func(PrivateKey) (Address, error)) (Address, error) {
	switch account.kind {
	case accountAddress:
		return account.address, nil
	case accountPrivateKey:
		return derive(account.privateKey)
	default:
		return "", fmt.Errorf("empty account identifier")
	}
}

// TokenID identifies a token either by its configured symbol or by its address.
type TokenID struct {
	symbol  string
	address Address
}

// TokenBySymbol returns a TokenID holding a token symbol, e.g. "pan".
func TokenBySymbol(symbol string) TokenID {
	return TokenID{symbol: symbol}
}

// TokenByAddress returns a TokenID holding a token address.
func TokenByAddress(address Address) TokenID {
	return TokenID{address: address}
}

// Symbol returns the token symbol if the TokenID holds one.
func (t TokenID) Symbol() (string, bool) {
	return t.symbol, t.symbol != ""
}

// Address returns the token address if the TokenID holds one.
func (t TokenID) Address() (Address, bool) {
	return t.address, t.address != ""
}

func (t TokenID) String() string {
	if t.symbol != "" {
		return t.symbol
	}

	return t.address.String()
}

// Amount is a token amount given either in the token's smallest subunit or in its main unit.
type Amount struct {
	subunit    *big.Int
	mainUnit   decimal.Decimal
	inMainUnit bool
}

// SubunitAmount returns an Amount in the token's smallest subunit.
func SubunitAmount(v *big.Int) Amount {
	return Amount{subunit: new(big.Int).Set(v)}
}

// MainUnitAmount returns an Amount in the token's main unit.
func MainUnitAmount(v decimal.Decimal) Amount {
	return Amount{mainUnit: v, inMainUnit: true}
}

// Subunit returns a copy of the subunit amount if the Amount is given in subunits.
func (a Amount) Subunit() (*big.Int, bool) {
	if a.inMainUnit || a.subunit == nil {
		return nil, false
	}

	return new(big.Int).Set(a.subunit), true
}

// MainUnit returns the main unit amount if the Amount is given in main units.
func (a Amount) MainUnit() (decimal.Decimal, bool) {
	return a.mainUnit, a.inMainUnit
}

// IsMainUnit reports whether the Amount is given in main units.
func (a Amount) IsMainUnit() bool {
	return a.inMainUnit
}

func (a Amount) String() string {
	if a.inMainUnit {
		return a.mainUnit.String()
	}
	if a.subunit == nil {
		return "0"
	}

	return a.subunit.String()
}

// ServiceNodeBid is a service node's quote for executing transfers between two blockchains.
// Bids are values: converting the fee yields a new bid via WithFee.
type ServiceNodeBid struct {
	SourceBlockchain      Blockchain
	DestinationBlockchain Blockchain
	Fee                   Amount
	// ExecutionTime is the promised upper bound in seconds for executing a transfer.
	ExecutionTime uint64
	// ValidUntil is the unix timestamp in seconds until the bid can be used.
	ValidUntil uint64
	// Signature is the service node's signature over the bid.
	Signature string
}

// WithFee returns a copy of the bid carrying fee.
func (b ServiceNodeBid) WithFee(fee Amount) ServiceNodeBid {
	b.Fee = fee
	return b
}

// SubunitFee returns the bid fee in subunits, failing if the fee was converted to main units.
func (b ServiceNodeBid) SubunitFee() (*big.Int, error) {
	fee, ok := b.Fee.Subunit()
	if !ok {
		return nil, fmt.Errorf("bid fee %s is not given in subunits", b.Fee)
	}

	return fee, nil
}
