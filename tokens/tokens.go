// Package tokens resolves token identifiers to addresses and converts token amounts between
// their smallest subunit and their main unit.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/pkg/logger"
)

var (
	// ErrNegativeAmount is returned when converting a negative amount.
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrUnknownTokenSymbol is returned when no token address is configured for a symbol.
	ErrUnknownTokenSymbol = errors.New("unknown token symbol")
	// ErrPrecisionExceeded is returned when a main unit amount has more decimal places than
	// the token supports.
	ErrPrecisionExceeded = errors.New("amount exceeds the token's precision")
)

// Interactor resolves tokens and converts token amounts.
type Interactor struct {
	clients chain.ClientProvider
	cfg     *config.Config
	lggr    logger.Logger
}

// NewInteractor creates a token Interactor.
func NewInteractor(clients chain.ClientProvider, cfg *config.Config, lggr logger.Logger) *Interactor {
	return &Interactor{
		clients: clients,
		cfg:     cfg,
		lggr:    lggr.Named("tokens"),
	}
}

// ConvertToMainUnit converts a subunit amount of token to the token's main unit. A zero
// amount is converted without reading the token's decimals.
func (i *Interactor) ConvertToMainUnit(ctx context.Context, blockchain chain.Blockchain, token chain.TokenID, amount *big.Int) (decimal.Decimal, error) {
	if amount.Sign() < 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	if amount.Sign() == 0 {
		return decimal.Zero, nil
	}

	decimals, err := i.readDecimals(ctx, blockchain, token)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return decimal.NewFromBigInt(amount, -int32(decimals)), nil
}

// ConvertToSubunit converts a main unit amount of token to the token's smallest subunit. It
// fails with ErrPrecisionExceeded instead of rounding. A zero amount is converted without
// reading the token's decimals.
func (i *Interactor) ConvertToSubunit(ctx context.Context, blockchain chain.Blockchain, token chain.TokenID, amount decimal.Decimal) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	if amount.IsZero() {
		return new(big.Int), nil
	}

	decimals, err := i.readDecimals(ctx, blockchain, token)
	if err != nil {
		return nil, err
	}

	subunit := amount.Shift(int32(decimals))
	if !subunit.IsInteger() {
		return nil, fmt.Errorf("%w: %s with %d decimals", ErrPrecisionExceeded, amount, decimals)
	}

	return subunit.BigInt(), nil
}

// ConvertAmountToSubunit returns amount in subunits of token, converting main unit amounts.
func (i *Interactor) ConvertAmountToSubunit(ctx context.Context, blockchain chain.Blockchain, token chain.TokenID, amount chain.Amount) (*big.Int, error) {
	if subunit, ok := amount.Subunit(); ok {
		if subunit.Sign() < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, subunit)
		}

		return subunit, nil
	}
	mainUnit, _ := amount.MainUnit()

	return i.ConvertToSubunit(ctx, blockchain, token, mainUnit)
}

// FindTokenAddress returns the configured address of the token with symbol on blockchain.
// Symbols are matched case-insensitively.
func (i *Interactor) FindTokenAddress(blockchain chain.Blockchain, symbol string) (chain.Address, error) {
	bc, err := i.cfg.Blockchain(blockchain)
	if err != nil {
		return "", err
	}
	address, ok := bc.TokenAddress(symbol)
	if !ok {
		return "", fmt.Errorf("%w: %q on %s", ErrUnknownTokenSymbol, symbol, blockchain)
	}

	return chain.Address(address), nil
}

// ResolveTokenAddress returns the address of token on blockchain. Addresses are passed
// through unchanged.
func (i *Interactor) ResolveTokenAddress(blockchain chain.Blockchain, token chain.TokenID) (chain.Address, error) {
	if address, ok := token.Address(); ok {
		return address, nil
	}
	symbol, ok := token.Symbol()
	if !ok {
		return "", errors.New("empty token identifier")
	}

	return i.FindTokenAddress(blockchain, symbol)
}

// FindTokenAddresses returns the addresses of token on the source and on the destination
// blockchain. Symbols are looked up in the configuration of both blockchains; addresses are
// mapped through the external token registry of the source blockchain.
func (i *Interactor) FindTokenAddresses(ctx context.Context, source, destination chain.Blockchain, token chain.TokenID) (chain.Address, chain.Address, error) {
	sourceAddress, err := i.ResolveTokenAddress(source, token)
	if err != nil {
		return "", "", err
	}
	if source == destination {
		return sourceAddress, sourceAddress, nil
	}
	if symbol, ok := token.Symbol(); ok {
		destinationAddress, err := i.FindTokenAddress(destination, symbol)
		if err != nil {
			return "", "", err
		}

		return sourceAddress, destinationAddress, nil
	}

	client, err := i.clients.Client(ctx, source, nil)
	if err != nil {
		return "", "", err
	}
	destinationAddress, err := client.ReadExternalTokenAddress(ctx, sourceAddress, destination)
	if err != nil {
		return "", "", err
	}

	return sourceAddress, destinationAddress, nil
}

// BalanceRequest asks for the balance of an account.
type BalanceRequest struct {
	Blockchain chain.Blockchain
	Account    chain.AccountID
	Token      chain.TokenID
	// InMainUnit returns the balance in the token's main unit instead of its subunit.
	InMainUnit bool
}

// RetrieveTokenBalance reads the token balance of an account.
func (i *Interactor) RetrieveTokenBalance(ctx context.Context, req BalanceRequest) (chain.Amount, error) {
	token, err := i.ResolveTokenAddress(req.Blockchain, req.Token)
	if err != nil {
		return chain.Amount{}, err
	}
	client, err := i.clients.Client(ctx, req.Blockchain, nil)
	if err != nil {
		return chain.Amount{}, err
	}
	balance, err := client.ReadTokenBalance(ctx, token, req.Account)
	if err != nil {
		return chain.Amount{}, err
	}
	if !req.InMainUnit {
		return chain.SubunitAmount(balance), nil
	}

	mainUnit, err := i.ConvertToMainUnit(ctx, req.Blockchain, chain.TokenByAddress(token), balance)
	if err != nil {
		return chain.Amount{}, err
	}

	return chain.MainUnitAmount(mainUnit), nil
}

func (i *Interactor) readDecimals(ctx context.Context, blockchain chain.Blockchain, token chain.TokenID) (uint8, error) {
	address, err := i.ResolveTokenAddress(blockchain, token)
	if err != nil {
		return 0, err
	}
	client, err := i.clients.Client(ctx, blockchain, nil)
	if err != nil {
		return 0, err
	}

	return client.ReadTokenDecimals(ctx, address)
}
