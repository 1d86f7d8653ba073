package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/avast/retry-go/v4"
	sollib "github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/pkg/logger"
)

const (
	SolDefaultCommitment = solrpc.CommitmentConfirmed

	defaultRetryAttempts = 2
	defaultRetryDelay    = 500 * time.Millisecond
)

// Client should comply with the BlockchainClient interface
var _ chain.BlockchainClient = &Client{}

// RPCClient is the subset of the Solana JSON-RPC API the Pantos client reads from.
type RPCClient interface {
	GetTokenSupply(ctx context.Context, mint sollib.PublicKey, commitment solrpc.CommitmentType) (*solrpc.GetTokenSupplyResult, error)
	GetTokenAccountBalance(ctx context.Context, account sollib.PublicKey, commitment solrpc.CommitmentType) (*solrpc.GetTokenAccountBalanceResult, error)
}

// Client is the BlockchainClient of Solana. Pantos hub programs are not part of the supported
// protocol versions on Solana, so every hub dependent operation fails with
// chain.ErrNotSupported.
type Client struct {
	version *semver.Version
	// rpcs holds the provider followed by the fallback providers
	rpcs []RPCClient
	lggr logger.Logger

	retryAttempts uint
	retryDelay    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetry overrides the retry attempts and delay of RPC reads.
func WithRetry(attempts uint, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retryAttempts = attempts
		c.retryDelay = delay
	}
}

// NewClient creates the Solana client. The RPC clients are tried in order.
func NewClient(version *semver.Version, rpcs []RPCClient, lggr logger.Logger, opts ...ClientOption) (*Client, error) {
	if len(rpcs) == 0 {
		return nil, errors.New("no RPCs provided, need at least one")
	}
	c := &Client{
		version:       version,
		rpcs:          rpcs,
		lggr:          lggr,
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) Blockchain() chain.Blockchain {
	return chain.Solana
}

func (c *Client) ProtocolVersion() *semver.Version {
	return c.version
}

func (c *Client) IsValidRecipientAddress(address string) bool {
	return IsValidRecipientAddress(address)
}

func (c *Client) ResolveAccount(account chain.AccountID) (chain.Address, error) {
	address, err := chain.ResolveAccount(account, AddressFromPrivateKey)
	if err != nil {
		return "", c.error("resolve account", err)
	}

	return address, nil
}

// DecryptPrivateKey decodes a keypair file as written by solana-keygen: a JSON array of the
// 64 secret key bytes. These files are not encrypted, so password is not used.
func (c *Client) DecryptPrivateKey(keystore string, _ string) (chain.PrivateKey, error) {
	var secret []byte
	var raw []int
	if err := json.Unmarshal([]byte(keystore), &raw); err != nil {
		return "", c.error("decrypt private key", errors.New("keypair is not a JSON byte array"))
	}
	for _, b := range raw {
		if b < 0 || b > 255 {
			return "", c.error("decrypt private key", errors.New("keypair contains a value outside the byte range"))
		}
		secret = append(secret, byte(b))
	}
	if len(secret) != 64 {
		return "", c.error("decrypt private key", fmt.Errorf("keypair has %d bytes, expected 64", len(secret)))
	}

	return chain.PrivateKey(sollib.PrivateKey(secret).String()), nil
}

func (c *Client) ReadTokenDecimals(ctx context.Context, token chain.Address) (uint8, error) {
	const op = "read token decimals"

	mint, err := ParseAddress(token.String())
	if err != nil {
		return 0, c.error(op, err)
	}

	var decimals uint8
	err = c.do(ctx, op, func(ctx context.Context, rpc RPCClient) error {
		res, err := rpc.GetTokenSupply(ctx, mint, SolDefaultCommitment)
		if err != nil {
			return err
		}
		if res == nil || res.Value == nil {
			return errors.New("empty token supply result")
		}
		decimals = res.Value.Decimals

		return nil
	})
	if err != nil {
		return 0, c.error(op, err)
	}

	return decimals, nil
}

// ReadTokenBalance reads the balance of the owner's associated token account. An account
// that was never created holds a zero balance.
func (c *Client) ReadTokenBalance(ctx context.Context, token chain.Address, account chain.AccountID) (*big.Int, error) {
	const op = "read token balance"

	mint, err := ParseAddress(token.String())
	if err != nil {
		return nil, c.error(op, err)
	}
	owner, err := chain.ResolveAccount(account, AddressFromPrivateKey)
	if err != nil {
		return nil, c.error(op, err)
	}
	ownerKey, err := ParseAddress(owner.String())
	if err != nil {
		return nil, c.error(op, err)
	}
	ata, _, err := sollib.FindAssociatedTokenAddress(ownerKey, mint)
	if err != nil {
		return nil, c.error(op, fmt.Errorf("failed to derive associated token account: %w", err))
	}

	balance := new(big.Int)
	err = c.do(ctx, op, func(ctx context.Context, rpc RPCClient) error {
		res, err := rpc.GetTokenAccountBalance(ctx, ata, SolDefaultCommitment)
		if err != nil {
			if isAccountNotFound(err) {
				balance.SetInt64(0)
				return nil
			}

			return err
		}
		if res == nil || res.Value == nil {
			return errors.New("empty token account balance result")
		}
		if _, ok := balance.SetString(res.Value.Amount, 10); !ok {
			return retry.Unrecoverable(fmt.Errorf("invalid token amount %q", res.Value.Amount))
		}

		return nil
	})
	if err != nil {
		return nil, c.error(op, err)
	}

	return balance, nil
}

func (c *Client) ComputeTransferSignature(context.Context, chain.TransferSignatureRequest) (chain.SignatureResponse, error) {
	return chain.SignatureResponse{}, c.error("compute transfer signature", chain.ErrNotSupported)
}

func (c *Client) ComputeTransferFromSignature(context.Context, chain.TransferFromSignatureRequest) (chain.SignatureResponse, error) {
	return chain.SignatureResponse{}, c.error("compute transfer from signature", chain.ErrNotSupported)
}

func (c *Client) ReadExternalTokenAddress(context.Context, chain.Address, chain.Blockchain) (chain.Address, error) {
	return "", c.error("read external token address", chain.ErrNotSupported)
}

func (c *Client) ReadServiceNodeAddresses(context.Context) ([]chain.Address, error) {
	return nil, c.error("read service node addresses", chain.ErrNotSupported)
}

func (c *Client) ReadServiceNodeURL(context.Context, chain.Address) (string, error) {
	return "", c.error("read service node url", chain.ErrNotSupported)
}

func (c *Client) ReadDestinationTransfer(context.Context, chain.DestinationTransferRequest) (chain.DestinationTransfer, error) {
	return chain.DestinationTransfer{}, c.error("read destination transfer", chain.ErrNotSupported)
}

// do runs op against each RPC in order, retrying it on every RPC, until one succeeds.
func (c *Client) do(ctx context.Context, opName string, op func(context.Context, RPCClient) error) error {
	var err error
	for i, rpc := range c.rpcs {
		err = retry.Do(func() error {
			return op(ctx, rpc)
		}, retry.Context(ctx), retry.Attempts(c.retryAttempts), retry.Delay(c.retryDelay), retry.LastErrorOnly(true))
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}
		c.lggr.Warnw("Solana RPC failed, trying next one", "op", opName, "rpcIndex", i, "error", err)
	}

	return err
}

func (c *Client) error(op string, err error) error {
	return chain.NewClientError(chain.Solana, op, err)
}

func isAccountNotFound(err error) bool {
	return strings.Contains(err.Error(), "could not find account")
}
