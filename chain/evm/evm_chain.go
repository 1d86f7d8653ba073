package evm

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/pkg/logger"
	"github.com/pantos-io/client-library/protocol"
)

// Client should comply with the BlockchainClient interface
var _ chain.BlockchainClient = &Client{}

// maxNonce is the exclusive upper bound of sender nonces.
var maxNonce = new(big.Int).Lsh(big.NewInt(1), 256)

// Client is the BlockchainClient of an EVM blockchain for one protocol version. It reads the
// Pantos hub and token contracts through an OnchainClient and signs transfer authorizations
// locally.
type Client struct {
	traits    Traits
	version   *semver.Version
	cfg       config.BlockchainConfig
	onchain   OnchainClient
	hubABI    abi.ABI
	hub       common.Address
	forwarder common.Address
	panToken  common.Address
	lggr      logger.Logger

	// nonceSource feeds the random sender nonces
	nonceSource io.Reader
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithNonceSource replaces the random source of sender nonces.
func WithNonceSource(r io.Reader) ClientOption {
	return func(c *Client) {
		c.nonceSource = r
	}
}

// NewClient creates the client of an EVM blockchain. The hub, forwarder and pan token
// addresses are taken from cfg.
func NewClient(
	traits Traits, version *semver.Version, cfg config.BlockchainConfig,
	onchain OnchainClient, lggr logger.Logger, opts ...ClientOption,
) (*Client, error) {
	if onchain == nil {
		return nil, errors.New("onchain client is required")
	}
	hub, err := ParseAddress(cfg.Hub)
	if err != nil {
		return nil, fmt.Errorf("invalid hub address: %w", err)
	}
	forwarder, err := ParseAddress(cfg.Forwarder)
	if err != nil {
		return nil, fmt.Errorf("invalid forwarder address: %w", err)
	}
	panAddress, ok := cfg.TokenAddress(config.FeeTokenSymbol)
	if !ok {
		return nil, fmt.Errorf("no %s token configured", config.FeeTokenSymbol)
	}
	panToken, err := ParseAddress(panAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid %s token address: %w", config.FeeTokenSymbol, err)
	}

	c := &Client{
		traits:      traits,
		version:     version,
		cfg:         cfg,
		onchain:     onchain,
		hubABI:      HubABI(version),
		hub:         hub,
		forwarder:   forwarder,
		panToken:    panToken,
		lggr:        lggr,
		nonceSource: rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) Blockchain() chain.Blockchain {
	return c.traits.Blockchain
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

func (c *Client) DecryptPrivateKey(keystoreJSON string, password string) (chain.PrivateKey, error) {
	key, err := keystore.DecryptKey([]byte(keystoreJSON), password)
	if err != nil {
		return "", c.error("decrypt private key", err)
	}

	return chain.PrivateKey(common.Bytes2Hex(crypto.FromECDSA(key.PrivateKey))), nil
}

func (c *Client) ComputeTransferSignature(
	ctx context.Context, req chain.TransferSignatureRequest,
) (chain.SignatureResponse, error) {
	const op = "compute transfer signature"

	key, sender, err := ParsePrivateKey(req.SenderPrivateKey)
	if err != nil {
		return chain.SignatureResponse{}, c.error(op, err)
	}
	addresses, err := parseAddresses(map[string]chain.Address{
		"recipient":    req.RecipientAddress,
		"token":        req.TokenAddress,
		"service node": req.ServiceNodeAddress,
	})
	if err != nil {
		return chain.SignatureResponse{}, c.error(op, err)
	}
	fee, err := req.Bid.SubunitFee()
	if err != nil {
		return chain.SignatureResponse{}, c.error(op, err)
	}
	nonce, err := c.newSenderNonce(ctx, sender)
	if err != nil {
		return chain.SignatureResponse{}, c.error(op, err)
	}

	digest, err := transferDigest(c.signingDomain(), transferMessage{
		Sender:      sender,
		Recipient:   addresses["recipient"],
		Token:       addresses["token"],
		Amount:      req.Amount,
		ServiceNode: addresses["service node"],
		Fee:         fee,
		Nonce:       nonce,
		ValidUntil:  req.ValidUntil,
	})
	if err != nil {
		return chain.SignatureResponse{}, c.error(op, err)
	}

	return c.sign(op, key, sender, nonce, digest)
}

func (c *Client) ComputeTransferFromSignature(
	ctx context.Context, req chain.TransferFromSignatureRequest,
) (chain.SignatureResponse, error) {
	const op = "compute transfer from signature"

	key, sender, err := ParsePrivateKey(req.SenderPrivateKey)
	if err != nil {
		return chain.SignatureResponse{}, c.error(op, err)
	}
	addresses, err := parseAddresses(map[string]chain.Address{
		"source token": req.SourceTokenAddress,
		"service node": req.ServiceNodeAddress,
	})
	if err != nil {
		return chain.SignatureResponse{}, c.error(op, err)
	}
	fee, err := req.Bid.SubunitFee()
	if err != nil {
		return chain.SignatureResponse{}, c.error(op, err)
	}
	nonce, err := c.newSenderNonce(ctx, sender)
	if err != nil {
		return chain.SignatureResponse{}, c.error(op, err)
	}

	digest, err := transferFromDigest(c.signingDomain(), transferFromMessage{
		DestinationBlockchainID: req.DestinationBlockchain.ID(),
		Sender:                  sender,
		Recipient:               req.RecipientAddress.String(),
		SourceToken:             addresses["source token"],
		DestinationToken:        req.DestinationTokenAddress.String(),
		Amount:                  req.Amount,
		ServiceNode:             addresses["service node"],
		Fee:                     fee,
		Nonce:                   nonce,
		ValidUntil:              req.ValidUntil,
	})
	if err != nil {
		return chain.SignatureResponse{}, c.error(op, err)
	}

	return c.sign(op, key, sender, nonce, digest)
}

func (c *Client) ReadTokenBalance(ctx context.Context, token chain.Address, account chain.AccountID) (*big.Int, error) {
	const op = "read token balance"

	tokenAddress, err := ParseAddress(token.String())
	if err != nil {
		return nil, c.error(op, err)
	}
	owner, err := chain.ResolveAccount(account, AddressFromPrivateKey)
	if err != nil {
		return nil, c.error(op, err)
	}
	ownerAddress, err := ParseAddress(owner.String())
	if err != nil {
		return nil, c.error(op, err)
	}

	out, err := c.call(ctx, TokenABI(), tokenAddress, methodBalanceOf, ownerAddress)
	if err != nil {
		return nil, c.error(op, err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, c.error(op, fmt.Errorf("unexpected %s output %T", methodBalanceOf, out[0]))
	}

	return balance, nil
}

func (c *Client) ReadTokenDecimals(ctx context.Context, token chain.Address) (uint8, error) {
	const op = "read token decimals"

	tokenAddress, err := ParseAddress(token.String())
	if err != nil {
		return 0, c.error(op, err)
	}
	out, err := c.call(ctx, TokenABI(), tokenAddress, methodDecimals)
	if err != nil {
		return 0, c.error(op, err)
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, c.error(op, fmt.Errorf("unexpected %s output %T", methodDecimals, out[0]))
	}

	return decimals, nil
}

func (c *Client) ReadExternalTokenAddress(
	ctx context.Context, token chain.Address, destination chain.Blockchain,
) (chain.Address, error) {
	const op = "read external token address"

	tokenAddress, err := ParseAddress(token.String())
	if err != nil {
		return "", c.error(op, err)
	}
	out, err := c.call(ctx, c.hubABI, c.hub, methodGetExternalTokenRecord,
		tokenAddress, new(big.Int).SetUint64(destination.ID()))
	if err != nil {
		return "", c.error(op, err)
	}
	record, ok := abi.ConvertType(out[0], new(externalTokenRecord)).(*externalTokenRecord)
	if !ok {
		return "", c.error(op, fmt.Errorf("unexpected %s output %T", methodGetExternalTokenRecord, out[0]))
	}
	if !record.Active {
		return "", c.error(op, fmt.Errorf("token %s on %s: %w", token, destination.Name(), chain.ErrInactiveRecord))
	}

	return chain.Address(record.ExternalToken), nil
}

func (c *Client) ReadServiceNodeAddresses(ctx context.Context) ([]chain.Address, error) {
	const op = "read service node addresses"

	out, err := c.call(ctx, c.hubABI, c.hub, methodGetServiceNodes)
	if err != nil {
		return nil, c.error(op, err)
	}
	nodes, ok := out[0].([]common.Address)
	if !ok {
		return nil, c.error(op, fmt.Errorf("unexpected %s output %T", methodGetServiceNodes, out[0]))
	}

	addresses := make([]chain.Address, 0, len(nodes))
	for _, node := range nodes {
		addresses = append(addresses, chain.Address(node.Hex()))
	}
	slices.Sort(addresses)

	return addresses, nil
}

func (c *Client) ReadServiceNodeURL(ctx context.Context, serviceNode chain.Address) (string, error) {
	const op = "read service node url"

	nodeAddress, err := ParseAddress(serviceNode.String())
	if err != nil {
		return "", c.error(op, err)
	}
	out, err := c.call(ctx, c.hubABI, c.hub, methodGetServiceNodeRecord, nodeAddress)
	if err != nil {
		return "", c.error(op, err)
	}

	var (
		active bool
		url    string
	)
	if protocol.Scheme(c.version) == protocol.SchemeLegacyKeccak {
		record, ok := abi.ConvertType(out[0], new(serviceNodeRecordV0_1)).(*serviceNodeRecordV0_1)
		if !ok {
			return "", c.error(op, fmt.Errorf("unexpected %s output %T", methodGetServiceNodeRecord, out[0]))
		}
		active, url = record.Active, record.Url
	} else {
		record, ok := abi.ConvertType(out[0], new(serviceNodeRecordV0_2)).(*serviceNodeRecordV0_2)
		if !ok {
			return "", c.error(op, fmt.Errorf("unexpected %s output %T", methodGetServiceNodeRecord, out[0]))
		}
		active, url = record.Active, record.Url
	}
	if !active {
		return "", c.error(op, fmt.Errorf("service node %s: %w", serviceNode, chain.ErrInactiveRecord))
	}

	return url, nil
}

// call invokes a view function of a contract at the latest block and unpacks its outputs.
func (c *Client) call(ctx context.Context, contractABI abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}
	result, err := c.onchain.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, to.Hex(), err)
	}
	out, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s output: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s output", method)
	}

	return out, nil
}

// newSenderNonce draws random nonces until the hub accepts one for sender.
func (c *Client) newSenderNonce(ctx context.Context, sender common.Address) (*big.Int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nonce, err := rand.Int(c.nonceSource, maxNonce)
		if err != nil {
			return nil, fmt.Errorf("failed to generate sender nonce: %w", err)
		}
		out, err := c.call(ctx, c.hubABI, c.hub, methodIsValidSenderNonce, sender, nonce)
		if err != nil {
			return nil, err
		}
		if valid, ok := out[0].(bool); ok && valid {
			return nonce, nil
		}
		c.lggr.Debugw("Sender nonce already used", "sender", sender.Hex(), "nonce", nonce.String())
	}
}

func (c *Client) signingDomain() signingDomain {
	return signingDomain{
		Version:      c.version,
		ChainID:      new(big.Int).SetUint64(c.cfg.ChainID),
		BlockchainID: c.traits.Blockchain.ID(),
		Hub:          c.hub,
		Forwarder:    c.forwarder,
		PanToken:     c.panToken,
	}
}

func (c *Client) sign(op string, key *ecdsa.PrivateKey, sender common.Address, nonce *big.Int, digest []byte) (chain.SignatureResponse, error) {
	signature, err := signDigest(key, digest)
	if err != nil {
		return chain.SignatureResponse{}, c.error(op, err)
	}

	return chain.SignatureResponse{
		SenderAddress: chain.Address(sender.Hex()),
		SenderNonce:   nonce,
		Signature:     signature,
	}, nil
}

func (c *Client) error(op string, err error) error {
	return chain.NewClientError(c.traits.Blockchain, op, err)
}

func parseAddresses(addresses map[string]chain.Address) (map[string]common.Address, error) {
	parsed := make(map[string]common.Address, len(addresses))
	for name, address := range addresses {
		a, err := ParseAddress(address.String())
		if err != nil {
			return nil, fmt.Errorf("invalid %s address: %w", name, err)
		}
		parsed[name] = a
	}

	return parsed, nil
}
