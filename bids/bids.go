// Package bids retrieves service node bids and selects the cheapest one.
package bids

import (
	"cmp"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"maps"
	"math/big"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/pkg/logger"
	"github.com/pantos-io/client-library/tokens"
)

// DefaultConcurrency bounds the number of service nodes queried at the same time.
const DefaultConcurrency = 16

// ErrNoBids is returned when no service node offers a bid for a blockchain pair.
var ErrNoBids = errors.New("no service node bids found")

// BidSource requests the bids of a single service node.
type BidSource interface {
	Bids(ctx context.Context, url string, source, destination chain.Blockchain) ([]chain.ServiceNodeBid, error)
}

// Interactor queries the service nodes registered on a source blockchain for their bids.
type Interactor struct {
	clients     chain.ClientProvider
	tokens      *tokens.Interactor
	nodes       BidSource
	timeout     time.Duration
	concurrency int64
	random      io.Reader
	lggr        logger.Logger
}

// Option configures an Interactor.
type Option func(*Interactor)

// WithConcurrency bounds the number of service nodes queried at the same time.
func WithConcurrency(n int64) Option {
	return func(i *Interactor) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

// WithRandomSource replaces the source used to break ties between equally cheap bids.
func WithRandomSource(r io.Reader) Option {
	return func(i *Interactor) {
		i.random = r
	}
}

// NewInteractor creates a bid Interactor. timeout bounds the work spent on each service node.
func NewInteractor(
	clients chain.ClientProvider,
	tokenInteractor *tokens.Interactor,
	nodes BidSource,
	timeout time.Duration,
	lggr logger.Logger,
	opts ...Option,
) *Interactor {
	i := &Interactor{
		clients:     clients,
		tokens:      tokenInteractor,
		nodes:       nodes,
		timeout:     timeout,
		concurrency: DefaultConcurrency,
		random:      rand.Reader,
		lggr:        lggr.Named("bids"),
	}
	if i.timeout <= 0 {
		i.timeout = config.DefaultServiceNodeTimeout
	}
	for _, opt := range opts {
		opt(i)
	}

	return i
}

// RetrieveServiceNodeBids returns the bids of every active service node registered on the
// source blockchain, keyed by service node address. Service nodes that fail to answer in time
// or answer with an invalid response are left out. If feeInMainUnit is set, the bid fees are
// converted to the main unit of the pan token.
func (i *Interactor) RetrieveServiceNodeBids(ctx context.Context, source, destination chain.Blockchain, feeInMainUnit bool) (map[chain.Address][]chain.ServiceNodeBid, error) {
	client, err := i.clients.Client(ctx, source, nil)
	if err != nil {
		return nil, err
	}
	addresses, err := client.ReadServiceNodeAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read the service nodes of %s: %w", source, err)
	}

	var (
		mu      sync.Mutex
		results = make(map[chain.Address][]chain.ServiceNodeBid, len(addresses))
	)
	sem := semaphore.NewWeighted(i.concurrency)
	group, gctx := errgroup.WithContext(ctx)

	for _, address := range addresses {
		group.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			bids, err := i.serviceNodeBids(gctx, client, address, destination, feeInMainUnit)
			if err != nil {
				i.lggr.Warnw("Skipping service node", "serviceNode", address.String(), "source", source.Name(),
					"destination", destination.Name(), "error", err)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			results[address] = bids

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("failed to retrieve service node bids: %w", err)
	}

	return results, nil
}

func (i *Interactor) serviceNodeBids(
	ctx context.Context,
	client chain.BlockchainClient,
	address chain.Address,
	destination chain.Blockchain,
	feeInMainUnit bool,
) ([]chain.ServiceNodeBid, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	url, err := client.ReadServiceNodeURL(ctx, address)
	if err != nil {
		return nil, err
	}
	bids, err := i.nodes.Bids(ctx, url, client.Blockchain(), destination)
	if err != nil {
		return nil, err
	}
	if !feeInMainUnit {
		return bids, nil
	}

	converted := make([]chain.ServiceNodeBid, 0, len(bids))
	for _, bid := range bids {
		fee, err := bid.SubunitFee()
		if err != nil {
			return nil, err
		}
		mainUnit, err := i.tokens.ConvertToMainUnit(ctx, client.Blockchain(), chain.TokenBySymbol(config.FeeTokenSymbol), fee)
		if err != nil {
			return nil, fmt.Errorf("failed to convert bid fee: %w", err)
		}
		converted = append(converted, bid.WithFee(chain.MainUnitAmount(mainUnit)))
	}

	return converted, nil
}

type candidate struct {
	serviceNode chain.Address
	bid         chain.ServiceNodeBid
	fee         *big.Int
}

// FindCheapestServiceNodeBid returns the service node with the lowest fee for transfers from
// source to destination. Equal fees are decided by the lower execution time, and bids equal in
// both are chosen from at random.
func (i *Interactor) FindCheapestServiceNodeBid(ctx context.Context, source, destination chain.Blockchain) (chain.Address, chain.ServiceNodeBid, error) {
	all, err := i.RetrieveServiceNodeBids(ctx, source, destination, false)
	if err != nil {
		return "", chain.ServiceNodeBid{}, err
	}

	var cheapest []candidate
	for _, address := range slices.Sorted(maps.Keys(all)) {
		for _, bid := range all[address] {
			fee, err := bid.SubunitFee()
			if err != nil {
				return "", chain.ServiceNodeBid{}, err
			}
			c := candidate{serviceNode: address, bid: bid, fee: fee}
			if len(cheapest) == 0 {
				cheapest = append(cheapest, c)
				continue
			}
			switch compare(c, cheapest[0]) {
			case -1:
				cheapest = append(cheapest[:0], c)
			case 0:
				cheapest = append(cheapest, c)
			}
		}
	}

	switch len(cheapest) {
	case 0:
		return "", chain.ServiceNodeBid{}, fmt.Errorf("%w: %s to %s", ErrNoBids, source, destination)
	case 1:
		return cheapest[0].serviceNode, cheapest[0].bid, nil
	}

	n, err := rand.Int(i.random, big.NewInt(int64(len(cheapest))))
	if err != nil {
		return "", chain.ServiceNodeBid{}, fmt.Errorf("failed to choose among %d equal bids: %w", len(cheapest), err)
	}
	chosen := cheapest[n.Int64()]

	return chosen.serviceNode, chosen.bid, nil
}

// compare orders candidates by fee, then by execution time.
func compare(a, b candidate) int {
	if c := a.fee.Cmp(b.fee); c != 0 {
		return c
	}

	return cmp.Compare(a.bid.ExecutionTime, b.bid.ExecutionTime)
}
