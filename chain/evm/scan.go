package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pantos-io/client-library/chain"
)

// blockWindow is an inclusive block range of a single log query.
type blockWindow struct {
	Start uint64
	End   uint64
}

// scanWindows splits the most recent blocksToSearch blocks up to latest into windows of at
// most size blocks, newest first. Zero blocksToSearch covers the whole history.
func scanWindows(blocksToSearch, latest, size uint64) []blockWindow {
	if size == 0 {
		size = 1
	}
	var from uint64
	if blocksToSearch > 0 && latest+1 > blocksToSearch {
		from = latest - blocksToSearch + 1
	}

	var windows []blockWindow
	end := latest
	for {
		var start uint64
		if end+1 >= size {
			start = end - size + 1
		}
		start = max(start, from)
		windows = append(windows, blockWindow{Start: start, End: end})
		if start == from {
			break
		}
		end = start - 1
	}

	return windows
}

// ReadDestinationTransfer searches the hub's TransferToSucceeded events from the latest block
// backwards for the transfer of the requested source transaction.
func (c *Client) ReadDestinationTransfer(
	ctx context.Context, req chain.DestinationTransferRequest,
) (chain.DestinationTransfer, error) {
	const op = "read destination transfer"

	latest, err := c.onchain.BlockNumber(ctx)
	if err != nil {
		return chain.DestinationTransfer{}, c.error(op, fmt.Errorf("failed to read latest block number: %w", err))
	}

	event := c.hubABI.Events[eventTransferToSucceeded]
	sourceID := new(big.Int).SetUint64(req.SourceBlockchain.ID())
	windows := scanWindows(req.BlocksToSearch, latest, c.traits.blocksPerQuery(c.cfg.BlocksPerQuery))
	for _, w := range windows {
		logs, err := c.onchain.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(w.Start),
			ToBlock:   new(big.Int).SetUint64(w.End),
			Addresses: []common.Address{c.hub},
			Topics:    [][]common.Hash{{event.ID}},
		})
		if err != nil {
			return chain.DestinationTransfer{}, c.error(op,
				fmt.Errorf("failed to filter logs of blocks %d to %d: %w", w.Start, w.End, err))
		}

		for i := len(logs) - 1; i >= 0; i-- {
			log := logs[i]
			if log.Removed {
				continue
			}
			var ev transferToSucceeded
			if err := c.hubABI.UnpackIntoInterface(&ev, eventTransferToSucceeded, log.Data); err != nil {
				c.lggr.Warnw("Skipping undecodable hub event", "tx", log.TxHash.Hex(), "error", err)
				continue
			}
			if ev.Request.SourceBlockchainId.Cmp(sourceID) != 0 ||
				ev.Request.SourceTransactionId != req.SourceTransactionID {
				continue
			}

			return destinationTransfer(latest, log, ev), nil
		}
	}

	return chain.DestinationTransfer{}, c.error(op,
		fmt.Errorf("source transaction %s of %s: %w", req.SourceTransactionID, req.SourceBlockchain.Name(), chain.ErrUnknownTransfer))
}

func destinationTransfer(latest uint64, log types.Log, ev transferToSucceeded) chain.DestinationTransfer {
	signers := make([]chain.Address, 0, len(ev.SignerAddresses))
	for _, signer := range ev.SignerAddresses {
		signers = append(signers, chain.Address(signer.Hex()))
	}
	signatures := make([]string, 0, len(ev.Signatures))
	for _, signature := range ev.Signatures {
		signatures = append(signatures, hexutil.Encode(signature))
	}

	return chain.DestinationTransfer{
		LatestBlockNumber:        latest,
		TransactionBlockNumber:   log.BlockNumber,
		DestinationTransactionID: log.TxHash.Hex(),
		SourceTransferID:         ev.Request.SourceTransferId,
		DestinationTransferID:    ev.DestinationTransferId,
		SenderAddress:            chain.Address(ev.Request.Sender),
		RecipientAddress:         chain.Address(ev.Request.Recipient.Hex()),
		SourceTokenAddress:       chain.Address(ev.Request.SourceToken),
		DestinationTokenAddress:  chain.Address(ev.Request.DestinationToken.Hex()),
		Amount:                   ev.Request.Amount,
		ValidatorNonce:           ev.Request.Nonce,
		SignerAddresses:          signers,
		Signatures:               signatures,
	}
}
