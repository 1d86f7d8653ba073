package evm

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// fakeOnchain answers contract calls from per-method handlers and serves a fixed set of logs.
type fakeOnchain struct {
	mu       sync.Mutex
	abis     []abi.ABI
	handlers map[string]func(args []any) []any
	latest   uint64
	chainID  *big.Int
	logs     []types.Log
	windows  []blockWindow
	calls    map[string]int
}

var _ OnchainClient = &fakeOnchain{}

func newFakeOnchain(abis ...abi.ABI) *fakeOnchain {
	return &fakeOnchain{
		abis:     abis,
		handlers: make(map[string]func(args []any) []any),
		chainID:  big.NewInt(1),
		calls:    make(map[string]int),
	}
}

func (f *fakeOnchain) handle(method string, handler func(args []any) []any) {
	f.handlers[method] = handler
}

func (f *fakeOnchain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.abis {
		for name, method := range a.Methods {
			if !bytes.Equal(method.ID, msg.Data[:4]) {
				continue
			}
			handler, ok := f.handlers[name]
			if !ok {
				return nil, fmt.Errorf("no handler for %s", name)
			}
			args, err := method.Inputs.Unpack(msg.Data[4:])
			if err != nil {
				return nil, err
			}
			f.calls[name]++

			return method.Outputs.Pack(handler(args)...)
		}
	}

	return nil, fmt.Errorf("unknown method selector %x", msg.Data[:4])
}

func (f *fakeOnchain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func (f *fakeOnchain) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	f.windows = append(f.windows, blockWindow{Start: from, End: to})

	var logs []types.Log
	for _, log := range f.logs {
		if log.BlockNumber >= from && log.BlockNumber <= to {
			logs = append(logs, log)
		}
	}

	return logs, nil
}

func (f *fakeOnchain) BlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeOnchain) ChainID(context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeOnchain) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[method]
}

// transferLog builds a TransferToSucceeded log of the hub.
func transferLog(
	t *testing.T, hubABI abi.ABI, hub common.Address, block uint64, txHash common.Hash, req transferToRequest,
) types.Log {
	t.Helper()

	event := hubABI.Events[eventTransferToSucceeded]
	data, err := event.Inputs.NonIndexed().Pack(
		big.NewInt(77),
		req,
		[]common.Address{common.HexToAddress("0x00000000000000000000000000000000000000a1")},
		[][]byte{{0x01, 0x02}},
	)
	require.NoError(t, err)

	return types.Log{
		Address:     hub,
		Topics:      []common.Hash{event.ID},
		Data:        data,
		BlockNumber: block,
		TxHash:      txHash,
	}
}
