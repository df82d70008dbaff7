package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	commonerrors "github.com/chainpulse/gasfeed/common/errors"
	"github.com/chainpulse/gasfeed/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gwei = 1_000_000_000

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode serves a minimal EVM JSON-RPC surface for resolver tests.
type fakeNode struct {
	gasPriceWei    uint64
	baseFeeWei     uint64
	rewardsWei     [3]uint64 // p10/p50/p90 reward per block
	feeHistoryFail bool
	fail           bool
}

func (f *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.fail {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var result interface{}
	switch req.Method {
	case "eth_gasPrice":
		result = fmt.Sprintf("0x%x", f.gasPriceWei)
	case "eth_feeHistory":
		if f.feeHistoryFail {
			writeRPCError(w, req.ID, "fee history not supported")
			return
		}
		result = f.feeHistoryResult()
	case "eth_getBlockByNumber":
		result = map[string]interface{}{
			"number":       "0x10",
			"gasUsed":      fmt.Sprintf("0x%x", uint64(15_000_000)),
			"gasLimit":     fmt.Sprintf("0x%x", uint64(30_000_000)),
			"transactions": []string{},
		}
	default:
		writeRPCError(w, req.ID, "method not found")
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      req.ID,
		"result":  result,
	})
}

func (f *fakeNode) feeHistoryResult() map[string]interface{} {
	baseFees := make([]string, 11)
	for i := range baseFees {
		baseFees[i] = fmt.Sprintf("0x%x", f.baseFeeWei)
	}

	rewards := make([][]string, 10)
	ratios := make([]float64, 10)
	for i := range rewards {
		rewards[i] = []string{
			fmt.Sprintf("0x%x", f.rewardsWei[0]),
			fmt.Sprintf("0x%x", f.rewardsWei[1]),
			fmt.Sprintf("0x%x", f.rewardsWei[2]),
		}
		ratios[i] = 0.5
	}

	return map[string]interface{}{
		"oldestBlock":   "0x1",
		"baseFeePerGas": baseFees,
		"gasUsedRatio":  ratios,
		"reward":        rewards,
	}
}

func writeRPCError(w http.ResponseWriter, id json.RawMessage, message string) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]interface{}{"code": -32000, "message": message},
	})
}

func newResolver(t *testing.T, config *types.ChainConfig) *Resolver {
	t.Helper()

	resolver, err := NewResolver(config, 0, testLogger())
	require.NoError(t, err)
	return resolver
}

func TestResolveLegacyChain(t *testing.T) {
	node := &fakeNode{gasPriceWei: 30 * gwei}
	server := httptest.NewServer(node)
	defer server.Close()

	resolver := newResolver(t, &types.ChainConfig{
		ID: "test", Name: "Test", RpcUrl: server.URL, ChainType: types.EVM,
	})

	sample, signals, err := resolver.Resolve(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 30.0, sample.Value, 1e-9)
	assert.Equal(t, "test", sample.ChainID)
	assert.Equal(t, uint64(0x10), sample.BlockRef)
	assert.False(t, signals.HasFeeHistory)
	assert.Equal(t, uint64(15_000_000), signals.LatestGasUsed)
	assert.Equal(t, uint64(30_000_000), signals.LatestGasLimit)
}

func TestResolveEIP1559TakesMaxOfSignals(t *testing.T) {
	// Fee-history value 23+2=25 gwei exceeds the 22 gwei legacy price.
	node := &fakeNode{
		gasPriceWei: 22 * gwei,
		baseFeeWei:  23 * gwei,
		rewardsWei:  [3]uint64{1 * gwei, 2 * gwei, 5 * gwei},
	}
	server := httptest.NewServer(node)
	defer server.Close()

	resolver := newResolver(t, &types.ChainConfig{
		ID: "test", Name: "Test", RpcUrl: server.URL, ChainType: types.EVM, EIP1559: true,
	})

	sample, signals, err := resolver.Resolve(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 25.0, sample.Value, 1e-9)
	assert.True(t, signals.HasFeeHistory)
	assert.InDelta(t, 23.0, signals.BaseFee, 1e-9)
	assert.InDelta(t, 1.0, signals.TipP10, 1e-9)
	assert.InDelta(t, 2.0, signals.TipP50, 1e-9)
	assert.InDelta(t, 5.0, signals.TipP90, 1e-9)
}

func TestResolveEIP1559LegacyFloor(t *testing.T) {
	// A rollup reporting a near-zero base fee must not under-report: the
	// legacy gas price wins the reconciliation.
	node := &fakeNode{
		gasPriceWei: 40 * gwei,
		baseFeeWei:  1,
		rewardsWei:  [3]uint64{1, 2, 5},
	}
	server := httptest.NewServer(node)
	defer server.Close()

	resolver := newResolver(t, &types.ChainConfig{
		ID: "test", Name: "Test", RpcUrl: server.URL, ChainType: types.EVM, EIP1559: true,
	})

	sample, _, err := resolver.Resolve(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 40.0, sample.Value, 1e-9)
}

func TestResolveFeeHistoryFailureDegradesToLegacy(t *testing.T) {
	node := &fakeNode{gasPriceWei: 18 * gwei, feeHistoryFail: true}
	server := httptest.NewServer(node)
	defer server.Close()

	resolver := newResolver(t, &types.ChainConfig{
		ID: "test", Name: "Test", RpcUrl: server.URL, ChainType: types.EVM, EIP1559: true,
	})

	sample, signals, err := resolver.Resolve(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 18.0, sample.Value, 1e-9)
	assert.False(t, signals.HasFeeHistory)
}

func TestResolveFallbackOrdering(t *testing.T) {
	dead := httptest.NewServer(&fakeNode{fail: true})
	defer dead.Close()

	live := httptest.NewServer(&fakeNode{gasPriceWei: 12 * gwei})
	defer live.Close()

	withFallback := newResolver(t, &types.ChainConfig{
		ID: "test", Name: "Test", ChainType: types.EVM,
		RpcUrl:          dead.URL,
		FallbackRpcUrls: []string{live.URL},
	})
	direct := newResolver(t, &types.ChainConfig{
		ID: "test", Name: "Test", ChainType: types.EVM, RpcUrl: live.URL,
	})

	fallbackSample, _, err := withFallback.Resolve(context.Background())
	require.NoError(t, err)

	directSample, _, err := direct.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, directSample.Value, fallbackSample.Value)
	assert.Equal(t, directSample.BlockRef, fallbackSample.BlockRef)
}

func TestResolveTotalOutage(t *testing.T) {
	primary := httptest.NewServer(&fakeNode{fail: true})
	defer primary.Close()

	fallback := httptest.NewServer(&fakeNode{fail: true})
	defer fallback.Close()

	resolver := newResolver(t, &types.ChainConfig{
		ID: "test", Name: "Test", ChainType: types.EVM,
		RpcUrl:          primary.URL,
		FallbackRpcUrls: []string{fallback.URL},
	})

	sample, _, err := resolver.Resolve(context.Background())

	assert.Nil(t, sample)
	assert.True(t, errors.Is(err, commonerrors.ErrAllEndpointsFailed))
}
