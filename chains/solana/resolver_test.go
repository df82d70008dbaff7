package solana

import (
	"context"
	"encoding/json"
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

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

// fakeNode serves the two Solana RPC methods the resolver consumes.
type fakeNode struct {
	fees            []uint64
	perfUnavailable bool
	fail            bool
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
	case "getRecentPrioritizationFees":
		entries := make([]map[string]uint64, len(f.fees))
		for i, fee := range f.fees {
			entries[i] = map[string]uint64{
				"slot":              uint64(348_000 + i),
				"prioritizationFee": fee,
			}
		}
		result = entries
	case "getRecentPerformanceSamples":
		if f.perfUnavailable {
			result = []interface{}{}
		} else {
			result = []map[string]uint64{{
				"slot":             348_100,
				"numTransactions":  3000,
				"numSlots":         150,
				"samplePeriodSecs": 60,
			}}
		}
	default:
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      req.ID,
		"result":  result,
	})
}

func newTestResolver(t *testing.T, config *types.ChainConfig) *Resolver {
	t.Helper()

	resolver, err := NewResolver(config, 0, testLogger())
	require.NoError(t, err)
	return resolver
}

func TestResolveMedianOfPositiveFees(t *testing.T) {
	server := httptest.NewServer(&fakeNode{fees: []uint64{0, 0, 5, 10, 15}})
	defer server.Close()

	resolver := newTestResolver(t, &types.ChainConfig{
		ID: "solana", Name: "Solana", RpcUrl: server.URL, ChainType: types.SOLANA,
	})

	sample, signals, err := resolver.Resolve(context.Background())

	require.NoError(t, err)
	// Zeros are filtered before taking the median of [5 10 15].
	assert.InDelta(t, 10.0, sample.Value, 1e-9)
	assert.Equal(t, uint64(348_004), sample.BlockRef)
	assert.Equal(t, uint64(3000), signals.LatestTxCount)
	assert.InDelta(t, 60.0, signals.SamplePeriodSecs, 1e-9)
}

func TestResolveEvenSampleCount(t *testing.T) {
	server := httptest.NewServer(&fakeNode{fees: []uint64{4, 8, 16, 2}})
	defer server.Close()

	resolver := newTestResolver(t, &types.ChainConfig{
		ID: "solana", Name: "Solana", RpcUrl: server.URL, ChainType: types.SOLANA,
	})

	sample, _, err := resolver.Resolve(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 6.0, sample.Value, 1e-9)
}

func TestResolveAllZeroFeesIsZeroNotFailure(t *testing.T) {
	server := httptest.NewServer(&fakeNode{fees: []uint64{0, 0, 0}})
	defer server.Close()

	resolver := newTestResolver(t, &types.ChainConfig{
		ID: "solana", Name: "Solana", RpcUrl: server.URL, ChainType: types.SOLANA,
	})

	sample, _, err := resolver.Resolve(context.Background())

	require.NoError(t, err)
	assert.Zero(t, sample.Value)
}

func TestResolvePerformanceSampleOptional(t *testing.T) {
	server := httptest.NewServer(&fakeNode{fees: []uint64{7}, perfUnavailable: true})
	defer server.Close()

	resolver := newTestResolver(t, &types.ChainConfig{
		ID: "solana", Name: "Solana", RpcUrl: server.URL, ChainType: types.SOLANA,
	})

	sample, signals, err := resolver.Resolve(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 7.0, sample.Value, 1e-9)
	assert.Zero(t, signals.LatestTxCount)
	assert.Zero(t, signals.SamplePeriodSecs)
}

func TestResolveFallbackOrdering(t *testing.T) {
	dead := httptest.NewServer(&fakeNode{fail: true})
	defer dead.Close()

	live := httptest.NewServer(&fakeNode{fees: []uint64{3, 9, 27}})
	defer live.Close()

	withFallback := newTestResolver(t, &types.ChainConfig{
		ID: "solana", Name: "Solana", ChainType: types.SOLANA,
		RpcUrl:          dead.URL,
		FallbackRpcUrls: []string{live.URL},
	})
	direct := newTestResolver(t, &types.ChainConfig{
		ID: "solana", Name: "Solana", ChainType: types.SOLANA, RpcUrl: live.URL,
	})

	fallbackSample, _, err := withFallback.Resolve(context.Background())
	require.NoError(t, err)

	directSample, _, err := direct.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, directSample.Value, fallbackSample.Value)
}

func TestResolveTotalOutage(t *testing.T) {
	primary := httptest.NewServer(&fakeNode{fail: true})
	defer primary.Close()

	fallback := httptest.NewServer(&fakeNode{fail: true})
	defer fallback.Close()

	resolver := newTestResolver(t, &types.ChainConfig{
		ID: "solana", Name: "Solana", ChainType: types.SOLANA,
		RpcUrl:          primary.URL,
		FallbackRpcUrls: []string{fallback.URL},
	})

	sample, _, err := resolver.Resolve(context.Background())

	assert.Nil(t, sample)
	assert.True(t, errors.Is(err, commonerrors.ErrAllEndpointsFailed))
}
