package evm

import (
	"context"
	"math/big"
	"time"

	commonerrors "github.com/chainpulse/gasfeed/common/errors"
	"github.com/chainpulse/gasfeed/common/types"
	"github.com/chainpulse/gasfeed/rpcclient"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// feeHistoryBlocks is the lookback window for eth_feeHistory.
	feeHistoryBlocks = 10
	// weiPerGwei converts wei quantities to gwei.
	weiPerGwei = 1e9
)

// rewardPercentiles are the tip percentiles requested from eth_feeHistory.
var rewardPercentiles = []float64{10, 50, 90}

// Resolver produces a representative gas price for one EVM chain, in gwei.
type Resolver struct {
	config *types.ChainConfig // Chain configuration.
	logger *logrus.Logger     // Logger for logging events.
	rpc    *rpcclient.Client  // JSON-RPC client with bounded per-call timeout.
}

// NewResolver creates a new EVM fee resolver.
//
// Parameters:
// - config: the chain configuration.
// - timeout: the per-RPC-call timeout, zero for the default.
// - logger: the logger for logging events.
//
// Returns:
// - *Resolver: a new EVM resolver instance.
// - error: an error if the configuration has no endpoints.
func NewResolver(config *types.ChainConfig, timeout time.Duration, logger *logrus.Logger) (*Resolver, error) {
	if config.RpcUrl == "" {
		return nil, errors.New("no rpc endpoint configured")
	}

	return &Resolver{
		config: config,
		logger: logger,
		rpc:    rpcclient.New(timeout),
	}, nil
}

// Resolve tries the primary endpoint, then each fallback in configured order,
// returning the first successful result. Endpoint failures of either kind
// are absorbed here and only surface as ErrAllEndpointsFailed once every
// endpoint is exhausted.
func (r *Resolver) Resolve(ctx context.Context) (*types.FeeSample, *types.FeeSignals, error) {
	for _, endpoint := range r.config.Endpoints() {
		sample, signals, err := r.resolveEndpoint(ctx, endpoint)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"chain":    r.config.Name,
				"endpoint": endpoint,
			}).WithError(err).Warn("EVM endpoint attempt failed")
			continue
		}

		return sample, signals, nil
	}

	return nil, nil, errors.Wrap(commonerrors.ErrAllEndpointsFailed, r.config.Name)
}

// resolveEndpoint performs one full fee observation against a single endpoint.
//
// The legacy gas price is mandatory; when the chain declares EIP-1559
// support a short fee-history window is fetched as well and the
// representative value is the maximum of the two signals. Some rollups
// report a near-zero base fee in fee-history while their legacy gas price
// reflects the real floor, so the maximum prevents under-reporting.
func (r *Resolver) resolveEndpoint(ctx context.Context, endpoint string) (*types.FeeSample, *types.FeeSignals, error) {
	var gasPriceWei hexutil.Big
	if err := r.rpc.Call(ctx, endpoint, "eth_gasPrice", &gasPriceWei); err != nil {
		return nil, nil, err
	}

	gasPrice := weiToGwei(gasPriceWei.ToInt())
	signals := &types.FeeSignals{GasPrice: gasPrice}
	representative := gasPrice

	if r.config.EIP1559 {
		hist, err := r.feeHistory(ctx, endpoint)
		if err != nil {
			// Degrade to the legacy gas price alone.
			r.logger.WithFields(logrus.Fields{
				"chain":    r.config.Name,
				"endpoint": endpoint,
			}).WithError(err).Warn("fee history unavailable, using legacy gas price")
		} else {
			signals.BaseFee = hist.baseFee
			signals.TipP10 = hist.tips[0]
			signals.TipP50 = hist.tips[1]
			signals.TipP90 = hist.tips[2]
			signals.GasUsedRatio = hist.gasUsedRatio
			signals.HasFeeHistory = true

			if derived := hist.baseFee + hist.tips[1]; derived > representative {
				representative = derived
			}
		}
	}

	blockRef := r.latestBlock(ctx, endpoint, signals)

	sample := &types.FeeSample{
		ChainID:    r.config.ID,
		Value:      representative,
		BlockRef:   blockRef,
		ObservedAt: time.Now(),
	}

	return sample, signals, nil
}

// feeHistoryResult mirrors the eth_feeHistory response envelope.
type feeHistoryResult struct {
	OldestBlock   hexutil.Uint64  `json:"oldestBlock"`
	BaseFeePerGas []hexutil.Big   `json:"baseFeePerGas"`
	GasUsedRatio  []float64       `json:"gasUsedRatio"`
	Reward        [][]hexutil.Big `json:"reward"`
}

// feeHistorySummary is the digested fee-history window.
type feeHistorySummary struct {
	baseFee      float64    // Latest base fee, gwei.
	tips         [3]float64 // Mean reward at the 10th/50th/90th percentile, gwei.
	gasUsedRatio []float64
}

// feeHistory fetches and digests a short fee-history window from the endpoint.
func (r *Resolver) feeHistory(ctx context.Context, endpoint string) (*feeHistorySummary, error) {
	var result feeHistoryResult
	err := r.rpc.Call(ctx, endpoint, "eth_feeHistory", &result, hexutil.Uint64(feeHistoryBlocks), "latest", rewardPercentiles)
	if err != nil {
		return nil, err
	}

	if len(result.BaseFeePerGas) == 0 || len(result.Reward) == 0 {
		return nil, errors.New("empty fee history response")
	}

	summary := &feeHistorySummary{
		gasUsedRatio: result.GasUsedRatio,
	}

	// The final entry projects the next block's base fee.
	summary.baseFee = weiToGwei(result.BaseFeePerGas[len(result.BaseFeePerGas)-1].ToInt())

	for p := 0; p < len(rewardPercentiles); p++ {
		var sum float64
		var n int
		for _, blockRewards := range result.Reward {
			if p >= len(blockRewards) {
				continue
			}
			sum += weiToGwei(blockRewards[p].ToInt())
			n++
		}
		if n > 0 {
			summary.tips[p] = sum / float64(n)
		}
	}

	return summary, nil
}

// rpcBlock holds the fields of eth_getBlockByNumber consumed for utilization.
type rpcBlock struct {
	Number       hexutil.Uint64 `json:"number"`
	GasUsed      hexutil.Uint64 `json:"gasUsed"`
	GasLimit     hexutil.Uint64 `json:"gasLimit"`
	Transactions []interface{}  `json:"transactions"`
}

// latestBlock fetches the newest block to fill the utilization signals and
// the sample's block reference. A failure here never fails the resolution.
func (r *Resolver) latestBlock(ctx context.Context, endpoint string, signals *types.FeeSignals) uint64 {
	var block rpcBlock
	if err := r.rpc.Call(ctx, endpoint, "eth_getBlockByNumber", &block, "latest", false); err != nil {
		r.logger.WithField("chain", r.config.Name).WithError(err).Debug("latest block unavailable")
		return 0
	}

	signals.LatestGasUsed = uint64(block.GasUsed)
	signals.LatestGasLimit = uint64(block.GasLimit)
	signals.LatestTxCount = uint64(len(block.Transactions))

	return uint64(block.Number)
}

// weiToGwei converts a wei quantity to float64 gwei.
func weiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}

	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(weiPerGwei)).Float64()
	return f
}
