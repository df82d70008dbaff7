package solana

import (
	"context"
	"sort"
	"time"

	commonerrors "github.com/chainpulse/gasfeed/common/errors"
	"github.com/chainpulse/gasfeed/common/types"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// defaultTimeout bounds a single RPC attempt against one endpoint.
const defaultTimeout = 10 * time.Second

// Resolver produces a representative priority fee for one Solana chain, in
// micro-lamports per compute unit.
type Resolver struct {
	config  *types.ChainConfig // Chain configuration.
	logger  *logrus.Logger     // Logger for logging events.
	timeout time.Duration      // Per-attempt timeout.
}

// NewResolver creates a new Solana fee resolver.
//
// Parameters:
// - config: the chain configuration.
// - timeout: the per-RPC-call timeout, zero for the default.
// - logger: the logger for logging events.
//
// Returns:
// - *Resolver: a new Solana resolver instance.
// - error: an error if the configuration has no endpoints.
func NewResolver(config *types.ChainConfig, timeout time.Duration, logger *logrus.Logger) (*Resolver, error) {
	if config.RpcUrl == "" {
		return nil, errors.New("no rpc endpoint configured")
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Resolver{
		config:  config,
		logger:  logger,
		timeout: timeout,
	}, nil
}

// Resolve tries the primary endpoint, then each fallback in configured order,
// returning the first successful result. A zero priority fee is a valid
// result (an uncongested network), distinct from total RPC failure.
func (r *Resolver) Resolve(ctx context.Context) (*types.FeeSample, *types.FeeSignals, error) {
	for _, endpoint := range r.config.Endpoints() {
		sample, signals, err := r.resolveEndpoint(ctx, endpoint)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"chain":    r.config.Name,
				"endpoint": endpoint,
			}).WithError(err).Warn("Solana endpoint attempt failed")
			continue
		}

		return sample, signals, nil
	}

	return nil, nil, errors.Wrap(commonerrors.ErrAllEndpointsFailed, r.config.Name)
}

// resolveEndpoint performs one fee observation against a single endpoint.
// The representative value is the median of the strictly-positive recent
// prioritization fees; an empty or all-zero sample set resolves to 0.
func (r *Resolver) resolveEndpoint(ctx context.Context, endpoint string) (*types.FeeSample, *types.FeeSignals, error) {
	client := rpc.New(endpoint)
	defer client.Close()

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fees, err := client.GetRecentPrioritizationFees(callCtx, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get recent prioritization fees")
	}

	var slot uint64
	positive := make([]float64, 0, len(fees))
	for _, fee := range fees {
		if fee.Slot > slot {
			slot = fee.Slot
		}
		if fee.PrioritizationFee > 0 {
			positive = append(positive, float64(fee.PrioritizationFee))
		}
	}

	sample := &types.FeeSample{
		ChainID:    r.config.ID,
		Value:      median(positive),
		BlockRef:   slot,
		ObservedAt: time.Now(),
	}

	txCount, periodSecs := r.performanceSample(ctx, client)
	signals := &types.FeeSignals{
		LatestTxCount:    txCount,
		SamplePeriodSecs: periodSecs,
	}

	return sample, signals, nil
}

// performanceSample returns the transaction count and period of the most
// recent performance sample, zeros when the sample is unavailable. The
// statistic is cosmetic, so a failure here never fails the resolution.
func (r *Resolver) performanceSample(ctx context.Context, client *rpc.Client) (uint64, float64) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	limit := uint(1)
	samples, err := client.GetRecentPerformanceSamples(callCtx, &limit)
	if err != nil || len(samples) == 0 || samples[0] == nil {
		r.logger.WithField("chain", r.config.Name).Debug("performance sample unavailable")
		return 0, 0
	}

	return samples[0].NumTransactions, float64(samples[0].SamplePeriodSecs)
}

// median returns the median of the values, 0 for an empty set.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sort.Float64s(values)

	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}

	return (values[mid-1] + values[mid]) / 2
}
