// Package aggregator fans fee resolution and price lookups out across all
// configured chains and joins them into a single snapshot per pass.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/chainpulse/gasfeed/chains"
	commonerrors "github.com/chainpulse/gasfeed/common/errors"
	"github.com/chainpulse/gasfeed/common/types"
	"github.com/chainpulse/gasfeed/feetiers"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// SwapGasLimit is the representative gas usage of a swap transaction on
	// an EVM chain, used for USD cost estimation.
	SwapGasLimit = 150000
	// lamportsPerSignature is the Solana base fee per transaction signature.
	lamportsPerSignature = 5000
	// gweiPerNative converts gwei (or lamports) to the whole native unit.
	gweiPerNative = 1e9
	// microLamportsPerLamport converts priority fees to lamports.
	microLamportsPerLamport = 1e6
	// DefaultPersistInterval is the minimum spacing between persisted
	// snapshots, regardless of how often collection is invoked.
	DefaultPersistInterval = 60 * time.Second
	// persistTimeout bounds one background persistence attempt.
	persistTimeout = 15 * time.Second
)

// PriceSource serves USD prices for native tokens, keyed by token
// identifier. *priceoracle.Cache is the production implementation.
type PriceSource interface {
	GetPrices(ctx context.Context) map[string]float64
}

// Aggregator owns one fee resolver per configured chain plus the shared price
// cache, and joins their concurrent results into snapshots.
type Aggregator struct {
	logger    *logrus.Logger
	configs   []types.ChainConfig
	resolvers map[string]types.FeeResolver
	signals   sync.Map // chain ID -> *types.FeeSignals from the last pass
	oracle    PriceSource
	now       func() time.Time

	history         types.HistoryStore
	live            types.SnapshotCache
	persistInterval time.Duration
	persistMutex    sync.Mutex
	lastPersist     time.Time
}

// New creates an aggregator with one resolver per configured chain.
//
// Parameters:
// - configs: the chains to aggregate.
// - oracle: the shared price cache.
// - factory: the resolver factory, nil selects the built-in one.
// - rpcTimeout: the per-RPC-call timeout, zero for the default.
// - logger: the logger for logging events.
//
// Returns:
// - *Aggregator: the new aggregator instance.
// - error: an error if any chain's resolver cannot be constructed.
func New(configs []types.ChainConfig, oracle PriceSource, factory chains.ResolverFactory, rpcTimeout time.Duration, logger *logrus.Logger) (*Aggregator, error) {
	if factory == nil {
		factory = chains.NewResolverFactory()
	}

	resolvers := make(map[string]types.FeeResolver, len(configs))
	for i := range configs {
		resolver, err := factory.CreateResolver(&configs[i], rpcTimeout, logger)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create resolver for chain %s", configs[i].ID)
		}
		resolvers[configs[i].ID] = resolver
	}

	return &Aggregator{
		logger:          logger,
		configs:         configs,
		resolvers:       resolvers,
		oracle:          oracle,
		now:             time.Now,
		persistInterval: DefaultPersistInterval,
	}, nil
}

// WithHistoryStore sets the snapshot persistence collaborator.
//
// Parameters:
// - store: the history store implementation.
//
// Returns:
// - *Aggregator: the updated aggregator instance.
func (a *Aggregator) WithHistoryStore(store types.HistoryStore) *Aggregator {
	a.history = store
	return a
}

// WithSnapshotCache sets the live snapshot cache collaborator.
//
// Parameters:
// - cache: the snapshot cache implementation.
//
// Returns:
// - *Aggregator: the updated aggregator instance.
func (a *Aggregator) WithSnapshotCache(cache types.SnapshotCache) *Aggregator {
	a.live = cache
	return a
}

// WithPersistInterval sets the minimum spacing between persisted snapshots.
//
// Parameters:
// - interval: the minimum interval between history writes.
//
// Returns:
// - *Aggregator: the updated aggregator instance.
func (a *Aggregator) WithPersistInterval(interval time.Duration) *Aggregator {
	a.persistInterval = interval
	return a
}

// CollectAll resolves fees for every configured chain and refreshes prices
// concurrently, then joins the results into a snapshot.
//
// Chains whose resolution failed on every endpoint are omitted from the
// snapshot rather than zero-filled; one chain's outage never affects another
// chain or the batch. The snapshot is handed to the history store and live
// cache in the background, so a persistence failure never surfaces here.
//
// Parameters:
// - ctx: the context for managing the pass.
//
// Returns:
// - *types.Snapshot: the joined results of the pass.
// - error: ErrEmptyConfig when no chains are configured.
func (a *Aggregator) CollectAll(ctx context.Context) (*types.Snapshot, error) {
	if len(a.configs) == 0 {
		return nil, commonerrors.ErrEmptyConfig
	}

	var wg sync.WaitGroup

	var prices map[string]float64
	wg.Add(1)
	go func() {
		defer wg.Done()
		prices = a.oracle.GetPrices(ctx)
	}()

	samples := make([]*types.FeeSample, len(a.configs))
	passSignals := make([]*types.FeeSignals, len(a.configs))

	for i := range a.configs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			config := &a.configs[i]
			sample, sig, err := a.resolvers[config.ID].Resolve(ctx)
			if err != nil {
				a.logger.WithField("chain", config.Name).WithError(err).Warn("chain dropped from pass")
				return
			}

			samples[i] = sample
			passSignals[i] = sig
		}(i)
	}

	wg.Wait()

	snapshot := &types.Snapshot{
		Timestamp: a.now(),
		Results:   make([]types.ChainGasResult, 0, len(a.configs)),
	}

	for i := range a.configs {
		if samples[i] == nil {
			continue
		}

		config := &a.configs[i]
		price := prices[config.Token]

		snapshot.Results = append(snapshot.Results, types.ChainGasResult{
			ChainID:       config.ID,
			Name:          config.Name,
			Color:         config.Color,
			TokenSymbol:   config.TokenSymbol,
			ChainType:     config.ChainType,
			Fee:           samples[i].Value,
			SwapCostUsd:   swapCostUsd(config, samples[i].Value, price),
			TokenPriceUsd: price,
			BlockRef:      samples[i].BlockRef,
		})

		if passSignals[i] != nil {
			a.signals.Store(config.ID, passSignals[i])
		}
	}

	a.persist(snapshot)

	return snapshot, nil
}

// EstimateTiers returns the fee tiers and network statistics for one chain,
// resolving its current signals on demand.
//
// Parameters:
// - ctx: the context for managing the request.
// - chainID: the chain to estimate.
//
// Returns:
// - types.GasTiers: the low/average/high recommendation.
// - types.NetworkStats: current utilization statistics.
// - error: ErrChainNotFound for an unknown chain, ErrAllEndpointsFailed on
//   total outage.
func (a *Aggregator) EstimateTiers(ctx context.Context, chainID string) (types.GasTiers, types.NetworkStats, error) {
	config := a.configByID(chainID)
	if config == nil {
		return types.GasTiers{}, types.NetworkStats{}, commonerrors.ErrChainNotFound
	}

	sample, sig, err := a.resolvers[chainID].Resolve(ctx)
	if err != nil {
		return types.GasTiers{}, types.NetworkStats{}, err
	}

	tiers := feetiers.Estimate(sample.Value, sig)

	var stats types.NetworkStats
	switch config.ChainType {
	case types.SOLANA:
		stats = feetiers.SolanaUtilization(sig)
	default:
		stats = feetiers.EvmUtilization(sig)
	}

	return tiers, stats, nil
}

// LastSignals returns the raw signals observed for a chain on the most recent
// pass that included it, or found=false when the chain has not resolved yet.
func (a *Aggregator) LastSignals(chainID string) (*types.FeeSignals, bool) {
	value, ok := a.signals.Load(chainID)
	if !ok {
		return nil, false
	}
	return value.(*types.FeeSignals), true
}

// configByID returns the configuration for a chain ID, nil when unknown.
func (a *Aggregator) configByID(chainID string) *types.ChainConfig {
	for i := range a.configs {
		if a.configs[i].ID == chainID {
			return &a.configs[i]
		}
	}
	return nil
}

// swapCostUsd estimates the USD cost of a representative swap transaction.
// EVM: fee in gwei times a fixed swap gas limit, converted to the native
// unit. Solana: the base signature fee plus the priority fee across the
// transaction's compute units, converted to SOL. Clamped at zero.
func swapCostUsd(config *types.ChainConfig, fee float64, price float64) float64 {
	var cost float64

	switch config.ChainType {
	case types.SOLANA:
		lamports := float64(lamportsPerSignature*config.SolSignatures) +
			fee*float64(config.SolComputeUnits)/microLamportsPerLamport
		cost = lamports / gweiPerNative * price
	default:
		cost = fee * SwapGasLimit / gweiPerNative * price
	}

	if cost < 0 {
		return 0
	}

	return cost
}
