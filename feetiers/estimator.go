// Package feetiers derives low/average/high fee recommendations and network
// utilization statistics from raw chain signals.
package feetiers

import (
	"github.com/chainpulse/gasfeed/common/types"
)

const (
	// lowFactor and highFactor bound the synthesized tier band and floor the
	// fee-history tiers against the current legacy gas price.
	lowFactor  = 0.85
	highFactor = 1.15
)

// Estimate derives fee tiers from one resolution's signals.
//
// When a fee-history window is available each tier is baseFee plus the
// matching percentile tip, floored by a fixed fraction of the legacy gas
// price so a thin or stale fee-history sample never produces a tier below
// what the chain is currently charging. Without fee history the tiers are a
// fixed band around the representative value.
//
// Parameters:
// - representative: the chain's representative fee value.
// - signals: the raw signals from the resolution, may be nil.
//
// Returns:
// - types.GasTiers: the derived tiers.
func Estimate(representative float64, signals *types.FeeSignals) types.GasTiers {
	if signals == nil || !signals.HasFeeHistory {
		return SynthesizeTiers(representative)
	}

	return types.GasTiers{
		Low:     max(signals.BaseFee+signals.TipP10, signals.GasPrice*lowFactor),
		Average: max(signals.BaseFee+signals.TipP50, signals.GasPrice),
		High:    max(signals.BaseFee+signals.TipP90, signals.GasPrice*highFactor),
		BaseFee: signals.BaseFee,
	}
}

// SynthesizeTiers builds a ±15% band around a single average value. The same
// approximation reconstructs tiers from persisted history, where only the
// average survives long-term.
func SynthesizeTiers(average float64) types.GasTiers {
	return types.GasTiers{
		Low:     average * lowFactor,
		Average: average,
		High:    average * highFactor,
	}
}

// EvmUtilization derives network statistics for an EVM chain: the mean
// gas-used ratio of the fee-history window when present, otherwise the latest
// block's gasUsed/gasLimit ratio.
func EvmUtilization(signals *types.FeeSignals) types.NetworkStats {
	if signals == nil {
		return types.NetworkStats{}
	}

	stats := types.NetworkStats{
		TxCount: signals.LatestTxCount,
		Used:    signals.LatestGasUsed,
		Limit:   signals.LatestGasLimit,
	}

	if len(signals.GasUsedRatio) > 0 {
		var sum float64
		for _, ratio := range signals.GasUsedRatio {
			sum += ratio
		}
		stats.UtilizationPct = sum / float64(len(signals.GasUsedRatio)) * 100
		return stats
	}

	if signals.LatestGasLimit > 0 {
		stats.UtilizationPct = float64(signals.LatestGasUsed) / float64(signals.LatestGasLimit) * 100
	}

	return stats
}

// SolanaUtilization derives network statistics for a Solana chain: the
// transactions-per-second rate of the most recent performance sample, 0 when
// no sample was available.
func SolanaUtilization(signals *types.FeeSignals) types.NetworkStats {
	if signals == nil || signals.SamplePeriodSecs <= 0 {
		return types.NetworkStats{}
	}

	return types.NetworkStats{
		TxCount:        signals.LatestTxCount,
		UtilizationPct: float64(signals.LatestTxCount) / signals.SamplePeriodSecs,
	}
}
