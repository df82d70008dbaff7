package types

import (
	"time"
)

// FeeSample is a single observation of a chain's representative fee.
//
// Fields:
// - ChainID: the chain the sample was taken from.
// - Value: the fee in the chain's native small unit (gwei for EVM,
//   micro-lamports per compute unit for Solana).
// - BlockRef: the block number or slot the sample refers to, 0 when unknown.
// - ObservedAt: the time the sample was taken.
type FeeSample struct {
	ChainID    string
	Value      float64
	BlockRef   uint64
	ObservedAt time.Time
}

// FeeSignals carries the raw fee signals one resolution produced, used by the
// tier estimator. GasPrice is always set for EVM chains; the fee-history
// fields are populated only when HasFeeHistory is true. The Latest* fields
// describe the most recent block and back the utilization statistics.
type FeeSignals struct {
	GasPrice       float64
	BaseFee        float64
	TipP10         float64
	TipP50         float64
	TipP90         float64
	GasUsedRatio   []float64
	HasFeeHistory  bool
	LatestGasUsed  uint64
	LatestGasLimit uint64
	LatestTxCount  uint64
	// SamplePeriodSecs is the Solana performance sample period backing
	// LatestTxCount, 0 when no sample was available.
	SamplePeriodSecs float64
}

// GasTiers holds the low/average/high fee recommendation for one chain.
// BaseFee is the protocol base-fee component, present for EIP-1559 chains.
type GasTiers struct {
	Low     float64 `json:"low"`
	Average float64 `json:"average"`
	High    float64 `json:"high"`
	BaseFee float64 `json:"baseFee,omitempty"`
}

// NetworkStats describes current network utilization.
//
// For EVM chains Used/Limit are the latest block's gas figures and
// UtilizationPct their ratio. For Solana, UtilizationPct carries the
// transactions-per-second rate and TxCount the sampled transaction count.
type NetworkStats struct {
	TxCount        uint64  `json:"txCount"`
	Used           uint64  `json:"used"`
	Limit          uint64  `json:"limit"`
	UtilizationPct float64 `json:"utilizationPct"`
}
