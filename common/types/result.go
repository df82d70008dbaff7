package types

import (
	"time"
)

// ChainGasResult is the per-chain output record of one aggregation pass.
// Constructed fresh on every pass and never mutated afterward.
//
// Fields:
// - ChainID: the chain identifier.
// - Name: the human-readable chain name.
// - Color: the chain's display color.
// - TokenSymbol: the native token ticker.
// - ChainType: the chain family tag.
// - Fee: the representative fee in the chain's native small unit.
// - SwapCostUsd: the estimated USD cost of a representative swap.
// - TokenPriceUsd: the native token price the cost was computed with.
// - BlockRef: the block number or slot the fee was observed at, 0 when unknown.
type ChainGasResult struct {
	ChainID       string    `json:"chainId"`
	Name          string    `json:"name"`
	Color         string    `json:"color"`
	TokenSymbol   string    `json:"tokenSymbol"`
	ChainType     ChainType `json:"family"`
	Fee           float64   `json:"representativeFee"`
	SwapCostUsd   float64   `json:"swapCostUsd"`
	TokenPriceUsd float64   `json:"tokenPriceUsd"`
	BlockRef      uint64    `json:"blockRef,omitempty"`
}

// Snapshot is the joined output of one aggregation pass. Chains whose
// resolution failed on every endpoint are absent from Results.
type Snapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Results   []ChainGasResult `json:"results"`
}

// HistoryPoint is one point of a windowed series.
//
// In the cross-chain view Costs maps chain ID to USD swap cost and the tier
// fields are zero. In the per-chain view Costs is nil and Low/Average/High
// carry the fee tiers reconstructed from the stored average.
type HistoryPoint struct {
	Timestamp time.Time          `json:"timestamp"`
	Costs     map[string]float64 `json:"costs,omitempty"`
	Low       float64            `json:"low,omitempty"`
	Average   float64            `json:"average,omitempty"`
	High      float64            `json:"high,omitempty"`
}
