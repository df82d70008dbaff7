package types

import (
	"context"
)

// ChainConfig holds the static configuration for a single monitored chain.
//
// Fields:
// - ID: the stable identifier used as the persistence and lookup key.
// - Name: the human-readable chain name.
// - Color: the display color for chart rendering.
// - Token: the price-oracle identifier of the chain's native token.
// - TokenSymbol: the ticker symbol of the native token.
// - RpcUrl: the primary RPC endpoint for the chain.
// - FallbackRpcUrls: redundant endpoints tried in order after the primary fails.
// - ChainType: the chain family (EVM or SOLANA).
// - EIP1559: whether the chain supports the eth_feeHistory fee model (EVM only).
// - SolSignatures: signatures in a representative Solana swap transaction.
// - SolComputeUnits: compute units in a representative Solana swap transaction.
//
// ChainConfig is immutable after load; the library never mutates it.
type ChainConfig struct {
	ID              string
	Name            string
	Color           string
	Token           string
	TokenSymbol     string
	RpcUrl          string
	FallbackRpcUrls []string
	ChainType       ChainType
	EIP1559         bool
	SolSignatures   uint64
	SolComputeUnits uint64
}

// Endpoints returns the primary endpoint followed by the fallbacks in
// configured order.
func (c *ChainConfig) Endpoints() []string {
	endpoints := make([]string, 0, len(c.FallbackRpcUrls)+1)
	endpoints = append(endpoints, c.RpcUrl)
	endpoints = append(endpoints, c.FallbackRpcUrls...)
	return endpoints
}

// FeeResolver produces a single representative fee value for one chain.
type FeeResolver interface {
	// Resolve queries the chain's endpoints for current fee conditions.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	//
	// Returns:
	// - *FeeSample: the representative fee sample, in the chain's native
	//   small unit (gwei for EVM, micro-lamports per compute unit for Solana).
	// - *FeeSignals: the raw signals the sample was derived from, for tier
	//   estimation. May be nil when the chain exposes no fee history.
	// - error: ErrAllEndpointsFailed if every configured endpoint failed.
	Resolve(ctx context.Context) (*FeeSample, *FeeSignals, error)
}

// HistoryStore persists aggregation snapshots and serves windowed series.
type HistoryStore interface {
	// Append stores one row per chain result in the snapshot. Append is safe
	// to call with snapshots that were already stored.
	Append(ctx context.Context, snapshot *Snapshot) error

	// QueryWindow returns the stored series for a single chain, or the
	// cross-chain USD cost series when chain is "all". The window is capped
	// at 168 hours and the result downsampled to at most 200 points.
	QueryWindow(ctx context.Context, chain string, hours int) ([]HistoryPoint, error)
}

// SnapshotCache holds the most recent aggregation snapshot for live reads.
type SnapshotCache interface {
	// SetLatest replaces the cached snapshot.
	SetLatest(ctx context.Context, snapshot *Snapshot) error

	// GetLatest returns the cached snapshot, or found=false when none is set.
	GetLatest(ctx context.Context) (snapshot *Snapshot, found bool, err error)
}
