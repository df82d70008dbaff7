// Package history persists aggregation snapshots and serves bounded,
// downsampled time-windowed series for charting.
package history

import (
	"github.com/chainpulse/gasfeed/common/types"
)

const (
	// AllChains selects the cross-chain USD cost view in QueryWindow.
	AllChains = "all"
	// MaxWindowHours caps the retrieval window at 7 days.
	MaxWindowHours = 168
	// MaxPoints caps the number of returned points per query.
	MaxPoints = 200
)

// clampWindowHours bounds a requested window to 1..MaxWindowHours.
func clampWindowHours(hours int) int {
	if hours < 1 {
		return 1
	}
	if hours > MaxWindowHours {
		return MaxWindowHours
	}
	return hours
}

// downsample reduces points to at most max entries by uniform stride
// selection, preserving temporal order. The input must already be ordered.
func downsample(points []types.HistoryPoint, max int) []types.HistoryPoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	stride := (len(points) + max - 1) / max
	sampled := make([]types.HistoryPoint, 0, max)
	for i := 0; i < len(points); i += stride {
		sampled = append(sampled, points[i])
	}

	return sampled
}
