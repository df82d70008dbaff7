// Package livecache caches the most recent aggregation snapshot for
// dashboard reads, decoupled from durable history persistence.
package livecache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chainpulse/gasfeed/common/types"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	// snapshotKey holds the JSON-marshalled latest snapshot.
	snapshotKey = "gasfeed:snapshot:latest"
	// defaultExpiry keeps a dead collector from serving arbitrarily old data.
	defaultExpiry = 10 * time.Minute
)

// RedisCache implements types.SnapshotCache on a single redis key.
type RedisCache struct {
	cli    *redis.Client
	expiry time.Duration
}

// NewRedisCache creates a new snapshot cache against the given redis server.
//
// Parameters:
// - addr: the redis server address.
// - db: the redis database number.
//
// Returns:
// - *RedisCache: the new cache instance.
func NewRedisCache(addr string, db int) *RedisCache {
	cli := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	return &RedisCache{cli: cli, expiry: defaultExpiry}
}

// Close releases the underlying redis connection.
func (r *RedisCache) Close() error {
	return r.cli.Close()
}

// SetLatest replaces the cached snapshot.
func (r *RedisCache) SetLatest(ctx context.Context, snapshot *types.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot")
	}

	if err := r.cli.Set(ctx, snapshotKey, payload, r.expiry).Err(); err != nil {
		return errors.Wrap(err, "failed to store snapshot")
	}

	return nil
}

// GetLatest returns the cached snapshot, or found=false when none is set or
// the previous one expired.
func (r *RedisCache) GetLatest(ctx context.Context) (*types.Snapshot, bool, error) {
	payload, err := r.cli.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to read snapshot")
	}

	var snapshot types.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, false, errors.Wrap(err, "failed to unmarshal snapshot")
	}

	return &snapshot, true, nil
}
