package history

import (
	"context"
	"database/sql"
	"time"

	commonerrors "github.com/chainpulse/gasfeed/common/errors"
	"github.com/chainpulse/gasfeed/common/types"
	"github.com/chainpulse/gasfeed/feetiers"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// PostgresStore implements types.HistoryStore over a gas_snapshots table.
type PostgresStore struct {
	dbConnStr string
}

// NewPostgresStore creates a new PostgresStore instance with the provided
// connection string.
//
// Parameters:
// - connStr: the database connection string.
//
// Returns:
// - *PostgresStore: a pointer to the newly created store instance.
// - error: an error if the creation of the store fails.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	return &PostgresStore{
		dbConnStr: connStr,
	}, nil
}

// Append stores one row per chain result in the snapshot. Only the average
// fee value is persisted long-term; tiers are reconstructed on read.
func (s *PostgresStore) Append(ctx context.Context, snapshot *types.Snapshot) error {
	if snapshot == nil || len(snapshot.Results) == 0 {
		return nil
	}

	db, err := sql.Open("postgres", s.dbConnStr)
	if err != nil {
		return commonerrors.ErrDatabaseConnect
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin snapshot transaction")
	}

	for _, result := range snapshot.Results {
		_, err := tx.ExecContext(ctx, `
           INSERT INTO gas_snapshots (
               chain,
               avg_fee,
               swap_cost_usd,
               token_price_usd,
               block_ref,
               created_at
           ) VALUES ($1, $2, $3, $4, $5, $6)
       `,
			result.ChainID,
			result.Fee,
			result.SwapCostUsd,
			result.TokenPriceUsd,
			nullableBlockRef(result.BlockRef),
			snapshot.Timestamp,
		)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed to insert snapshot row for chain %s", result.ChainID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit snapshot transaction")
	}

	return nil
}

// QueryWindow returns the stored series for one chain, or the cross-chain
// USD cost series when chain is AllChains. The window is clamped to 7 days,
// points are ordered ascending by timestamp, and the result is downsampled
// to at most MaxPoints by uniform stride.
func (s *PostgresStore) QueryWindow(ctx context.Context, chain string, hours int) ([]types.HistoryPoint, error) {
	hours = clampWindowHours(hours)
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	db, err := sql.Open("postgres", s.dbConnStr)
	if err != nil {
		return nil, commonerrors.ErrDatabaseConnect
	}
	defer db.Close()

	if chain == AllChains {
		return s.queryAllChains(ctx, db, cutoff)
	}

	return s.queryChain(ctx, db, chain, cutoff)
}

// queryAllChains builds the cross-chain view: one point per collection pass
// with the USD swap cost of every chain persisted at that timestamp.
func (s *PostgresStore) queryAllChains(ctx context.Context, db *sql.DB, cutoff time.Time) ([]types.HistoryPoint, error) {
	rows, err := db.QueryContext(ctx, `
       SELECT chain, swap_cost_usd, created_at
       FROM gas_snapshots
       WHERE created_at >= $1
       ORDER BY created_at ASC
    `, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query snapshot window")
	}
	defer rows.Close()

	var points []types.HistoryPoint
	for rows.Next() {
		var chain string
		var cost float64
		var createdAt time.Time

		if err := rows.Scan(&chain, &cost, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan snapshot row")
		}

		// Rows of one collection pass share a timestamp and fold into one point.
		if n := len(points); n > 0 && points[n-1].Timestamp.Equal(createdAt) {
			points[n-1].Costs[chain] = cost
			continue
		}

		points = append(points, types.HistoryPoint{
			Timestamp: createdAt,
			Costs:     map[string]float64{chain: cost},
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read snapshot rows")
	}

	return downsample(points, MaxPoints), nil
}

// queryChain builds the per-chain view. Only the average fee survives in the
// schema, so low and high are reconstructed as a fixed band around it.
func (s *PostgresStore) queryChain(ctx context.Context, db *sql.DB, chain string, cutoff time.Time) ([]types.HistoryPoint, error) {
	rows, err := db.QueryContext(ctx, `
       SELECT avg_fee, created_at
       FROM gas_snapshots
       WHERE chain = $1 AND created_at >= $2
       ORDER BY created_at ASC
    `, chain, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query snapshot window")
	}
	defer rows.Close()

	var points []types.HistoryPoint
	for rows.Next() {
		var avgFee float64
		var createdAt time.Time

		if err := rows.Scan(&avgFee, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan snapshot row")
		}

		tiers := feetiers.SynthesizeTiers(avgFee)
		points = append(points, types.HistoryPoint{
			Timestamp: createdAt,
			Low:       tiers.Low,
			Average:   tiers.Average,
			High:      tiers.High,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read snapshot rows")
	}

	return downsample(points, MaxPoints), nil
}

// nullableBlockRef maps a zero block reference to NULL.
func nullableBlockRef(ref uint64) sql.NullInt64 {
	if ref == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(ref), Valid: true}
}
