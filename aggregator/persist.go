package aggregator

import (
	"context"

	"github.com/chainpulse/gasfeed/common/types"
)

// persist hands the snapshot to the history store and live cache in the
// background. The live path is fire-and-forget on every pass; the history
// path is throttled to one write per persist interval so triggering
// collection more often than the sampling granularity does not produce
// redundant rows. Failures are logged, never propagated to the caller.
func (a *Aggregator) persist(snapshot *types.Snapshot) {
	if len(snapshot.Results) == 0 {
		return
	}

	if a.live != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()

			if err := a.live.SetLatest(ctx, snapshot); err != nil {
				a.logger.WithError(err).Warn("failed to update live snapshot cache")
			}
		}()
	}

	if a.history == nil {
		return
	}

	a.persistMutex.Lock()
	if !a.lastPersist.IsZero() && a.now().Sub(a.lastPersist) < a.persistInterval {
		a.persistMutex.Unlock()
		return
	}
	a.lastPersist = a.now()
	a.persistMutex.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := a.history.Append(ctx, snapshot); err != nil {
			a.logger.WithError(err).Error("failed to persist snapshot")
		}
	}()
}
