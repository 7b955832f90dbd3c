package dbx

import (
	"context"
	"fmt"
	"time"

	"github.com/godbcore/go-db-core/pkg/logx"
)

// Reaper periodically evicts expired connections from a pool. It is an
// optimization that bounds idle churn between acquisitions; correctness does
// not depend on it because Acquire re-checks age before every handout.
type Reaper struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartReaper runs EvictExpired on the pool every interval until Stop is
// called or rootCtx is cancelled.
func StartReaper(rootCtx context.Context, pool *ConnPool, interval time.Duration) *Reaper {
	ctx, cancel := context.WithCancel(rootCtx)
	reaper := &Reaper{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(reaper.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if count := pool.EvictExpired(ctx); count > 0 {
					logx.GetLogger().LogDebug(ctx, fmt.Sprintf("Reaper evicted %d expired connections", count))
				}
			}
		}
	}()

	return reaper
}

// Stop terminates the reaper goroutine and waits for it to exit.
func (r *Reaper) Stop() {
	r.cancel()
	<-r.done
}
