// evictor.go houses the idle sweep for Cache.  Every SweepInterval it scans
// the table and removes sessions idle longer than IdleTTL, whether or not
// the cache is under capacity pressure.  LRU eviction happens inline on
// insert (see cache.go), so the table never exceeds MaxEntries and the
// sweep has no LRU pass.
//
// Each eviction is logged and counted.  Closing runs in its own goroutine.
package tenant

import (
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/metrics"
)

func (c *Cache) sweepLoop(interval time.Duration) {
	defer close(c.done)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			c.Sweep()
		}
	}
}

// Sweep evicts every entry idle longer than IdleTTL and returns how many
// were removed.  The background loop calls it; tests may call it directly.
func (c *Cache) Sweep() int {
	now := c.opts.Now()

	type idleEntry struct {
		evicted
		idle time.Duration
	}
	var stale []idleEntry

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	for k, e := range c.entries {
		if idle := now.Sub(e.lastAccess); idle > c.opts.IdleTTL {
			stale = append(stale, idleEntry{evicted{key: k, session: e.session}, idle})
			delete(c.entries, k)
		}
	}
	c.disposing.Add(len(stale))
	c.mu.Unlock()

	for _, s := range stale {
		c.log.Info("tenant session evicted after idle",
			zap.String("key", s.key.String()),
			zap.Duration("idle", s.idle.Truncate(time.Second)))
		metrics.SessionEvictTotal.WithLabelValues(metrics.ReasonIdle).Inc()
		metrics.ActiveSessions.Dec()
		go c.dispose(s.evicted, metrics.ReasonIdle)
	}
	return len(stale)
}
