// internal/tenant/cache.go
//
// Bounded, time-aware cache of tenant sessions.
//
// Context
// -------
// Get is the single entry point.  A hit refreshes lastAccess under the cache
// mutex and returns at once.  A miss joins (or starts) a singleflight call
// keyed by the session key, so any number of concurrent requests for a cold
// tenant share one Factory.Create.  Inside the flight the table is checked
// again, because a flight that finished a moment earlier may already have
// inserted the session.
//
// Insertion evicts least-recently-used entries until there is room.  Evicted
// sessions are closed by a goroutine; neither the insert path nor the caller
// waits for that.  Idle eviction lives in evictor.go.
//
// Notes
// -----
//   - The entry table is mutated only while mu is held, and no I/O happens
//     under mu.
//   - Failures are never cached.  The flight ends, and the next Get retries.
//   - A flight's result is checked against the table before it is handed
//     out, so no caller receives a session that was evicted in between.
//   - A session closed by eviction may still be in use by a request that
//     borrowed it earlier.  See DESIGN.md.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/tenancy/internal/metrics"
)

// Static defaults.  Override via Options (normally from config).
const (
	DefaultIdleTTL        = 10 * time.Minute
	DefaultMaxEntries     = 100
	DefaultSweepInterval  = time.Minute
	DefaultCreateTimeout  = 10 * time.Second
	DefaultDisposeTimeout = 15 * time.Second
)

// Options configures a Cache.  Zero fields take the defaults above.
type Options struct {
	MaxEntries     int
	IdleTTL        time.Duration
	SweepInterval  time.Duration
	CreateTimeout  time.Duration
	DisposeTimeout time.Duration

	Logger *zap.Logger      // defaults to zap.L()
	Now    func() time.Time // defaults to time.Now
}

func (o Options) withDefaults() Options {
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = DefaultIdleTTL
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.CreateTimeout <= 0 {
		o.CreateTimeout = DefaultCreateTimeout
	}
	if o.DisposeTimeout <= 0 {
		o.DisposeTimeout = DefaultDisposeTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.L()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Cache owns every open tenant session.  Create with New; release with
// Close.
type Cache struct {
	factory Factory
	opts    Options
	log     *zap.Logger

	sfg singleflight.Group

	mu      sync.Mutex
	entries map[Key]*entry
	closed  bool

	disposing sync.WaitGroup
	stop      chan struct{}
	done      chan struct{}

	onInsert func(Key) // tests only; runs after insert releases mu
}

type createResult struct {
	s   Session
	err error
}

// evicted is a session removed from the table, waiting to be closed.
type evicted struct {
	key     Key
	session Session
}

// New constructs a Cache and starts the background idle sweeper.
func New(factory Factory, opts Options) *Cache {
	opts = opts.withDefaults()
	c := &Cache{
		factory: factory,
		opts:    opts,
		log:     opts.Logger.Named("tenant.cache"),
		entries: make(map[Key]*entry, opts.MaxEntries),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.sweepLoop(opts.SweepInterval)
	return c
}

// Get returns the session for id, opening it on demand.
func (c *Cache) Get(ctx context.Context, id ID) (Session, error) {
	if id.Blank() {
		return nil, ErrMissingTenantID
	}
	key := KeyFor(id)

	for {
		s, ok, err := c.lookup(key)
		if err != nil {
			return nil, err
		}
		if ok {
			metrics.CacheHitsTotal.Inc()
			return s, nil
		}
		metrics.CacheMissesTotal.Inc()

		ch := c.sfg.DoChan(string(key), func() (any, error) {
			return c.create(ctx, id, key)
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			s := res.Val.(Session)
			// Another insert may have evicted s before the flight delivered
			// it.  Only hand out what is still in the table.
			held, err := c.holds(key, s)
			if err != nil {
				return nil, err
			}
			if held {
				return s, nil
			}
			c.log.Debug("tenant session evicted before delivery", zap.String("key", key.String()))
		case <-ctx.Done():
			// The flight carries on for the other waiters.
			return nil, ctx.Err()
		}
	}
}

// Len reports the number of cached sessions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether id currently has a cached session.  It does not
// refresh lastAccess.
func (c *Cache) Contains(id ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[KeyFor(id)]
	return ok
}

// Close stops the sweeper, removes every entry, and closes every session.
// It then waits, bounded by ctx, for disposals started earlier.  Get fails
// with ErrCacheClosed afterwards.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	all := make([]evicted, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, evicted{key: k, session: e.session})
	}
	clear(c.entries)
	c.mu.Unlock()

	close(c.stop)
	<-c.done

	metrics.ActiveSessions.Sub(float64(len(all)))
	metrics.SessionEvictTotal.WithLabelValues(metrics.ReasonShutdown).Add(float64(len(all)))

	var g errgroup.Group
	g.SetLimit(8)
	for _, v := range all {
		g.Go(func() error { return c.closeSession(v.key, v.session, metrics.ReasonShutdown) })
	}
	err := g.Wait()

	waited := make(chan struct{})
	go func() {
		c.disposing.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.log.Info("tenant session cache closed", zap.Int("disposed", len(all)))
	return err
}

//
// internals
//

// lookup serves the hit path.
func (c *Cache) lookup(key Key) (Session, bool, error) {
	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false, ErrCacheClosed
	}
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	e.touch(now)
	return e.session, true, nil
}

// holds reports whether s is still the cached session for key.
func (c *Cache) holds(key Key, s Session) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrCacheClosed
	}
	e, ok := c.entries[key]
	return ok && e.session == s, nil
}

// create runs inside the singleflight barrier for key.
func (c *Cache) create(ctx context.Context, id ID, key Key) (any, error) {
	// Double-check after singleflight barrier.
	if s, ok, err := c.lookup(key); err != nil || ok {
		return s, err
	}

	// The initiating request may go away; the other waiters still need the
	// result, so only the timeout bounds the factory call.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.CreateTimeout)
	defer cancel()

	out := make(chan createResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				out <- createResult{err: fmt.Errorf("factory panic: %v", r)}
			}
		}()
		s, err := c.factory.Create(cctx, id)
		out <- createResult{s: s, err: err}
	}()

	var r createResult
	select {
	case r = <-out:
	case <-cctx.Done():
		r.err = ErrCreateTimeout
		go c.abandon(key, out)
	}
	if r.err == nil && r.s == nil {
		r.err = errors.New("factory returned no session")
	}

	if r.err != nil {
		metrics.SessionOpenErrorsTotal.Inc()
		err := creationError(key, r.err)
		c.log.Warn("tenant session open failed", zap.String("key", key.String()), zap.Error(err))
		return nil, err
	}
	s, err := c.insert(key, r.s)
	if err == nil && c.onInsert != nil {
		c.onInsert(key)
	}
	return s, err
}

// abandon closes a session that arrives after its creation timed out.
func (c *Cache) abandon(key Key, out <-chan createResult) {
	if late := <-out; late.s != nil {
		_ = c.closeSession(key, late.s, "timeout")
	}
}

// insert stores s, evicting LRU entries first when the table is full.
func (c *Cache) insert(key Key, s Session) (Session, error) {
	now := c.opts.Now()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = c.closeSession(key, s, metrics.ReasonShutdown)
		return nil, ErrCacheClosed
	}
	var victims []evicted
	for len(c.entries) >= c.opts.MaxEntries {
		victims = append(victims, c.evictLRULocked())
	}
	c.entries[key] = &entry{session: s, createdAt: now, lastAccess: now}
	c.disposing.Add(len(victims))
	c.mu.Unlock()

	metrics.SessionOpenTotal.Inc()
	metrics.ActiveSessions.Add(float64(1 - len(victims)))
	c.log.Info("tenant session opened", zap.String("key", key.String()))

	for _, v := range victims {
		metrics.SessionEvictTotal.WithLabelValues(metrics.ReasonLRU).Inc()
		c.log.Info("tenant session evicted (LRU pressure)", zap.String("key", v.key.String()))
		go c.dispose(v, metrics.ReasonLRU)
	}
	return s, nil
}

// evictLRULocked removes and returns the least-recently-used entry.  The
// caller holds mu and the table is non-empty.
func (c *Cache) evictLRULocked() evicted {
	var (
		oldKey Key
		oldest *entry
	)
	for k, e := range c.entries {
		if oldest == nil || e.olderThan(oldest) {
			oldKey, oldest = k, e
		}
	}
	delete(c.entries, oldKey)
	return evicted{key: oldKey, session: oldest.session}
}

// dispose closes an evicted session.  The caller has already counted it in
// c.disposing.
func (c *Cache) dispose(v evicted, reason string) {
	defer c.disposing.Done()
	_ = c.closeSession(v.key, v.session, reason)
}

// closeSession closes s within DisposeTimeout.  Failures are logged and
// counted, never propagated to a Get caller.
func (c *Cache) closeSession(key Key, s Session, reason string) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("close panic: %v", r)
			}
		}()
		done <- s.Close()
	}()

	timer := time.NewTimer(c.opts.DisposeTimeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-done:
	case <-timer.C:
		err = errors.New("close did not finish within " + c.opts.DisposeTimeout.String())
	}
	if err != nil {
		metrics.SessionDisposeErrorsTotal.Inc()
		c.log.Warn("tenant session dispose failed",
			zap.String("key", key.String()),
			zap.String("reason", reason),
			zap.Error(err))
		return fmt.Errorf("dispose %s: %w", key, err)
	}
	c.log.Debug("tenant session disposed",
		zap.String("key", key.String()),
		zap.String("reason", reason))
	return nil
}
