// Package cache holds the current channel snapshot and decides when to reload it.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/criollotv/criollotv/internal/catalog"
	"github.com/criollotv/criollotv/internal/logging"
	"github.com/criollotv/criollotv/internal/metrics"
)

// DefaultTTL is how long a snapshot is served without touching the network.
const DefaultTTL = 5 * time.Minute

// Source produces a complete channel list.
type Source interface {
	// Name identifies the source in snapshots and logs (usually its URL).
	Name() string
	Load(ctx context.Context) ([]catalog.Channel, error)
}

// LoadError is returned when a load fails and there is no earlier snapshot to
// fall back on.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load channels from %s: %v", logging.RedactURL(e.Source), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Cache is a TTL cache of one channel snapshot. Readers never block on a
// refresh in progress; a successful load replaces the snapshot atomically.
// Concurrent refreshes are not coalesced; the last one to finish wins.
type Cache struct {
	TTL time.Duration
	// OnReplace, when set, is called after every successful replacement
	// (e.g. to persist the snapshot).
	OnReplace func(*catalog.Snapshot)

	log  *logrus.Entry
	now  func() time.Time
	snap atomic.Pointer[catalog.Snapshot]
	// installMu orders installs against Invalidate: gen changes whenever the
	// source changes or the cache is invalidated, and a load started under an
	// older gen does not replace the snapshot.
	installMu sync.Mutex
	gen       atomic.Uint64
	// fresh is false after Invalidate until the next successful load.
	fresh atomic.Bool

	srcMu sync.RWMutex
	src   Source
}

// New returns a cache over src. ttl <= 0 uses DefaultTTL.
func New(src Source, ttl time.Duration, log *logrus.Entry) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Cache{TTL: ttl, log: log, now: time.Now, src: src}
}

// Channels returns the current channel list. Unless forceRefresh is set, a
// snapshot younger than TTL is returned with no I/O. Otherwise the source is
// loaded; on failure the previous snapshot is served stale, and only when
// there is none does Channels return a *LoadError.
func (c *Cache) Channels(ctx context.Context, forceRefresh bool) ([]catalog.Channel, error) {
	cur := c.snap.Load()
	if !forceRefresh && c.isFresh(cur) {
		metrics.CacheReads.WithLabelValues("hit").Inc()
		return cur.ChannelsCopy(), nil
	}
	next, err := c.Refresh(ctx)
	if err == nil {
		metrics.CacheReads.WithLabelValues("refresh").Inc()
		return next.ChannelsCopy(), nil
	}
	if cur = c.snap.Load(); cur != nil {
		metrics.CacheReads.WithLabelValues("stale").Inc()
		c.log.WithError(err).WithFields(logrus.Fields{
			"age":      c.now().Sub(cur.FetchedAt).Round(time.Second).String(),
			"channels": len(cur.Channels),
		}).Warn("channel refresh failed, serving stale snapshot")
		return cur.ChannelsCopy(), nil
	}
	metrics.CacheReads.WithLabelValues("error").Inc()
	return nil, err
}

// Refresh loads the source now and, on success, replaces the snapshot.
// Errors are always *LoadError.
func (c *Cache) Refresh(ctx context.Context) (*catalog.Snapshot, error) {
	gen := c.gen.Load()
	src := c.Source()
	if src == nil {
		return nil, &LoadError{Source: "", Err: fmt.Errorf("no channel source configured")}
	}
	start := c.now()
	channels, err := src.Load(ctx)
	if err != nil {
		return nil, &LoadError{Source: src.Name(), Err: err}
	}
	next := catalog.NewSnapshot(channels, src.Name(), c.now())
	if !c.install(next, gen) {
		// source changed mid-flight; hand the result back without installing it
		return next, nil
	}
	c.log.WithFields(logrus.Fields{
		"source":   logging.RedactURL(src.Name()),
		"channels": len(channels),
		"dur":      c.now().Sub(start).Round(time.Millisecond).String(),
	}).Info("channel snapshot replaced")
	return next, nil
}

// install stores s if no Invalidate happened since gen was read.
func (c *Cache) install(s *catalog.Snapshot, gen uint64) bool {
	c.installMu.Lock()
	if c.gen.Load() != gen {
		c.installMu.Unlock()
		return false
	}
	c.snap.Store(s)
	c.fresh.Store(true)
	c.installMu.Unlock()

	metrics.CacheChannels.Set(float64(len(s.Channels)))
	if c.OnReplace != nil {
		c.OnReplace(s)
	}
	return true
}

func (c *Cache) isFresh(s *catalog.Snapshot) bool {
	return s != nil && c.fresh.Load() && c.now().Sub(s.FetchedAt) < c.TTL
}

// Warm installs a previously persisted snapshot as the stale fallback. It is
// treated as expired so the next read still tries the source.
func (c *Cache) Warm(s *catalog.Snapshot) {
	if s == nil {
		return
	}
	c.snap.CompareAndSwap(nil, s)
	metrics.CacheChannels.Set(float64(len(c.snap.Load().Channels)))
}

// Invalidate marks the current snapshot expired; it stays available as the
// stale fallback.
func (c *Cache) Invalidate() {
	c.installMu.Lock()
	c.gen.Add(1)
	c.fresh.Store(false)
	c.installMu.Unlock()
}

// SetSource swaps the source and invalidates the cache.
func (c *Cache) SetSource(src Source) {
	c.srcMu.Lock()
	c.src = src
	c.srcMu.Unlock()
	c.Invalidate()
}

// Source returns the current source.
func (c *Cache) Source() Source {
	c.srcMu.RLock()
	defer c.srcMu.RUnlock()
	return c.src
}

// Snapshot returns the current snapshot, or nil before the first load.
func (c *Cache) Snapshot() *catalog.Snapshot {
	return c.snap.Load()
}

// Fresh reports whether a read right now would be served without I/O.
func (c *Cache) Fresh() bool {
	return c.isFresh(c.snap.Load())
}
