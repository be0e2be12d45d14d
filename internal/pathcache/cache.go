// Package pathcache memoises search results by origin and destination.
//
// The cache has no eviction order: once it holds Capacity entries the next insert of a
// new key clears the whole table first. Entries carry their creation time and are only
// checked against the TTL when they are looked up.
package pathcache

import (
	"sync"
	"time"

	"voxelnav/internal/pathfinding"
	"voxelnav/internal/world"
)

const (
	DefaultCapacity = 50
	DefaultTTL      = 30 * time.Second
)

// Key identifies a cached path. Options is zero unless the cache was built to key by
// options.
type Key struct {
	Origin      world.Coord
	Destination world.Coord
	Options     uint32
}

// Entry is a cached path and the time it was stored.
type Entry struct {
	Path      pathfinding.Path
	CreatedAt time.Time
}

// Expired reports whether the entry is older than ttl. A non-positive ttl never expires.
func (e Entry) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) > ttl
}

// Stats is a point-in-time view of cache usage.
type Stats struct {
	Size     int
	Capacity int
	Hits     int64
	Misses   int64
	Expired  int64
	Clears   int64
}

// Config controls cache sizing and keying.
type Config struct {
	Capacity     int
	TTL          time.Duration
	KeyByOptions bool
}

// Cache is safe for concurrent use.
type Cache struct {
	mu           sync.Mutex
	capacity     int
	ttl          time.Duration
	keyByOptions bool
	now          func() time.Time
	entries      map[Key]Entry

	hits    int64
	misses  int64
	expired int64
	clears  int64
}

func New(cfg Config) *Cache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	return &Cache{
		capacity:     cfg.Capacity,
		ttl:          cfg.TTL,
		keyByOptions: cfg.KeyByOptions,
		now:          time.Now,
		entries:      make(map[Key]Entry, cfg.Capacity),
	}
}

// SetClock replaces the time source, for tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	c.now = now
}

// KeyFor builds the lookup key for a request.
func (c *Cache) KeyFor(origin, destination world.Coord, opts pathfinding.Options) Key {
	key := Key{Origin: origin, Destination: destination}
	if c.keyByOptions {
		key.Options = opts.Fingerprint()
	}
	return key
}

// Get returns the cached path for key. Entries older than the TTL are reported as a
// miss and dropped.
func (c *Cache) Get(key Key) (pathfinding.Path, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return pathfinding.Path{}, false
	}
	if entry.Expired(c.now(), c.ttl) {
		delete(c.entries, key)
		c.expired++
		c.misses++
		return pathfinding.Path{}, false
	}
	c.hits++
	return entry.Path, true
}

// Put stores path under key. When the table is full and key is new, every entry is
// dropped first; the return value reports whether that happened.
func (c *Cache) Put(key Key, path pathfinding.Path) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cleared := false
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.entries = make(map[Key]Entry, c.capacity)
		c.clears++
		cleared = true
	}
	c.entries[key] = Entry{Path: path, CreatedAt: c.now()}
	return cleared
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) > 0 {
		c.entries = make(map[Key]Entry, c.capacity)
	}
	c.clears++
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:     len(c.entries),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
		Expired:  c.expired,
		Clears:   c.clears,
	}
}
