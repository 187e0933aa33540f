// Package memcache is the memory tier (C4): a bounded, time-expiring map
// from MTO to an assembled result, with hit/miss counters and a
// per-MTO frequency histogram. Every operation is serialized under a
// single lock and never blocks on I/O (spec.md §4.4/§5), matching the
// teacher's double-checked-locking-over-a-map shape seen in
// internal/services/throttle.go's RateLimiterService.
package memcache

import (
	"container/list"
	"sync"
	"time"
)

// entry is one stored value with its expiry and its place in the insertion
// order. The assembler supplies and interprets value; the cache itself never
// inspects it.
type entry struct {
	value     interface{}
	expiresAt time.Time
	elem      *list.Element
}

// Stats is the snapshot returned by CacheStats (spec.md §4.10).
type Stats struct {
	Size        int
	MaxSize     int
	Hits        int64
	Misses      int64
	TotalQueries int64
	UniqueMTOs  int
}

// HitRate computes hits / (hits+misses), 0 when the denominator is 0
// (spec.md §3).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is the bounded, time-expiring memory tier.
type Cache struct {
	mu        sync.Mutex
	maxSize   int
	ttl       time.Duration
	entries   map[string]*entry
	order     *list.List // insertion order, front = oldest
	hits      int64
	misses    int64
	frequency map[string]int64
}

// New builds a Cache bounded at maxSize entries with the given TTL.
func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 200
	}
	return &Cache{
		maxSize:   maxSize,
		ttl:       ttl,
		entries:   make(map[string]*entry),
		order:     list.New(),
		frequency: make(map[string]int64),
	}
}

// Get returns the cached value for mto if present and unexpired,
// incrementing hit/miss counters and the frequency histogram. An expired
// entry is evicted on touch, per spec.md §4.4.
func (c *Cache) Get(mto string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.frequency[mto]++

	e, ok := c.entries[mto]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeLocked(mto)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set inserts or replaces the value for mto, evicting the oldest entry by
// insertion order when the cache is already at capacity (spec.md §4.4).
func (c *Cache) Set(mto string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[mto]; ok {
		c.order.Remove(existing.elem)
		delete(c.entries, mto)
	}

	if len(c.entries) >= c.maxSize {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(string))
		}
	}

	elem := c.order.PushBack(mto)
	c.entries[mto] = &entry{value: value, expiresAt: time.Now().Add(c.ttl), elem: elem}
}

// Invalidate removes one entry, reporting whether it was present
// (spec.md §4.10).
func (c *Cache) Invalidate(mto string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[mto]; !ok {
		return false
	}
	c.removeLocked(mto)
	return true
}

func (c *Cache) removeLocked(mto string) {
	if e, ok := c.entries[mto]; ok {
		c.order.Remove(e.elem)
		delete(c.entries, mto)
	}
}

// Clear drops every entry, returning the count dropped (spec.md §4.10).
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.order = list.New()
	return n
}

// Stats returns a counter snapshot; hit_rate is computed by the caller via
// Stats.HitRate() (spec.md §4.10).
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:         len(c.entries),
		MaxSize:      c.maxSize,
		Hits:         c.hits,
		Misses:       c.misses,
		TotalQueries: c.hits + c.misses,
		UniqueMTOs:   len(c.frequency),
	}
}

// ResetStats zeroes counters and the frequency histogram, preserving
// entries (spec.md §4.10).
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = 0
	c.misses = 0
	c.frequency = make(map[string]int64)
}

// HotMTO is one element of the HotMTOs result: an MTO and its query count.
type HotMTO struct {
	MTO   string
	Count int64
}

// HotMTOs returns the top-N keys by query frequency (spec.md §4.10).
func (c *Cache) HotMTOs(topN int) []HotMTO {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]HotMTO, 0, len(c.frequency))
	for mto, count := range c.frequency {
		out = append(out, HotMTO{MTO: mto, Count: count})
	}
	sortHotMTOsDesc(out)
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}

func sortHotMTOsDesc(s []HotMTO) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && (s[j].Count > s[j-1].Count || (s[j].Count == s[j-1].Count && s[j].MTO < s[j-1].MTO)); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
