// Package cacheadmin implements C10, a thin administrative façade over the
// memory cache and the persistent store's recency index.
package cacheadmin

import (
	"context"

	"go.uber.org/zap"

	"github.com/ashgrove-systems/mto-gateway/internal/assemble"
	"github.com/ashgrove-systems/mto-gateway/internal/memcache"
	"github.com/ashgrove-systems/mto-gateway/internal/queue"
	"github.com/ashgrove-systems/mto-gateway/internal/store"
)

// Admin is C10. All operations observe the same memory-cache lock
// (memcache.Cache is already internally synchronized).
type Admin struct {
	cache     *memcache.Cache
	store     *store.Store
	assembler *assemble.Assembler
	queue     *queue.Manager // optional; nil disables cross-instance invalidation broadcast
	log       *zap.Logger
}

// New builds an Admin over the shared cache, store, and assembler. queueMgr
// may be nil, in which case cache invalidation/clear are local-only.
func New(cache *memcache.Cache, st *store.Store, assembler *assemble.Assembler, queueMgr *queue.Manager, log *zap.Logger) *Admin {
	return &Admin{cache: cache, store: st, assembler: assembler, queue: queueMgr, log: log}
}

// Stats returns a snapshot of cache counters; hit_rate is computed on read.
func (a *Admin) Stats() memcache.Stats {
	return a.cache.Stats()
}

// Clear drops every cache entry and returns the count dropped. It publishes
// a cache-clear event (SPEC_FULL.md §5 item 3); no code in this repository
// subscribes to it, so other instances' memory tiers are not dropped by it.
func (a *Admin) Clear() int {
	n := a.cache.Clear()
	a.publishClear()
	return n
}

// InvalidateResult mirrors spec.md §4.10's {invalidated|not_found} outcome.
type InvalidateResult string

const (
	Invalidated InvalidateResult = "invalidated"
	NotFound    InvalidateResult = "not_found"
)

// Invalidate removes one entry, reporting whether it was present. A hit
// publishes a cache-invalidate event for mto (SPEC_FULL.md §5 item 3); no
// code in this repository subscribes to it, so other instances keep their
// own copy of mto.
func (a *Admin) Invalidate(mto string) InvalidateResult {
	if a.cache.Invalidate(mto) {
		a.publishInvalidate(mto)
		return Invalidated
	}
	return NotFound
}

// publishInvalidate and publishClear are best-effort: a broadcast failure
// never fails the local admin operation, and a nil queue (no NATS
// configured) is silently a no-op.
func (a *Admin) publishInvalidate(mto string) {
	if a.queue == nil {
		return
	}
	if err := a.queue.PublishCacheInvalidate(mto); err != nil {
		a.log.Warn("failed to publish cache invalidate event", zap.String("mto", mto), zap.Error(err))
	}
}

func (a *Admin) publishClear() {
	if a.queue == nil {
		return
	}
	if err := a.queue.PublishCacheClear(); err != nil {
		a.log.Warn("failed to publish cache clear event", zap.Error(err))
	}
}

// ResetStats zeroes counters and the frequency histogram, preserving entries.
func (a *Admin) ResetStats() {
	a.cache.ResetStats()
}

// HotMTOs returns the top-N keys by query frequency.
func (a *Admin) HotMTOs(topN int) []memcache.HotMTO {
	return a.cache.HotMTOs(topN)
}

// WarmResult reports the per-MTO outcome of a warm() sweep.
type WarmResult struct {
	Attempted int
	Succeeded int
	Failed    []WarmFailure
}

// WarmFailure pairs an MTO with the error warming it produced; warm()
// isolates failures per call so one bad MTO never aborts the sweep
// (spec.md §4.10).
type WarmFailure struct {
	MTO   string
	Error string
}

// Warm populates the memory cache for up to count MTOs. When useHot, the
// source is the frequency histogram's top-N; otherwise it is C3's most
// recently synced MTOs.
func (a *Admin) Warm(ctx context.Context, count int, useHot bool) (WarmResult, error) {
	var mtos []string
	if useHot {
		for _, h := range a.cache.HotMTOs(count) {
			mtos = append(mtos, h.MTO)
		}
	} else {
		recents, err := a.store.RecentMTOs(ctx, count)
		if err != nil {
			return WarmResult{}, err
		}
		mtos = recents
	}

	result := WarmResult{Attempted: len(mtos)}
	for _, mto := range mtos {
		if _, err := a.assembler.GetStatus(ctx, mto, true); err != nil {
			result.Failed = append(result.Failed, WarmFailure{MTO: mto, Error: err.Error()})
			continue
		}
		result.Succeeded++
	}
	return result, nil
}
