package assemble

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ashgrove-systems/mto-gateway/internal/classify"
	"github.com/ashgrove-systems/mto-gateway/internal/gwerrors"
	"github.com/ashgrove-systems/mto-gateway/internal/memcache"
	"github.com/ashgrove-systems/mto-gateway/internal/readers"
	"github.com/ashgrove-systems/mto-gateway/internal/store"
)

// Assembler is C9 wrapped in the C5 single-flight coordinator: at most one
// assembly per MTO runs concurrently (spec.md §4.5).
type Assembler struct {
	readers           *readers.Readers
	store             *store.Store
	cache             *memcache.Cache
	classifier        *classify.Classifier
	freshnessBudget   time.Duration
	group             singleflight.Group
}

// New builds an Assembler over the given tiers.
func New(rd *readers.Readers, st *store.Store, cache *memcache.Cache, classifier *classify.Classifier, freshnessBudget time.Duration) *Assembler {
	return &Assembler{readers: rd, store: st, cache: cache, classifier: classifier, freshnessBudget: freshnessBudget}
}

// GetStatus implements spec.md §4.9's entry point, including the C5
// single-flight coordination and the three-tier lookup of spec.md §2.
func (a *Assembler) GetStatus(ctx context.Context, mto string, useCache bool) (*Result, error) {
	if useCache {
		if v, ok := a.cache.Get(mto); ok {
			result := v.(*Result)
			out := *result
			out.DataSource = SourceMemory
			out.CacheAgeSeconds = nil
			return &out, nil
		}
	}

	v, err, _ := a.group.Do(mto, func() (interface{}, error) {
		return a.assemble(ctx, mto, useCache)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (a *Assembler) assemble(ctx context.Context, mto string, useCache bool) (*Result, error) {
	if useCache {
		if result, age, ok, err := a.tryPersistent(ctx, mto); err != nil {
			return nil, err
		} else if ok {
			result.CacheAgeSeconds = &age
			a.cache.Set(mto, result)
			return withSource(result, SourcePersistent), nil
		}
	}

	result, err := a.fetchLive(ctx, mto)
	if err != nil {
		return nil, err
	}
	a.cache.Set(mto, result)
	return withSource(result, SourceLive), nil
}

func withSource(r *Result, src DataSource) *Result {
	out := *r
	out.DataSource = src
	out.QueryTime = time.Now().UTC()
	return &out
}

// tryPersistent implements the freshness predicate resolved as OQ-1 in
// DESIGN.md: serve the persistent tier when every row read for the MTO is
// within the freshness budget, OR the last completed sync's window covers
// the MTO's newest known record date. One stale row from any reader fails
// the first branch, even when that reader also returned fresh rows. If no
// sync has ever completed, the persistent tier is treated as empty.
func (a *Assembler) tryPersistent(ctx context.Context, mto string) (*Result, int64, bool, error) {
	windowStart, windowEnd, haveWindow, err := a.store.LastSuccessfulSyncWindow(ctx)
	if err != nil {
		return nil, 0, false, gwerrors.Wrap(gwerrors.KindInternalError, "failed to read sync history", err)
	}
	if !haveWindow {
		return nil, 0, false, nil
	}

	r, oldestSynced, anyRows, allFresh, newestRecordDate, err := a.readPersistent(ctx, mto)
	if err != nil {
		return nil, 0, false, err
	}
	if !anyRows {
		return nil, 0, false, nil
	}

	windowCoversNewest := !newestRecordDate.IsZero() && store.WindowCovers(windowStart, windowEnd, newestRecordDate)
	if !allFresh && !windowCoversNewest {
		return nil, 0, false, nil
	}

	parent, children := assembleChildren(r, a.classifier)
	parent.MTO = mto
	age := int64(time.Now().UTC().Sub(oldestSynced).Seconds())
	return &Result{Parent: parent, Children: children}, age, true, nil
}

// readPersistent loads every reader's rows for mto from the store and
// reports whether every row read is within the freshness budget (readers
// that returned no rows do not affect this), along with the oldest synced_at seen (for
// cache_age_seconds) and the newest upstream record date seen (for the
// window-coverage branch of the freshness predicate).
func (a *Assembler) readPersistent(ctx context.Context, mto string) (records, time.Time, bool, bool, time.Time, error) {
	var r records
	var oldest, newestRecordDate time.Time
	var anyRows, allFresh bool
	allFresh = true
	now := time.Now().UTC()

	touch := func(syncedAt time.Time, recordDate time.Time) {
		anyRows = true
		if oldest.IsZero() || syncedAt.Before(oldest) {
			oldest = syncedAt
		}
		if !recordDate.IsZero() && (newestRecordDate.IsZero() || recordDate.After(newestRecordDate)) {
			newestRecordDate = recordDate
		}
		if !store.IsRowFresh(syncedAt, now, a.freshnessBudget) {
			allFresh = false
		}
	}

	var err error
	if r.productionOrders, err = a.store.ProductionOrdersByMTO(ctx, mto); err != nil {
		return r, oldest, false, false, newestRecordDate, wrapInternal(err)
	}
	for _, x := range r.productionOrders {
		touch(x.SyncedAt, x.CreateDate)
	}
	if r.productionBOM, err = a.store.ProductionBOMByMTO(ctx, mto); err != nil {
		return r, oldest, false, false, newestRecordDate, wrapInternal(err)
	}
	for _, x := range r.productionBOM {
		touch(x.SyncedAt, time.Time{})
	}
	if r.productionReceipts, err = a.store.ProductionReceiptsByMTO(ctx, mto); err != nil {
		return r, oldest, false, false, newestRecordDate, wrapInternal(err)
	}
	for _, x := range r.productionReceipts {
		touch(x.SyncedAt, time.Time{})
	}
	if r.purchaseOrders, err = a.store.PurchaseOrdersByMTO(ctx, mto); err != nil {
		return r, oldest, false, false, newestRecordDate, wrapInternal(err)
	}
	for _, x := range r.purchaseOrders {
		touch(x.SyncedAt, time.Time{})
	}
	if r.purchaseReceipts, err = a.store.PurchaseReceiptsByMTO(ctx, mto); err != nil {
		return r, oldest, false, false, newestRecordDate, wrapInternal(err)
	}
	for _, x := range r.purchaseReceipts {
		touch(x.SyncedAt, time.Time{})
	}
	if r.subcontractingOrders, err = a.store.SubcontractingOrdersByMTO(ctx, mto); err != nil {
		return r, oldest, false, false, newestRecordDate, wrapInternal(err)
	}
	for _, x := range r.subcontractingOrders {
		touch(x.SyncedAt, time.Time{})
	}
	if r.materialPicking, err = a.store.MaterialPickingByMTO(ctx, mto); err != nil {
		return r, oldest, false, false, newestRecordDate, wrapInternal(err)
	}
	for _, x := range r.materialPicking {
		touch(x.SyncedAt, time.Time{})
	}
	if r.salesDelivery, err = a.store.SalesDeliveryByMTO(ctx, mto); err != nil {
		return r, oldest, false, false, newestRecordDate, wrapInternal(err)
	}
	for _, x := range r.salesDelivery {
		touch(x.SyncedAt, time.Time{})
	}
	if r.salesOrders, err = a.store.SalesOrdersByMTO(ctx, mto); err != nil {
		return r, oldest, false, false, newestRecordDate, wrapInternal(err)
	}
	for _, x := range r.salesOrders {
		touch(x.SyncedAt, time.Time{})
	}

	return r, oldest, anyRows, allFresh, newestRecordDate, nil
}

func wrapInternal(err error) error {
	return gwerrors.Wrap(gwerrors.KindInternalError, "failed to read persistent tier", err)
}

// fetchLive fans out all nine readers in parallel via fetch_by_mto(mto),
// per spec.md §4.9 step 2b: wait for all, fail the call if any fails.
func (a *Assembler) fetchLive(ctx context.Context, mto string) (*Result, error) {
	var r records
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) { r.productionOrders, err = a.readers.ProductionOrder.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) { r.productionBOM, err = a.readers.ProductionBOM.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) { r.productionReceipts, err = a.readers.ProductionReceipt.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) { r.purchaseOrders, err = a.readers.PurchaseOrder.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) { r.purchaseReceipts, err = a.readers.PurchaseReceipt.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) {
		r.subcontractingOrders, err = a.readers.SubcontractingOrder.FetchByMTO(gctx, mto)
		return
	})
	g.Go(func() (err error) { r.materialPicking, err = a.readers.MaterialPicking.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) { r.salesDelivery, err = a.readers.SalesDelivery.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) { r.salesOrders, err = a.readers.SalesOrder.FetchByMTO(gctx, mto); return })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if r.empty() {
		return nil, gwerrors.Newf(gwerrors.KindNotFound, "no records found for mto %s", mto)
	}

	parent, children := assembleChildren(r, a.classifier)
	parent.MTO = mto
	return &Result{Parent: parent, Children: children}, nil
}
