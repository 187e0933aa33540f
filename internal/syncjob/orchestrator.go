// Package syncjob implements the sync orchestrator (C6) and its wall-clock
// scheduler (C7): a mutually exclusive background job that fetches
// date-bounded windows from each upstream form in chunks, upserts them into
// the persistent tier, tracks progress, and writes a history log
// (spec.md §4.6/§4.7). Grounded on the teacher's ProgressCallback/PhaseProgress
// shape (internal/services/snapshot.go, internal/workers/snapshot_worker.go),
// generalized from "refresh N fixed tables" to "N readers x date chunks".
package syncjob

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ashgrove-systems/mto-gateway/internal/gwerrors"
	"github.com/ashgrove-systems/mto-gateway/internal/queue"
	"github.com/ashgrove-systems/mto-gateway/internal/readers"
	"github.com/ashgrove-systems/mto-gateway/internal/store"
)

// Config carries the orchestrator's tunables, sourced from config.Config's
// sync.* keys (spec.md §6).
type Config struct {
	ChunkDays      int
	BatchSize      int
	ParallelChunks int
	RetryCount     int

	ManualSyncDefaultDays int
	ManualSyncMinDays     int
	ManualSyncMaxDays     int
}

// Orchestrator is C6: the date-chunked fan-out ingestion job, protected by
// an atomic mutual-exclusion flag (idle/running are the only legal
// transitions into and out of "running").
type Orchestrator struct {
	readers *readers.Readers
	store   *store.Store
	log     *zap.Logger
	queue   *queue.Manager // optional; nil disables progress broadcast

	cfgMu sync.RWMutex
	cfg   Config

	running atomic.Bool
	mu      sync.Mutex // serializes TriggerSync's check-and-set against itself
}

// New builds an Orchestrator. queueMgr may be nil (no NATS broadcast).
func New(rd *readers.Readers, st *store.Store, log *zap.Logger, queueMgr *queue.Manager, cfg Config) *Orchestrator {
	if cfg.ChunkDays <= 0 {
		cfg.ChunkDays = 7
	}
	if cfg.ParallelChunks <= 0 {
		cfg.ParallelChunks = 2
	}
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	return &Orchestrator{readers: rd, store: st, log: log, queue: queueMgr, cfg: cfg}
}

// ConfigSnapshot returns the orchestrator's current tunables.
func (o *Orchestrator) ConfigSnapshot() Config {
	o.cfgMu.RLock()
	defer o.cfgMu.RUnlock()
	return o.cfg
}

// UpdateConfig atomically replaces the orchestrator's tunables (spec.md §6
// UpdateSyncConfig). A run already in progress keeps the settings it was
// dispatched with; only subsequent calls observe the change.
func (o *Orchestrator) UpdateConfig(cfg Config) {
	o.cfgMu.Lock()
	defer o.cfgMu.Unlock()
	o.cfg = cfg
}

// TriggerResult is returned by TriggerSync on acceptance.
type TriggerResult struct {
	RunID     string
	StartedAt time.Time
	DaysBack  int
	ChunkDays int
}

// TriggerSync validates parameters and, if no run is already in progress,
// starts one in the background and returns immediately (spec.md §6).
// force is accepted for interface symmetry with spec.md §6 but does not
// bypass mutual exclusion: spec.md §4.6 states manual trigger is rejected
// with SyncInProgress while running, with no documented override.
func (o *Orchestrator) TriggerSync(ctx context.Context, daysBack, chunkDays int, force bool) (*TriggerResult, error) {
	cfg := o.ConfigSnapshot()
	if daysBack <= 0 {
		daysBack = cfg.ManualSyncDefaultDays
	}
	if daysBack < cfg.ManualSyncMinDays || daysBack > cfg.ManualSyncMaxDays {
		return nil, gwerrors.Newf(gwerrors.KindValidationError,
			"days_back must be in [%d, %d], got %d", cfg.ManualSyncMinDays, cfg.ManualSyncMaxDays, daysBack)
	}
	if chunkDays <= 0 {
		chunkDays = cfg.ChunkDays
	}
	if chunkDays < 1 || chunkDays > 30 {
		return nil, gwerrors.Newf(gwerrors.KindValidationError, "chunk_days must be in [1, 30], got %d", chunkDays)
	}

	o.mu.Lock()
	if !o.running.CompareAndSwap(false, true) {
		o.mu.Unlock()
		return nil, gwerrors.Newf(gwerrors.KindSyncInProgress, "a sync run is already in progress")
	}
	o.mu.Unlock()

	runID := uuid.NewString()
	startedAt := time.Now().UTC()

	go o.run(context.Background(), runID, startedAt, daysBack, chunkDays)

	return &TriggerResult{RunID: runID, StartedAt: startedAt, DaysBack: daysBack, ChunkDays: chunkDays}, nil
}

// window is one contiguous chunk_days-wide date window (spec.md §4.6 step 2).
type window struct {
	start, end time.Time
}

func splitWindows(start, end time.Time, chunkDays int) []window {
	var out []window
	step := time.Duration(chunkDays) * 24 * time.Hour
	for s := start; !s.After(end); s = s.Add(step) {
		e := s.Add(step - 24*time.Hour)
		if e.After(end) {
			e = end
		}
		out = append(out, window{start: s, end: e})
	}
	return out
}

// run executes the full sync algorithm of spec.md §4.6 steps 1-5. It always
// resets the mutual-exclusion flag and writes a terminal progress/history
// record on return, however it exits.
func (o *Orchestrator) run(ctx context.Context, runID string, startedAt time.Time, daysBack, chunkDays int) {
	defer o.running.Store(false)

	log := o.log.With(zap.String("sync_run_id", runID))
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -daysBack)
	windows := splitWindows(start, end, chunkDays)

	phases := initialPhases()
	o.setProgress(ctx, &store.Progress{
		Status:    store.SyncStatusRunning,
		Phase:     "starting",
		Message:   "computing date windows",
		StartedAt: &startedAt,
		DaysBack:  daysBack,
		Phases:    phases,
	})
	o.publishProgress(runID, "running", "starting")

	var totalRecords int64
	var hadReaderError bool
	var firstErr error

	sem := make(chan struct{}, o.ConfigSnapshot().ParallelChunks)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, w := range windows {
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, w window) {
			defer wg.Done()
			defer func() { <-sem }()

			log.Debug("syncing chunk", zap.Int("chunk", idx), zap.Time("start", w.start), zap.Time("end", w.end))
			n, chunkErr, chunkHadReaderErr := o.syncChunk(ctx, w)

			mu.Lock()
			totalRecords += int64(n)
			if chunkHadReaderErr {
				hadReaderError = true
			}
			if chunkErr != nil && firstErr == nil {
				firstErr = chunkErr
			}
			snapshot := totalRecords
			mu.Unlock()

			o.setProgress(ctx, &store.Progress{
				Status:       store.SyncStatusRunning,
				Phase:        "syncing",
				Message:      "chunk completed",
				StartedAt:    &startedAt,
				DaysBack:     daysBack,
				Phases:       phases,
				RecordsTotal: int(snapshot),
			})
		}(i, w)
	}
	wg.Wait()

	finishedAt := time.Now().UTC()

	if firstErr != nil {
		o.setProgress(ctx, &store.Progress{
			Status:       store.SyncStatusFailed,
			Phase:        "failed",
			Message:      "sync run failed",
			StartedAt:    &startedAt,
			FinishedAt:   &finishedAt,
			DaysBack:     daysBack,
			Phases:       phases,
			RecordsTotal: int(totalRecords),
			Error:        firstErr.Error(),
		})
		o.appendHistory(ctx, startedAt, finishedAt, store.SyncStatusFailed, daysBack, int(totalRecords), firstErr.Error(), start, end)
		o.publishProgress(runID, "failed", firstErr.Error())
		return
	}

	message := "sync run completed"
	if hadReaderError {
		message = "sync run completed with partial reader errors"
	}
	o.setProgress(ctx, &store.Progress{
		Status:       store.SyncStatusCompleted,
		Phase:        "completed",
		Message:      message,
		StartedAt:    &startedAt,
		FinishedAt:   &finishedAt,
		DaysBack:     daysBack,
		Phases:       phases,
		RecordsTotal: int(totalRecords),
	})
	o.appendHistory(ctx, startedAt, finishedAt, store.SyncStatusCompleted, daysBack, int(totalRecords), "", start, end)
	o.publishProgress(runID, "completed", message)
}

// syncChunk fans out all nine readers' fetch_by_date_range concurrently for
// one window, upserting each reader's rows as they arrive. A reader
// exhausting its retries on UpstreamUnavailable propagates as the chunk's
// error; a terminal UpstreamQueryError is logged and does not abort the
// chunk or the run, only its own reader (spec.md §4.6).
func (o *Orchestrator) syncChunk(ctx context.Context, w window) (recordsSynced int, fatalErr error, hadReaderError bool) {
	type outcome struct {
		n   int
		err error
	}

	run := func(fetch func() error) outcome {
		var lastErr error
		attempt := 0
		err := retry.Do(ctx, retry.WithMaxRetries(uint64(o.ConfigSnapshot().RetryCount), retry.NewExponential(200*time.Millisecond)), func(ctx context.Context) error {
			attempt++
			ferr := fetch()
			if ferr == nil {
				return nil
			}
			lastErr = ferr
			if gwerrors.IsKind(ferr, gwerrors.KindUpstreamUnavailable) {
				return retry.RetryableError(ferr)
			}
			return ferr
		})
		if err != nil {
			return outcome{err: lastErr}
		}
		return outcome{}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	log := o.log

	fetchAndStore := func(name string, fetch func(ctx context.Context) (int, error)) func() error {
		return func() error {
			o := run(func() error {
				n, err := fetch(gctx)
				if err != nil {
					return err
				}
				mu.Lock()
				recordsSynced += n
				mu.Unlock()
				return nil
			})
			if o.err != nil {
				if gwerrors.IsKind(o.err, gwerrors.KindUpstreamUnavailable) {
					return o.err
				}
				log.Warn("reader failed for chunk; continuing", zap.String("reader", name), zap.Error(o.err))
				mu.Lock()
				hadReaderError = true
				mu.Unlock()
				return nil
			}
			return nil
		}
	}

	g.Go(fetchAndStore(readers.FormProductionOrder, func(ctx context.Context) (int, error) {
		rows, err := o.readers.ProductionOrder.FetchByDateRange(ctx, w.start, w.end, "")
		if err != nil {
			return 0, err
		}
		if err := o.store.UpsertProductionOrders(ctx, rows); err != nil {
			return 0, gwerrors.Wrap(gwerrors.KindInternalError, "failed to upsert production_orders", err)
		}
		return len(rows), nil
	}))
	g.Go(fetchAndStore(readers.FormProductionBOM, func(ctx context.Context) (int, error) {
		rows, err := o.readers.ProductionBOM.FetchByDateRange(ctx, w.start, w.end, "")
		if err != nil {
			return 0, err
		}
		if err := o.store.UpsertProductionBOM(ctx, rows); err != nil {
			return 0, gwerrors.Wrap(gwerrors.KindInternalError, "failed to upsert production_bom", err)
		}
		return len(rows), nil
	}))
	g.Go(fetchAndStore(readers.FormProductionReceipt, func(ctx context.Context) (int, error) {
		rows, err := o.readers.ProductionReceipt.FetchByDateRange(ctx, w.start, w.end, "")
		if err != nil {
			return 0, err
		}
		if err := o.store.UpsertProductionReceipts(ctx, rows); err != nil {
			return 0, gwerrors.Wrap(gwerrors.KindInternalError, "failed to upsert production_receipts", err)
		}
		return len(rows), nil
	}))
	g.Go(fetchAndStore(readers.FormPurchaseOrder, func(ctx context.Context) (int, error) {
		rows, err := o.readers.PurchaseOrder.FetchByDateRange(ctx, w.start, w.end, "")
		if err != nil {
			return 0, err
		}
		if err := o.store.UpsertPurchaseOrders(ctx, rows); err != nil {
			return 0, gwerrors.Wrap(gwerrors.KindInternalError, "failed to upsert purchase_orders", err)
		}
		return len(rows), nil
	}))
	g.Go(fetchAndStore(readers.FormPurchaseReceipt, func(ctx context.Context) (int, error) {
		rows, err := o.readers.PurchaseReceipt.FetchByDateRange(ctx, w.start, w.end, "")
		if err != nil {
			return 0, err
		}
		if err := o.store.UpsertPurchaseReceipts(ctx, rows); err != nil {
			return 0, gwerrors.Wrap(gwerrors.KindInternalError, "failed to upsert purchase_receipts", err)
		}
		return len(rows), nil
	}))
	g.Go(fetchAndStore(readers.FormSubcontractingOrder, func(ctx context.Context) (int, error) {
		rows, err := o.readers.SubcontractingOrder.FetchByDateRange(ctx, w.start, w.end, "")
		if err != nil {
			return 0, err
		}
		if err := o.store.UpsertSubcontractingOrders(ctx, rows); err != nil {
			return 0, gwerrors.Wrap(gwerrors.KindInternalError, "failed to upsert subcontracting_orders", err)
		}
		return len(rows), nil
	}))
	g.Go(fetchAndStore(readers.FormMaterialPicking, func(ctx context.Context) (int, error) {
		rows, err := o.readers.MaterialPicking.FetchByDateRange(ctx, w.start, w.end, "")
		if err != nil {
			return 0, err
		}
		if err := o.store.UpsertMaterialPicking(ctx, rows); err != nil {
			return 0, gwerrors.Wrap(gwerrors.KindInternalError, "failed to upsert material_picking", err)
		}
		return len(rows), nil
	}))
	g.Go(fetchAndStore(readers.FormSalesDelivery, func(ctx context.Context) (int, error) {
		rows, err := o.readers.SalesDelivery.FetchByDateRange(ctx, w.start, w.end, "")
		if err != nil {
			return 0, err
		}
		if err := o.store.UpsertSalesDelivery(ctx, rows); err != nil {
			return 0, gwerrors.Wrap(gwerrors.KindInternalError, "failed to upsert sales_delivery", err)
		}
		return len(rows), nil
	}))
	g.Go(fetchAndStore(readers.FormSalesOrder, func(ctx context.Context) (int, error) {
		rows, err := o.readers.SalesOrder.FetchByDateRange(ctx, w.start, w.end, "")
		if err != nil {
			return 0, err
		}
		if err := o.store.UpsertSalesOrders(ctx, rows); err != nil {
			return 0, gwerrors.Wrap(gwerrors.KindInternalError, "failed to upsert sales_orders", err)
		}
		return len(rows), nil
	}))

	fatalErr = g.Wait()
	return recordsSynced, fatalErr, hadReaderError
}

func initialPhases() []store.ReaderPhase {
	ids := []string{
		readers.FormProductionOrder, readers.FormProductionBOM, readers.FormProductionReceipt,
		readers.FormPurchaseOrder, readers.FormPurchaseReceipt, readers.FormSubcontractingOrder,
		readers.FormMaterialPicking, readers.FormSalesDelivery, readers.FormSalesOrder,
	}
	out := make([]store.ReaderPhase, len(ids))
	for i, id := range ids {
		out[i] = store.ReaderPhase{Reader: id, Status: "pending"}
	}
	return out
}

func (o *Orchestrator) setProgress(ctx context.Context, p *store.Progress) {
	if err := o.store.SetProgress(ctx, p); err != nil {
		o.log.Error("failed to persist sync progress", zap.Error(err))
	}
}

func (o *Orchestrator) appendHistory(ctx context.Context, startedAt, finishedAt time.Time, status store.SyncStatus, daysBack, records int, errMsg string, windowStart, windowEnd time.Time) {
	entry := store.HistoryEntry{
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
		Status:        status,
		DaysBack:      daysBack,
		RecordsSynced: records,
		ErrorMessage:  errMsg,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
	}
	if err := o.store.AppendHistory(ctx, entry); err != nil {
		o.log.Error("failed to append sync history", zap.Error(err))
	}
}

// publishProgress broadcasts a progress snapshot over NATS so observers
// other than the process that owns the run can see it without polling the
// store (SPEC_FULL.md §5 item 2). A nil queue manager makes this a no-op.
func (o *Orchestrator) publishProgress(runID, status, message string) {
	if o.queue == nil {
		return
	}
	if err := o.queue.PublishSyncProgress(runID, status, message); err != nil {
		o.log.Warn("failed to publish sync progress", zap.String("sync_run_id", runID), zap.Error(err))
	}
}

// IsRunning reports whether a sync run is currently in progress.
func (o *Orchestrator) IsRunning() bool { return o.running.Load() }

// GetStatus returns the current sync progress record (spec.md §6
// GetSyncStatus).
func (o *Orchestrator) GetStatus(ctx context.Context) (*store.Progress, error) {
	return o.store.GetProgress(ctx)
}

// GetHistory returns the last limit history entries (spec.md §6
// GetSyncHistory).
func (o *Orchestrator) GetHistory(ctx context.Context, limit int) ([]store.HistoryEntry, error) {
	return o.store.RecentHistory(ctx, limit)
}
