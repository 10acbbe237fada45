// Package worker drives pagination to completion for every document in
// the library: scanning on a fixed interval, measuring pages in batches,
// committing each batch atomically, and abandoning work that a settings
// change has superseded.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/layout"
	"github.com/jackzampolin/folio/internal/notify"
	"github.com/jackzampolin/folio/internal/pagecache"
)

const (
	// DefaultBatchSize is the number of pages measured per commit.
	DefaultBatchSize = 10

	// DefaultScanInterval is the pause between library scans.
	DefaultScanInterval = 5 * time.Second

	// defaultYieldDelay is the cooperative pause after each committed
	// batch, so a long document does not monopolize the host.
	defaultYieldDelay = 25 * time.Millisecond

	// commitAttempts bounds retries of a transient store write failure
	// before deferring the document to the next scan cycle.
	commitAttempts = 3
)

// SettingsFunc supplies the current layout settings at each scan. The
// config manager's live view plugs in here.
type SettingsFunc func() layout.Settings

// Config assembles a Worker. Store, Library, Measurer, and Settings are
// required.
type Config struct {
	Store    pagecache.Store
	Library  *document.Library
	Measurer layout.Measurer
	Settings SettingsFunc

	// Bus receives one event per committed batch. Optional; nil disables
	// notifications.
	Bus *notify.Bus

	BatchSize    int
	ScanInterval time.Duration

	// YieldDelay overrides the post-commit pause. Tests set it to zero.
	YieldDelay time.Duration

	// PruneStale removes entries under superseded settings keys once a
	// document completes under the current key.
	PruneStale bool

	Logger *slog.Logger
}

// Worker is the single background pagination loop. It is the sole writer
// to the store; everything else only reads.
type Worker struct {
	store    pagecache.Store
	library  *document.Library
	measurer layout.Measurer
	settings SettingsFunc
	bus      *notify.Bus
	gens     *Generations
	logger   *slog.Logger

	batchSize    int
	scanInterval time.Duration
	yieldDelay   time.Duration
	pruneStale   bool

	wake chan struct{}
}

// New validates cfg and builds a Worker.
func New(cfg Config) (*Worker, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("worker requires a Store")
	}
	if cfg.Library == nil {
		return nil, fmt.Errorf("worker requires a Library")
	}
	if cfg.Measurer == nil {
		return nil, fmt.Errorf("worker requires a Measurer")
	}
	if cfg.Settings == nil {
		return nil, fmt.Errorf("worker requires a Settings source")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	scanInterval := cfg.ScanInterval
	if scanInterval <= 0 {
		scanInterval = DefaultScanInterval
	}
	yieldDelay := cfg.YieldDelay
	if yieldDelay < 0 {
		yieldDelay = 0
	} else if yieldDelay == 0 {
		yieldDelay = defaultYieldDelay
	}

	return &Worker{
		store:        cfg.Store,
		library:      cfg.Library,
		measurer:     cfg.Measurer,
		settings:     cfg.Settings,
		bus:          cfg.Bus,
		gens:         NewGenerations(),
		logger:       logger.With("worker", "pagination"),
		batchSize:    batchSize,
		scanInterval: scanInterval,
		yieldDelay:   yieldDelay,
		pruneStale:   cfg.PruneStale,
		wake:         make(chan struct{}, 1),
	}, nil
}

// Invalidate bumps the document's generation token. Any in-flight batch
// for it is discarded at the next batch boundary; cancellation is
// cooperative, not preemptive.
func (w *Worker) Invalidate(documentHash string) {
	w.gens.Bump(documentHash)
	w.Wake()
}

// InvalidateAll bumps every known document's generation. The config
// manager calls this when layout settings change.
func (w *Worker) InvalidateAll() {
	w.gens.BumpAll()
	w.Wake()
}

// Wake nudges the loop to scan ahead of the interval. Safe from any
// goroutine; coalesces when a scan is already pending.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Start runs the scan loop until ctx is cancelled. It never returns a
// processing error: every per-document failure is contained, logged, and
// retried on a later cycle.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("pagination worker started",
		"batch_size", w.batchSize, "scan_interval", w.scanInterval)

	for {
		w.scanOnce(ctx)

		select {
		case <-ctx.Done():
			w.logger.Info("pagination worker stopping")
			return
		case <-w.wake:
		case <-time.After(w.scanInterval):
		}
	}
}

// scanOnce classifies every document under the current settings key and
// processes the first one that needs work.
func (w *Worker) scanOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	docs, err := w.library.Scan()
	if err != nil {
		w.logger.Warn("library scan failed", "error", err)
		return
	}

	settings := w.settings()
	key := settings.Key()

	for _, doc := range docs {
		w.gens.Observe(doc.Hash)

		meta, err := w.store.Meta(ctx, doc.Hash, key)
		switch {
		case errors.Is(err, pagecache.ErrEntryNotFound):
			// No cache for this key: start at zero.
		case err != nil:
			w.logger.Warn("failed to read cache status", "doc", doc.Name, "error", err)
			continue
		case meta.IsComplete:
			continue
		}

		// One document in flight at a time keeps resource use flat; the
		// rest wait for the next pass. A document that made no progress
		// (unreadable text, layout anomaly) does not block the others.
		if w.process(ctx, doc, settings, key) {
			return
		}
	}
}

// process paginates one document to completion, batch by batch, under the
// generation captured at entry. It reports whether any progress was made,
// so the scan can fall through to the next candidate when a document is
// stuck.
func (w *Worker) process(ctx context.Context, doc *document.Document, settings layout.Settings, key string) bool {
	logger := w.logger.With("doc", doc.Name, "key", key)
	gen := w.gens.Current(doc.Hash)

	offset, pageIndex := 0, 0
	entry, err := w.store.Entry(ctx, doc.Hash, key)
	switch {
	case errors.Is(err, pagecache.ErrEntryNotFound):
		// Fresh key, or a corrupt entry the store reported as absent.
	case err != nil:
		logger.Warn("failed to load cache entry", "error", err)
		return false
	case entry.IsComplete:
		return false
	default:
		offset = entry.LastProcessedOffset
		pageIndex = len(entry.Pages)
	}

	text, err := doc.Text()
	if err != nil {
		logger.Warn("failed to load document text", "error", err)
		return false
	}

	if pageIndex > 0 {
		logger.Debug("resuming pagination", "pages", pageIndex, "offset", offset)
	}

	progressed := false
	for {
		pages, next, ok := w.measureBatch(logger, text, offset, pageIndex, settings)
		if !ok {
			return progressed
		}
		complete := next >= len(text)

		// Stale generation: settings changed while measuring. Discard the
		// batch; the next scan derives the new key.
		if w.gens.Current(doc.Hash) != gen {
			logger.Debug("generation superseded, discarding batch", "pages", len(pages))
			return true
		}
		if ctx.Err() != nil {
			return true
		}

		batch := pagecache.Batch{
			Pages:               pages,
			LastProcessedOffset: next,
			IsComplete:          complete,
			TotalPagesHint:      estimateTotalPages(pageIndex+len(pages), next, len(text)),
		}
		if err := w.commit(ctx, doc.Hash, key, batch); err != nil {
			logger.Warn("batch commit failed, deferring to next scan", "error", err)
			return progressed
		}
		progressed = true

		pageIndex += len(pages)
		offset = next

		if w.bus != nil {
			w.bus.Publish(notify.BatchCommitted{
				DocumentHash: doc.Hash,
				SettingsKey:  key,
				PageCount:    pageIndex,
				IsComplete:   complete,
			})
		}

		if complete {
			logger.Info("pagination complete", "pages", pageIndex)
			if w.pruneStale {
				if err := w.store.DeleteAllExcept(ctx, doc.Hash, key); err != nil {
					logger.Warn("failed to prune stale entries", "error", err)
				}
			}
			return true
		}

		// Cooperative yield between batches.
		select {
		case <-ctx.Done():
			return true
		case <-time.After(w.yieldDelay):
		}
	}
}

// measureBatch measures up to batchSize consecutive pages starting at
// offset. A measurement error or a zero-length range aborts the whole
// batch: nothing from it is committed, and the document is retried on a
// later scan.
func (w *Worker) measureBatch(logger *slog.Logger, text string, offset, pageIndex int, settings layout.Settings) ([]pagecache.PageRange, int, bool) {
	var pages []pagecache.PageRange
	for i := 0; i < w.batchSize && offset < len(text); i++ {
		end, err := w.measurer.PageBreak(text, offset, settings)
		if err != nil {
			logger.Warn("measurement failed", "offset", offset, "error", err)
			return nil, 0, false
		}
		if end <= offset {
			logger.Warn("layout anomaly: zero-length page", "offset", offset)
			return nil, 0, false
		}
		pages = append(pages, pagecache.PageRange{
			Index:       pageIndex + i,
			StartOffset: offset,
			EndOffset:   end,
			Content:     text[offset:end],
		})
		offset = end
	}
	return pages, offset, true
}

// commit writes one batch, retrying transient store failures a few times
// before giving up for this cycle.
func (w *Worker) commit(ctx context.Context, documentHash, key string, batch pagecache.Batch) error {
	return retry.Do(
		func() error {
			return w.store.UpsertBatch(ctx, documentHash, key, batch)
		},
		retry.Context(ctx),
		retry.Attempts(commitAttempts),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// A discontiguous batch is a logic fault, not a transient
			// condition; retrying cannot fix it.
			return !errors.Is(err, pagecache.ErrDiscontiguousBatch)
		}),
	)
}

// estimateTotalPages projects the final page count from progress so far.
func estimateTotalPages(pages, offset, total int) int {
	if offset <= 0 || pages <= 0 {
		return 0
	}
	if offset >= total {
		return pages
	}
	// Round up: partially measured documents always need at least one
	// more page than the linear projection.
	return (pages*total + offset - 1) / offset
}
