package pagecache

import (
	"context"
	"errors"
)

// Sentinel errors shared by all store implementations.
var (
	// ErrEntryNotFound reports that no entry exists for the requested
	// (document hash, settings key) pair. Corrupt persisted entries are
	// reported the same way so pagination restarts instead of aborting.
	ErrEntryNotFound = errors.New("cache entry not found")

	// ErrPageNotFound reports a page index beyond the committed range.
	ErrPageNotFound = errors.New("page not committed")

	// ErrDiscontiguousBatch reports an append whose pages do not continue
	// exactly where the entry left off. The worker never produces such a
	// batch under a stable generation; rejecting it keeps partially-stale
	// work out of the store.
	ErrDiscontiguousBatch = errors.New("batch does not extend entry contiguously")
)

// Batch is one atomically-committed group of consecutive pages plus the
// progress counters that accompany it. Readers observe either none or all
// of a batch.
type Batch struct {
	Pages               []PageRange
	LastProcessedOffset int
	IsComplete          bool
	TotalPagesHint      int
}

// Store is the persistence boundary of the pagination engine. The worker
// is the sole writer; any number of readers may call the fetch methods
// concurrently with writes.
//
// Implementations must make UpsertBatch atomic with respect to readers
// and must treat malformed persisted state as absent (log and return
// ErrEntryNotFound) rather than failing hard.
type Store interface {
	// UpsertBatch appends batch.Pages to the entry for
	// (documentHash, settingsKey), advances the progress counters, and
	// creates the entry if absent.
	UpsertBatch(ctx context.Context, documentHash, settingsKey string, batch Batch) error

	// Meta returns the entry's metadata without loading page content.
	Meta(ctx context.Context, documentHash, settingsKey string) (Meta, error)

	// Page returns one committed page by index.
	Page(ctx context.Context, documentHash, settingsKey string, index int) (PageRange, error)

	// Entry materializes the full entry, pages included. Used when
	// resuming pagination or replaying state to a late subscriber.
	Entry(ctx context.Context, documentHash, settingsKey string) (*Entry, error)

	// DeleteAllExcept removes every entry for the document except the one
	// under keepSettingsKey.
	DeleteAllExcept(ctx context.Context, documentHash, keepSettingsKey string) error

	// DeleteAll removes every entry for the document.
	DeleteAll(ctx context.Context, documentHash string) error

	// Close releases the store's resources.
	Close() error
}

// validateAppend checks that a batch continues an entry exactly where it
// left off: indices continue the committed count, the first new page
// starts at the committed offset, and the batch itself is contiguous.
func validateAppend(pageCount, lastOffset int, batch Batch) error {
	offset := lastOffset
	for i, p := range batch.Pages {
		if p.Index != pageCount+i {
			return ErrDiscontiguousBatch
		}
		if p.StartOffset != offset {
			return ErrDiscontiguousBatch
		}
		if p.EndOffset <= p.StartOffset {
			return ErrDiscontiguousBatch
		}
		if len(p.Content) != p.EndOffset-p.StartOffset {
			return ErrDiscontiguousBatch
		}
		offset = p.EndOffset
	}
	if batch.LastProcessedOffset < offset {
		return ErrDiscontiguousBatch
	}
	return nil
}
