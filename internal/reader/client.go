// Package reader is the foreground's read-only window onto the page
// cache. A Client fetches committed pages and metadata from the store and
// refreshes its view when the pagination worker announces a batch; it
// never computes pagination or writes to the store.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackzampolin/folio/internal/notify"
	"github.com/jackzampolin/folio/internal/pagecache"
)

// ErrPageUnavailable is returned for a page index that has not been
// committed yet. It is distinct from any real page content; callers show
// a placeholder and wait for the next update.
var ErrPageUnavailable = errors.New("page not yet available")

// DefaultPollInterval is the fallback poll cadence. Notifications are the
// primary refresh mechanism; the poll only covers missed events.
const DefaultPollInterval = 5 * time.Second

// Config assembles a Client. Store, DocumentHash, and SettingsKey are
// required.
type Config struct {
	Store        pagecache.Store
	DocumentHash string
	SettingsKey  string

	// Bus delivers batch-committed events. Optional; without it the
	// client falls back to polling alone.
	Bus *notify.Bus

	// OnUpdate runs on the client's own goroutine whenever the cached
	// metadata view changes. Optional.
	OnUpdate func(pagecache.Meta)

	PollInterval time.Duration
	Logger       *slog.Logger
}

// Client serves page reads for one (document, settings key) pair.
type Client struct {
	store        pagecache.Store
	documentHash string
	settingsKey  string
	onUpdate     func(pagecache.Meta)
	logger       *slog.Logger

	bus   *notify.Bus
	subID string

	mu   sync.RWMutex
	meta pagecache.Meta

	kick   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient builds a Client, primes its metadata view, and starts the
// refresh loop. Call Close when the view is no longer needed.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("reader client requires a Store")
	}
	if cfg.DocumentHash == "" {
		return nil, fmt.Errorf("reader client requires a document hash")
	}
	if cfg.SettingsKey == "" {
		return nil, fmt.Errorf("reader client requires a settings key")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		store:        cfg.Store,
		documentHash: cfg.DocumentHash,
		settingsKey:  cfg.SettingsKey,
		onUpdate:     cfg.OnUpdate,
		logger:       logger.With("reader", cfg.DocumentHash),
		bus:          cfg.Bus,
		kick:         make(chan struct{}, 1),
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	c.refresh(ctx)

	if c.bus != nil {
		// The callback runs on the worker's goroutine, so it only nudges
		// the refresh loop; the store read happens over here.
		c.subID = c.bus.Subscribe(cfg.DocumentHash, cfg.SettingsKey, func(notify.BatchCommitted) {
			select {
			case c.kick <- struct{}{}:
			default:
			}
		})
	}

	go c.run(ctx, pollInterval)
	return c, nil
}

// Close detaches the client from the bus and stops its refresh loop.
func (c *Client) Close() {
	if c.bus != nil && c.subID != "" {
		c.bus.Unsubscribe(c.subID)
		c.subID = ""
	}
	c.cancel()
	<-c.done
}

// CurrentPage returns the committed page at index, or ErrPageUnavailable
// when that index has not been paginated yet.
func (c *Client) CurrentPage(ctx context.Context, index int) (pagecache.PageRange, error) {
	page, err := c.store.Page(ctx, c.documentHash, c.settingsKey, index)
	switch {
	case errors.Is(err, pagecache.ErrEntryNotFound), errors.Is(err, pagecache.ErrPageNotFound):
		return pagecache.PageRange{}, fmt.Errorf("page %d: %w", index, ErrPageUnavailable)
	case err != nil:
		return pagecache.PageRange{}, fmt.Errorf("failed to fetch page %d: %w", index, err)
	}
	return page, nil
}

// PageCount reports the committed page count and whether pagination has
// finished, from the cached metadata view.
func (c *Client) PageCount() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta.PageCount, c.meta.IsComplete
}

// Meta returns the full cached metadata view.
func (c *Client) Meta() pagecache.Meta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta
}

func (c *Client) run(ctx context.Context, pollInterval time.Duration) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.kick:
		case <-time.After(pollInterval):
		}
		c.refresh(ctx)
	}
}

// refresh re-reads store metadata and fires OnUpdate when the view moved.
// An absent entry reads as zero pages, not an error: the worker simply
// has not started on this key yet.
func (c *Client) refresh(ctx context.Context) {
	meta, err := c.store.Meta(ctx, c.documentHash, c.settingsKey)
	switch {
	case errors.Is(err, pagecache.ErrEntryNotFound):
		meta = pagecache.Meta{}
	case err != nil:
		c.logger.Warn("failed to refresh cache metadata", "error", err)
		return
	}

	c.mu.Lock()
	changed := meta != c.meta
	c.meta = meta
	c.mu.Unlock()

	if changed && c.onUpdate != nil {
		c.onUpdate(meta)
	}
}
