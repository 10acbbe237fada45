package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Library scans a directory of imported documents. Scan order is the
// library order the worker processes documents in: lexical by file name,
// so it is stable across runs.
//
// Hashing every file on every scan would be wasteful at a 5s cadence, so
// the library memoizes fingerprints by (size, mtime) and only rehashes
// files that changed.
type Library struct {
	dir    string
	logger *slog.Logger

	mu   sync.Mutex
	memo map[string]memoEntry
}

type memoEntry struct {
	size    int64
	modTime time.Time
	doc     *Document
}

// NewLibrary creates a library over dir. The directory is created if it
// does not exist.
func NewLibrary(dir string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create library directory: %w", err)
	}
	return &Library{
		dir:    dir,
		logger: logger.With("component", "library"),
		memo:   make(map[string]memoEntry),
	}, nil
}

// Dir returns the library root.
func (l *Library) Dir() string {
	return l.dir
}

// Scan lists the library's documents in library order. Unreadable or
// non-UTF-8 files are logged and skipped; they are retried on the next
// scan.
func (l *Library) Scan() ([]*Document, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read library directory: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool, len(entries))
	var docs []*Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())
		seen[path] = true

		doc, err := l.fingerprint(path, entry)
		if err != nil {
			l.logger.Warn("skipping document", "path", path, "error", err)
			continue
		}
		docs = append(docs, doc)
	}

	for path := range l.memo {
		if !seen[path] {
			delete(l.memo, path)
		}
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func (l *Library) fingerprint(path string, entry os.DirEntry) (*Document, error) {
	info, err := entry.Info()
	if err != nil {
		return nil, err
	}
	if m, ok := l.memo[path]; ok && m.size == info.Size() && m.modTime.Equal(info.ModTime()) {
		return m.doc, nil
	}

	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	l.memo[path] = memoEntry{size: info.Size(), modTime: info.ModTime(), doc: doc}
	return doc, nil
}

// Watch observes the library directory and invokes onChange whenever a
// document is created, written, renamed, or removed. It blocks until ctx
// is cancelled. The callback is a hint to rescan, not a description of
// what changed.
func (l *Library) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create library watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("failed to watch library directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				l.logger.Debug("library changed", "event", event.Op.String(), "path", event.Name)
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("library watcher error", "error", err)
		}
	}
}
