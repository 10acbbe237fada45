package pagecache

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openSQLite(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	return s
}

func TestSQLiteStorePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pages.db")
	text := strings.Repeat("y", 60)

	s := openSQLite(t, path)
	batch := Batch{Pages: pageRun(text, 0, 0, 30, 2), LastProcessedOffset: 60, IsComplete: true, TotalPagesHint: 2}
	if err := s.UpsertBatch(ctx, "doc1", "key1", batch); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen: committed state must survive the restart.
	s = openSQLite(t, path)
	defer s.Close()

	entry, err := s.Entry(ctx, "doc1", "key1")
	if err != nil {
		t.Fatalf("Entry() after reopen error = %v", err)
	}
	if len(entry.Pages) != 2 || !entry.IsComplete || entry.LastProcessedOffset != 60 {
		t.Errorf("entry after reopen = %+v", entry)
	}
}

func TestSQLiteStoreCorruption(t *testing.T) {
	ctx := context.Background()

	t.Run("page gap reads as cache miss", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pages.db")
		s := openSQLite(t, path)
		defer s.Close()

		text := strings.Repeat("z", 90)
		if err := s.UpsertBatch(ctx, "doc1", "key1", Batch{Pages: pageRun(text, 0, 0, 30, 3), LastProcessedOffset: 90}); err != nil {
			t.Fatalf("UpsertBatch() error = %v", err)
		}

		// Carve a hole in the middle of the committed range, the way a
		// torn write from a pre-WAL crash would.
		if _, err := s.db.Exec(`DELETE FROM pages WHERE doc_hash = ? AND page_index = 1`, "doc1"); err != nil {
			t.Fatalf("failed to corrupt store: %v", err)
		}

		if _, err := s.Entry(ctx, "doc1", "key1"); !errors.Is(err, ErrEntryNotFound) {
			t.Errorf("Entry() on corrupt data error = %v, want ErrEntryNotFound", err)
		}
	})

	t.Run("broken boundary chain reads as cache miss", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pages.db")
		s := openSQLite(t, path)
		defer s.Close()

		text := strings.Repeat("z", 60)
		if err := s.UpsertBatch(ctx, "doc1", "key1", Batch{Pages: pageRun(text, 0, 0, 30, 2), LastProcessedOffset: 60}); err != nil {
			t.Fatalf("UpsertBatch() error = %v", err)
		}
		if _, err := s.db.Exec(`UPDATE pages SET start_offset = 7 WHERE doc_hash = ? AND page_index = 1`, "doc1"); err != nil {
			t.Fatalf("failed to corrupt store: %v", err)
		}

		if _, err := s.Entry(ctx, "doc1", "key1"); !errors.Is(err, ErrEntryNotFound) {
			t.Errorf("Entry() on corrupt data error = %v, want ErrEntryNotFound", err)
		}
	})

	t.Run("corrupt entry can be repaginated from zero", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pages.db")
		s := openSQLite(t, path)
		defer s.Close()

		text := strings.Repeat("z", 60)
		if err := s.UpsertBatch(ctx, "doc1", "key1", Batch{Pages: pageRun(text, 0, 0, 30, 2), LastProcessedOffset: 60}); err != nil {
			t.Fatalf("UpsertBatch() error = %v", err)
		}
		if _, err := s.db.Exec(`DELETE FROM pages WHERE doc_hash = ?`, "doc1"); err != nil {
			t.Fatalf("failed to corrupt store: %v", err)
		}
		if _, err := s.Entry(ctx, "doc1", "key1"); !errors.Is(err, ErrEntryNotFound) {
			t.Fatal("expected corrupt entry to read as absent")
		}

		// Detection purges the damaged rows, so the worker can recommit
		// from offset zero without any explicit cleanup.
		if err := s.UpsertBatch(ctx, "doc1", "key1", Batch{Pages: pageRun(text, 0, 0, 30, 2), LastProcessedOffset: 60, IsComplete: true}); err != nil {
			t.Fatalf("recommit after corruption error = %v", err)
		}
		entry, err := s.Entry(ctx, "doc1", "key1")
		if err != nil {
			t.Fatalf("Entry() after recovery error = %v", err)
		}
		if len(entry.Pages) != 2 || !entry.IsComplete {
			t.Errorf("recovered entry = %+v", entry)
		}
	})
}

func TestSQLiteStoreConcurrentReaders(t *testing.T) {
	// A reader polling Meta while the writer commits must only ever see
	// batch-aligned counts.
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pages.db")
	s := openSQLite(t, path)
	defer s.Close()

	text := strings.Repeat("w", 1000)
	done := make(chan struct{})
	go func() {
		defer close(done)
		off, idx := 0, 0
		for off < len(text) {
			pages := pageRun(text, idx, off, 50, 2)
			off = pages[len(pages)-1].EndOffset
			idx += len(pages)
			batch := Batch{Pages: pages, LastProcessedOffset: off, IsComplete: off >= len(text)}
			if err := s.UpsertBatch(ctx, "doc1", "key1", batch); err != nil {
				t.Errorf("UpsertBatch() error = %v", err)
				return
			}
		}
	}()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("writer did not finish in time")
		default:
		}

		meta, err := s.Meta(ctx, "doc1", "key1")
		if err != nil {
			if errors.Is(err, ErrEntryNotFound) {
				continue
			}
			t.Fatalf("Meta() error = %v", err)
		}
		if meta.PageCount%2 != 0 {
			t.Fatalf("observed mid-batch page count %d", meta.PageCount)
		}
		if meta.IsComplete {
			break
		}
	}
	<-done
}
