package pagecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite schema. Entries carry the progress counters; pages carry the
// content. Both are keyed by (doc_hash, settings_key) so one document can
// hold entries for several historical settings keys side by side.
const schema = `
CREATE TABLE IF NOT EXISTS entries (
    doc_hash         TEXT NOT NULL,
    settings_key     TEXT NOT NULL,
    page_count       INTEGER NOT NULL DEFAULT 0,
    last_offset      INTEGER NOT NULL DEFAULT 0,
    is_complete      INTEGER NOT NULL DEFAULT 0,
    total_pages_hint INTEGER NOT NULL DEFAULT 0,
    updated_at       INTEGER NOT NULL,
    PRIMARY KEY (doc_hash, settings_key)
);

CREATE TABLE IF NOT EXISTS pages (
    doc_hash     TEXT NOT NULL,
    settings_key TEXT NOT NULL,
    page_index   INTEGER NOT NULL,
    start_offset INTEGER NOT NULL,
    end_offset   INTEGER NOT NULL,
    content      TEXT NOT NULL,
    PRIMARY KEY (doc_hash, settings_key, page_index)
);

CREATE INDEX IF NOT EXISTS idx_entries_doc ON entries(doc_hash);
CREATE INDEX IF NOT EXISTS idx_pages_doc ON pages(doc_hash);
`

// SQLiteStore implements Store on an embedded sqlite database. WAL mode
// lets readers proceed while the single writer commits; a batch lands in
// one transaction, so readers observe entries only at batch boundaries.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the cache database at dbPath.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dsn := dbPath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("store", "sqlite"),
	}, nil
}

// UpsertBatch implements Store. The pages and the counter update commit in
// a single transaction; the append is validated against the committed
// counters inside that transaction so a concurrent restart cannot
// interleave.
func (s *SQLiteStore) UpsertBatch(ctx context.Context, documentHash, settingsKey string, batch Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	var pageCount, lastOffset int
	err = tx.QueryRowContext(ctx,
		`SELECT page_count, last_offset FROM entries WHERE doc_hash = ? AND settings_key = ?`,
		documentHash, settingsKey,
	).Scan(&pageCount, &lastOffset)
	if errors.Is(err, sql.ErrNoRows) {
		pageCount, lastOffset = 0, 0
	} else if err != nil {
		return fmt.Errorf("failed to read entry counters: %w", err)
	}

	if err := validateAppend(pageCount, lastOffset, batch); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO pages (doc_hash, settings_key, page_index, start_offset, end_offset, content)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range batch.Pages {
		if _, err := stmt.ExecContext(ctx, documentHash, settingsKey, p.Index, p.StartOffset, p.EndOffset, p.Content); err != nil {
			return fmt.Errorf("failed to insert page %d: %w", p.Index, err)
		}
	}

	complete := 0
	if batch.IsComplete {
		complete = 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (doc_hash, settings_key, page_count, last_offset, is_complete, total_pages_hint, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (doc_hash, settings_key) DO UPDATE SET
		   page_count = excluded.page_count,
		   last_offset = excluded.last_offset,
		   is_complete = excluded.is_complete,
		   total_pages_hint = excluded.total_pages_hint,
		   updated_at = excluded.updated_at`,
		documentHash, settingsKey,
		pageCount+len(batch.Pages), batch.LastProcessedOffset, complete, batch.TotalPagesHint,
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entry counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Meta implements Store.
func (s *SQLiteStore) Meta(ctx context.Context, documentHash, settingsKey string) (Meta, error) {
	var m Meta
	var complete int
	err := s.db.QueryRowContext(ctx,
		`SELECT page_count, is_complete, last_offset, total_pages_hint
		 FROM entries WHERE doc_hash = ? AND settings_key = ?`,
		documentHash, settingsKey,
	).Scan(&m.PageCount, &complete, &m.LastProcessedOffset, &m.TotalPagesHint)
	if errors.Is(err, sql.ErrNoRows) {
		return Meta{}, ErrEntryNotFound
	}
	if err != nil {
		return Meta{}, fmt.Errorf("failed to read entry meta: %w", err)
	}
	m.IsComplete = complete == 1
	return m, nil
}

// Page implements Store.
func (s *SQLiteStore) Page(ctx context.Context, documentHash, settingsKey string, index int) (PageRange, error) {
	var p PageRange
	err := s.db.QueryRowContext(ctx,
		`SELECT page_index, start_offset, end_offset, content
		 FROM pages WHERE doc_hash = ? AND settings_key = ? AND page_index = ?`,
		documentHash, settingsKey, index,
	).Scan(&p.Index, &p.StartOffset, &p.EndOffset, &p.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return PageRange{}, ErrPageNotFound
	}
	if err != nil {
		return PageRange{}, fmt.Errorf("failed to read page %d: %w", index, err)
	}
	return p, nil
}

// Entry implements Store. A structurally invalid entry (index gap, broken
// boundary chain, counter drift) is logged and reported as absent so the
// worker restarts the key from offset zero.
func (s *SQLiteStore) Entry(ctx context.Context, documentHash, settingsKey string) (*Entry, error) {
	meta, err := s.Meta(ctx, documentHash, settingsKey)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT page_index, start_offset, end_offset, content
		 FROM pages WHERE doc_hash = ? AND settings_key = ?
		 ORDER BY page_index ASC`,
		documentHash, settingsKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}
	defer rows.Close()

	entry := &Entry{
		DocumentHash:        documentHash,
		SettingsKey:         settingsKey,
		LastProcessedOffset: meta.LastProcessedOffset,
		IsComplete:          meta.IsComplete,
	}
	for rows.Next() {
		var p PageRange
		if err := rows.Scan(&p.Index, &p.StartOffset, &p.EndOffset, &p.Content); err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}
		entry.Pages = append(entry.Pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}

	if err := entry.Validate(); err != nil || len(entry.Pages) != meta.PageCount {
		if err == nil {
			err = fmt.Errorf("page count %d does not match recorded %d", len(entry.Pages), meta.PageCount)
		}
		s.logger.Warn("corrupt cache entry treated as absent",
			"doc", documentHash, "key", settingsKey, "error", err)
		// Purge the damaged rows so the next commit can restart the key
		// from offset zero instead of fighting stale counters.
		if derr := s.deleteWhere(ctx, `doc_hash = ? AND settings_key = ?`, documentHash, settingsKey); derr != nil {
			s.logger.Warn("failed to purge corrupt entry", "doc", documentHash, "key", settingsKey, "error", derr)
		}
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

// DeleteAllExcept implements Store.
func (s *SQLiteStore) DeleteAllExcept(ctx context.Context, documentHash, keepSettingsKey string) error {
	return s.deleteWhere(ctx,
		`doc_hash = ? AND settings_key != ?`, documentHash, keepSettingsKey)
}

// DeleteAll implements Store.
func (s *SQLiteStore) DeleteAll(ctx context.Context, documentHash string) error {
	return s.deleteWhere(ctx, `doc_hash = ?`, documentHash)
}

func (s *SQLiteStore) deleteWhere(ctx context.Context, where string, args ...any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE `+where, args...); err != nil {
		return fmt.Errorf("failed to delete pages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE `+where, args...); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
