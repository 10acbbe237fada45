package pagecache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with in-process storage. It backs unit
// tests and embedders that do not want a database file. Reads return
// copies, so callers never alias the store's internal state.
//
// Error injection hooks let tests exercise the worker's failure paths.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]*Entry // doc hash -> settings key -> entry
	hints   map[string]map[string]int

	// UpsertErr, when non-nil, fails every UpsertBatch call until cleared.
	// FailFirstUpserts instead fails only that many calls, simulating a
	// transient write failure that a retry recovers from.
	UpsertErr        error
	FailFirstUpserts int
}

var errInjectedWrite = &transientWriteError{}

type transientWriteError struct{}

func (*transientWriteError) Error() string { return "injected transient write failure" }

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]map[string]*Entry),
		hints:   make(map[string]map[string]int),
	}
}

// UpsertBatch implements Store.
func (m *MemoryStore) UpsertBatch(_ context.Context, documentHash, settingsKey string, batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailFirstUpserts > 0 {
		m.FailFirstUpserts--
		return errInjectedWrite
	}
	if m.UpsertErr != nil {
		return m.UpsertErr
	}

	entry := m.lookup(documentHash, settingsKey)
	count, offset := 0, 0
	if entry != nil {
		count, offset = len(entry.Pages), entry.LastProcessedOffset
	}
	if err := validateAppend(count, offset, batch); err != nil {
		return err
	}

	if entry == nil {
		entry = &Entry{DocumentHash: documentHash, SettingsKey: settingsKey}
		if m.entries[documentHash] == nil {
			m.entries[documentHash] = make(map[string]*Entry)
			m.hints[documentHash] = make(map[string]int)
		}
		m.entries[documentHash][settingsKey] = entry
	}

	entry.Pages = append(entry.Pages, batch.Pages...)
	entry.LastProcessedOffset = batch.LastProcessedOffset
	entry.IsComplete = batch.IsComplete
	entry.LastUpdated = time.Now()
	m.hints[documentHash][settingsKey] = batch.TotalPagesHint
	return nil
}

// Meta implements Store.
func (m *MemoryStore) Meta(_ context.Context, documentHash, settingsKey string) (Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry := m.lookup(documentHash, settingsKey)
	if entry == nil {
		return Meta{}, ErrEntryNotFound
	}
	meta := entry.Meta()
	meta.TotalPagesHint = m.hints[documentHash][settingsKey]
	return meta, nil
}

// Page implements Store.
func (m *MemoryStore) Page(_ context.Context, documentHash, settingsKey string, index int) (PageRange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry := m.lookup(documentHash, settingsKey)
	if entry == nil {
		return PageRange{}, ErrPageNotFound
	}
	if index < 0 || index >= len(entry.Pages) {
		return PageRange{}, ErrPageNotFound
	}
	return entry.Pages[index], nil
}

// Entry implements Store.
func (m *MemoryStore) Entry(_ context.Context, documentHash, settingsKey string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry := m.lookup(documentHash, settingsKey)
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	cp := *entry
	cp.Pages = make([]PageRange, len(entry.Pages))
	copy(cp.Pages, entry.Pages)
	return &cp, nil
}

// DeleteAllExcept implements Store.
func (m *MemoryStore) DeleteAllExcept(_ context.Context, documentHash, keepSettingsKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.entries[documentHash] {
		if key != keepSettingsKey {
			delete(m.entries[documentHash], key)
			delete(m.hints[documentHash], key)
		}
	}
	return nil
}

// DeleteAll implements Store.
func (m *MemoryStore) DeleteAll(_ context.Context, documentHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, documentHash)
	delete(m.hints, documentHash)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}

// Keys returns the settings keys currently stored for a document, for
// test assertions.
func (m *MemoryStore) Keys(documentHash string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.entries[documentHash] {
		keys = append(keys, key)
	}
	return keys
}

func (m *MemoryStore) lookup(documentHash, settingsKey string) *Entry {
	byKey, ok := m.entries[documentHash]
	if !ok {
		return nil
	}
	return byKey[settingsKey]
}

var _ Store = (*MemoryStore)(nil)
