// Package notify carries the batch-committed signal from the pagination
// worker to foreground readers. It replaces timer polling as the primary
// refresh mechanism: the bus fires exactly once per committed batch.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// BatchCommitted describes one atomically committed pagination batch.
type BatchCommitted struct {
	DocumentHash string
	SettingsKey  string
	PageCount    int
	IsComplete   bool
}

type subscription struct {
	documentHash string
	settingsKey  string
	fn           func(BatchCommitted)
}

// Bus is a callback registry scoped by (document hash, settings key).
// Callbacks run synchronously on the publisher's goroutine, so they must
// be quick; readers use them to schedule a refresh, not to do I/O.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]subscription)}
}

// Subscribe registers fn for events matching documentHash and settingsKey.
// An empty settingsKey matches every key for the document. The returned
// handle unsubscribes.
func (b *Bus) Subscribe(documentHash, settingsKey string, fn func(BatchCommitted)) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	b.subs[id] = subscription{
		documentHash: documentHash,
		settingsKey:  settingsKey,
		fn:           fn,
	}
	return id
}

// Unsubscribe removes a subscription. Unknown handles are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Publish delivers ev to every matching subscriber.
func (b *Bus) Publish(ev BatchCommitted) {
	b.mu.RLock()
	fns := make([]func(BatchCommitted), 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.documentHash != ev.DocumentHash {
			continue
		}
		if sub.settingsKey != "" && sub.settingsKey != ev.SettingsKey {
			continue
		}
		fns = append(fns, sub.fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
