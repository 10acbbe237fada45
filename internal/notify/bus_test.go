package notify

import "testing"

func TestBus(t *testing.T) {
	t.Run("delivers to matching subscriber", func(t *testing.T) {
		bus := NewBus()
		var got []BatchCommitted
		bus.Subscribe("doc1", "key1", func(ev BatchCommitted) {
			got = append(got, ev)
		})

		bus.Publish(BatchCommitted{DocumentHash: "doc1", SettingsKey: "key1", PageCount: 10})
		bus.Publish(BatchCommitted{DocumentHash: "doc1", SettingsKey: "key2", PageCount: 3})
		bus.Publish(BatchCommitted{DocumentHash: "doc2", SettingsKey: "key1", PageCount: 7})

		if len(got) != 1 || got[0].PageCount != 10 {
			t.Errorf("got %v, want one event for doc1/key1", got)
		}
	})

	t.Run("empty settings key matches every key", func(t *testing.T) {
		bus := NewBus()
		count := 0
		bus.Subscribe("doc1", "", func(BatchCommitted) { count++ })

		bus.Publish(BatchCommitted{DocumentHash: "doc1", SettingsKey: "key1"})
		bus.Publish(BatchCommitted{DocumentHash: "doc1", SettingsKey: "key2"})
		bus.Publish(BatchCommitted{DocumentHash: "doc2", SettingsKey: "key1"})

		if count != 2 {
			t.Errorf("count = %d, want 2", count)
		}
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		bus := NewBus()
		count := 0
		id := bus.Subscribe("doc1", "key1", func(BatchCommitted) { count++ })

		bus.Publish(BatchCommitted{DocumentHash: "doc1", SettingsKey: "key1"})
		bus.Unsubscribe(id)
		bus.Publish(BatchCommitted{DocumentHash: "doc1", SettingsKey: "key1"})

		if count != 1 {
			t.Errorf("count = %d, want 1", count)
		}
	})

	t.Run("unknown handle is a no-op", func(t *testing.T) {
		bus := NewBus()
		bus.Unsubscribe("not-a-handle")
	})
}
