package logtail

import (
	"sync"

	"github.com/vpntools/vpnconsole/internal/model"
)

// DefaultSubscriberBuffer is the per-subscriber channel depth. A stream
// handler that falls this far behind loses batches rather than stalling
// the tailer.
const DefaultSubscriberBuffer = 64

type subscriber struct {
	filter model.Filter
	ch     chan []model.LogRecord
}

// Hub fans record batches out to stream subscribers, applying each
// subscriber's filter before delivery.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Subscribe registers a filtered subscriber. The cancel func is idempotent
// and closes the returned channel.
func (h *Hub) Subscribe(filter model.Filter) (<-chan []model.LogRecord, func()) {
	sub := &subscriber{
		filter: filter,
		ch:     make(chan []model.LogRecord, DefaultSubscriberBuffer),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers a batch to every subscriber whose filter passes at
// least one record. Slow subscribers drop the batch.
func (h *Hub) Publish(batch []model.LogRecord) {
	if len(batch) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		filtered := filterBatch(batch, sub.filter)
		if len(filtered) == 0 {
			continue
		}
		select {
		case sub.ch <- filtered:
		default:
			// Subscriber is not draining; dropping beats blocking the tailer.
		}
	}
}

// SubscriberCount reports current subscribers, used by the health endpoint.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func filterBatch(batch []model.LogRecord, filter model.Filter) []model.LogRecord {
	out := make([]model.LogRecord, 0, len(batch))
	for _, rec := range batch {
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}
