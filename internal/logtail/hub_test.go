package logtail

import (
	"testing"

	"github.com/vpntools/vpnconsole/internal/model"
)

func TestHub_PublishAppliesFilter(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ch, cancel := hub.Subscribe(model.Filter{Types: []model.Category{model.CategoryError}})
	defer cancel()

	hub.Publish([]model.LogRecord{
		{ID: "1", Type: model.CategoryError, Message: "boom"},
		{ID: "2", Type: model.CategoryInfo, Message: "fine"},
	})

	batch := <-ch
	if len(batch) != 1 || batch[0].ID != "1" {
		t.Fatalf("filtered batch = %+v, want only record 1", batch)
	}
}

func TestHub_NoDeliveryWhenNothingMatches(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ch, cancel := hub.Subscribe(model.Filter{Search: "nomatch"})
	defer cancel()

	hub.Publish([]model.LogRecord{{ID: "1", Type: model.CategoryInfo, Message: "hello"}})

	select {
	case batch := <-ch:
		t.Fatalf("unexpected delivery: %+v", batch)
	default:
	}
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	_, cancel := hub.Subscribe(model.Filter{})
	cancel()
	cancel() // must not panic

	if got := hub.SubscriberCount(); got != 0 {
		t.Errorf("subscriber count = %d after cancel, want 0", got)
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	_, cancel := hub.Subscribe(model.Filter{})
	defer cancel()

	rec := []model.LogRecord{{ID: "x", Type: model.CategoryInfo, Message: "m"}}
	// Fill the buffer and then some; Publish must return regardless.
	for i := 0; i < DefaultSubscriberBuffer+10; i++ {
		hub.Publish(rec)
	}
}
