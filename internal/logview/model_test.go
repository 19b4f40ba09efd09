package logview

import (
	"errors"
	"testing"
	"time"

	"github.com/vpntools/vpnconsole/internal/model"
)

func rec(id, ts string, typ model.Category, msg string) model.LogRecord {
	return model.LogRecord{ID: id, Timestamp: ts, Type: typ, Message: msg}
}

func TestModel_StatesAndIngest(t *testing.T) {
	t.Parallel()

	m := New(0)
	if m.State() != StateLoading {
		t.Errorf("fresh state = %v, want loading", m.State())
	}

	m.IngestInitial(nil)
	if m.State() != StateNoMatch {
		t.Errorf("empty initial state = %v, want no-match", m.State())
	}

	m.IngestInitial([]model.LogRecord{
		rec("1", "2025-04-30 10:00:00", model.CategoryInfo, "first"),
	})
	if m.State() != StateReady || m.Total() != 1 {
		t.Errorf("state = %v total = %d", m.State(), m.Total())
	}

	m.IngestUpdate([]model.LogRecord{
		rec("2", "2025-04-30 10:00:05", model.CategoryError, "second"),
	})
	if m.Total() != 2 {
		t.Errorf("total after update = %d", m.Total())
	}

	// A second initial payload replaces, not appends.
	m.IngestInitial([]model.LogRecord{
		rec("3", "2025-04-30 10:01:00", model.CategoryInfo, "replacement"),
	})
	if m.Total() != 1 || m.Filtered()[0].ID != "3" {
		t.Errorf("after re-initial: total=%d filtered=%+v", m.Total(), m.Filtered())
	}
}

func TestModel_ErrorStateWinsAndClearsOnData(t *testing.T) {
	t.Parallel()

	m := New(0)
	m.IngestInitial([]model.LogRecord{rec("1", "2025-04-30 10:00:00", model.CategoryInfo, "x")})

	m.SetError(errors.New("Connection to log stream failed. Reconnecting..."))
	if m.State() != StateError {
		t.Errorf("state = %v, want error", m.State())
	}
	// Records survive the error.
	if m.Total() != 1 {
		t.Errorf("total = %d", m.Total())
	}

	m.IngestUpdate([]model.LogRecord{rec("2", "2025-04-30 10:00:01", model.CategoryInfo, "y")})
	if m.State() != StateReady {
		t.Errorf("state after recovery = %v, want ready", m.State())
	}
}

func TestModel_FilterAndSort(t *testing.T) {
	t.Parallel()

	m := New(0)
	m.IngestInitial([]model.LogRecord{
		rec("1", "2025-04-30 10:00:00", model.CategoryInfo, "client says hi"),
		rec("2", "2025-04-30 10:00:02", model.CategoryError, "TLS handshake failed"),
		rec("3", "2025-04-30 10:00:01", model.CategoryConnection, "Client connected"),
	})

	// Unfiltered view is newest first.
	got := m.Filtered()
	if got[0].ID != "2" || got[1].ID != "3" || got[2].ID != "1" {
		t.Errorf("order = %v %v %v, want newest first", got[0].ID, got[1].ID, got[2].ID)
	}

	m.SetFilter(model.Filter{Types: []model.Category{model.CategoryConnection}})
	if got := m.Filtered(); len(got) != 1 || got[0].ID != "3" {
		t.Errorf("type filter = %+v", got)
	}

	m.SetFilter(model.Filter{Search: "CLIENT"})
	if got := m.Filtered(); len(got) != 2 {
		t.Errorf("case-insensitive search = %+v", got)
	}

	m.SetFilter(model.Filter{Search: "nothing matches"})
	if m.State() != StateNoMatch {
		t.Errorf("state = %v, want no-match", m.State())
	}
	// The full history is untouched by filtering.
	if m.Total() != 3 {
		t.Errorf("total = %d", m.Total())
	}
}

func TestModel_CapDropsOldest(t *testing.T) {
	t.Parallel()

	m := New(3)
	m.IngestInitial([]model.LogRecord{
		rec("1", "2025-04-30 10:00:00", model.CategoryInfo, "a"),
		rec("2", "2025-04-30 10:00:01", model.CategoryInfo, "b"),
		rec("3", "2025-04-30 10:00:02", model.CategoryInfo, "c"),
	})
	m.IngestUpdate([]model.LogRecord{
		rec("4", "2025-04-30 10:00:03", model.CategoryInfo, "d"),
	})

	if m.Total() != 3 {
		t.Fatalf("total = %d, want capped at 3", m.Total())
	}
	got := m.Filtered()
	if got[0].ID != "4" || got[len(got)-1].ID != "2" {
		t.Errorf("capped view = %+v, want oldest dropped", got)
	}
}

func TestModel_Export(t *testing.T) {
	t.Parallel()

	m := New(0)
	m.IngestInitial([]model.LogRecord{
		rec("1", "2025-04-30 10:00:00", model.CategoryInfo, "hello"),
		rec("2", "2025-04-30 10:00:01", model.CategoryError, "boom"),
	})

	want := "[2025-04-30 10:00:01][error] boom\n[2025-04-30 10:00:00][info] hello"
	if got := m.ExportText(); got != want {
		t.Errorf("ExportText = %q, want %q", got, want)
	}

	name := ExportFileName(time.Date(2025, 4, 30, 18, 0, 0, 0, time.UTC))
	if name != "openvpn-logs-2025-04-30.txt" {
		t.Errorf("file name = %q", name)
	}
}

func TestAutoscroll(t *testing.T) {
	t.Parallel()

	a := NewAutoscroll()
	if !a.Pinned() {
		t.Fatal("controller should start pinned")
	}

	// Scrolled far from the bottom.
	a.Observe(0, 1000, 400)
	if a.Pinned() {
		t.Error("scrolling away should unpin")
	}

	// Within the threshold of the bottom.
	a.Observe(560, 1000, 400)
	if !a.Pinned() {
		t.Error("returning to within 50 units of the bottom should re-pin")
	}

	// Exactly at the threshold stays unpinned.
	a.Observe(550, 1000, 400)
	if a.Pinned() {
		t.Error("exactly 50 units away is not at the bottom")
	}

	a.JumpToLatest()
	if !a.Pinned() {
		t.Error("JumpToLatest should pin")
	}
}
