package tui

import (
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vpntools/vpnconsole/internal/logview"
	"github.com/vpntools/vpnconsole/internal/model"
	"github.com/vpntools/vpnconsole/internal/stream"
)

func newTestLogsPage() *LogsPage {
	// The manager is never started in these tests.
	return NewLogsPage(stream.NewManager("http://example.invalid", nil), 100)
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func sampleRecords() []model.LogRecord {
	return []model.LogRecord{
		{ID: "1", Timestamp: "2025-04-30 10:00:00", Type: model.CategoryInfo, Message: "hello"},
		{ID: "2", Timestamp: "2025-04-30 10:00:01", Type: model.CategoryError, Message: "boom"},
	}
}

func TestLogsPage_InitialPayloadLeavesLoading(t *testing.T) {
	p := newTestLogsPage()

	if p.view.State() != logview.StateLoading {
		t.Fatalf("state = %v, want loading before first payload", p.view.State())
	}

	cmd, _ := p.Update(streamEventMsg{ev: stream.Event{
		Message: &model.StreamMessage{Type: model.StreamInitial, Logs: sampleRecords()},
	}})
	if cmd == nil {
		t.Error("expected a follow-up wait command after a stream event")
	}
	if p.view.State() != logview.StateReady {
		t.Errorf("state = %v, want ready", p.view.State())
	}
	if p.view.Total() != 2 {
		t.Errorf("total = %d, want 2", p.view.Total())
	}
}

func TestLogsPage_DisconnectShowsError(t *testing.T) {
	p := newTestLogsPage()

	p.Update(streamEventMsg{ev: stream.Event{
		Message: &model.StreamMessage{Type: model.StreamInitial, Logs: sampleRecords()},
	}})
	p.Update(streamEventMsg{ev: stream.Event{
		State: stream.StateDisconnected,
		Err:   stream.ErrReconnecting,
	}})

	if p.view.State() != logview.StateError {
		t.Errorf("state = %v, want error", p.view.State())
	}
	if !strings.Contains(p.renderBody(), "Reconnecting") {
		t.Error("body should show the reconnect text")
	}

	// New data after a reconnect clears the error.
	p.Update(streamEventMsg{ev: stream.Event{
		Message: &model.StreamMessage{Type: model.StreamUpdate, Logs: sampleRecords()[:1]},
	}})
	if p.view.State() != logview.StateReady {
		t.Errorf("state after recovery = %v, want ready", p.view.State())
	}
}

func TestLogsPage_CategoryToggleBuildsFilter(t *testing.T) {
	p := newTestLogsPage()

	if got := p.currentFilter(); len(got.Types) != 0 {
		t.Errorf("all chips on should mean no type restriction, got %v", got.Types)
	}

	// Key "3" toggles the third category (error) off.
	p.Update(keyRune('3'))
	got := p.currentFilter()
	if len(got.Types) != len(model.Categories())-1 {
		t.Fatalf("types = %v, want all but one", got.Types)
	}
	for _, c := range got.Types {
		if c == model.CategoryError {
			t.Error("error category should have been toggled off")
		}
	}

	p.Update(keyRune('3'))
	if got := p.currentFilter(); len(got.Types) != 0 {
		t.Errorf("toggling back on should drop the restriction, got %v", got.Types)
	}
}

func TestLogsPage_SearchFiltersLocally(t *testing.T) {
	p := newTestLogsPage()
	p.Update(streamEventMsg{ev: stream.Event{
		Message: &model.StreamMessage{Type: model.StreamInitial, Logs: sampleRecords()},
	}})

	p.Update(keyRune('/'))
	if !p.searchActive {
		t.Fatal("search should be active after /")
	}

	p.Update(keyRune('b'))
	p.Update(keyRune('o'))
	p.Update(keyRune('o'))
	if got := len(p.view.Filtered()); got != 1 {
		t.Errorf("filtered = %d, want 1 for search 'boo'", got)
	}

	// Esc clears the search and restores the full view.
	p.Update(tea.KeyMsg{Type: tea.KeyEscape})
	if p.searchActive {
		t.Error("search should be inactive after esc")
	}
	if got := len(p.view.Filtered()); got != 2 {
		t.Errorf("filtered = %d, want 2 after clearing search", got)
	}
}

func TestLogsPage_Export(t *testing.T) {
	t.Chdir(t.TempDir())

	p := newTestLogsPage()
	p.Update(streamEventMsg{ev: stream.Event{
		Message: &model.StreamMessage{Type: model.StreamInitial, Logs: sampleRecords()},
	}})

	cmd, _ := p.Update(keyRune('e'))
	if cmd == nil {
		t.Fatal("expected an export command")
	}
	result := cmd()
	msg, ok := result.(exportDoneMsg)
	if !ok {
		t.Fatalf("msg = %T, want exportDoneMsg", result)
	}
	if msg.err != nil {
		t.Fatalf("export: %v", msg.err)
	}

	data, err := os.ReadFile(msg.path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	want := "[2025-04-30 10:00:01][error] boom\n[2025-04-30 10:00:00][info] hello\n"
	if string(data) != want {
		t.Errorf("export = %q, want %q", data, want)
	}
}

func TestLogsPage_TabSwitchesToStatus(t *testing.T) {
	p := newTestLogsPage()

	_, nav := p.Update(tea.KeyMsg{Type: tea.KeyTab})
	if nav == nil || nav.PageID != PageStatus {
		t.Errorf("nav = %+v, want status page", nav)
	}
}
