package logview

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vpntools/vpnconsole/internal/model"
)

// ViewState is what the log pane should render.
type ViewState int

const (
	// StateLoading holds until the first initial payload lands.
	StateLoading ViewState = iota
	// StateError shows the connection failure text.
	StateError
	// StateNoMatch means logs exist upstream but the filter hides all
	// of them, or there are simply none yet.
	StateNoMatch
	// StateReady shows the filtered records.
	StateReady
)

// Model accumulates streamed log records and derives the filtered view.
// The server already filters the stream; the local pass keeps the view
// coherent while a filter change is in flight and serves export.
type Model struct {
	records  []model.LogRecord
	filtered []model.LogRecord
	filter   model.Filter

	// maxRecords bounds the in-memory history; zero keeps everything.
	maxRecords int

	loading bool
	lastErr error
}

// New creates a Model in the loading state. maxRecords of zero means
// unbounded.
func New(maxRecords int) *Model {
	return &Model{maxRecords: maxRecords, loading: true}
}

// IngestInitial replaces the history with a fresh initial payload and
// leaves the loading state.
func (m *Model) IngestInitial(logs []model.LogRecord) {
	m.records = append(m.records[:0], logs...)
	m.loading = false
	m.lastErr = nil
	m.trim()
	m.applyFilter()
}

// IngestUpdate appends live records.
func (m *Model) IngestUpdate(logs []model.LogRecord) {
	m.records = append(m.records, logs...)
	m.lastErr = nil
	m.trim()
	m.applyFilter()
}

// SetError records a stream failure. Existing records stay visible once
// the connection recovers.
func (m *Model) SetError(err error) {
	m.lastErr = err
}

// SetFilter replaces the active filter and recomputes the view.
func (m *Model) SetFilter(f model.Filter) {
	m.filter = f
	m.applyFilter()
}

// Filter returns the active filter.
func (m *Model) Filter() model.Filter { return m.filter }

// Filtered returns the visible records, newest first.
func (m *Model) Filtered() []model.LogRecord { return m.filtered }

// Total returns how many records are held before filtering.
func (m *Model) Total() int { return len(m.records) }

// Err returns the last stream error, if any.
func (m *Model) Err() error { return m.lastErr }

// State reports which of the view states applies, in priority order:
// error, loading, no-match, ready.
func (m *Model) State() ViewState {
	switch {
	case m.lastErr != nil:
		return StateError
	case m.loading:
		return StateLoading
	case len(m.filtered) == 0:
		return StateNoMatch
	default:
		return StateReady
	}
}

func (m *Model) trim() {
	if m.maxRecords > 0 && len(m.records) > m.maxRecords {
		// Drop the oldest.
		m.records = append(m.records[:0], m.records[len(m.records)-m.maxRecords:]...)
	}
}

func (m *Model) applyFilter() {
	m.filtered = m.filtered[:0]
	for _, r := range m.records {
		if m.filter.Match(r) {
			m.filtered = append(m.filtered, r)
		}
	}
	sort.SliceStable(m.filtered, func(i, j int) bool {
		return m.filtered[i].Timestamp > m.filtered[j].Timestamp
	})
}

// ExportText renders the visible records as plain text, one
// "[timestamp][type] message" line each.
func (m *Model) ExportText() string {
	var b strings.Builder
	for i, r := range m.filtered {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s][%s] %s", r.Timestamp, r.Type, r.Message)
	}
	return b.String()
}

// ExportFileName returns the date-stamped download name for an export
// taken at t.
func ExportFileName(t time.Time) string {
	return "openvpn-logs-" + t.Format("2006-01-02") + ".txt"
}
