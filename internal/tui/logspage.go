package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vpntools/vpnconsole/internal/logview"
	"github.com/vpntools/vpnconsole/internal/model"
	"github.com/vpntools/vpnconsole/internal/stream"
)

// PageLogs identifies the live log page.
const PageLogs = "logs"

// searchDebounce is how long typing in the search box has to pause
// before the stream reconnects with the new query.
const searchDebounce = 300 * time.Millisecond

// LogsPage shows the live log stream with search, category filters,
// autoscroll, and export.
type LogsPage struct {
	manager *stream.Manager
	view    *logview.Model
	scroll  logview.Autoscroll

	viewport    viewport.Model
	searchInput textinput.Model
	keys        KeyMap

	// activeTypes tracks the category chips; digits 1-7 toggle them.
	activeTypes map[model.Category]bool

	searchActive bool
	connState    stream.State
	statusText   string

	debouncedReconnect func(func())
	cancel             context.CancelFunc

	width  int
	height int
}

// NewLogsPage creates the logs page around a stream manager. The
// manager is started by Init.
func NewLogsPage(manager *stream.Manager, maxRecords int) *LogsPage {
	ti := textinput.New()
	ti.Placeholder = "search logs"
	ti.CharLimit = 128

	active := make(map[model.Category]bool, len(model.Categories()))
	for _, c := range model.Categories() {
		active[c] = true
	}

	return &LogsPage{
		manager:            manager,
		view:               logview.New(maxRecords),
		scroll:             logview.NewAutoscroll(),
		viewport:           viewport.New(80, 20),
		searchInput:        ti,
		keys:               DefaultKeyMap(),
		activeTypes:        active,
		connState:          stream.StateConnecting,
		debouncedReconnect: debounce.New(searchDebounce),
	}
}

func (p *LogsPage) ID() string { return PageLogs }

func (p *LogsPage) Init() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.manager.Run(ctx)
	return p.waitForEvent()
}

// Close stops the stream manager.
func (p *LogsPage) Close() {
	if p.cancel != nil {
		p.cancel()
	}
}

// waitForEvent blocks on the manager's event channel and hands the next
// event to the update loop.
func (p *LogsPage) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-p.manager.Events()
		if !ok {
			return streamClosedMsg{}
		}
		return streamEventMsg{ev: ev}
	}
}

func (p *LogsPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.viewport.Width = max(20, msg.Width-4)
		p.viewport.Height = max(3, msg.Height-7)
		p.refreshContent()
		return nil, nil

	case streamEventMsg:
		p.applyStreamEvent(msg.ev)
		return p.waitForEvent(), nil

	case streamClosedMsg:
		p.statusText = "log stream stopped"
		return nil, nil

	case exportDoneMsg:
		if msg.err != nil {
			p.statusText = "export failed: " + msg.err.Error()
		} else {
			p.statusText = "exported to " + msg.path
		}
		return nil, nil

	case tea.KeyMsg:
		return p.handleKey(msg)
	}

	return nil, nil
}

func (p *LogsPage) applyStreamEvent(ev stream.Event) {
	if ev.Message != nil {
		switch ev.Message.Type {
		case model.StreamInitial:
			p.view.IngestInitial(ev.Message.Logs)
		case model.StreamUpdate:
			p.view.IngestUpdate(ev.Message.Logs)
		}
		p.refreshContent()
		return
	}

	p.connState = ev.State
	if ev.State == stream.StateDisconnected && ev.Err != nil {
		p.view.SetError(ev.Err)
	}
	p.refreshContent()
}

func (p *LogsPage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	if p.searchActive {
		return p.handleSearchKey(msg), nil
	}

	switch {
	case key.Matches(msg, p.keys.Quit), key.Matches(msg, p.keys.ForceQuit):
		p.Close()
		return tea.Quit, nil

	case key.Matches(msg, p.keys.NextPage):
		return nil, &PageNav{PageID: PageStatus}

	case key.Matches(msg, p.keys.Search):
		p.searchActive = true
		return p.searchInput.Focus(), nil

	case key.Matches(msg, p.keys.Export):
		return p.exportCmd(), nil

	case key.Matches(msg, p.keys.JumpToLatest):
		p.scroll.JumpToLatest()
		p.viewport.GotoBottom()
		return nil, nil

	case msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '7':
		p.toggleCategory(int(msg.Runes[0] - '1'))
		return nil, nil
	}

	// Everything else scrolls the viewport.
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	p.scroll.Observe(p.viewport.YOffset, p.viewport.TotalLineCount(), p.viewport.Height)
	return cmd, nil
}

func (p *LogsPage) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEscape:
		p.searchActive = false
		p.searchInput.Blur()
		p.searchInput.SetValue("")
		p.applyFilter()
		return nil
	case tea.KeyEnter:
		p.searchActive = false
		p.searchInput.Blur()
		return nil
	}

	var cmd tea.Cmd
	p.searchInput, cmd = p.searchInput.Update(msg)
	p.applyFilter()
	return cmd
}

func (p *LogsPage) toggleCategory(idx int) {
	cats := model.Categories()
	if idx < 0 || idx >= len(cats) {
		return
	}
	p.activeTypes[cats[idx]] = !p.activeTypes[cats[idx]]
	p.applyFilter()
}

// applyFilter updates the local view at once and reconnects the stream
// after the debounce window, keeping keystrokes cheap.
func (p *LogsPage) applyFilter() {
	f := p.currentFilter()
	p.view.SetFilter(f)
	p.refreshContent()
	p.debouncedReconnect(func() {
		p.manager.SetParams(f)
	})
}

// currentFilter builds the filter from the chips and the search box.
// With every chip on (or none, which reads as no restriction) the type
// list stays empty.
func (p *LogsPage) currentFilter() model.Filter {
	var selected []model.Category
	for _, c := range model.Categories() {
		if p.activeTypes[c] {
			selected = append(selected, c)
		}
	}
	f := model.Filter{Search: strings.TrimSpace(p.searchInput.Value())}
	if len(selected) > 0 && len(selected) < len(model.Categories()) {
		f.Types = selected
	}
	return f
}

func (p *LogsPage) exportCmd() tea.Cmd {
	text := p.view.ExportText()
	name := logview.ExportFileName(time.Now())
	return func() tea.Msg {
		err := os.WriteFile(name, []byte(text+"\n"), 0o644)
		return exportDoneMsg{path: name, err: err}
	}
}

// refreshContent re-renders the viewport and keeps it pinned to the
// newest entry when autoscroll is on.
func (p *LogsPage) refreshContent() {
	p.viewport.SetContent(p.renderRecords())
	if p.scroll.Pinned() {
		p.viewport.GotoBottom()
	}
}

// renderRecords renders the filtered records oldest first, so the
// newest entry sits at the bottom of the viewport.
func (p *LogsPage) renderRecords() string {
	filtered := p.view.Filtered()
	if len(filtered) == 0 {
		return ""
	}

	var b strings.Builder
	for i := len(filtered) - 1; i >= 0; i-- {
		r := filtered[i]
		b.WriteString(dimStyle.Render(r.Timestamp))
		b.WriteByte(' ')
		b.WriteString(categoryStyle(r.Type).Render(fmt.Sprintf("%-14s", r.Type)))
		b.WriteByte(' ')
		b.WriteString(r.Message)
		if r.Username != "" {
			b.WriteString(dimStyle.Render(" user=" + r.Username))
		}
		if r.IPAddress != "" {
			b.WriteString(dimStyle.Render(" ip=" + r.IPAddress))
		}
		if i > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (p *LogsPage) View(width, height int) string {
	header := titleStyle.Render("OpenVPN Logs") + "  " + p.connIndicator()
	chips := p.renderChips()
	body := p.renderBody()
	footer := p.renderFooter(width)

	return lipgloss.JoinVertical(lipgloss.Left, header, chips, body, footer)
}

func (p *LogsPage) connIndicator() string {
	switch p.connState {
	case stream.StateConnected:
		return okStyle.Render("● connected")
	case stream.StateConnecting:
		return warnStyle.Render("● connecting")
	default:
		return errorStyle.Render("● disconnected")
	}
}

func (p *LogsPage) renderChips() string {
	parts := make([]string, 0, len(model.Categories())+1)
	for i, c := range model.Categories() {
		label := fmt.Sprintf("%d:%s", i+1, c)
		if p.activeTypes[c] {
			parts = append(parts, activeChipStyle.Render(label))
		} else {
			parts = append(parts, inactiveChipStyle.Render(label))
		}
	}
	if p.searchActive || p.searchInput.Value() != "" {
		parts = append(parts, p.searchInput.View())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (p *LogsPage) renderBody() string {
	switch p.view.State() {
	case logview.StateError:
		return paneStyle.Render(errorStyle.Render(p.view.Err().Error()))
	case logview.StateLoading:
		return paneStyle.Render(dimStyle.Render("Waiting for log stream..."))
	case logview.StateNoMatch:
		return paneStyle.Render(dimStyle.Render("No logs match the current filter."))
	default:
		return paneStyle.Render(p.viewport.View())
	}
}

func (p *LogsPage) renderFooter(width int) string {
	left := fmt.Sprintf(" %d/%d records", len(p.view.Filtered()), p.view.Total())
	if !p.scroll.Pinned() {
		left += dimStyle.Render("  (scrolled, end: latest)")
	}
	help := "/: search • 1-7: types • e: export • tab: status • q: quit"
	if p.statusText != "" {
		help = p.statusText
	}
	line := left + "  " + dimStyle.Render(help)
	if width > 0 {
		return statusLineStyle.Width(width).Render(line)
	}
	return statusLineStyle.Render(line)
}
