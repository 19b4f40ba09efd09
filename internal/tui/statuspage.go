package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/vpntools/vpnconsole/internal/model"
	"github.com/vpntools/vpnconsole/internal/poller"
)

// PageStatus identifies the service status page.
const PageStatus = "status"

// rateChartLimit is how many recent records feed the log rate chart.
const rateChartLimit = 500

// StatusAPI is what the status page needs from the console API.
type StatusAPI interface {
	poller.API
	ActiveConnections() ([]model.VPNClient, error)
	DisconnectClient(username string) error
	BackupConfig() (string, error)
	RecentLogs(limit int, filter model.Filter) ([]model.LogRecord, error)
}

const (
	colKeyName  = "name"
	colKeyAddr  = "addr"
	colKeyRecv  = "recv"
	colKeySent  = "sent"
	colKeySince = "since"
)

// StatusPage shows service state, lifecycle controls, connected clients,
// and recent log volume.
type StatusPage struct {
	api  StatusAPI
	pol  *poller.Poller
	keys KeyMap

	table   table.Model
	clients []model.VPNClient
	buckets []minuteCounts

	// snap is the rendered copy of the poller state. The poller itself
	// is only touched from commands, serialized by pollerBusy; View
	// reads this copy so it never races a command goroutine.
	snap poller.Snapshot

	// pollerBusy serializes everything that touches the poller: refresh,
	// actions, and the settle re-fetch.
	pollerBusy      bool
	clientsInFlight bool
	rateInFlight    bool

	statusText string

	width  int
	height int
}

// NewStatusPage creates the status page around the console API client.
func NewStatusPage(api StatusAPI) *StatusPage {
	columns := []table.Column{
		table.NewFlexColumn(colKeyName, "Client", 2),
		table.NewColumn(colKeyAddr, "Address", 18),
		table.NewColumn(colKeyRecv, "Received", 12),
		table.NewColumn(colKeySent, "Sent", 12),
		table.NewFlexColumn(colKeySince, "Connected Since", 2),
	}

	t := table.New(columns).
		WithBaseStyle(lipgloss.NewStyle().Padding(0, 1)).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)).
		HighlightStyle(lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorWhite)).
		Focused(true).
		WithPageSize(10).
		WithFooterVisibility(false)

	return &StatusPage{
		api:   api,
		pol:   poller.New(api),
		keys:  DefaultKeyMap(),
		table: t,
		snap:  poller.Snapshot{State: model.ServiceUnknown},
	}
}

func (p *StatusPage) ID() string { return PageStatus }

func (p *StatusPage) Init() tea.Cmd {
	p.pollerBusy = true
	p.clientsInFlight = true
	p.rateInFlight = true
	return tea.Batch(p.refreshCmd(), p.clientsCmd(), p.rateCmd(), p.tickCmd())
}

func (p *StatusPage) tickCmd() tea.Cmd {
	return tea.Tick(model.DefaultPollInterval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

func (p *StatusPage) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return statusRefreshedMsg{snap: p.pol.Refresh()}
	}
}

func (p *StatusPage) settleCmd() tea.Cmd {
	return func() tea.Msg {
		return statusRefreshedMsg{snap: p.pol.Settle()}
	}
}

func (p *StatusPage) actionCmd(action model.ServiceAction) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: p.pol.RunAction(action)}
	}
}

func (p *StatusPage) clientsCmd() tea.Cmd {
	return func() tea.Msg {
		clients, err := p.api.ActiveConnections()
		return clientsMsg{clients: clients, err: err}
	}
}

func (p *StatusPage) rateCmd() tea.Cmd {
	return func() tea.Msg {
		records, err := p.api.RecentLogs(rateChartLimit, model.Filter{})
		return rateDataMsg{records: records, err: err}
	}
}

func (p *StatusPage) backupCmd() tea.Cmd {
	return func() tea.Msg {
		path, err := p.api.BackupConfig()
		return backupDoneMsg{path: path, err: err}
	}
}

func (p *StatusPage) disconnectCmd(username string) tea.Cmd {
	return func() tea.Msg {
		return clientActionDoneMsg{
			what:     "disconnect",
			username: username,
			err:      p.api.DisconnectClient(username),
		}
	}
}

func (p *StatusPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.table = p.table.WithTargetWidth(max(40, msg.Width-4))
		return nil, nil

	case pollTickMsg:
		var cmds []tea.Cmd
		if !p.pollerBusy {
			p.pollerBusy = true
			cmds = append(cmds, p.refreshCmd())
		}
		if !p.clientsInFlight {
			p.clientsInFlight = true
			cmds = append(cmds, p.clientsCmd())
		}
		if !p.rateInFlight {
			p.rateInFlight = true
			cmds = append(cmds, p.rateCmd())
		}
		cmds = append(cmds, p.tickCmd())
		return tea.Batch(cmds...), nil

	case statusRefreshedMsg:
		p.pollerBusy = false
		p.snap = msg.snap
		return nil, nil

	case actionDoneMsg:
		if msg.err != nil {
			p.pollerBusy = false
			p.statusText = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			return nil, nil
		}
		p.statusText = fmt.Sprintf("%s requested, settling...", msg.action)
		return tea.Tick(model.DefaultSettleDelay, func(time.Time) tea.Msg {
			return settleTickMsg{}
		}), nil

	case settleTickMsg:
		return p.settleCmd(), nil

	case clientsMsg:
		p.clientsInFlight = false
		if msg.err == nil {
			p.clients = msg.clients
			p.table = p.table.WithRows(p.buildRows())
		}
		return nil, nil

	case rateDataMsg:
		p.rateInFlight = false
		if msg.err == nil {
			p.buckets = bucketByMinute(msg.records)
		}
		return nil, nil

	case backupDoneMsg:
		if msg.err != nil {
			p.statusText = "backup failed: " + msg.err.Error()
		} else {
			p.statusText = "backup written to " + msg.path
		}
		return nil, nil

	case clientActionDoneMsg:
		if msg.err != nil {
			p.statusText = fmt.Sprintf("%s %s failed: %v", msg.what, msg.username, msg.err)
			return nil, nil
		}
		p.statusText = fmt.Sprintf("%s %s ok", msg.what, msg.username)
		if !p.clientsInFlight {
			p.clientsInFlight = true
			return p.clientsCmd(), nil
		}
		return nil, nil

	case tea.KeyMsg:
		return p.handleKey(msg)
	}

	return nil, nil
}

func (p *StatusPage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	switch {
	case key.Matches(msg, p.keys.Quit), key.Matches(msg, p.keys.ForceQuit):
		return tea.Quit, nil

	case key.Matches(msg, p.keys.NextPage):
		return nil, &PageNav{PageID: PageLogs}

	case key.Matches(msg, p.keys.Start):
		return p.runAction(model.ActionStart), nil
	case key.Matches(msg, p.keys.Stop):
		return p.runAction(model.ActionStop), nil
	case key.Matches(msg, p.keys.Restart):
		return p.runAction(model.ActionRestart), nil

	case key.Matches(msg, p.keys.Backup):
		p.statusText = "backing up configuration..."
		return p.backupCmd(), nil

	case key.Matches(msg, p.keys.Disconnect):
		if name := p.selectedClient(); name != "" {
			p.statusText = "disconnecting " + name + "..."
			return p.disconnectCmd(name), nil
		}
		return nil, nil

	case key.Matches(msg, p.keys.Up):
		p.table = p.table.WithHighlightedRow(p.table.GetHighlightedRowIndex() - 1)
		return nil, nil
	case key.Matches(msg, p.keys.Down):
		p.table = p.table.WithHighlightedRow(p.table.GetHighlightedRowIndex() + 1)
		return nil, nil
	}

	return nil, nil
}

// runAction dispatches a lifecycle action unless one is already being
// handled. Eligibility is rechecked inside the poller.
func (p *StatusPage) runAction(action model.ServiceAction) tea.Cmd {
	if p.pollerBusy {
		p.statusText = "busy, try again in a moment"
		return nil
	}
	p.pollerBusy = true
	p.statusText = string(action) + "..."
	return p.actionCmd(action)
}

func (p *StatusPage) selectedClient() string {
	row := p.table.HighlightedRow()
	if row.Data == nil {
		return ""
	}
	if name, ok := row.Data[colKeyName].(string); ok {
		return name
	}
	return ""
}

func (p *StatusPage) buildRows() []table.Row {
	rows := make([]table.Row, 0, len(p.clients))
	for _, c := range p.clients {
		rows = append(rows, table.NewRow(table.RowData{
			colKeyName:  c.CommonName,
			colKeyAddr:  c.RealAddress,
			colKeyRecv:  formatBytes(c.BytesReceived),
			colKeySent:  formatBytes(c.BytesSent),
			colKeySince: c.ConnectedSince,
		}))
	}
	return rows
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMG"[exp])
}

func (p *StatusPage) View(width, height int) string {
	header := titleStyle.Render("OpenVPN Service") + "  " + p.stateIndicator()
	detail := p.renderDetail()
	chart := paneStyle.Render(renderRateChart(p.buckets, max(20, width-6), 6))
	clients := p.table.View()
	footer := p.renderFooter(width)

	return lipgloss.JoinVertical(lipgloss.Left, header, detail, chart, clients, footer)
}

func (p *StatusPage) stateIndicator() string {
	switch p.snap.State {
	case model.ServiceOnline:
		return okStyle.Render("● online")
	case model.ServiceOffline:
		return errorStyle.Render("● offline")
	default:
		return warnStyle.Render("● unknown")
	}
}

func (p *StatusPage) renderDetail() string {
	snap := p.snap

	uptime := snap.Uptime
	if uptime == "" {
		uptime = "-"
	}
	pid := "unknown"
	if snap.PIDKnown {
		pid = fmt.Sprintf("%d", snap.PID)
	}

	line := fmt.Sprintf("Uptime: %s   PID: %s   Clients: %d", uptime, pid, len(p.clients))
	if snap.InFlight != "" {
		line += "   " + warnStyle.Render(string(snap.InFlight)+" in progress")
	}
	if snap.LastErr != nil {
		line += "   " + errorStyle.Render(snap.LastErr.Error())
	}
	return paneStyle.Render(line)
}

func (p *StatusPage) renderFooter(width int) string {
	help := "s: start • x: stop • r: restart • b: backup • d: disconnect • tab: logs • q: quit"
	if p.statusText != "" {
		help = p.statusText
	}
	line := " " + dimStyle.Render(help)
	if width > 0 {
		return statusLineStyle.Width(width).Render(line)
	}
	return statusLineStyle.Render(line)
}
