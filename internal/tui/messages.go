package tui

import (
	"time"

	"github.com/vpntools/vpnconsole/internal/model"
	"github.com/vpntools/vpnconsole/internal/poller"
	"github.com/vpntools/vpnconsole/internal/stream"
)

// streamEventMsg wraps one notification from the log stream manager.
type streamEventMsg struct {
	ev stream.Event
}

// streamClosedMsg signals that the manager shut down and no further
// events will arrive.
type streamClosedMsg struct{}

// exportDoneMsg reports the outcome of a log export.
type exportDoneMsg struct {
	path string
	err  error
}

// pollTickMsg drives the status poll cadence.
type pollTickMsg time.Time

// settleTickMsg fires after the post-action settle delay.
type settleTickMsg struct{}

// statusRefreshedMsg carries a fresh poller snapshot.
type statusRefreshedMsg struct {
	snap poller.Snapshot
}

// actionDoneMsg reports the outcome of a lifecycle action request.
type actionDoneMsg struct {
	action model.ServiceAction
	err    error
}

// clientsMsg carries the active connection list.
type clientsMsg struct {
	clients []model.VPNClient
	err     error
}

// backupDoneMsg reports the outcome of a configuration backup.
type backupDoneMsg struct {
	path string
	err  error
}

// clientActionDoneMsg reports the outcome of a per-client call.
type clientActionDoneMsg struct {
	what     string
	username string
	err      error
}

// rateDataMsg carries recent records for the log rate chart.
type rateDataMsg struct {
	records []model.LogRecord
	err     error
}
