package poller

import (
	"errors"
	"fmt"

	"github.com/vpntools/vpnconsole/internal/model"
)

// API is the narrow client contract the poller drives.
type API interface {
	ServiceStatus() (model.ServiceStatus, error)
	ServicePID() (int, bool, error)
	ServiceAction(action model.ServiceAction) error
}

// ErrActionInFlight guards against overlapping lifecycle actions.
var ErrActionInFlight = errors.New("another service action is already running")

// ErrNotEligible rejects an action that does not apply to the current
// service state, such as starting an already-running service.
var ErrNotEligible = errors.New("action not eligible in current service state")

// Snapshot is the poller's view of the service at a point in time.
type Snapshot struct {
	State         model.ServiceState
	Uptime        string
	UptimeSeconds float64

	// PIDKnown distinguishes "online with unknown PID" from a real PID.
	PID      int
	PIDKnown bool

	InFlight model.ServiceAction
	LastErr  error
}

// Poller is a synchronous state machine over the status API. It owns no
// timers; the caller drives Refresh on its 10s cadence and schedules the
// 2s settle re-fetch after a successful action.
type Poller struct {
	api  API
	snap Snapshot
}

// New creates a Poller. The snapshot starts unknown until the first
// Refresh.
func New(api API) *Poller {
	return &Poller{api: api, snap: Snapshot{State: model.ServiceUnknown}}
}

// Snapshot returns the current view.
func (p *Poller) Snapshot() Snapshot { return p.snap }

// Refresh fetches the service status and, when online, the PID. A PID
// fetch failure degrades to online with an unknown PID rather than
// failing the refresh. A status fetch failure keeps the previous
// snapshot stale and only records the error; the next successful poll
// reconciles.
func (p *Poller) Refresh() Snapshot {
	status, err := p.api.ServiceStatus()
	if err != nil {
		p.snap.LastErr = err
		return p.snap
	}

	p.snap.LastErr = nil
	p.snap.State = status.Status
	p.snap.Uptime = status.Uptime
	p.snap.UptimeSeconds = status.UptimeSeconds
	p.snap.PID = 0
	p.snap.PIDKnown = false

	if status.Status == model.ServiceOnline {
		if pid, known, err := p.api.ServicePID(); err == nil && known {
			p.snap.PID = pid
			p.snap.PIDKnown = true
		}
	}
	return p.snap
}

// CanStart reports whether the start button applies.
func (p *Poller) CanStart() bool {
	return p.snap.InFlight == "" && p.snap.State == model.ServiceOffline
}

// CanStop reports whether the stop button applies.
func (p *Poller) CanStop() bool {
	return p.snap.InFlight == "" && p.snap.State == model.ServiceOnline
}

// CanRestart reports whether the restart button applies.
func (p *Poller) CanRestart() bool {
	return p.snap.InFlight == "" && p.snap.State == model.ServiceOnline
}

// RunAction executes one lifecycle action. At most one action runs at a
// time. On success the in-flight flag stays set; the caller waits the
// settle delay and then calls Settle. On failure the flag clears at once
// and the next scheduled Refresh reconciles the state.
func (p *Poller) RunAction(action model.ServiceAction) error {
	if p.snap.InFlight != "" {
		return ErrActionInFlight
	}

	eligible := false
	switch action {
	case model.ActionStart:
		eligible = p.CanStart()
	case model.ActionStop:
		eligible = p.CanStop()
	case model.ActionRestart:
		eligible = p.CanRestart()
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	if !eligible {
		return ErrNotEligible
	}

	p.snap.InFlight = action
	if err := p.api.ServiceAction(action); err != nil {
		p.snap.InFlight = ""
		p.snap.LastErr = err
		return err
	}
	return nil
}

// Settle finishes a successful action: it re-fetches the status and
// clears the in-flight flag.
func (p *Poller) Settle() Snapshot {
	p.snap.InFlight = ""
	return p.Refresh()
}
