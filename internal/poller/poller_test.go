package poller

import (
	"errors"
	"testing"

	"github.com/vpntools/vpnconsole/internal/model"
)

type fakeAPI struct {
	status    model.ServiceStatus
	statusErr error
	pid       int
	pidErr    error
	actionErr error
	actions   []model.ServiceAction
}

func (f *fakeAPI) ServiceStatus() (model.ServiceStatus, error) {
	return f.status, f.statusErr
}

func (f *fakeAPI) ServicePID() (int, bool, error) {
	if f.pidErr != nil {
		return 0, false, f.pidErr
	}
	return f.pid, f.pid != 0, nil
}

func (f *fakeAPI) ServiceAction(action model.ServiceAction) error {
	f.actions = append(f.actions, action)
	return f.actionErr
}

func online() model.ServiceStatus {
	return model.ServiceStatus{Status: model.ServiceOnline, Uptime: "0d 1h 5m", UptimeSeconds: 3900}
}

func offline() model.ServiceStatus {
	return model.ServiceStatus{Status: model.ServiceOffline, Uptime: "0d 0h 0m"}
}

func TestRefresh_OnlineWithPID(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{status: online(), pid: 4242}
	p := New(api)

	if p.Snapshot().State != model.ServiceUnknown {
		t.Errorf("initial state = %v, want unknown", p.Snapshot().State)
	}

	snap := p.Refresh()
	if snap.State != model.ServiceOnline || snap.Uptime != "0d 1h 5m" {
		t.Errorf("snapshot = %+v", snap)
	}
	if !snap.PIDKnown || snap.PID != 4242 {
		t.Errorf("pid = %+v", snap)
	}
}

func TestRefresh_PIDFailureDegrades(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{status: online(), pidErr: errors.New("pid endpoint down")}
	p := New(api)

	snap := p.Refresh()
	if snap.State != model.ServiceOnline {
		t.Errorf("state = %v, want online despite pid failure", snap.State)
	}
	if snap.PIDKnown {
		t.Error("pid should be unknown")
	}
	if snap.LastErr != nil {
		t.Errorf("lastErr = %v, want nil", snap.LastErr)
	}
}

func TestRefresh_OfflineSkipsPID(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{status: offline(), pid: 999}
	p := New(api)

	snap := p.Refresh()
	if snap.State != model.ServiceOffline || snap.PIDKnown {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestRefresh_StatusFailureBeforeFirstFetch(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{statusErr: errors.New("connection refused")}
	p := New(api)

	snap := p.Refresh()
	if snap.State != model.ServiceUnknown || snap.LastErr == nil {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestRefresh_StatusFailureKeepsStaleSnapshot(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{status: online(), pid: 4242}
	p := New(api)
	p.Refresh()

	// A failed poll must not blank the last known state.
	api.statusErr = errors.New("connection refused")
	snap := p.Refresh()
	if snap.State != model.ServiceOnline {
		t.Errorf("state = %v, want stale online state kept", snap.State)
	}
	if !snap.PIDKnown || snap.PID != 4242 {
		t.Errorf("pid = %+v, want stale pid kept", snap)
	}
	if snap.Uptime != "0d 1h 5m" {
		t.Errorf("uptime = %q, want stale uptime kept", snap.Uptime)
	}
	if snap.LastErr == nil {
		t.Error("lastErr should record the failure")
	}

	// The next successful poll reconciles and clears the error.
	api.statusErr = nil
	snap = p.Refresh()
	if snap.State != model.ServiceOnline || snap.LastErr != nil {
		t.Errorf("snapshot after recovery = %+v", snap)
	}
}

func TestEligibility(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{status: online(), pid: 1}
	p := New(api)
	p.Refresh()

	if p.CanStart() {
		t.Error("start should not be eligible while online")
	}
	if !p.CanStop() || !p.CanRestart() {
		t.Error("stop and restart should be eligible while online")
	}

	api.status = offline()
	p.Refresh()
	if !p.CanStart() || p.CanStop() || p.CanRestart() {
		t.Error("only start should be eligible while offline")
	}
}

func TestRunAction_SingleInFlight(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{status: online(), pid: 1}
	p := New(api)
	p.Refresh()

	if err := p.RunAction(model.ActionRestart); err != nil {
		t.Fatalf("RunAction: %v", err)
	}
	if p.Snapshot().InFlight != model.ActionRestart {
		t.Errorf("inFlight = %q", p.Snapshot().InFlight)
	}

	// A second action is rejected until the first settles.
	if err := p.RunAction(model.ActionStop); !errors.Is(err, ErrActionInFlight) {
		t.Errorf("overlapping action err = %v, want ErrActionInFlight", err)
	}
	if len(api.actions) != 1 {
		t.Errorf("actions = %v, want only restart", api.actions)
	}

	snap := p.Settle()
	if snap.InFlight != "" {
		t.Errorf("inFlight after settle = %q", snap.InFlight)
	}
	if err := p.RunAction(model.ActionStop); err != nil {
		t.Errorf("action after settle: %v", err)
	}
}

func TestRunAction_FailureClearsFlag(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{status: offline(), actionErr: errors.New("unit failed")}
	p := New(api)
	p.Refresh()

	err := p.RunAction(model.ActionStart)
	if err == nil {
		t.Fatal("expected action failure")
	}
	snap := p.Snapshot()
	if snap.InFlight != "" {
		t.Errorf("inFlight = %q, want cleared on failure", snap.InFlight)
	}
	if snap.LastErr == nil {
		t.Error("lastErr should record the failure")
	}
}

func TestRunAction_Eligibility(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{status: online(), pid: 1}
	p := New(api)
	p.Refresh()

	if err := p.RunAction(model.ActionStart); !errors.Is(err, ErrNotEligible) {
		t.Errorf("start while online err = %v, want ErrNotEligible", err)
	}
	if len(api.actions) != 0 {
		t.Errorf("actions = %v, want none", api.actions)
	}
}
