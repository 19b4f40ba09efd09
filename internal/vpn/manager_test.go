package vpn

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vpntools/vpnconsole/internal/model"
)

// fakeRunner scripts command responses and records invocations.
type fakeRunner struct {
	responses map[string]struct {
		stdout string
		stderr string
		code   int
	}
	calls []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string]struct {
		stdout string
		stderr string
		code   int
	})}
}

func (f *fakeRunner) on(cmd, stdout, stderr string, code int) {
	f.responses[cmd] = struct {
		stdout string
		stderr string
		code   int
	}{stdout, stderr, code}
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, int) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, cmd)
	if resp, ok := f.responses[cmd]; ok {
		return resp.stdout, resp.stderr, resp.code
	}
	return "", "command not scripted: " + cmd, 1
}

func TestStatus_Offline(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.on("systemctl is-active openvpn@server", "inactive\n", "", 3)

	m := NewManager(Config{}, runner)
	status, err := m.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != model.ServiceOffline {
		t.Errorf("status = %q, want offline", status.Status)
	}
	if status.Uptime != "0d 0h 0m" || status.UptimeSeconds != 0 {
		t.Errorf("offline uptime = %q/%v, want zero", status.Uptime, status.UptimeSeconds)
	}
}

func TestStatus_OnlineWithUptime(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.on("systemctl is-active openvpn@server", "active\n", "", 0)
	runner.on("systemctl show openvpn@server --property=ExecMainStartTimestamp",
		"ExecMainStartTimestamp=Mon 2025-04-28 10:00:00 UTC\n", "", 0)

	m := NewManager(Config{}, runner)
	m.now = func() time.Time {
		return time.Date(2025, 4, 30, 13, 30, 0, 0, time.UTC)
	}

	status, err := m.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != model.ServiceOnline {
		t.Errorf("status = %q, want online", status.Status)
	}
	if status.Uptime != "2d 3h 30m" {
		t.Errorf("uptime = %q, want 2d 3h 30m", status.Uptime)
	}
	wantSecs := (2*24*3600 + 3*3600 + 30*60)
	if int(status.UptimeSeconds) != wantSecs {
		t.Errorf("uptime_seconds = %v, want %d", status.UptimeSeconds, wantSecs)
	}
}

func TestStatus_UnparsableStartTimeDegrades(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.on("systemctl is-active openvpn@server", "active", "", 0)
	runner.on("systemctl show openvpn@server --property=ExecMainStartTimestamp",
		"ExecMainStartTimestamp=garbage\n", "", 0)

	m := NewManager(Config{}, runner)
	status, err := m.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != model.ServiceOnline || status.UptimeSeconds != 0 {
		t.Errorf("degraded status = %+v, want online with zero uptime", status)
	}
}

func TestPID(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.on("systemctl show openvpn@server --property=MainPID", "MainPID=4242\n", "", 0)

	m := NewManager(Config{}, runner)
	pid, err := m.PID()
	if err != nil {
		t.Fatalf("PID: %v", err)
	}
	if pid != 4242 {
		t.Errorf("pid = %d, want 4242", pid)
	}

	runner.on("systemctl show openvpn@server --property=MainPID", "MainPID=0\n", "", 0)
	if _, err := m.PID(); err == nil {
		t.Error("expected error for MainPID=0")
	}
}

func TestLifecycleActions(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.on("systemctl start openvpn@server", "", "", 0)
	runner.on("systemctl stop openvpn@server", "", "", 0)
	runner.on("systemctl restart openvpn@server", "", "failed to restart", 1)

	m := NewManager(Config{}, runner)
	if err := m.Start(); err != nil {
		t.Errorf("Start: %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	err := m.Restart()
	if err == nil || !strings.Contains(err.Error(), "failed to restart") {
		t.Errorf("Restart err = %v, want stderr surfaced", err)
	}
}

func TestActiveClients_StatusFileFallback(t *testing.T) {
	t.Parallel()

	statusFile := filepath.Join(t.TempDir(), "status.log")
	content := `OpenVPN CLIENT LIST
Updated,Wed Apr 30 10:00:00 2025
Common Name,Real Address,Bytes Received,Bytes Sent,Connected Since
alice,192.168.1.100:52364,1048576,2097152,Wed Apr 30 09:00:00 2025
UNDEF,10.0.0.9:11940,0,0,Wed Apr 30 09:59:59 2025
bob,10.0.0.5:44181,512,1024,Wed Apr 30 09:30:00 2025
ROUTING TABLE
Virtual Address,Common Name,Real Address,Last Ref
10.8.0.2,alice,192.168.1.100:52364,Wed Apr 30 09:00:00 2025
GLOBAL STATS
`
	if err := os.WriteFile(statusFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	// No management address configured, so the status file is used.
	m := NewManager(Config{StatusFile: statusFile}, newFakeRunner())
	clients, err := m.ActiveClients()
	if err != nil {
		t.Fatalf("ActiveClients: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("clients = %+v, want alice and bob", clients)
	}
	if clients[0].CommonName != "alice" || clients[0].RealAddress != "192.168.1.100" {
		t.Errorf("first client = %+v", clients[0])
	}
	if clients[0].BytesReceived != 1048576 || clients[0].BytesSent != 2097152 {
		t.Errorf("byte counters = %+v", clients[0])
	}
	if clients[1].CommonName != "bob" {
		t.Errorf("second client = %+v", clients[1])
	}
}

func TestActiveClients_MissingStatusFile(t *testing.T) {
	t.Parallel()

	m := NewManager(Config{StatusFile: filepath.Join(t.TempDir(), "nope.log")}, newFakeRunner())
	clients, err := m.ActiveClients()
	if err != nil {
		t.Fatalf("ActiveClients: %v", err)
	}
	if len(clients) != 0 {
		t.Errorf("clients = %+v, want none", clients)
	}
}

func TestAddClient(t *testing.T) {
	t.Parallel()

	configDir := t.TempDir()
	easyrsa := filepath.Join(configDir, "easy-rsa", "easyrsa")

	runner := newFakeRunner()
	runner.on(easyrsa+" build-client-full carol nopass", "", "", 0)

	m := NewManager(Config{ConfigDir: configDir}, runner)
	if err := m.AddClient("carol"); err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("calls = %v", runner.calls)
	}

	if err := m.AddClient(""); err == nil {
		t.Error("expected error for empty username")
	}
}

func TestAddClient_DuplicateRefused(t *testing.T) {
	t.Parallel()

	configDir := t.TempDir()
	issued := filepath.Join(configDir, "easy-rsa", "pki", "issued")
	if err := os.MkdirAll(issued, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(issued, "dave.crt"), []byte("cert"), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(Config{ConfigDir: configDir}, newFakeRunner())
	err := m.AddClient("dave")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("err = %v, want duplicate refusal", err)
	}
}

func TestRevokeClient(t *testing.T) {
	t.Parallel()

	configDir := t.TempDir()
	easyrsa := filepath.Join(configDir, "easy-rsa", "easyrsa")
	crlSrc := filepath.Join(configDir, "easy-rsa", "pki", "crl.pem")
	crlDst := filepath.Join(configDir, "crl.pem")

	runner := newFakeRunner()
	runner.on(easyrsa+" revoke erin", "", "", 0)
	runner.on(easyrsa+" gen-crl", "", "", 0)
	runner.on(fmt.Sprintf("cp %s %s", crlSrc, crlDst), "", "", 0)

	m := NewManager(Config{ConfigDir: configDir}, runner)
	if err := m.RevokeClient("erin"); err != nil {
		t.Fatalf("RevokeClient: %v", err)
	}
	if len(runner.calls) != 3 {
		t.Fatalf("calls = %v, want revoke, gen-crl, cp", runner.calls)
	}
}

func TestRevokeClient_StopsOnRevokeFailure(t *testing.T) {
	t.Parallel()

	configDir := t.TempDir()
	easyrsa := filepath.Join(configDir, "easy-rsa", "easyrsa")

	runner := newFakeRunner()
	runner.on(easyrsa+" revoke mallory", "", "no such cert", 1)

	m := NewManager(Config{ConfigDir: configDir}, runner)
	if err := m.RevokeClient("mallory"); err == nil {
		t.Fatal("expected revoke failure")
	}
	if len(runner.calls) != 1 {
		t.Errorf("calls = %v, want revoke only", runner.calls)
	}
}
