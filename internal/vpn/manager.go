package vpn

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vpntools/vpnconsole/internal/model"
)

// systemd prints ExecMainStartTimestamp as "Day YYYY-MM-DD HH:MM:SS TZ".
const startTimestampLayout = "Mon 2006-01-02 15:04:05 MST"

var startTimestampPattern = regexp.MustCompile(`ExecMainStartTimestamp=(.+)`)
var mainPIDPattern = regexp.MustCompile(`MainPID=(\d+)`)

// Config holds the host-side paths and names the manager operates on.
type Config struct {
	ServiceName    string // systemd unit, e.g. "openvpn@server"
	ConfigDir      string // e.g. /etc/openvpn
	StatusFile     string // e.g. /var/log/openvpn/status.log
	ManagementAddr string // host:port of the OpenVPN management interface
}

// Manager drives the OpenVPN service through systemctl, easyrsa and the
// management interface. It satisfies model.ServiceController.
type Manager struct {
	conf   Config
	runner Runner
	now    func() time.Time
}

// NewManager creates a Manager. A nil runner defaults to ExecRunner.
func NewManager(conf Config, runner Runner) *Manager {
	if runner == nil {
		runner = ExecRunner{}
	}
	if conf.ServiceName == "" {
		conf.ServiceName = "openvpn@server"
	}
	return &Manager{conf: conf, runner: runner, now: time.Now}
}

// Status reports whether the service is active and for how long. A
// systemctl failure surfaces as an error; an unparsable start timestamp
// degrades to online with zero uptime.
func (m *Manager) Status() (model.ServiceStatus, error) {
	ctx, cancel := m.cmdCtx()
	defer cancel()

	stdout, _, _ := m.runner.Run(ctx, "systemctl", "is-active", m.conf.ServiceName)
	if strings.TrimSpace(stdout) != "active" {
		return model.ServiceStatus{Status: model.ServiceOffline, Uptime: "0d 0h 0m"}, nil
	}

	status := model.ServiceStatus{Status: model.ServiceOnline, Uptime: "0d 0h 0m"}

	stdout, stderr, code := m.runner.Run(ctx, "systemctl", "show", m.conf.ServiceName,
		"--property=ExecMainStartTimestamp")
	if code != 0 {
		log.WithField("stderr", stderr).Warn("vpn: systemctl show failed")
		return status, nil
	}

	match := startTimestampPattern.FindStringSubmatch(stdout)
	if match == nil {
		return status, nil
	}
	started, err := time.Parse(startTimestampLayout, strings.TrimSpace(match[1]))
	if err != nil {
		log.WithError(err).Warn("vpn: cannot parse service start time")
		return status, nil
	}

	up := m.now().Sub(started)
	status.UptimeSeconds = up.Seconds()
	status.Uptime = formatUptime(up)
	return status, nil
}

// PID returns the main process ID of the running service.
func (m *Manager) PID() (int, error) {
	ctx, cancel := m.cmdCtx()
	defer cancel()

	stdout, stderr, code := m.runner.Run(ctx, "systemctl", "show", m.conf.ServiceName,
		"--property=MainPID")
	if code != 0 {
		return 0, fmt.Errorf("systemctl show MainPID: %s", strings.TrimSpace(stderr))
	}
	match := mainPIDPattern.FindStringSubmatch(stdout)
	if match == nil {
		return 0, fmt.Errorf("no MainPID in systemctl output")
	}
	pid, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, err
	}
	if pid == 0 {
		return 0, fmt.Errorf("service has no main process")
	}
	return pid, nil
}

// Start starts the service.
func (m *Manager) Start() error { return m.systemctl("start") }

// Stop stops the service.
func (m *Manager) Stop() error { return m.systemctl("stop") }

// Restart restarts the service.
func (m *Manager) Restart() error { return m.systemctl("restart") }

func (m *Manager) systemctl(verb string) error {
	ctx, cancel := m.cmdCtx()
	defer cancel()

	_, stderr, code := m.runner.Run(ctx, "systemctl", verb, m.conf.ServiceName)
	if code != 0 {
		return fmt.Errorf("systemctl %s %s: %s", verb, m.conf.ServiceName, strings.TrimSpace(stderr))
	}
	log.WithField("action", verb).Info("vpn: service action completed")
	return nil
}

func (m *Manager) cmdCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
}
