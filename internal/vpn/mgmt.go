package vpn

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"
)

const mgmtDialTimeout = 5 * time.Second

// mgmtCommand sends one command to the OpenVPN management interface and
// collects the response up to the END or SUCCESS terminator.
func (m *Manager) mgmtCommand(command string) ([]string, error) {
	if m.conf.ManagementAddr == "" {
		return nil, fmt.Errorf("management interface not configured")
	}

	conn, err := net.DialTimeout("tcp", m.conf.ManagementAddr, mgmtDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial management interface: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(mgmtDialTimeout))

	reader := bufio.NewReader(conn)
	// Discard the greeting line.
	if _, err := reader.ReadString('\n'); err != nil {
		return nil, err
	}

	if _, err := fmt.Fprintf(conn, "%s\n", command); err != nil {
		return nil, err
	}

	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return lines, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "END" || strings.HasPrefix(line, "SUCCESS:") || strings.HasPrefix(line, "ERROR:") {
			lines = append(lines, line)
			return lines, nil
		}
		lines = append(lines, line)
	}
}

// DisconnectClient kills a client's session through the management
// interface.
func (m *Manager) DisconnectClient(username string) error {
	if username == "" {
		return fmt.Errorf("empty username")
	}
	lines, err := m.mgmtCommand("kill " + username)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if strings.Contains(line, "SUCCESS") {
			return nil
		}
	}
	return fmt.Errorf("management interface refused kill for %q", username)
}
